// Package server exposes the choropleth views over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edmap/internal/dataset"
	"github.com/sells-group/edmap/internal/monitoring"
	"github.com/sells-group/edmap/internal/selection"
	"github.com/sells-group/edmap/internal/view"
)

// DatasetSource reports the dataset currently being served.
// *scheduler.Reloader satisfies it.
type DatasetSource interface {
	Current() *dataset.Dataset
}

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins []string
	Client      view.ClientConfig
	// Metrics is optional; without it /metrics is not mounted.
	Metrics *monitoring.Metrics
	// Datasets is optional; without it /api/report returns 404.
	Datasets DatasetSource
	// WSBuffer is the per-client view buffer. Zero means 4.
	WSBuffer int
}

// Server routes requests to the selection controller.
type Server struct {
	ctrl     *selection.Controller
	opts     Options
	upgrader websocket.Upgrader
}

// New creates a Server.
func New(ctrl *selection.Controller, opts Options) *Server {
	if opts.WSBuffer <= 0 {
		opts.WSBuffer = 4
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	s := &Server{ctrl: ctrl, opts: opts}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Get("/config", s.handleConfig)
		r.Get("/view", s.handleView)
		r.Get("/views/{attribute}", s.handleViewFor)
		r.Put("/selection", s.handleSelect)
		r.Get("/map.geojson", s.handleGeoJSON)
		r.Get("/chart.svg", s.handleChartSVG)
		r.Get("/regions/{code}/label", s.handleLabel)
		r.Get("/report", s.handleReport)
	})
	r.Get("/ws", s.handleWS)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	zap.L().Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.opts.CORSOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// requestLogger logs each request through zap with chi's request ID.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
