package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/classify"
	"github.com/sells-group/edmap/internal/format"
	"github.com/sells-group/edmap/internal/selection"
	"github.com/sells-group/edmap/internal/view"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps selection and classification errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, selection.ErrUnknownAttribute):
		return http.StatusBadRequest
	case errors.Is(err, classify.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	v := s.ctrl.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"attribute": v.Attribute.Key,
		"revision":  v.Revision,
	})
}

type catalogResponse struct {
	Dropdown   view.Dropdown       `json:"dropdown"`
	Attributes []catalog.Attribute `json:"attributes"`
	Expressed  string              `json:"expressed"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.ctrl.Input().Catalog
	current := s.ctrl.Expressed()
	writeJSON(w, http.StatusOK, catalogResponse{
		Dropdown:   view.BuildDropdown(cat, current),
		Attributes: cat.Attributes(),
		Expressed:  current,
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Client)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Current())
}

func (s *Server) handleViewFor(w http.ResponseWriter, r *http.Request) {
	v, err := s.ctrl.View(chi.URLParam(r, "attribute"))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusBadRequest {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type selectRequest struct {
	Attribute string `json:"attribute"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Attribute) == "" {
		writeError(w, http.StatusBadRequest, "attribute is required")
		return
	}
	v, err := s.ctrl.Select(req.Attribute)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// viewFor resolves the optional ?attribute= query: the expressed view when
// absent, a pure view otherwise.
func (s *Server) viewFor(r *http.Request) (view.View, error) {
	attr := r.URL.Query().Get("attribute")
	if attr == "" {
		return s.ctrl.Current(), nil
	}
	return s.ctrl.View(attr)
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewFor(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	data, err := view.EncodeGeoJSON(s.ctrl.Input().Features, v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewFor(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := view.RenderChartSVG(w, v.Chart); err != nil {
		zap.L().Error("server: render chart", zap.Error(err))
	}
}

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewFor(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	code := chi.URLParam(r, "code")
	reg, ok := v.Map.Region(code)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown region "+code)
		return
	}
	resp := map[string]any{
		"label": reg.Label,
		"text":  reg.Label.String(),
		"html":  reg.Label.HTML(),
	}
	if pos, ok := labelPosition(r); ok {
		resp["position"] = pos
	}
	writeJSON(w, http.StatusOK, resp)
}

// defaultLabelWidth is the tooltip width assumed when the client sends none.
const defaultLabelWidth = 150

// labelPosition places the tooltip when the request carries the pointer
// (x, y) and viewport width; width is optional.
func labelPosition(r *http.Request) (format.Point, bool) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	viewport, errV := strconv.ParseFloat(q.Get("viewport"), 64)
	if errX != nil || errY != nil || errV != nil {
		return format.Point{}, false
	}
	width := float64(defaultLabelWidth)
	if v, err := strconv.ParseFloat(q.Get("width"), 64); err == nil && v > 0 {
		width = v
	}
	return format.Position(format.Point{X: x, Y: y}, width, viewport), true
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.opts.Datasets == nil {
		writeError(w, http.StatusNotFound, "no dataset report available")
		return
	}
	ds := s.opts.Datasets.Current()
	if ds == nil {
		writeError(w, http.StatusNotFound, "no dataset report available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loaded_at": ds.LoadedAt,
		"rows":      len(ds.Rows),
		"features":  len(ds.Features),
		"report":    ds.Report,
	})
}
