package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edmap/internal/classify"
	"github.com/sells-group/edmap/internal/monitoring"
	"github.com/sells-group/edmap/internal/scheduler"
	"github.com/sells-group/edmap/internal/selection"
	"github.com/sells-group/edmap/internal/server"
	"github.com/sells-group/edmap/internal/view"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the choropleth API and live view stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		env, err := initEnv(ctx, "serve", false)
		if err != nil {
			return err
		}
		defer env.Close()

		metrics := monitoring.NewMetrics()
		alerter := monitoring.NewAlerter(cfg.Monitoring)

		ds, err := env.Loader.Load(ctx)
		metrics.ObserveLoad(err, reportOf(ds))
		if err != nil {
			alerter.Notify(ctx, monitoring.LoadStatus{Trigger: "startup", Err: err})
			return err
		}

		opts, err := newSelectionOptions(metrics)
		if err != nil {
			return err
		}
		ctrl, err := selection.New(ds.Input(), opts)
		if err != nil {
			return err
		}

		reloader := scheduler.NewReloader(env.Loader, ctrl, ds, scheduler.ReloaderOptions{
			Observer: metrics,
			Notifier: alerter,
		})
		sched, err := scheduler.New(cfg.Reload.Schedule, reloader)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()

		srv := server.New(ctrl, server.Options{
			CORSOrigins: cfg.Server.CORSOrigins,
			Client:      clientConfig(opts.Classify),
			Metrics:     metrics,
			Datasets:    reloader,
		})

		zap.L().Info("serving choropleth",
			zap.Int("port", cfg.Server.Port),
			zap.String("attribute", ctrl.Expressed()),
			zap.Int("regions", len(ds.Features)),
			zap.Bool("reload_enabled", sched.Enabled()),
		)
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		return srv.ListenAndServe(ctx, addr, time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
	},
}

// clientConfig assembles what the browser script needs from cfg.
func clientConfig(copts classify.Options) view.ClientConfig {
	return view.NewClientConfig(cfg.Client.Container, cfg.Client.LabelCoords, cfg.Chart, copts.Palette, copts.NoData)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
