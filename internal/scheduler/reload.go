// Package scheduler reloads the datasets on a cron schedule and swaps the
// result into the selection controller.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edmap/internal/dataset"
	"github.com/sells-group/edmap/internal/join"
	"github.com/sells-group/edmap/internal/monitoring"
	"github.com/sells-group/edmap/internal/view"
)

// Loader produces a fresh dataset.
type Loader interface {
	Load(ctx context.Context) (*dataset.Dataset, error)
}

// Target receives reloaded data. *selection.Controller satisfies it.
type Target interface {
	Replace(in view.Input) (view.View, error)
}

// LoadObserver records load outcomes. *monitoring.Metrics satisfies it.
type LoadObserver interface {
	ObserveLoad(err error, rep join.Report)
}

// Notifier alerts on load outcomes. *monitoring.Alerter satisfies it.
type Notifier interface {
	Notify(ctx context.Context, status monitoring.LoadStatus) int
}

// Reloader loads both datasets and replaces the controller's input. A
// failed reload leaves the previous dataset in place.
type Reloader struct {
	loader   Loader
	target   Target
	observer LoadObserver
	notifier Notifier
	timeout  time.Duration

	mu      sync.RWMutex
	current *dataset.Dataset
}

// ReloaderOptions wires optional collaborators.
type ReloaderOptions struct {
	Observer LoadObserver
	Notifier Notifier
	// Timeout bounds one reload. Zero means 5 minutes.
	Timeout time.Duration
}

// NewReloader creates a Reloader. initial is the dataset already being
// served, if any.
func NewReloader(loader Loader, target Target, initial *dataset.Dataset, opts ReloaderOptions) *Reloader {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	return &Reloader{
		loader:   loader,
		target:   target,
		observer: opts.Observer,
		notifier: opts.Notifier,
		timeout:  opts.Timeout,
		current:  initial,
	}
}

// Reload fetches fresh data and hands it to the target.
func (r *Reloader) Reload(ctx context.Context, trigger string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log := zap.L().With(zap.String("component", "scheduler.reload"), zap.String("trigger", trigger))
	start := time.Now()

	ds, err := r.loader.Load(ctx)
	if err == nil {
		_, err = r.target.Replace(ds.Input())
		err = eris.Wrap(err, "scheduler: apply reloaded dataset")
	}

	status := monitoring.LoadStatus{Trigger: trigger, Err: err}
	if err == nil {
		status.Report = ds.Report
	}
	if r.observer != nil {
		r.observer.ObserveLoad(err, status.Report)
	}
	if r.notifier != nil {
		r.notifier.Notify(ctx, status)
	}

	if err != nil {
		log.Error("scheduler: reload failed, keeping previous dataset", zap.Error(err))
		return err
	}

	r.mu.Lock()
	r.current = ds
	r.mu.Unlock()

	log.Info("scheduler: reload complete",
		zap.Int("rows", len(ds.Rows)),
		zap.Int("join_misses", ds.Report.Misses()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Current returns the dataset most recently applied, or nil.
func (r *Reloader) Current() *dataset.Dataset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}
