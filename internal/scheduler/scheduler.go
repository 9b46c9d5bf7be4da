package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Scheduler runs the reloader on a cron schedule. Overlapping runs are
// skipped rather than queued.
type Scheduler struct {
	cron     *cron.Cron
	reloader *Reloader
	schedule string
	entry    cron.EntryID
}

// New parses schedule (standard five-field cron or a descriptor such as
// "@hourly"). An empty schedule yields a disabled scheduler whose Start and
// Stop are no-ops.
func New(schedule string, reloader *Reloader) (*Scheduler, error) {
	s := &Scheduler{reloader: reloader, schedule: schedule}
	if schedule == "" {
		return s, nil
	}

	logger := cronLogger{log: zap.L().With(zap.String("component", "scheduler"))}
	s.cron = cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))
	id, err := s.cron.AddFunc(schedule, func() {
		_ = reloader.Reload(context.Background(), "schedule")
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scheduler: parse schedule %q", schedule)
	}
	s.entry = id
	return s, nil
}

// Enabled reports whether a schedule is configured.
func (s *Scheduler) Enabled() bool { return s.cron != nil }

// Start begins running scheduled reloads in the background.
func (s *Scheduler) Start() {
	if s.cron == nil {
		return
	}
	zap.L().Info("scheduler: starting reloads",
		zap.String("schedule", s.schedule),
		zap.Time("next", s.cron.Entry(s.entry).Schedule.Next(time.Now())),
	)
	s.cron.Start()
}

// Stop halts the schedule and waits for a running reload to finish or ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		zap.L().Info("scheduler: stopped")
	case <-ctx.Done():
		zap.L().Warn("scheduler: stop timed out with a reload in flight")
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("scheduler: "+msg, zap.Any("kv", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("scheduler: "+msg, zap.Error(err), zap.Any("kv", keysAndValues))
}
