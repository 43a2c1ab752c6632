package devices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// AllSyncer is implemented by Synchronizer.
type AllSyncer interface {
	SyncAllActive(ctx context.Context) (SyncSummary, error)
}

// Scheduler runs SyncAllActive on a cron schedule. Overlapping runs are
// skipped. Stop cancels a run in flight.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	cancel context.CancelFunc
}

func NewScheduler(schedule string, syncer AllSyncer, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sync-scheduler")
	ctx, cancel := context.WithCancel(context.Background())

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
	)
	_, err := c.AddFunc(schedule, func() {
		start := time.Now()
		logger.Info("scheduled sync started")
		sum, err := syncer.SyncAllActive(ctx)
		if err != nil {
			logger.Error("scheduled sync aborted", "error", err)
			return
		}
		logger.Info("scheduled sync finished",
			"succeeded", sum.Succeeded, "failed", sum.Failed, "duration", time.Since(start).String())
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	return &Scheduler{cron: c, logger: logger, cancel: cancel}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("sync scheduler started", "next_run", s.cron.Entries()[0].Next)
}

// Stop cancels a running job and waits for it to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	s.cancel()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
