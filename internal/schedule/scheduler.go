// Package schedule runs the periodic export and retention jobs.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/jmehdipour/judgment-gateway/internal/logger"
	"github.com/jmehdipour/judgment-gateway/internal/service/export"
)

const (
	JobExport    = "jgw_export"
	JobRetention = "jgw_retention"
)

type Exporter interface {
	Run(ctx context.Context, req export.Request) (export.Result, error)
}

type Sweeper interface {
	Sweep(ctx context.Context, minAgeDays int) (int64, error)
}

// Scheduler wraps a gocron scheduler. Jobs never overlap with themselves:
// a run still in progress when the next one is due causes that one to be
// skipped.
type Scheduler struct {
	s   gocron.Scheduler
	log *zap.Logger
}

func New(loc *time.Location, log *zap.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{s: s, log: logger.OrNop(log)}, nil
}

// AddExport schedules a full export of every pending site on crontab.
func (s *Scheduler) AddExport(crontab string, exp Exporter, testMode bool) (gocron.Job, error) {
	return s.add(JobExport, crontab, s.exportJob(exp, testMode))
}

// AddRetention schedules the retention sweep on crontab.
func (s *Scheduler) AddRetention(crontab string, sw Sweeper, minAgeDays int) (gocron.Job, error) {
	return s.add(JobRetention, crontab, retentionJob(sw, minAgeDays))
}

func (s *Scheduler) exportJob(exp Exporter, testMode bool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		res, err := exp.Run(ctx, export.Request{TestMode: testMode})
		if err == nil {
			s.log.Info("scheduled export done", zap.String("run", res.RunID), zap.Int("records", res.Exported()))
		}
		return err
	}
}

func retentionJob(sw Sweeper, minAgeDays int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := sw.Sweep(ctx, minAgeDays)
		return err
	}
}

func (s *Scheduler) add(name, crontab string, fn func(ctx context.Context) error) (gocron.Job, error) {
	job, err := s.s.NewJob(
		gocron.CronJob(crontab, false),
		gocron.NewTask(s.runner(name, fn)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job %s: %w", name, err)
	}

	s.log.Info("job scheduled", zap.String("job", name), zap.String("cron", crontab))
	return job, nil
}

func (s *Scheduler) runner(name string, fn func(ctx context.Context) error) func(ctx context.Context) {
	return func(ctx context.Context) {
		start := time.Now()
		s.log.Info("job started", zap.String("job", name))

		if err := fn(ctx); err != nil {
			s.log.Error("job failed", zap.String("job", name), zap.Duration("took", time.Since(start)), zap.Error(err))
			return
		}
		s.log.Info("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	}
}

func (s *Scheduler) Start() { s.s.Start() }

func (s *Scheduler) Jobs() []gocron.Job { return s.s.Jobs() }

// Shutdown stops scheduling and waits for running jobs to return.
func (s *Scheduler) Shutdown() error {
	if err := s.s.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	return nil
}
