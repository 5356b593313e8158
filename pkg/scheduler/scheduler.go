// Package scheduler runs named jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"BondPanel/pkg/logger"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler fires jobs on standard five-field cron specs in UTC. A job
// still running when its next tick arrives is skipped for that tick.
type Scheduler struct {
	cron   *cron.Cron
	log    *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.String("component", "scheduler"))
	cl := cronLogger{log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers job under spec, e.g. "0 6 2 * *" or "@daily".
func (s *Scheduler) AddJob(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	s.log.Info("job registered", logger.String("job", job.Name()), logger.String("schedule", spec))
	return nil
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	s.log.Info("job started", logger.String("job", job.Name()))
	if err := job.Run(s.ctx); err != nil {
		s.log.Error("job failed", logger.String("job", job.Name()), logger.Error(err))
		return
	}
	s.log.Info("job completed", logger.String("job", job.Name()), logger.Duration("took", time.Since(start)))
}

// RunNow executes job outside its schedule.
func (s *Scheduler) RunNow(job Job) {
	s.run(job)
}

// Entries reports the next fire time of every registered job.
func (s *Scheduler) Entries() []time.Time {
	var out []time.Time
	for _, e := range s.cron.Entries() {
		out = append(out, e.Next)
	}
	return out
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop halts scheduling, cancels running jobs and waits for them until ctx
// expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for scheduled jobs: %w", ctx.Err())
	}
}

// cronLogger adapts the cron library's key/value logger.
type cronLogger struct{ log *logger.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.log.Debug(msg, fields(kv)...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.log.Error(msg, append(fields(kv), logger.Error(err))...)
}

func fields(kv []interface{}) []logger.Field {
	out := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
