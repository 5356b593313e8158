package usecase

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"BondPanel/internal/domain/models"
	drepo "BondPanel/internal/domain/repository"
	"BondPanel/pkg/logger"
	"BondPanel/pkg/util"
)

var ErrRunInProgress = errors.New("run already in progress for window")

// RunService starts pipeline runs, guards against concurrent runs of the
// same window and keeps the reports of runs started in this process.
type RunService struct {
	pipe    *Pipeline
	lock    drepo.Locker
	log     *logger.Logger
	lockTTL time.Duration

	mu   sync.RWMutex
	runs map[string]models.RunReport
	wg   sync.WaitGroup
}

// NewRunService creates a RunService. A nil locker disables locking.
func NewRunService(pipe *Pipeline, lock drepo.Locker, log *logger.Logger, lockTTL time.Duration) *RunService {
	if log == nil {
		log = logger.Nop()
	}
	if lockTTL <= 0 {
		lockTTL = 6 * time.Hour
	}
	return &RunService{pipe: pipe, lock: lock, log: log, lockTTL: lockTTL, runs: make(map[string]models.RunReport)}
}

func lockKey(req models.RunRequest) string {
	return fmt.Sprintf("bondpanel:run:%s:%s", req.From.Format(util.DateLayout), req.To.Format(util.DateLayout))
}

func (s *RunService) acquire(ctx context.Context, req models.RunRequest) error {
	if s.lock == nil {
		return nil
	}
	ok, err := s.lock.TryLock(ctx, lockKey(req), s.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return ErrRunInProgress
	}
	return nil
}

func (s *RunService) release(req models.RunRequest) {
	if s.lock == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.lock.Unlock(ctx, lockKey(req)); err != nil {
		s.log.Warn("release run lock", logger.Error(err))
	}
}

// save stores a copy that shares no maps or slices with r.
func (s *RunService) save(r *models.RunReport) models.RunReport {
	c := *r
	c.Dropped = maps.Clone(r.Dropped)
	c.Failures = slices.Clone(r.Failures)
	s.mu.Lock()
	s.runs[c.ID] = c
	s.mu.Unlock()
	return c
}

// Start launches a run in the background and returns its pending report.
// The run continues after ctx is done; it stops only when base is done.
func (s *RunService) Start(ctx, base context.Context, req models.RunRequest) (models.RunReport, error) {
	if err := s.acquire(ctx, req); err != nil {
		return models.RunReport{}, err
	}
	report := NewRunReport(req)
	pending := s.save(report)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(req)
		_ = s.pipe.Execute(base, report)
		s.save(report)
	}()
	return pending, nil
}

// RunSync runs the pipeline to completion in the caller's goroutine.
func (s *RunService) RunSync(ctx context.Context, req models.RunRequest) (models.RunReport, error) {
	if err := s.acquire(ctx, req); err != nil {
		return models.RunReport{}, err
	}
	defer s.release(req)

	report := NewRunReport(req)
	s.save(report)
	err := s.pipe.Execute(ctx, report)
	return s.save(report), err
}

// Get returns the latest known state of a run.
func (s *RunService) Get(id string) (models.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	return r, ok
}

// Wait blocks until background runs finish or ctx is done.
func (s *RunService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrailingWindow is the request covering the months complete at now,
// going back the given number of months.
func TrailingWindow(now time.Time, months int) models.RunRequest {
	to := util.PrevMonthEnd(now)
	from := util.MonthBegin(util.AddMonths(to, -(months - 1), false))
	return models.RunRequest{From: from, To: to}
}
