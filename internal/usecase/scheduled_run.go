package usecase

import (
	"context"
	"errors"
	"time"

	"BondPanel/pkg/logger"
)

// TrailingRunJob refreshes the most recent complete months on a schedule.
type TrailingRunJob struct {
	runs   *RunService
	months int
	now    func() time.Time
	log    *logger.Logger
}

func NewTrailingRunJob(runs *RunService, months int, log *logger.Logger) *TrailingRunJob {
	if log == nil {
		log = logger.Nop()
	}
	return &TrailingRunJob{runs: runs, months: max(months, 1), now: time.Now, log: log}
}

func (j *TrailingRunJob) Name() string { return "trailing_refresh" }

// Run executes synchronously; a window already running elsewhere is not an
// error.
func (j *TrailingRunJob) Run(ctx context.Context) error {
	req := TrailingWindow(j.now().UTC(), j.months)
	report, err := j.runs.RunSync(ctx, req)
	if errors.Is(err, ErrRunInProgress) {
		j.log.Info("scheduled run skipped, window locked",
			logger.Date("from", req.From), logger.Date("to", req.To))
		return nil
	}
	if err != nil {
		return err
	}
	j.log.Info("scheduled run finished",
		logger.String("run_id", report.ID),
		logger.Int("monthly_rows", report.MonthlyRows),
	)
	return nil
}
