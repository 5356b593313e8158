package models

import "time"

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRequest asks for a pipeline run over a trade-date window.
type RunRequest struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// BondFailure records a bond skipped because its partition failed.
type BondFailure struct {
	Cusip string `json:"cusip"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// RunReport summarises one pipeline run.
type RunReport struct {
	ID          string         `json:"id"`
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	Status      RunStatus      `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at,omitempty"`
	Bonds       int            `json:"bonds"`
	CleanTrades int            `json:"clean_trades"`
	DailyObs    int            `json:"daily_obs"`
	MonthlyRows int            `json:"monthly_rows"`
	Factors     int            `json:"factors"`
	Failures    []BondFailure  `json:"failures,omitempty"`
	Dropped     map[string]int `json:"dropped,omitempty"`
	Error       string         `json:"error,omitempty"`
}
