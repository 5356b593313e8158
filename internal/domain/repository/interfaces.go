package repository

import (
	"context"
	"time"

	"BondPanel/internal/domain/models"
)

// ReferenceSource returns static issue attributes.
type ReferenceSource interface {
	Issues(ctx context.Context) ([]models.BondIssue, error)
	IssuesByCusip(ctx context.Context, cusips []string) ([]models.BondIssue, error)
}

// TradeSource returns raw trade messages for a set of bonds and a date range.
type TradeSource interface {
	Trades(ctx context.Context, cusips []string, from, to time.Time) ([]models.TradeMessage, error)
}

// BenchmarkSource returns the risk-free term structure and the short rate.
type BenchmarkSource interface {
	Curves(ctx context.Context, from, to time.Time) ([]models.BenchmarkCurve, error)
	RiskFree(ctx context.Context, from, to time.Time) ([]models.RiskFreeRate, error)
}

// CreditSource returns rating histories and amount-outstanding actions.
type CreditSource interface {
	Ratings(ctx context.Context, cusips []string) ([]models.RatingEvent, error)
	AmountActions(ctx context.Context, cusips []string) ([]models.AmountAction, error)
}

// Storage persists every intermediate table of a run.
type Storage interface {
	Init(ctx context.Context) error
	StoreCleanTrades(ctx context.Context, events []models.CleanTradeEvent) error
	StoreDaily(ctx context.Context, obs []models.ValuedBondObservation) error
	StoreMonthly(ctx context.Context, rows []models.MonthlyBondRecord) error
	StoreFactors(ctx context.Context, factors []models.FactorValue) error
	QueryMonthly(ctx context.Context, cusip string, from, to time.Time) ([]models.MonthlyBondRecord, error)
	QueryFactors(ctx context.Context, name string, from, to time.Time) ([]models.FactorValue, error)
	Health(ctx context.Context) error
	Close() error
}

// Publisher streams pipeline outputs to downstream consumers.
type Publisher interface {
	PublishCleanTrades(ctx context.Context, events []models.CleanTradeEvent) error
	PublishDaily(ctx context.Context, obs []models.ValuedBondObservation) error
	PublishFactors(ctx context.Context, factors []models.FactorValue) error
	Close() error
}

type Metrics interface {
	RecordProcessed(stage string, n int)
	RecordDropped(stage, reason string, n int)
	RecordBondFailure(stage string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordRunCompleted(at time.Time)
}

// Locker guards a named critical section across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
