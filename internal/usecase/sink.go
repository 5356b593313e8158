package usecase

import (
	"context"
	"fmt"
	"time"

	"BondPanel/internal/domain/models"
	drepo "BondPanel/internal/domain/repository"
	"BondPanel/pkg/util"
)

// ResultSink persists stage outputs and optionally publishes them.
type ResultSink struct {
	store   drepo.Storage
	pub     drepo.Publisher
	metrics drepo.Metrics
	publish bool
	batchSz int
}

// NewResultSink creates a sink writing to store in batches of batchSz rows.
// A nil publisher disables publishing regardless of the flag.
func NewResultSink(store drepo.Storage, pub drepo.Publisher, metrics drepo.Metrics, publish bool, batchSz int) *ResultSink {
	if batchSz <= 0 {
		batchSz = 5000
	}
	return &ResultSink{store: store, pub: pub, metrics: metrics, publish: publish && pub != nil, batchSz: batchSz}
}

func (s *ResultSink) CleanTrades(ctx context.Context, events []models.CleanTradeEvent) error {
	return sinkBatches(ctx, s, "clean_trades", events, s.store.StoreCleanTrades, publishIf(s, s.pubCleanTrades))
}

func (s *ResultSink) Daily(ctx context.Context, obs []models.ValuedBondObservation) error {
	return sinkBatches(ctx, s, "daily", obs, s.store.StoreDaily, publishIf(s, s.pubDaily))
}

func (s *ResultSink) Monthly(ctx context.Context, rows []models.MonthlyBondRecord) error {
	return sinkBatches(ctx, s, "monthly", rows, s.store.StoreMonthly, nil)
}

func (s *ResultSink) Factors(ctx context.Context, factors []models.FactorValue) error {
	return sinkBatches(ctx, s, "factors", factors, s.store.StoreFactors, publishIf(s, s.pubFactors))
}

func (s *ResultSink) pubCleanTrades(ctx context.Context, e []models.CleanTradeEvent) error {
	return s.pub.PublishCleanTrades(ctx, e)
}

func (s *ResultSink) pubDaily(ctx context.Context, o []models.ValuedBondObservation) error {
	return s.pub.PublishDaily(ctx, o)
}

func (s *ResultSink) pubFactors(ctx context.Context, f []models.FactorValue) error {
	return s.pub.PublishFactors(ctx, f)
}

func publishIf[T any](s *ResultSink, fn func(context.Context, []T) error) func(context.Context, []T) error {
	if !s.publish {
		return nil
	}
	return fn
}

func sinkBatches[T any](ctx context.Context, s *ResultSink, table string, rows []T, store, publish func(context.Context, []T) error) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	for _, batch := range util.Chunk(rows, s.batchSz) {
		if err := store(ctx, batch); err != nil {
			s.metrics.RecordError("store_" + table)
			return fmt.Errorf("store %s: %w", table, err)
		}
		if publish == nil {
			continue
		}
		if err := publish(ctx, batch); err != nil {
			s.metrics.RecordError("publish_" + table)
			return fmt.Errorf("publish %s: %w", table, err)
		}
	}
	s.metrics.RecordLatency("sink_"+table, time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (s *ResultSink) Close() {
	if s.pub != nil {
		_ = s.pub.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}
