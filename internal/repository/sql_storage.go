package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BondPanel/internal/domain/models"
	"BondPanel/internal/domain/repository"
	"BondPanel/pkg/logger"
)

// SQLStorage persists run outputs in ClickHouse or SQLite.
type SQLStorage struct {
	db      *sql.DB
	dialect Dialect
	batch   int
	log     *logger.Logger

	trades  table[models.CleanTradeEvent]
	daily   table[models.ValuedBondObservation]
	monthly table[models.MonthlyBondRecord]
	factors table[models.FactorValue]
}

var _ repository.Storage = (*SQLStorage)(nil)

// NewSQLStorage wraps db; batch is the maximum rows per INSERT statement.
// The pool is owned by the caller.
func NewSQLStorage(db *sql.DB, dialect Dialect, batch int, log *logger.Logger) *SQLStorage {
	if log == nil {
		log = logger.Nop()
	}
	return &SQLStorage{
		db:      db,
		dialect: dialect,
		batch:   batch,
		log:     log.With(logger.String("component", "sql_storage"), logger.String("dialect", dialect.String())),
		trades:  cleanTradeTable(),
		daily:   dailyTable(),
		monthly: monthlyTable(),
		factors: factorTable(),
	}
}

// Init creates the output tables when missing.
func (s *SQLStorage) Init(ctx context.Context) error {
	for _, stmt := range []string{
		s.trades.ddl(s.dialect),
		s.daily.ddl(s.dialect),
		s.monthly.ddl(s.dialect),
		s.factors.ddl(s.dialect),
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStorage) StoreCleanTrades(ctx context.Context, events []models.CleanTradeEvent) error {
	return s.store(ctx, TableCleanTrades, len(events), func() error {
		return s.trades.insert(ctx, s.db, s.dialect, events, s.batch)
	})
}

func (s *SQLStorage) StoreDaily(ctx context.Context, obs []models.ValuedBondObservation) error {
	return s.store(ctx, TableDaily, len(obs), func() error {
		return s.daily.insert(ctx, s.db, s.dialect, obs, s.batch)
	})
}

func (s *SQLStorage) StoreMonthly(ctx context.Context, rows []models.MonthlyBondRecord) error {
	return s.store(ctx, TableMonthly, len(rows), func() error {
		return s.monthly.insert(ctx, s.db, s.dialect, rows, s.batch)
	})
}

func (s *SQLStorage) StoreFactors(ctx context.Context, factors []models.FactorValue) error {
	return s.store(ctx, TableFactors, len(factors), func() error {
		return s.factors.insert(ctx, s.db, s.dialect, factors, s.batch)
	})
}

func (s *SQLStorage) store(ctx context.Context, tbl string, n int, fn func() error) error {
	if n == 0 {
		return nil
	}
	start := time.Now()
	if err := fn(); err != nil {
		s.log.Error("store failed", logger.String("table", tbl), logger.Int("rows", n), logger.Error(err))
		return err
	}
	s.log.Debug("stored", logger.String("table", tbl), logger.Int("rows", n), logger.Duration("took", time.Since(start)))
	return nil
}

// QueryMonthly returns one bond's panel rows with month-ends in [from, to].
func (s *SQLStorage) QueryMonthly(ctx context.Context, cusip string, from, to time.Time) ([]models.MonthlyBondRecord, error) {
	q := s.monthly.selectFrom(s.dialect, "cusip = ? AND month_end >= ? AND month_end <= ?", "month_end")
	rows, err := s.monthly.query(ctx, s.db, q, cusip, dateBound(from), dateBound(to))
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Liquidity.Cusip = rows[i].Cusip
		rows[i].Liquidity.MonthEnd = rows[i].MonthEnd
	}
	return rows, nil
}

// QueryFactors returns factor values dated in [from, to]. An empty name
// returns every factor.
func (s *SQLStorage) QueryFactors(ctx context.Context, name string, from, to time.Time) ([]models.FactorValue, error) {
	where := "date >= ? AND date <= ?"
	args := []any{dateBound(from), dateBound(to)}
	if name != "" {
		where = "name = ? AND " + where
		args = append([]any{name}, args...)
	}
	return s.factors.query(ctx, s.db, s.factors.selectFrom(s.dialect, where, "date, name"), args...)
}

func (s *SQLStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to the client that opened it.
func (s *SQLStorage) Close() error { return nil }

// dateBound renders a query bound; the zero time becomes the earliest
// representable date.
func dateBound(t time.Time) string {
	if t.IsZero() {
		return "1900-01-01"
	}
	return t.Format("2006-01-02")
}
