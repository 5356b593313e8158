package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"BondPanel/internal/domain/models"
	"BondPanel/internal/domain/repository"
	"BondPanel/pkg/logger"
	"BondPanel/pkg/util"
)

// Warehouse reads raw reference, trade, benchmark and credit tables. Every
// query waits on a shared rate limiter and cusip lists are split into
// IN-clauses of at most chunk entries.
type Warehouse struct {
	db      *sql.DB
	dialect Dialect
	limiter *rate.Limiter
	chunk   int
	log     *logger.Logger

	issues   table[models.BondIssue]
	trades   table[models.TradeMessage]
	curves   table[curvePoint]
	riskFree table[models.RiskFreeRate]
	ratings  table[models.RatingEvent]
	amounts  table[models.AmountAction]
}

var (
	_ repository.ReferenceSource = (*Warehouse)(nil)
	_ repository.TradeSource     = (*Warehouse)(nil)
	_ repository.BenchmarkSource = (*Warehouse)(nil)
	_ repository.CreditSource    = (*Warehouse)(nil)
)

type WarehouseOption func(*Warehouse)

// WithQueryRate limits warehouse queries to rps with the given burst. A
// non-positive rps removes the limit.
func WithQueryRate(rps float64, burst int) WarehouseOption {
	return func(w *Warehouse) {
		if rps <= 0 {
			w.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		w.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

func WithQueryChunk(n int) WarehouseOption {
	return func(w *Warehouse) {
		if n > 0 {
			w.chunk = n
		}
	}
}

func WithWarehouseLogger(l *logger.Logger) WarehouseOption {
	return func(w *Warehouse) { w.log = l }
}

func NewWarehouse(db *sql.DB, dialect Dialect, tables WarehouseTables, opts ...WarehouseOption) *Warehouse {
	w := &Warehouse{
		db:       db,
		dialect:  dialect,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		chunk:    500,
		log:      logger.Nop(),
		issues:   issueTable(tables.Issues),
		trades:   tradeTable(tables.Trades),
		curves:   curveTable(tables.Curves),
		riskFree: riskFreeTable(tables.RiskFree),
		ratings:  ratingTable(tables.Ratings),
		amounts:  amountTable(tables.Amounts),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// InitSchema creates the raw tables when missing. Production warehouses
// are loaded externally; local SQLite runs and tests use this.
func (w *Warehouse) InitSchema(ctx context.Context) error {
	for _, stmt := range []string{
		w.issues.ddl(w.dialect),
		w.trades.ddl(w.dialect),
		w.curves.ddl(w.dialect),
		w.riskFree.ddl(w.dialect),
		w.ratings.ddl(w.dialect),
		w.amounts.ddl(w.dialect),
	} {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init warehouse schema: %w", err)
		}
	}
	return nil
}

func (w *Warehouse) Issues(ctx context.Context) ([]models.BondIssue, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return w.issues.query(ctx, w.db, w.issues.selectFrom(w.dialect, "", "complete_cusip"))
}

func (w *Warehouse) IssuesByCusip(ctx context.Context, cusips []string) ([]models.BondIssue, error) {
	return chunked(ctx, w, cusips, func(part []string) ([]models.BondIssue, error) {
		q := w.issues.selectFrom(w.dialect, inClause("complete_cusip", len(part)), "complete_cusip")
		return w.issues.query(ctx, w.db, q, stringArgs(part)...)
	})
}

// Trades returns messages executed in [from, to] for the given bonds.
func (w *Warehouse) Trades(ctx context.Context, cusips []string, from, to time.Time) ([]models.TradeMessage, error) {
	return chunked(ctx, w, cusips, func(part []string) ([]models.TradeMessage, error) {
		where := inClause("cusip_id", len(part)) + " AND trd_exctn_dt >= ? AND trd_exctn_dt <= ?"
		q := w.trades.selectFrom(w.dialect, where, "cusip_id, trd_exctn_dt, msg_seq_nb")
		args := append(stringArgs(part), dateBound(from), dateBound(to))
		return w.trades.query(ctx, w.db, q, args...)
	})
}

// Curves groups stored tenors into one curve per month-end, tenors ascending.
func (w *Warehouse) Curves(ctx context.Context, from, to time.Time) ([]models.BenchmarkCurve, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	q := w.curves.selectFrom(w.dialect, "month_end >= ? AND month_end <= ?", "month_end, term")
	points, err := w.curves.query(ctx, w.db, q, dateBound(from), dateBound(to))
	if err != nil {
		return nil, err
	}

	var out []models.BenchmarkCurve
	for _, p := range points {
		if n := len(out); n == 0 || !out[n-1].MonthEnd.Equal(p.MonthEnd) {
			out = append(out, models.BenchmarkCurve{MonthEnd: p.MonthEnd})
		}
		out[len(out)-1].Points = append(out[len(out)-1].Points, p.BenchmarkPoint)
	}
	return out, nil
}

func (w *Warehouse) RiskFree(ctx context.Context, from, to time.Time) ([]models.RiskFreeRate, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	q := w.riskFree.selectFrom(w.dialect, "month_end >= ? AND month_end <= ?", "month_end")
	return w.riskFree.query(ctx, w.db, q, dateBound(from), dateBound(to))
}

func (w *Warehouse) Ratings(ctx context.Context, cusips []string) ([]models.RatingEvent, error) {
	return chunked(ctx, w, cusips, func(part []string) ([]models.RatingEvent, error) {
		q := w.ratings.selectFrom(w.dialect, inClause("complete_cusip", len(part)), "complete_cusip, rating_date")
		return w.ratings.query(ctx, w.db, q, stringArgs(part)...)
	})
}

func (w *Warehouse) AmountActions(ctx context.Context, cusips []string) ([]models.AmountAction, error) {
	return chunked(ctx, w, cusips, func(part []string) ([]models.AmountAction, error) {
		q := w.amounts.selectFrom(w.dialect, inClause("complete_cusip", len(part)), "complete_cusip, effective_date")
		return w.amounts.query(ctx, w.db, q, stringArgs(part)...)
	})
}

// LoadIssues and the loaders below seed the raw tables. They serve local
// SQLite warehouses and fixtures.
func (w *Warehouse) LoadIssues(ctx context.Context, rows []models.BondIssue) error {
	return w.issues.insert(ctx, w.db, w.dialect, rows, w.chunk)
}

func (w *Warehouse) LoadTrades(ctx context.Context, rows []models.TradeMessage) error {
	return w.trades.insert(ctx, w.db, w.dialect, rows, w.chunk)
}

func (w *Warehouse) LoadCurves(ctx context.Context, curves []models.BenchmarkCurve) error {
	var rows []curvePoint
	for _, c := range curves {
		for _, p := range c.Points {
			rows = append(rows, curvePoint{MonthEnd: c.MonthEnd, BenchmarkPoint: p})
		}
	}
	return w.curves.insert(ctx, w.db, w.dialect, rows, w.chunk)
}

func (w *Warehouse) LoadRiskFree(ctx context.Context, rows []models.RiskFreeRate) error {
	return w.riskFree.insert(ctx, w.db, w.dialect, rows, w.chunk)
}

func (w *Warehouse) LoadRatings(ctx context.Context, rows []models.RatingEvent) error {
	return w.ratings.insert(ctx, w.db, w.dialect, rows, w.chunk)
}

func (w *Warehouse) LoadAmountActions(ctx context.Context, rows []models.AmountAction) error {
	return w.amounts.insert(ctx, w.db, w.dialect, rows, w.chunk)
}

// chunked runs fetch over de-duplicated, sorted cusips split into chunks.
func chunked[T any](ctx context.Context, w *Warehouse, cusips []string, fetch func([]string) ([]T, error)) ([]T, error) {
	ids := uniqueSorted(cusips)
	var out []T
	for _, part := range util.Chunk(ids, w.chunk) {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		start := time.Now()
		rows, err := fetch(part)
		if err != nil {
			return nil, err
		}
		w.log.Debug("warehouse chunk",
			logger.Int("cusips", len(part)),
			logger.Int("rows", len(rows)),
			logger.Duration("took", time.Since(start)),
		)
		out = append(out, rows...)
	}
	return out, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
