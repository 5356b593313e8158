package repository

import (
	"context"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/sqlite"
)

func d(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func newSQLiteStorage(t *testing.T, batch int) *SQLStorage {
	t.Helper()
	c, err := sqlite.Open(context.Background(), sqlite.Memory, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	s := NewSQLStorage(c.DB(), SQLite, batch, nil)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestSQLStorage_MonthlyRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStorage(t, 10)

	rec := models.MonthlyBondRecord{
		MonthlyReturn: models.MonthlyReturn{
			Cusip:    "123456AB7",
			MonthEnd: d("2020-01-31"),
			ObsDate:  d("2020-01-30"),
			Source:   models.SourceEnd,
			Price:    101.25,
			Ret:      0.012,
			RetTotal: math.NaN(),
		},
		CreditSpread: 0.015,
		RiskFree:     math.NaN(),
		Rating:       8,
		Industry:     11,
		Liquidity:    models.MonthlyLiquidity{BPW: 0.002, Roll: math.NaN(), N: 14},
		CS12:         math.NaN(),
	}
	other := rec
	other.Cusip = "999999ZZ9"
	next := rec
	next.MonthEnd = d("2020-02-29")
	next.Price = 102

	require.NoError(t, s.StoreMonthly(ctx, []models.MonthlyBondRecord{rec, other, next}))

	got, err := s.QueryMonthly(ctx, "123456AB7", d("2020-01-01"), d("2020-12-31"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, d("2020-01-31"), first.MonthEnd)
	assert.Equal(t, d("2020-01-30"), first.ObsDate)
	assert.Equal(t, models.SourceEnd, first.Source)
	assert.Equal(t, 101.25, first.Price)
	assert.True(t, math.IsNaN(first.RetTotal))
	assert.True(t, math.IsNaN(first.RiskFree))
	assert.True(t, math.IsNaN(first.CS12))
	assert.True(t, math.IsNaN(first.Liquidity.Roll))
	assert.Equal(t, 0.002, first.Liquidity.BPW)
	assert.Equal(t, 14, first.Liquidity.N)
	assert.Equal(t, 8, first.Rating)
	assert.Equal(t, "123456AB7", first.Liquidity.Cusip)
	assert.Equal(t, first.MonthEnd, first.Liquidity.MonthEnd)
	assert.Equal(t, 102.0, got[1].Price)
}

func TestSQLStorage_UpsertReplacesByKey(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStorage(t, 0)

	f := models.FactorValue{Date: d("2021-03-31"), Name: models.FactorDRF, Value: 0.01}
	require.NoError(t, s.StoreFactors(ctx, []models.FactorValue{f}))
	f.Value = 0.02
	require.NoError(t, s.StoreFactors(ctx, []models.FactorValue{f}))

	got, err := s.QueryFactors(ctx, models.FactorDRF, time.Time{}, d("2021-12-31"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.02, got[0].Value)
}

func TestSQLStorage_QueryFactorsAllNames(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStorage(t, 2)

	rows := []models.FactorValue{
		{Date: d("2021-01-31"), Name: models.FactorREV, Value: math.NaN()},
		{Date: d("2021-01-31"), Name: models.FactorCRF, Value: 0.003},
		{Date: d("2021-02-28"), Name: models.FactorCRF, Value: -0.001},
		{Date: d("2021-05-31"), Name: models.FactorCRF, Value: 0.004},
	}
	require.NoError(t, s.StoreFactors(ctx, rows))

	got, err := s.QueryFactors(ctx, "", d("2021-01-01"), d("2021-03-31"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, models.FactorCRF, got[0].Name)
	assert.Equal(t, models.FactorREV, got[1].Name)
	assert.True(t, math.IsNaN(got[1].Value))
	assert.Equal(t, d("2021-02-28"), got[2].Date)
}

func TestSQLStorage_CleanTradesKeepClockAndEra(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStorage(t, 100)

	ev := models.CleanTradeEvent{
		Cusip:      "123456AB7",
		ExecDate:   d("2013-05-02"),
		ExecTime:   10*time.Hour + 15*time.Minute + 3*time.Second,
		ReportDate: d("2013-05-02"),
		ReportTime: models.NoTime,
		MsgSeq:     42,
		Price:      99.5,
		Volume:     250000,
		Side:       "S",
		Contra:     "D",
		Era:        models.PostCutover,
		Corrected:  true,
	}
	require.NoError(t, s.StoreCleanTrades(ctx, []models.CleanTradeEvent{ev}))

	got, err := s.trades.query(ctx, s.db, s.trades.selectFrom(s.dialect, "", "cusip"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev, got[0])
}

func TestSQLStorage_EmptyBatchIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSQLStorage(db, ClickHouse, 10, nil)
	require.NoError(t, s.StoreDaily(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_ClickHouseStatements(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	s := NewSQLStorage(db, ClickHouse, 10, nil)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO factor_values (date, name, value) VALUES (?, ?, ?), (?, ?, ?)")).
		WithArgs("2021-01-31", "DRF", 0.01, "2021-01-31", "REV", nil).
		WillReturnResult(sqlmock.NewResult(0, 2))

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT date, name, value FROM factor_values FINAL WHERE name = ? AND date >= ? AND date <= ? ORDER BY date, name")).
		WithArgs("REV", "1900-01-01", "2021-12-31").
		WillReturnRows(sqlmock.NewRows([]string{"date", "name", "value"}).
			AddRow(d("2021-01-31"), "REV", nil))

	require.NoError(t, s.StoreFactors(ctx, []models.FactorValue{
		{Date: d("2021-01-31"), Name: "DRF", Value: 0.01},
		{Date: d("2021-01-31"), Name: "REV", Value: math.NaN()},
	}))
	got, err := s.QueryFactors(ctx, "REV", time.Time{}, d("2021-12-31"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, d("2021-01-31"), got[0].Date)
	assert.True(t, math.IsNaN(got[0].Value))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableDDL(t *testing.T) {
	tbl := factorTable()

	ch := tbl.ddl(ClickHouse)
	assert.Contains(t, ch, "date Date32")
	assert.Contains(t, ch, "value Nullable(Float64)")
	assert.Contains(t, ch, "ENGINE = ReplacingMergeTree ORDER BY (name, date)")

	lite := tbl.ddl(SQLite)
	assert.Contains(t, lite, "value REAL")
	assert.Contains(t, lite, "PRIMARY KEY (name, date)")
}

func TestRowsPerStatement(t *testing.T) {
	assert.Equal(t, 10, factorTable().rowsPerStatement(ClickHouse, 10))
	assert.Equal(t, 2000, factorTable().rowsPerStatement(ClickHouse, 0))
	n := monthlyTable().rowsPerStatement(SQLite, 1_000_000)
	assert.LessOrEqual(t, n*len(monthlyTable().cols), sqliteMaxParams)
}

func TestParseDialect(t *testing.T) {
	dl, err := ParseDialect("SQLite")
	require.NoError(t, err)
	assert.Equal(t, SQLite, dl)
	_, err = ParseDialect("postgres")
	assert.Error(t, err)
}

func TestClockScan(t *testing.T) {
	var v time.Duration
	c := &clock{&v}
	require.NoError(t, c.Scan("09:30:05"))
	assert.Equal(t, 9*time.Hour+30*time.Minute+5*time.Second, v)
	require.NoError(t, c.Scan(nil))
	assert.Equal(t, models.NoTime, v)
	assert.Error(t, c.Scan("9h"))
}
