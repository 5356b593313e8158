package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/calendar"
	"BondPanel/pkg/util"
)

type fakeSources struct {
	issues []models.BondIssue
	trades []models.TradeMessage
	err    error
}

func (f *fakeSources) Issues(context.Context) ([]models.BondIssue, error) { return f.issues, f.err }

func (f *fakeSources) IssuesByCusip(_ context.Context, cusips []string) ([]models.BondIssue, error) {
	return f.issues, f.err
}

func (f *fakeSources) Trades(_ context.Context, cusips []string, from, to time.Time) ([]models.TradeMessage, error) {
	want := make(map[string]bool, len(cusips))
	for _, c := range cusips {
		want[c] = true
	}
	var out []models.TradeMessage
	for _, m := range f.trades {
		if want[m.Cusip] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeSources) Curves(context.Context, time.Time, time.Time) ([]models.BenchmarkCurve, error) {
	return nil, nil
}

func (f *fakeSources) RiskFree(context.Context, time.Time, time.Time) ([]models.RiskFreeRate, error) {
	return nil, nil
}

func (f *fakeSources) Ratings(context.Context, []string) ([]models.RatingEvent, error) {
	return nil, nil
}

func (f *fakeSources) AmountActions(context.Context, []string) ([]models.AmountAction, error) {
	return nil, nil
}

func (f *fakeSources) sources() Sources {
	return Sources{Reference: f, Trades: f, Benchmark: f, Credit: f}
}

type memStorage struct {
	mu      sync.Mutex
	clean   []models.CleanTradeEvent
	daily   []models.ValuedBondObservation
	monthly []models.MonthlyBondRecord
	factors []models.FactorValue
}

func (m *memStorage) Init(context.Context) error { return nil }

func (m *memStorage) StoreCleanTrades(_ context.Context, e []models.CleanTradeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clean = append(m.clean, e...)
	return nil
}

func (m *memStorage) StoreDaily(_ context.Context, o []models.ValuedBondObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.daily = append(m.daily, o...)
	return nil
}

func (m *memStorage) StoreMonthly(_ context.Context, r []models.MonthlyBondRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monthly = append(m.monthly, r...)
	return nil
}

func (m *memStorage) StoreFactors(_ context.Context, f []models.FactorValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factors = append(m.factors, f...)
	return nil
}

func (m *memStorage) QueryMonthly(context.Context, string, time.Time, time.Time) ([]models.MonthlyBondRecord, error) {
	return nil, nil
}

func (m *memStorage) QueryFactors(context.Context, string, time.Time, time.Time) ([]models.FactorValue, error) {
	return nil, nil
}

func (m *memStorage) Health(context.Context) error { return nil }
func (m *memStorage) Close() error                 { return nil }

type countingPublisher struct {
	mu     sync.Mutex
	trades int
	daily  int
}

func (p *countingPublisher) PublishCleanTrades(_ context.Context, e []models.CleanTradeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trades += len(e)
	return nil
}

func (p *countingPublisher) PublishDaily(_ context.Context, o []models.ValuedBondObservation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.daily += len(o)
	return nil
}

func (p *countingPublisher) PublishFactors(context.Context, []models.FactorValue) error { return nil }
func (p *countingPublisher) Close() error                                               { return nil }

type nopMetrics struct {
	mu       sync.Mutex
	failures map[string]int
}

func (n *nopMetrics) RecordProcessed(string, int)       {}
func (n *nopMetrics) RecordDropped(string, string, int) {}
func (n *nopMetrics) RecordError(string)                {}
func (n *nopMetrics) RecordLatency(string, float64)     {}
func (n *nopMetrics) RecordRunCompleted(time.Time)      {}
func (n *nopMetrics) RecordBondFailure(stage string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failures == nil {
		n.failures = map[string]int{}
	}
	n.failures[stage]++
}

func pipelineIssue(cusip string) models.BondIssue {
	b := eligibleIssue(cusip)
	b.Maturity = util.Date(2030, time.January, 15)
	b.DayCountBasis = "30/360"
	b.ParValue = 1000
	b.OfferingAmount = 500000
	return b
}

// dailyTrades puts one trade on every exchange business day of Q1 2021.
func dailyTrades(cusip string) []models.TradeMessage {
	cal := calendar.NYSE()
	var out []models.TradeMessage
	day := util.Date(2021, time.January, 4)
	for i := 0; day.Before(util.Date(2021, time.April, 1)); i++ {
		m := msg(day, "T", int64(1000+i), 0, 100+math.Sin(float64(i))/2, 50000, 10*time.Hour)
		m.Cusip = cusip
		out = append(out, m)
		day = cal.AddBusinessDays(day, 1)
	}
	return out
}

func newTestPipeline(src *fakeSources, store *memStorage, pub *countingPublisher, metrics *nopMetrics) *Pipeline {
	var sink *ResultSink
	if pub != nil {
		sink = NewResultSink(store, pub, metrics, true, 7)
	} else {
		sink = NewResultSink(store, nil, metrics, false, 7)
	}
	return NewPipeline(PipelineConfig{Workers: 2, ChunkSize: 1}, src.sources(), sink, metrics, nil, calendar.NYSE(), calendar.Federal())
}

func TestPipelineRunEndToEnd(t *testing.T) {
	good, broken := "AAA000001", "BBB000002"
	brokenMsgs := dailyTrades(broken)[:3]
	for i := range brokenMsgs {
		brokenMsgs[i].Status = ""
	}
	ineligible := pipelineIssue("CCC000003")
	ineligible.Convertible = "Y"
	src := &fakeSources{
		issues: []models.BondIssue{pipelineIssue(good), pipelineIssue(broken), ineligible},
		trades: append(dailyTrades(good), brokenMsgs...),
	}
	store, pub, metrics := &memStorage{}, &countingPublisher{}, &nopMetrics{}

	report, err := newTestPipeline(src, store, pub, metrics).Run(context.Background(), models.RunRequest{
		From: util.Date(2021, time.January, 1), To: util.Date(2021, time.March, 31),
	})
	require.NoError(t, err)

	assert.Equal(t, models.RunSucceeded, report.Status)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 2, report.Bonds)
	assert.Equal(t, 1, report.Dropped[StageReference+"/"+DropConvertible])

	require.Len(t, report.Failures, 1)
	assert.Equal(t, broken, report.Failures[0].Cusip)
	assert.Equal(t, StageReconcile, report.Failures[0].Stage)
	assert.Equal(t, 1, metrics.failures[StageReconcile])

	n := len(dailyTrades(good))
	assert.Equal(t, n, report.CleanTrades)
	assert.Equal(t, n, report.DailyObs)
	assert.Len(t, store.clean, n)
	assert.Len(t, store.daily, n)
	assert.Equal(t, n, pub.trades)
	assert.Equal(t, n, pub.daily)
	for _, o := range store.daily {
		assert.True(t, o.Valid, "valuation on %s", o.Date.Format(util.DateLayout))
	}

	assert.GreaterOrEqual(t, report.MonthlyRows, 3)
	assert.Len(t, store.monthly, report.MonthlyRows)
	for _, r := range store.monthly {
		assert.Equal(t, good, r.Cusip)
		assert.Equal(t, 12, r.Industry)
		assert.Equal(t, 500000.0, r.AmountOutstanding)
	}
	assert.Empty(t, store.factors, "a single unrated bond forms no factor portfolios")
}

func TestPipelineSourceErrorFailsRun(t *testing.T) {
	src := &fakeSources{err: errors.New("warehouse down")}
	report, err := newTestPipeline(src, &memStorage{}, nil, &nopMetrics{}).Run(context.Background(), models.RunRequest{
		From: util.Date(2021, time.January, 1), To: util.Date(2021, time.March, 31),
	})
	require.Error(t, err)
	assert.Equal(t, models.RunFailed, report.Status)
	assert.Contains(t, report.Error, "warehouse down")
}

func TestPipelineRejectsInvertedWindow(t *testing.T) {
	_, err := newTestPipeline(&fakeSources{}, &memStorage{}, nil, &nopMetrics{}).Run(context.Background(), models.RunRequest{
		From: util.Date(2021, time.March, 1), To: util.Date(2021, time.January, 1),
	})
	require.Error(t, err)
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

func TestRunServiceLocksWindow(t *testing.T) {
	src := &fakeSources{issues: []models.BondIssue{pipelineIssue("AAA000001")}, trades: dailyTrades("AAA000001")}
	lock := &fakeLocker{}
	svc := NewRunService(newTestPipeline(src, &memStorage{}, nil, &nopMetrics{}), lock, nil, time.Minute)
	req := models.RunRequest{From: util.Date(2021, time.January, 1), To: util.Date(2021, time.March, 31)}

	lock.held = map[string]bool{lockKey(req): true}
	_, err := svc.RunSync(context.Background(), req)
	assert.ErrorIs(t, err, ErrRunInProgress)

	lock.held = nil
	pending, err := svc.Start(context.Background(), context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.RunPending, pending.Status)

	require.NoError(t, svc.Wait(context.Background()))
	done, ok := svc.Get(pending.ID)
	require.True(t, ok)
	assert.Equal(t, models.RunSucceeded, done.Status)
	assert.Equal(t, 1, done.Bonds)
	assert.Empty(t, lock.held)
}

func TestParseRunRequest(t *testing.T) {
	req, err := ParseRunRequest([]byte(`{"from":"2021-01-01","to":"20210331"}`))
	require.NoError(t, err)
	assert.Equal(t, util.Date(2021, time.January, 1), req.From)
	assert.Equal(t, util.Date(2021, time.March, 31), req.To)

	_, err = ParseRunRequest([]byte(`{"from":"2021-04-01","to":"2021-03-31"}`))
	assert.Error(t, err)
	_, err = ParseRunRequest([]byte(`{"from":"soon"}`))
	assert.Error(t, err)
	_, err = ParseRunRequest([]byte(`not json`))
	assert.Error(t, err)
}

func TestTrailingWindow(t *testing.T) {
	req := TrailingWindow(util.Date(2021, time.April, 15), 3)
	assert.Equal(t, util.Date(2021, time.January, 1), req.From)
	assert.Equal(t, util.Date(2021, time.March, 31), req.To)
}
