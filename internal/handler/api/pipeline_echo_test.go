package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BondPanel/internal/domain/models"
	"BondPanel/internal/repository"
	"BondPanel/internal/usecase"
	"BondPanel/pkg/cache"
	"BondPanel/pkg/calendar"
	xhttp "BondPanel/pkg/http"
	"BondPanel/pkg/metrics"
	"BondPanel/pkg/sqlite"
	"BondPanel/pkg/util"
)

type testEnv struct {
	srv   *xhttp.Server
	store *repository.SQLStorage
	runs  *usecase.RunService
	lock  *cache.MemoryCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	c, err := sqlite.Open(ctx, sqlite.Memory, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	store := repository.NewSQLStorage(c.DB(), repository.SQLite, 100, nil)
	require.NoError(t, store.Init(ctx))
	wh := repository.NewWarehouse(c.DB(), repository.SQLite, repository.DefaultWarehouseTables())
	require.NoError(t, wh.InitSchema(ctx))

	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	sink := usecase.NewResultSink(store, nil, rec, false, 100)
	pipe := usecase.NewPipeline(usecase.PipelineConfig{},
		usecase.Sources{Reference: wh, Trades: wh, Benchmark: wh, Credit: wh},
		sink, rec, nil, calendar.NYSE(), calendar.Federal())
	lock := cache.NewMemoryCache()
	t.Cleanup(func() { _ = lock.Close() })
	runs := usecase.NewRunService(pipe, lock, nil, time.Minute)

	h := NewPipelineEchoHandler(ctx, nil, runs, store)
	h.now = func() time.Time { return util.Date(2022, time.June, 30) }
	srv := xhttp.NewServer(nil, h, xhttp.WithMetrics("/metrics", reg))
	return &testEnv{srv: srv, store: store, runs: runs, lock: lock}
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.srv.Echo().ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestStartRunAndPoll(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/runs", `{"from":"2021-01-01","to":"2021-03-31"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var pending models.RunReport
	require.NoError(t, json.Unmarshal(body.Data, &pending))
	assert.Equal(t, models.RunPending, pending.Status)
	assert.Equal(t, "/api/runs/"+pending.ID, rec.Header().Get("Location"))

	require.NoError(t, env.runs.Wait(context.Background()))

	rec, body = env.do(t, http.MethodGet, "/api/runs/"+pending.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var done models.RunReport
	require.NoError(t, json.Unmarshal(body.Data, &done))
	assert.Equal(t, models.RunSucceeded, done.Status)
	assert.Equal(t, 0, done.Bonds)
}

func TestStartRunConflict(t *testing.T) {
	env := newTestEnv(t)
	ok, err := env.lock.TryLock(context.Background(), "bondpanel:run:2021-01-01:2021-03-31", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	rec, _ := env.do(t, http.MethodPost, "/api/runs", `{"from":"2021-01-01","to":"2021-03-31"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartRunRejectsBadWindow(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/api/runs", `{"from":"2021-01-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/runs", `{"from":"2021-04-01","to":"2021-03-31"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/runs", `{"from":"yesterday","to":"2021-03-31"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec, _ := env.do(t, http.MethodGet, "/api/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFactorsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.StoreFactors(context.Background(), []models.FactorValue{
		{Date: util.Date(2021, time.February, 28), Name: models.FactorDRF, Value: 0.004},
		{Date: util.Date(2021, time.March, 31), Name: models.FactorDRF, Value: math.NaN()},
		{Date: util.Date(2021, time.March, 31), Name: models.FactorCRF, Value: 0.001},
	}))

	rec, body := env.do(t, http.MethodGet, "/api/factors?name=DRF&from=2021-01-01&to=2021-12-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []map[string]any `json:"rows"`
		Total int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &list))
	assert.Equal(t, int64(2), list.Total)
	assert.Equal(t, "2021-02-28", list.Rows[0]["date"])
	assert.Nil(t, list.Rows[1]["value"])

	rec, body = env.do(t, http.MethodGet, "/api/factors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(body.Data, &list))
	assert.Equal(t, int64(3), list.Total)

	rec, _ = env.do(t, http.MethodGet, "/api/factors?from=2021-13-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBondMonthlyEndpoint(t *testing.T) {
	env := newTestEnv(t)
	row := models.MonthlyBondRecord{}
	row.Cusip = "AAA000001"
	row.MonthEnd = util.Date(2021, time.January, 31)
	row.Source = models.SourceEnd
	row.Price = 101
	row.Ret = math.NaN()
	row.Rating = 9
	require.NoError(t, env.store.StoreMonthly(context.Background(), []models.MonthlyBondRecord{row}))

	rec, body := env.do(t, http.MethodGet, "/api/bonds/aaa000001/monthly?from=2021-01-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows []MonthlyDTO `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &list))
	require.Len(t, list.Rows, 1)
	assert.Equal(t, "2021-01-31", list.Rows[0].MonthEnd)
	assert.Equal(t, xhttp.Float(101), list.Rows[0].Price)
	assert.Equal(t, 9, list.Rows[0].Rating)
	assert.Equal(t, "end", list.Rows[0].Source)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec, _ := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
