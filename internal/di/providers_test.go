package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BondPanel/internal/domain/models"
	"BondPanel/internal/usecase"
	"BondPanel/pkg/config"
	"BondPanel/pkg/util"
)

func testConfig(t *testing.T, doc string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	return cfg
}

func TestProvidePipelineConfig(t *testing.T) {
	cfg := testConfig(t, `
pipeline:
  workers: 3
  history_months: 12
  reversal_policy: price-volume
  ambiguity_policy: discard
  valuation:
    price_field: ew
    par_table:
      - {par: 10, frequencies: [12], multiplier: 10}
  monthly:
    base: dirty
  factors:
    weighting: ew
    return: duration_adj
`)
	p := ProvidePipelineConfig(cfg)

	assert.Equal(t, 3, p.Workers)
	assert.Equal(t, usecase.ReversalPriceVolume, p.Reconcile.ReversalPolicy)
	assert.Equal(t, usecase.AmbiguityDiscard, p.Reconcile.AmbiguityPolicy)
	assert.Equal(t, time.Date(2012, 2, 6, 0, 0, 0, 0, time.UTC), p.Reconcile.Cutover)
	assert.Equal(t, "ew", p.Valuation.PriceField)
	require.Len(t, p.Valuation.ParTable, 1)
	assert.Equal(t, []int{12}, p.Valuation.ParTable[0].Frequencies)
	assert.Equal(t, usecase.BaseDirty, p.Monthly.Base)
	assert.Equal(t, 36, p.Panel.VaR.Window)
	assert.Equal(t, usecase.WeightEqual, p.Factors.Weighting)
	assert.Equal(t, usecase.ReturnDurationAdj, p.Factors.Return)
	assert.Equal(t, 12*31*24*time.Hour, p.History)
}

func TestProvideKafka_DisabledYieldsNil(t *testing.T) {
	cfg := testConfig(t, "environment: test\n")

	producer, cleanup, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, producer)
	assert.Nil(t, ProvidePublisher(producer, cfg))

	consumer, err := ProvideKafkaConsumer(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, consumer)
}

func TestInitializeApp_SQLite(t *testing.T) {
	cfg := testConfig(t, "environment: test\n")
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "bondpanel.db")

	app, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, app)
	assert.NotNil(t, app.Runs)
	assert.NotNil(t, app.Storage)
	assert.Nil(t, app.Producer)
	assert.Nil(t, app.Consumer)

	report, err := app.RunOnce(context.Background(), models.RunRequest{
		From: util.Date(2021, time.January, 1),
		To:   util.Date(2021, time.March, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, models.RunSucceeded, report.Status)
	assert.Zero(t, report.Bonds)
}
