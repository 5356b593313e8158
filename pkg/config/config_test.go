package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", c.Backend.Type)
	assert.Equal(t, 5000, c.Backend.BatchSize)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "json", c.Kafka.Encoding)
	assert.Equal(t, "bondpanel.factors", c.Kafka.Topics.Factors)
	assert.Equal(t, 200*time.Millisecond, c.Kafka.Consumer.BackoffMin)
	assert.Equal(t, "strict-fallback", c.Pipeline.ReversalPolicy)
	assert.Equal(t, 36, c.Pipeline.VaR.Window)
	assert.Equal(t, 24, c.Pipeline.VaR.MinObs)
	assert.Equal(t, 5, c.Pipeline.Factors.Quantiles)
	assert.Equal(t, time.Date(2012, 2, 6, 0, 0, 0, 0, time.UTC), c.CutoverDate())
}

func TestParse_FileValuesWin(t *testing.T) {
	doc := `
backend:
  type: clickhouse
  batch_size: 100
pipeline:
  workers: 2
  ambiguity_policy: discard
  valuation:
    par_table:
      - par: 10
        frequencies: [1, 4, 12]
        multiplier: 10
`
	c, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "clickhouse", c.Backend.Type)
	assert.Equal(t, 100, c.Backend.BatchSize)
	assert.Equal(t, 2, c.Pipeline.Workers)
	assert.Equal(t, "discard", c.Pipeline.AmbiguityPolicy)
	require.Len(t, c.Pipeline.Valuation.ParTable, 1)
	assert.Equal(t, []int{1, 4, 12}, c.Pipeline.Valuation.ParTable[0].Frequencies)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("BONDPANEL_BACKEND", "clickhouse")
	t.Setenv("BONDPANEL_WORKERS", "3")
	t.Setenv("BONDPANEL_CLICKHOUSE_PASSWORD", "secret")

	c, err := Parse([]byte("backend:\n  type: sqlite\n"))
	require.NoError(t, err)

	assert.Equal(t, "clickhouse", c.Backend.Type)
	assert.Equal(t, 3, c.Pipeline.Workers)
	assert.Equal(t, "secret", c.ClickHouse.Password)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"backend":   "backend:\n  type: postgres\n",
		"policy":    "pipeline:\n  reversal_policy: newest\n",
		"cutover":   "pipeline:\n  cutover: 06/02/2012\n",
		"publish":   "backend:\n  publish: true\n",
		"var":       "pipeline:\n  var:\n    window: 12\n    min_obs: 24\n",
		"fred":      "fred:\n  enabled: true\n",
		"par":       "pipeline:\n  valuation:\n    par_table:\n      - par: 0\n        multiplier: 1\n",
		"malformed": "backend: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load("../../config/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Backend.Type)
	assert.Equal(t, "0 6 2 * *", cfg.Schedule.Spec)
	require.Len(t, cfg.Pipeline.Valuation.ParTable, 4)
	assert.Equal(t, []int{1, 4, 12}, cfg.Pipeline.Valuation.ParTable[3].Frequencies)
	assert.Equal(t, 10.0, cfg.Pipeline.Valuation.ParTable[3].Multiplier)
	assert.Equal(t, 24, cfg.Pipeline.VaR.MinObs)
}
