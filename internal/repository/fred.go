package repository

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"BondPanel/internal/domain/models"
	"BondPanel/internal/domain/repository"
	pkghttp "BondPanel/pkg/http"
	"BondPanel/pkg/util"
)

// FREDBenchmark serves the risk-free rate from a FRED series of annualised
// percent yields and delegates curves to another source. Each month takes
// its last reported value, converted to a decimal monthly rate.
type FREDBenchmark struct {
	curves  repository.BenchmarkSource
	client  *pkghttp.Client
	baseURL string
	apiKey  string
	series  string
}

var _ repository.BenchmarkSource = (*FREDBenchmark)(nil)

func NewFREDBenchmark(curves repository.BenchmarkSource, client *pkghttp.Client, baseURL, apiKey, series string) *FREDBenchmark {
	return &FREDBenchmark{
		curves:  curves,
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		series:  series,
	}
}

func (f *FREDBenchmark) Curves(ctx context.Context, from, to time.Time) ([]models.BenchmarkCurve, error) {
	return f.curves.Curves(ctx, from, to)
}

type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

func (f *FREDBenchmark) RiskFree(ctx context.Context, from, to time.Time) ([]models.RiskFreeRate, error) {
	q := url.Values{}
	q.Set("series_id", f.series)
	q.Set("api_key", f.apiKey)
	q.Set("file_type", "json")
	q.Set("observation_start", util.MonthBegin(from).Format(util.DateLayout))
	q.Set("observation_end", to.Format(util.DateLayout))

	var resp fredObservations
	err := f.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         f.baseURL + "/fred/series/observations",
		QueryParams: q,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fred %s: %w", f.series, err)
	}

	var out []models.RiskFreeRate
	for _, o := range resp.Observations {
		d, ok := util.ParseDate(o.Date)
		if !ok {
			continue
		}
		// "." marks a missing observation
		pct, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			continue
		}
		r := models.RiskFreeRate{MonthEnd: util.MonthEnd(d), Rate: pct / 100 / 12}
		if n := len(out); n > 0 && out[n-1].MonthEnd.Equal(r.MonthEnd) {
			out[n-1] = r
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
