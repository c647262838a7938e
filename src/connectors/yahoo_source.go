package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"wealthflow/src/model"
)

const SourceYahoo = "yahoo"

type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// YahooSource reads stock bars from the Yahoo Finance chart endpoint.
type YahooSource struct {
	http     *resty.Client
	interval string
	rng      string
	limiter  *rate.Limiter
	log      *logrus.Entry
}

func NewYahooSource(cfg Config, limiter *rate.Limiter, log *logrus.Entry) *YahooSource {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &YahooSource{
		http:     newRestyClient(cfg.YahooBaseURL, cfg.HTTPTimeout, cfg.RetryCount).SetHeader("User-Agent", "Mozilla/5.0"),
		interval: cfg.YahooInterval,
		rng:      cfg.YahooRange,
		limiter:  limiter,
		log:      log.WithField("source", SourceYahoo),
	}
}

// GetSeries returns the last window bars, oldest first. Bars with missing
// close or volume are skipped.
func (y *YahooSource) GetSeries(ctx context.Context, symbol string, window int) ([]model.MarketSample, error) {
	if err := wait(ctx, y.limiter); err != nil {
		return nil, err
	}

	var out yahooChartResponse
	resp, err := y.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{"interval": y.interval, "range": y.rng}).
		SetResult(&out).
		SetError(&out).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if out.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s: %s", symbol, out.Chart.Error.Code, out.Chart.Error.Description)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, statusError(resp))
	}
	if len(out.Chart.Result) == 0 || len(out.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	res := out.Chart.Result[0]
	q := res.Indicators.Quote[0]
	samples := make([]model.MarketSample, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		c, v := at(q.Close, i), at(q.Volume, i)
		if c == nil || v == nil {
			continue
		}
		samples = append(samples, model.MarketSample{
			Symbol:    symbol,
			Kind:      model.AssetKindStock,
			Source:    SourceYahoo,
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      orClose(at(q.Open, i), *c),
			High:      orClose(at(q.High, i), *c),
			Low:       orClose(at(q.Low, i), *c),
			Close:     decimal.NewFromFloat(*c),
			Volume:    decimal.NewFromFloat(*v),
		})
	}
	model.SortSamples(samples)
	if window > 0 && len(samples) > window {
		samples = samples[len(samples)-window:]
	}

	y.log.WithFields(logrus.Fields{"symbol": symbol, "count": len(samples)}).Debug("fetched chart")
	return samples, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func orClose(v *float64, closePrice float64) decimal.Decimal {
	if v == nil {
		return decimal.NewFromFloat(closePrice)
	}
	return decimal.NewFromFloat(*v)
}
