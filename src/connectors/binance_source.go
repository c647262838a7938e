package connectors

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"wealthflow/src/model"
)

const SourceBinance = "binance"

// coin ids as monitored, mapped to exchange base symbols
var cryptoSymbols = map[string]string{
	"bitcoin":  "BTC",
	"ethereum": "ETH",
	"dogecoin": "DOGE",
	"cardano":  "ADA",
	"solana":   "SOL",
	"ripple":   "XRP",
	"litecoin": "LTC",
	"polkadot": "DOT",
}

// KlineAPI is the part of goex.API the crypto source needs.
type KlineAPI interface {
	GetKlineRecords(currency goex.CurrencyPair, period goex.KlinePeriod, size int, optional ...goex.OptionalParameter) ([]goex.Kline, error)
}

// BinanceSource reads hourly klines for crypto assets through goex.
type BinanceSource struct {
	exchange KlineAPI
	quote    string
	period   goex.KlinePeriod
	limiter  *rate.Limiter
	log      *logrus.Entry
}

func NewBinanceSource(cfg Config, limiter *rate.Limiter, log *logrus.Entry) *BinanceSource {
	apiConfig := &goex.APIConfig{
		HttpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Endpoint:   cfg.BinanceEndpoint,
	}
	return NewBinanceSourceWithAPI(binance.NewWithConfig(apiConfig), cfg, limiter, log)
}

func NewBinanceSourceWithAPI(api KlineAPI, cfg Config, limiter *rate.Limiter, log *logrus.Entry) *BinanceSource {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	quote := cfg.CryptoQuote
	if quote == "" {
		quote = "USDT"
	}
	return &BinanceSource{
		exchange: api,
		quote:    quote,
		period:   KlinePeriod(cfg.KlinePeriod),
		limiter:  limiter,
		log:      log.WithField("source", SourceBinance),
	}
}

// KlinePeriod maps a duration string to the goex period, defaulting to 1h.
func KlinePeriod(s string) goex.KlinePeriod {
	switch s {
	case "1m":
		return goex.KLINE_PERIOD_1MIN
	case "5m":
		return goex.KLINE_PERIOD_5MIN
	case "15m":
		return goex.KLINE_PERIOD_15MIN
	case "4h":
		return goex.KLINE_PERIOD_4H
	case "1d":
		return goex.KLINE_PERIOD_1DAY
	default:
		return goex.KLINE_PERIOD_1H
	}
}

// CurrencyPair resolves a monitored coin id, or a bare ticker, to an exchange pair.
func CurrencyPair(asset, quote string) goex.CurrencyPair {
	base, ok := cryptoSymbols[strings.ToLower(asset)]
	if !ok {
		base = strings.ToUpper(asset)
	}
	return goex.NewCurrencyPair(goex.Currency{Symbol: base}, goex.Currency{Symbol: quote})
}

// GetSeries returns up to window klines, oldest first.
func (b *BinanceSource) GetSeries(ctx context.Context, symbol string, window int) ([]model.MarketSample, error) {
	return b.GetRange(ctx, symbol, window, time.Time{}, time.Time{})
}

// GetRange fetches klines between from and to; zero times leave the bound open.
func (b *BinanceSource) GetRange(ctx context.Context, symbol string, limit int, from, to time.Time) ([]model.MarketSample, error) {
	if err := wait(ctx, b.limiter); err != nil {
		return nil, err
	}

	pair := CurrencyPair(symbol, b.quote)
	opt := goex.OptionalParameter{}
	const millis = 1000
	if !from.IsZero() {
		opt = opt.Optional("startTime", from.Unix()*millis)
	}
	if !to.IsZero() {
		opt = opt.Optional("endTime", to.Unix()*millis)
	}

	type result struct {
		klines []goex.Kline
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		k, err := b.exchange.GetKlineRecords(pair, b.period, limit, opt)
		ch <- result{k, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("klines %s: %w", pair, ctx.Err())
	case res = <-ch:
	}
	if res.err != nil {
		return nil, fmt.Errorf("klines %s: %w", pair, res.err)
	}

	samples := make([]model.MarketSample, 0, len(res.klines))
	for _, k := range res.klines {
		samples = append(samples, model.MarketSample{
			Symbol:    symbol,
			Kind:      model.AssetKindCrypto,
			Source:    SourceBinance,
			Timestamp: time.Unix(k.Timestamp, 0).UTC(),
			Open:      decimal.NewFromFloat(k.Open),
			High:      decimal.NewFromFloat(k.High),
			Low:       decimal.NewFromFloat(k.Low),
			Close:     decimal.NewFromFloat(k.Close),
			Volume:    decimal.NewFromFloat(k.Vol),
		})
	}
	model.SortSamples(samples)

	b.log.WithFields(logrus.Fields{"symbol": symbol, "pair": pair.String(), "count": len(samples)}).Debug("fetched klines")
	return samples, nil
}
