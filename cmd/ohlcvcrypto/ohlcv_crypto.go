package ohlcvcrypto

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"wealthflow/src/model"
)

const (
	Duration1m = "1m"
	Duration1h = "1h"
)

// RangeSource fetches bars between two instants, oldest first.
type RangeSource interface {
	GetRange(ctx context.Context, symbol string, limit int, from, to time.Time) ([]model.MarketSample, error)
}

type SampleStore interface {
	UpsertSamples(ctx context.Context, samples []model.MarketSample) error
	LatestTimestamp(ctx context.Context, symbol string) (time.Time, bool, error)
}

// OHLCVCrypto backfills crypto bars into market_samples so the detectors have
// history from the first tick.
type OHLCVCrypto struct {
	Log    *logger.Entry
	Source RangeSource
	Store  SampleStore
	Config *Config
}

func (o *OHLCVCrypto) Start(ctx context.Context) error {
	if o.Config == nil {
		o.Config = GetConfig()
	}
	if o.Log == nil {
		o.Log = logger.WithField("cmd", "ohlcv_crypto")
	}

	for _, symbol := range o.Config.Symbols {
		from, to := o.Config.StartDt, o.Config.EndDt
		if o.Config.AutoMode {
			var err error
			if from, to, err = o.determineStartPoint(ctx, symbol); err != nil {
				return err
			}
		}
		if err := o.aggregateAndSave(ctx, symbol, from, to); err != nil {
			return err
		}
	}
	return nil
}

// aggregateAndSave pages through [from, to] in Limit-sized batches.
func (o *OHLCVCrypto) aggregateAndSave(ctx context.Context, symbol string, from, to time.Time) error {
	step := o.parseDuration()
	total := 0
	for from.Before(to) {
		series, err := o.Source.GetRange(ctx, symbol, o.Config.Limit, from, to)
		if err != nil {
			o.Log.WithError(err).WithField("symbol", symbol).Error("aggregateAndSave, GetRange")
			return err
		}
		if len(series) == 0 {
			break
		}

		if err := o.Store.UpsertSamples(ctx, series); err != nil {
			o.Log.WithError(err).WithField("symbol", symbol).Error("aggregateAndSave, UpsertSamples")
			return err
		}
		total += len(series)

		last := series[len(series)-1].Timestamp
		if len(series) < o.Config.Limit || !last.After(from) {
			break
		}
		from = last.Add(step)
	}

	o.Log.WithFields(logger.Fields{
		"Symbol":    symbol,
		"Count":     total,
		"Timestamp": time.Now().UTC(),
	}).Info("OHLCV data inserted or updated in database")
	return nil
}

// determineStartPoint resumes one interval before the newest stored bar, or
// from the configured StartDt when the symbol has no rows.
func (o *OHLCVCrypto) determineStartPoint(ctx context.Context, symbol string) (time.Time, time.Time, error) {
	start := o.Config.StartDt.Add(-o.parseDuration())
	end := time.Now().UTC()

	latest, ok, err := o.Store.LatestTimestamp(ctx, symbol)
	if err != nil {
		o.Log.WithError(err).Error("Failed to query latest timestamp")
		return time.Time{}, time.Time{}, fmt.Errorf("latest timestamp %s: %w", symbol, err)
	}
	if !ok {
		o.Log.
			WithField("StartDt", start.String()).
			WithField("EndDt", end.String()).
			Warn("no records found, start from the configured StartDt")
		return start, end, nil
	}

	start = latest.Add(-o.parseDuration())
	o.Log.
		WithField("StartDt", start.String()).
		WithField("EndDt", end.String()).
		Info("determineStartPoint valid date found")
	return start, end, nil
}

func (o *OHLCVCrypto) parseDuration() time.Duration {
	var duration time.Duration
	switch o.Config.DurationStr {
	case Duration1m:
		duration = time.Minute
	case Duration1h:
		duration = time.Hour
	default:
		panic("invalid DURATION env var")
	}
	return duration
}
