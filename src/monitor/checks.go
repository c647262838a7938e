package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"wealthflow/src/alerts"
	"wealthflow/src/execution"
	"wealthflow/src/model"
	"wealthflow/src/sentiment"
)

// StrategyPumpDumpExit tags signals raised by the auto-trading hook.
const StrategyPumpDumpExit = "pump_dump_exit"

// checkMarket fetches the series for one symbol, stores it and runs the volume
// and pump/dump detectors on it.
func (s *Scheduler) checkMarket(ctx context.Context, kind model.AssetKind, src MarketDataSource, symbol string) error {
	if src == nil {
		return fmt.Errorf("no market data source for %s", kind)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	samples, err := src.GetSeries(callCtx, symbol, s.cfg.SeriesWindow)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch series %s: %w", symbol, err)
	}
	if len(samples) == 0 {
		s.logger.WithField("symbol", symbol).Debug("no samples this tick")
		return nil
	}

	if s.deps.Samples != nil {
		if err := s.deps.Samples.UpsertSamples(ctx, samples); err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("failed to store samples")
		}
	}

	closes := model.Closes(samples)
	volumes := model.Volumes(samples)
	last := len(volumes) - 1
	lastClose := closes[last]

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordLastPrice(symbol, lastClose)
	}

	volume := s.deps.Detector.DetectVolumeAnomaly(volumes[last], volumes[:last])
	if volume.Detected {
		payload := alerts.VolumePayload(volume)
		payload[alerts.KeyPrice] = lastClose
		if _, err := s.deps.Alerts.Generate(alerts.TypeVolumeAnomaly, symbol, payload, alerts.UrgencyHigh); err != nil {
			return fmt.Errorf("volume alert %s: %w", symbol, err)
		}
	}

	pd := s.deps.Detector.DetectPumpDump(closes, volumes)
	if pd.Detected() {
		urgency := alerts.UrgencyMedium
		if pd.PumpDetected {
			urgency = alerts.UrgencyHigh
		}
		payload := alerts.PumpDumpPayload(pd)
		payload[alerts.KeyPrice] = lastClose
		if _, err := s.deps.Alerts.Generate(alerts.TypePumpDump, symbol, payload, urgency); err != nil {
			return fmt.Errorf("pump/dump alert %s: %w", symbol, err)
		}
	}

	return s.trade(ctx, symbol, lastClose, pd.PumpDetected)
}

// trade marks any held position at the latest close and, with auto-trading on,
// exits a long position into a detected pump.
func (s *Scheduler) trade(ctx context.Context, symbol string, lastClose float64, pump bool) error {
	if s.deps.Trader == nil {
		return nil
	}
	pos, held := s.deps.Trader.Position(symbol)
	if !held {
		return nil
	}

	if _, err := s.deps.Trader.MarkPrice(ctx, symbol, lastClose); err != nil {
		return fmt.Errorf("mark %s: %w", symbol, err)
	}

	if !s.cfg.AutoTrade || !pump || pos.Side != model.PositionSideLong {
		return nil
	}
	// a resting order may have closed it during MarkPrice
	pos, held = s.deps.Trader.Position(symbol)
	if !held {
		return nil
	}

	price := lastClose
	res, err := s.deps.Trader.ExecuteSignal(ctx, execution.Signal{
		Symbol:    symbol,
		Action:    model.OrderSideSell,
		Quantity:  pos.Quantity,
		Price:     &price,
		OrderType: model.OrderTypeMarket,
		Strategy:  StrategyPumpDumpExit,
	})
	if err != nil {
		return fmt.Errorf("auto-trade %s: %w", symbol, err)
	}

	entry := s.logger.WithFields(logrus.Fields{
		"symbol":   symbol,
		"quantity": pos.Quantity,
		"price":    price,
		"order_id": res.OrderID,
	})
	if res.Success {
		entry.Info("exited position into pump")
	} else {
		entry.WithField("reason", res.Reason).Warn("pump exit rejected")
	}
	return nil
}

// checkSentiment classifies recent mentions of asset and raises an alert on a spike.
func (s *Scheduler) checkSentiment(ctx context.Context, asset string) error {
	if s.deps.Mentions == nil || s.deps.Classifier == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	mentions, err := s.deps.Mentions.Mentions(callCtx, asset)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch mentions %s: %w", asset, err)
	}
	if len(mentions) == 0 {
		return nil
	}

	records := make([]sentiment.Record, 0, len(mentions))
	var classifyErr error
	for _, text := range mentions {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		rec, err := s.deps.Classifier.Classify(callCtx, text, asset)
		cancel()
		if err != nil {
			classifyErr = errors.Join(classifyErr, err)
			continue
		}
		records = append(records, rec)
	}
	if classifyErr != nil {
		s.logger.WithError(classifyErr).WithField("asset", asset).Warn("some mentions could not be classified")
	}

	spike := s.deps.Aggregator.DetectSpike(records)
	if !spike.Detected {
		return nil
	}
	urgency := alerts.UrgencyMedium
	if spike.PositiveSpike {
		urgency = alerts.UrgencyHigh
	}
	if _, err := s.deps.Alerts.Generate(alerts.TypeSentimentSpike, asset, alerts.SentimentPayload(spike), urgency); err != nil {
		return fmt.Errorf("sentiment alert %s: %w", asset, err)
	}
	return nil
}
