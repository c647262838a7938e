package alerts

import (
	"fmt"

	"wealthflow/src/anomaly"
	"wealthflow/src/sentiment"
)

const (
	KeyVolumeMultiplier = "volume_multiplier"
	KeyCurrentVolume    = "current_volume"
	KeyAverageVolume    = "average_volume"
	KeyZScore           = "z_score"
	KeyPumpDetected     = "pump_detected"
	KeyDumpDetected     = "dump_detected"
	KeyPriceChange      = "price_change"
	KeyVolumeSpike      = "volume_spike"
	KeyDumpFromHigh     = "dump_from_high"
	KeyPositiveSpike    = "positive_spike"
	KeyNegativeSpike    = "negative_spike"
	KeyPositiveRatio    = "positive_ratio"
	KeyNegativeRatio    = "negative_ratio"
	KeyTotalMentions    = "total_mentions"
	KeyPrice            = "current_price"
)

// Message renders the human readable text for an alert.
func Message(t Type, asset string, p Payload) string {
	switch t {
	case TypeVolumeAnomaly:
		return fmt.Sprintf("VOLUME ALERT: %s trading volume is %.1fx normal levels!", asset, p.number(KeyVolumeMultiplier))
	case TypePumpDump:
		if p.flag(KeyPumpDetected) {
			return fmt.Sprintf("PUMP ALERT: %s up %.1f%% with high volume!", asset, p.number(KeyPriceChange)*100)
		}
		if p.flag(KeyDumpDetected) {
			return fmt.Sprintf("DUMP ALERT: %s down %.1f%% from recent high!", asset, p.number(KeyDumpFromHigh)*100)
		}
	case TypeSentimentSpike:
		if p.flag(KeyPositiveSpike) {
			return fmt.Sprintf("SENTIMENT ALERT: %s has %.0f%% positive mentions!", asset, p.number(KeyPositiveRatio)*100)
		}
		if p.flag(KeyNegativeSpike) {
			return fmt.Sprintf("SENTIMENT ALERT: %s has %.0f%% negative mentions!", asset, p.number(KeyNegativeRatio)*100)
		}
	}
	return fmt.Sprintf("Alert for %s: %s", asset, t)
}

func (p Payload) flag(key string) bool {
	b, _ := p[key].(bool)
	return b
}

func (p Payload) number(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func VolumePayload(r anomaly.VolumeAnomalyResult) Payload {
	return Payload{
		KeyVolumeMultiplier: r.Multiplier,
		KeyCurrentVolume:    r.CurrentVolume,
		KeyAverageVolume:    r.AverageVolume,
		KeyZScore:           r.ZScore,
	}
}

func PumpDumpPayload(r anomaly.PumpDumpResult) Payload {
	return Payload{
		KeyPumpDetected: r.PumpDetected,
		KeyDumpDetected: r.DumpDetected,
		KeyPriceChange:  r.PriceChangeRatio,
		KeyVolumeSpike:  r.VolumeSpikeRatio,
		KeyDumpFromHigh: r.DumpFromHigh,
	}
}

func SentimentPayload(r sentiment.SpikeResult) Payload {
	return Payload{
		KeyPositiveSpike: r.PositiveSpike,
		KeyNegativeSpike: r.NegativeSpike,
		KeyPositiveRatio: r.PositiveRatio,
		KeyNegativeRatio: r.NegativeRatio,
		KeyTotalMentions: r.TotalHighConfidence,
	}
}
