package anomaly

import (
	"wealthflow/src/stats"
)

const (
	ReasonInsufficientData = "insufficient data"

	// trailing samples compared against the rest of the pump/dump window
	recentVolumeSamples = 3
)

// VolumeAnomalyResult describes how the current volume compares with its history.
type VolumeAnomalyResult struct {
	Detected      bool    `json:"detected"`
	CurrentVolume float64 `json:"current_volume"`
	AverageVolume float64 `json:"average_volume"`
	Multiplier    float64 `json:"multiplier"`
	ZScore        float64 `json:"z_score"`
	Threshold     float64 `json:"threshold"`
	Reason        string  `json:"reason,omitempty"`
}

// PumpDumpResult describes the price/volume shape of the most recent window.
type PumpDumpResult struct {
	PumpDetected     bool    `json:"pump_detected"`
	DumpDetected     bool    `json:"dump_detected"`
	PriceChangeRatio float64 `json:"price_change"`
	VolumeSpikeRatio float64 `json:"volume_spike"`
	DumpFromHigh     float64 `json:"dump_from_high"`
	Reason           string  `json:"reason,omitempty"`
}

// Detected reports whether either pattern fired.
func (r PumpDumpResult) Detected() bool {
	return r.PumpDetected || r.DumpDetected
}

type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

func (d *Detector) Config() Config { return d.cfg }

// DetectVolumeAnomaly flags currentVolume when it is a large multiple of the historical
// mean or sits far above it in standard deviations. Short histories yield a sentinel result.
func (d *Detector) DetectVolumeAnomaly(currentVolume float64, historicalVolumes []float64) VolumeAnomalyResult {
	res := VolumeAnomalyResult{
		CurrentVolume: currentVolume,
		Threshold:     d.cfg.VolumeMultiplierThreshold,
	}
	if len(historicalVolumes) < d.cfg.MinVolumeHistory {
		res.Reason = ReasonInsufficientData
		return res
	}

	res.AverageVolume = stats.Mean(historicalVolumes)
	res.Multiplier = stats.Ratio(currentVolume, res.AverageVolume)

	z, err := stats.ZScore(currentVolume, historicalVolumes)
	if err != nil {
		res.Reason = ReasonInsufficientData
		return res
	}
	res.ZScore = z

	res.Detected = res.Multiplier > d.cfg.VolumeMultiplierThreshold || res.ZScore > d.cfg.ZScoreThreshold
	return res
}

// DetectPumpDump inspects the most recent window of closes and volumes.
//
// Pump: price rose more than PumpPriceChange over the window while the mean of the last
// three volumes is more than PumpVolumeSpike times the mean of the preceding ones.
// Dump: the last close sits more than DumpFromHigh below the window high.
func (d *Detector) DetectPumpDump(prices, volumes []float64) PumpDumpResult {
	window := d.cfg.PumpDumpWindow
	if len(prices) < window || len(volumes) < window {
		return PumpDumpResult{Reason: ReasonInsufficientData}
	}

	p := stats.Tail(prices, window)
	v := stats.Tail(volumes, window)

	first, last := p[0], p[len(p)-1]
	res := PumpDumpResult{
		PriceChangeRatio: stats.Ratio(last-first, first),
	}

	split := len(v) - recentVolumeSamples
	res.VolumeSpikeRatio = stats.Ratio(stats.Mean(v[split:]), stats.Mean(v[:split]))
	res.PumpDetected = res.PriceChangeRatio > d.cfg.PumpPriceChange && res.VolumeSpikeRatio > d.cfg.PumpVolumeSpike

	high := stats.Max(p)
	res.DumpFromHigh = stats.Ratio(high-last, high)
	res.DumpDetected = res.DumpFromHigh > d.cfg.DumpFromHigh

	return res
}
