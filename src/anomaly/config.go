package anomaly

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	VolumeMultiplierThreshold float64 `envconfig:"ANOMALY_VOLUME_MULTIPLIER" default:"3.0"`
	ZScoreThreshold           float64 `envconfig:"ANOMALY_ZSCORE" default:"2.5"`
	MinVolumeHistory          int     `envconfig:"ANOMALY_MIN_VOLUME_HISTORY" default:"5"`
	PumpDumpWindow            int     `envconfig:"ANOMALY_PUMP_DUMP_WINDOW" default:"10"`
	PumpPriceChange           float64 `envconfig:"ANOMALY_PUMP_PRICE_CHANGE" default:"0.15"`
	PumpVolumeSpike           float64 `envconfig:"ANOMALY_PUMP_VOLUME_SPIKE" default:"2.0"`
	DumpFromHigh              float64 `envconfig:"ANOMALY_DUMP_FROM_HIGH" default:"0.10"`
}

// DefaultConfig mirrors the envconfig defaults, for callers that do not read the environment.
func DefaultConfig() Config {
	return Config{
		VolumeMultiplierThreshold: 3.0,
		ZScoreThreshold:           2.5,
		MinVolumeHistory:          5,
		PumpDumpWindow:            10,
		PumpPriceChange:           0.15,
		PumpVolumeSpike:           2.0,
		DumpFromHigh:              0.10,
	}
}

// Validate rejects windows the detector cannot split: the pump/dump window
// must leave at least one sample before the recent volume samples, and a
// z-score needs two historical volumes.
func (c Config) Validate() error {
	if c.PumpDumpWindow <= recentVolumeSamples {
		return fmt.Errorf("ANOMALY_PUMP_DUMP_WINDOW must be greater than %d, got %d", recentVolumeSamples, c.PumpDumpWindow)
	}
	if c.MinVolumeHistory < 2 {
		return fmt.Errorf("ANOMALY_MIN_VOLUME_HISTORY must be at least 2, got %d", c.MinVolumeHistory)
	}
	return nil
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	if err := config.Validate(); err != nil {
		panic(fmt.Errorf("invalid anomaly config: %w", err))
	}
	return config
}
