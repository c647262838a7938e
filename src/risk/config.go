package risk

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	MaxPositionPct      float64 `envconfig:"RISK_MAX_POSITION_PCT" default:"0.02"`
	MaxDailyLossPct     float64 `envconfig:"RISK_MAX_DAILY_LOSS_PCT" default:"0.05"`
	MaxTotalExposurePct float64 `envconfig:"RISK_MAX_TOTAL_EXPOSURE_PCT" default:"0.20"`
}

func DefaultConfig() Config {
	return Config{
		MaxPositionPct:      0.02,
		MaxDailyLossPct:     0.05,
		MaxTotalExposurePct: 0.20,
	}
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
