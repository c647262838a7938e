package execution

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	InitialCapital      float64 `envconfig:"EXECUTION_INITIAL_CAPITAL" default:"10000"`
	EnableExposureCheck bool    `envconfig:"EXECUTION_ENABLE_EXPOSURE_CHECK" default:"true"`
	DefaultStrategy     string  `envconfig:"EXECUTION_DEFAULT_STRATEGY" default:"unknown"`
}

func DefaultConfig() Config {
	return Config{
		InitialCapital:      10000,
		EnableExposureCheck: true,
		DefaultStrategy:     "unknown",
	}
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
