package app

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"wealthflow/src/anomaly"
	"wealthflow/src/connectors"
	"wealthflow/src/execution"
	"wealthflow/src/monitor"
	"wealthflow/src/risk"
)

type Config struct {
	AlertHistoryWindow time.Duration `envconfig:"ALERT_HISTORY_WINDOW" default:"24h"`
	PersistTimeout     time.Duration `envconfig:"PERSIST_TIMEOUT" default:"5s"`
	RequestTimeout     time.Duration `ignored:"true"`

	Execution  execution.Config  `ignored:"true"`
	Risk       risk.Config       `ignored:"true"`
	Anomaly    anomaly.Config    `ignored:"true"`
	Monitor    monitor.Config    `ignored:"true"`
	Connectors connectors.Config `ignored:"true"`
}

// GetConfig loads this package's settings and those of every component.
func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	config.Execution = execution.GetConfig()
	config.Risk = risk.GetConfig()
	config.Anomaly = anomaly.GetConfig()
	config.Monitor = monitor.GetConfig()
	config.Connectors = connectors.GetConfig()
	return config
}
