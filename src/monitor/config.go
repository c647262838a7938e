package monitor

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Stocks            []string      `envconfig:"MONITOR_STOCKS" default:"AAPL,GOOGL,MSFT,TSLA,NVDA"`
	Cryptos           []string      `envconfig:"MONITOR_CRYPTOS" default:"bitcoin,ethereum,dogecoin,cardano,solana"`
	StockInterval     time.Duration `envconfig:"MONITOR_STOCK_INTERVAL" default:"300s"`
	CryptoInterval    time.Duration `envconfig:"MONITOR_CRYPTO_INTERVAL" default:"180s"`
	SentimentInterval time.Duration `envconfig:"MONITOR_SENTIMENT_INTERVAL" default:"600s"`
	TickPeriod        time.Duration `envconfig:"MONITOR_TICK_PERIOD" default:"30s"`
	ErrorBackoff      time.Duration `envconfig:"MONITOR_ERROR_BACKOFF" default:"60s"`
	MaxErrorBackoff   time.Duration `envconfig:"MONITOR_MAX_ERROR_BACKOFF" default:"10m"`
	CallTimeout       time.Duration `envconfig:"MONITOR_CALL_TIMEOUT" default:"10s"`
	SeriesWindow      int           `envconfig:"MONITOR_SERIES_WINDOW" default:"30"`
	AutoTrade         bool          `envconfig:"MONITOR_AUTO_TRADE" default:"false"`
}

func DefaultConfig() Config {
	return Config{
		Stocks:            []string{"AAPL", "GOOGL", "MSFT", "TSLA", "NVDA"},
		Cryptos:           []string{"bitcoin", "ethereum", "dogecoin", "cardano", "solana"},
		StockInterval:     300 * time.Second,
		CryptoInterval:    180 * time.Second,
		SentimentInterval: 600 * time.Second,
		TickPeriod:        30 * time.Second,
		ErrorBackoff:      60 * time.Second,
		MaxErrorBackoff:   10 * time.Minute,
		CallTimeout:       10 * time.Second,
		SeriesWindow:      30,
	}
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
