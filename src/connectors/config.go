package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BinanceEndpoint string `envconfig:"BINANCE_ENDPOINT" default:"https://api.binance.com"`
	CryptoQuote     string `envconfig:"CRYPTO_QUOTE" default:"USDT"`
	KlinePeriod     string `envconfig:"KLINE_PERIOD" default:"1h"`

	YahooBaseURL  string `envconfig:"YAHOO_BASE_URL" default:"https://query1.finance.yahoo.com"`
	YahooInterval string `envconfig:"YAHOO_INTERVAL" default:"1h"`
	YahooRange    string `envconfig:"YAHOO_RANGE" default:"5d"`

	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`

	MentionsBaseURL string `envconfig:"MENTIONS_BASE_URL"`

	RequestsPerSecond float64       `envconfig:"CONNECTOR_REQUESTS_PER_SECOND" default:"5"`
	Burst             int           `envconfig:"CONNECTOR_BURST" default:"5"`
	HTTPTimeout       time.Duration `envconfig:"CONNECTOR_HTTP_TIMEOUT" default:"15s"`
	RetryCount        int           `envconfig:"CONNECTOR_RETRY_COUNT" default:"2"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
