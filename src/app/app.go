package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wealthflow/src/alerts"
	"wealthflow/src/anomaly"
	"wealthflow/src/broker"
	"wealthflow/src/connectors"
	"wealthflow/src/database"
	"wealthflow/src/execution"
	"wealthflow/src/handler"
	"wealthflow/src/ledger"
	"wealthflow/src/metrics"
	"wealthflow/src/model"
	"wealthflow/src/monitor"
	"wealthflow/src/repository"
	"wealthflow/src/risk"
	"wealthflow/src/sentiment"
	"wealthflow/src/server"
)

// App holds the wired process: paper execution, alerting, monitoring and the API.
type App struct {
	Engine    *execution.Engine
	Alerts    *alerts.Generator
	Scheduler *monitor.Scheduler
	Hub       *handler.AlertHub
	Metrics   *metrics.Recorder
	Router    http.Handler

	logger *logrus.Entry
}

// Sources lets callers replace the network-backed collaborators, e.g. in tests.
// Nil fields are built from the connectors config.
type Sources struct {
	Stocks     monitor.MarketDataSource
	Cryptos    monitor.MarketDataSource
	Mentions   monitor.MentionSource
	Classifier sentiment.Classifier
}

// New wires every component on db and restores persisted state. A restore
// failure means the stored state is inconsistent and the process must not start.
func New(ctx context.Context, cfg Config, db *gorm.DB, src Sources, logger *logrus.Entry) (*App, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	rec := metrics.New()

	store := &repository.ExecutionStore{
		Orders:    repository.NewOrderRepository().WithDB(db),
		Positions: repository.NewPositionRepository().WithDB(db),
		Risk:      repository.NewRiskStateRepository().WithDB(db),
	}
	l := ledger.New()
	paper := broker.NewPaper(cfg.Execution.InitialCapital, l, logger)
	rm := risk.NewManager(cfg.Risk, logger)
	engine := execution.NewEngine(cfg.Execution, paper, l, rm, store, logger).
		WithOrderObserver(func(o model.Order) { rec.RecordOrder(string(o.Status)) })
	if err := engine.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restore execution state: %w", err)
	}

	alertRepo := repository.NewAlertRepository().WithDB(db)
	gen := alerts.NewGenerator(logger)
	history, err := alertRepo.FindSince(ctx, time.Now().Add(-cfg.AlertHistoryWindow))
	if err != nil {
		return nil, fmt.Errorf("load alert history: %w", err)
	}
	gen.Load(history)

	hub := handler.NewAlertHub(logger)
	gen.Subscribe(alertRepo.Sink(cfg.PersistTimeout))
	gen.Subscribe(hub.Broadcast)
	gen.Subscribe(func(a alerts.Alert) { rec.RecordAlert(string(a.Type), string(a.Urgency)) })

	src = src.withDefaults(cfg.Connectors, logger)
	samples := repository.NewMarketSampleRepository().WithDB(db)
	exceptions := repository.NewExceptionRepository().WithDB(db)
	sched := monitor.NewScheduler(cfg.Monitor, monitor.Deps{
		Stocks:     src.Stocks,
		Cryptos:    src.Cryptos,
		Mentions:   src.Mentions,
		Classifier: src.Classifier,
		Detector:   anomaly.NewDetector(cfg.Anomaly),
		Aggregator: sentiment.NewAggregator(),
		Alerts:     gen,
		Samples:    samples,
		Exceptions: exceptions,
		Trader:     engine,
		Metrics:    rec,
	}, logger)

	router := server.NewRouter(server.Deps{
		Trader:     engine,
		Alerts:     gen,
		Monitor:    sched,
		Orders:     store.Orders,
		Exceptions: exceptions,
		Samples:    samples,
		Stream:     hub,
		Metrics:    rec.Handler(),

		RequestTimeout: cfg.RequestTimeout,
	})

	logger.WithFields(logrus.Fields{
		"alerts_loaded": len(history),
		"stocks":        len(cfg.Monitor.Stocks),
		"cryptos":       len(cfg.Monitor.Cryptos),
		"auto_trade":    cfg.Monitor.AutoTrade,
	}).Info("application wired")

	return &App{
		Engine:    engine,
		Alerts:    gen,
		Scheduler: sched,
		Hub:       hub,
		Metrics:   rec,
		Router:    router,
		logger:    logger,
	}, nil
}

// withDefaults fills missing sources from the connectors config. All HTTP
// connectors share one limiter.
func (s Sources) withDefaults(cfg connectors.Config, logger *logrus.Entry) Sources {
	limiter := connectors.NewLimiter(cfg.RequestsPerSecond, cfg.Burst)
	if s.Stocks == nil {
		s.Stocks = connectors.NewYahooSource(cfg, limiter, logger)
	}
	if s.Cryptos == nil {
		s.Cryptos = connectors.NewBinanceSource(cfg, limiter, logger)
	}
	if s.Mentions == nil && cfg.MentionsBaseURL != "" {
		s.Mentions = connectors.NewHTTPMentionSource(cfg, limiter, logger)
	}
	if s.Classifier == nil {
		var primary sentiment.Classifier
		if cfg.OpenAIAPIKey != "" {
			primary = connectors.NewOpenAIClassifier(cfg, limiter, logger)
		}
		s.Classifier = sentiment.NewFallbackClassifier(primary, logger)
	}
	return s
}

// Run starts monitoring and serves the API until the process is signalled.
func (a *App) Run(cfg *server.Config) {
	a.Scheduler.Start()
	server.StartServer(cfg, a.Router, func() {
		a.Scheduler.Stop()
		a.Hub.Close()
		a.logger.Info("monitoring stopped")
	})
}

// Start connects the main database, wires the application from the environment
// and blocks serving the API.
func Start(srv *server.Config) error {
	if err := database.InitMainDB(); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	cfg := GetConfig()
	cfg.RequestTimeout = srv.RequestTimeout
	a, err := New(context.Background(), cfg, database.MainDB, Sources{}, logrus.WithField("app", "wealthflow"))
	if err != nil {
		return err
	}
	a.Run(srv)
	return nil
}
