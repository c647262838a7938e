package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"

	"wealthflow/src/handler"
)

// Deps are the components the API exposes. Nil optional handlers are not mounted.
type Deps struct {
	Trader     handler.Trader
	Alerts     handler.AlertReader
	Monitor    handler.Monitor
	Orders     handler.OrderSearcher
	Exceptions handler.ExceptionReader
	Samples    handler.SampleReader
	Stream     http.Handler
	Metrics    http.Handler

	RequestTimeout time.Duration
}

func NewRouter(d Deps) chi.Router {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	r := chi.NewRouter()
	// === Global Middleware ===
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(d.RequestTimeout))

		r.Post("/signals", handler.SubmitSignalHandler(d.Trader))
		r.Get("/portfolio", handler.PortfolioHandler(d.Trader))
		r.Get("/performance", handler.PerformanceHandler(d.Trader))
		r.Route("/positions/{symbol}", func(r chi.Router) {
			r.Post("/close", handler.ClosePositionHandler(d.Trader))
			r.Post("/stop-loss", handler.StopLossHandler(d.Trader))
			r.Post("/take-profit", handler.TakeProfitHandler(d.Trader))
		})
		r.Post("/strategies", handler.AddStrategyHandler(d.Trader))
		r.Post("/strategies/{name}/activate", handler.ActivateStrategyHandler(d.Trader))
		r.Post("/strategies/{name}/deactivate", handler.DeactivateStrategyHandler(d.Trader))

		r.Get("/alerts", handler.RecentAlertsHandler(d.Alerts))
		r.Get("/alerts/summary", handler.AlertSummaryHandler(d.Alerts))

		r.Get("/monitor/status", handler.MonitorStatusHandler(d.Monitor))
		r.Post("/monitor/assets", handler.AddAssetHandler(d.Monitor))
		r.Delete("/monitor/assets/{kind}/{name}", handler.RemoveAssetHandler(d.Monitor))

		r.Get("/orders", handler.SearchOrdersHandler(d.Orders))
		r.Get("/executions", handler.ExecutionHistoryHandler(d.Trader))
		if d.Exceptions != nil {
			r.Get("/monitor/exceptions", handler.RecentExceptionsHandler(d.Exceptions))
		}
		if d.Samples != nil {
			r.Get("/market/{symbol}/samples", handler.MarketSamplesHandler(d.Samples))
		}
	})

	// Streaming stays outside the request timeout.
	if d.Stream != nil {
		r.Method(http.MethodGet, "/ws/alerts", d.Stream)
	}
	return r
}

// StartServer serves the API until SIGINT or SIGTERM, then runs onShutdown
// before draining in-flight requests.
func StartServer(cfg *Config, h http.Handler, onShutdown func()) {
	// Graceful server
	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	if onShutdown != nil {
		onShutdown()
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
