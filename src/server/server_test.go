package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthflow/src/alerts"
	"wealthflow/src/execution"
	"wealthflow/src/model"
	"wealthflow/src/monitor"
	"wealthflow/src/repository"
)

type nopTrader struct{}

func (nopTrader) ExecuteSignal(context.Context, execution.Signal) (execution.Result, error) {
	return execution.Result{Success: true}, nil
}
func (nopTrader) ClosePosition(context.Context, string) (execution.Result, error) {
	return execution.Result{}, nil
}
func (nopTrader) SetStopLoss(context.Context, string, float64) (execution.Result, error) {
	return execution.Result{}, nil
}
func (nopTrader) SetTakeProfit(context.Context, string, float64) (execution.Result, error) {
	return execution.Result{}, nil
}
func (nopTrader) PortfolioSummary(context.Context) (execution.PortfolioSummary, error) {
	return execution.PortfolioSummary{}, nil
}
func (nopTrader) PerformanceMetrics() execution.Metrics { return execution.Metrics{} }
func (nopTrader) History() []execution.Record { return nil }
func (nopTrader) AddStrategy(string, map[string]any) {}
func (nopTrader) ActivateStrategy(string) error { return nil }
func (nopTrader) DeactivateStrategy(string) {}

type nopAlerts struct{}

func (nopAlerts) Recent(time.Duration) []alerts.Alert { return []alerts.Alert{} }
func (nopAlerts) Summary() alerts.Summary { return alerts.Summary{} }

type nopMonitor struct{}

func (nopMonitor) Status() monitor.Status { return monitor.Status{Running: true} }
func (nopMonitor) AddAsset(model.AssetKind, string) error { return nil }
func (nopMonitor) RemoveAsset(model.AssetKind, string) error { return nil }

type nopOrders struct{}

func (nopOrders) Search(context.Context, repository.OrderSearchOptions) ([]model.Order, error) {
	return nil, nil
}

func TestRouterRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	r := NewRouter(Deps{
		Trader:  nopTrader{},
		Alerts:  nopAlerts{},
		Monitor: nopMonitor{},
		Orders:  nopOrders{},
		Metrics: metrics,
	})

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthcheck", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/portfolio", http.StatusOK},
		{http.MethodGet, "/performance", http.StatusOK},
		{http.MethodGet, "/alerts", http.StatusOK},
		{http.MethodGet, "/alerts/summary", http.StatusOK},
		{http.MethodGet, "/monitor/status", http.StatusOK},
		{http.MethodDelete, "/monitor/assets/stock/AAPL", http.StatusOK},
		{http.MethodPost, "/positions/AAPL/close", http.StatusOK},
		{http.MethodPost, "/strategies/momentum/activate", http.StatusOK},
		{http.MethodGet, "/orders", http.StatusOK},
		{http.MethodGet, "/executions", http.StatusOK},
		{http.MethodGet, "/monitor/exceptions", http.StatusNotFound},
		{http.MethodGet, "/ws/alerts", http.StatusNotFound},
		{http.MethodGet, "/signals", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, rr.Code, "%s %s", tc.method, tc.path)
	}
}

func TestHealthcheckBody(t *testing.T) {
	r := NewRouter(Deps{})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}
