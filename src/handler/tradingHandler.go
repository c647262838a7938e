package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"wealthflow/src/execution"
)

// Trader is the execution surface exposed over HTTP.
type Trader interface {
	ExecuteSignal(ctx context.Context, sig execution.Signal) (execution.Result, error)
	ClosePosition(ctx context.Context, symbol string) (execution.Result, error)
	SetStopLoss(ctx context.Context, symbol string, stopPrice float64) (execution.Result, error)
	SetTakeProfit(ctx context.Context, symbol string, targetPrice float64) (execution.Result, error)
	PortfolioSummary(ctx context.Context) (execution.PortfolioSummary, error)
	PerformanceMetrics() execution.Metrics
	History() []execution.Record
	AddStrategy(name string, config map[string]any)
	ActivateStrategy(name string) error
	DeactivateStrategy(name string)
}

// writeResult maps an engine outcome to a status code. Risk rejections are
// business results and still answer 200 with success=false.
func writeResult(w http.ResponseWriter, res execution.Result, err error) {
	var verr *execution.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, res)
	case errors.Is(err, execution.ErrPositionNotFound):
		writeJSON(w, http.StatusNotFound, res)
	default:
		logger.WithError(err).Error("execution failed")
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func SubmitSignalHandler(t Trader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sig execution.Signal
		if err := decodeJSON(w, r, &sig); err != nil {
			writeError(w, http.StatusBadRequest, "invalid signal body")
			return
		}
		res, err := t.ExecuteSignal(r.Context(), sig)
		writeResult(w, res, err)
	}
}

func ClosePositionHandler(t Trader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := t.ClosePosition(r.Context(), symbolParam(r))
		writeResult(w, res, err)
	}
}

type levelRequest struct {
	Price float64 `json:"price"`
}

func StopLossHandler(t Trader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req levelRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		res, err := t.SetStopLoss(r.Context(), symbolParam(r), req.Price)
		writeResult(w, res, err)
	}
}

func TakeProfitHandler(t Trader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req levelRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		res, err := t.SetTakeProfit(r.Context(), symbolParam(r), req.Price)
		writeResult(w, res, err)
	}
}

func PortfolioHandler(t Trader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := t.PortfolioSummary(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to build portfolio summary")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func PerformanceHandler(t Trader) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, t.PerformanceMetrics())
	}
}

// ExecutionHistoryHandler returns the in-memory execution log, oldest first.
func ExecutionHistoryHandler(t Trader) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		history := t.History()
		if history == nil {
			history = []execution.Record{}
		}
		writeJSON(w, http.StatusOK, history)
	}
}

type strategyRequest struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
}

func AddStrategyHandler(t Trader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req strategyRequest
		if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		t.AddStrategy(req.Name, req.Config)
		writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
	}
}

func ActivateStrategyHandler(t Trader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := t.ActivateStrategy(name); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"name": name, "active": true})
	}
}

func DeactivateStrategyHandler(t Trader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		t.DeactivateStrategy(name)
		writeJSON(w, http.StatusOK, map[string]interface{}{"name": name, "active": false})
	}
}

// symbolParam keeps the symbol's case: signals store symbols as given, and
// crypto assets are lower-case coin ids.
func symbolParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "symbol"))
}
