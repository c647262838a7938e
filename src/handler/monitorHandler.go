package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"wealthflow/src/model"
	"wealthflow/src/monitor"
)

// Monitor is the control surface of the monitoring scheduler.
type Monitor interface {
	Status() monitor.Status
	AddAsset(kind model.AssetKind, name string) error
	RemoveAsset(kind model.AssetKind, name string) error
}

func MonitorStatusHandler(m Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, m.Status())
	}
}

type assetRequest struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func AddAssetHandler(m Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req assetRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		kind := model.AssetKind(strings.ToLower(strings.TrimSpace(req.Type)))
		if err := m.AddAsset(kind, req.Name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, m.Status())
	}
}

func RemoveAssetHandler(m Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := model.AssetKind(strings.ToLower(chi.URLParam(r, "kind")))
		if err := m.RemoveAsset(kind, chi.URLParam(r, "name")); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, m.Status())
	}
}

type ExceptionReader interface {
	FindRecent(ctx context.Context, limit int) ([]model.Exception, error)
}

type SampleReader interface {
	FetchRecent(ctx context.Context, symbol string, to time.Time, limit int) ([]model.MarketSample, error)
}

// RecentExceptionsHandler lists captured monitor failures, newest first.
func RecentExceptionsHandler(repo ExceptionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(w, r, 50)
		if !ok {
			return
		}
		rows, err := repo.FindRecent(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("failed to load exceptions")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if rows == nil {
			rows = []model.Exception{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// MarketSamplesHandler returns the stored bars of one asset, oldest first.
func MarketSamplesHandler(repo SampleReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(w, r, 100)
		if !ok {
			return
		}
		to := time.Now().UTC()
		if raw := r.URL.Query().Get("to"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid to")
				return
			}
			to = parsed
		}
		rows, err := repo.FetchRecent(r.Context(), chi.URLParam(r, "symbol"), to, limit)
		if err != nil {
			logger.WithError(err).Error("failed to load market samples")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if rows == nil {
			rows = []model.MarketSample{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func limitParam(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 1000 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return 0, false
	}
	return n, true
}
