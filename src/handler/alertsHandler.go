package handler

import (
	"net/http"
	"strconv"
	"time"

	"wealthflow/src/alerts"
)

// AlertReader is the read side of the alert generator.
type AlertReader interface {
	Recent(window time.Duration) []alerts.Alert
	Summary() alerts.Summary
}

// RecentAlertsHandler returns alerts from the last ?hours=N hours (default 24).
func RecentAlertsHandler(g AlertReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hours := 24
		if raw := r.URL.Query().Get("hours"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > 24*30 {
				writeError(w, http.StatusBadRequest, "invalid hours")
				return
			}
			hours = parsed
		}
		writeJSON(w, http.StatusOK, g.Recent(time.Duration(hours)*time.Hour))
	}
}

func AlertSummaryHandler(g AlertReader) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, g.Summary())
	}
}
