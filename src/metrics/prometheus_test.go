package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	r := New()

	r.RecordAlert("volume_anomaly", "high")
	r.RecordAlert("volume_anomaly", "high")
	r.RecordTick()
	r.RecordCheckFailure("stocks")
	r.RecordOrder("filled")
	r.RecordLastPrice("AAPL", 187.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.alertsTotal.WithLabelValues("volume_anomaly", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ticksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.checkFailures.WithLabelValues("stocks")))
	assert.Equal(t, 187.5, testutil.ToFloat64(r.lastPrice.WithLabelValues("AAPL")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.RecordTick()

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "wealthflow_monitor_ticks_total 1")
}
