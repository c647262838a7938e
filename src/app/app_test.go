package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wealthflow/src/alerts"
	"wealthflow/src/anomaly"
	"wealthflow/src/database"
	"wealthflow/src/execution"
	"wealthflow/src/model"
	"wealthflow/src/monitor"
	"wealthflow/src/repository"
	"wealthflow/src/risk"
	"wealthflow/src/sentiment"
)

type emptySource struct{}

func (emptySource) GetSeries(context.Context, string, int) ([]model.MarketSample, error) {
	return nil, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.Config{
		Driver:       database.DriverSQLite,
		SQLitePath:   fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
		GormLogLevel: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func testConfig() Config {
	mon := monitor.DefaultConfig()
	mon.Stocks = []string{"AAPL"}
	mon.Cryptos = nil
	return Config{
		AlertHistoryWindow: 24 * time.Hour,
		PersistTimeout:     time.Second,
		Execution:          execution.DefaultConfig(),
		Risk:               risk.DefaultConfig(),
		Anomaly:            anomaly.DefaultConfig(),
		Monitor:            mon,
	}
}

func testSources() Sources {
	return Sources{
		Stocks:     emptySource{},
		Cryptos:    emptySource{},
		Classifier: sentiment.KeywordClassifier{},
	}
}

func newTestApp(t *testing.T, db *gorm.DB) *App {
	t.Helper()
	log, _ := logrustest.NewNullLogger()
	a, err := New(context.Background(), testConfig(), db, testSources(), logrus.NewEntry(log))
	require.NoError(t, err)
	return a
}

func TestSignalIsPersistedAndSurvivesRestart(t *testing.T) {
	db := newTestDB(t)
	a := newTestApp(t, db)

	rr := httptest.NewRecorder()
	body := `{"symbol":"AAPL","action":"buy","quantity":1,"price":150,"strategy":"manual"}`
	a.Router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/signals", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res execution.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.True(t, res.Success)

	rr = httptest.NewRecorder()
	a.Router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders?symbol=AAPL", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), res.OrderID)

	restarted := newTestApp(t, db)
	pos, ok := restarted.Engine.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, 1.0, pos.Quantity)

	summary, err := restarted.Engine.PortfolioSummary(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 10000-150.0, summary.Account.Balance, 1e-9)
}

func TestAlertsArePersistedReloadedAndCounted(t *testing.T) {
	db := newTestDB(t)
	a := newTestApp(t, db)

	_, err := a.Alerts.Generate(alerts.TypeVolumeAnomaly, "AAPL", alerts.Payload{alerts.KeyVolumeMultiplier: 3.5}, alerts.UrgencyMedium)
	require.NoError(t, err)

	stored, err := repository.NewAlertRepository().WithDB(db).FindSince(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stored, 1)

	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `wealthflow_alerts_total{type="volume_anomaly",urgency="medium"} 1`)

	restarted := newTestApp(t, db)
	assert.Len(t, restarted.Alerts.Recent(24*time.Hour), 1)
	assert.Equal(t, 1, restarted.Alerts.Summary().Total)
}

func TestNewFailsOnCorruptedPositions(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&model.Position{Symbol: "BAD", Side: model.PositionSideLong, Quantity: -1, AverageEntryPrice: 10}).Error)

	_, err := New(context.Background(), testConfig(), db, testSources(), nil)
	require.Error(t, err)
}

func TestMonitorRoutesDriveScheduler(t *testing.T) {
	a := newTestApp(t, newTestDB(t))

	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/monitor/assets", strings.NewReader(`{"type":"crypto","name":"solana"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, a.Scheduler.Status().MonitoredCryptos, "solana")
	assert.False(t, a.Scheduler.Status().Running)
}
