package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wealthflow/src/model"
)

func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.DailyRiskState{}, &model.MarketSample{}, &DataMigration{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestRunOnceRecordsMigration(t *testing.T) {
	db := newTestDB(t, "run_once")

	calls := 0
	fn := func(*gorm.DB) error { calls++; return nil }

	require.NoError(t, RunOnce(db, "test_migration", fn))
	require.NoError(t, RunOnce(db, "test_migration", fn))
	assert.Equal(t, 1, calls)

	assert.Error(t, RunOnce(db, "", fn))
	assert.Error(t, RunOnce(db, "nil_fn", nil))
	assert.NoError(t, RunOnce(nil, "no_db", fn))
}

func TestRunSeedsRiskStateOnce(t *testing.T) {
	db := newTestDB(t, "seed")

	require.NoError(t, Run(db))
	require.NoError(t, Run(db))

	var rows []model.DailyRiskState
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(model.DailyRiskStateID), rows[0].ID)
	assert.True(t, rows[0].DailyPnL.IsZero())
	assert.False(t, rows[0].ResetBoundary.IsZero())
}

func TestImportLegacyCryptoData(t *testing.T) {
	db := newTestDB(t, "legacy")
	require.NoError(t, db.Exec(`CREATE TABLE crypto_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		coin_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		price TEXT,
		market_chart TEXT
	)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO crypto_data (coin_id, timestamp, price, market_chart) VALUES (?, ?, ?, ?)`,
		"bitcoin", "2024-05-01T10:00:00", `{"bitcoin": {"usd": 60100}}`,
		`{"prices": [[1714557600000, 60100.5], [1714554000000, 60000]], "total_volumes": [[1714554000000, 1200], [1714557600000, 1500]]}`).Error)
	require.NoError(t, db.Exec(`INSERT INTO crypto_data (coin_id, timestamp, price, market_chart) VALUES (?, ?, ?, ?)`,
		"dogecoin", "2024-05-01T10:00:00", `{}`, `not json`).Error)

	require.NoError(t, Run(db))

	var samples []model.MarketSample
	require.NoError(t, db.Order("timestamp ASC").Find(&samples).Error)
	require.Len(t, samples, 2)
	assert.Equal(t, "bitcoin", samples[0].Symbol)
	assert.Equal(t, []float64{60000, 60100.5}, model.Closes(samples))
	assert.Equal(t, []float64{1200, 1500}, model.Volumes(samples))
}

func TestLegacyChartSamplesDropsUnmatchedPoints(t *testing.T) {
	samples, err := LegacyChartSamples("ethereum", `{"prices": [[1000, 1], [2000, 2], [2000, 2]], "total_volumes": [[2000, 5]]}`)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, int64(2000), samples[0].Timestamp.UnixMilli())

	samples, err = LegacyChartSamples("ethereum", "")
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestAppliedListsRegistryInOrder(t *testing.T) {
	db := newTestDB(t, "applied")
	require.NoError(t, Run(db))

	rows, err := Applied(db)
	require.NoError(t, err)
	require.Len(t, rows, len(registry))
	for i, m := range registry {
		assert.Equal(t, m.ID, rows[i].ID)
	}
}
