package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthflow/src/model"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := Open(Config{Driver: DriverSQLite, SQLitePath: "file:db_main_test?mode=memory&cache=shared", GormLogLevel: 1})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	for _, table := range []string{"orders", "positions", "alerts", "daily_risk_state", "market_samples", "exceptions", "data_migrations"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	var state model.DailyRiskState
	require.NoError(t, db.First(&state, model.DailyRiskStateID).Error)
	assert.True(t, state.DailyPnL.IsZero())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "mysql"})
	assert.Error(t, err)
}
