package migrations

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wealthflow/src/model"
	"wealthflow/src/utils"
)

// seedDailyRiskState creates the single risk state row so a restart always
// finds a valid reset boundary.
func seedDailyRiskState(db *gorm.DB) error {
	row := model.DailyRiskState{
		ID:            model.DailyRiskStateID,
		DailyPnL:      decimal.Zero,
		ResetBoundary: utils.ResetTime(time.Now(), "day"),
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}
