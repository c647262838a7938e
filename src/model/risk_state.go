package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyRiskStateID is the id of the single row holding the live risk state.
const DailyRiskStateID = 1

type DailyRiskState struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	DailyPnL      decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"daily_pnl"`
	ResetBoundary time.Time       `gorm:"not null" json:"reset_boundary"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (DailyRiskState) TableName() string {
	return "daily_risk_state"
}
