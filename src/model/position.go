package model

import "time"

type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// Position is the single open position held for a symbol.
type Position struct {
	Symbol            string       `gorm:"primaryKey;size:50" json:"symbol"`
	Side              PositionSide `gorm:"size:10;not null" json:"side"`
	Quantity          float64      `gorm:"not null" json:"quantity"`
	AverageEntryPrice float64      `gorm:"not null" json:"entry_price"`
	CurrentPrice      float64      `json:"current_price"`
	UnrealizedPnL     float64      `json:"unrealized_pnl"`
	RealizedPnL       float64      `json:"realized_pnl"`
	OpenedAt          time.Time    `gorm:"index" json:"opened_at"`
	UpdatedAt         time.Time    `gorm:"index" json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}

// MarketValue is the gross value at the last marked price.
func (p Position) MarketValue() float64 {
	return p.Quantity * p.CurrentPrice
}

// CloseSide is the order side that reduces this position.
func (p Position) CloseSide() OrderSide {
	switch p.Side {
	case PositionSideLong:
		return OrderSideSell
	case PositionSideShort:
		return OrderSideBuy
	}
	return OrderSideSell
}
