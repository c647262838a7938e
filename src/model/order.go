package model

import "time"

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Opposite returns the side that unwinds a position opened with s.
func (s OrderSide) Opposite() OrderSide {
	switch s {
	case OrderSideBuy:
		return OrderSideSell
	case OrderSideSell:
		return OrderSideBuy
	}
	return s
}

type OrderType string

const (
	OrderTypeMarket     OrderType = "market"
	OrderTypeLimit      OrderType = "limit"
	OrderTypeStopLoss   OrderType = "stop_loss"
	OrderTypeTakeProfit OrderType = "take_profit"
)

// Protective reports whether the order only exists to close a position.
func (t OrderType) Protective() bool {
	return t == OrderTypeStopLoss || t == OrderTypeTakeProfit
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	case OrderStatusPending:
		return false
	}
	return false
}

// Order is a paper order and its fill.
type Order struct {
	ID             string      `gorm:"primaryKey;size:36" json:"id"`
	Symbol         string      `gorm:"size:50;not null;index:idx_orders_symbol_created,priority:1" json:"symbol"`
	Side           OrderSide   `gorm:"size:10;not null" json:"side"`
	OrderType      OrderType   `gorm:"size:20;not null" json:"order_type"`
	Quantity       float64     `gorm:"not null" json:"quantity"`
	// Limit or trigger level; for market orders the reference fill price.
	Price          *float64    `json:"price,omitempty"`
	Status         OrderStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	FilledQuantity float64     `json:"filled_quantity"`
	FilledPrice    float64     `json:"filled_price"`
	Strategy       string      `gorm:"size:100;index" json:"strategy"`
	FilledAt       *time.Time  `json:"filled_at,omitempty"`
	CreatedAt      time.Time   `gorm:"index:idx_orders_symbol_created,priority:2" json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TableName allows you to control the exact table name for orders.
func (Order) TableName() string {
	return "orders"
}
