package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type AssetKind string

const (
	AssetKindStock  AssetKind = "stock"
	AssetKindCrypto AssetKind = "crypto"
)

// MarketSample is one OHLCV bar produced by a market data source.
type MarketSample struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Symbol    string          `gorm:"type:varchar(50);not null;uniqueIndex:ux_market_samples_symbol_time,priority:1" json:"symbol"`
	Timestamp time.Time       `gorm:"not null;uniqueIndex:ux_market_samples_symbol_time,priority:2;index:idx_market_samples_time" json:"timestamp"`
	Kind      AssetKind       `gorm:"size:10;not null" json:"kind"`
	Source    string          `gorm:"size:30" json:"source"`
	Open      decimal.Decimal `gorm:"type:double precision;not null" json:"open"`
	High      decimal.Decimal `gorm:"type:double precision;not null" json:"high"`
	Low       decimal.Decimal `gorm:"type:double precision;not null" json:"low"`
	Close     decimal.Decimal `gorm:"type:double precision;not null" json:"price"`
	Volume    decimal.Decimal `gorm:"type:double precision;not null" json:"volume"`
}

func (MarketSample) TableName() string {
	return "market_samples"
}

// Closes extracts the close series in sample order.
func Closes(samples []MarketSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Close.InexactFloat64()
	}
	return out
}

// Volumes extracts the volume series in sample order.
func Volumes(samples []MarketSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Volume.InexactFloat64()
	}
	return out
}

// SortSamples orders samples oldest first.
func SortSamples(samples []MarketSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
}
