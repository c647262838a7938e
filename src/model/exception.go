package model

import "time"

// Exception is a failure persisted for later inspection, e.g. a market data
// fetch that failed during a monitoring tick.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Service string `gorm:"size:100;index" json:"service"` // e.g. "monitor"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "stocks"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "CheckAsset"

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"stack"`

	Level string `gorm:"size:20;index" json:"level"` // debug | info | warn | error | fatal

	// Asset, kind and other context as JSON
	Context string `gorm:"type:text" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
