package model

import "time"

// AlertRecord is the persisted form of a generated alert. Payload holds the
// detection data as JSON.
type AlertRecord struct {
	ID        string    `gorm:"primaryKey;size:200" json:"id"`
	Type      string    `gorm:"size:50;not null;index" json:"type"`
	Asset     string    `gorm:"size:50;not null;index:idx_alerts_asset_created,priority:1" json:"asset_name"`
	Urgency   string    `gorm:"size:10;not null" json:"urgency"`
	Message   string    `gorm:"type:text" json:"message"`
	Payload   string    `gorm:"type:text" json:"data"`
	CreatedAt time.Time `gorm:"index:idx_alerts_asset_created,priority:2" json:"timestamp"`
}

func (AlertRecord) TableName() string {
	return "alerts"
}
