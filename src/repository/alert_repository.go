package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wealthflow/src/alerts"
	"wealthflow/src/database"
	"wealthflow/src/model"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository() *AlertRepository {
	return &AlertRepository{db: database.MainDB}
}

func (r *AlertRepository) WithDB(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, a alerts.Alert) error {
	rec, err := ToAlertRecord(a)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

// FindSince returns alerts created at or after since, oldest first.
func (r *AlertRepository) FindSince(ctx context.Context, since time.Time) ([]alerts.Alert, error) {
	var rows []model.AlertRecord
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]alerts.Alert, 0, len(rows))
	for _, row := range rows {
		a, err := FromAlertRecord(row)
		if err != nil {
			logger.WithError(err).WithField("id", row.ID).Warn("skipping unreadable alert payload")
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Sink persists every generated alert. Failures are logged; the in-memory
// history stays authoritative.
func (r *AlertRepository) Sink(timeout time.Duration) alerts.Sink {
	return func(a alerts.Alert) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := r.Create(ctx, a); err != nil {
			logger.WithFields(map[string]interface{}{
				"repo": "AlertRepository",
				"op":   "Sink",
				"id":   a.ID,
			}).WithError(err).Error("Failed to persist alert")
		}
	}
}

func ToAlertRecord(a alerts.Alert) (model.AlertRecord, error) {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return model.AlertRecord{}, fmt.Errorf("encode alert payload: %w", err)
	}
	return model.AlertRecord{
		ID:        a.ID,
		Type:      string(a.Type),
		Asset:     a.Asset,
		Urgency:   string(a.Urgency),
		Message:   a.Message,
		Payload:   string(payload),
		CreatedAt: a.CreatedAt,
	}, nil
}

func FromAlertRecord(row model.AlertRecord) (alerts.Alert, error) {
	var payload alerts.Payload
	if row.Payload != "" {
		if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
			return alerts.Alert{}, fmt.Errorf("decode alert payload: %w", err)
		}
	}
	return alerts.Alert{
		ID:        row.ID,
		Type:      alerts.Type(row.Type),
		Asset:     row.Asset,
		Urgency:   alerts.Urgency(row.Urgency),
		Message:   row.Message,
		Payload:   payload,
		CreatedAt: row.CreatedAt,
	}, nil
}
