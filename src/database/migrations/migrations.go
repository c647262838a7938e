package migrations

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DataMigration records one applied data migration.
type DataMigration struct {
	ID        string    `gorm:"primaryKey;size:200;column:id"`
	AppliedAt time.Time `gorm:"not null;column:applied_at"`
}

func (DataMigration) TableName() string { return "data_migrations" }

// Migration is a named, one-shot data change run after the schema migration.
type Migration struct {
	ID string
	Fn func(*gorm.DB) error
}

// registry is ordered; append new entries at the bottom with a stable id.
var registry = []Migration{
	{ID: "00001_seed_daily_risk_state", Fn: seedDailyRiskState},
	{ID: "00002_import_legacy_crypto_data", Fn: importLegacyCryptoData},
}

// RunOnce runs fn in a transaction unless migrationID is already recorded.
// The id is recorded in the same transaction, after fn succeeds.
func RunOnce(db *gorm.DB, migrationID string, fn func(*gorm.DB) error) error {
	switch {
	case db == nil:
		return nil
	case migrationID == "":
		return fmt.Errorf("migration id is empty")
	case fn == nil:
		return fmt.Errorf("migration %q has nil fn", migrationID)
	}

	if err := db.AutoMigrate(&DataMigration{}); err != nil {
		return fmt.Errorf("ensure data migrations table: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.First(&DataMigration{}, "id = ?", migrationID).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check migration %q: %w", migrationID, err)
		}

		started := time.Now()
		if err := fn(tx); err != nil {
			return fmt.Errorf("run migration %q: %w", migrationID, err)
		}
		if err := tx.Create(&DataMigration{ID: migrationID, AppliedAt: time.Now().UTC()}).Error; err != nil {
			return fmt.Errorf("record migration %q: %w", migrationID, err)
		}

		logrus.WithFields(logrus.Fields{
			"migration": migrationID,
			"took":      time.Since(started).String(),
		}).Info("[database] data migration applied")
		return nil
	})
}

// Run applies every registered migration not yet recorded, in order.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	for _, m := range registry {
		if err := RunOnce(db, m.ID, m.Fn); err != nil {
			return err
		}
	}
	return nil
}

// Applied lists recorded migrations, oldest first.
func Applied(db *gorm.DB) ([]DataMigration, error) {
	var rows []DataMigration
	err := db.Order("applied_at ASC, id ASC").Find(&rows).Error
	return rows, err
}
