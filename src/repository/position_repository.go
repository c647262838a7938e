package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wealthflow/src/database"
	"wealthflow/src/model"
)

// PositionRepository persists the open positions, one row per symbol.
type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepository() *PositionRepository {
	return &PositionRepository{db: database.MainDB}
}

func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Upsert writes the position, replacing any row for the same symbol.
func (r *PositionRepository) Upsert(ctx context.Context, p model.Position) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		UpdateAll: true,
	}).Create(&p).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "PositionRepository",
			"op":     "Upsert",
			"symbol": p.Symbol,
		}).WithError(err).Error("Failed to upsert position")
	}
	return err
}

func (r *PositionRepository) Delete(ctx context.Context, symbol string) error {
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Delete(&model.Position{}).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "PositionRepository",
			"op":     "Delete",
			"symbol": symbol,
		}).WithError(err).Error("Failed to delete position")
	}
	return err
}

// FindAll returns every stored position ordered by symbol.
func (r *PositionRepository) FindAll(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position
	if err := r.db.WithContext(ctx).Order("symbol ASC").Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}
