package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wealthflow/src/database"
	"wealthflow/src/model"
	"wealthflow/src/risk"
)

// RiskStateRepository keeps the daily risk state in a single row.
type RiskStateRepository struct {
	db *gorm.DB
}

func NewRiskStateRepository() *RiskStateRepository {
	return &RiskStateRepository{db: database.MainDB}
}

func (r *RiskStateRepository) WithDB(db *gorm.DB) *RiskStateRepository {
	return &RiskStateRepository{db: db}
}

func (r *RiskStateRepository) Save(ctx context.Context, s risk.State) error {
	row := model.DailyRiskState{
		ID:            model.DailyRiskStateID,
		DailyPnL:      s.DailyPnL,
		ResetBoundary: s.ResetBoundary,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"daily_pnl", "reset_boundary", "updated_at"}),
	}).Create(&row).Error
}

// Load returns the stored state; ok is false when nothing was saved yet.
func (r *RiskStateRepository) Load(ctx context.Context) (risk.State, bool, error) {
	var row model.DailyRiskState
	err := r.db.WithContext(ctx).
		Where("id = ?", model.DailyRiskStateID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return risk.State{}, false, nil
	}
	if err != nil {
		return risk.State{}, false, err
	}
	return risk.State{DailyPnL: row.DailyPnL, ResetBoundary: row.ResetBoundary}, true, nil
}
