package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wealthflow/src/database"
	"wealthflow/src/model"
)

const sampleBatchSize = 200

type MarketSampleRepository struct {
	db *gorm.DB
}

func NewMarketSampleRepository() *MarketSampleRepository {
	return &MarketSampleRepository{db: database.MainDB}
}

func (r *MarketSampleRepository) WithDB(db *gorm.DB) *MarketSampleRepository {
	return &MarketSampleRepository{db: db}
}

// UpsertSamples stores the bars; on conflict on (symbol, timestamp) the OHLCV
// values are updated in place.
func (r *MarketSampleRepository) UpsertSamples(ctx context.Context, samples []model.MarketSample) error {
	if len(samples) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "timestamp"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "source"}),
	}).CreateInBatches(&samples, sampleBatchSize).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "MarketSampleRepository",
			"op":     "UpsertSamples",
			"symbol": samples[0].Symbol,
			"rows":   len(samples),
		}).WithError(err).Error("Failed to upsert samples")
	}
	return err
}

// FetchRecent returns the latest limit samples up to and including to, oldest first.
func (r *MarketSampleRepository) FetchRecent(ctx context.Context, symbol string, to time.Time, limit int) ([]model.MarketSample, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []model.MarketSample
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND timestamp <= ?", symbol, to).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// LatestTimestamp returns the newest stored bar time for symbol; ok is false
// when there is none.
func (r *MarketSampleRepository) LatestTimestamp(ctx context.Context, symbol string) (time.Time, bool, error) {
	var latest model.MarketSample
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp DESC").
		First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return latest.Timestamp, true, nil
}
