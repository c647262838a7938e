package migrations

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wealthflow/src/model"
)

const (
	legacyCryptoTable  = "crypto_data"
	legacyCryptoSource = "coingecko"
)

type legacyCryptoRow struct {
	CoinID      string
	MarketChart string
}

// market_chart as stored by the previous collector: [[unix_ms, value], ...]
type legacyMarketChart struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// importLegacyCryptoData copies the price/volume points of an older crypto_data
// table into market_samples. Databases without that table are left untouched.
func importLegacyCryptoData(db *gorm.DB) error {
	if !db.Migrator().HasTable(legacyCryptoTable) {
		return nil
	}

	var rows []legacyCryptoRow
	if err := db.Table(legacyCryptoTable).Select("coin_id, market_chart").Find(&rows).Error; err != nil {
		return fmt.Errorf("read %s: %w", legacyCryptoTable, err)
	}

	imported := 0
	for _, row := range rows {
		samples, err := LegacyChartSamples(row.CoinID, row.MarketChart)
		if err != nil {
			logger.WithError(err).WithField("coin_id", row.CoinID).Warn("skipping unreadable legacy market chart")
			continue
		}
		if len(samples) == 0 {
			continue
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&samples, 200).Error; err != nil {
			return fmt.Errorf("import %s samples: %w", row.CoinID, err)
		}
		imported += len(samples)
	}

	logger.WithFields(logger.Fields{"rows": len(rows), "samples": imported}).Info("legacy crypto data imported")
	return nil
}

// LegacyChartSamples turns one stored market chart into samples. Volumes are
// matched to prices by timestamp; points without a volume are dropped.
func LegacyChartSamples(coinID, chart string) ([]model.MarketSample, error) {
	if chart == "" {
		return nil, nil
	}

	var parsed legacyMarketChart
	if err := json.Unmarshal([]byte(chart), &parsed); err != nil {
		return nil, fmt.Errorf("decode market chart: %w", err)
	}

	volumes := make(map[int64]float64, len(parsed.TotalVolumes))
	for _, v := range parsed.TotalVolumes {
		volumes[int64(v[0])] = v[1]
	}

	seen := make(map[int64]bool, len(parsed.Prices))
	samples := make([]model.MarketSample, 0, len(parsed.Prices))
	for _, p := range parsed.Prices {
		ms := int64(p[0])
		vol, ok := volumes[ms]
		if !ok || seen[ms] {
			continue
		}
		seen[ms] = true

		price := decimal.NewFromFloat(p[1])
		samples = append(samples, model.MarketSample{
			Symbol:    coinID,
			Kind:      model.AssetKindCrypto,
			Source:    legacyCryptoSource,
			Timestamp: time.UnixMilli(ms).UTC(),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    decimal.NewFromFloat(vol),
		})
	}
	model.SortSamples(samples)
	return samples, nil
}
