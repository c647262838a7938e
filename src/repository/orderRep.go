package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wealthflow/src/database"
	"wealthflow/src/model"
)

// OrderRepository handles read/write operations for paper orders.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new repository instance using the main database.
func NewOrderRepository() *OrderRepository {
	logger.WithField("component", "OrderRepository").
		Info("Creating new OrderRepository with MainDB")

	return &OrderRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Save inserts the order or, when the ID exists, overwrites it. Orders are
// saved again on every status transition.
func (r *OrderRepository) Save(
	ctx context.Context,
	order *model.Order,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":   "OrderRepository",
		"op":     "Save",
		"id":     order.ID,
		"symbol": order.Symbol,
		"status": order.Status,
	}).Debug("Saving order")

	if err := r.db.WithContext(ctx).Save(order).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "Save",
			"id":   order.ID,
		}).WithError(err).Error("Failed to save order")

		return err
	}

	return nil
}

// FindByID fetches a single order by its ID.
// Returns (nil, nil) if the order is not found.
func (r *OrderRepository) FindByID(
	ctx context.Context,
	id string,
) (*model.Order, error) {

	var order model.Order

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo": "OrderRepository",
				"op":   "FindByID",
				"id":   id,
			}).Info("Order not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch order by ID")

		return nil, err
	}

	return &order, nil
}

// OrderSearchOptions narrows Search. Nil filters are ignored; a zero Limit
// returns every match.
type OrderSearchOptions struct {
	Symbol        *string
	Status        *model.OrderStatus
	Strategy      *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}

func (r *OrderRepository) filtered(ctx context.Context, opts OrderSearchOptions) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.Order{})

	if opts.Symbol != nil {
		query = query.Where("symbol = ?", *opts.Symbol)
	}
	if opts.Status != nil {
		query = query.Where("status = ?", *opts.Status)
	}
	if opts.Strategy != nil {
		query = query.Where("strategy = ?", *opts.Strategy)
	}
	if opts.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *opts.CreatedAfter)
	}
	if opts.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *opts.CreatedBefore)
	}
	return query
}

// Search returns orders matching opts, newest first.
func (r *OrderRepository) Search(
	ctx context.Context,
	opts OrderSearchOptions,
) ([]model.Order, error) {

	query := r.filtered(ctx, opts).Order("created_at DESC, id DESC")
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to search orders")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "OrderRepository",
		"op":          "Search",
		"rows_return": len(orders),
	}).Debug("Orders searched")

	return orders, nil
}

// Count returns the number of orders matching opts, ignoring pagination.
func (r *OrderRepository) Count(
	ctx context.Context,
	opts OrderSearchOptions,
) (int64, error) {

	var total int64
	if err := r.filtered(ctx, opts).Count(&total).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "Count",
		}).WithError(err).Error("Failed to count orders")

		return 0, err
	}
	return total, nil
}
