package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"wealthflow/src/model"
)

func TestOrderRepositorySearch(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OrderRepository{db: mockDB}

	createdAt := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	orders := []model.Order{
		{ID: "o-1", Symbol: "AAPL", Side: model.OrderSideBuy, CreatedAt: createdAt, UpdatedAt: createdAt},
		{ID: "o-2", Symbol: "TSLA", Side: model.OrderSideBuy, CreatedAt: createdAt.Add(24 * time.Hour), UpdatedAt: createdAt.Add(24 * time.Hour)},
		{ID: "o-3", Symbol: "AAPL", Side: model.OrderSideSell, CreatedAt: createdAt.Add(48 * time.Hour), UpdatedAt: createdAt.Add(48 * time.Hour)},
	}

	orderRows := func(returned ...model.Order) *sqlmock.Rows {
		rows := sqlmock.NewRows([]string{"id", "symbol", "side", "created_at", "updated_at"})
		for _, order := range returned {
			rows.AddRow(order.ID, order.Symbol, order.Side, order.CreatedAt, order.UpdatedAt)
		}
		return rows
	}

	t.Run("no filters", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" ORDER BY created_at DESC, id DESC`)).
			WillReturnRows(orderRows(orders[2], orders[1], orders[0]))

		results, err := repo.Search(context.Background(), OrderSearchOptions{})
		if err != nil {
			t.Fatalf("unexpected error searching orders: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 orders, got %d", len(results))
		}
		if results[0].ID != "o-3" {
			t.Fatalf("orders not returned newest first: %+v", results)
		}
	})

	t.Run("filters by symbol and created window", func(t *testing.T) {
		filters := OrderSearchOptions{
			Symbol:        ptrString("AAPL"),
			CreatedAfter:  ptrTime(createdAt.Add(-time.Hour)),
			CreatedBefore: ptrTime(createdAt.Add(36 * time.Hour)),
		}

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE symbol = $1 AND created_at >= $2 AND created_at <= $3 ORDER BY created_at DESC, id DESC`)).
			WithArgs(*filters.Symbol, *filters.CreatedAfter, *filters.CreatedBefore).
			WillReturnRows(orderRows(orders[0]))

		results, err := repo.Search(context.Background(), filters)
		if err != nil {
			t.Fatalf("unexpected error searching orders: %v", err)
		}
		if len(results) != 1 || results[0].ID != "o-1" {
			t.Fatalf("unexpected orders returned: %+v", results)
		}
	})

	t.Run("filters by status", func(t *testing.T) {
		status := model.OrderStatusFilled
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE status = $1 ORDER BY created_at DESC, id DESC`)).
			WithArgs(status).
			WillReturnRows(orderRows(orders[1]))

		results, err := repo.Search(context.Background(), OrderSearchOptions{Status: &status})
		if err != nil {
			t.Fatalf("unexpected error searching orders: %v", err)
		}
		if len(results) != 1 || results[0].Symbol != "TSLA" {
			t.Fatalf("unexpected orders returned: %+v", results)
		}
	})

	t.Run("applies pagination", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE symbol = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`)).
			WithArgs("AAPL", 1, 1).
			WillReturnRows(orderRows(orders[0]))

		results, err := repo.Search(context.Background(), OrderSearchOptions{Symbol: ptrString("AAPL"), Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("unexpected error searching orders: %v", err)
		}
		if len(results) != 1 || results[0].ID != "o-1" {
			t.Fatalf("unexpected paginated order: %+v", results)
		}
	})

	t.Run("counts ignoring pagination", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "orders" WHERE symbol = $1`)).
			WithArgs("AAPL").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		total, err := repo.Count(context.Background(), OrderSearchOptions{Symbol: ptrString("AAPL"), Limit: 1})
		if err != nil {
			t.Fatalf("unexpected error counting orders: %v", err)
		}
		if total != 2 {
			t.Fatalf("expected 2, got %d", total)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func ptrString(val string) *string {
	return &val
}

func ptrTime(val time.Time) *time.Time {
	return &val
}
