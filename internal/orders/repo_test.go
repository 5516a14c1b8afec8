package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/handova/handova-backend/pkg/db/models"
	"github.com/handova/handova-backend/pkg/enums"
	"github.com/handova/handova-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  full_name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'user',
  paystack_recipient_code TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL,
  is_deleted INTEGER NOT NULL DEFAULT 0,
  is_sold INTEGER NOT NULL DEFAULT 0,
  sold_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  payment_reference TEXT UNIQUE,
  status TEXT NOT NULL DEFAULT 'pending',
  release_code TEXT,
  failed_release_attempts INTEGER NOT NULL DEFAULT 0,
  shipping_address TEXT,
  buyer_phone TEXT,
  notes TEXT,
  created_at DATETIME,
  paid_at DATETIME,
  released_at DATETIME,
  expires_at DATETIME,
  updated_at DATETIME
);`
	payoutQueue := `
CREATE TABLE IF NOT EXISTS payout_queue (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  seller_id TEXT NOT NULL,
  seller_recipient_code TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  queued_at DATETIME NOT NULL,
  scheduled_payout_date DATETIME NOT NULL,
  processed_at DATETIME,
  status TEXT NOT NULL DEFAULT 'pending',
  transfer_reference TEXT,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(payoutQueue).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, buyerID, sellerID uuid.UUID, status enums.OrderStatus, created time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:        uuid.New(),
		BuyerID:   buyerID,
		SellerID:  sellerID,
		ProductID: uuid.New(),
		Amount:    decimal.RequireFromString("120.00"),
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepositoryTransitionStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusAwaitingRelease, time.Now().UTC())

	released := time.Now().UTC()
	claimed, err := repo.TransitionStatus(ctx, order.ID,
		[]enums.OrderStatus{enums.OrderStatusAwaitingRelease},
		enums.OrderStatusAwaitingPayout,
		map[string]any{"released_at": released})
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim on the same row must lose.
	claimed, err = repo.TransitionStatus(ctx, order.ID,
		[]enums.OrderStatus{enums.OrderStatusAwaitingRelease},
		enums.OrderStatusAwaitingPayout, nil)
	require.NoError(t, err)
	assert.False(t, claimed)

	stored, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAwaitingPayout, stored.Status)
	require.NotNil(t, stored.ReleasedAt)
}

func TestRepositoryIncrementFailedReleaseAttempts(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusAwaitingRelease, time.Now().UTC())

	for want := 1; want <= 3; want++ {
		got, err := repo.IncrementFailedReleaseAttempts(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRepositoryPayoutEntryUniquePerOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusAwaitingPayout, time.Now().UTC())

	entry := &models.PayoutQueueEntry{
		ID:                  uuid.New(),
		OrderID:             order.ID,
		SellerID:            order.SellerID,
		SellerRecipientCode: "RCP_1",
		Amount:              order.Amount,
		QueuedAt:            time.Now().UTC(),
		ScheduledPayoutDate: time.Now().UTC().Add(48 * time.Hour),
		Status:              enums.PayoutStatusPending,
	}
	require.NoError(t, repo.CreatePayoutEntry(ctx, entry))

	exists, err := repo.HasPayoutEntry(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	dup := *entry
	dup.ID = uuid.New()
	assert.Error(t, repo.CreatePayoutEntry(ctx, &dup))
}

func TestRepositoryListBuyerOrders_pagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	buyerID := uuid.New()
	now := time.Now().UTC()
	older := seedOrder(t, db, buyerID, uuid.New(), enums.OrderStatusCompleted, now.Add(-time.Hour))
	newer := seedOrder(t, db, buyerID, uuid.New(), enums.OrderStatusPending, now)
	seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusPending, now) // other buyer

	list, err := repo.ListBuyerOrders(ctx, buyerID, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, newer.ID, list.Orders[0].ID)
	assert.NotEmpty(t, list.NextCursor)

	second, err := repo.ListBuyerOrders(ctx, buyerID, pagination.Params{Limit: 1, Cursor: list.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, older.ID, second.Orders[0].ID)
	assert.Empty(t, second.NextCursor)
}

func TestRepositoryListSellerOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sellerID := uuid.New()
	now := time.Now().UTC()
	seedOrder(t, db, uuid.New(), sellerID, enums.OrderStatusAwaitingRelease, now)
	seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusAwaitingRelease, now)

	list, err := repo.ListSellerOrders(ctx, sellerID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, sellerID, list.Orders[0].SellerID)
}
