package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/handova/handova-backend/pkg/db/models"
	"github.com/handova/handova-backend/pkg/enums"
	"github.com/handova/handova-backend/pkg/pagination"
)

// Repository defines persistence operations for the escrow order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error)
	ExpireStalePending(ctx context.Context, cutoff time.Time) (int64, error)
	IncrementFailedReleaseAttempts(ctx context.Context, orderID uuid.UUID) (int, error)
	MarkProductSold(ctx context.Context, productID uuid.UUID, soldAt time.Time) error
	CreatePayoutEntry(ctx context.Context, entry *models.PayoutQueueEntry) error
	HasPayoutEntry(ctx context.Context, orderID uuid.UUID) (bool, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*OrderList, error)
}
