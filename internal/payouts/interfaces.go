package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/handova/handova-backend/pkg/db/models"
	"github.com/handova/handova-backend/pkg/pagination"
)

// Repository defines persistence operations for the payout queue.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindEntry(ctx context.Context, payoutID uuid.UUID) (*models.PayoutQueueEntry, error)
	ListDue(ctx context.Context, dueBy time.Time) ([]models.PayoutQueueEntry, error)
	ClaimEntry(ctx context.Context, payoutID uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, payoutID uuid.UUID, processedAt time.Time, transferReference string) error
	MarkFailed(ctx context.Context, payoutID uuid.UUID, reason string) error
	ResetForRetry(ctx context.Context, payoutID uuid.UUID, scheduled time.Time) (bool, error)
	CompleteOrder(ctx context.Context, orderID uuid.UUID) error
	ListSellerPayouts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*PayoutList, error)
	ListScheduledFor(ctx context.Context, day time.Time) ([]models.PayoutQueueEntry, error)
	CountScheduledFor(ctx context.Context, day time.Time) (int64, error)
	AggregateByStatus(ctx context.Context) ([]StatusAggregate, error)
}
