package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/handova/handova-backend/pkg/db/models"
	"github.com/handova/handova-backend/pkg/enums"
	"github.com/handova/handova-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payouts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindEntry(ctx context.Context, payoutID uuid.UUID) (*models.PayoutQueueEntry, error) {
	var entry models.PayoutQueueEntry
	err := r.db.WithContext(ctx).
		Where("id = ?", payoutID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListDue returns pending entries scheduled on or before dueBy, oldest
// queued first for fairness.
func (r *repository) ListDue(ctx context.Context, dueBy time.Time) ([]models.PayoutQueueEntry, error) {
	var entries []models.PayoutQueueEntry
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_payout_date <= ?", enums.PayoutStatusPending, dueBy).
		Order("queued_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ClaimEntry flips a pending entry to processing. A false result means a
// concurrent run owns the entry; the caller must skip it.
func (r *repository) ClaimEntry(ctx context.Context, payoutID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PayoutQueueEntry{}).
		Where("id = ? AND status = ?", payoutID, enums.PayoutStatusPending).
		Update("status", enums.PayoutStatusProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkProcessed(ctx context.Context, payoutID uuid.UUID, processedAt time.Time, transferReference string) error {
	return r.db.WithContext(ctx).
		Model(&models.PayoutQueueEntry{}).
		Where("id = ?", payoutID).
		Updates(map[string]any{
			"status":             enums.PayoutStatusProcessed,
			"processed_at":       processedAt,
			"transfer_reference": transferReference,
			"failure_reason":     nil,
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, payoutID uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.PayoutQueueEntry{}).
		Where("id = ?", payoutID).
		Updates(map[string]any{
			"status":             enums.PayoutStatusFailed,
			"failure_reason":     reason,
			"transfer_reference": nil,
		}).Error
}

// ResetForRetry re-enters a failed entry into the batch cycle. Conditional
// on the current status so a concurrent admin retry cannot double-apply.
func (r *repository) ResetForRetry(ctx context.Context, payoutID uuid.UUID, scheduled time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PayoutQueueEntry{}).
		Where("id = ? AND status = ?", payoutID, enums.PayoutStatusFailed).
		Updates(map[string]any{
			"status":                enums.PayoutStatusPending,
			"failure_reason":        nil,
			"scheduled_payout_date": scheduled,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CompleteOrder finishes the linked order once its payout settles. A row
// that already left AwaitingPayout is left alone.
func (r *repository) CompleteOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusAwaitingPayout).
		Update("status", enums.OrderStatusCompleted).Error
}

func (r *repository) ListSellerPayouts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*PayoutList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.PayoutQueueEntry{}).
		Where("seller_id = ?", sellerID)
	if cursor != nil {
		query = query.Where(
			"queued_at < ? OR (queued_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.PayoutQueueEntry
	err = query.
		Order("queued_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &PayoutList{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.QueuedAt,
			ID:        last.ID,
		})
	}
	list.Payouts = rows
	return list, nil
}

// ListScheduledFor returns the pending entries booked on one calendar day.
func (r *repository) ListScheduledFor(ctx context.Context, day time.Time) ([]models.PayoutQueueEntry, error) {
	var entries []models.PayoutQueueEntry
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_payout_date >= ? AND scheduled_payout_date < ?",
			enums.PayoutStatusPending, day, day.AddDate(0, 0, 1)).
		Order("queued_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) CountScheduledFor(ctx context.Context, day time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PayoutQueueEntry{}).
		Where("status = ? AND scheduled_payout_date >= ? AND scheduled_payout_date < ?",
			enums.PayoutStatusPending, day, day.AddDate(0, 0, 1)).
		Count(&count).Error
	return count, err
}

func (r *repository) AggregateByStatus(ctx context.Context) ([]StatusAggregate, error) {
	var rows []StatusAggregate
	err := r.db.WithContext(ctx).
		Model(&models.PayoutQueueEntry{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
