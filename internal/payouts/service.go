package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/handova/handova-backend/pkg/db/models"
	"github.com/handova/handova-backend/pkg/enums"
	pkgerrors "github.com/handova/handova-backend/pkg/errors"
	"github.com/handova/handova-backend/pkg/pagination"
)

// Service exposes the admin and seller-facing queue operations.
type Service interface {
	RetryFailedPayout(ctx context.Context, payoutID uuid.UUID) (*models.PayoutQueueEntry, error)
	GetPayout(ctx context.Context, payoutID uuid.UUID) (*models.PayoutQueueEntry, error)
	ListSellerPayouts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*PayoutList, error)
	ListPendingForDate(ctx context.Context, day time.Time) ([]models.PayoutQueueEntry, error)
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo           Repository
	nextPayoutDate func(time.Time) time.Time
	now            func() time.Time
}

// NewService builds the payout queue service.
func NewService(repo Repository, nextPayoutDate func(time.Time) time.Time, nowFunc func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if nextPayoutDate == nil {
		nextPayoutDate = NextPayoutDate
	}
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &service{
		repo:           repo,
		nextPayoutDate: nextPayoutDate,
		now:            nowFunc,
	}, nil
}

// RetryFailedPayout re-enters a failed entry into the batch cycle with a
// schedule computed from the retry instant, not the original queue time.
func (s *service) RetryFailedPayout(ctx context.Context, payoutID uuid.UUID) (*models.PayoutQueueEntry, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}

	entry, err := s.repo.FindEntry(ctx, payoutID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	if entry.Status != enums.PayoutStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only failed payouts can be retried")
	}

	scheduled := s.nextPayoutDate(s.now().UTC())
	reset, err := s.repo.ResetForRetry(ctx, entry.ID, scheduled)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset payout")
	}
	if !reset {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only failed payouts can be retried")
	}

	entry.Status = enums.PayoutStatusPending
	entry.FailureReason = nil
	entry.ScheduledPayoutDate = scheduled
	return entry, nil
}

func (s *service) GetPayout(ctx context.Context, payoutID uuid.UUID) (*models.PayoutQueueEntry, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	entry, err := s.repo.FindEntry(ctx, payoutID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	return entry, nil
}

func (s *service) ListSellerPayouts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*PayoutList, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListSellerPayouts(ctx, sellerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller payouts")
	}
	return list, nil
}

// ListPendingForDate is the admin preview of what a given batch day will
// attempt to settle.
func (s *service) ListPendingForDate(ctx context.Context, day time.Time) ([]models.PayoutQueueEntry, error) {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	entries, err := s.repo.ListScheduledFor(ctx, day)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list scheduled payouts")
	}
	return entries, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.repo.AggregateByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate payout queue")
	}

	stats := &Stats{
		TotalPendingAmount:   decimal.Zero,
		TotalProcessedAmount: decimal.Zero,
	}
	for _, row := range rows {
		switch row.Status {
		case enums.PayoutStatusPending:
			stats.TotalPending = row.Count
			stats.TotalPendingAmount = row.Total
		case enums.PayoutStatusProcessed:
			stats.TotalProcessed = row.Count
			stats.TotalProcessedAmount = row.Total
		case enums.PayoutStatusFailed:
			stats.TotalFailed = row.Count
		}
	}

	nextDate := s.nextPayoutDate(s.now().UTC())
	stats.NextScheduledDate = nextDate

	count, err := s.repo.CountScheduledFor(ctx, nextDate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count next-date payouts")
	}
	stats.PayoutsScheduledForNextDate = count
	return stats, nil
}
