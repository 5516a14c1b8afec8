package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/handova/handova-backend/pkg/logger"
)

type pendingExpirer interface {
	ExpireStalePending(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrderExpiryJobParams configure the pending order sweep.
type OrderExpiryJobParams struct {
	Logger  *logger.Logger
	Orders  pendingExpirer
	NowFunc func() time.Time
}

// NewOrderExpiryJob builds the job that cancels unpaid orders whose
// payment window has closed.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	now := params.NowFunc
	if now == nil {
		now = time.Now
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		now:    now,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders pendingExpirer
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	expired, err := j.orders.ExpireStalePending(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire stale pending orders: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "count", expired), "order expiry sweep complete")
	return nil
}
