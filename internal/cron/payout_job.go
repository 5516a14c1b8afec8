package cron

import (
	"context"
	"fmt"

	"github.com/handova/handova-backend/internal/payouts"
	"github.com/handova/handova-backend/pkg/logger"
)

type payoutSettler interface {
	ProcessDuePayouts(ctx context.Context) (*payouts.BatchResult, error)
}

// PayoutSettlementJobParams configure the settlement job.
type PayoutSettlementJobParams struct {
	Logger *logger.Logger
	Engine payoutSettler
}

// NewPayoutSettlementJob builds the job that drains due payout queue
// entries on payout days.
func NewPayoutSettlementJob(params PayoutSettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("settlement engine required")
	}
	return &payoutSettlementJob{
		logg:   params.Logger,
		engine: params.Engine,
	}, nil
}

type payoutSettlementJob struct {
	logg   *logger.Logger
	engine payoutSettler
}

func (j *payoutSettlementJob) Name() string { return "payout-settlement" }

// Run drains the queue. Per-entry failures are already persisted on the
// entries and surfaced via metrics; only an aborted batch fails the job.
func (j *payoutSettlementJob) Run(ctx context.Context) error {
	result, err := j.engine.ProcessDuePayouts(ctx)
	if err != nil {
		return err
	}
	if result.FailureCount > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"failed": result.FailureCount,
			"errors": result.Errors,
		})
		j.logg.Warn(logCtx, "payout batch had failed entries")
	}
	return nil
}
