package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/handova/handova-backend/pkg/db/models"
	pkgerrors "github.com/handova/handova-backend/pkg/errors"
	"github.com/handova/handova-backend/pkg/logger"
	"github.com/handova/handova-backend/pkg/metrics"
	"github.com/handova/handova-backend/pkg/paystack"
	"github.com/shopspring/decimal"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TransferGateway is the slice of the payment gateway the batch engine uses.
type TransferGateway interface {
	InitiateTransfer(ctx context.Context, recipientCode string, amount decimal.Decimal, reference string) error
}

// Engine drains due payout queue entries. Each entry commits on its own;
// one bad entry never rolls back its siblings.
type Engine struct {
	repo    Repository
	tx      txRunner
	gateway TransferGateway
	logg    *logger.Logger
	metrics *metrics.PayoutMetrics
	now     func() time.Time
}

// EngineParams configure the batch settlement engine.
type EngineParams struct {
	Repo    Repository
	Tx      txRunner
	Gateway TransferGateway
	Logger  *logger.Logger
	Metrics *metrics.PayoutMetrics
	NowFunc func() time.Time
}

// NewEngine builds a batch settlement engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("transfer gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.NowFunc
	if now == nil {
		now = time.Now
	}
	return &Engine{
		repo:    params.Repo,
		tx:      params.Tx,
		gateway: params.Gateway,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// ProcessDuePayouts settles every pending entry whose scheduled date has
// arrived, oldest first. It returns an error only for batch-level
// infrastructure failures; per-entry outcomes land in the result.
func (e *Engine) ProcessDuePayouts(ctx context.Context) (*BatchResult, error) {
	start := e.now().UTC()
	due, err := e.repo.ListDue(ctx, start)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan due payouts")
	}

	ctx = e.logg.WithField(ctx, "due_count", len(due))
	e.logg.Info(ctx, "payout batch starting")

	result := &BatchResult{}
	for i := range due {
		e.processEntry(ctx, &due[i], result)
	}

	e.metrics.ObserveBatch(e.now().UTC().Sub(start))
	ctx = e.logg.WithFields(ctx, map[string]any{
		"succeeded": result.SuccessCount,
		"failed":    result.FailureCount,
		"skipped":   result.SkippedCount,
	})
	e.logg.Info(ctx, "payout batch complete")
	return result, nil
}

func (e *Engine) processEntry(ctx context.Context, entry *models.PayoutQueueEntry, result *BatchResult) {
	ctx = e.logg.WithPayoutID(ctx, entry.ID.String())
	ctx = e.logg.WithOrderID(ctx, entry.OrderID.String())

	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("panic while settling payout: %v", r)
			e.recordFailure(ctx, entry, reason, result)
		}
	}()

	claimed, err := e.repo.ClaimEntry(ctx, entry.ID)
	if err != nil {
		e.recordFailure(ctx, entry, fmt.Sprintf("claim payout: %v", err), result)
		return
	}
	if !claimed {
		// Another run holds this entry; skipping keeps the transfer unique.
		result.SkippedCount++
		e.metrics.IncSkipped()
		e.logg.Info(ctx, "payout already claimed, skipping")
		return
	}

	reference := paystack.NewTransferReference(entry.ID)
	if err := e.gateway.InitiateTransfer(ctx, entry.SellerRecipientCode, entry.Amount, reference); err != nil {
		reason := err.Error()
		if errors.Is(err, paystack.ErrOutcomeUnknown) {
			reason = fmt.Sprintf("transfer %s outcome unknown, reconcile with gateway before retrying", reference)
		}
		e.recordFailure(ctx, entry, reason, result)
		return
	}

	processedAt := e.now().UTC()
	err = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		if err := repo.MarkProcessed(ctx, entry.ID, processedAt, reference); err != nil {
			return fmt.Errorf("mark payout processed: %w", err)
		}
		if err := repo.CompleteOrder(ctx, entry.OrderID); err != nil {
			return fmt.Errorf("complete order: %w", err)
		}
		return nil
	})
	if err != nil {
		// The money moved but the bookkeeping did not. Record the transfer
		// reference so support can reconcile instead of re-transferring.
		reason := fmt.Sprintf("transfer %s initiated but completion not recorded: %v", reference, err)
		e.recordFailure(ctx, entry, reason, result)
		return
	}

	result.SuccessCount++
	e.metrics.IncProcessed()
	e.logg.Info(e.logg.WithField(ctx, "transfer_reference", reference), "payout settled")
}

func (e *Engine) recordFailure(ctx context.Context, entry *models.PayoutQueueEntry, reason string, result *BatchResult) {
	if err := e.repo.MarkFailed(ctx, entry.ID, reason); err != nil {
		e.logg.Error(ctx, "failed to record payout failure", err)
		reason = fmt.Sprintf("%s (additionally failed to persist: %v)", reason, err)
	}
	result.FailureCount++
	result.Errors = append(result.Errors, fmt.Sprintf("payout %s: %s", entry.ID, reason))
	e.metrics.IncFailed()
	e.logg.Warn(e.logg.WithField(ctx, "reason", reason), "payout failed")
}
