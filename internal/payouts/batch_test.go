package payouts

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/handova/handova-backend/pkg/db/models"
	"github.com/handova/handova-backend/pkg/enums"
	pkgerrors "github.com/handova/handova-backend/pkg/errors"
	"github.com/handova/handova-backend/pkg/logger"
	"github.com/handova/handova-backend/pkg/pagination"
	"github.com/handova/handova-backend/pkg/paystack"
)

type stubPayoutsRepo struct {
	entries map[uuid.UUID]*models.PayoutQueueEntry
	orders  map[uuid.UUID]*models.Order

	listDueErr      error
	markProcessed   func(ctx context.Context, payoutID uuid.UUID, processedAt time.Time, transferReference string) error
	completedOrders []uuid.UUID
}

func newStubPayoutsRepo() *stubPayoutsRepo {
	return &stubPayoutsRepo{
		entries: make(map[uuid.UUID]*models.PayoutQueueEntry),
		orders:  make(map[uuid.UUID]*models.Order),
	}
}

func (s *stubPayoutsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubPayoutsRepo) FindEntry(ctx context.Context, payoutID uuid.UUID) (*models.PayoutQueueEntry, error) {
	entry, ok := s.entries[payoutID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *entry
	return &clone, nil
}

func (s *stubPayoutsRepo) ListDue(ctx context.Context, dueBy time.Time) ([]models.PayoutQueueEntry, error) {
	if s.listDueErr != nil {
		return nil, s.listDueErr
	}
	var due []models.PayoutQueueEntry
	for _, entry := range s.entries {
		if entry.Status == enums.PayoutStatusPending && !entry.ScheduledPayoutDate.After(dueBy) {
			due = append(due, *entry)
		}
	}
	return due, nil
}

func (s *stubPayoutsRepo) ClaimEntry(ctx context.Context, payoutID uuid.UUID) (bool, error) {
	entry, ok := s.entries[payoutID]
	if !ok || entry.Status != enums.PayoutStatusPending {
		return false, nil
	}
	entry.Status = enums.PayoutStatusProcessing
	return true, nil
}

func (s *stubPayoutsRepo) MarkProcessed(ctx context.Context, payoutID uuid.UUID, processedAt time.Time, transferReference string) error {
	if s.markProcessed != nil {
		return s.markProcessed(ctx, payoutID, processedAt, transferReference)
	}
	entry, ok := s.entries[payoutID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	entry.Status = enums.PayoutStatusProcessed
	entry.ProcessedAt = &processedAt
	entry.TransferReference = &transferReference
	entry.FailureReason = nil
	return nil
}

func (s *stubPayoutsRepo) MarkFailed(ctx context.Context, payoutID uuid.UUID, reason string) error {
	entry, ok := s.entries[payoutID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	entry.Status = enums.PayoutStatusFailed
	entry.FailureReason = &reason
	entry.TransferReference = nil
	return nil
}

func (s *stubPayoutsRepo) ResetForRetry(ctx context.Context, payoutID uuid.UUID, scheduled time.Time) (bool, error) {
	entry, ok := s.entries[payoutID]
	if !ok || entry.Status != enums.PayoutStatusFailed {
		return false, nil
	}
	entry.Status = enums.PayoutStatusPending
	entry.FailureReason = nil
	entry.ScheduledPayoutDate = scheduled
	return true, nil
}

func (s *stubPayoutsRepo) CompleteOrder(ctx context.Context, orderID uuid.UUID) error {
	s.completedOrders = append(s.completedOrders, orderID)
	if order, ok := s.orders[orderID]; ok && order.Status == enums.OrderStatusAwaitingPayout {
		order.Status = enums.OrderStatusCompleted
	}
	return nil
}

func (s *stubPayoutsRepo) ListSellerPayouts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*PayoutList, error) {
	panic("not implemented")
}

func (s *stubPayoutsRepo) ListScheduledFor(ctx context.Context, day time.Time) ([]models.PayoutQueueEntry, error) {
	next := day.AddDate(0, 0, 1)
	var entries []models.PayoutQueueEntry
	for _, entry := range s.entries {
		if entry.Status != enums.PayoutStatusPending {
			continue
		}
		if !entry.ScheduledPayoutDate.Before(day) && entry.ScheduledPayoutDate.Before(next) {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (s *stubPayoutsRepo) CountScheduledFor(ctx context.Context, day time.Time) (int64, error) {
	var count int64
	for _, entry := range s.entries {
		if entry.Status == enums.PayoutStatusPending && entry.ScheduledPayoutDate.Equal(day) {
			count++
		}
	}
	return count, nil
}

func (s *stubPayoutsRepo) AggregateByStatus(ctx context.Context) ([]StatusAggregate, error) {
	totals := map[enums.PayoutStatus]*StatusAggregate{}
	for _, entry := range s.entries {
		agg, ok := totals[entry.Status]
		if !ok {
			agg = &StatusAggregate{Status: entry.Status, Total: decimal.Zero}
			totals[entry.Status] = agg
		}
		agg.Count++
		agg.Total = agg.Total.Add(entry.Amount)
	}
	var rows []StatusAggregate
	for _, agg := range totals {
		rows = append(rows, *agg)
	}
	return rows, nil
}

type stubGateway struct {
	calls  []string
	errFor map[string]error
}

func (s *stubGateway) InitiateTransfer(ctx context.Context, recipientCode string, amount decimal.Decimal, reference string) error {
	s.calls = append(s.calls, recipientCode)
	if s.errFor != nil {
		if err, ok := s.errFor[recipientCode]; ok {
			return err
		}
	}
	return nil
}

type stubBatchTx struct{}

func (stubBatchTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

var batchNow = time.Date(2025, time.January, 17, 9, 0, 0, 0, time.UTC) // Friday

func newTestEngine(t *testing.T, repo *stubPayoutsRepo, gateway *stubGateway) *Engine {
	t.Helper()

	engine, err := NewEngine(EngineParams{
		Repo:    repo,
		Tx:      stubBatchTx{},
		Gateway: gateway,
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		NowFunc: func() time.Time { return batchNow },
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func seedEntry(repo *stubPayoutsRepo, recipient string, scheduled time.Time, queued time.Time) *models.PayoutQueueEntry {
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusAwaitingPayout}
	repo.orders[order.ID] = order

	entry := &models.PayoutQueueEntry{
		ID:                  uuid.New(),
		OrderID:             order.ID,
		SellerID:            uuid.New(),
		SellerRecipientCode: recipient,
		Amount:              decimal.RequireFromString("250.00"),
		QueuedAt:            queued,
		ScheduledPayoutDate: scheduled,
		Status:              enums.PayoutStatusPending,
	}
	repo.entries[entry.ID] = entry
	return entry
}

func TestProcessDuePayoutsSuccess(t *testing.T) {
	repo := newStubPayoutsRepo()
	gateway := &stubGateway{}
	engine := newTestEngine(t, repo, gateway)

	entry := seedEntry(repo, "RCP_1", batchNow.Add(-time.Hour), batchNow.Add(-48*time.Hour))

	result, err := engine.ProcessDuePayouts(context.Background())
	if err != nil {
		t.Fatalf("process due payouts: %v", err)
	}
	if result.SuccessCount != 1 || result.FailureCount != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	stored := repo.entries[entry.ID]
	if stored.Status != enums.PayoutStatusProcessed {
		t.Fatalf("expected processed, got %s", stored.Status)
	}
	if stored.ProcessedAt == nil || stored.TransferReference == nil {
		t.Fatal("processed_at/transfer_reference not stamped")
	}
	if !strings.HasPrefix(*stored.TransferReference, "TRF-") {
		t.Fatalf("unexpected transfer reference %q", *stored.TransferReference)
	}
	if repo.orders[entry.OrderID].Status != enums.OrderStatusCompleted {
		t.Fatal("linked order not completed")
	}
}

func TestProcessDuePayoutsSkipsFutureEntries(t *testing.T) {
	repo := newStubPayoutsRepo()
	gateway := &stubGateway{}
	engine := newTestEngine(t, repo, gateway)

	seedEntry(repo, "RCP_1", batchNow.Add(48*time.Hour), batchNow.Add(-time.Hour))

	result, err := engine.ProcessDuePayouts(context.Background())
	if err != nil {
		t.Fatalf("process due payouts: %v", err)
	}
	if result.SuccessCount != 0 || result.FailureCount != 0 || len(gateway.calls) != 0 {
		t.Fatalf("future entry must not be settled: %+v calls=%d", result, len(gateway.calls))
	}
}

func TestProcessDuePayoutsIsolatesFailures(t *testing.T) {
	repo := newStubPayoutsRepo()
	gateway := &stubGateway{errFor: map[string]error{
		"RCP_BAD": pkgerrors.New(pkgerrors.CodeDependency, "paystack declined the transfer"),
	}}
	engine := newTestEngine(t, repo, gateway)

	bad := seedEntry(repo, "RCP_BAD", batchNow.Add(-2*time.Hour), batchNow.Add(-72*time.Hour))
	good := seedEntry(repo, "RCP_OK", batchNow.Add(-time.Hour), batchNow.Add(-48*time.Hour))

	result, err := engine.ProcessDuePayouts(context.Background())
	if err != nil {
		t.Fatalf("process due payouts: %v", err)
	}
	if result.SuccessCount != 1 || result.FailureCount != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], bad.ID.String()) {
		t.Fatalf("expected one error naming the failed payout, got %v", result.Errors)
	}

	if repo.entries[bad.ID].Status != enums.PayoutStatusFailed {
		t.Fatalf("bad entry not failed: %s", repo.entries[bad.ID].Status)
	}
	if repo.entries[bad.ID].FailureReason == nil {
		t.Fatal("failure reason not recorded")
	}
	// The failed entry's order stays retryable without a new release code.
	if repo.orders[bad.OrderID].Status != enums.OrderStatusAwaitingPayout {
		t.Fatalf("failed payout must leave order untouched, got %s", repo.orders[bad.OrderID].Status)
	}
	if repo.entries[good.ID].Status != enums.PayoutStatusProcessed {
		t.Fatalf("sibling entry must still settle, got %s", repo.entries[good.ID].Status)
	}
}

func TestProcessDuePayoutsDoubleRunSingleTransfer(t *testing.T) {
	repo := newStubPayoutsRepo()
	gateway := &stubGateway{}
	engine := newTestEngine(t, repo, gateway)

	seedEntry(repo, "RCP_1", batchNow.Add(-time.Hour), batchNow.Add(-48*time.Hour))

	first, err := engine.ProcessDuePayouts(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := engine.ProcessDuePayouts(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.SuccessCount != 1 || second.SuccessCount != 0 {
		t.Fatalf("expected exactly one settlement, got %d then %d", first.SuccessCount, second.SuccessCount)
	}
	if len(gateway.calls) != 1 {
		t.Fatalf("expected exactly one transfer, got %d", len(gateway.calls))
	}
}

func TestProcessDuePayoutsOverlappingClaim(t *testing.T) {
	repo := newStubPayoutsRepo()
	gateway := &stubGateway{}
	engine := newTestEngine(t, repo, gateway)

	// Another run claimed the entry after the scan but before our claim.
	entry := seedEntry(repo, "RCP_1", batchNow.Add(-time.Hour), batchNow.Add(-48*time.Hour))
	due, err := repo.ListDue(context.Background(), batchNow)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	repo.entries[entry.ID].Status = enums.PayoutStatusProcessing

	result := &BatchResult{}
	engine.processEntry(context.Background(), &due[0], result)

	if result.SkippedCount != 1 || result.SuccessCount != 0 || result.FailureCount != 0 {
		t.Fatalf("claimed entry must be skipped, got %+v", result)
	}
	if len(gateway.calls) != 0 {
		t.Fatal("skipped entry must not reach the gateway")
	}
}

func TestProcessDuePayoutsUnknownOutcome(t *testing.T) {
	repo := newStubPayoutsRepo()
	gateway := &stubGateway{errFor: map[string]error{
		"RCP_1": pkgerrors.Wrap(pkgerrors.CodeDependency, paystack.ErrOutcomeUnknown, "transfer timed out"),
	}}
	engine := newTestEngine(t, repo, gateway)

	entry := seedEntry(repo, "RCP_1", batchNow.Add(-time.Hour), batchNow.Add(-48*time.Hour))

	result, err := engine.ProcessDuePayouts(context.Background())
	if err != nil {
		t.Fatalf("process due payouts: %v", err)
	}
	if result.FailureCount != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	reason := repo.entries[entry.ID].FailureReason
	if reason == nil || !strings.Contains(*reason, "outcome unknown") {
		t.Fatalf("unknown outcome must be flagged for reconciliation, got %v", reason)
	}
}

func TestProcessDuePayoutsBatchLevelFailure(t *testing.T) {
	repo := newStubPayoutsRepo()
	repo.listDueErr = gorm.ErrInvalidDB
	engine := newTestEngine(t, repo, &stubGateway{})

	if _, err := engine.ProcessDuePayouts(context.Background()); err == nil {
		t.Fatal("expected batch-level error when the store is unreachable")
	}
}
