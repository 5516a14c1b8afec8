package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/handova/handova-backend/pkg/db"
	"github.com/handova/handova-backend/pkg/db/models"
	"github.com/handova/handova-backend/pkg/enums"
	pkgerrors "github.com/handova/handova-backend/pkg/errors"
	"github.com/handova/handova-backend/pkg/logger"
	"github.com/handova/handova-backend/pkg/pagination"
)

const (
	defaultReleaseWindow      = 72 * time.Hour
	defaultMaxReleaseAttempts = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Notifier is invoked after a transition commits. Implementations must not
// block; failures are logged, never propagated.
type Notifier interface {
	OrderCreated(ctx context.Context, order *models.Order)
	ReleaseCodeIssued(ctx context.Context, order *models.Order)
	OrderReleased(ctx context.Context, order *models.Order)
}

// Service owns the escrow order state machine and the release-code protocol.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	AttachPaymentReference(ctx context.Context, buyerID, orderID uuid.UUID, reference string) (*models.Order, error)
	RecordPaymentConfirmed(ctx context.Context, paymentReference string) (*models.Order, error)
	VerifyReleaseCode(ctx context.Context, input VerifyReleaseInput) (*VerifyReleaseResult, error)
	QueueReleasedOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*models.PayoutQueueEntry, error)
	GetStatus(ctx context.Context, orderID uuid.UUID) (*OrderStatusView, error)
	GetOrder(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*OrderList, error)
}

// ServiceParams configure the orders service.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Notifier Notifier
	Logger   *logger.Logger

	// NextPayoutDate maps a release instant to the scheduled disbursement
	// date. Injected so date-rule tests stay deterministic.
	NextPayoutDate func(time.Time) time.Time

	NowFunc            func() time.Time
	ReleaseWindow      time.Duration
	MaxReleaseAttempts int
}

type service struct {
	repo           Repository
	tx             txRunner
	notifier       Notifier
	logg           *logger.Logger
	nextPayoutDate func(time.Time) time.Time
	now            func() time.Time
	releaseWindow  time.Duration
	maxAttempts    int
}

// NewService builds the escrow order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.NextPayoutDate == nil {
		return nil, fmt.Errorf("payout schedule function required")
	}

	now := params.NowFunc
	if now == nil {
		now = time.Now
	}
	window := params.ReleaseWindow
	if window <= 0 {
		window = defaultReleaseWindow
	}
	maxAttempts := params.MaxReleaseAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxReleaseAttempts
	}

	return &service{
		repo:           params.Repo,
		tx:             params.Tx,
		notifier:       params.Notifier,
		logg:           params.Logger,
		nextPayoutDate: params.NextPayoutDate,
		now:            now,
		releaseWindow:  window,
		maxAttempts:    maxAttempts,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	product, err := s.repo.FindProduct(ctx, input.ProductID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.IsDeleted || product.IsSold {
		return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is no longer available")
	}
	if product.SellerID == input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot order your own product")
	}
	if !input.Amount.Equal(product.Price) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount does not match listing price")
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.releaseWindow)
	order := &models.Order{
		ID:              uuid.New(),
		BuyerID:         input.BuyerID,
		SellerID:        product.SellerID,
		ProductID:       product.ID,
		Amount:          input.Amount,
		Status:          enums.OrderStatusPending,
		ShippingAddress: input.ShippingAddress,
		BuyerPhone:      input.BuyerPhone,
		Notes:           input.Notes,
		CreatedAt:       now,
		ExpiresAt:       &expiresAt,
	}

	// A pending order does not reserve the item. Several buyers can hold
	// pending orders on one product; the first to pay and release wins.
	if _, err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	if s.notifier != nil {
		s.notifier.OrderCreated(ctx, order)
	}
	return order, nil
}

func (s *service) AttachPaymentReference(ctx context.Context, buyerID, orderID uuid.UUID, reference string) (*models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment can only be initialized on a pending order")
	}

	if err := s.repo.UpdateOrder(ctx, order.ID, map[string]any{"payment_reference": reference}); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment reference already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment reference")
	}

	order.PaymentReference = &reference
	return order, nil
}

// RecordPaymentConfirmed moves an order into AwaitingRelease once the
// gateway confirms the charge. Replayed callbacks for an order that already
// advanced return the order unchanged.
func (s *service) RecordPaymentConfirmed(ctx context.Context, paymentReference string) (*models.Order, error) {
	if paymentReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	order, err := s.repo.FindOrderByPaymentReference(ctx, paymentReference)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order for payment reference")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by reference")
	}

	switch order.Status {
	case enums.OrderStatusPending, enums.OrderStatusPaid:
		// fall through to the transition below
	case enums.OrderStatusAwaitingRelease, enums.OrderStatusAwaitingPayout, enums.OrderStatusCompleted:
		return order, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer accept payment confirmation")
	}

	code, err := GenerateReleaseCode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate release code")
	}

	now := s.now().UTC()
	claimed, err := s.repo.TransitionStatus(ctx, order.ID,
		[]enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusPaid},
		enums.OrderStatusAwaitingRelease,
		map[string]any{
			"paid_at":      now,
			"release_code": code,
		})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment")
	}
	if !claimed {
		// A concurrent callback already applied the transition.
		current, err := s.repo.FindOrder(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if current.Status == enums.OrderStatusAwaitingRelease || current.Status == enums.OrderStatusAwaitingPayout || current.Status == enums.OrderStatusCompleted {
			return current, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer accept payment confirmation")
	}

	order.Status = enums.OrderStatusAwaitingRelease
	order.PaidAt = &now
	order.ReleaseCode = &code

	if s.notifier != nil {
		s.notifier.ReleaseCodeIssued(ctx, order)
	}
	return order, nil
}

// VerifyReleaseCode is the core protocol. On a matching code the status
// transition, the product sold flip, and the payout enqueue commit as a
// single transaction; concurrent submissions serialize on the conditional
// status update.
func (s *service) VerifyReleaseCode(ctx context.Context, input VerifyReleaseInput) (*VerifyReleaseResult, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !isReleaseCodeFormat(input.Code) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "release code must be 6 digits")
	}

	order, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.SellerID != input.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to seller")
	}
	if order.Status != enums.OrderStatusAwaitingRelease {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting release")
	}
	if order.FailedReleaseAttempts >= s.maxAttempts {
		return nil, pkgerrors.New(pkgerrors.CodeTooManyAttempts, "release attempts exhausted")
	}
	if order.ReleaseCode == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order awaiting release without a code")
	}

	if *order.ReleaseCode != input.Code {
		attempts, err := s.repo.IncrementFailedReleaseAttempts(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record failed attempt")
		}
		remaining := s.maxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return nil, pkgerrors.New(pkgerrors.CodeInvalidReleaseCode, "release code does not match").
			WithDetails(map[string]any{"attempts_remaining": remaining})
	}

	seller, err := s.repo.FindUser(ctx, order.SellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	recipient := ""
	if seller.PaystackRecipientCode != nil {
		recipient = *seller.PaystackRecipientCode
	}

	now := s.now().UTC()
	var entry *models.PayoutQueueEntry
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		claimed, err := repo.TransitionStatus(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusAwaitingRelease},
			enums.OrderStatusAwaitingPayout,
			map[string]any{"released_at": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting release")
		}

		if err := repo.MarkProductSold(ctx, order.ProductID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark product sold")
		}

		// No recipient on file: commit the buyer-visible transition but
		// skip the enqueue. The seller remediates through QueueReleasedOrder.
		if recipient == "" {
			return nil
		}

		entry = &models.PayoutQueueEntry{
			ID:                  uuid.New(),
			OrderID:             order.ID,
			SellerID:            order.SellerID,
			SellerRecipientCode: recipient,
			Amount:              order.Amount,
			QueuedAt:            now,
			ScheduledPayoutDate: s.nextPayoutDate(now),
			Status:              enums.PayoutStatusPending,
		}
		if err := repo.CreatePayoutEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue payout")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusAwaitingPayout
	order.ReleasedAt = &now

	if recipient == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMissingPayout, "add bank details, then retry payout queuing").
			WithDetails(map[string]any{
				"order_id": order.ID,
				"status":   order.Status,
			})
	}

	if s.notifier != nil {
		s.notifier.OrderReleased(ctx, order)
	}
	return &VerifyReleaseResult{Order: order, Payout: entry}, nil
}

// QueueReleasedOrder enqueues the payout for an order that reached
// AwaitingPayout while its seller had no recipient on file.
func (s *service) QueueReleasedOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*models.PayoutQueueEntry, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to seller")
	}
	if order.Status != enums.OrderStatusAwaitingPayout {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payout")
	}

	queued, err := s.repo.HasPayoutEntry(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payout queue")
	}
	if queued {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payout already queued for order")
	}

	seller, err := s.repo.FindUser(ctx, order.SellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	if seller.PaystackRecipientCode == nil || *seller.PaystackRecipientCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMissingPayout, "add bank details, then retry payout queuing")
	}

	now := s.now().UTC()
	entry := &models.PayoutQueueEntry{
		ID:                  uuid.New(),
		OrderID:             order.ID,
		SellerID:            order.SellerID,
		SellerRecipientCode: *seller.PaystackRecipientCode,
		Amount:              order.Amount,
		QueuedAt:            now,
		ScheduledPayoutDate: s.nextPayoutDate(now),
		Status:              enums.PayoutStatusPending,
	}
	if err := s.repo.CreatePayoutEntry(ctx, entry); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payout already queued for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue payout")
	}
	return entry, nil
}

func (s *service) GetStatus(ctx context.Context, orderID uuid.UUID) (*OrderStatusView, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	remaining := s.maxAttempts - order.FailedReleaseAttempts
	if remaining < 0 {
		remaining = 0
	}
	return &OrderStatusView{
		OrderID:               order.ID,
		Status:                order.Status,
		FailedReleaseAttempts: order.FailedReleaseAttempts,
		AttemptsRemaining:     remaining,
		PaidAt:                order.PaidAt,
		ReleasedAt:            order.ReleasedAt,
		ExpiresAt:             order.ExpiresAt,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != actorID && order.SellerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListBuyerOrders(ctx, buyerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer orders")
	}
	return list, nil
}

func (s *service) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListSellerOrders(ctx, sellerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller orders")
	}
	return list, nil
}
