package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/handova/handova-backend/pkg/db/models"
	"github.com/handova/handova-backend/pkg/enums"
	pkgerrors "github.com/handova/handova-backend/pkg/errors"
	"github.com/handova/handova-backend/pkg/logger"
	"github.com/handova/handova-backend/pkg/paystack"
	"github.com/handova/handova-backend/pkg/redis"
)

// webhookDedupTTL bounds how long a processed webhook reference is
// remembered. The gateway stops retrying well inside this window.
const webhookDedupTTL = 24 * time.Hour

const webhookScope = "webhook"

// InitializeResult is the redirect handle handed back to the buyer.
type InitializeResult struct {
	OrderID          uuid.UUID `json:"order_id"`
	AuthorizationURL string    `json:"authorization_url"`
	AccessCode       string    `json:"access_code"`
	Reference        string    `json:"reference"`
}

// Service drives a charge from initialization through confirmation.
type Service interface {
	InitializePayment(ctx context.Context, buyerID, orderID uuid.UUID) (*InitializeResult, error)
	ConfirmPayment(ctx context.Context, reference string) (*models.Order, error)
	HandleWebhook(ctx context.Context, signature string, body []byte) error
}

// ServiceParams configure the payment service.
type ServiceParams struct {
	Orders      OrderEscrow
	Users       UserDirectory
	Gateway     ChargeGateway
	Idempotency redis.IdempotencyStore
	Logger      *logger.Logger

	// WebhookSecret signs incoming webhooks; for Paystack this is the
	// account secret key.
	WebhookSecret string
	NowFunc       func() time.Time
}

type service struct {
	orders        OrderEscrow
	users         UserDirectory
	gateway       ChargeGateway
	idempotency   redis.IdempotencyStore
	logg          *logger.Logger
	webhookSecret string
	now           func() time.Time
}

// NewService builds the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("charge gateway required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.NowFunc
	if now == nil {
		now = time.Now
	}
	return &service{
		orders:        params.Orders,
		users:         params.Users,
		gateway:       params.Gateway,
		idempotency:   params.Idempotency,
		logg:          params.Logger,
		webhookSecret: params.WebhookSecret,
		now:           now,
	}, nil
}

// InitializePayment creates a gateway charge for a pending order. The
// reference is attached to the order before the gateway sees it, so a
// confirmation can always find its order.
func (s *service) InitializePayment(ctx context.Context, buyerID, orderID uuid.UUID) (*InitializeResult, error) {
	order, err := s.orders.GetOrder(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can pay for this order")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status})
	}
	if order.ExpiresAt != nil && s.now().UTC().After(*order.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has expired")
	}

	buyer, err := s.users.FindUser(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}

	reference := paystack.NewPaymentReference(order.ID)
	if _, err := s.orders.AttachPaymentReference(ctx, buyerID, order.ID, reference); err != nil {
		return nil, err
	}

	charge, err := s.gateway.InitializeTransaction(ctx, buyer.Email, order.Amount, reference)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "reference", charge.Reference), "payment initialized")

	return &InitializeResult{
		OrderID:          order.ID,
		AuthorizationURL: charge.AuthorizationURL,
		AccessCode:       charge.AccessCode,
		Reference:        charge.Reference,
	}, nil
}

// ConfirmPayment verifies a charge with the gateway and, on success,
// moves the order into escrow. Safe to call repeatedly for the same
// reference.
func (s *service) ConfirmPayment(ctx context.Context, reference string) (*models.Order, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	verified, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !verified.Succeeded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has not succeeded").
			WithDetails(map[string]any{"gateway_status": verified.Status})
	}

	return s.orders.RecordPaymentConfirmed(ctx, reference)
}

// HandleWebhook processes a gateway notification. The signature gates
// entry, a Redis SETNX on the reference deduplicates retries, and the
// charge is re-verified with the gateway before the order moves.
func (s *service) HandleWebhook(ctx context.Context, signature string, body []byte) error {
	if !ValidSignature(s.webhookSecret, body, signature) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature invalid")
	}

	event, err := ParseWebhook(body)
	if err != nil {
		return err
	}
	if event.Event != eventChargeSuccess {
		s.logg.Info(s.logg.WithField(ctx, "event", event.Event), "ignoring webhook event")
		return nil
	}
	reference := event.Data.Reference
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook reference missing")
	}

	key := s.idempotency.IdempotencyKey(webhookScope, reference)
	fresh, err := s.idempotency.SetNX(ctx, key, s.now().UTC().Format(time.RFC3339), webhookDedupTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook dedup")
	}
	if !fresh {
		s.logg.Info(s.logg.WithField(ctx, "reference", reference), "duplicate webhook, already processed")
		return nil
	}

	if _, err := s.ConfirmPayment(ctx, reference); err != nil {
		// Release the dedup key so a gateway retry can reprocess.
		if delErr := s.idempotency.Del(ctx, key); delErr != nil {
			s.logg.Error(ctx, "failed to release webhook dedup key", delErr)
		}
		return err
	}

	s.logg.Info(s.logg.WithField(ctx, "reference", reference), "webhook payment confirmed")
	return nil
}
