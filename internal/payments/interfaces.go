package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/handova/handova-backend/pkg/db/models"
	"github.com/handova/handova-backend/pkg/paystack"
)

// OrderEscrow is the slice of the order service the payment flow drives.
type OrderEscrow interface {
	GetOrder(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error)
	AttachPaymentReference(ctx context.Context, buyerID, orderID uuid.UUID, reference string) (*models.Order, error)
	RecordPaymentConfirmed(ctx context.Context, paymentReference string) (*models.Order, error)
}

// UserDirectory resolves the payer's contact details for the gateway.
type UserDirectory interface {
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// ChargeGateway is the slice of the payment gateway used for charges.
type ChargeGateway interface {
	InitializeTransaction(ctx context.Context, email string, amount decimal.Decimal, reference string) (*paystack.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}
