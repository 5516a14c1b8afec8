package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/handova/handova-backend/pkg/db/models"
	"github.com/handova/handova-backend/pkg/enums"
)

// CreateOrderInput carries the buyer's purchase request.
type CreateOrderInput struct {
	BuyerID         uuid.UUID
	ProductID       uuid.UUID
	Amount          decimal.Decimal
	ShippingAddress *string
	BuyerPhone      *string
	Notes           *string
}

// VerifyReleaseInput carries a seller's release-code submission.
type VerifyReleaseInput struct {
	SellerID uuid.UUID
	OrderID  uuid.UUID
	Code     string
}

// VerifyReleaseResult reports the outcome of a successful verification.
type VerifyReleaseResult struct {
	Order  *models.Order           `json:"order"`
	Payout *models.PayoutQueueEntry `json:"payout,omitempty"`
}

// OrderStatusView is the read model returned by GetStatus.
type OrderStatusView struct {
	OrderID               uuid.UUID         `json:"order_id"`
	Status                enums.OrderStatus `json:"status"`
	FailedReleaseAttempts int               `json:"failed_release_attempts"`
	AttemptsRemaining     int               `json:"attempts_remaining"`
	PaidAt                *time.Time        `json:"paid_at,omitempty"`
	ReleasedAt            *time.Time        `json:"released_at,omitempty"`
	ExpiresAt             *time.Time        `json:"expires_at,omitempty"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
