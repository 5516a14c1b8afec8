package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/handova/handova-backend/pkg/enums"
)

// Order is one escrow purchase attempt for a single product. Parties and
// the product are held as opaque foreign keys; lookups go through the
// store, never embedded navigation.
type Order struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BuyerID  uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyerId"`
	SellerID uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index" json:"sellerId"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index" json:"productId"`

	Amount decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`

	// PaymentReference is the gateway transaction id, unique once set.
	PaymentReference *string           `gorm:"column:payment_reference;uniqueIndex" json:"paymentReference,omitempty"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`

	// ReleaseCode is the 6-digit code the buyer hands the seller. It is
	// retained after use for audit.
	ReleaseCode           *string `gorm:"column:release_code;size:6" json:"releaseCode,omitempty"`
	FailedReleaseAttempts int     `gorm:"column:failed_release_attempts;not null;default:0" json:"failedReleaseAttempts"`

	ShippingAddress *string `gorm:"column:shipping_address" json:"shippingAddress,omitempty"`
	BuyerPhone      *string `gorm:"column:buyer_phone" json:"buyerPhone,omitempty"`
	Notes           *string `gorm:"column:notes" json:"notes,omitempty"`

	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	PaidAt     *time.Time `gorm:"column:paid_at" json:"paidAt,omitempty"`
	ReleasedAt *time.Time `gorm:"column:released_at" json:"releasedAt,omitempty"`
	ExpiresAt  *time.Time `gorm:"column:expires_at" json:"expiresAt,omitempty"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
