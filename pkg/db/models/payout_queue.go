package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/handova/handova-backend/pkg/enums"
)

// PayoutQueueEntry is a scheduled disbursement for a released order.
// SellerRecipientCode and Amount are snapshots taken at enqueue time so
// later bank-account edits never change a queued payout.
type PayoutQueueEntry struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID  uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex" json:"orderId"`
	SellerID uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index" json:"sellerId"`

	SellerRecipientCode string          `gorm:"column:seller_recipient_code;not null" json:"sellerRecipientCode"`
	Amount              decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`

	QueuedAt            time.Time  `gorm:"column:queued_at;not null" json:"queuedAt"`
	ScheduledPayoutDate time.Time  `gorm:"column:scheduled_payout_date;not null;index" json:"scheduledPayoutDate"`
	ProcessedAt         *time.Time `gorm:"column:processed_at" json:"processedAt,omitempty"`

	Status enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'pending';index" json:"status"`

	// TransferReference and FailureReason are mutually exclusive outcomes.
	TransferReference *string `gorm:"column:transfer_reference" json:"transferReference,omitempty"`
	FailureReason     *string `gorm:"column:failure_reason" json:"failureReason,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName keeps the historical singular table name.
func (PayoutQueueEntry) TableName() string {
	return "payout_queue"
}
