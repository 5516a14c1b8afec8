package models

import (
	"time"

	"github.com/google/uuid"
)

// BankAccount is a verified payout destination. The gateway recipient
// code is created once when the account is added; the primary account's
// code is also copied onto the user row for fast release-time lookups.
type BankAccount struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`

	AccountNumber     string `gorm:"column:account_number;not null" json:"accountNumber"`
	BankName          string `gorm:"column:bank_name;not null" json:"bankName"`
	BankCode          string `gorm:"column:bank_code;not null" json:"bankCode"`
	AccountHolderName string `gorm:"column:account_holder_name;not null" json:"accountHolderName"`

	PaystackRecipientCode string `gorm:"column:paystack_recipient_code;not null" json:"-"`
	IsVerified            bool   `gorm:"column:is_verified;not null;default:false" json:"isVerified"`
	IsPrimary             bool   `gorm:"column:is_primary;not null;default:false" json:"isPrimary"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
