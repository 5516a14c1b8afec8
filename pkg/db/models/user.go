package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/handova/handova-backend/pkg/enums"
)

// User carries the fields the escrow core reads: identity for
// authorization and the primary payout recipient snapshot. Profile CRUD
// and authentication are external collaborators.
type User struct {
	ID       uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email    string     `gorm:"column:email;not null;uniqueIndex" json:"email"`
	FullName string     `gorm:"column:full_name;not null" json:"fullName"`
	Role     enums.Role `gorm:"column:role;type:text;not null;default:'user'" json:"role"`

	// PaystackRecipientCode mirrors the primary bank account's recipient
	// code; nil means the seller cannot be queued for payout yet.
	PaystackRecipientCode *string `gorm:"column:paystack_recipient_code" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
