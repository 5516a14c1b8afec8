package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the narrow listing row the escrow flow needs: availability
// checks at order creation and the sold flip at release verification.
// Catalog concerns (search, media, categories) live elsewhere.
type Product struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SellerID uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index" json:"sellerId"`

	Name  string          `gorm:"column:name;not null" json:"name"`
	Price decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`

	IsDeleted bool       `gorm:"column:is_deleted;not null;default:false" json:"isDeleted"`
	IsSold    bool       `gorm:"column:is_sold;not null;default:false" json:"isSold"`
	SoldAt    *time.Time `gorm:"column:sold_at" json:"soldAt,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
