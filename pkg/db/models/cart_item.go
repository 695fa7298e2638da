package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line in a user's cart. A product/variant pair appears at
// most once per user; repeated adds bump the quantity.
type CartItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_cart_items_user_product_variant,priority:1"`
	ProductID      uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_items_user_product_variant,priority:2"`
	VariantID      *uuid.UUID `gorm:"column:variant_id;type:uuid;uniqueIndex:idx_cart_items_user_product_variant,priority:3"`
	Quantity       int        `gorm:"column:quantity;not null"`
	UnitPriceCents int        `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
