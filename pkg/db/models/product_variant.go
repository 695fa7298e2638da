package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant is a concrete purchasable combination of option values.
// Signature is the canonical identity of the combination: the sorted option
// value IDs joined with "|". Uniqueness is enforced per product among
// non-archived rows only, so a retired combination can come back later.
// Stock is never stored here; InventoryItem is the single source of truth.
type ProductVariant struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ProductID           uuid.UUID            `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_variants_signature,priority:1,where:archived = FALSE"`
	Signature           string               `gorm:"column:signature;not null;uniqueIndex:idx_product_variants_signature,priority:2"`
	SKU                 *string              `gorm:"column:sku"`
	PriceCents          int                  `gorm:"column:price_cents;not null"`
	CompareAtPriceCents *int                 `gorm:"column:compare_at_price_cents"`
	ImageID             *uuid.UUID           `gorm:"column:image_id;type:uuid"`
	Archived            bool                 `gorm:"column:archived;not null;default:false"`
	Position            int                  `gorm:"column:position;not null;default:0"`
	OptionValues        []ProductOptionValue `gorm:"many2many:variant_option_values;joinForeignKey:VariantID;joinReferences:OptionValueID"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
