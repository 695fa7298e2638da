package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks on-hand stock per product, or per variant when
// VariantID is set. Quantity is guarded by a CHECK (quantity >= 0) constraint
// and all decrements go through conditional updates.
type InventoryItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_inventory_product_variant,priority:1"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid;uniqueIndex:idx_inventory_product_variant,priority:2"`
	Quantity  int        `gorm:"column:quantity;not null;default:0"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
