package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductOption is one purchasable axis of a product, e.g. "Size" or "Color".
type ProductOption struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID            `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_options_product_name,priority:1"`
	Name      string               `gorm:"column:name;not null;uniqueIndex:idx_product_options_product_name,priority:2"`
	Position  int                  `gorm:"column:position;not null;default:0"`
	Values    []ProductOptionValue `gorm:"foreignKey:OptionID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
