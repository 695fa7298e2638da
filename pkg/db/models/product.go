package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amezav/storefront-backend/pkg/enums"
)

// Product represents the canonical catalog listing.
type Product struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Title               string              `gorm:"column:title;not null"`
	Slug                string              `gorm:"column:slug;not null;uniqueIndex"`
	Description         *string             `gorm:"column:description"`
	Status              enums.ProductStatus `gorm:"column:status;not null;default:'draft'"`
	CategoryID          *uuid.UUID          `gorm:"column:category_id;type:uuid"`
	BasePriceCents      int                 `gorm:"column:base_price_cents;not null"`
	CompareAtPriceCents *int                `gorm:"column:compare_at_price_cents"`
	Options             []ProductOption     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Variants            []ProductVariant    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
