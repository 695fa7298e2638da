package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amezav/storefront-backend/pkg/enums"
	"github.com/amezav/storefront-backend/pkg/types"
)

// Order represents a customer order produced by checkout.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	OrderNumber     int64               `gorm:"column:order_number;not null;uniqueIndex"`
	Status          enums.OrderStatus   `gorm:"column:status;not null;default:'pending'"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;not null;default:'card'"`
	Currency        string              `gorm:"column:currency;not null;default:'USD'"`
	SubtotalCents   int                 `gorm:"column:subtotal_cents;not null"`
	TotalCents      int                 `gorm:"column:total_cents;not null"`
	ShippingAddress *types.Address      `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CancelledAt     *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
