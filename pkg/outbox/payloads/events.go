package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreatedEvent signals a checkout that produced a new order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	TotalCents  int       `json:"total_cents"`
	ItemCount   int       `json:"item_count"`
}

// OrderCancelledEvent is emitted whenever a pre-shipment order is cancelled.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderStateChangedEvent reports a status transition on an order.
type OrderStateChangedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
}

// VariantSpaceChangedEvent reports that a product's variant space was
// reconciled: variants added, archived, or removed.
type VariantSpaceChangedEvent struct {
	ProductID        uuid.UUID `json:"product_id"`
	Classification   string    `json:"classification"`
	CreatedVariants  int       `json:"created_variants"`
	ArchivedVariants int       `json:"archived_variants"`
	DeletedVariants  int       `json:"deleted_variants"`
}

// StockDepletedEvent fires when a checkout takes a stock key to zero.
type StockDepletedEvent struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
}
