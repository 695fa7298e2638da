package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductOptionValue is a durable value within an option axis, e.g. "XL".
// The row keeps its ID for the lifetime of the value so variant signatures
// built from it stay stable.
type ProductOptionValue struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OptionID  uuid.UUID `gorm:"column:option_id;type:uuid;not null;uniqueIndex:idx_option_values_option_value,priority:1"`
	Value     string    `gorm:"column:value;not null;uniqueIndex:idx_option_values_option_value,priority:2"`
	Position  int       `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
