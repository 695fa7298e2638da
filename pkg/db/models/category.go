package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a node in the storefront category tree.
type Category struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ParentID    *uuid.UUID `gorm:"column:parent_id;type:uuid"`
	Name        string     `gorm:"column:name;not null"`
	Slug        string     `gorm:"column:slug;not null;uniqueIndex"`
	Position    int        `gorm:"column:position;not null;default:0"`
	IconMediaID *uuid.UUID `gorm:"column:icon_media_id;type:uuid"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
