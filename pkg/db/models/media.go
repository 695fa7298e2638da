package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amezav/storefront-backend/pkg/enums"
)

// Media captures metadata for uploaded objects.
type Media struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Kind      enums.MediaKind `gorm:"column:kind;not null"`
	URL       *string         `gorm:"column:url"`
	GCSKey    string          `gorm:"column:gcs_key;not null;unique"`
	FileName  string          `gorm:"column:file_name;not null"`
	MimeType  string          `gorm:"column:mime_type;not null"`
	SizeBytes int64           `gorm:"column:size_bytes;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
