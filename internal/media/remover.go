package media

import (
	"context"
	"fmt"
)

type objectDeleter interface {
	DeleteObject(ctx context.Context, bucket, object string) error
}

// Remover deletes stored objects for media rows released by the catalog.
type Remover struct {
	gcs    objectDeleter
	bucket string
}

// NewRemover builds an object remover bound to a bucket.
func NewRemover(gcs objectDeleter, bucket string) (*Remover, error) {
	if gcs == nil {
		return nil, fmt.Errorf("gcs client required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	return &Remover{gcs: gcs, bucket: bucket}, nil
}

// Remove deletes the object identified by gcsKey from the configured bucket.
func (r *Remover) Remove(ctx context.Context, gcsKey string) error {
	return r.gcs.DeleteObject(ctx, r.bucket, gcsKey)
}
