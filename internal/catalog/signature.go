package catalog

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/amezav/storefront-backend/pkg/db/models"
)

// Signature is the canonical, order-independent identity of a variant: the
// sorted option-value IDs joined with "|". Two variants linked to the same
// value set always produce the same signature regardless of payload order.
type Signature string

// ComputeSignature derives the signature for a set of option-value IDs.
func ComputeSignature(valueIDs []uuid.UUID) Signature {
	parts := make([]string, 0, len(valueIDs))
	for _, id := range valueIDs {
		parts = append(parts, id.String())
	}
	sort.Strings(parts)
	return Signature(strings.Join(parts, "|"))
}

// VariantSignature derives the signature from a persisted variant's links.
func VariantSignature(variant models.ProductVariant) Signature {
	ids := make([]uuid.UUID, 0, len(variant.OptionValues))
	for _, value := range variant.OptionValues {
		ids = append(ids, value.ID)
	}
	return ComputeSignature(ids)
}
