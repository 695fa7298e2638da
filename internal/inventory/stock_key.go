package inventory

import (
	"fmt"

	"github.com/google/uuid"
)

// StockKey addresses one stock row: a product, or a specific variant of a
// product. VariantID equal to uuid.Nil means product-level stock. The zero
// sentinel never collides with a real variant because variant IDs are always
// generated.
type StockKey struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
}

// ProductStock builds the key for a product without variants.
func ProductStock(productID uuid.UUID) StockKey {
	return StockKey{ProductID: productID}
}

// VariantStock builds the key for a specific variant.
func VariantStock(productID, variantID uuid.UUID) StockKey {
	return StockKey{ProductID: productID, VariantID: variantID}
}

// KeyFor builds a key from a nullable variant reference as stored on cart and
// order rows.
func KeyFor(productID uuid.UUID, variantID *uuid.UUID) StockKey {
	if variantID == nil {
		return ProductStock(productID)
	}
	return VariantStock(productID, *variantID)
}

// HasVariant reports whether the key addresses variant-level stock.
func (k StockKey) HasVariant() bool {
	return k.VariantID != uuid.Nil
}

// VariantPtr returns the variant ID as a nullable column value.
func (k StockKey) VariantPtr() *uuid.UUID {
	if !k.HasVariant() {
		return nil
	}
	v := k.VariantID
	return &v
}

func (k StockKey) String() string {
	if !k.HasVariant() {
		return fmt.Sprintf("product %s", k.ProductID)
	}
	return fmt.Sprintf("product %s variant %s", k.ProductID, k.VariantID)
}
