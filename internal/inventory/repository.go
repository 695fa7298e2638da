package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/pkg/db/models"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
)

// Repository is the stock ledger. Every write that can race a concurrent
// checkout goes through a conditional update so the database, not application
// code, arbitrates the last unit.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a stock row for the key.
func (r *Repository) Create(ctx context.Context, key StockKey, quantity int) (*models.InventoryItem, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity must be non-negative")
	}
	item := &models.InventoryItem{
		ID:        uuid.New(),
		ProductID: key.ProductID,
		VariantID: key.VariantPtr(),
		Quantity:  quantity,
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Get returns the stock row for the key, or gorm.ErrRecordNotFound.
func (r *Repository) Get(ctx context.Context, key StockKey) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.scopeKey(r.db.WithContext(ctx), key).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// GetQuantities reads stock for all requested keys in one query. Keys with no
// stock row are absent from the result map.
func (r *Repository) GetQuantities(ctx context.Context, keys []StockKey) (map[StockKey]int, error) {
	quantities := make(map[StockKey]int, len(keys))
	if len(keys) == 0 {
		return quantities, nil
	}

	productIDs := make([]uuid.UUID, 0, len(keys))
	seen := make(map[uuid.UUID]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key.ProductID]; ok {
			continue
		}
		seen[key.ProductID] = struct{}{}
		productIDs = append(productIDs, key.ProductID)
	}

	var rows []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	byKey := make(map[StockKey]int, len(rows))
	for _, row := range rows {
		byKey[KeyFor(row.ProductID, row.VariantID)] = row.Quantity
	}
	for _, key := range keys {
		if qty, ok := byKey[key]; ok {
			quantities[key] = qty
		}
	}
	return quantities, nil
}

// Decrement subtracts quantity from the key's stock row only if enough stock
// remains. It reports whether the guard passed; a false return with nil error
// means the row was missing or held less than the requested quantity, and
// nothing was changed.
func (r *Repository) Decrement(ctx context.Context, key StockKey, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "decrement quantity must be positive")
	}
	result := r.scopeKey(r.db.WithContext(ctx).Model(&models.InventoryItem{}), key).
		Where("quantity >= ?", quantity).
		Update("quantity", gorm.Expr("quantity - ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Increment adds quantity back to the key's stock row, e.g. on cancellation.
func (r *Repository) Increment(ctx context.Context, key StockKey, quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "increment quantity must be positive")
	}
	result := r.scopeKey(r.db.WithContext(ctx).Model(&models.InventoryItem{}), key).
		Update("quantity", gorm.Expr("quantity + ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetQuantity overwrites the key's stock level, creating the row when absent.
func (r *Repository) SetQuantity(ctx context.Context, key StockKey, quantity int) error {
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantity must be non-negative")
	}
	result := r.scopeKey(r.db.WithContext(ctx).Model(&models.InventoryItem{}), key).
		Update("quantity", quantity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		_, err := r.Create(ctx, key, quantity)
		return err
	}
	return nil
}

// DeleteForVariant removes the stock row of a hard-deleted variant.
func (r *Repository) DeleteForVariant(ctx context.Context, productID, variantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("product_id = ? AND variant_id = ?", productID, variantID).
		Delete(&models.InventoryItem{}).
		Error
}

func (r *Repository) scopeKey(qb *gorm.DB, key StockKey) *gorm.DB {
	qb = qb.Where("product_id = ?", key.ProductID)
	if key.HasVariant() {
		return qb.Where("variant_id = ?", key.VariantID)
	}
	return qb.Where("variant_id IS NULL")
}
