package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/pkg/db/models"
)

// Repository persists the per-user cart working set.
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

// ListByUser returns the user's cart lines, oldest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// Find returns the cart line for a (user, product, variant) triple.
func (r *Repository) Find(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	qb := r.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID)
	if variantID != nil {
		qb = qb.Where("variant_id = ?", *variantID)
	} else {
		qb = qb.Where("variant_id IS NULL")
	}
	if err := qb.First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByID returns the cart line owned by the user.
func (r *Repository) FindByID(ctx context.Context, id, userID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).First(&item, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new cart line.
func (r *Repository) Create(ctx context.Context, item *models.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateQuantity sets the quantity and refreshes the price snapshot.
func (r *Repository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity, unitPriceCents int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"quantity":         quantity,
			"unit_price_cents": unitPriceCents,
		}).
		Error
}

// Delete removes one cart line owned by the user.
func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.CartItem{}).
		Error
}

// FindProduct loads the catalog product a cart line points at.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindVariant loads the catalog variant a cart line points at.
func (r *Repository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// Clear removes every cart line owned by the user.
func (r *Repository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).
		Error
}
