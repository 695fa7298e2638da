package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/pkg/db/models"
	"github.com/amezav/storefront-backend/pkg/enums"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
)

// AddItemInput is the payload to add a product (or variant) to the cart.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// ItemDTO is the read shape of one cart line.
type ItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int        `json:"unit_price_cents"`
	LineTotalCents int        `json:"line_total_cents"`
}

// DTO is the read shape of a whole cart.
type DTO struct {
	Items         []ItemDTO `json:"items"`
	ItemCount     int       `json:"item_count"`
	SubtotalCents int       `json:"subtotal_cents"`
}

// Service exposes cart mutations and reads for one user at a time.
type Service interface {
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*DTO, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*DTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*DTO, error)
	GetCart(ctx context.Context, userID uuid.UUID) (*DTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo *Repository
}

// NewService constructs the cart service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo}, nil
}

// AddItem upserts a cart line: a repeated add of the same product/variant
// pair bumps the quantity instead of creating a second row.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*DTO, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	unitPrice, err := s.resolveUnitPrice(ctx, input.ProductID, input.VariantID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Find(ctx, userID, input.ProductID, input.VariantID)
	switch {
	case err == nil:
		if err := s.repo.UpdateQuantity(ctx, existing.ID, existing.Quantity+input.Quantity, unitPrice); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: bump cart quantity")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item := &models.CartItem{
			ID:             uuid.New(),
			UserID:         userID,
			ProductID:      input.ProductID,
			VariantID:      input.VariantID,
			Quantity:       input.Quantity,
			UnitPriceCents: unitPrice,
		}
		if err := s.repo.Create(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert cart item")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart item")
	}

	return s.GetCart(ctx, userID)
}

// UpdateItemQuantity sets an exact quantity on an owned cart line.
func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*DTO, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	item, err := s.repo.FindByID(ctx, itemID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart item")
	}
	if err := s.repo.UpdateQuantity(ctx, item.ID, quantity, item.UnitPriceCents); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart quantity")
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem deletes one owned cart line.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*DTO, error) {
	if _, err := s.repo.FindByID(ctx, itemID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart item")
	}
	if err := s.repo.Delete(ctx, itemID, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart item")
	}
	return s.GetCart(ctx, userID)
}

// GetCart returns the user's cart with line and subtotal math applied.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*DTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list cart")
	}
	dto := &DTO{Items: make([]ItemDTO, 0, len(rows))}
	for _, row := range rows {
		lineTotal := row.UnitPriceCents * row.Quantity
		dto.Items = append(dto.Items, ItemDTO{
			ID:             row.ID,
			ProductID:      row.ProductID,
			VariantID:      row.VariantID,
			Quantity:       row.Quantity,
			UnitPriceCents: row.UnitPriceCents,
			LineTotalCents: lineTotal,
		})
		dto.ItemCount += row.Quantity
		dto.SubtotalCents += lineTotal
	}
	return dto, nil
}

// Clear empties the user's cart.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
	}
	return nil
}

// resolveUnitPrice snapshots the price the line will carry: the variant's
// price when a variant is addressed, otherwise the product's base price.
func (s *service) resolveUnitPrice(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if product.Status != enums.ProductStatusActive {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product is not purchasable")
	}
	if variantID == nil {
		return product.BasePriceCents, nil
	}

	variant, err := s.repo.FindVariant(ctx, *variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load variant")
	}
	if variant.ProductID != productID {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
	}
	if variant.Archived {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "variant is no longer sold")
	}
	return variant.PriceCents, nil
}
