package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/internal/inventory"
	"github.com/amezav/storefront-backend/pkg/db"
	"github.com/amezav/storefront-backend/pkg/db/models"
	"github.com/amezav/storefront-backend/pkg/enums"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
	"github.com/amezav/storefront-backend/pkg/logger"
	"github.com/amezav/storefront-backend/pkg/outbox"
	"github.com/amezav/storefront-backend/pkg/outbox/payloads"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// objectRemover deletes stored objects after a commit released their media
// rows. Removal is best effort; a leaked object is logged, never fatal.
type objectRemover interface {
	Remove(ctx context.Context, gcsKey string) error
}

// Service exposes catalog management and read operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
}

type service struct {
	repo     *Repository
	ledger   *inventory.Repository
	dbClient *db.Client
	outbox   outboxPublisher
	objects  objectRemover
	logg     *logger.Logger
}

// NewService constructs the catalog service. The object remover is optional;
// without one, released storage objects are simply left in place.
func NewService(
	repo *Repository,
	ledger *inventory.Repository,
	dbClient *db.Client,
	publisher outboxPublisher,
	objects objectRemover,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		ledger:   ledger,
		dbClient: dbClient,
		outbox:   publisher,
		objects:  objects,
		logg:     logg,
	}, nil
}

// CreateProduct creates the product with its option schema, variants, and
// stock rows in one transaction.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	var createdID uuid.UUID
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txLedger := s.ledger.WithTx(tx)

		product := &models.Product{
			ID:                  uuid.New(),
			Title:               strings.TrimSpace(input.Title),
			Slug:                strings.TrimSpace(input.Slug),
			Description:         input.Description,
			Status:              input.Status,
			CategoryID:          input.CategoryID,
			BasePriceCents:      input.BasePriceCents,
			CompareAtPriceCents: input.CompareAtPriceCents,
		}
		created, err := txRepo.CreateProduct(ctx, product)
		if err != nil {
			if db.IsUniqueViolation(err, "idx_products_slug") {
				return pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		createdID = created.ID

		valueIDs, err := reconcileOptions(ctx, txRepo, created.ID, input.Options)
		if err != nil {
			return err
		}

		if len(input.Variants) == 0 {
			key := inventory.ProductStock(created.ID)
			if _, err := txLedger.Create(ctx, key, input.Stock); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create product stock")
			}
			return nil
		}

		_, err = reconcileVariants(ctx, txRepo, txLedger, created, input.Variants, valueIDs, len(input.Options))
		return err
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	return s.GetProduct(ctx, createdID)
}

// UpdateProduct applies scalar edits and, when the payload carries a variant
// schema, runs the full option and variant reconciliation atomically.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
	}
	if input.BasePriceCents != nil && *input.BasePriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price must be non-negative")
	}

	var result *ReconcileResult
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txLedger := s.ledger.WithTx(tx)

		applyUpdateToProduct(product, input)
		if _, err := txRepo.UpdateProduct(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "idx_products_slug") {
				return pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}

		if input.Variants == nil {
			if input.Stock != nil {
				key := inventory.ProductStock(product.ID)
				if err := txLedger.SetQuantity(ctx, key, *input.Stock); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: set product stock")
				}
			}
			return nil
		}

		valueIDs, err := reconcileOptions(ctx, txRepo, product.ID, input.Options)
		if err != nil {
			return err
		}

		result, err = reconcileVariants(ctx, txRepo, txLedger, product, *input.Variants, valueIDs, len(input.Options))
		if err != nil {
			return err
		}

		if _, noChange := result.Classification.(NoSpaceChange); !noChange {
			return s.emitSpaceChangedEvent(ctx, tx, product.ID, result)
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	if result != nil {
		s.removeReleasedObjects(ctx, result.ReleasedMediaKeys)
	}
	return s.GetProduct(ctx, productID)
}

// DeleteProduct removes a product and relies on FK cascades for related rows.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

// GetProduct loads the full product read shape with live stock.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return s.assembleDTO(ctx, product)
}

// GetProductBySlug loads the product read shape addressed by slug.
func (s *service) GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	product, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return s.assembleDTO(ctx, product)
}

// ListProducts returns a cursor page of product summaries.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	return s.repo.ListProductSummaries(ctx, productListQuery{
		Pagination: input.Pagination,
		Filters:    input.Filters,
	})
}

func (s *service) assembleDTO(ctx context.Context, product *models.Product) (*ProductDTO, error) {
	keys := make([]inventory.StockKey, 0, len(product.Variants)+1)
	if len(product.Variants) == 0 {
		keys = append(keys, inventory.ProductStock(product.ID))
	}
	for _, variant := range product.Variants {
		keys = append(keys, inventory.VariantStock(product.ID, variant.ID))
	}

	quantities, err := s.ledger.GetQuantities(ctx, keys)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}

	variantStock := make(map[uuid.UUID]int, len(product.Variants))
	for _, variant := range product.Variants {
		variantStock[variant.ID] = quantities[inventory.VariantStock(product.ID, variant.ID)]
	}
	var productStock *int
	if len(product.Variants) == 0 {
		qty := quantities[inventory.ProductStock(product.ID)]
		productStock = &qty
	}
	return NewProductDTO(product, variantStock, productStock), nil
}

func (s *service) emitSpaceChangedEvent(ctx context.Context, tx *gorm.DB, productID uuid.UUID, result *ReconcileResult) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventVariantSpaceChange,
		AggregateType: enums.AggregateProduct,
		AggregateID:   productID,
		Data: payloads.VariantSpaceChangedEvent{
			ProductID:        productID,
			Classification:   classificationLabel(result.Classification),
			CreatedVariants:  len(result.CreatedVariantIDs),
			ArchivedVariants: len(result.ArchivedVariantIDs),
			DeletedVariants:  len(result.DeletedVariantIDs),
		},
		Version: 1,
	}
	return s.outbox.Emit(ctx, tx, event)
}

func (s *service) removeReleasedObjects(ctx context.Context, keys []string) {
	if s.objects == nil || len(keys) == 0 {
		return
	}
	for _, key := range keys {
		if err := s.objects.Remove(ctx, key); err != nil && s.logg != nil {
			logCtx := s.logg.WithField(ctx, "gcs_key", key)
			s.logg.Error(logCtx, "remove released object", err)
		}
	}
}

func classificationLabel(change SpaceChange) string {
	switch change.(type) {
	case NoSpaceChange:
		return "no_space_change"
	case SpaceExpands:
		return "space_expands"
	case SpaceContracts:
		return "space_contracts"
	case SpaceMixed:
		return "space_mixed"
	default:
		return "unknown"
	}
}

func validateCreateInput(input CreateProductInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if strings.TrimSpace(input.Slug) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	if !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
	}
	if input.BasePriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "base price must be non-negative")
	}
	if input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}
	if len(input.Variants) > 0 && len(input.Options) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "variants require at least one option")
	}
	return nil
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) {
	if input.Title != nil {
		product.Title = strings.TrimSpace(*input.Title)
	}
	if input.Slug != nil {
		product.Slug = strings.TrimSpace(*input.Slug)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Status != nil {
		product.Status = *input.Status
	}
	if input.CategoryID != nil {
		product.CategoryID = input.CategoryID
	}
	if input.BasePriceCents != nil {
		product.BasePriceCents = *input.BasePriceCents
	}
	if input.CompareAtPriceCents != nil {
		product.CompareAtPriceCents = input.CompareAtPriceCents
	}
}
