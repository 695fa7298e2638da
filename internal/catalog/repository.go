package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/pkg/db/models"
	"github.com/amezav/storefront-backend/pkg/enums"
	"github.com/amezav/storefront-backend/pkg/pagination"
)

// Repository wires together all catalog persistence helpers.
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

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductDetail fetches a product with options, values, and its
// non-archived variants. Archived variants stay resolvable through order
// history but never surface on product reads.
func (r *Repository) GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Options.Values", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Where("archived = ?", false).Order("position ASC")
		}).
		Preload("Variants.OptionValues").
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads a product by its storefront slug with full associations.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return r.GetProductDetail(ctx, product.ID)
}

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct updates an existing product row.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product by ID. FK cascades take the option,
// value, variant, and inventory rows with it.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// ListOptions returns the product's options with values, in display order.
func (r *Repository) ListOptions(ctx context.Context, productID uuid.UUID) ([]models.ProductOption, error) {
	var rows []models.ProductOption
	err := r.db.WithContext(ctx).
		Preload("Values", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("product_id = ?", productID).
		Order("position ASC").
		Find(&rows).
		Error
	return rows, err
}

// CreateOption inserts an option row.
func (r *Repository) CreateOption(ctx context.Context, option *models.ProductOption) error {
	if option.ID == uuid.Nil {
		option.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(option).Error
}

// UpdateOptionPosition moves an option in the display order.
func (r *Repository) UpdateOptionPosition(ctx context.Context, optionID uuid.UUID, position int) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductOption{}).
		Where("id = ?", optionID).
		Update("position", position).
		Error
}

// CreateOptionValue inserts a value row under an option.
func (r *Repository) CreateOptionValue(ctx context.Context, value *models.ProductOptionValue) error {
	if value.ID == uuid.Nil {
		value.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(value).Error
}

// UpdateOptionValuePosition moves a value in the display order.
func (r *Repository) UpdateOptionValuePosition(ctx context.Context, valueID uuid.UUID, position int) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductOptionValue{}).
		Where("id = ?", valueID).
		Update("position", position).
		Error
}

// ListActiveVariants returns the product's non-archived variants with their
// option-value links.
func (r *Repository) ListActiveVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	var rows []models.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("OptionValues").
		Where("product_id = ? AND archived = ?", productID, false).
		Order("position ASC").
		Find(&rows).
		Error
	return rows, err
}

// FindArchivedVariantBySignature returns the archived variant carrying the
// signature, or gorm.ErrRecordNotFound when the signature never existed or is
// still active.
func (r *Repository) FindArchivedVariantBySignature(ctx context.Context, productID uuid.UUID, signature string) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND signature = ? AND archived = ?", productID, signature, true).
		First(&variant).
		Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// CreateVariant inserts a variant row and links it to its option values.
func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant, valueIDs []uuid.UUID) error {
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	tx := r.db.WithContext(ctx)
	if err := tx.Create(variant).Error; err != nil {
		return err
	}
	for _, valueID := range valueIDs {
		link := map[string]any{"variant_id": variant.ID, "option_value_id": valueID}
		if err := tx.Table("variant_option_values").Create(link).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpdateVariantFields applies a scalar field update to an existing variant.
func (r *Repository) UpdateVariantFields(ctx context.Context, variantID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Updates(fields).
		Error
}

// ArchiveVariant soft-deletes a variant so historical orders stay resolvable.
func (r *Repository) ArchiveVariant(ctx context.Context, variantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Update("archived", true).
		Error
}

// DeleteVariant removes an unreferenced variant and its value links.
func (r *Repository) DeleteVariant(ctx context.Context, variantID uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Exec("DELETE FROM variant_option_values WHERE variant_id = ?", variantID).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", variantID).Delete(&models.ProductVariant{}).Error
}

// VariantReferencedByOrders reports whether any order line points at the
// variant.
func (r *Repository) VariantReferencedByOrders(ctx context.Context, variantID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("variant_id = ?", variantID).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountVariantsUsingImage counts variants referencing the media row,
// excluding the given variant. Zero means the variant owns the image
// exclusively.
func (r *Repository) CountVariantsUsingImage(ctx context.Context, imageID, excludeVariantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("image_id = ? AND id <> ?", imageID, excludeVariantID).
		Count(&count).
		Error
	return count, err
}

// FindMedia loads a media row by ID.
func (r *Repository) FindMedia(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	var media models.Media
	if err := r.db.WithContext(ctx).First(&media, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &media, nil
}

// DeleteMedia removes a media row.
func (r *Repository) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Media{}).Error
}

type productListQuery struct {
	Pagination pagination.Params
	Filters    ProductListFilters
}

// ListProductSummaries returns one cursor page of product summaries.
func (r *Repository) ListProductSummaries(ctx context.Context, query productListQuery) (*ProductListResult, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	variantCountClause := "(SELECT COUNT(*) FROM product_variants v WHERE v.product_id = p.id AND v.archived = FALSE)"

	qb := r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join([]string{
			"p.id",
			"p.title",
			"p.slug",
			"p.status",
			"p.category_id",
			"p.base_price_cents",
			"p.compare_at_price_cents",
			"p.created_at",
			"p.updated_at",
			variantCountClause + " AS variant_count",
		}, ", "))

	filter := query.Filters
	if filter.Status != nil {
		qb = qb.Where("p.status = ?", *filter.Status)
	}
	if filter.CategoryID != nil {
		qb = qb.Where("p.category_id = ?", *filter.CategoryID)
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(p.title) LIKE ? OR LOWER(p.slug) LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("p.created_at DESC").Order("p.id DESC").Limit(limitWithBuffer)

	var records []productSummaryRecord
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > pageSize {
		resultRows = records[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]ProductSummary, 0, len(resultRows))
	for _, record := range resultRows {
		summaries = append(summaries, record.toSummary())
	}

	return &ProductListResult{
		Products:   summaries,
		NextCursor: nextCursor,
	}, nil
}

type productSummaryRecord struct {
	ID                  uuid.UUID
	Title               string
	Slug                string
	Status              string
	CategoryID          *uuid.UUID
	BasePriceCents      int
	CompareAtPriceCents *int
	VariantCount        int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (r productSummaryRecord) toSummary() ProductSummary {
	return ProductSummary{
		ID:                  r.ID,
		Title:               r.Title,
		Slug:                r.Slug,
		Status:              enums.ProductStatus(r.Status),
		CategoryID:          r.CategoryID,
		BasePriceCents:      r.BasePriceCents,
		CompareAtPriceCents: r.CompareAtPriceCents,
		VariantCount:        r.VariantCount,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}
