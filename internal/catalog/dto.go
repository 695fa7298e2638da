package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/amezav/storefront-backend/pkg/db/models"
	"github.com/amezav/storefront-backend/pkg/enums"
	"github.com/amezav/storefront-backend/pkg/pagination"
)

// OptionValueInput is one value under an option axis. ID is the identifier
// the client composed its variants with: either a durable UUID for an
// existing value or a locally generated reference for a value that does not
// exist yet.
type OptionValueInput struct {
	ID    string
	Value string
}

// OptionInput is one option axis with its full value list, in display order.
type OptionInput struct {
	Name   string
	Values []OptionValueInput
}

// VariantInput describes one desired variant. A nil ID means the client
// considers it new; identity is ultimately decided by signature, not by this
// field. OptionValues is keyed by option name and references values through
// the same identifiers used in Options.
type VariantInput struct {
	ID                  *uuid.UUID
	OptionValues        map[string]OptionValueInput
	Stock               int
	PriceCents          *int
	CompareAtPriceCents *int
	SKU                 *string
	ImageID             *uuid.UUID
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Title               string
	Slug                string
	Description         *string
	Status              enums.ProductStatus
	CategoryID          *uuid.UUID
	BasePriceCents      int
	CompareAtPriceCents *int
	Stock               int
	Options             []OptionInput
	Variants            []VariantInput
}

// UpdateProductInput holds optional mutation values for a product. Options
// and Variants are the full desired schema; leaving Variants nil skips
// variant reconciliation entirely, while an empty non-nil slice contracts the
// space to zero variants.
type UpdateProductInput struct {
	Title               *string
	Slug                *string
	Description         *string
	Status              *enums.ProductStatus
	CategoryID          *uuid.UUID
	BasePriceCents      *int
	CompareAtPriceCents *int
	Stock               *int
	Options             []OptionInput
	Variants            *[]VariantInput
}

// ReconcileResult summarizes what a variant reconciliation did.
type ReconcileResult struct {
	Classification     SpaceChange
	CreatedVariantIDs  []uuid.UUID
	UpdatedVariantIDs  []uuid.UUID
	ArchivedVariantIDs []uuid.UUID
	DeletedVariantIDs  []uuid.UUID
	ReleasedMediaKeys  []string
}

// OptionValueDTO is the read shape of a persisted option value.
type OptionValueDTO struct {
	ID       uuid.UUID `json:"id"`
	Value    string    `json:"value"`
	Position int       `json:"position"`
}

// OptionDTO is the read shape of a persisted option axis.
type OptionDTO struct {
	ID       uuid.UUID        `json:"id"`
	Name     string           `json:"name"`
	Position int              `json:"position"`
	Values   []OptionValueDTO `json:"values"`
}

// VariantDTO is the read shape of a persisted variant with its live stock.
type VariantDTO struct {
	ID                  uuid.UUID   `json:"id"`
	Signature           string      `json:"signature"`
	SKU                 *string     `json:"sku,omitempty"`
	PriceCents          int         `json:"price_cents"`
	CompareAtPriceCents *int        `json:"compare_at_price_cents,omitempty"`
	ImageID             *uuid.UUID  `json:"image_id,omitempty"`
	Archived            bool        `json:"archived"`
	Position            int         `json:"position"`
	OptionValueIDs      []uuid.UUID `json:"option_value_ids"`
	Stock               int         `json:"stock"`
}

// ProductDTO is the full read shape of a product.
type ProductDTO struct {
	ID                  uuid.UUID           `json:"id"`
	Title               string              `json:"title"`
	Slug                string              `json:"slug"`
	Description         *string             `json:"description,omitempty"`
	Status              enums.ProductStatus `json:"status"`
	CategoryID          *uuid.UUID          `json:"category_id,omitempty"`
	BasePriceCents      int                 `json:"base_price_cents"`
	CompareAtPriceCents *int                `json:"compare_at_price_cents,omitempty"`
	Stock               *int                `json:"stock,omitempty"`
	Options             []OptionDTO         `json:"options"`
	Variants            []VariantDTO        `json:"variants"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// ProductSummary is the storefront listing row.
type ProductSummary struct {
	ID                  uuid.UUID           `json:"id"`
	Title               string              `json:"title"`
	Slug                string              `json:"slug"`
	Status              enums.ProductStatus `json:"status"`
	CategoryID          *uuid.UUID          `json:"category_id,omitempty"`
	BasePriceCents      int                 `json:"base_price_cents"`
	CompareAtPriceCents *int                `json:"compare_at_price_cents,omitempty"`
	VariantCount        int                 `json:"variant_count"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// ProductListResult is one cursor page of product summaries.
type ProductListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// ProductListFilters narrows a product listing.
type ProductListFilters struct {
	Status     *enums.ProductStatus
	CategoryID *uuid.UUID
	Query      string
}

// ListProductsInput bundles listing filters and pagination.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
}

// NewProductDTO assembles the read shape from a loaded product and the live
// stock quantities keyed by variant ID; productStock carries the base-product
// quantity for variantless products.
func NewProductDTO(product *models.Product, variantStock map[uuid.UUID]int, productStock *int) *ProductDTO {
	dto := &ProductDTO{
		ID:                  product.ID,
		Title:               product.Title,
		Slug:                product.Slug,
		Description:         product.Description,
		Status:              product.Status,
		CategoryID:          product.CategoryID,
		BasePriceCents:      product.BasePriceCents,
		CompareAtPriceCents: product.CompareAtPriceCents,
		Stock:               productStock,
		Options:             make([]OptionDTO, 0, len(product.Options)),
		Variants:            make([]VariantDTO, 0, len(product.Variants)),
		CreatedAt:           product.CreatedAt,
		UpdatedAt:           product.UpdatedAt,
	}

	for _, option := range product.Options {
		values := make([]OptionValueDTO, 0, len(option.Values))
		for _, value := range option.Values {
			values = append(values, OptionValueDTO{
				ID:       value.ID,
				Value:    value.Value,
				Position: value.Position,
			})
		}
		dto.Options = append(dto.Options, OptionDTO{
			ID:       option.ID,
			Name:     option.Name,
			Position: option.Position,
			Values:   values,
		})
	}

	for _, variant := range product.Variants {
		valueIDs := make([]uuid.UUID, 0, len(variant.OptionValues))
		for _, value := range variant.OptionValues {
			valueIDs = append(valueIDs, value.ID)
		}
		dto.Variants = append(dto.Variants, VariantDTO{
			ID:                  variant.ID,
			Signature:           variant.Signature,
			SKU:                 variant.SKU,
			PriceCents:          variant.PriceCents,
			CompareAtPriceCents: variant.CompareAtPriceCents,
			ImageID:             variant.ImageID,
			Archived:            variant.Archived,
			Position:            variant.Position,
			OptionValueIDs:      valueIDs,
			Stock:               variantStock[variant.ID],
		})
	}
	return dto
}
