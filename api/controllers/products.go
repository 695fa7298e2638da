package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amezav/storefront-backend/api/responses"
	"github.com/amezav/storefront-backend/api/validators"
	"github.com/amezav/storefront-backend/internal/catalog"
	"github.com/amezav/storefront-backend/pkg/enums"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
	"github.com/amezav/storefront-backend/pkg/logger"
	"github.com/amezav/storefront-backend/pkg/pagination"
)

const maxListLimit = 100

// AdminCreateProduct handles product creation with its option schema and
// initial variant set.
func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateProduct applies a full edit payload, reconciling the variant
// space against the persisted one.
func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct removes a product outright.
func AdminDeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ProductDetail serves one product with options, live variants, and stock.
func ProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ProductBySlug serves one product addressed by its storefront slug.
func ProductBySlug(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "slug is required"))
			return
		}

		product, err := svc.GetProductBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ProductList serves a cursor page of product summaries.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		categoryID, err := validators.ParseQueryUUID(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.ProductStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseProductStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = &parsed
		}

		result, err := svc.ListProducts(r.Context(), catalog.ListProductsInput{
			Filters: catalog.ProductListFilters{
				Status:     status,
				CategoryID: categoryID,
				Query:      strings.TrimSpace(r.URL.Query().Get("q")),
			},
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type optionValueRequest struct {
	ID    string `json:"id" validate:"required"`
	Value string `json:"value" validate:"required"`
}

type optionRequest struct {
	Name   string               `json:"name" validate:"required"`
	Values []optionValueRequest `json:"values" validate:"required,min=1,dive"`
}

type variantValueRef struct {
	ID string `json:"id" validate:"required"`
}

type variantRequest struct {
	ID                  *uuid.UUID                 `json:"id,omitempty"`
	OptionValues        map[string]variantValueRef `json:"option_values" validate:"required"`
	Stock               int                        `json:"stock" validate:"min=0"`
	PriceCents          *int                       `json:"price_cents,omitempty" validate:"omitempty,min=0"`
	CompareAtPriceCents *int                       `json:"compare_at_price_cents,omitempty" validate:"omitempty,min=0"`
	SKU                 *string                    `json:"sku,omitempty"`
	ImageID             *uuid.UUID                 `json:"image_id,omitempty"`
}

type createProductRequest struct {
	Title               string           `json:"title" validate:"required"`
	Slug                string           `json:"slug" validate:"required"`
	Description         *string          `json:"description,omitempty"`
	Status              *string          `json:"status,omitempty"`
	CategoryID          *uuid.UUID       `json:"category_id,omitempty"`
	BasePriceCents      int              `json:"base_price_cents" validate:"min=0"`
	CompareAtPriceCents *int             `json:"compare_at_price_cents,omitempty" validate:"omitempty,min=0"`
	Stock               int              `json:"stock" validate:"min=0"`
	Options             []optionRequest  `json:"options,omitempty" validate:"omitempty,dive"`
	Variants            []variantRequest `json:"variants,omitempty" validate:"omitempty,dive"`
}

type updateProductRequest struct {
	Title               *string           `json:"title,omitempty"`
	Slug                *string           `json:"slug,omitempty"`
	Description         *string           `json:"description,omitempty"`
	Status              *string           `json:"status,omitempty"`
	CategoryID          *uuid.UUID        `json:"category_id,omitempty"`
	BasePriceCents      *int              `json:"base_price_cents,omitempty" validate:"omitempty,min=0"`
	CompareAtPriceCents *int              `json:"compare_at_price_cents,omitempty" validate:"omitempty,min=0"`
	Stock               *int              `json:"stock,omitempty" validate:"omitempty,min=0"`
	Options             []optionRequest   `json:"options,omitempty" validate:"omitempty,dive"`
	Variants            *[]variantRequest `json:"variants,omitempty" validate:"omitempty,dive"`
}

func (r createProductRequest) toCreateInput() (catalog.CreateProductInput, error) {
	status := enums.ProductStatusDraft
	if r.Status != nil {
		parsed, err := enums.ParseProductStatus(strings.TrimSpace(*r.Status))
		if err != nil {
			return catalog.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		status = parsed
	}

	return catalog.CreateProductInput{
		Title:               strings.TrimSpace(r.Title),
		Slug:                strings.TrimSpace(r.Slug),
		Description:         r.Description,
		Status:              status,
		CategoryID:          r.CategoryID,
		BasePriceCents:      r.BasePriceCents,
		CompareAtPriceCents: r.CompareAtPriceCents,
		Stock:               r.Stock,
		Options:             toOptionInputs(r.Options),
		Variants:            toVariantInputs(r.Variants),
	}, nil
}

func (r updateProductRequest) toUpdateInput() (catalog.UpdateProductInput, error) {
	input := catalog.UpdateProductInput{
		Title:               r.Title,
		Slug:                r.Slug,
		Description:         r.Description,
		CategoryID:          r.CategoryID,
		BasePriceCents:      r.BasePriceCents,
		CompareAtPriceCents: r.CompareAtPriceCents,
		Stock:               r.Stock,
		Options:             toOptionInputs(r.Options),
	}

	if r.Status != nil {
		parsed, err := enums.ParseProductStatus(strings.TrimSpace(*r.Status))
		if err != nil {
			return catalog.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		input.Status = &parsed
	}

	if r.Variants != nil {
		variants := toVariantInputs(*r.Variants)
		input.Variants = &variants
	}

	return input, nil
}

func toOptionInputs(options []optionRequest) []catalog.OptionInput {
	if options == nil {
		return nil
	}
	out := make([]catalog.OptionInput, 0, len(options))
	for _, option := range options {
		values := make([]catalog.OptionValueInput, 0, len(option.Values))
		for _, value := range option.Values {
			values = append(values, catalog.OptionValueInput{
				ID:    strings.TrimSpace(value.ID),
				Value: strings.TrimSpace(value.Value),
			})
		}
		out = append(out, catalog.OptionInput{
			Name:   strings.TrimSpace(option.Name),
			Values: values,
		})
	}
	return out
}

func toVariantInputs(variants []variantRequest) []catalog.VariantInput {
	out := make([]catalog.VariantInput, 0, len(variants))
	for _, variant := range variants {
		refs := make(map[string]catalog.OptionValueInput, len(variant.OptionValues))
		for optionName, ref := range variant.OptionValues {
			refs[strings.TrimSpace(optionName)] = catalog.OptionValueInput{ID: strings.TrimSpace(ref.ID)}
		}
		out = append(out, catalog.VariantInput{
			ID:                  variant.ID,
			OptionValues:        refs,
			Stock:               variant.Stock,
			PriceCents:          variant.PriceCents,
			CompareAtPriceCents: variant.CompareAtPriceCents,
			SKU:                 variant.SKU,
			ImageID:             variant.ImageID,
		})
	}
	return out
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "missing path parameter").WithDetails(map[string]any{"field": key})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a uuid").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}
