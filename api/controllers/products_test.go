package controllers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amezav/storefront-backend/internal/catalog"
	"github.com/amezav/storefront-backend/pkg/logger"
)

type stubCatalogService struct {
	catalog.Service

	lastUpdateID    uuid.UUID
	lastUpdateInput catalog.UpdateProductInput
	updateResult    *catalog.ProductDTO
	updateErr       error
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, productID uuid.UUID, input catalog.UpdateProductInput) (*catalog.ProductDTO, error) {
	s.lastUpdateID = productID
	s.lastUpdateInput = input
	return s.updateResult, s.updateErr
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func updateRequest(t *testing.T, productID uuid.UUID, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/v1/products/"+productID.String(), bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productId", productID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestAdminUpdateProductOmittedVariantsSkipReconciliation(t *testing.T) {
	stub := &stubCatalogService{updateResult: &catalog.ProductDTO{}}
	handler := AdminUpdateProduct(stub, testLogger())
	productID := uuid.New()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, updateRequest(t, productID, `{"title":"Updated"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.lastUpdateID != productID {
		t.Fatalf("wrong product id passed to service")
	}
	if stub.lastUpdateInput.Title == nil || *stub.lastUpdateInput.Title != "Updated" {
		t.Fatalf("expected title pointer to carry new value")
	}
	if stub.lastUpdateInput.Variants != nil {
		t.Fatalf("omitted variants must map to nil, got %v", stub.lastUpdateInput.Variants)
	}
}

func TestAdminUpdateProductEmptyVariantsContractToZero(t *testing.T) {
	stub := &stubCatalogService{updateResult: &catalog.ProductDTO{}}
	handler := AdminUpdateProduct(stub, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, updateRequest(t, uuid.New(), `{"variants":[]}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.lastUpdateInput.Variants == nil {
		t.Fatalf("explicit empty variants must map to a non-nil empty slice")
	}
	if got := len(*stub.lastUpdateInput.Variants); got != 0 {
		t.Fatalf("expected zero desired variants, got %d", got)
	}
}

func TestAdminUpdateProductMapsVariantOptionRefs(t *testing.T) {
	stub := &stubCatalogService{updateResult: &catalog.ProductDTO{}}
	handler := AdminUpdateProduct(stub, testLogger())

	body := `{
		"options": [{"name": "Size", "values": [{"id": "tmp-s", "value": "S"}, {"id": "tmp-m", "value": "M"}]}],
		"variants": [{"option_values": {"Size": {"id": "tmp-s"}}, "stock": 4, "sku": "TEE-S"}]
	}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, updateRequest(t, uuid.New(), body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if got := len(stub.lastUpdateInput.Options); got != 1 {
		t.Fatalf("expected one option, got %d", got)
	}
	if stub.lastUpdateInput.Options[0].Values[1].ID != "tmp-m" {
		t.Fatalf("option value refs must keep client ids")
	}
	variants := *stub.lastUpdateInput.Variants
	if len(variants) != 1 {
		t.Fatalf("expected one variant, got %d", len(variants))
	}
	ref, ok := variants[0].OptionValues["Size"]
	if !ok {
		t.Fatalf("variant must reference the Size option")
	}
	if ref.ID != "tmp-s" {
		t.Fatalf("variant option ref must carry the client id, got %q", ref.ID)
	}
	if variants[0].Stock != 4 {
		t.Fatalf("expected stock 4, got %d", variants[0].Stock)
	}
}

func TestAdminUpdateProductRejectsUnknownStatus(t *testing.T) {
	stub := &stubCatalogService{}
	handler := AdminUpdateProduct(stub, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, updateRequest(t, uuid.New(), `{"status":"published"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminUpdateProductRejectsInvalidID(t *testing.T) {
	stub := &stubCatalogService{}
	handler := AdminUpdateProduct(stub, testLogger())

	req := httptest.NewRequest(http.MethodPatch, "/api/admin/v1/products/not-a-uuid", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productId", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
