package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/pkg/db/models"
	"github.com/amezav/storefront-backend/pkg/enums"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}, &models.ProductVariant{}, &models.CartItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, priceCents int) models.Product {
	t.Helper()
	product := models.Product{
		ID:             uuid.New(),
		Title:          "Tee",
		Slug:           "tee-" + uuid.NewString()[:8],
		Status:         enums.ProductStatusActive,
		BasePriceCents: priceCents,
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func seedVariant(t *testing.T, conn *gorm.DB, productID uuid.UUID, priceCents int, archived bool) models.ProductVariant {
	t.Helper()
	variant := models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  productID,
		Signature:  uuid.NewString(),
		PriceCents: priceCents,
		Archived:   archived,
	}
	if err := conn.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant
}

func TestAddItemUpsertsQuantity(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 1200)
	variant := seedVariant(t, conn, product.ID, 1500, false)
	userID := uuid.New()

	first, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: product.ID, VariantID: &variant.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(first.Items) != 1 || first.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart after first add: %+v", first)
	}
	if first.Items[0].UnitPriceCents != 1500 {
		t.Fatalf("expected variant price snapshot, got %d", first.Items[0].UnitPriceCents)
	}

	second, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: product.ID, VariantID: &variant.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("repeat add: %v", err)
	}
	if len(second.Items) != 1 {
		t.Fatalf("repeat add must not create a second line, got %d", len(second.Items))
	}
	if second.Items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", second.Items[0].Quantity)
	}
	if second.SubtotalCents != 5*1500 {
		t.Fatalf("subtotal = %d, want %d", second.SubtotalCents, 5*1500)
	}
}

func TestAddItemVariantlessUsesBasePrice(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 900)

	dto, err := svc.AddItem(ctx, uuid.New(), AddItemInput{ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if dto.Items[0].UnitPriceCents != 900 {
		t.Fatalf("expected base price snapshot, got %d", dto.Items[0].UnitPriceCents)
	}
}

func TestAddItemRejectsUnsellable(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 900)
	archived := seedVariant(t, conn, product.ID, 1000, true)
	other := seedProduct(t, conn, 500)
	foreign := seedVariant(t, conn, other.ID, 700, false)
	userID := uuid.New()

	cases := []struct {
		name  string
		input AddItemInput
		code  pkgerrors.Code
	}{
		{"zero quantity", AddItemInput{ProductID: product.ID, Quantity: 0}, pkgerrors.CodeValidation},
		{"missing product", AddItemInput{ProductID: uuid.New(), Quantity: 1}, pkgerrors.CodeNotFound},
		{"missing variant", AddItemInput{ProductID: product.ID, VariantID: ptr(uuid.New()), Quantity: 1}, pkgerrors.CodeNotFound},
		{"archived variant", AddItemInput{ProductID: product.ID, VariantID: &archived.ID, Quantity: 1}, pkgerrors.CodeValidation},
		{"foreign variant", AddItemInput{ProductID: product.ID, VariantID: &foreign.ID, Quantity: 1}, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddItem(ctx, userID, tc.input)
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestUpdateAndRemoveItem(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 1100)
	userID := uuid.New()

	dto, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	itemID := dto.Items[0].ID

	updated, err := svc.UpdateItemQuantity(ctx, userID, itemID, 4)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if updated.Items[0].Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", updated.Items[0].Quantity)
	}

	if _, err := svc.UpdateItemQuantity(ctx, uuid.New(), itemID, 2); pkgerrors.As(err) == nil {
		t.Fatal("another user must not touch the line")
	}

	emptied, err := svc.RemoveItem(ctx, userID, itemID)
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if len(emptied.Items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(emptied.Items))
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, conn, 800)
	userID := uuid.New()
	otherUser := uuid.New()

	if _, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := svc.AddItem(ctx, otherUser, AddItemInput{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("add other item: %v", err)
	}

	if err := svc.Clear(ctx, userID); err != nil {
		t.Fatalf("clear: %v", err)
	}

	mine, err := svc.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(mine.Items) != 0 {
		t.Fatal("clear must empty the cart")
	}
	theirs, err := svc.GetCart(ctx, otherUser)
	if err != nil {
		t.Fatalf("get other cart: %v", err)
	}
	if len(theirs.Items) != 1 {
		t.Fatal("clear must not touch other users")
	}
}

func ptr[T any](v T) *T {
	return &v
}
