package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/internal/cart"
	"github.com/amezav/storefront-backend/internal/inventory"
	"github.com/amezav/storefront-backend/internal/orders"
	"github.com/amezav/storefront-backend/pkg/db"
	"github.com/amezav/storefront-backend/pkg/db/models"
	"github.com/amezav/storefront-backend/pkg/enums"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
	"github.com/amezav/storefront-backend/pkg/outbox"
	"github.com/amezav/storefront-backend/pkg/types"
)

type fixture struct {
	svc    Service
	conn   *gorm.DB
	carts  *cart.Repository
	ledger *inventory.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Product{},
		&models.ProductVariant{},
		&models.CartItem{},
		&models.InventoryItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	carts := cart.NewRepository(conn)
	ledger := inventory.NewRepository(conn)
	publisher := outbox.NewService(outbox.NewRepository(conn), nil)
	svc, err := NewService(carts, orders.NewRepository(conn), ledger, db.NewFromConn(conn), publisher)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, conn: conn, carts: carts, ledger: ledger}
}

// seedLine creates a product with one variant, a stock row, and a cart line.
func (f *fixture) seedLine(t *testing.T, userID uuid.UUID, stock, requested int) inventory.StockKey {
	t.Helper()
	ctx := context.Background()

	product := models.Product{
		ID:             uuid.New(),
		Title:          "Tee",
		Slug:           "tee-" + uuid.NewString()[:8],
		Status:         enums.ProductStatusActive,
		BasePriceCents: 1000,
	}
	if err := f.conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  product.ID,
		Signature:  uuid.NewString(),
		PriceCents: 1500,
	}
	if err := f.conn.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}

	key := inventory.VariantStock(product.ID, variant.ID)
	if _, err := f.ledger.Create(ctx, key, stock); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	line := models.CartItem{
		ID:             uuid.New(),
		UserID:         userID,
		ProductID:      product.ID,
		VariantID:      &variant.ID,
		Quantity:       requested,
		UnitPriceCents: 1500,
	}
	if err := f.conn.Create(&line).Error; err != nil {
		t.Fatalf("seed cart line: %v", err)
	}
	return key
}

func (f *fixture) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var count int64
	if err := f.conn.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func TestExecuteRejectsEmptyCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Execute(context.Background(), uuid.New(), CheckoutInput{PaymentMethod: enums.PaymentMethodCard})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExecuteFailsOnShortfallWithoutWrites(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	key := f.seedLine(t, userID, 2, 3)

	_, err := f.svc.Execute(ctx, userID, CheckoutInput{PaymentMethod: enums.PaymentMethodCard})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	shortfalls, ok := typed.Details().([]StockShortfall)
	if !ok || len(shortfalls) != 1 {
		t.Fatalf("expected one shortfall detail, got %#v", typed.Details())
	}
	if shortfalls[0].ProductID != key.ProductID || shortfalls[0].Requested != 3 || shortfalls[0].Available != 2 {
		t.Fatalf("shortfall must name the offending pair: %+v", shortfalls[0])
	}

	if got := f.countRows(t, &models.Order{}); got != 0 {
		t.Fatalf("no order row may exist, found %d", got)
	}
	if got := f.countRows(t, &models.OrderItem{}); got != 0 {
		t.Fatalf("no order item row may exist, found %d", got)
	}
	stock, err := f.ledger.Get(ctx, key)
	if err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if stock.Quantity != 2 {
		t.Fatalf("stock must be unchanged, got %d", stock.Quantity)
	}
	if got := f.countRows(t, &models.CartItem{}); got != 1 {
		t.Fatal("failed checkout must not clear the cart")
	}
}

func TestExecuteCreatesOrderAndDecrements(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	first := f.seedLine(t, userID, 5, 2)
	second := f.seedLine(t, userID, 9, 1)

	address := &types.Address{Line1: "12 Main St", City: "Springfield", Region: "IL", PostalCode: "62704", Country: "US"}
	order, err := f.svc.Execute(ctx, userID, CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCard,
		ShippingAddress: address,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if order.OrderNumber < 1000 {
		t.Fatalf("order number %d below floor", order.OrderNumber)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected one item per cart line, got %d", len(order.Items))
	}
	if order.SubtotalCents != 3*1500 || order.TotalCents != 3*1500 {
		t.Fatalf("totals = %d/%d, want %d", order.SubtotalCents, order.TotalCents, 3*1500)
	}
	if order.ShippingAddress == nil || order.ShippingAddress.City != "Springfield" {
		t.Fatalf("shipping address not persisted: %+v", order.ShippingAddress)
	}

	firstStock, err := f.ledger.Get(ctx, first)
	if err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if firstStock.Quantity != 3 {
		t.Fatalf("first line stock = %d, want 3", firstStock.Quantity)
	}
	secondStock, err := f.ledger.Get(ctx, second)
	if err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if secondStock.Quantity != 8 {
		t.Fatalf("second line stock = %d, want 8", secondStock.Quantity)
	}

	if got := f.countRows(t, &models.CartItem{}); got != 0 {
		t.Fatalf("cart must be empty after checkout, found %d lines", got)
	}

	var created int64
	if err := f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventOrderCreated).
		Count(&created).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected one order-created event, got %d", created)
	}
}

func TestExecuteEmitsStockDepleted(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	f.seedLine(t, userID, 2, 2)

	if _, err := f.svc.Execute(ctx, userID, CheckoutInput{PaymentMethod: enums.PaymentMethodCard}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var depleted int64
	if err := f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventStockDepleted).
		Count(&depleted).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if depleted != 1 {
		t.Fatalf("expected one stock-depleted event, got %d", depleted)
	}
}

// Two checkouts race for the last unit; the guarded decrement lets exactly
// one order through and the loser rolls back completely.
func TestLastUnitCheckoutSucceedsExactlyOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	winner := uuid.New()
	loser := uuid.New()

	key := f.seedLine(t, winner, 1, 1)
	line := models.CartItem{
		ID:             uuid.New(),
		UserID:         loser,
		ProductID:      key.ProductID,
		VariantID:      key.VariantPtr(),
		Quantity:       1,
		UnitPriceCents: 1500,
	}
	if err := f.conn.Create(&line).Error; err != nil {
		t.Fatalf("seed second cart: %v", err)
	}

	wins := 0
	for _, userID := range []uuid.UUID{winner, loser} {
		_, err := f.svc.Execute(ctx, userID, CheckoutInput{PaymentMethod: enums.PaymentMethodCard})
		switch {
		case err == nil:
			wins++
		default:
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
				t.Fatalf("loser must fail with insufficient stock, got %v", err)
			}
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful checkout, got %d", wins)
	}

	stock, err := f.ledger.Get(ctx, key)
	if err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if stock.Quantity != 0 {
		t.Fatalf("stock = %d, want 0", stock.Quantity)
	}
	if got := f.countRows(t, &models.Order{}); got != 1 {
		t.Fatalf("expected one order row, got %d", got)
	}
}

func TestOrderNumberConflictRetriesOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	f.seedLine(t, userID, 3, 1)

	// A rival order grabs the allocated number just before the checkout's
	// own insert, so the first transaction loses the unique-index race.
	var rivalErr error
	stolen := false
	err := f.conn.Callback().Create().Before("gorm:create").Register("rival_order_number", func(db *gorm.DB) {
		order, ok := db.Statement.Dest.(*models.Order)
		if !ok || stolen {
			return
		}
		stolen = true
		rival := models.Order{
			ID:            uuid.New(),
			UserID:        uuid.New(),
			OrderNumber:   order.OrderNumber,
			Status:        enums.OrderStatusPending,
			PaymentMethod: enums.PaymentMethodCard,
			Currency:      "USD",
		}
		rivalErr = db.Session(&gorm.Session{NewDB: true}).Create(&rival).Error
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	order, err := f.svc.Execute(ctx, userID, CheckoutInput{PaymentMethod: enums.PaymentMethodCard})
	if err != nil {
		t.Fatalf("losing allocation must retry, got: %v", err)
	}
	if rivalErr != nil {
		t.Fatalf("rival insert: %v", rivalErr)
	}
	if !stolen {
		t.Fatal("rival never contested the allocation")
	}

	// The losing attempt rolled back in full; only the retry committed.
	if got := f.countRows(t, &models.Order{}); got != 1 {
		t.Fatalf("expected exactly one committed order, got %d", got)
	}
	if order.OrderNumber < 1000 {
		t.Fatalf("unexpected order number %d", order.OrderNumber)
	}
}
