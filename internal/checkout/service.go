package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/internal/cart"
	"github.com/amezav/storefront-backend/internal/inventory"
	"github.com/amezav/storefront-backend/internal/orders"
	"github.com/amezav/storefront-backend/pkg/db"
	"github.com/amezav/storefront-backend/pkg/db/models"
	"github.com/amezav/storefront-backend/pkg/enums"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
	"github.com/amezav/storefront-backend/pkg/outbox"
	"github.com/amezav/storefront-backend/pkg/outbox/payloads"
	"github.com/amezav/storefront-backend/pkg/types"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// errOrderNumberConflict marks the loser of a concurrent order-number
// allocation; the checkout transaction re-runs once to allocate past the
// winner.
var errOrderNumberConflict = errors.New("order number already taken")

// CheckoutInput carries the payment and shipping selection for the attempt.
type CheckoutInput struct {
	PaymentMethod   enums.PaymentMethod
	ShippingAddress *types.Address
}

// StockShortfall names one cart line that asked for more than is available.
type StockShortfall struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Requested int        `json:"requested"`
	Available int        `json:"available"`
}

// Service converts a cart into an order, enforcing stock invariants.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*models.Order, error)
}

type service struct {
	cartRepo   *cart.Repository
	ordersRepo *orders.Repository
	ledger     *inventory.Repository
	dbClient   *db.Client
	outbox     outboxPublisher
}

// NewService builds the checkout service.
func NewService(
	cartRepo *cart.Repository,
	ordersRepo *orders.Repository,
	ledger *inventory.Repository,
	dbClient *db.Client,
	publisher outboxPublisher,
) (Service, error) {
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
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
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		ledger:     ledger,
		dbClient:   dbClient,
		outbox:     publisher,
	}, nil
}

// Execute runs one checkout attempt. Stock is pre-validated with a batched
// read so shortfalls fail fast with no writes; the decision that counts is
// the guarded decrement inside the transaction, which is what keeps two
// concurrent checkouts from both taking the last unit.
func (s *service) Execute(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*models.Order, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	lines, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	keys := make([]inventory.StockKey, 0, len(lines))
	for _, line := range lines {
		keys = append(keys, inventory.KeyFor(line.ProductID, line.VariantID))
	}
	available, err := s.ledger.GetQuantities(ctx, keys)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: read stock")
	}

	var shortfalls []StockShortfall
	for _, line := range lines {
		key := inventory.KeyFor(line.ProductID, line.VariantID)
		if have := available[key]; line.Quantity > have {
			shortfalls = append(shortfalls, StockShortfall{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Requested: line.Quantity,
				Available: have,
			})
		}
	}
	if len(shortfalls) > 0 {
		return nil, insufficientStockError(shortfalls)
	}

	var orderID uuid.UUID
	checkoutTx := func(tx *gorm.DB) error {
		txOrders := s.ordersRepo.WithTx(tx)
		txCart := s.cartRepo.WithTx(tx)
		txLedger := s.ledger.WithTx(tx)

		number, err := txOrders.NextOrderNumber(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: allocate order number")
		}

		subtotal := 0
		for _, line := range lines {
			subtotal += line.UnitPriceCents * line.Quantity
		}
		order, err := txOrders.Create(ctx, &models.Order{
			ID:              uuid.New(),
			UserID:          userID,
			OrderNumber:     number,
			Status:          enums.OrderStatusPending,
			PaymentMethod:   input.PaymentMethod,
			Currency:        "USD",
			SubtotalCents:   subtotal,
			TotalCents:      subtotal,
			ShippingAddress: input.ShippingAddress,
		})
		if err != nil {
			// Postgres names the index, sqlite names the column.
			if db.IsUniqueViolation(err, "idx_orders_order_number") || db.IsUniqueViolation(err, "orders.order_number") {
				return errOrderNumberConflict
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}
		orderID = order.ID

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			item, err := s.buildOrderItem(ctx, txCart, order.ID, line)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		if err := txOrders.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order items")
		}

		for _, line := range lines {
			key := inventory.KeyFor(line.ProductID, line.VariantID)
			applied, err := txLedger.Decrement(ctx, key, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
			}
			if !applied {
				// Stock moved between the batched read and the guarded
				// update; the losing checkout rolls back in full.
				current := 0
				if item, err := txLedger.Get(ctx, key); err == nil {
					current = item.Quantity
				}
				return insufficientStockError([]StockShortfall{{
					ProductID: line.ProductID,
					VariantID: line.VariantID,
					Requested: line.Quantity,
					Available: current,
				}})
			}
			if item, err := txLedger.Get(ctx, key); err == nil && item.Quantity == 0 {
				if err := s.emitStockDepleted(ctx, tx, key); err != nil {
					return err
				}
			}
		}

		if err := txCart.Clear(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      userID,
				TotalCents:  order.TotalCents,
				ItemCount:   len(items),
			},
			Version: 1,
		})
	}

	err = s.dbClient.WithTx(ctx, checkoutTx)
	if errors.Is(err, errOrderNumberConflict) {
		// A concurrent checkout committed the same number first; the
		// re-run allocates past it.
		err = s.dbClient.WithTx(ctx, checkoutTx)
	}
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout")
	}

	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// buildOrderItem snapshots the catalog names and the cart's price into an
// immutable order line.
func (s *service) buildOrderItem(ctx context.Context, txCart *cart.Repository, orderID uuid.UUID, line models.CartItem) (models.OrderItem, error) {
	product, err := txCart.FindProduct(ctx, line.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.OrderItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart references a missing product")
		}
		return models.OrderItem{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	var variantTitle *string
	if line.VariantID != nil {
		variant, err := txCart.FindVariant(ctx, *line.VariantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.OrderItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart references a missing variant")
			}
			return models.OrderItem{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load variant")
		}
		if variant.SKU != nil {
			variantTitle = variant.SKU
		}
	}

	return models.OrderItem{
		ID:             uuid.New(),
		OrderID:        orderID,
		ProductID:      line.ProductID,
		VariantID:      line.VariantID,
		Title:          product.Title,
		VariantTitle:   variantTitle,
		UnitPriceCents: line.UnitPriceCents,
		Qty:            line.Quantity,
		TotalCents:     line.UnitPriceCents * line.Quantity,
	}, nil
}

func (s *service) emitStockDepleted(ctx context.Context, tx *gorm.DB, key inventory.StockKey) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStockDepleted,
		AggregateType: enums.AggregateVariant,
		AggregateID:   key.ProductID,
		Data: payloads.StockDepletedEvent{
			ProductID: key.ProductID,
			VariantID: key.VariantPtr(),
		},
		Version: 1,
	})
}

func insufficientStockError(shortfalls []StockShortfall) error {
	first := shortfalls[0]
	msg := fmt.Sprintf("insufficient stock for product %s", first.ProductID)
	if first.VariantID != nil {
		msg = fmt.Sprintf("insufficient stock for product %s variant %s", first.ProductID, *first.VariantID)
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, msg).WithDetails(shortfalls)
}
