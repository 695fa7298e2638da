package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/internal/inventory"
	"github.com/amezav/storefront-backend/pkg/db"
	"github.com/amezav/storefront-backend/pkg/db/models"
	"github.com/amezav/storefront-backend/pkg/enums"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
	"github.com/amezav/storefront-backend/pkg/outbox"
	"github.com/amezav/storefront-backend/pkg/outbox/payloads"
	"github.com/amezav/storefront-backend/pkg/pagination"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ListOrdersInput filters and paginates an order listing.
type ListOrdersInput struct {
	UserID     *uuid.UUID
	Status     *enums.OrderStatus
	Pagination pagination.Params
}

// ListResult is one cursor page of orders.
type ListResult struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// Service exposes order reads and status transitions. Orders are immutable
// after checkout apart from their status.
type Service interface {
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, input ListOrdersInput) (*ListResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID, reason string) (*models.Order, error)
}

type service struct {
	repo     *Repository
	ledger   *inventory.Repository
	dbClient *db.Client
	outbox   outboxPublisher
}

// NewService constructs the orders service.
func NewService(repo *Repository, ledger *inventory.Repository, dbClient *db.Client, publisher outboxPublisher) (Service, error) {
	if repo == nil {
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
	return &service{repo: repo, ledger: ledger, dbClient: dbClient, outbox: publisher}, nil
}

// GetForUser loads an order owned by the user.
func (s *service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// Get loads any order, for staff views.
func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// List returns a cursor page of orders.
func (s *service) List(ctx context.Context, input ListOrdersInput) (*ListResult, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	rows, next, err := s.repo.ListOrders(ctx, orderListQuery{
		UserID:     input.UserID,
		Status:     input.Status,
		Pagination: input.Pagination,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return &ListResult{Orders: rows, NextCursor: next}, nil
}

// UpdateStatus moves an order along the lifecycle. A transition into
// cancelled restocks every line atomically with the status write.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, status))
	}

	if status == enums.OrderStatusCancelled {
		if err := s.cancelTx(ctx, order, ""); err != nil {
			return nil, err
		}
		return s.Get(ctx, orderID)
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, status, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order status")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStateChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderStateChangedEvent{
				OrderID:    order.ID,
				FromStatus: string(order.Status),
				ToStatus:   string(status),
			},
			Version: 1,
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	return s.Get(ctx, orderID)
}

// Cancel lets the owning user cancel a pre-shipment order.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.GetForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("order in status %s cannot be cancelled", order.Status))
	}
	if err := s.cancelTx(ctx, order, reason); err != nil {
		return nil, err
	}
	return s.GetForUser(ctx, userID, orderID)
}

// cancelTx flips the order to cancelled, restocks every line, and queues the
// cancellation event, all in one transaction.
func (s *service) cancelTx(ctx context.Context, order *models.Order, reason string) error {
	now := time.Now()
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txLedger := s.ledger.WithTx(tx)

		if err := txRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled, &now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cancel order")
		}
		for _, item := range order.Items {
			key := inventory.KeyFor(item.ProductID, item.VariantID)
			if err := txLedger.Increment(ctx, key, item.Qty); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// Stock row can be gone if the product was deleted since
					// the order was placed; nothing left to restock.
					continue
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: restock order line")
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				CancelledAt: now,
				Reason:      reason,
			},
			Version: 1,
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	return nil
}
