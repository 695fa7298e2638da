package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/pkg/db/models"
	"github.com/amezav/storefront-backend/pkg/enums"
	"github.com/amezav/storefront-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return conn
}

func seedOrderRow(t *testing.T, conn *gorm.DB, userID uuid.UUID, number int64, status enums.OrderStatus, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		OrderNumber:   number,
		Status:        status,
		PaymentMethod: enums.PaymentMethodCard,
		Currency:      "USD",
		SubtotalCents: 1000,
		TotalCents:    1000,
	}
	require.NoError(t, conn.Create(&order).Error)
	// autoCreateTime wins on insert, so pin created_at explicitly for
	// deterministic cursor ordering.
	require.NoError(t, conn.Model(&models.Order{}).
		Where("id = ?", order.ID).
		UpdateColumn("created_at", createdAt).Error)
	order.CreatedAt = createdAt
	return order
}

func TestNextOrderNumberStartsAtFloor(t *testing.T) {
	t.Parallel()
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)

	number, err := repo.NextOrderNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(orderNumberFloor), number)

	seedOrderRow(t, conn, uuid.New(), number, enums.OrderStatusPending, time.Now().UTC())

	next, err := repo.NextOrderNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, number+1, next)
}

func TestListOrdersCursorPagination(t *testing.T) {
	t.Parallel()
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	userID := uuid.New()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedOrderRow(t, conn, userID, int64(1000+i), enums.OrderStatusPending, base.Add(time.Duration(i)*time.Minute))
	}

	firstPage, cursor, err := repo.ListOrders(context.Background(), orderListQuery{
		UserID:     &userID,
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, firstPage, 2)
	require.NotEmpty(t, cursor)
	assert.Equal(t, int64(1004), firstPage[0].OrderNumber)
	assert.Equal(t, int64(1003), firstPage[1].OrderNumber)

	secondPage, _, err := repo.ListOrders(context.Background(), orderListQuery{
		UserID:     &userID,
		Pagination: pagination.Params{Limit: 2, Cursor: cursor},
	})
	require.NoError(t, err)
	require.Len(t, secondPage, 2)
	assert.Equal(t, int64(1002), secondPage[0].OrderNumber)
	assert.Equal(t, int64(1001), secondPage[1].OrderNumber)
}

func TestListOrdersFiltersByStatusAndUser(t *testing.T) {
	t.Parallel()
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	userID := uuid.New()
	otherUser := uuid.New()

	now := time.Now().UTC()
	seedOrderRow(t, conn, userID, 1000, enums.OrderStatusPending, now.Add(-3*time.Minute))
	shipped := seedOrderRow(t, conn, userID, 1001, enums.OrderStatusShipped, now.Add(-2*time.Minute))
	seedOrderRow(t, conn, otherUser, 1002, enums.OrderStatusShipped, now.Add(-time.Minute))

	status := enums.OrderStatusShipped
	rows, _, err := repo.ListOrders(context.Background(), orderListQuery{
		UserID:     &userID,
		Status:     &status,
		Pagination: pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, shipped.ID, rows[0].ID)
}

func TestFindByIDForUserScopesOwnership(t *testing.T) {
	t.Parallel()
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	owner := uuid.New()

	order := seedOrderRow(t, conn, owner, 1000, enums.OrderStatusPending, time.Now().UTC())

	found, err := repo.FindByIDForUser(context.Background(), order.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.FindByIDForUser(context.Background(), order.ID, uuid.New())
	assert.Error(t, err)
}
