package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/pkg/db/models"
	"github.com/amezav/storefront-backend/pkg/enums"
	"github.com/amezav/storefront-backend/pkg/outbox/payloads"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestEmitStoresEnvelope(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	service := NewService(repo, nil)

	orderID := uuid.New()
	err := conn.Transaction(func(tx *gorm.DB) error {
		return service.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:    orderID,
				UserID:     uuid.New(),
				TotalCents: 4500,
				ItemCount:  2,
			},
		})
	})
	if err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	var row models.OutboxEvent
	if err := conn.First(&row).Error; err != nil {
		t.Fatalf("fetch row: %v", err)
	}
	if row.EventType != enums.EventOrderCreated {
		t.Fatalf("unexpected event type %s", row.EventType)
	}
	if row.AggregateID != orderID {
		t.Fatalf("unexpected aggregate id %s", row.AggregateID)
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Version != 1 || envelope.EventID == "" || envelope.OccurredAt.IsZero() {
		t.Fatalf("incomplete envelope: %+v", envelope)
	}

	var data payloads.OrderCreatedEvent
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.TotalCents != 4500 {
		t.Fatalf("unexpected total %d", data.TotalCents)
	}
}

func TestEmitRequiresTransaction(t *testing.T) {
	service := NewService(NewRepository(newTestDB(t)), nil)
	if err := service.Emit(context.Background(), nil, DomainEvent{}); err == nil {
		t.Fatal("expected transaction required error")
	}
}

func TestFetchUnpublishedRespectsAttemptCap(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)

	fresh := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	exhausted := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		AttemptCount:  10,
	}
	if err := conn.Create(&fresh).Error; err != nil {
		t.Fatalf("seed fresh: %v", err)
	}
	if err := conn.Create(&exhausted).Error; err != nil {
		t.Fatalf("seed exhausted: %v", err)
	}

	rows, err := repo.FetchUnpublished(10, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].ID != fresh.ID {
		t.Fatalf("expected fresh row, got %s", rows[0].ID)
	}
}

func TestMarkPublishedAndFailed(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	if err := conn.Create(&event).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := repo.MarkFailed(event.ID, errors.New("publish timeout")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	var row models.OutboxEvent
	if err := conn.First(&row, "id = ?", event.ID).Error; err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if row.AttemptCount != 1 {
		t.Fatalf("expected attempt_count 1, got %d", row.AttemptCount)
	}
	if row.LastError == nil || *row.LastError != "publish timeout" {
		t.Fatalf("unexpected last_error %v", row.LastError)
	}

	if err := repo.MarkPublished(event.ID); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if err := conn.First(&row, "id = ?", event.ID).Error; err != nil {
		t.Fatalf("fetch after publish: %v", err)
	}
	if row.PublishedAt == nil {
		t.Fatal("expected published_at to be set")
	}

	rows, err := repo.FetchUnpublished(10, 0)
	if err != nil {
		t.Fatalf("fetch unpublished: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no unpublished rows, got %d", len(rows))
	}
}
