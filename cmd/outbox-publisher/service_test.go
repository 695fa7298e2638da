package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/amezav/storefront-backend/pkg/config"
	"github.com/amezav/storefront-backend/pkg/db/models"
	"github.com/amezav/storefront-backend/pkg/enums"
	"github.com/amezav/storefront-backend/pkg/logger"
)

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			{
				ID:            uuid.New(),
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   uuid.New(),
				Payload:       json.RawMessage(`{"data":"event-one"}`),
			},
			{
				ID:            uuid.New(),
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   uuid.New(),
				Payload:       json.RawMessage(`{"data":"event-two"}`),
			},
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, pub)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
}

func TestProcessBatchIdleWhenQueueEmpty(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if processed {
		t.Fatalf("expected idle batch")
	}
	if pub.calls != 0 {
		t.Fatalf("publisher should not be called on empty batch, got %d calls", pub.calls)
	}
}

func TestPublishEventCarriesAttributes(t *testing.T) {
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventStockDepleted,
		AggregateType: enums.AggregateVariant,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"data":"depleted"}`),
		CreatedAt:     time.Now().UTC(),
	}
	service := newTestService(t, &fakeRepo{}, pub)

	if err := service.publishEvent(context.Background(), event); err != nil {
		t.Fatalf("publish event: %v", err)
	}
	if pub.calls != 1 {
		t.Fatalf("expected one publish call, got %d", pub.calls)
	}
	msg := pub.lastMessage
	if msg == nil {
		t.Fatalf("expected message to be captured")
	}
	if msg.Attributes["event_type"] != string(enums.EventStockDepleted) {
		t.Fatalf("unexpected event_type attribute %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id attribute %q", msg.Attributes["aggregate_id"])
	}
	if string(msg.Data) != `{"data":"depleted"}` {
		t.Fatalf("unexpected payload %s", msg.Data)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := service.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestNextBackoffDoublesUpToMax(t *testing.T) {
	base := 500 * time.Millisecond
	current := base
	for i := 0; i < 10; i++ {
		current = nextBackoff(current, base, maxBackoff)
		if current > maxBackoff {
			t.Fatalf("backoff exceeded cap: %v", current)
		}
	}
	if current != maxBackoff {
		t.Fatalf("expected backoff to settle at cap, got %v", current)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.MaxAttempts = 3
	cfg.Outbox.PollIntervalMS = 10

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:         fakePinger{},
		PubSub:     fakePinger{},
		Repository: repo,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

type fakePinger struct{}

func (fakePinger) Ping(context.Context) error { return nil }

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if len(f.events) == 0 {
		return nil, nil
	}
	batch := f.events
	if len(batch) > limit {
		batch = batch[:limit]
	}
	return batch, nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakePublisher struct {
	results     []publishResult
	calls       int
	lastMessage *gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.lastMessage = msg
	var result publishResult = fakePublishResult{}
	if f.calls < len(f.results) {
		result = f.results[f.calls]
	}
	f.calls++
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "msg-id", nil
}
