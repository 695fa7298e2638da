package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics records publisher throughput and failures.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failures  *prometheus.CounterVec
	batchTime prometheus.Histogram
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published, by event type.",
	}, []string{"event_type"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed, by event type.",
	}, []string{"event_type"})
	batchTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of one outbox publish batch.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(published, failures, batchTime)
	return &OutboxMetrics{
		published: published,
		failures:  failures,
		batchTime: batchTime,
	}
}

// IncPublished increments the published counter for the event type.
func (o *OutboxMetrics) IncPublished(eventType string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailure increments the failure counter for the event type.
func (o *OutboxMetrics) IncFailure(eventType string) {
	if o == nil || o.failures == nil {
		return
	}
	o.failures.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// ObserveBatch records the duration of one publish batch.
func (o *OutboxMetrics) ObserveBatch(elapsed time.Duration) {
	if o == nil || o.batchTime == nil {
		return
	}
	o.batchTime.Observe(elapsed.Seconds())
}
