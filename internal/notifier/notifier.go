package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatlink-backend/pkg/logger"
	"chatlink-backend/pkg/metrics"
)

// Publisher delivers realtime events to a topic. Publishing happens
// after the database transaction commits and is best-effort: failures
// are logged, never surfaced to the API caller.
type Publisher interface {
	Publish(ctx context.Context, topic, event string, payload interface{})
}

// Envelope is the wire format pushed on Redis channels and forwarded
// verbatim to websocket clients.
type Envelope struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload"`
	Timestamp string      `json:"timestamp"`
}

// RedisPublisher publishes envelopes over Redis Pub/Sub.
type RedisPublisher struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewRedisPublisher creates a publisher over the given Redis client.
// metrics may be nil.
func NewRedisPublisher(client *redis.Client, m *metrics.Metrics) *RedisPublisher {
	return &RedisPublisher{client: client, metrics: m}
}

// Publish marshals the envelope and publishes it on the topic.
func (p *RedisPublisher) Publish(ctx context.Context, topic, event string, payload interface{}) {
	envelope := Envelope{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		logger.Warn("Failed to marshal event",
			zap.String("topic", topic),
			zap.String("event", event),
			zap.Error(err))
		p.record(event, true)
		return
	}

	if err := p.client.Publish(ctx, topic, data).Err(); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("topic", topic),
			zap.String("event", event),
			zap.Error(err))
		p.record(event, true)
		return
	}

	p.record(event, false)
}

func (p *RedisPublisher) record(event string, failed bool) {
	if p.metrics != nil {
		p.metrics.RecordEventPublished(event, failed)
	}
}
