// Package broker moves listing lifecycle events through named Redis lists,
// one list per event kind.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/db"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain/event"
	"github.com/SPD-BES-2025-3/grupo1/internal/metrics"
)

// store is the consumer interface for the queue backend (ISP).
type store interface {
	LPush(ctx context.Context, key string, value []byte) error
	BRPop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) error
}

// Broker publishes and consumes lifecycle events.
type Broker struct {
	store  store
	logger *zap.Logger
	now    func() time.Time
}

// New creates a broker over the given list store.
func New(s store, logger *zap.Logger) *Broker {
	return &Broker{store: s, logger: logger, now: time.Now}
}

// QueueName returns the queue carrying events of kind.
func QueueName(kind event.Kind) string {
	return kind.Queue()
}

// Queues lists every lifecycle queue.
func Queues() []string {
	kinds := event.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.Queue()
	}
	return out
}

// Delivery is one message taken off a queue.
type Delivery struct {
	Queue string
	Body  []byte
}

// Decode parses the delivery body as a lifecycle event.
func (d *Delivery) Decode() (event.Event, error) {
	return event.Decode(d.Body)
}

// Publish enqueues a lifecycle event for recordID on the queue of its kind.
// The payload is cleaned before serialization. Failures are logged and
// reported as false so the write path is never interrupted.
func (b *Broker) Publish(ctx context.Context, kind event.Kind, recordID string, payload map[string]any) (ok bool) {
	log := b.logger.With(zap.String("event", string(kind)), zap.String("id", recordID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while publishing event", zap.Any("panic", r))
			metrics.BrokerPublishTotal.WithLabelValues(string(kind), "error").Inc()
			ok = false
		}
	}()

	if !kind.Valid() {
		log.Error("refusing to publish unknown event kind")
		metrics.BrokerPublishTotal.WithLabelValues(string(kind), "error").Inc()
		return false
	}

	msg := event.New(kind, recordID, CleanPayload(payload), b.now())
	body, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to encode event", zap.Error(err))
		metrics.BrokerPublishTotal.WithLabelValues(string(kind), "error").Inc()
		return false
	}

	if err := b.store.LPush(ctx, kind.Queue(), body); err != nil {
		log.Error("failed to publish event", zap.String("queue", kind.Queue()), zap.Error(err))
		metrics.BrokerPublishTotal.WithLabelValues(string(kind), "error").Inc()
		return false
	}

	metrics.BrokerPublishTotal.WithLabelValues(string(kind), "ok").Inc()
	log.Debug("event published", zap.String("queue", kind.Queue()))
	return true
}

// Consume pops the oldest message of queue, waiting up to timeout.
// A timeout returns (nil, nil).
func (b *Broker) Consume(ctx context.Context, queue string, timeout time.Duration) (*Delivery, error) {
	body, err := b.store.BRPop(ctx, queue, timeout)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return &Delivery{Queue: queue, Body: body}, nil
}

// QueueDepth returns the number of pending messages in queue.
func (b *Broker) QueueDepth(ctx context.Context, queue string) (int64, error) {
	n, err := b.store.LLen(ctx, queue)
	if err != nil {
		return 0, fmt.Errorf("queue depth %s: %w", queue, err)
	}
	return n, nil
}

// Clear drops every pending message in queue.
func (b *Broker) Clear(ctx context.Context, queue string) error {
	if err := b.store.Del(ctx, queue); err != nil {
		return fmt.Errorf("clear %s: %w", queue, err)
	}
	b.logger.Info("queue cleared", zap.String("queue", queue))
	return nil
}
