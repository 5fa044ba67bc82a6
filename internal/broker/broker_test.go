package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/db"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain/event"
)

// memStore is an in-memory list store with LPUSH/BRPOP semantics.
type memStore struct {
	mu       sync.Mutex
	lists    map[string][][]byte
	pushErr  error
	popErr   error
	popCalls int
}

func newMemStore() *memStore {
	return &memStore{lists: map[string][][]byte{}}
}

func (m *memStore) LPush(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pushErr != nil {
		return m.pushErr
	}
	m.lists[key] = append([][]byte{value}, m.lists[key]...)
	return nil
}

func (m *memStore) BRPop(_ context.Context, key string, _ time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.popCalls++
	if m.popErr != nil {
		return nil, m.popErr
	}
	l := m.lists[key]
	if len(l) == 0 {
		return nil, db.ErrKeyNotFound
	}
	v := l[len(l)-1]
	m.lists[key] = l[:len(l)-1]
	return v, nil
}

func (m *memStore) LLen(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.lists[key])), nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.lists, k)
	}
	return nil
}

func newTestBroker(s store) *Broker {
	b := New(s, zap.NewNop())
	b.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return b
}

func TestPublish_WireFormat(t *testing.T) {
	s := newMemStore()
	b := newTestBroker(s)

	ok := b.Publish(context.Background(), event.Created, "abc123", map[string]any{
		"_id":    objectID{0xab},
		"titulo": "Casa X",
	})
	if !ok {
		t.Fatal("expected publish to succeed")
	}

	l := s.lists["imovel_created_queue"]
	if len(l) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(l))
	}

	var wire map[string]any
	if err := json.Unmarshal(l[0], &wire); err != nil {
		t.Fatalf("message is not JSON: %v", err)
	}
	if wire["event"] != "imovel_created" || wire["id"] != "abc123" {
		t.Errorf("unexpected envelope %v", wire)
	}
	if wire["timestamp"] != "2025-03-01T12:00:00Z" {
		t.Errorf("unexpected timestamp %v", wire["timestamp"])
	}
	payload, _ := wire["payload"].(map[string]any)
	if payload["titulo"] != "Casa X" {
		t.Errorf("unexpected payload %v", payload)
	}
	if _, ok := payload["_id"]; ok {
		t.Error("store id must be stripped from payload")
	}
}

func TestPublish_BrokerDown(t *testing.T) {
	s := newMemStore()
	s.pushErr = errors.New("connection refused")
	b := newTestBroker(s)

	if b.Publish(context.Background(), event.Updated, "abc123", nil) {
		t.Fatal("expected publish to report failure")
	}
}

func TestPublish_UnknownKind(t *testing.T) {
	s := newMemStore()
	b := newTestBroker(s)

	if b.Publish(context.Background(), event.Kind("imovel_moved"), "abc123", nil) {
		t.Fatal("expected publish to reject unknown kind")
	}
	if len(s.lists) != 0 {
		t.Errorf("nothing should be queued, got %v", s.lists)
	}
}

func TestConsume_FIFO(t *testing.T) {
	s := newMemStore()
	b := newTestBroker(s)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if !b.Publish(ctx, event.Created, id, nil) {
			t.Fatalf("publish %s failed", id)
		}
	}

	for _, want := range []string{"1", "2", "3"} {
		d, err := b.Consume(ctx, event.Created.Queue(), time.Second)
		if err != nil || d == nil {
			t.Fatalf("Consume = %v, %v", d, err)
		}
		e, err := d.Decode()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if e.ID != want {
			t.Errorf("expected id %s, got %s", want, e.ID)
		}
	}
}

func TestConsume_TimeoutIsNotAnError(t *testing.T) {
	b := newTestBroker(newMemStore())

	d, err := b.Consume(context.Background(), "imovel_deleted_queue", time.Second)
	if err != nil {
		t.Fatalf("timeout must not be an error: %v", err)
	}
	if d != nil {
		t.Errorf("expected nil delivery, got %+v", d)
	}
}

func TestConsume_BrokerError(t *testing.T) {
	s := newMemStore()
	s.popErr = errors.New("connection reset")
	b := newTestBroker(s)

	if _, err := b.Consume(context.Background(), "q", time.Second); err == nil {
		t.Fatal("expected error")
	}
}

func TestDelivery_DecodeMalformed(t *testing.T) {
	d := &Delivery{Queue: "q", Body: []byte("not json")}
	if _, err := d.Decode(); !errors.Is(err, domain.ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestQueueDepthAndClear(t *testing.T) {
	s := newMemStore()
	b := newTestBroker(s)
	ctx := context.Background()

	b.Publish(ctx, event.Deleted, "1", nil)
	b.Publish(ctx, event.Deleted, "2", nil)

	n, err := b.QueueDepth(ctx, event.Deleted.Queue())
	if err != nil || n != 2 {
		t.Fatalf("QueueDepth = %d, %v", n, err)
	}

	if err := b.Clear(ctx, event.Deleted.Queue()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	n, _ = b.QueueDepth(ctx, event.Deleted.Queue())
	if n != 0 {
		t.Errorf("expected empty queue after clear, got %d", n)
	}
}

func TestQueues(t *testing.T) {
	want := []string{"imovel_created_queue", "imovel_updated_queue", "imovel_deleted_queue"}
	got := Queues()
	if len(got) != len(want) {
		t.Fatalf("expected %d queues, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("queue %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if QueueName(event.Deleted) != "imovel_deleted_queue" {
		t.Errorf("unexpected queue name %q", QueueName(event.Deleted))
	}
}

// panicky panics on encoding, whatever the receiver.
type panicky struct{}

func (panicky) MarshalJSON() ([]byte, error) { panic("boom") }

func TestPublish_NilIdentifier(t *testing.T) {
	s := newMemStore()
	b := newTestBroker(s)

	if !b.Publish(context.Background(), event.Created, "abc", map[string]any{"imobiliaria_id": (*objectID)(nil)}) {
		t.Fatal("expected publish to succeed")
	}
	var wire struct {
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(s.lists["imovel_created_queue"][0], &wire); err != nil {
		t.Fatalf("message is not JSON: %v", err)
	}
	if v, ok := wire.Payload["imobiliaria_id"]; !ok || v != nil {
		t.Errorf("expected null imobiliaria_id, got %#v", wire.Payload)
	}
}

func TestPublish_RecoversFromPanic(t *testing.T) {
	s := newMemStore()
	b := newTestBroker(s)

	if b.Publish(context.Background(), event.Created, "abc", map[string]any{"x": panicky{}}) {
		t.Fatal("expected publish to report failure")
	}
	if len(s.lists) != 0 {
		t.Errorf("nothing should be queued, got %v", s.lists)
	}
}
