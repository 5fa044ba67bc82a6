package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
)

// Kind is the lifecycle event type carried in the "event" field.
type Kind string

// Lifecycle event kinds.
const (
	Created Kind = "imovel_created"
	Updated Kind = "imovel_updated"
	Deleted Kind = "imovel_deleted"
)

// Kinds lists every lifecycle event kind in publish order of a record's life.
func Kinds() []Kind {
	return []Kind{Created, Updated, Deleted}
}

// ParseKind accepts either the full event name or its short form (created, updated, deleted).
func ParseKind(s string) (Kind, error) {
	switch s {
	case string(Created), "created":
		return Created, nil
	case string(Updated), "updated":
		return Updated, nil
	case string(Deleted), "deleted":
		return Deleted, nil
	}
	return "", fmt.Errorf("%w: unknown event kind %q", domain.ErrInvalidEvent, s)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case Created, Updated, Deleted:
		return true
	}
	return false
}

// Queue returns the name of the list that carries events of this kind.
func (k Kind) Queue() string {
	return string(k) + "_queue"
}

// Event is a lifecycle message as it travels through a queue.
// Payload is diagnostic only: consumers re-read the canonical record.
type Event struct {
	Kind      Kind           `json:"event"`
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

// New builds an event stamped with the current UTC time.
func New(kind Kind, id string, payload map[string]any, now time.Time) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{
		Kind:      kind,
		ID:        id,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	}
}

// Decode parses a queue message body and checks the event kind and id.
func Decode(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %w", domain.ErrInvalidEvent, err)
	}
	if !e.Kind.Valid() {
		return Event{}, fmt.Errorf("%w: unknown event kind %q", domain.ErrInvalidEvent, e.Kind)
	}
	if e.ID == "" {
		return Event{}, fmt.Errorf("%w: missing id", domain.ErrInvalidEvent)
	}
	return e, nil
}
