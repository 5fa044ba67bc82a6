package event

import (
	"errors"
	"testing"
	"time"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
)

func TestKind_Queue(t *testing.T) {
	tests := map[Kind]string{
		Created: "imovel_created_queue",
		Updated: "imovel_updated_queue",
		Deleted: "imovel_deleted_queue",
	}
	for k, want := range tests {
		if got := k.Queue(); got != want {
			t.Errorf("%s.Queue() = %q, want %q", k, got, want)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, in := range []string{"created", "imovel_created"} {
		k, err := ParseKind(in)
		if err != nil || k != Created {
			t.Errorf("ParseKind(%q) = %q, %v", in, k, err)
		}
	}
	if _, err := ParseKind("moved"); !errors.Is(err, domain.ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestNew_TimestampUTC(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	e := New(Created, "abc123", nil, time.Date(2025, 3, 1, 9, 0, 0, 0, loc))

	if e.Timestamp != "2025-03-01T12:00:00Z" {
		t.Errorf("unexpected timestamp %q", e.Timestamp)
	}
	if e.Payload == nil {
		t.Error("payload must never be nil")
	}
}

func TestDecode(t *testing.T) {
	e, err := Decode([]byte(`{"event":"imovel_updated","id":"abc123","timestamp":"2025-03-01T12:00:00Z","payload":{"titulo":"Casa X"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Kind != Updated || e.ID != "abc123" || e.Payload["titulo"] != "Casa X" {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestDecode_Invalid(t *testing.T) {
	bodies := map[string]string{
		"not json":     `not json`,
		"unknown kind": `{"event":"imovel_moved","id":"1"}`,
		"missing id":   `{"event":"imovel_created"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(body)); !errors.Is(err, domain.ErrInvalidEvent) {
				t.Errorf("expected ErrInvalidEvent, got %v", err)
			}
		})
	}
}
