package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockDBPinger{}, &mockChecker{}, &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, c := range []string{ComponentRedis, ComponentRecords, ComponentEmbedding, ComponentGenerator} {
		if r.Checks[c] != CheckOK {
			t.Errorf("expected %s %q, got %q", c, CheckOK, r.Checks[c])
		}
	}
}

func TestCheck_RedisError(t *testing.T) {
	svc := New(&mockDBPinger{err: errors.New("conn refused")}, &mockDBPinger{}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[ComponentRedis] != CheckError {
		t.Errorf("expected redis %q, got %q", CheckError, r.Checks[ComponentRedis])
	}
	if r.Checks[ComponentRecords] != CheckOK {
		t.Errorf("expected records %q, got %q", CheckOK, r.Checks[ComponentRecords])
	}
}

func TestCheck_RecordsError(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockDBPinger{err: errors.New("db down")}, &mockChecker{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentRecords] != CheckError {
		t.Errorf("expected records %q, got %q", CheckError, r.Checks[ComponentRecords])
	}
}

func TestCheck_EmbeddingError(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockDBPinger{}, &mockChecker{err: errors.New("timeout")}, nil)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentEmbedding] != CheckError {
		t.Errorf("expected embedding %q, got %q", CheckError, r.Checks[ComponentEmbedding])
	}
}

func TestCheck_GeneratorError(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockDBPinger{}, nil, &mockChecker{err: errors.New("ollama down")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentGenerator] != CheckError {
		t.Error("expected generator error")
	}
}

func TestCheck_OptionalAbsent(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockDBPinger{}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks[ComponentEmbedding]; ok {
		t.Error("embedding check should be absent when embedding is nil")
	}
	if _, ok := r.Checks[ComponentGenerator]; ok {
		t.Error("generator check should be absent when generator is nil")
	}
}
