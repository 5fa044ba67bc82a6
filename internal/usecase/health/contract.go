package health

import "context"

// DBPinger checks store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an HTTP dependency (embedding model, generative endpoint).
type Checker interface {
	HealthCheck(ctx context.Context) error
}
