package worker

import (
	"context"
	"time"

	"github.com/SPD-BES-2025-3/grupo1/internal/broker"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain/listing"
)

// Queue is the consuming side of the broker.
type Queue interface {
	Consume(ctx context.Context, queue string, timeout time.Duration) (*broker.Delivery, error)
}

// Indexer reconciles the vector index.
type Indexer interface {
	IndexOne(ctx context.Context, r listing.Record) error
	DeleteOne(ctx context.Context, id string) error
}

// RecordSource resolves canonical listings.
type RecordSource interface {
	GetByID(ctx context.Context, id string) (listing.Record, error)
}
