package indexing

import (
	"context"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain/listing"
)

// Embedder turns a batch of texts into vectors, one per text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the write side of the vector index adapter.
type VectorIndex interface {
	Upsert(ctx context.Context, e domain.Entries) error
	Delete(ctx context.Context, ids []string) error
}

// RecordSource reads canonical listings.
type RecordSource interface {
	GetByID(ctx context.Context, id string) (listing.Record, error)
	ListPage(ctx context.Context, afterID string, limit int) ([]listing.Record, error)
}
