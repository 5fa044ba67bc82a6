package search

import (
	"context"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain/listing"
)

// Embedder turns a batch of texts into vectors, one per text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the read side of the vector index adapter.
type VectorIndex interface {
	Query(ctx context.Context, vectors [][]float32, n int) (domain.QueryResult, error)
}

// RecordReader hydrates hits from the canonical store.
type RecordReader interface {
	GetByID(ctx context.Context, id string) (listing.Record, error)
}
