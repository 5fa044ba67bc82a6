// Package indexing derives index entries from canonical listings and writes
// them to the vector index.
package indexing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain/listing"
	"github.com/SPD-BES-2025-3/grupo1/internal/logger"
)

// Service indexes listings.
type Service struct {
	embedder Embedder
	index    VectorIndex
	records  RecordSource
}

// New creates a Service. records is only needed by SyncOne and SyncAll.
func New(embedder Embedder, index VectorIndex, records RecordSource) *Service {
	return &Service{embedder: embedder, index: index, records: records}
}

// IndexBatch embeds and upserts records in one embedding call.
func (s *Service) IndexBatch(ctx context.Context, records []listing.Record) error {
	if len(records) == 0 {
		return nil
	}

	e := domain.Entries{
		IDs:       make([]string, len(records)),
		Documents: make([]string, len(records)),
		Metadatas: make([]map[string]string, len(records)),
	}
	for i, r := range records {
		e.IDs[i] = r.ID
		e.Documents[i] = r.Content()
		e.Metadatas[i] = r.Metadata()
	}

	vecs, err := s.embedder.Embed(ctx, e.Documents)
	if err != nil {
		return fmt.Errorf("embed %d listings: %w", len(records), err)
	}
	e.Embeddings = vecs

	if err := s.index.Upsert(ctx, e); err != nil {
		return fmt.Errorf("upsert %d listings: %w", len(records), err)
	}

	logger.FromContext(ctx).Debug("Listings indexed", zap.Int("count", len(records)))
	return nil
}

// IndexOne upserts a single record, replacing any entry with the same id.
func (s *Service) IndexOne(ctx context.Context, r listing.Record) error {
	return s.IndexBatch(ctx, []listing.Record{r})
}

// DeleteOne removes the entry for id. Deleting an absent id is a no-op.
func (s *Service) DeleteOne(ctx context.Context, id string) error {
	if err := s.index.Delete(ctx, []string{id}); err != nil {
		return fmt.Errorf("delete listing %s: %w", id, err)
	}
	return nil
}

// SyncOne re-reads id from the canonical store and upserts it.
// Returns domain.ErrRecordNotFound when the listing does not exist.
func (s *Service) SyncOne(ctx context.Context, id string) error {
	r, err := s.records.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve listing %s: %w", id, err)
	}
	return s.IndexOne(ctx, r)
}

// SyncAll pages through the canonical store and upserts every listing.
// It returns the number of listings indexed, including on error.
func (s *Service) SyncAll(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)
	total := 0
	after := ""

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		page, err := s.records.ListPage(ctx, after, 0)
		if err != nil {
			return total, fmt.Errorf("list after %q: %w", after, err)
		}
		if len(page) == 0 {
			break
		}

		if err := s.IndexBatch(ctx, page); err != nil {
			return total, err
		}
		total += len(page)
		after = page[len(page)-1].ID

		log.Info("Re-sync progress", zap.Int("indexed", total), zap.String("last_id", after))
	}

	return total, nil
}
