// Package search answers similarity queries with listings hydrated from the
// canonical store.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain/listing"
	"github.com/SPD-BES-2025-3/grupo1/internal/logger"
	"github.com/SPD-BES-2025-3/grupo1/internal/metrics"
)

// Service runs semantic search.
type Service struct {
	embed   Embedder
	index   VectorIndex
	records RecordReader
	maxTopK int
}

// New creates a search service. maxTopK bounds the n_results a caller may ask for.
func New(embed Embedder, index VectorIndex, records RecordReader, maxTopK int) *Service {
	return &Service{embed: embed, index: index, records: records, maxTopK: maxTopK}
}

// Search returns up to topK listings ordered by ascending vector distance.
// SimilarityScore is 1 - distance, unclamped. Hits that cannot be hydrated
// are skipped. Embedding or index failures are logged and produce an empty
// result; only an invalid request returns an error.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]listing.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidQuery)
	}
	if topK <= 0 || (s.maxTopK > 0 && topK > s.maxTopK) {
		return nil, fmt.Errorf("%w: n_results must be between 1 and %d", domain.ErrInvalidQuery, s.maxTopK)
	}

	log := logger.FromContext(ctx).With(zap.String("query", query), zap.Int("top_k", topK))

	vecs, err := s.embed.Embed(ctx, []string{query})
	if err != nil || len(vecs) != 1 {
		log.Error("Search embedding failed", zap.Error(err))
		metrics.SearchRequestsTotal.WithLabelValues("degraded").Inc()
		return []listing.Hit{}, nil
	}

	res, err := s.index.Query(ctx, vecs, topK)
	if err != nil {
		log.Error("Vector index query failed", zap.Error(err))
		metrics.SearchRequestsTotal.WithLabelValues("degraded").Inc()
		return []listing.Hit{}, nil
	}
	if len(res.IDs) == 0 {
		metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
		return []listing.Hit{}, nil
	}

	ids := res.IDs[0]
	var dists []float64
	if len(res.Distances) > 0 {
		dists = res.Distances[0]
	}
	hits := make([]listing.Hit, 0, len(ids))
	for i, id := range ids {
		if i >= len(dists) {
			log.Error("Vector index returned fewer distances than ids", zap.Int("ids", len(ids)), zap.Int("distances", len(dists)))
			break
		}
		rec, err := s.records.GetByID(ctx, id)
		if err != nil {
			metrics.SearchHydrationMissesTotal.Inc()
			log.Warn("Skipping unhydrated hit", zap.String("id", id), zap.Error(err))
			continue
		}
		hits = append(hits, listing.Hit{Record: rec, SimilarityScore: 1 - dists[i]})
	}

	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	log.Debug("Search completed", zap.Int("candidates", len(ids)), zap.Int("hits", len(hits)))
	return hits, nil
}
