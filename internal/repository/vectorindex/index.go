// Package vectorindex stores listing embeddings as Redis hashes covered by
// an FT vector index and answers nearest-neighbour queries over them.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SPD-BES-2025-3/grupo1/internal/db"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
)

// Reserved hash fields. Metadata keys must not start with "__".
const (
	contentField = "__content"
	vectorField  = db.DefaultVectorField
)

// store is the consumer interface for the vector index (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config describes one index namespace.
type Config struct {
	KeyPrefix       string
	Dimension       int
	HNSWM           int
	HNSWEFConstruct int
	// MetadataFields are indexed as TEXT and returned with every hit.
	MetadataFields []string
}

// Index is the Redis-backed vector index adapter. Keys and index name are
// namespaced by dimension so vectors of different embedding tiers never mix.
type Index struct {
	store     store
	cfg       Config
	indexName string
	keyPrefix string
}

// New creates an adapter for the namespace of cfg.Dimension.
func New(s store, cfg Config) *Index {
	dim := strconv.Itoa(cfg.Dimension)
	return &Index{
		store:     s,
		cfg:       cfg,
		indexName: cfg.KeyPrefix + "idx:" + dim,
		keyPrefix: cfg.KeyPrefix + dim + ":",
	}
}

// Name returns the FT index name.
func (ix *Index) Name() string { return ix.indexName }

// EnsureIndex creates the FT index if it does not exist yet.
func (ix *Index) EnsureIndex(ctx context.Context) error {
	exists, err := ix.store.IndexExists(ctx, ix.indexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", ix.indexName, err)
	}
	if exists {
		return nil
	}

	b := db.NewIndex(ix.indexName).Prefix(ix.keyPrefix)
	for _, f := range ix.cfg.MetadataFields {
		b = b.Text(f)
	}
	def, err := b.VectorHNSW(vectorField, ix.cfg.Dimension, db.DistanceCosine,
		ix.cfg.HNSWM, ix.cfg.HNSWEFConstruct).Build()
	if err != nil {
		return fmt.Errorf("build index %s: %w", ix.indexName, err)
	}

	if err := ix.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", ix.indexName, err)
	}
	return nil
}

// Add inserts new entries. It fails with domain.ErrAlreadyExists if any id
// is already indexed and writes nothing in that case.
func (ix *Index) Add(ctx context.Context, e domain.Entries) error {
	if err := ix.validate(e); err != nil {
		return err
	}
	for _, id := range e.IDs {
		exists, err := ix.store.Exists(ctx, ix.key(id))
		if err != nil {
			return fmt.Errorf("check %s: %w", id, err)
		}
		if exists {
			return fmt.Errorf("entry %s: %w", id, domain.ErrAlreadyExists)
		}
	}
	return ix.write(ctx, e)
}

// Upsert writes entries, replacing any existing entry with the same id.
func (ix *Index) Upsert(ctx context.Context, e domain.Entries) error {
	if err := ix.validate(e); err != nil {
		return err
	}
	return ix.write(ctx, e)
}

// Delete removes entries by id. Unknown ids are ignored.
func (ix *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = ix.key(id)
	}
	if err := ix.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete %d entries: %w", len(ids), err)
	}
	return nil
}

// Query returns the n nearest entries for each vector, closest first.
func (ix *Index) Query(ctx context.Context, vectors [][]float32, n int) (domain.QueryResult, error) {
	res := domain.QueryResult{
		IDs:       make([][]string, len(vectors)),
		Distances: make([][]float64, len(vectors)),
		Metadatas: make([][]map[string]string, len(vectors)),
	}

	for i, vec := range vectors {
		if len(vec) != ix.cfg.Dimension {
			return domain.QueryResult{}, fmt.Errorf("%w: query has %d dims, index %s expects %d",
				domain.ErrVectorDimMismatch, len(vec), ix.indexName, ix.cfg.Dimension)
		}

		sr, err := ix.store.SearchKNN(ctx, &db.KNNQuery{
			IndexName:    ix.indexName,
			VectorField:  vectorField,
			Vector:       vec,
			K:            n,
			ReturnFields: ix.cfg.MetadataFields,
		})
		if err != nil {
			return domain.QueryResult{}, fmt.Errorf("knn %s: %w", ix.indexName, err)
		}

		ids := make([]string, 0, len(sr.Entries))
		dists := make([]float64, 0, len(sr.Entries))
		metas := make([]map[string]string, 0, len(sr.Entries))
		for _, entry := range sr.Entries {
			ids = append(ids, strings.TrimPrefix(entry.Key, ix.keyPrefix))
			dists = append(dists, entry.Distance)
			metas = append(metas, entry.Fields)
		}
		res.IDs[i], res.Distances[i], res.Metadatas[i] = ids, dists, metas
	}

	return res, nil
}

func (ix *Index) validate(e domain.Entries) error {
	if err := e.Validate(); err != nil {
		return err
	}
	for i, v := range e.Embeddings {
		if len(v) != ix.cfg.Dimension {
			return fmt.Errorf("%w: entry %s has %d dims, index %s expects %d",
				domain.ErrVectorDimMismatch, e.IDs[i], len(v), ix.indexName, ix.cfg.Dimension)
		}
	}
	return nil
}

func (ix *Index) write(ctx context.Context, e domain.Entries) error {
	if e.Len() == 0 {
		return nil
	}
	items := make([]db.HashSetItem, e.Len())
	for i, id := range e.IDs {
		fields := make(map[string]string, len(e.Metadatas[i])+2)
		for k, v := range e.Metadatas[i] {
			fields[k] = v
		}
		fields[contentField] = e.Documents[i]
		fields[vectorField] = string(db.EncodeVector(e.Embeddings[i]))
		items[i] = db.HashSetItem{Key: ix.key(id), Fields: fields}
	}
	if err := ix.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write %d entries: %w", e.Len(), err)
	}
	return nil
}

func (ix *Index) key(id string) string {
	return ix.keyPrefix + id
}
