// Package milvus is the Milvus-backed vector index adapter, selected with
// vector_index.driver: milvus.
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
)

const (
	idField       = "id"
	contentField  = "document"
	vectorField   = "vector"
	maxIDLen      = "128"
	maxTextLen    = "65535"
	hnswSearchEF  = 64
	collectionSep = "_"
)

// milvusClient is the subset of client.Client the adapter uses (ISP).
type milvusClient interface {
	HasCollection(ctx context.Context, collName string) (bool, error)
	CreateCollection(ctx context.Context, schema *entity.Schema, shardsNum int32, opts ...client.CreateCollectionOption) error
	CreateIndex(ctx context.Context, collName string, fieldName string, idx entity.Index, async bool, opts ...client.IndexOption) error
	LoadCollection(ctx context.Context, collName string, async bool, opts ...client.LoadCollectionOption) error
	Insert(ctx context.Context, collName string, partitionName string, columns ...entity.Column) (entity.Column, error)
	Upsert(ctx context.Context, collName string, partitionName string, columns ...entity.Column) (entity.Column, error)
	Delete(ctx context.Context, collName string, partitionName string, expr string) error
	Flush(ctx context.Context, collName string, async bool, opts ...client.FlushOption) error
	Query(ctx context.Context, collectionName string, partitionNames []string, expr string,
		outputFields []string, opts ...client.SearchQueryOptionFunc) (client.ResultSet, error)
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string,
		vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int,
		sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
}

// Config describes one collection.
type Config struct {
	Collection      string
	Dimension       int
	HNSWM           int
	HNSWEFConstruct int
	MetadataFields  []string
}

// Index implements the vector index contract over a Milvus collection whose
// name carries the vector dimension.
type Index struct {
	client     milvusClient
	cfg        Config
	collection string
	logger     *zap.Logger
}

// Dial connects to Milvus.
func Dial(ctx context.Context, address, username, password, database string) (client.Client, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address:  address,
		Username: username,
		Password: password,
		DBName:   database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus %s: %w", address, err)
	}
	return c, nil
}

// New creates an adapter over c.
func New(c milvusClient, cfg Config, logger *zap.Logger) *Index {
	return &Index{
		client:     c,
		cfg:        cfg,
		collection: cfg.Collection + collectionSep + strconv.Itoa(cfg.Dimension),
		logger:     logger,
	}
}

// Name returns the collection name.
func (ix *Index) Name() string { return ix.collection }

// EnsureIndex creates, indexes and loads the collection if it is missing.
func (ix *Index) EnsureIndex(ctx context.Context) error {
	has, err := ix.client.HasCollection(ctx, ix.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", ix.collection, err)
	}
	if !has {
		if err := ix.create(ctx); err != nil {
			return err
		}
	}
	if err := ix.client.LoadCollection(ctx, ix.collection, false); err != nil {
		return fmt.Errorf("load collection %s: %w", ix.collection, err)
	}
	return nil
}

func (ix *Index) create(ctx context.Context) error {
	fields := []*entity.Field{
		{
			Name:       idField,
			DataType:   entity.FieldTypeVarChar,
			PrimaryKey: true,
			TypeParams: map[string]string{entity.TypeParamMaxLength: maxIDLen},
		},
		{
			Name:       contentField,
			DataType:   entity.FieldTypeVarChar,
			TypeParams: map[string]string{entity.TypeParamMaxLength: maxTextLen},
		},
	}
	for _, f := range ix.cfg.MetadataFields {
		if f == idField {
			continue
		}
		fields = append(fields, &entity.Field{
			Name:       f,
			DataType:   entity.FieldTypeVarChar,
			TypeParams: map[string]string{entity.TypeParamMaxLength: maxTextLen},
		})
	}
	fields = append(fields, &entity.Field{
		Name:       vectorField,
		DataType:   entity.FieldTypeFloatVector,
		TypeParams: map[string]string{entity.TypeParamDim: strconv.Itoa(ix.cfg.Dimension)},
	})

	schema := &entity.Schema{
		CollectionName: ix.collection,
		Description:    "listing embeddings",
		Fields:         fields,
	}
	if err := ix.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("create collection %s: %w", ix.collection, err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, ix.cfg.HNSWM, ix.cfg.HNSWEFConstruct)
	if err != nil {
		return fmt.Errorf("hnsw params: %w", err)
	}
	if err := ix.client.CreateIndex(ctx, ix.collection, vectorField, idx, false); err != nil {
		return fmt.Errorf("create index %s: %w", ix.collection, err)
	}

	ix.logger.Info("Milvus collection created",
		zap.String("collection", ix.collection),
		zap.Int("dimension", ix.cfg.Dimension),
	)
	return nil
}

// Add inserts new entries and fails with domain.ErrAlreadyExists if any id is present.
func (ix *Index) Add(ctx context.Context, e domain.Entries) error {
	if err := ix.validate(e); err != nil {
		return err
	}
	if e.Len() == 0 {
		return nil
	}

	rs, err := ix.client.Query(ctx, ix.collection, nil, idExpr(e.IDs), []string{idField})
	if err != nil {
		return fmt.Errorf("lookup ids: %w", err)
	}
	if col := rs.GetColumn(idField); col != nil && col.Len() > 0 {
		return fmt.Errorf("%d of %d entries: %w", col.Len(), e.Len(), domain.ErrAlreadyExists)
	}

	if _, err := ix.client.Insert(ctx, ix.collection, "", ix.columns(e)...); err != nil {
		return fmt.Errorf("insert %d entries: %w", e.Len(), err)
	}
	ix.flush(ctx)
	return nil
}

// Upsert writes entries, replacing any existing entry with the same id.
func (ix *Index) Upsert(ctx context.Context, e domain.Entries) error {
	if err := ix.validate(e); err != nil {
		return err
	}
	if e.Len() == 0 {
		return nil
	}
	if _, err := ix.client.Upsert(ctx, ix.collection, "", ix.columns(e)...); err != nil {
		return fmt.Errorf("upsert %d entries: %w", e.Len(), err)
	}
	ix.flush(ctx)
	return nil
}

// Delete removes entries by id. Unknown ids are ignored.
func (ix *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := ix.client.Delete(ctx, ix.collection, "", idExpr(ids)); err != nil {
		return fmt.Errorf("delete %d entries: %w", len(ids), err)
	}
	ix.flush(ctx)
	return nil
}

// Query returns the n nearest entries for each vector. Milvus reports cosine
// similarity, converted here to cosine distance (1 - similarity).
func (ix *Index) Query(ctx context.Context, vectors [][]float32, n int) (domain.QueryResult, error) {
	qv := make([]entity.Vector, len(vectors))
	for i, v := range vectors {
		if len(v) != ix.cfg.Dimension {
			return domain.QueryResult{}, fmt.Errorf("%w: query has %d dims, collection %s expects %d",
				domain.ErrVectorDimMismatch, len(v), ix.collection, ix.cfg.Dimension)
		}
		qv[i] = entity.FloatVector(v)
	}

	sp, err := entity.NewIndexHNSWSearchParam(max(hnswSearchEF, n))
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("search params: %w", err)
	}

	results, err := ix.client.Search(ctx, ix.collection, nil, "", ix.cfg.MetadataFields,
		qv, vectorField, entity.COSINE, n, sp)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("search %s: %w", ix.collection, err)
	}

	out := domain.QueryResult{
		IDs:       make([][]string, len(vectors)),
		Distances: make([][]float64, len(vectors)),
		Metadatas: make([][]map[string]string, len(vectors)),
	}
	for i := range vectors {
		if i >= len(results) {
			break
		}
		r := results[i]
		if r.Err != nil {
			return domain.QueryResult{}, fmt.Errorf("search %s: %w", ix.collection, r.Err)
		}
		ids, dists, metas := ix.decode(r)
		out.IDs[i], out.Distances[i], out.Metadatas[i] = ids, dists, metas
	}
	return out, nil
}

func (ix *Index) decode(r client.SearchResult) ([]string, []float64, []map[string]string) {
	var ids []string
	if col, ok := r.IDs.(*entity.ColumnVarChar); ok {
		ids = col.Data()
	}

	meta := make(map[string][]string, len(ix.cfg.MetadataFields))
	for _, f := range ix.cfg.MetadataFields {
		if col, ok := r.Fields.GetColumn(f).(*entity.ColumnVarChar); ok {
			meta[f] = col.Data()
		}
	}

	n := min(r.ResultCount, len(ids))
	dists := make([]float64, n)
	metas := make([]map[string]string, n)
	for i := 0; i < n; i++ {
		if i < len(r.Scores) {
			dists[i] = 1 - float64(r.Scores[i])
		}
		m := make(map[string]string, len(meta))
		for f, vals := range meta {
			if i < len(vals) {
				m[f] = vals[i]
			}
		}
		metas[i] = m
	}
	return ids[:n], dists, metas
}

func (ix *Index) columns(e domain.Entries) []entity.Column {
	cols := []entity.Column{
		entity.NewColumnVarChar(idField, e.IDs),
		entity.NewColumnVarChar(contentField, e.Documents),
	}
	for _, f := range ix.cfg.MetadataFields {
		if f == idField {
			continue
		}
		vals := make([]string, e.Len())
		for i, m := range e.Metadatas {
			vals[i] = m[f]
		}
		cols = append(cols, entity.NewColumnVarChar(f, vals))
	}
	return append(cols, entity.NewColumnFloatVector(vectorField, ix.cfg.Dimension, e.Embeddings))
}

func (ix *Index) validate(e domain.Entries) error {
	if err := e.Validate(); err != nil {
		return err
	}
	for i, v := range e.Embeddings {
		if len(v) != ix.cfg.Dimension {
			return fmt.Errorf("%w: entry %s has %d dims, collection %s expects %d",
				domain.ErrVectorDimMismatch, e.IDs[i], len(v), ix.collection, ix.cfg.Dimension)
		}
	}
	return nil
}

// flush makes writes visible to search; a failed flush only delays that.
func (ix *Index) flush(ctx context.Context) {
	if err := ix.client.Flush(ctx, ix.collection, false); err != nil {
		ix.logger.Warn("Milvus flush failed", zap.String("collection", ix.collection), zap.Error(err))
	}
}

func idExpr(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	return idField + " in [" + strings.Join(quoted, ",") + "]"
}
