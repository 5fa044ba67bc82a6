package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/broker"
	"github.com/SPD-BES-2025-3/grupo1/internal/config"
	"github.com/SPD-BES-2025-3/grupo1/internal/db"
	dbRedis "github.com/SPD-BES-2025-3/grupo1/internal/db/redis"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain/listing"
	logpkg "github.com/SPD-BES-2025-3/grupo1/internal/logger"
	"github.com/SPD-BES-2025-3/grupo1/internal/metrics"
	"github.com/SPD-BES-2025-3/grupo1/internal/repository/embcache"
	"github.com/SPD-BES-2025-3/grupo1/internal/repository/record"
	"github.com/SPD-BES-2025-3/grupo1/internal/repository/vectorindex"
	milvusindex "github.com/SPD-BES-2025-3/grupo1/internal/repository/vectorindex/milvus"
	"github.com/SPD-BES-2025-3/grupo1/internal/transport/ollama"
	openaiEmb "github.com/SPD-BES-2025-3/grupo1/internal/transport/openai"
	embeddinguc "github.com/SPD-BES-2025-3/grupo1/internal/usecase/embedding"
	"github.com/SPD-BES-2025-3/grupo1/internal/usecase/indexing"
)

// vectorIndex is what the composition root needs from either adapter.
type vectorIndex interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, e domain.Entries) error
	Delete(ctx context.Context, ids []string) error
	Query(ctx context.Context, vectors [][]float32, n int) (domain.QueryResult, error)
	Name() string
}

var metadataFields = []string{
	listing.MetaID, listing.MetaTitle, listing.MetaDescription, listing.MetaSpecifications,
}

// app holds the process-wide connections. Everything built on top of them
// is created per consumer through the new* methods.
type app struct {
	cfg     config.Config
	env     string
	logger  *zap.Logger
	store   db.Store
	records *sql.DB
	closers []func()
}

// bootstrap loads config, builds the logger and connects to Redis and
// Postgres. Redis being unreachable is fatal: no queue works without it.
func bootstrap(ctx context.Context, env string) *app {
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}

	a := &app{cfg: cfg, env: env, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create redis store", zap.Error(err))
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Redis not ready", zap.Error(err))
	}
	a.store = store
	a.closers = append(a.closers, store.Close)
	logger.Info("Connected to redis", zap.Strings("addrs", cfg.Redis.Addrs))

	conn, err := record.Open(cfg.Records.DSN)
	if err != nil {
		logger.Fatal("Failed to open records store", zap.Error(err))
	}
	a.records = conn
	a.closers = append(a.closers, func() { _ = conn.Close() })

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()
	return a
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) newBroker() *broker.Broker {
	return broker.New(a.store, a.logger.Named("broker"))
}

func (a *app) newRecordRepo() *record.Repo {
	return record.New(a.records, a.cfg.Records.Table, a.cfg.Records.PageSize)
}

// newModelEmbedder builds the model tier: OpenAI-compatible client, batch
// splitting, then the Redis cache. Returns nil interfaces when no model is
// configured.
func (a *app) newModelEmbedder() (domain.BatchEmbedder, *openaiEmb.Embedder) {
	mc := a.cfg.Embedding.Model
	if !mc.Enabled() {
		return nil, nil
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     mc.APIKey,
		BaseURL:    mc.BaseURL,
		Model:      mc.Model,
		Dimensions: mc.Dimensions,
		Timeout:    time.Duration(mc.TimeoutSec) * time.Second,
		Logger:     a.logger,
	})

	var emb domain.BatchEmbedder = embeddinguc.NewChunked(base, base.Model(), mc.MaxBatchSize, a.logger)
	if mc.Cache {
		emb = embcache.New(emb, a.store, a.cfg.VectorIndex.KeyPrefix, base.Model(), metrics.EmbeddingCacheTotal, a.logger)
	}
	return emb, base
}

func (a *app) newProvider(ctx context.Context) (*embeddinguc.Provider, *openaiEmb.Embedder) {
	model, base := a.newModelEmbedder()
	p := embeddinguc.NewProvider(ctx, model, a.cfg.Embedding.Fallback.MaxFeatures, a.logger.Named("embedding"))
	return p, base
}

// newVectorIndex builds the configured adapter for vectors of dim and makes
// sure the index exists.
func (a *app) newVectorIndex(ctx context.Context, dim int) (vectorIndex, error) {
	vc := a.cfg.VectorIndex

	var ix vectorIndex
	switch vc.Driver {
	case config.VectorDriverMilvus:
		c, err := milvusindex.Dial(ctx, vc.Milvus.Address, vc.Milvus.Username, vc.Milvus.Password, vc.Milvus.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		ix = milvusindex.New(c, milvusindex.Config{
			Collection:      vc.Collection,
			Dimension:       dim,
			HNSWM:           vc.HNSWM,
			HNSWEFConstruct: vc.HNSWEFConstruct,
			MetadataFields:  metadataFields,
		}, a.logger.Named("milvus"))
	default:
		ix = vectorindex.New(a.store, vectorindex.Config{
			KeyPrefix:       vc.KeyPrefix,
			Dimension:       dim,
			HNSWM:           vc.HNSWM,
			HNSWEFConstruct: vc.HNSWEFConstruct,
			MetadataFields:  metadataFields,
		})
	}

	if err := ix.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure index %s: %w", ix.Name(), err)
	}
	a.logger.Info("Vector index ready", zap.String("driver", vc.Driver), zap.String("index", ix.Name()))
	return ix, nil
}

// pipeline is one embedding provider with the index matching its dimension.
type pipeline struct {
	provider *embeddinguc.Provider
	model    *openaiEmb.Embedder // nil without a model tier
	index    vectorIndex
	records  *record.Repo
	indexing *indexing.Service
}

func (a *app) newPipeline(ctx context.Context) (*pipeline, error) {
	p, model := a.newProvider(ctx)
	ix, err := a.newVectorIndex(ctx, p.Dimension())
	if err != nil {
		return nil, err
	}
	records := a.newRecordRepo()
	return &pipeline{
		provider: p,
		model:    model,
		index:    ix,
		records:  records,
		indexing: indexing.New(p, ix, records),
	}, nil
}

func (a *app) newGenerator() *ollama.Client {
	rc := a.cfg.Rerank
	if rc.BaseURL == "" {
		return nil
	}
	return ollama.New(&ollama.Config{
		BaseURL:         rc.BaseURL,
		Model:           rc.Model,
		HealthTimeout:   time.Duration(rc.HealthTimeoutSec) * time.Second,
		GenerateTimeout: time.Duration(rc.GenerateTimeoutSec) * time.Second,
		StartTimeout:    time.Duration(rc.StartTimeoutSec) * time.Second,
		AutoStart:       rc.AutoStart,
		Options: ollama.Options{
			Temperature: rc.Temperature,
			NumPredict:  rc.NumPredict,
			TopP:        rc.TopP,
			NumCtx:      rc.NumCtx,
		},
		Logger: a.logger.Named("ollama"),
	})
}
