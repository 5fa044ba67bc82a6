// Package embedding turns listing text into vectors using a model server
// when one is reachable and a local TF-IDF vectorizer otherwise.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
	"github.com/SPD-BES-2025-3/grupo1/internal/metrics"
)

const probeText = "imóvel"

// Provider embeds batches of text with a tier chosen once at construction.
// The output dimension never changes for the lifetime of a Provider.
type Provider struct {
	tier   domain.Tier
	model  domain.BatchEmbedder
	tfidf  *TFIDF
	dim    int
	logger *zap.Logger
}

// NewProvider probes the model tier once. A nil model or a failed probe
// selects the TF-IDF tier with maxFeatures dimensions; construction itself
// never fails.
func NewProvider(
	ctx context.Context, model domain.BatchEmbedder, maxFeatures int, logger *zap.Logger,
) *Provider {
	p := &Provider{logger: logger}

	if model != nil {
		res, err := model.BatchEmbed(ctx, []string{probeText})
		switch {
		case err != nil:
			logger.Warn("Embedding model unavailable, falling back to TF-IDF", zap.Error(err))
		case len(res.Embeddings) != 1 || len(res.Embeddings[0]) == 0:
			logger.Warn("Embedding model returned no vector, falling back to TF-IDF")
		default:
			p.tier = domain.TierModel
			p.model = model
			p.dim = len(res.Embeddings[0])
		}
	}

	if p.tier == "" {
		p.tier = domain.TierTFIDF
		p.tfidf = NewTFIDF(maxFeatures)
		p.dim = maxFeatures
	}

	metrics.EmbeddingTierInfo.WithLabelValues(string(domain.TierModel)).Set(boolGauge(p.tier == domain.TierModel))
	metrics.EmbeddingTierInfo.WithLabelValues(string(domain.TierTFIDF)).Set(boolGauge(p.tier == domain.TierTFIDF))
	logger.Info("Embedding provider ready", zap.String("tier", string(p.tier)), zap.Int("dimension", p.dim))

	return p
}

// Tier returns the active tier.
func (p *Provider) Tier() domain.Tier { return p.tier }

// Dimension returns the length of every vector this provider produces.
func (p *Provider) Dimension() int { return p.dim }

// Embed returns one vector per text, in input order.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()
	tier := string(p.tier)
	defer func() {
		metrics.EmbeddingRequestDuration.WithLabelValues(tier).Observe(time.Since(start).Seconds())
	}()

	if p.tfidf != nil {
		vecs := p.tfidf.Transform(texts)
		metrics.EmbeddingRequestsTotal.WithLabelValues(tier, "success").Inc()
		metrics.EmbeddingTextsTotal.WithLabelValues(tier).Add(float64(len(texts)))
		return vecs, nil
	}

	res, err := p.model.BatchEmbed(ctx, texts)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(tier, "error").Inc()
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	for i, v := range res.Embeddings {
		if len(v) != p.dim {
			metrics.EmbeddingRequestsTotal.WithLabelValues(tier, "error").Inc()
			return nil, fmt.Errorf("%w: vector %d has %d dims, expected %d",
				domain.ErrVectorDimMismatch, i, len(v), p.dim)
		}
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(tier, "success").Inc()
	metrics.EmbeddingTextsTotal.WithLabelValues(tier).Add(float64(len(texts)))
	return res.Embeddings, nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
