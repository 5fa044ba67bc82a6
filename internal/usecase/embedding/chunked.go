package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
)

// DefaultMaxAPIBatchSize is the largest batch sent in one model request.
const DefaultMaxAPIBatchSize = 256

// Chunked splits large batches into sub-batches for the model server and
// logs each completed batch.
type Chunked struct {
	inner    domain.BatchEmbedder
	model    string
	maxBatch int
	logger   *zap.Logger
}

// NewChunked wraps an embedder. maxBatch <= 0 selects DefaultMaxAPIBatchSize.
func NewChunked(inner domain.BatchEmbedder, model string, maxBatch int, logger *zap.Logger) *Chunked {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxAPIBatchSize
	}
	return &Chunked{
		inner:    inner,
		model:    model,
		maxBatch: maxBatch,
		logger:   logger,
	}
}

// BatchEmbed delegates to the inner embedder chunk by chunk and concatenates the results.
func (p *Chunked) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()

	var all [][]float32
	var totalPrompt, totalTokens int

	for offset := 0; offset < len(texts); offset += p.maxBatch {
		end := min(offset+p.maxBatch, len(texts))
		chunk := texts[offset:end]

		res, err := p.inner.BatchEmbed(ctx, chunk)
		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.String("model", p.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		if len(res.Embeddings) != len(chunk) {
			return domain.BatchEmbeddingResult{}, fmt.Errorf(
				"%w: chunk at %d returned %d vectors for %d texts",
				domain.ErrEmbeddingProviderError, offset, len(res.Embeddings), len(chunk))
		}

		all = append(all, res.Embeddings...)
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("prompt_tokens", totalPrompt),
		zap.Int("total_tokens", totalTokens),
	)

	return domain.BatchEmbeddingResult{
		Embeddings:   all,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}
