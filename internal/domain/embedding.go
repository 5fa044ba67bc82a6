package domain

import (
	"context"
)

// BatchEmbedder vectorizes multiple texts in a single call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Tier names the embedding strategy that produced a vector.
type Tier string

// Embedding tiers.
const (
	TierModel Tier = "model"
	TierTFIDF Tier = "tfidf"
)
