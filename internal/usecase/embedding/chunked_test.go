package embedding

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
)

func TestChunked_SplitsBatches(t *testing.T) {
	inner := &mockEmbedder{vector: []float32{0.1}, tokens: 2}
	c := NewChunked(inner, "test-model", 2, zap.NewNop())

	res, err := c.BatchEmbed(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 5 {
		t.Fatalf("expected 5 embeddings, got %d", len(res.Embeddings))
	}
	want := []int{2, 2, 1}
	if len(inner.batchSizes) != len(want) {
		t.Fatalf("expected chunks %v, got %v", want, inner.batchSizes)
	}
	for i := range want {
		if inner.batchSizes[i] != want[i] {
			t.Errorf("chunk %d: expected %d, got %d", i, want[i], inner.batchSizes[i])
		}
	}
	if res.TotalTokens != 10 {
		t.Errorf("expected TotalTokens=10, got %d", res.TotalTokens)
	}
}

func TestChunked_DefaultBatchSize(t *testing.T) {
	inner := &mockEmbedder{vector: []float32{0.1}}
	c := NewChunked(inner, "test-model", 0, zap.NewNop())

	texts := make([]string, DefaultMaxAPIBatchSize+1)
	if _, err := c.BatchEmbed(context.Background(), texts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 2 {
		t.Errorf("expected 2 calls, got %d", inner.batchCalls)
	}
}

func TestChunked_Empty(t *testing.T) {
	inner := &mockEmbedder{}
	c := NewChunked(inner, "test-model", 2, zap.NewNop())

	res, err := c.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil || inner.batchCalls != 0 {
		t.Errorf("empty input must not reach the model")
	}
}

func TestChunked_InnerError(t *testing.T) {
	inner := &mockEmbedder{batchErr: errors.New("boom")}
	c := NewChunked(inner, "test-model", 2, zap.NewNop())

	if _, err := c.BatchEmbed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestChunked_ShortChunk(t *testing.T) {
	inner := &mockEmbedder{batchFn: func(_ []string) (domain.BatchEmbeddingResult, error) {
		return domain.BatchEmbeddingResult{Embeddings: [][]float32{{0.1}}}, nil
	}}
	c := NewChunked(inner, "test-model", 4, zap.NewNop())

	_, err := c.BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}
