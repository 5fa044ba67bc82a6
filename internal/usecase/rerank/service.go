// Package rerank asks a generative model to pick which remaining listings
// to show next, given the user's likes and dislikes, and falls back to a
// deterministic heuristic whenever the model cannot answer.
package rerank

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain/feedback"
	"github.com/SPD-BES-2025-3/grupo1/internal/metrics"
)

// FallbackReason is attached to every heuristic selection.
const FallbackReason = "Fallback conservador - LLM indisponível"

var fallbackReasoning = map[Cause]string{
	CauseNotConfigured:  "IA não configurada - usando seleção automática",
	CauseUnreachable:    "Ollama não acessível - usando seleção automática",
	CauseUnavailable:    "Ollama indisponível - usando seleção automática",
	CauseGenerateFailed: "Erro na comunicação com LLM - usando seleção automática",
	CauseParseFailed:    "Parse da resposta LLM falhou - usando seleção automática",
	CauseException:      "Erro no sistema - usando seleção automática",
}

// Service re-ranks feedback sessions.
type Service struct {
	gen    Generator
	logger *zap.Logger
}

// New creates a Service. gen may be nil, which always falls back.
func New(gen Generator, logger *zap.Logger) *Service {
	return &Service{gen: gen, logger: logger}
}

// Rerank runs the health → ensure-ready → generate → parse chain and returns
// Ok with the model's decision, or Fallback with the cause of the first
// failing step. It never returns an error and never panics.
func (s *Service) Rerank(ctx context.Context, sess feedback.Session) (out Outcome) {
	log := s.logger.With(
		zap.String("query", sess.Query),
		zap.Int("liked", len(sess.Liked)),
		zap.Int("disliked", len(sess.Disliked)),
		zap.Int("remaining", len(sess.Remaining)),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Re-rank panicked", zap.Any("panic", r), zap.Stack("stack"))
			out = s.fallback(CauseException, sess)
		}
		metrics.RerankOutcomesTotal.WithLabelValues(outcomeLabel(out)).Inc()
	}()

	if s.gen == nil || !s.gen.Configured() {
		log.Info("Generative model not configured, using fallback")
		return s.fallback(CauseNotConfigured, sess)
	}

	if err := s.gen.Health(ctx); err != nil {
		log.Warn("Generative model unreachable, using fallback", zap.Error(err))
		return s.fallback(CauseUnreachable, sess)
	}

	if err := s.gen.EnsureReady(ctx); err != nil {
		log.Warn("Generative model unavailable, using fallback", zap.Error(err))
		return s.fallback(CauseUnavailable, sess)
	}

	prompt := buildPrompt(sess)
	start := time.Now()
	raw, err := s.gen.Generate(ctx, prompt)
	metrics.RerankGenerateDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("Generation failed, using fallback", zap.Error(err), zap.Int("prompt_chars", len(prompt)))
		return s.fallback(CauseGenerateFailed, sess)
	}

	decision, err := parseDecision(raw)
	if err != nil {
		log.Warn("Could not parse model response, using fallback",
			zap.Error(err), zap.String("response", truncate(raw, 500)))
		return s.fallback(CauseParseFailed, sess)
	}

	log.Info("Re-rank completed",
		zap.Int("selected", len(decision.Selected)),
		zap.Duration("generate", time.Since(start)),
	)
	return Ok(decision)
}

func (s *Service) fallback(cause Cause, sess feedback.Session) Outcome {
	return Fallback(cause, feedback.Decision{
		Reasoning: fallbackReasoning[cause],
		ShowMore:  true,
		Selected:  FallbackSelection(sess),
	})
}

// FallbackSelection picks the first two remaining listings when the user
// liked anything, otherwise the first one.
func FallbackSelection(sess feedback.Session) []feedback.Selection {
	n := 1
	if len(sess.Liked) > 0 {
		n = 2
	}
	n = min(n, len(sess.Remaining))

	out := make([]feedback.Selection, n)
	for i := range n {
		out[i] = feedback.Selection{ID: sess.Remaining[i].ID, Reason: FallbackReason}
	}
	return out
}

// StatusReport describes the generative endpoint.
type StatusReport struct {
	Configured bool     `json:"configured"`
	Running    bool     `json:"running"`
	URL        string   `json:"url"`
	Model      string   `json:"model"`
	Models     []string `json:"models"`
}

// Status reports whether the endpoint is configured and reachable, and which
// models it has installed.
func (s *Service) Status(ctx context.Context) StatusReport {
	if s.gen == nil || !s.gen.Configured() {
		return StatusReport{Models: []string{}}
	}
	r := StatusReport{
		Configured: true,
		URL:        s.gen.BaseURL(),
		Model:      s.gen.Model(),
		Models:     []string{},
	}
	models, err := s.gen.Models(ctx)
	if err != nil {
		s.logger.Debug("Generative model status check failed", zap.Error(err))
		return r
	}
	r.Running = true
	r.Models = models
	return r
}

func outcomeLabel(o Outcome) string {
	if o.IsFallback() {
		return string(o.Cause())
	}
	return "ok"
}

// String implements fmt.Stringer for logs.
func (o Outcome) String() string {
	if o.IsFallback() {
		return fmt.Sprintf("fallback(%s)", o.cause)
	}
	return "ok"
}
