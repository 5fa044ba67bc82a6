// Package chi exposes search, re-ranking and index maintenance over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain/feedback"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain/listing"
	logpkg "github.com/SPD-BES-2025-3/grupo1/internal/logger"
	healthuc "github.com/SPD-BES-2025-3/grupo1/internal/usecase/health"
	rerankuc "github.com/SPD-BES-2025-3/grupo1/internal/usecase/rerank"
)

// Searcher answers similarity queries.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]listing.Hit, error)
}

// Reranker picks the next listings from a feedback session.
type Reranker interface {
	Rerank(ctx context.Context, sess feedback.Session) rerankuc.Outcome
	Status(ctx context.Context) rerankuc.StatusReport
}

// Syncer re-derives index entries from the canonical store.
type Syncer interface {
	SyncAll(ctx context.Context) (int, error)
	SyncOne(ctx context.Context, id string) error
}

// HealthChecker aggregates dependency checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// RerankResponse is the decision plus how it was produced.
type RerankResponse struct {
	feedback.Decision
	Fallback      bool   `json:"fallback"`
	FallbackCause string `json:"fallback_cause,omitempty"`
}

// SyncResponse reports a re-sync.
type SyncResponse struct {
	Message string `json:"message"`
	Synced  int    `json:"synced"`
	ID      string `json:"id,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// Server holds the HTTP handlers.
type Server struct {
	search        Searcher
	rerank        Reranker
	sync          Syncer
	health        HealthChecker
	defaultTopK   int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, rerank Reranker, sync Syncer, health HealthChecker, defaultTopK int) *Server {
	return &Server{
		search:        search,
		rerank:        rerank,
		sync:          sync,
		health:        health,
		defaultTopK:   defaultTopK,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes mounts the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/search", s.Search)
	r.Post("/search/rerank", s.Rerank)
	r.Get("/rerank/status", s.RerankStatus)
	r.Post("/index/sync", s.SyncAll)
	r.Post("/index/sync/{id}", s.SyncOne)
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// Search handles GET /search?query=&n_results=.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery, "query is required")
		return
	}

	topK := s.defaultTopK
	if raw := q.Get("n_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "n_results must be an integer")
			return
		}
		topK = n
	}

	hits, err := s.search.Search(r.Context(), query, topK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if hits == nil {
		hits = []listing.Hit{}
	}
	writeJSON(w, http.StatusOK, hits)
}

// Rerank handles POST /search/rerank. It always answers 200 with a decision;
// Fallback tells whether the model produced it.
func (s *Server) Rerank(w http.ResponseWriter, r *http.Request) {
	var sess feedback.Session
	if err := json.NewDecoder(r.Body).Decode(&sess); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(sess.Query) == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery, "query is required")
		return
	}

	out := s.rerank.Rerank(r.Context(), sess)
	d := out.Decision()
	if d.Selected == nil {
		d.Selected = []feedback.Selection{}
	}
	writeJSON(w, http.StatusOK, RerankResponse{
		Decision:      d,
		Fallback:      out.IsFallback(),
		FallbackCause: string(out.Cause()),
	})
}

// RerankStatus handles GET /rerank/status.
func (s *Server) RerankStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rerank.Status(r.Context()))
}

// SyncAll handles POST /index/sync.
func (s *Server) SyncAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.sync.SyncAll(r.Context())
	if err != nil {
		s.log(r).Error("full re-sync stopped", zap.Int("synced", n), zap.Error(err))
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{
		Message: fmt.Sprintf("Sincronização concluída: %d imóveis indexados", n),
		Synced:  n,
	})
}

// SyncOne handles POST /index/sync/{id}.
func (s *Server) SyncOne(w http.ResponseWriter, r *http.Request) {
	id := gochi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "id is required")
		return
	}
	if err := s.sync.SyncOne(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{
		Message: fmt.Sprintf("Imóvel %s sincronizado com sucesso", id),
		Synced:  1,
		ID:      id,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: report.Status,
		Checks: report.Checks,
	})
}

func (s *Server) log(r *http.Request) *zap.Logger {
	return logpkg.FromContext(r.Context())
}
