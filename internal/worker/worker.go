// Package worker runs the consumers that keep the vector index in step with
// the canonical store. One Worker is bound to one lifecycle queue; scaling
// is done by running more Workers on the same queue.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain"
	"github.com/SPD-BES-2025-3/grupo1/internal/domain/event"
	"github.com/SPD-BES-2025-3/grupo1/internal/logger"
	"github.com/SPD-BES-2025-3/grupo1/internal/metrics"
)

// Outcome is the terminal state of one pass through the worker loop.
type Outcome string

// Loop outcomes.
const (
	OutcomeIdle    Outcome = "idle"
	OutcomeIndexed Outcome = "indexed"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Defaults used when Config leaves a duration unset.
const (
	DefaultPollTimeout = 5 * time.Second
	DefaultBackoff     = 5 * time.Second
)

// Config binds a worker to its queue.
type Config struct {
	Kind        event.Kind
	Instance    int
	PollTimeout time.Duration
	Backoff     time.Duration
}

// Worker consumes one lifecycle queue.
type Worker struct {
	kind        event.Kind
	queue       string
	pollTimeout time.Duration
	backoff     time.Duration

	broker  Queue
	indexer Indexer
	records RecordSource
	logger  *zap.Logger

	sleep func(ctx context.Context, d time.Duration)
}

// New creates a Worker. Each Worker must get its own indexer and record
// source; they are used from a single goroutine.
func New(cfg Config, q Queue, indexer Indexer, records RecordSource, logger *zap.Logger) *Worker {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &Worker{
		kind:        cfg.Kind,
		queue:       cfg.Kind.Queue(),
		pollTimeout: cfg.PollTimeout,
		backoff:     cfg.Backoff,
		broker:      q,
		indexer:     indexer,
		records:     records,
		logger: logger.With(
			zap.String("queue", cfg.Kind.Queue()),
			zap.Int("instance", cfg.Instance),
		),
		sleep: sleepCtx,
	}
}

// Queue returns the name of the queue the worker consumes.
func (w *Worker) Queue() string { return w.queue }

// Run loops until ctx is cancelled. Cancellation is only observed between
// messages: a message already dequeued is always reconciled to the end.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Worker started", zap.Duration("poll_timeout", w.pollTimeout))
	defer w.logger.Info("Worker stopped")

	for ctx.Err() == nil {
		out, retry := w.step(ctx)
		if out == OutcomeFailed && retry {
			w.sleep(ctx, w.backoff)
		}
	}
	return nil
}

// ProcessNext waits for one message and reconciles it.
func (w *Worker) ProcessNext(ctx context.Context) Outcome {
	out, _ := w.step(ctx)
	return out
}

// step runs one WAITING → terminal pass. retry reports whether the failure
// came from infrastructure and the caller should back off.
func (w *Worker) step(ctx context.Context) (out Outcome, retry bool) {
	d, err := w.broker.Consume(ctx, w.queue, w.pollTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeIdle, false
		}
		w.logger.Error("Consume failed", zap.Error(err))
		w.record(OutcomeFailed, 0)
		return OutcomeFailed, true
	}
	if d == nil {
		return OutcomeIdle, false
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Message handler panicked", zap.Any("panic", r), zap.Stack("stack"))
			out, retry = OutcomeFailed, true
		}
		w.record(out, time.Since(start))
	}()

	ev, err := d.Decode()
	if err != nil {
		w.logger.Error("Discarding malformed message", zap.Error(err), zap.ByteString("body", d.Body))
		return OutcomeFailed, false
	}
	if ev.Kind != w.kind {
		w.logger.Error("Discarding event delivered to the wrong queue",
			zap.String("event", string(ev.Kind)), zap.String("id", ev.ID))
		return OutcomeFailed, false
	}

	// An in-flight message is never cut short by shutdown.
	work := context.WithoutCancel(ctx)
	return w.reconcile(work, ev)
}

func (w *Worker) reconcile(ctx context.Context, ev event.Event) (Outcome, bool) {
	// Downstream services log through the context with the worker's fields.
	ctx = logger.WithFields(logger.ContextWithLogger(ctx, w.logger),
		zap.String("event", string(ev.Kind)), zap.String("id", ev.ID))
	log := logger.FromContext(ctx)

	if ev.Kind == event.Deleted {
		if err := w.indexer.DeleteOne(ctx, ev.ID); err != nil {
			log.Error("Delete from index failed", zap.Error(err))
			return OutcomeFailed, true
		}
		log.Info("Listing removed from index", zap.String("outcome", string(OutcomeIndexed)))
		return OutcomeIndexed, false
	}

	rec, err := w.records.GetByID(ctx, ev.ID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			log.Warn("Listing not found in canonical store, skipping",
				zap.String("outcome", string(OutcomeSkipped)))
			return OutcomeSkipped, false
		}
		log.Error("Resolve listing failed", zap.Error(err))
		return OutcomeFailed, true
	}

	if err := w.indexer.IndexOne(ctx, rec); err != nil {
		log.Error("Index listing failed", zap.Error(err))
		return OutcomeFailed, true
	}
	log.Info("Listing indexed", zap.String("outcome", string(OutcomeIndexed)))
	return OutcomeIndexed, false
}

func (w *Worker) record(out Outcome, took time.Duration) {
	metrics.WorkerMessagesTotal.WithLabelValues(w.queue, string(out)).Inc()
	if took > 0 {
		metrics.WorkerProcessingDuration.WithLabelValues(w.queue).Observe(took.Seconds())
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
