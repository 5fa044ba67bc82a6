package rerank

import "github.com/SPD-BES-2025-3/grupo1/internal/domain/feedback"

// Cause names why a re-rank fell back to the heuristic.
type Cause string

// Fallback causes.
const (
	CauseNotConfigured  Cause = "not_configured"
	CauseUnreachable    Cause = "unreachable"
	CauseUnavailable    Cause = "unavailable"
	CauseGenerateFailed Cause = "generate_failed"
	CauseParseFailed    Cause = "parse_failed"
	CauseException      Cause = "exception"
)

// Outcome is either Ok(decision) from the model or Fallback(cause, decision)
// from the heuristic.
type Outcome struct {
	decision feedback.Decision
	cause    Cause
}

// Ok wraps a model decision.
func Ok(d feedback.Decision) Outcome { return Outcome{decision: d} }

// Fallback wraps a heuristic decision and its cause.
func Fallback(cause Cause, d feedback.Decision) Outcome {
	return Outcome{decision: d, cause: cause}
}

// IsFallback reports whether the heuristic produced the decision.
func (o Outcome) IsFallback() bool { return o.cause != "" }

// Cause returns the fallback cause, empty for Ok.
func (o Outcome) Cause() Cause { return o.cause }

// Decision returns the decision to show.
func (o Outcome) Decision() feedback.Decision { return o.decision }
