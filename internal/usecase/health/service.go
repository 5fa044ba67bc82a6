package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a component failed but queries still get answers.
	Degraded Status = "degraded"
	// Unhealthy indicates the broker store is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentRedis     = "redis"
	ComponentRecords   = "records"
	ComponentEmbedding = "embedding"
	ComponentGenerator = "generator"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	redis     DBPinger
	records   DBPinger
	embedding Checker
	generator Checker
}

// New creates a Service. embedding and generator can be nil, in which case
// they are left out of the report.
func New(redis, records DBPinger, embedding, generator Checker) *Service {
	return &Service{redis: redis, records: records, embedding: embedding, generator: generator}
}

// Check runs health checks against all components.
// Redis down is Unhealthy since no queue or index works without it; any other
// failure only degrades.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks[ComponentRedis] = result(s.redis.Ping(ctx))
	checks[ComponentRecords] = result(s.records.Ping(ctx))
	if s.embedding != nil {
		checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx))
	}
	if s.generator != nil {
		checks[ComponentGenerator] = result(s.generator.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentRedis] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
