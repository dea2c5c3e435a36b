package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Items  int
}

// Service coordinates health checks.
type Service struct {
	events Pinger
	items  ItemCounter
}

// New creates a Service. events can be nil when no event backend is configured.
func New(events Pinger, items ItemCounter) *Service {
	return &Service{events: events, items: items}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.events != nil {
		if err := s.events.Ping(ctx); err != nil {
			checks["events"] = CheckError
		} else {
			checks["events"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	var items int
	if s.items != nil {
		items = s.items.Count()
	}

	return Report{Status: status, Checks: checks, Items: items}
}
