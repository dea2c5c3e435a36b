package invman

import (
	"context"

	healthuc "github.com/kailas-cloud/invman/internal/usecase/health"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded"
	Checks map[string]string // component → "ok"/"error"
	Items  int
}

// Health checks the event backend (when configured) and counts tracked items.
func (inv *Inventory) Health(ctx context.Context) HealthStatus {
	report := inv.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
		Items:  report.Items,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
