package ctxsearch

import (
	"context"
	"time"

	healthuc "github.com/kailas-cloud/ctxsearch/internal/usecase/health"
)

// HealthStatus is the aggregated state of the source and the cache.
// Status is "ok", "degraded" or "error"; Checks maps a component to "ok" or "error".
type HealthStatus struct {
	Status string
	Checks map[string]string
}

// OK reports whether every component passed.
func (h HealthStatus) OK() bool {
	return h.Status == string(healthuc.Healthy)
}

// Failing lists the components whose check failed.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, res := range h.Checks {
		if res != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	return out
}

// Health checks the content source and, for a shared backend, the cache.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	report := c.healthSvc.Check(ctx)

	hs := HealthStatus{Status: string(report.Status), Checks: make(map[string]string, len(report.Checks))}
	for name, res := range report.Checks {
		hs.Checks[name] = string(res)
	}
	c.obs.observe("health", start, nil, "status", hs.Status)
	return hs
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
