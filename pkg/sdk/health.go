package cmsearch

import (
	"context"

	healthuc "github.com/kailas-cloud/cmsearch/internal/usecase/health"
)

// HealthStatus is the outcome of Client.Health.
type HealthStatus struct {
	// Status is "ok", "degraded" (permission source down) or "error"
	// (engine down).
	Status string
	// Checks maps each component to "ok" or "error".
	Checks map[string]string
}

// Healthy reports whether every component answered.
func (h HealthStatus) Healthy() bool { return h.Status == string(healthuc.Healthy) }

// Pinger is implemented by permission resolvers that can report their own
// reachability. Such resolvers are included in Client.Health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health pings the engine and, if it implements Pinger, the permission resolver.
func (c *Client) Health(ctx context.Context) HealthStatus {
	call := c.obs.begin("health", "")
	report := c.healthSvc.Check(ctx)

	var err error
	if report.Status == healthuc.Unhealthy {
		err = ErrEngine
	}
	call.end(err)

	out := HealthStatus{
		Status: string(report.Status),
		Checks: make(map[string]string, len(report.Checks)),
	}
	for name, res := range report.Checks {
		out.Checks[name] = string(res)
	}
	return out
}

// resolverPinger returns r as a health pinger when it can ping.
func resolverPinger(r PermissionResolver) healthuc.Pinger {
	if p, ok := r.(Pinger); ok {
		return p
	}
	return nil
}
