package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the aggregated health of the service.
type Status string

const (
	// Healthy means every component answered.
	Healthy Status = "ok"
	// Degraded means searches run but permission checks fail.
	Degraded Status = "degraded"
	// Unhealthy means the search engine is unreachable.
	Unhealthy Status = "error"
)

// CheckResult is the outcome of pinging one component.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names.
const (
	Engine      = "engine"
	Permissions = "permissions"
)

// DefaultTimeout bounds each component ping.
const DefaultTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type component struct {
	name     string
	pinger   Pinger
	critical bool
}

// Service pings the engine and, when configured, the permission store.
type Service struct {
	components []component
	timeout    time.Duration
}

// New creates a Service. permissions may be nil.
func New(engine, permissions Pinger) *Service {
	s := &Service{
		components: []component{{name: Engine, pinger: engine, critical: true}},
		timeout:    DefaultTimeout,
	}
	if permissions != nil {
		s.components = append(s.components, component{name: Permissions, pinger: permissions})
	}
	return s
}

// WithTimeout replaces the per-component ping timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check pings all components concurrently. A failing engine makes the
// service unhealthy; any other failure degrades it.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.components))
		g      errgroup.Group
	)
	for _, c := range s.components {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res := CheckOK
			if err := c.pinger.Ping(pctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[c.name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	for _, c := range s.components {
		if checks[c.name] != CheckError {
			continue
		}
		if c.critical {
			status = Unhealthy
			break
		}
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}
