// Package health aggregates dependency checks into a single report.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates a critical component is failing.
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

// DefaultTimeout bounds each check.
const DefaultTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type component struct {
	name     string
	checker  Checker
	critical bool
}

// Service coordinates health checks.
type Service struct {
	components []component
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a Service with no components.
func New(timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{timeout: timeout, logger: logger}
}

// Critical adds a component whose failure makes the service unhealthy.
// A nil checker is ignored.
func (s *Service) Critical(name string, c Checker) *Service {
	if c != nil {
		s.components = append(s.components, component{name: name, checker: c, critical: true})
	}
	return s
}

// Optional adds a component whose failure only degrades the service.
// A nil checker is ignored.
func (s *Service) Optional(name string, c Checker) *Service {
	if c != nil {
		s.components = append(s.components, component{name: name, checker: c})
	}
	return s
}

// Check runs all component checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.components))
		status = Healthy
	)

	var g errgroup.Group
	for _, c := range s.components {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := c.checker.HealthCheck(cctx); err != nil {
				res = CheckError
				s.logger.Warn("Health check failed", zap.String("component", c.name), zap.Error(err))
			}

			mu.Lock()
			defer mu.Unlock()
			checks[c.name] = res
			if res == CheckError {
				switch {
				case c.critical:
					status = Unhealthy
				case status == Healthy:
					status = Degraded
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: status, Checks: checks}
}
