// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     health
// Description: Health checks shared by the gRPC and HTTP servers: parser
//              probe, history store ping and the gRPC health bridge
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultCheckTimeout bounds a single check
const DefaultCheckTimeout = 2 * time.Second

// Status represents the health status of a service
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// rank orders statuses from best to worst
func (s Status) rank() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	case StatusUnhealthy:
		return 3
	default:
		return 2
	}
}

// Worse returns the worse of s and other
func (s Status) Worse(other Status) Status {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Checker is a named health check
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

type checker struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

func (c checker) Name() string                          { return c.name }
func (c checker) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// NewChecker creates a named checker from a function
func NewChecker(name string, fn func(ctx context.Context) CheckResult) Checker {
	return checker{name: name, fn: fn}
}

// Registry runs a set of checks and aggregates them into a Report. The
// overall status is the worst status of any check.
type Registry struct {
	service string
	version string
	startAt time.Time

	mu       sync.RWMutex
	checkers []Checker // sorted by name
	timeout  time.Duration
}

// NewRegistry creates an empty registry
func NewRegistry(service, version string) *Registry {
	return &Registry{
		service: service,
		version: version,
		startAt: time.Now(),
		timeout: DefaultCheckTimeout,
	}
}

// SetTimeout changes the per-check timeout; d <= 0 disables it
func (r *Registry) SetTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeout = d
}

// Register adds c, replacing a checker with the same name
func (r *Registry) Register(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := sort.Search(len(r.checkers), func(i int) bool { return r.checkers[i].Name() >= c.Name() })
	if i < len(r.checkers) && r.checkers[i].Name() == c.Name() {
		r.checkers[i] = c
		return
	}
	r.checkers = append(r.checkers, nil)
	copy(r.checkers[i+1:], r.checkers[i:])
	r.checkers[i] = c
}

// Check runs all checks concurrently. Results are reported sorted by name.
func (r *Registry) Check(ctx context.Context) *Report {
	r.mu.RLock()
	checkers := append([]Checker(nil), r.checkers...)
	timeout := r.timeout
	r.mu.RUnlock()

	results := make([]CheckResult, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = runCheck(ctx, c, timeout)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		Service:   r.service,
		Version:   r.version,
		Status:    StatusHealthy,
		Uptime:    time.Since(r.startAt),
		Timestamp: time.Now(),
		Checks:    results,
	}
	for _, res := range results {
		report.Status = report.Status.Worse(res.Status)
	}
	return report
}

func runCheck(ctx context.Context, c Checker, timeout time.Duration) CheckResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	res := c.Check(ctx)
	res.Duration = time.Since(start)
	res.Timestamp = time.Now()
	res.Name = c.Name()
	if res.Status == "" {
		res.Status = StatusUnknown
	}
	return res
}

// SyncGRPC runs the checks and publishes the result as the serving status
// of service and of the server as a whole on a gRPC health server
func (r *Registry) SyncGRPC(ctx context.Context, srv *grpchealth.Server, service string) *Report {
	report := r.Check(ctx)
	status := report.ServingStatus()
	srv.SetServingStatus("", status)
	srv.SetServingStatus(service, status)
	return report
}

// Report is the aggregated result of one Check run
type Report struct {
	Service   string        `json:"service"`
	Version   string        `json:"version"`
	Status    Status        `json:"status"`
	Uptime    time.Duration `json:"uptime"`
	Timestamp time.Time     `json:"timestamp"`
	Checks    []CheckResult `json:"checks"`
}

// ServingStatus maps the overall status to the gRPC health protocol.
// Degraded still serves.
func (r *Report) ServingStatus() healthpb.HealthCheckResponse_ServingStatus {
	switch r.Status {
	case StatusHealthy, StatusDegraded:
		return healthpb.HealthCheckResponse_SERVING
	case StatusUnhealthy:
		return healthpb.HealthCheckResponse_NOT_SERVING
	default:
		return healthpb.HealthCheckResponse_UNKNOWN
	}
}

// ParseCheck reports unhealthy when probe does not parse. parse is
// typically the service's Probe method.
func ParseCheck(name, probe string, parse func(ctx context.Context, expr string) error) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		res := CheckResult{
			Status:  StatusHealthy,
			Message: "probe expression parsed",
			Details: map[string]interface{}{"probe": probe},
		}
		if err := parse(ctx, probe); err != nil {
			res.Status = StatusUnhealthy
			res.Message = err.Error()
		}
		return res
	})
}

// PingCheck reports degraded when ping fails. Use it for dependencies the
// service can run without, such as the history store.
func PingCheck(name string, ping func(ctx context.Context) error) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		res := CheckResult{Status: StatusHealthy, Message: "reachable"}
		if err := ping(ctx); err != nil {
			res.Status = StatusDegraded
			res.Message = err.Error()
		}
		return res
	})
}

// Listening reports healthy; it marks a transport that has no
// dependencies of its own
func Listening(name string) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy, Message: "listening"}
	})
}
