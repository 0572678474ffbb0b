package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func fixed(status Status) func(ctx context.Context) CheckResult {
	return func(ctx context.Context) CheckResult {
		return CheckResult{Status: status}
	}
}

func TestStatus_Worse(t *testing.T) {
	tests := []struct {
		a, b Status
		want Status
	}{
		{StatusHealthy, StatusHealthy, StatusHealthy},
		{StatusHealthy, StatusDegraded, StatusDegraded},
		{StatusDegraded, StatusHealthy, StatusDegraded},
		{StatusDegraded, StatusUnknown, StatusUnknown},
		{StatusUnknown, StatusUnhealthy, StatusUnhealthy},
		{StatusUnhealthy, StatusDegraded, StatusUnhealthy},
	}

	for _, tt := range tests {
		if got := tt.a.Worse(tt.b); got != tt.want {
			t.Errorf("%s.Worse(%s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRegistry_RegisterAndCheck(t *testing.T) {
	registry := NewRegistry("callexpr", "1.0.0")
	registry.Register(NewChecker("store", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy, Message: "DB connected"}
	}))
	registry.Register(NewChecker("parser", func(ctx context.Context) CheckResult {
		return CheckResult{Name: "ignored", Status: StatusHealthy, Message: "probe parsed"}
	}))

	report := registry.Check(context.Background())

	if report.Service != "callexpr" || report.Version != "1.0.0" {
		t.Errorf("report identity = %s %s", report.Service, report.Version)
	}
	if report.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Fatalf("Checks count = %v, want 2", len(report.Checks))
	}
	if report.Checks[0].Name != "parser" || report.Checks[1].Name != "store" {
		t.Errorf("checks not sorted by name: %v, %v", report.Checks[0].Name, report.Checks[1].Name)
	}
	if report.Checks[0].Timestamp.IsZero() {
		t.Error("check timestamp not set")
	}
}

func TestRegistry_RegisterReplacesByName(t *testing.T) {
	registry := NewRegistry("callexpr", "")
	registry.Register(NewChecker("history", fixed(StatusDegraded)))
	registry.Register(NewChecker("history", fixed(StatusHealthy)))

	report := registry.Check(context.Background())
	if len(report.Checks) != 1 {
		t.Fatalf("Checks count = %v, want 1", len(report.Checks))
	}
	if report.Status != StatusHealthy {
		t.Errorf("Status = %v, want the replacement's healthy", report.Status)
	}
}

func TestRegistry_OverallStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks []Status
		want   Status
	}{
		{"no checks", nil, StatusHealthy},
		{"degraded dependency", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"failed parser", []Status{StatusDegraded, StatusUnhealthy}, StatusUnhealthy},
		{"empty status", []Status{StatusHealthy, ""}, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry("callexpr", "")
			for i, st := range tt.checks {
				registry.Register(NewChecker(string(rune('a'+i)), fixed(st)))
			}
			if got := registry.Check(context.Background()).Status; got != tt.want {
				t.Errorf("Status = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistry_CheckTimeout(t *testing.T) {
	registry := NewRegistry("callexpr", "")
	registry.SetTimeout(20 * time.Millisecond)
	registry.Register(PingCheck("history", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	start := time.Now()
	report := registry.Check(context.Background())
	if time.Since(start) > time.Second {
		t.Fatalf("check was not bounded by the timeout")
	}
	if report.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", report.Status)
	}
}

func TestRegistry_ConcurrentChecks(t *testing.T) {
	registry := NewRegistry("callexpr", "")

	var counter int32
	for i := 0; i < 5; i++ {
		registry.Register(NewChecker("check"+string(rune('A'+i)), func(ctx context.Context) CheckResult {
			atomic.AddInt32(&counter, 1)
			time.Sleep(10 * time.Millisecond)
			return CheckResult{Status: StatusHealthy}
		}))
	}

	start := time.Now()
	report := registry.Check(context.Background())
	duration := time.Since(start)

	if atomic.LoadInt32(&counter) != 5 {
		t.Errorf("Counter = %v, want 5", counter)
	}
	if duration > 100*time.Millisecond {
		t.Errorf("Duration = %v, expected concurrent execution", duration)
	}
	if len(report.Checks) != 5 {
		t.Errorf("Checks count = %v, want 5", len(report.Checks))
	}
}

func TestRegistry_Uptime(t *testing.T) {
	registry := NewRegistry("callexpr", "")
	time.Sleep(10 * time.Millisecond)

	if report := registry.Check(context.Background()); report.Uptime < 10*time.Millisecond {
		t.Errorf("Uptime = %v, expected >= 10ms", report.Uptime)
	}
}

func TestParseCheck(t *testing.T) {
	var seen string
	ok := ParseCheck("parser", "Ping()", func(ctx context.Context, expr string) error {
		seen = expr
		return nil
	})

	result := ok.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", result.Status)
	}
	if seen != "Ping()" || result.Details["probe"] != "Ping()" {
		t.Errorf("probe = %q, details = %v", seen, result.Details)
	}

	failing := ParseCheck("parser", "Ping()", func(ctx context.Context, expr string) error {
		return errors.New("malformed expression")
	})
	if result := failing.Check(context.Background()); result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", result.Status)
	}
}

func TestPingCheck(t *testing.T) {
	checker := PingCheck("store", func(ctx context.Context) error {
		return errors.New("database is locked")
	})

	result := checker.Check(context.Background())
	if result.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", result.Status)
	}
	if result.Message != "database is locked" {
		t.Errorf("Message = %v, want the ping error", result.Message)
	}
}

func TestReport_ServingStatus(t *testing.T) {
	tests := []struct {
		status Status
		want   healthpb.HealthCheckResponse_ServingStatus
	}{
		{StatusHealthy, healthpb.HealthCheckResponse_SERVING},
		{StatusDegraded, healthpb.HealthCheckResponse_SERVING},
		{StatusUnhealthy, healthpb.HealthCheckResponse_NOT_SERVING},
		{StatusUnknown, healthpb.HealthCheckResponse_UNKNOWN},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := (&Report{Status: tt.status}).ServingStatus(); got != tt.want {
				t.Errorf("ServingStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistry_SyncGRPC(t *testing.T) {
	registry := NewRegistry("callexpr", "1.0.0")
	registry.Register(Listening("grpc"))
	registry.Register(ParseCheck("parser", "Ping()", func(ctx context.Context, expr string) error {
		return errors.New("broken")
	}))

	srv := grpchealth.NewServer()
	report := registry.SyncGRPC(context.Background(), srv, "callexpr.v1.ParseService")
	if report.Status != StatusUnhealthy {
		t.Fatalf("Status = %v, want unhealthy", report.Status)
	}

	for _, service := range []string{"", "callexpr.v1.ParseService"} {
		resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("Check(%q) error = %v", service, err)
		}
		if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
			t.Errorf("serving status of %q = %v, want NOT_SERVING", service, resp.Status)
		}
	}
}
