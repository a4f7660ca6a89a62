package health

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"
)

// Pinger checks reachability of the retrieval gateway.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	DB        *sql.DB
	Gateway   Pinger
	UploadDir string
}

// NewService constructs a new health service.
func NewService(db *sql.DB, gateway Pinger, uploadDir string) *Service {
	return &Service{DB: db, Gateway: gateway, UploadDir: uploadDir}
}

// Check is the result of a single dependency probe.
type Check struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Status returns a simple health payload.
func (s *Service) Status() map[string]bool {
	return map[string]bool{"ok": true}
}

// Detailed probes every dependency and reports per-check results. The
// overall status is degraded when any check fails.
func (s *Service) Detailed(ctx context.Context) (string, map[string]Check) {
	checks := map[string]Check{
		"database": s.checkDB(ctx),
		"gateway":  s.checkGateway(ctx),
		"uploads":  s.checkUploads(),
	}
	status := "healthy"
	for _, c := range checks {
		if c.Status != "ok" && c.Status != "skipped" {
			status = "degraded"
			break
		}
	}
	return status, checks
}

// Ready reports whether the service can take traffic. A configured database
// must answer; everything else is best-effort.
func (s *Service) Ready(ctx context.Context) bool {
	if s.DB == nil {
		return true
	}
	return s.checkDB(ctx).Status == "ok"
}

func (s *Service) checkDB(ctx context.Context) Check {
	if s.DB == nil {
		return Check{Status: "skipped"}
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		return Check{Status: "error", LatencyMs: time.Since(start).Milliseconds(), Error: err.Error()}
	}
	return Check{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
}

func (s *Service) checkGateway(ctx context.Context) Check {
	if s.Gateway == nil {
		return Check{Status: "skipped"}
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.Gateway.Ping(ctx); err != nil {
		return Check{Status: "error", LatencyMs: time.Since(start).Milliseconds(), Error: err.Error()}
	}
	return Check{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
}

func (s *Service) checkUploads() Check {
	if s.UploadDir == "" {
		return Check{Status: "skipped"}
	}
	start := time.Now()
	probe := filepath.Join(s.UploadDir, ".healthcheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return Check{Status: "error", LatencyMs: time.Since(start).Milliseconds(), Error: err.Error()}
	}
	_ = os.Remove(probe)
	return Check{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
}
