package workflow

import (
	"context"
	"fmt"
	"os"
	"time"

	"scribe/internal/queue"
)

// StageHealth summarizes the readiness of a pipeline dependency.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// HealthyStage constructs a ready StageHealth record.
func HealthyStage(name string) StageHealth {
	return StageHealth{Name: name, Ready: true}
}

// UnhealthyStage constructs an unhealthy StageHealth record with context detail.
func UnhealthyStage(name, detail string) StageHealth {
	return StageHealth{Name: name, Ready: false, Detail: detail}
}

func (m *Manager) health(ctx context.Context) []StageHealth {
	checks := make([]StageHealth, 0, 3)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := m.store.Ping(pingCtx); err != nil {
		checks = append(checks, UnhealthyStage("queue", err.Error()))
	} else {
		checks = append(checks, m.databaseHealth(pingCtx))
	}

	for _, dir := range []struct{ name, path string }{
		{"upload_dir", m.cfg.Paths.UploadDir},
		{"work_dir", m.cfg.Paths.WorkDir},
	} {
		if info, err := os.Stat(dir.path); err != nil {
			checks = append(checks, UnhealthyStage(dir.name, err.Error()))
		} else if !info.IsDir() {
			checks = append(checks, UnhealthyStage(dir.name, dir.path+" is not a directory"))
		} else {
			checks = append(checks, HealthyStage(dir.name))
		}
	}
	return checks
}

// databaseChecker is implemented by backends with an on-disk database.
type databaseChecker interface {
	CheckHealth(ctx context.Context) (queue.DatabaseHealth, error)
}

func (m *Manager) databaseHealth(ctx context.Context) StageHealth {
	checker, ok := m.store.(databaseChecker)
	if !ok {
		return HealthyStage("queue")
	}
	health, err := checker.CheckHealth(ctx)
	switch {
	case err != nil:
		return UnhealthyStage("queue", err.Error())
	case !health.DatabaseExists:
		return UnhealthyStage("queue", "database missing: "+health.DBPath)
	case !health.IntegrityCheck:
		return UnhealthyStage("queue", "integrity check failed for "+health.DBPath)
	}
	check := HealthyStage("queue")
	check.Detail = fmt.Sprintf("schema v%d, %d job(s)", health.SchemaVersion, health.TotalJobs)
	return check
}
