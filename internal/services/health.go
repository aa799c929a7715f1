package services

import (
	"context"

	"inquiryflow/internal/config"
	"inquiryflow/internal/database"
	"inquiryflow/internal/metrics"

	"gorm.io/gorm"
)

// HealthResult is the health check response body
type HealthResult struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// HealthService implements the health service
type HealthService struct {
	db  *gorm.DB
	app *config.AppConfig
}

// NewHealthService creates a new health service
func NewHealthService(db *gorm.DB, app *config.AppConfig) *HealthService {
	return &HealthService{db: db, app: app}
}

// Check reports liveness and database reachability. An unreachable database
// degrades the status without failing the check.
func (s *HealthService) Check(_ context.Context, _ Request) (any, error) {
	res := &HealthResult{Status: "healthy", Service: s.app.Name, Version: s.app.Version, Database: "ok"}
	if err := database.Ping(s.db); err != nil {
		res.Status = "degraded"
		res.Database = "unreachable"
		return res, nil
	}
	if stats, err := database.Stats(s.db); err == nil {
		metrics.UpdateDBConnections(stats.InUse, stats.Idle)
	}
	return res, nil
}
