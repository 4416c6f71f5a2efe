package services

import (
	"context"
	"log"

	"gorm.io/gorm"

	"precisionworks/internal/database"
)

// HealthResult reports service and database status
type HealthResult struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// HealthService implements the health service
type HealthService struct {
	db      *gorm.DB
	name    string
	version string
}

// NewHealthService creates a new health service
func NewHealthService(db *gorm.DB, name, version string) *HealthService {
	return &HealthService{db: db, name: name, version: version}
}

// Check implements the health check method. A failing database makes the
// service report degraded rather than an error.
func (s *HealthService) Check(ctx context.Context) (*HealthResult, error) {
	res := &HealthResult{
		Status:   "healthy",
		Service:  s.name,
		Version:  s.version,
		Database: "ok",
	}

	if err := database.Ping(s.db.WithContext(ctx)); err != nil {
		log.Printf("[HEALTH] Database check failed: %v", err)
		res.Status = "degraded"
		res.Database = "unavailable"
	}

	return res, nil
}
