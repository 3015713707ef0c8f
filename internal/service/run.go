package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/domain"
	"github.com/persistorai/lineage/internal/models"
)

// RunStore is the data-access interface RunService depends on.
type RunStore interface {
	List(ctx context.Context, limit int) ([]models.Run, error)
	Get(ctx context.Context, id string) (*models.Run, error)
}

// Compile-time check: *RunService must satisfy domain.RunService.
var _ domain.RunService = (*RunService)(nil)

// RunService exposes recorded runs.
type RunService struct {
	store RunStore
	log   *logrus.Logger
}

// NewRunService creates a RunService.
func NewRunService(store RunStore, log *logrus.Logger) *RunService {
	return &RunService{store: store, log: log}
}

// ListRuns returns the most recent runs (pass-through).
func (s *RunService) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	s.log.WithField("limit", limit).Debug("runs.list")

	return s.store.List(ctx, limit)
}

// GetRun returns one run by ID (pass-through).
func (s *RunService) GetRun(ctx context.Context, id string) (*models.Run, error) {
	s.log.WithField("run_id", id).Debug("runs.get")

	return s.store.Get(ctx, id)
}
