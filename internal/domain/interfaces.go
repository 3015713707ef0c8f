// Package domain defines the canonical service interfaces shared across API
// layers (REST handlers, CLI, tests). Consumers should depend on these
// interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/persistorai/lineage/internal/models"
)

// TraversalService defines the closure and bounded path operations.
// A non-nil error may accompany a partial result.
type TraversalService interface {
	Closure(ctx context.Context, req models.ClosureRequest) (*models.ClosureResult, error)
	BatchClosure(ctx context.Context, req models.BatchClosureRequest) ([]*models.ClosureResult, error)
	Paths(ctx context.Context, req models.PathRequest) (*models.PathResult, error)
}

// EdgeService defines operations on the base edge relation.
type EdgeService interface {
	InsertEdges(ctx context.Context, req models.InsertEdgesRequest) (int64, error)
	CountEdges(ctx context.Context) (int64, error)
	ClearEdges(ctx context.Context) (int64, error)
}

// RunService defines read access to recorded runs.
type RunService interface {
	ListRuns(ctx context.Context, limit int) ([]models.Run, error)
	GetRun(ctx context.Context, id string) (*models.Run, error)
}
