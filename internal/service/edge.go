package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/domain"
	"github.com/persistorai/lineage/internal/metrics"
	"github.com/persistorai/lineage/internal/models"
)

// EdgeStore is the data-access interface EdgeService depends on.
type EdgeStore interface {
	Insert(ctx context.Context, edges []models.Edge) (int64, error)
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) (int64, error)
}

// EdgeNotifier announces changes to the edge relation. It is nil when the
// PostgreSQL trigger on the relation already publishes them.
type EdgeNotifier interface {
	PublishEdgesChanged(op string, count int64)
}

// Compile-time check: *EdgeService must satisfy domain.EdgeService.
var _ domain.EdgeService = (*EdgeService)(nil)

// EdgeService wraps EdgeStore with validation, metrics and change events.
type EdgeService struct {
	store    EdgeStore
	notifier EdgeNotifier
	log      *logrus.Logger
}

// NewEdgeService creates an EdgeService. notifier may be nil.
func NewEdgeService(store EdgeStore, notifier EdgeNotifier, log *logrus.Logger) *EdgeService {
	return &EdgeService{store: store, notifier: notifier, log: log}
}

// InsertEdges validates and appends edges to the relation.
func (s *EdgeService) InsertEdges(ctx context.Context, req models.InsertEdgesRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	n, err := s.store.Insert(ctx, req.Edges)
	if err != nil {
		return 0, err
	}

	s.log.WithField("edges", n).Info("edges inserted")
	s.notify("insert", n)
	s.refreshGauge(ctx)

	return n, nil
}

// CountEdges returns the edge relation size.
func (s *EdgeService) CountEdges(ctx context.Context) (int64, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, err
	}

	metrics.EdgeCount.Set(float64(n))

	return n, nil
}

// ClearEdges empties the edge relation.
func (s *EdgeService) ClearEdges(ctx context.Context) (int64, error) {
	n, err := s.store.Clear(ctx)
	if err != nil {
		return 0, err
	}

	s.log.WithField("edges", n).Info("edges cleared")
	s.notify("delete", n)
	metrics.EdgeCount.Set(0)

	return n, nil
}

func (s *EdgeService) notify(op string, n int64) {
	if s.notifier == nil {
		return
	}

	s.notifier.PublishEdgesChanged(op, n)
}

// refreshGauge updates the edge gauge. Failure only costs a stale gauge.
func (s *EdgeService) refreshGauge(ctx context.Context) {
	n, err := s.store.Count(ctx)
	if err != nil {
		s.log.WithError(err).Debug("refreshing edge gauge")
		return
	}

	metrics.EdgeCount.Set(float64(n))
}
