// Package service provides business logic between API handlers and data stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/lineage/internal/domain"
	"github.com/persistorai/lineage/internal/engine"
	"github.com/persistorai/lineage/internal/metrics"
	"github.com/persistorai/lineage/internal/models"
	"github.com/persistorai/lineage/internal/workset"
)

// Traversal defaults used when TraversalConfig leaves a field zero.
const (
	DefaultMaxRounds        = 50
	DefaultMaxRoundsLimit   = 10_000
	DefaultBatchConcurrency = 4
)

// TraversalConfig holds the limits applied to every run.
type TraversalConfig struct {
	// DefaultMaxRounds fills a closure request with no max_rounds.
	DefaultMaxRounds int
	// MaxRoundsLimit caps max_rounds and max_depth.
	MaxRoundsLimit int
	// BatchConcurrency caps closures running at once in a batch.
	BatchConcurrency int
	// RetainFailedRuns leaves a failed run's relations in the store.
	RetainFailedRuns bool
}

func (c TraversalConfig) withDefaults() TraversalConfig {
	if c.DefaultMaxRounds <= 0 {
		c.DefaultMaxRounds = DefaultMaxRounds
	}

	if c.MaxRoundsLimit <= 0 {
		c.MaxRoundsLimit = DefaultMaxRoundsLimit
	}

	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = DefaultBatchConcurrency
	}

	return c
}

// RunSink receives a record of every finished run.
type RunSink interface {
	Enqueue(run *models.Run)
}

// RunPublisher announces finished runs to live subscribers.
type RunPublisher interface {
	PublishRun(run *models.Run)
}

// Compile-time check: *TraversalService must satisfy domain.TraversalService.
var _ domain.TraversalService = (*TraversalService)(nil)

// TraversalService scopes one workspace per invocation, runs the engine on it
// and records the outcome.
type TraversalService struct {
	engine    *engine.Engine
	factory   workset.Factory
	cfg       TraversalConfig
	sink      RunSink
	publisher RunPublisher
	log       *logrus.Logger
}

// NewTraversalService creates a TraversalService. sink and publisher may be nil.
func NewTraversalService(
	eng *engine.Engine, factory workset.Factory, cfg TraversalConfig,
	sink RunSink, publisher RunPublisher, log *logrus.Logger,
) *TraversalService {
	return &TraversalService{
		engine:    eng,
		factory:   factory,
		cfg:       cfg.withDefaults(),
		sink:      sink,
		publisher: publisher,
		log:       log,
	}
}

// Closure computes the closure of req.Seeds. A zero MaxRounds takes the
// configured default. On failure the partial result accompanies the error.
func (s *TraversalService) Closure(ctx context.Context, req models.ClosureRequest) (*models.ClosureResult, error) {
	if req.MaxRounds == 0 {
		req.MaxRounds = s.cfg.DefaultMaxRounds
	}

	if err := s.checkClosure(req); err != nil {
		return nil, err
	}

	ws, err := s.open()
	if err != nil {
		return nil, err
	}

	run := s.begin(ws, models.RunClosure)
	run.Direction = req.Direction

	res, err := s.engine.Reach(ctx, ws, engine.ReachRequest{
		Seeds:     req.Seeds,
		Direction: req.Direction,
		MaxRounds: req.MaxRounds,
		Annotate:  req.Annotate,
	})
	if res != nil {
		run.Rounds = res.Rounds
		run.Outcome = res.Outcome
		run.VisitedSize = len(res.Visited)
	}

	s.finish(ctx, ws, run, err)

	return res, err
}

// BatchClosure runs independent closures concurrently, at most
// BatchConcurrency at a time. Results keep request order. The first failure
// cancels the remaining queries and is returned.
func (s *TraversalService) BatchClosure(ctx context.Context, req models.BatchClosureRequest) ([]*models.ClosureResult, error) {
	for i := range req.Queries {
		if req.Queries[i].MaxRounds == 0 {
			req.Queries[i].MaxRounds = s.cfg.DefaultMaxRounds
		}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	for i := range req.Queries {
		if err := s.checkClosure(req.Queries[i]); err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
	}

	results := make([]*models.ClosureResult, len(req.Queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)

	for i, q := range req.Queries {
		g.Go(func() error {
			res, err := s.Closure(gctx, q)
			results[i] = res

			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	s.log.WithField("queries", len(req.Queries)).Debug("batch closure finished")

	return results, nil
}

// Paths computes the bounded path subgraph between req.Sources and
// req.Destinations.
func (s *TraversalService) Paths(ctx context.Context, req models.PathRequest) (*models.PathResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.MaxDepth > s.cfg.MaxRoundsLimit {
		return nil, fmt.Errorf("%w: max_depth %d exceeds limit %d", models.ErrInvalidRoundCap, req.MaxDepth, s.cfg.MaxRoundsLimit)
	}

	ws, err := s.open()
	if err != nil {
		return nil, err
	}

	run := s.begin(ws, models.RunPaths)

	res, err := s.engine.BoundedPaths(ctx, ws, req)
	if res != nil {
		run.Rounds = res.Backward.Rounds + res.Forward.Rounds
		run.Outcome = pathOutcome(res)
		run.VisitedSize = len(res.Vertices)
	}

	s.finish(ctx, ws, run, err)

	return res, err
}

// pathOutcome summarizes a path run by its last phase.
func pathOutcome(res *models.PathResult) models.Outcome {
	if res.Forward.Outcome != "" {
		return res.Forward.Outcome
	}

	return res.Backward.Outcome
}

func (s *TraversalService) checkClosure(req models.ClosureRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if req.MaxRounds > s.cfg.MaxRoundsLimit {
		return fmt.Errorf("%w: max_rounds %d exceeds limit %d", models.ErrInvalidRoundCap, req.MaxRounds, s.cfg.MaxRoundsLimit)
	}

	return nil
}

func (s *TraversalService) open() (workset.Workspace, error) {
	ws, err := s.factory.Open(workset.NewNamespace())
	if err != nil {
		return nil, fmt.Errorf("opening workspace: %w", err)
	}

	return ws, nil
}

func (s *TraversalService) begin(ws workset.Workspace, kind models.RunKind) *models.Run {
	metrics.ActiveRuns.Inc()

	return &models.Run{ID: ws.Namespace(), Kind: kind, StartedAt: time.Now().UTC()}
}

// finish releases the workspace and records the run.
func (s *TraversalService) finish(ctx context.Context, ws workset.Workspace, run *models.Run, runErr error) {
	defer metrics.ActiveRuns.Dec()

	run.Duration = time.Since(run.StartedAt)

	if runErr != nil {
		run.Outcome = models.OutcomeFailed
		run.Error = runErr.Error()
	}

	s.release(ctx, ws, runErr)

	metrics.RunsTotal.WithLabelValues(string(run.Kind), string(run.Outcome)).Inc()
	metrics.RunDuration.WithLabelValues(string(run.Kind)).Observe(run.Duration.Seconds())

	fields := logrus.Fields{
		"run_id":   run.ID,
		"kind":     run.Kind,
		"outcome":  run.Outcome,
		"rounds":   run.Rounds,
		"duration": run.Duration.String(),
	}

	switch {
	case runErr == nil:
		s.log.WithFields(fields).Info("run finished")
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		s.log.WithFields(fields).WithError(runErr).Warn("run cancelled")
	default:
		s.log.WithFields(fields).WithError(runErr).Error("run failed")
	}

	if s.sink != nil {
		s.sink.Enqueue(run)
	}

	if s.publisher != nil {
		s.publisher.PublishRun(run)
	}
}

// release drops the run's relations, or keeps them after a failure when
// RetainFailedRuns is set.
func (s *TraversalService) release(ctx context.Context, ws workset.Workspace, runErr error) {
	if runErr != nil && s.cfg.RetainFailedRuns {
		s.log.WithField("namespace", ws.Namespace()).Warn("retaining relations of failed run")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := ws.Close(ctx); err != nil {
		s.log.WithError(err).WithField("namespace", ws.Namespace()).Warn("dropping run relations")
	}
}
