// Package engine drives workset-fixpoint traversals: rounds of frontier
// expansion against a Workspace until the frontier empties or a round cap is
// reached.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/persistorai/lineage/internal/metrics"
	"github.com/persistorai/lineage/internal/models"
	"github.com/persistorai/lineage/internal/workset"
)

const tracerName = "github.com/persistorai/lineage/internal/engine"

// Observer receives a report after every round.
type Observer interface {
	ObserveRound(report models.RoundReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(models.RoundReport)

// ObserveRound implements Observer.
func (f ObserverFunc) ObserveRound(r models.RoundReport) { f(r) }

// Engine runs closure and bounded path traversals. It holds no per-run state
// and is safe for concurrent use as long as each run has its own Workspace.
type Engine struct {
	log      *logrus.Logger
	tracer   trace.Tracer
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver routes round reports to o in addition to logs and metrics.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// New creates an Engine.
func New(log *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{log: log, tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ReachRequest configures one closure run.
type ReachRequest struct {
	Seeds     []models.Vertex
	Direction models.Direction
	MaxRounds int
	// Annotate records every traversed edge with its round into the subgraph.
	Annotate bool
	// Phase labels reports; defaults to closure.
	Phase models.Phase
}

// pass is one fixpoint loop over a seeded workspace.
type pass struct {
	phase     models.Phase
	direction models.Direction
	maxRounds int
	source    workset.Source
	annotate  bool
	bounded   bool
	budget    int
	collect   bool
}

type passResult struct {
	rounds      int
	outcome     models.Outcome
	visitedSize int
	reports     []models.RoundReport
}

// Reach computes the forward or backward closure of req.Seeds. A run that
// hits its cap returns a result with OutcomeRoundCap and a nil error. On a
// store failure the partial result is returned with the error.
func (e *Engine) Reach(ctx context.Context, ws workset.Workspace, req ReachRequest) (*models.ClosureResult, error) {
	cr := models.ClosureRequest{Seeds: req.Seeds, Direction: req.Direction, MaxRounds: req.MaxRounds}
	if err := cr.Validate(); err != nil {
		return nil, err
	}

	phase := req.Phase
	if phase == "" {
		phase = models.PhaseClosure
	}

	seeds := models.UniqueVertices(req.Seeds)
	runID := ws.Namespace()

	ctx, span := e.tracer.Start(ctx, "engine.Reach", trace.WithAttributes(
		attribute.String("lineage.run_id", runID),
		attribute.String("lineage.direction", string(req.Direction)),
		attribute.Int("lineage.seeds", len(seeds)),
		attribute.Int("lineage.max_rounds", req.MaxRounds),
	))
	defer span.End()

	result := &models.ClosureResult{
		RunID:     runID,
		Direction: req.Direction,
		Seeds:     seeds,
	}

	if err := ws.Seed(ctx, seeds); err != nil {
		err = &models.StoreExecutionError{Phase: phase, Round: 0, Err: err}
		failSpan(span, err)

		return e.partialClosure(ctx, ws, result, req.Annotate), err
	}

	pr, err := e.loop(ctx, ws, runID, len(seeds), pass{
		phase:     phase,
		direction: req.Direction,
		maxRounds: req.MaxRounds,
		annotate:  req.Annotate,
	})

	result.Rounds = pr.rounds
	result.Outcome = pr.outcome
	result.Reports = pr.reports

	if err != nil {
		failSpan(span, err)

		return e.partialClosure(ctx, ws, result, req.Annotate), err
	}

	if result.Visited, err = ws.Visited(ctx); err != nil {
		err = &models.StoreQueryError{Phase: phase, Round: pr.rounds, Err: err}
		failSpan(span, err)

		return e.partialClosure(ctx, ws, result, req.Annotate), err
	}

	if req.Annotate {
		if result.Subgraph, err = ws.Subgraph(ctx); err != nil {
			err = &models.StoreQueryError{Phase: phase, Round: pr.rounds, Err: err}
			failSpan(span, err)

			return e.partialClosure(ctx, ws, result, req.Annotate), err
		}
	}

	span.SetAttributes(
		attribute.Int("lineage.rounds", pr.rounds),
		attribute.String("lineage.outcome", string(pr.outcome)),
		attribute.Int("lineage.visited", len(result.Visited)),
	)
	span.SetStatus(codes.Ok, "")

	e.log.WithFields(logrus.Fields{
		"run_id":    runID,
		"phase":     phase,
		"direction": req.Direction,
		"rounds":    pr.rounds,
		"outcome":   pr.outcome,
		"visited":   len(result.Visited),
	}).Info("closure finished")

	return result, nil
}

// partialClosure fills what can still be read from the workspace after a
// failure. Read errors are logged and otherwise ignored.
func (e *Engine) partialClosure(ctx context.Context, ws workset.Workspace, result *models.ClosureResult, annotate bool) *models.ClosureResult {
	ctx = context.WithoutCancel(ctx)
	result.Partial = true

	visited, err := ws.Visited(ctx)
	if err != nil {
		e.log.WithError(err).WithField("run_id", result.RunID).Warn("reading partial visited set")
	} else {
		result.Visited = visited
	}

	if annotate {
		sub, err := ws.Subgraph(ctx)
		if err != nil {
			e.log.WithError(err).WithField("run_id", result.RunID).Warn("reading partial subgraph")
		} else {
			result.Subgraph = sub
		}
	}

	return result
}

// loop runs rounds 1..p.maxRounds over a seeded workspace. The context is
// checked between rounds only; a round's batch is never interrupted.
func (e *Engine) loop(ctx context.Context, ws workset.Workspace, runID string, visitedSize int, p pass) (passResult, error) {
	res := passResult{outcome: models.OutcomeRoundCap, visitedSize: visitedSize}

	for round := 1; round <= p.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%s round %d: %w", p.phase, round, err)
		}

		start := time.Now()

		step := workset.Step{
			Phase:     p.phase,
			Round:     round,
			Direction: p.direction,
			Source:    p.source,
			Annotate:  p.annotate,
			Bounded:   p.bounded,
			Budget:    p.budget,
			Collect:   p.collect,
		}

		if err := ws.Expand(ctx, step); err != nil {
			return res, &models.StoreExecutionError{Phase: p.phase, Round: round, Err: err}
		}

		res.rounds = round

		frontier, empty, err := e.frontier(ctx, ws, runID, p.phase, round)
		if err != nil {
			return res, err
		}

		if n, err := ws.VisitedSize(ctx); err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"run_id": runID,
				"phase":  p.phase,
				"round":  round,
			}).Warn("reading visited size")
		} else {
			res.visitedSize = n
		}

		report := models.RoundReport{
			RunID:        runID,
			Phase:        p.phase,
			Round:        round,
			FrontierSize: frontier,
			VisitedSize:  res.visitedSize,
			Elapsed:      time.Since(start),
		}
		res.reports = append(res.reports, report)
		e.emit(ctx, report)

		if empty {
			res.outcome = models.OutcomeConverged

			return res, nil
		}
	}

	return res, nil
}

// frontier reads the frontier size. When the count fails it falls back to the
// emptiness probe and reports size -1 for a non-empty frontier of unknown
// size. If the probe fails too the run stops.
func (e *Engine) frontier(ctx context.Context, ws workset.Workspace, runID string, phase models.Phase, round int) (int, bool, error) {
	n, err := ws.FrontierSize(ctx)
	if err == nil {
		return n, n == 0, nil
	}

	e.log.WithError(err).WithFields(logrus.Fields{
		"run_id": runID,
		"phase":  phase,
		"round":  round,
	}).Warn("frontier count failed, probing for emptiness")

	empty, probeErr := ws.FrontierEmpty(ctx)
	if probeErr != nil {
		return 0, false, &models.StoreQueryError{Phase: phase, Round: round, Err: errors.Join(err, probeErr)}
	}

	if empty {
		return 0, true, nil
	}

	return -1, false, nil
}

func (e *Engine) emit(ctx context.Context, r models.RoundReport) {
	e.log.WithFields(logrus.Fields{
		"run_id":   r.RunID,
		"phase":    r.Phase,
		"round":    r.Round,
		"frontier": r.FrontierSize,
		"visited":  r.VisitedSize,
		"elapsed":  r.Elapsed.String(),
	}).Info("round complete")

	phase := string(r.Phase)
	metrics.RoundsTotal.WithLabelValues(phase).Inc()
	metrics.RoundDuration.WithLabelValues(phase).Observe(r.Elapsed.Seconds())

	if r.FrontierSize >= 0 {
		metrics.FrontierSize.WithLabelValues(phase).Observe(float64(r.FrontierSize))
	}

	trace.SpanFromContext(ctx).AddEvent("round", trace.WithAttributes(
		attribute.String("lineage.phase", phase),
		attribute.Int("lineage.round", r.Round),
		attribute.Int("lineage.frontier", r.FrontierSize),
		attribute.Int("lineage.visited", r.VisitedSize),
	))

	if e.observer != nil {
		e.observer.ObserveRound(r)
	}
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
