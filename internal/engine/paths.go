package engine

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/persistorai/lineage/internal/models"
	"github.com/persistorai/lineage/internal/workset"
)

// BoundedPaths computes the subgraph of walks from req.Sources to
// req.Destinations of length at most req.MaxDepth.
//
// Phase 1 is an annotated backward closure from the destinations capped at
// MaxDepth rounds. Phase 2 restricts the workspace to the sources found in
// phase 1 and expands forward over the annotated subgraph only, admitting an
// edge of depth d at hop h when d+h <= MaxDepth. An empty restriction yields
// an empty result with OutcomeNoSources and a nil error.
func (e *Engine) BoundedPaths(ctx context.Context, ws workset.Workspace, req models.PathRequest) (*models.PathResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sources := models.UniqueVertices(req.Sources)
	dests := models.UniqueVertices(req.Destinations)
	runID := ws.Namespace()

	ctx, span := e.tracer.Start(ctx, "engine.BoundedPaths", trace.WithAttributes(
		attribute.String("lineage.run_id", runID),
		attribute.Int("lineage.sources", len(sources)),
		attribute.Int("lineage.destinations", len(dests)),
		attribute.Int("lineage.max_depth", req.MaxDepth),
	))
	defer span.End()

	result := &models.PathResult{
		RunID:    runID,
		MaxDepth: req.MaxDepth,
		Vertices: []models.Vertex{},
		Edges:    []models.PathEdge{},
	}

	fail := func(err error) (*models.PathResult, error) {
		failSpan(span, err)
		e.partialPaths(ctx, ws, result)

		return result, err
	}

	if err := ws.Seed(ctx, dests); err != nil {
		return fail(&models.StoreExecutionError{Phase: models.PhaseBackward, Round: 0, Err: err})
	}

	back, err := e.loop(ctx, ws, runID, len(dests), pass{
		phase:     models.PhaseBackward,
		direction: models.Backward,
		maxRounds: req.MaxDepth,
		annotate:  true,
	})
	result.Backward = models.PhaseSummary{Rounds: back.rounds, Outcome: back.outcome, VisitedSize: back.visitedSize}
	result.Reports = back.reports

	if err != nil {
		return fail(err)
	}

	n, err := ws.Restrict(ctx, sources)
	if err != nil {
		return fail(&models.StoreExecutionError{Phase: models.PhaseForward, Round: 0, Err: err})
	}

	if n == 0 {
		result.Forward = models.PhaseSummary{Outcome: models.OutcomeNoSources}
		span.SetAttributes(attribute.String("lineage.outcome", string(models.OutcomeNoSources)))
		span.SetStatus(codes.Ok, "")

		e.log.WithFields(logrus.Fields{
			"run_id":          runID,
			"max_depth":       req.MaxDepth,
			"backward_rounds": back.rounds,
			"backward_visits": back.visitedSize,
		}).Info("no source within range of a destination")

		return result, nil
	}

	fwd, err := e.loop(ctx, ws, runID, n, pass{
		phase:     models.PhaseForward,
		direction: models.Forward,
		maxRounds: req.MaxDepth,
		source:    workset.SourceSubgraph,
		bounded:   true,
		budget:    req.MaxDepth,
		collect:   true,
	})
	result.Forward = models.PhaseSummary{Rounds: fwd.rounds, Outcome: fwd.outcome, VisitedSize: fwd.visitedSize}
	result.Reports = append(result.Reports, fwd.reports...)

	if err != nil {
		return fail(err)
	}

	if result.Vertices, err = ws.Visited(ctx); err != nil {
		return fail(&models.StoreQueryError{Phase: models.PhaseForward, Round: fwd.rounds, Err: err})
	}

	if result.Edges, err = ws.PathEdges(ctx); err != nil {
		return fail(&models.StoreQueryError{Phase: models.PhaseForward, Round: fwd.rounds, Err: err})
	}

	span.SetAttributes(
		attribute.Int("lineage.vertices", len(result.Vertices)),
		attribute.Int("lineage.edges", len(result.Edges)),
	)
	span.SetStatus(codes.Ok, "")

	e.log.WithFields(logrus.Fields{
		"run_id":          runID,
		"max_depth":       req.MaxDepth,
		"backward_rounds": back.rounds,
		"forward_rounds":  fwd.rounds,
		"vertices":        len(result.Vertices),
		"edges":           len(result.Edges),
	}).Info("bounded paths finished")

	return result, nil
}

// partialPaths reads whatever the workspace still holds after a failure.
func (e *Engine) partialPaths(ctx context.Context, ws workset.Workspace, result *models.PathResult) {
	ctx = context.WithoutCancel(ctx)
	result.Partial = true

	if v, err := ws.Visited(ctx); err == nil {
		result.Vertices = v
	} else {
		e.log.WithError(err).WithField("run_id", result.RunID).Warn("reading partial path vertices")
	}

	if edges, err := ws.PathEdges(ctx); err == nil {
		result.Edges = edges
	} else {
		e.log.WithError(err).WithField("run_id", result.RunID).Warn("reading partial path edges")
	}
}
