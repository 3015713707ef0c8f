package api

import "github.com/persistorai/lineage/internal/domain"

// Handlers depend on the canonical domain interfaces.
type (
	// TraversalService runs closures and bounded path queries.
	TraversalService = domain.TraversalService
	// EdgeService manages the base edge relation.
	EdgeService = domain.EdgeService
	// RunService reads recorded runs.
	RunService = domain.RunService
)
