// Package workset holds the relations one traversal run owns: the frontier,
// the visited set, the depth-annotated subgraph and the bounded path edges.
//
// A Workspace is opened per run under a unique namespace and closed when the
// run finishes, so concurrent runs never share relations.
package workset

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/persistorai/lineage/internal/models"
)

// Source selects the edge relation a round expands over.
type Source int

const (
	// SourceEdges is the base edge relation.
	SourceEdges Source = iota
	// SourceSubgraph is the run's own depth-annotated subgraph.
	SourceSubgraph
)

func (s Source) String() string {
	if s == SourceSubgraph {
		return "subgraph"
	}

	return "edges"
}

// Step describes one round of frontier expansion.
type Step struct {
	Phase     models.Phase
	Round     int // 1-based
	Direction models.Direction
	Source    Source
	// Annotate records every traversed edge into the subgraph, tagged with Round.
	Annotate bool
	// Bounded restricts subgraph edges to depth + (Round-1) <= Budget.
	Bounded bool
	Budget  int
	// Collect records every traversed subgraph edge into the path relation.
	Collect bool
}

// Hop is the number of forward hops already taken before this round.
func (s Step) Hop() int { return s.Round - 1 }

// Validate rejects combinations that need a depth column the source lacks.
func (s Step) Validate() error {
	if s.Round < 1 {
		return fmt.Errorf("round must be at least 1, got %d", s.Round)
	}

	if !s.Direction.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidDirection, s.Direction)
	}

	if (s.Bounded || s.Collect) && s.Source != SourceSubgraph {
		return errors.New("depth budget and path collection require the subgraph source")
	}

	if s.Annotate && s.Source == SourceSubgraph {
		return errors.New("cannot annotate while expanding over the subgraph")
	}

	return nil
}

// allows reports whether a subgraph edge with the given depth passes the budget.
func (s Step) allows(depth int) bool {
	return !s.Bounded || depth+s.Hop() <= s.Budget
}

// Workspace is the set of relations owned by one traversal run.
type Workspace interface {
	// Namespace returns the run's relation namespace.
	Namespace() string
	// Seed (re)creates the relations and sets frontier = visited = seeds.
	Seed(ctx context.Context, seeds []models.Vertex) error
	// Restrict sets frontier = visited = sources ∩ visited, clears the path
	// relation and returns the new frontier size. The subgraph is kept.
	Restrict(ctx context.Context, sources []models.Vertex) (int, error)
	// Expand runs one round as a single unit: candidates = expand(frontier),
	// newly = candidates - visited, visited ∪= newly, frontier = newly.
	Expand(ctx context.Context, step Step) error
	// FrontierSize counts the current frontier.
	FrontierSize(ctx context.Context) (int, error)
	// FrontierEmpty probes the frontier without counting it.
	FrontierEmpty(ctx context.Context) (bool, error)
	// VisitedSize counts the visited set.
	VisitedSize(ctx context.Context) (int, error)
	// Visited returns the visited set in ascending order.
	Visited(ctx context.Context) ([]models.Vertex, error)
	// Subgraph returns the depth-annotated edges recorded so far.
	Subgraph(ctx context.Context) ([]models.DepthEdge, error)
	// PathEdges returns the edges collected by bounded forward rounds.
	PathEdges(ctx context.Context) ([]models.PathEdge, error)
	// Close releases the relations.
	Close(ctx context.Context) error
}

// Factory opens workspaces.
type Factory interface {
	Open(namespace string) (Workspace, error)
}

// NewNamespace returns a fresh namespace suitable for relation names.
func NewNamespace() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// maxIdentLen is PostgreSQL's identifier limit.
const maxIdentLen = 63

// ValidIdentifier reports whether name is safe to splice into SQL as a
// relation name.
func ValidIdentifier(name string) bool {
	return len(name) <= maxIdentLen && identRe.MatchString(name)
}
