package workset

import (
	"context"
	"fmt"
	"slices"

	"github.com/tidwall/btree"

	"github.com/persistorai/lineage/internal/models"
)

// Graph is an immutable in-memory edge index. It is safe to share across
// concurrent Memory workspaces.
type Graph struct {
	out   map[models.Vertex][]models.Vertex
	in    map[models.Vertex][]models.Vertex
	edges int
}

// NewGraph indexes edges in both directions. Duplicate edges are kept once.
func NewGraph(edges []models.Edge) *Graph {
	g := &Graph{
		out: make(map[models.Vertex][]models.Vertex),
		in:  make(map[models.Vertex][]models.Vertex),
	}

	seen := make(map[models.Edge]struct{}, len(edges))

	for _, e := range edges {
		if _, dup := seen[e]; dup {
			continue
		}

		seen[e] = struct{}{}
		g.out[e.Src] = append(g.out[e.Src], e.Dst)
		g.in[e.Dst] = append(g.in[e.Dst], e.Src)
		g.edges++
	}

	return g
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return g.edges }

// MemoryFactory opens in-memory workspaces over one Graph.
type MemoryFactory struct {
	Graph *Graph
}

// Open implements Factory.
func (f *MemoryFactory) Open(namespace string) (Workspace, error) {
	return NewMemory(f.Graph, namespace), nil
}

// Memory is a Workspace made of explicit in-memory sets.
type Memory struct {
	graph     *Graph
	namespace string
	closed    bool

	frontier *btree.Set[models.Vertex]
	visited  *btree.Set[models.Vertex]

	subgraph []models.DepthEdge
	subOut   map[models.Vertex][]models.DepthEdge
	subIn    map[models.Vertex][]models.DepthEdge

	path     []models.PathEdge
	pathSeen map[models.PathEdge]struct{}
}

// NewMemory creates an empty workspace over g.
func NewMemory(g *Graph, namespace string) *Memory {
	return &Memory{
		graph:     g,
		namespace: namespace,
		frontier:  new(btree.Set[models.Vertex]),
		visited:   new(btree.Set[models.Vertex]),
		subOut:    make(map[models.Vertex][]models.DepthEdge),
		subIn:     make(map[models.Vertex][]models.DepthEdge),
		pathSeen:  make(map[models.PathEdge]struct{}),
	}
}

// Namespace implements Workspace.
func (m *Memory) Namespace() string { return m.namespace }

func (m *Memory) check() error {
	if m.closed {
		return fmt.Errorf("workspace %s is closed", m.namespace)
	}

	return nil
}

// Seed implements Workspace.
func (m *Memory) Seed(_ context.Context, seeds []models.Vertex) error {
	if err := m.check(); err != nil {
		return err
	}

	m.frontier = new(btree.Set[models.Vertex])
	m.visited = new(btree.Set[models.Vertex])
	m.subgraph = nil
	m.subOut = make(map[models.Vertex][]models.DepthEdge)
	m.subIn = make(map[models.Vertex][]models.DepthEdge)
	m.path = nil
	m.pathSeen = make(map[models.PathEdge]struct{})

	for _, v := range seeds {
		m.frontier.Insert(v)
		m.visited.Insert(v)
	}

	return nil
}

// Restrict implements Workspace.
func (m *Memory) Restrict(_ context.Context, sources []models.Vertex) (int, error) {
	if err := m.check(); err != nil {
		return 0, err
	}

	frontier := new(btree.Set[models.Vertex])
	visited := new(btree.Set[models.Vertex])

	for _, v := range sources {
		if m.visited.Contains(v) {
			frontier.Insert(v)
			visited.Insert(v)
		}
	}

	m.frontier, m.visited = frontier, visited
	m.path = nil
	m.pathSeen = make(map[models.PathEdge]struct{})

	return m.frontier.Len(), nil
}

// Expand implements Workspace.
func (m *Memory) Expand(_ context.Context, step Step) error {
	if err := m.check(); err != nil {
		return err
	}

	if err := step.Validate(); err != nil {
		return err
	}

	candidates := new(btree.Set[models.Vertex])

	var annotated []models.DepthEdge

	m.frontier.Scan(func(v models.Vertex) bool {
		if step.Source == SourceSubgraph {
			for _, e := range m.subgraphAdjacent(v, step.Direction) {
				if !step.allows(e.Depth) {
					continue
				}

				if step.Collect {
					m.collect(models.PathEdge{Src: e.Src, Dst: e.Dst, Depth: e.Depth, Hop: step.Hop()})
				}

				candidates.Insert(farEnd(e.Edge(), step.Direction))
			}

			return true
		}

		for _, e := range m.graphAdjacent(v, step.Direction) {
			if step.Annotate {
				annotated = append(annotated, models.DepthEdge{Src: e.Src, Dst: e.Dst, Depth: step.Round})
			}

			candidates.Insert(farEnd(e, step.Direction))
		}

		return true
	})

	for _, e := range annotated {
		m.addSubgraphEdge(e)
	}

	newly := new(btree.Set[models.Vertex])

	candidates.Scan(func(v models.Vertex) bool {
		if !m.visited.Contains(v) {
			newly.Insert(v)
		}

		return true
	})

	newly.Scan(func(v models.Vertex) bool {
		m.visited.Insert(v)

		return true
	})

	m.frontier = newly

	return nil
}

func (m *Memory) graphAdjacent(v models.Vertex, d models.Direction) []models.Edge {
	if d == models.Backward {
		srcs := m.graph.in[v]
		out := make([]models.Edge, len(srcs))

		for i, s := range srcs {
			out[i] = models.Edge{Src: s, Dst: v}
		}

		return out
	}

	dsts := m.graph.out[v]
	out := make([]models.Edge, len(dsts))

	for i, t := range dsts {
		out[i] = models.Edge{Src: v, Dst: t}
	}

	return out
}

func (m *Memory) subgraphAdjacent(v models.Vertex, d models.Direction) []models.DepthEdge {
	if d == models.Backward {
		return m.subIn[v]
	}

	return m.subOut[v]
}

func (m *Memory) addSubgraphEdge(e models.DepthEdge) {
	m.subgraph = append(m.subgraph, e)
	m.subOut[e.Src] = append(m.subOut[e.Src], e)
	m.subIn[e.Dst] = append(m.subIn[e.Dst], e)
}

func (m *Memory) collect(e models.PathEdge) {
	if _, dup := m.pathSeen[e]; dup {
		return
	}

	m.pathSeen[e] = struct{}{}
	m.path = append(m.path, e)
}

func farEnd(e models.Edge, d models.Direction) models.Vertex {
	if d == models.Backward {
		return e.Src
	}

	return e.Dst
}

// FrontierSize implements Workspace.
func (m *Memory) FrontierSize(context.Context) (int, error) {
	if err := m.check(); err != nil {
		return 0, err
	}

	return m.frontier.Len(), nil
}

// FrontierEmpty implements Workspace.
func (m *Memory) FrontierEmpty(context.Context) (bool, error) {
	if err := m.check(); err != nil {
		return false, err
	}

	return m.frontier.Len() == 0, nil
}

// VisitedSize implements Workspace.
func (m *Memory) VisitedSize(context.Context) (int, error) {
	if err := m.check(); err != nil {
		return 0, err
	}

	return m.visited.Len(), nil
}

// Visited implements Workspace.
func (m *Memory) Visited(context.Context) ([]models.Vertex, error) {
	if err := m.check(); err != nil {
		return nil, err
	}

	out := make([]models.Vertex, 0, m.visited.Len())

	m.visited.Scan(func(v models.Vertex) bool {
		out = append(out, v)

		return true
	})

	return out, nil
}

// Subgraph implements Workspace.
func (m *Memory) Subgraph(context.Context) ([]models.DepthEdge, error) {
	if err := m.check(); err != nil {
		return nil, err
	}

	out := append(make([]models.DepthEdge, 0, len(m.subgraph)), m.subgraph...)
	slices.SortFunc(out, func(a, b models.DepthEdge) int {
		if a.Depth != b.Depth {
			return a.Depth - b.Depth
		}

		return compareEdges(a.Edge(), b.Edge())
	})

	return out, nil
}

// PathEdges implements Workspace.
func (m *Memory) PathEdges(context.Context) ([]models.PathEdge, error) {
	if err := m.check(); err != nil {
		return nil, err
	}

	out := append(make([]models.PathEdge, 0, len(m.path)), m.path...)
	slices.SortFunc(out, func(a, b models.PathEdge) int {
		if a.Hop != b.Hop {
			return a.Hop - b.Hop
		}

		if c := compareEdges(a.Edge(), b.Edge()); c != 0 {
			return c
		}

		return a.Depth - b.Depth
	})

	return out, nil
}

// Close implements Workspace.
func (m *Memory) Close(context.Context) error {
	m.closed = true
	m.subgraph, m.subOut, m.subIn, m.path, m.pathSeen = nil, nil, nil, nil, nil
	m.frontier = new(btree.Set[models.Vertex])
	m.visited = new(btree.Set[models.Vertex])

	return nil
}

func compareEdges(a, b models.Edge) int {
	switch {
	case a.Src < b.Src:
		return -1
	case a.Src > b.Src:
		return 1
	case a.Dst < b.Dst:
		return -1
	case a.Dst > b.Dst:
		return 1
	default:
		return 0
	}
}
