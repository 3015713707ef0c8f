package engine_test

import (
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/persistorai/lineage/internal/models"
)

// randomEdges returns m distinct non-loop edges over vertices 0..n-1.
func randomEdges(seed uint64, n, m int) []models.Edge {
	rng := rand.New(rand.NewPCG(seed, seed*31+7))
	seen := make(map[models.Edge]struct{}, m)
	out := make([]models.Edge, 0, m)

	for len(out) < m {
		e := models.Edge{Src: models.Vertex(rng.IntN(n)), Dst: models.Vertex(rng.IntN(n))}
		if e.Src == e.Dst {
			continue
		}

		if _, dup := seen[e]; dup {
			continue
		}

		seen[e] = struct{}{}
		out = append(out, e)
	}

	return out
}

// directedGraph builds a gonum graph over edges, reversed for backward walks.
// Every vertex in extra is present even if it has no edges.
func directedGraph(edges []models.Edge, dir models.Direction, extra []models.Vertex) *simple.DirectedGraph {
	g := simple.NewDirectedGraph()

	for _, v := range extra {
		if g.Node(v) == nil {
			g.AddNode(simple.Node(v))
		}
	}

	for _, e := range edges {
		from, to := e.Src, e.Dst
		if dir == models.Backward {
			from, to = to, from
		}

		g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
	}

	return g
}

// oracleClosure is the set reachable from seeds, sorted.
func oracleClosure(edges []models.Edge, seeds []models.Vertex, dir models.Direction) []models.Vertex {
	g := directedGraph(edges, dir, seeds)

	var bf traverse.BreadthFirst
	for _, s := range seeds {
		bf.Walk(g, simple.Node(s), nil)
	}

	var out []models.Vertex

	nodes := g.Nodes()
	for nodes.Next() {
		if n := nodes.Node(); bf.Visited(n) {
			out = append(out, n.ID())
		}
	}

	slices.Sort(out)

	return out
}

// distances returns the hop distance from the nearest of seeds to every
// vertex reachable within limit hops.
func distances(edges []models.Edge, seeds []models.Vertex, dir models.Direction, limit int) map[models.Vertex]int {
	g := directedGraph(edges, dir, seeds)
	dist := make(map[models.Vertex]int)

	for _, s := range seeds {
		var bf traverse.BreadthFirst

		bf.Walk(g, simple.Node(s), func(n graph.Node, d int) bool {
			if d > limit {
				return true
			}

			if cur, ok := dist[n.ID()]; !ok || d < cur {
				dist[n.ID()] = d
			}

			return false
		})
	}

	return dist
}

// oraclePaths computes the bounded path subgraph directly from shortest
// distances: edge (u,v) lies on a walk within budget iff
// dist(S,u) + 1 + dist(v,D) <= maxDepth, where S is restricted to sources
// that can reach a destination within budget.
func oraclePaths(edges []models.Edge, sources, dests []models.Vertex, maxDepth int) ([]models.Vertex, []models.PathEdge) {
	toDest := distances(edges, dests, models.Backward, maxDepth)

	var live []models.Vertex

	for _, s := range models.UniqueVertices(sources) {
		if _, ok := toDest[s]; ok {
			live = append(live, s)
		}
	}

	if len(live) == 0 {
		return nil, nil
	}

	fromSrc := distances(edges, live, models.Forward, maxDepth)

	vertices := map[models.Vertex]struct{}{}
	for _, s := range live {
		vertices[s] = struct{}{}
	}

	var out []models.PathEdge

	for _, e := range edges {
		du, okU := fromSrc[e.Src]
		dv, okV := toDest[e.Dst]

		if !okU || !okV || du+1+dv > maxDepth {
			continue
		}

		out = append(out, models.PathEdge{Src: e.Src, Dst: e.Dst, Depth: dv + 1, Hop: du})
		vertices[e.Dst] = struct{}{}
	}

	slices.SortFunc(out, func(a, b models.PathEdge) int {
		if a.Hop != b.Hop {
			return a.Hop - b.Hop
		}

		if a.Src != b.Src {
			return int(a.Src - b.Src)
		}

		return int(a.Dst - b.Dst)
	})

	vs := make([]models.Vertex, 0, len(vertices))
	for v := range vertices {
		vs = append(vs, v)
	}

	slices.Sort(vs)

	return vs, out
}
