package workset

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/models"
	"github.com/persistorai/lineage/internal/relstore"
)

// seedChunk caps the number of VALUES tuples per INSERT statement.
const seedChunk = 500

// SQLFactory opens store-backed workspaces.
type SQLFactory struct {
	Store        relstore.Store
	Prefix       string
	EdgeRelation string
	Log          *logrus.Logger
}

// Open implements Factory.
func (f *SQLFactory) Open(namespace string) (Workspace, error) {
	return NewSQL(f.Store, f.Prefix, namespace, f.EdgeRelation, f.Log)
}

// relations holds the names of a run's relations.
type relations struct {
	frontier string
	next     string
	visited  string
	subgraph string
	path     string
}

func (r relations) all() []string {
	return []string{r.frontier, r.next, r.visited, r.subgraph, r.path}
}

// SQL is a Workspace whose relations live in a relational store.
type SQL struct {
	store     relstore.Store
	log       *logrus.Logger
	namespace string
	edges     string
	rel       relations
}

// NewSQL builds a workspace named <prefix>_<namespace>_* over edgeRelation.
// No store operation is issued until Seed.
func NewSQL(store relstore.Store, prefix, namespace, edgeRelation string, log *logrus.Logger) (*SQL, error) {
	base := prefix + "_" + namespace
	rel := relations{
		frontier: base + "_frontier",
		next:     base + "_next",
		visited:  base + "_visited",
		subgraph: base + "_subgraph",
		path:     base + "_path",
	}

	for _, name := range append(rel.all(), edgeRelation) {
		if !ValidIdentifier(name) {
			return nil, fmt.Errorf("invalid relation name %q", name)
		}
	}

	return &SQL{store: store, log: log, namespace: namespace, edges: edgeRelation, rel: rel}, nil
}

// Namespace implements Workspace.
func (w *SQL) Namespace() string { return w.namespace }

// Relations returns the relation names in frontier, next, visited, subgraph,
// path order.
func (w *SQL) Relations() []string { return w.rel.all() }

// Seed implements Workspace.
func (w *SQL) Seed(ctx context.Context, seeds []models.Vertex) error {
	r := w.rel

	stmts := []relstore.Statement{
		relstore.Stmt("CREATE TABLE IF NOT EXISTS %s (id BIGINT NOT NULL)", r.frontier),
		relstore.Stmt("CREATE TABLE IF NOT EXISTS %s (id BIGINT NOT NULL)", r.next),
		relstore.Stmt("CREATE TABLE IF NOT EXISTS %s (id BIGINT NOT NULL)", r.visited),
		relstore.Stmt("CREATE INDEX IF NOT EXISTS %s_id_idx ON %s (id)", r.visited, r.visited),
		relstore.Stmt("CREATE TABLE IF NOT EXISTS %s (src BIGINT NOT NULL, dst BIGINT NOT NULL, depth INTEGER NOT NULL)", r.subgraph),
		relstore.Stmt("CREATE INDEX IF NOT EXISTS %s_src_idx ON %s (src)", r.subgraph, r.subgraph),
		relstore.Stmt("CREATE TABLE IF NOT EXISTS %s (src BIGINT NOT NULL, dst BIGINT NOT NULL, depth INTEGER NOT NULL, hop INTEGER NOT NULL)", r.path),
	}

	for _, name := range r.all() {
		stmts = append(stmts, relstore.Stmt("DELETE FROM %s", name))
	}

	stmts = append(stmts, insertValues(r.frontier, models.UniqueVertices(seeds))...)
	stmts = append(stmts, relstore.Stmt("INSERT INTO %s (id) SELECT id FROM %s", r.visited, r.frontier))

	if err := w.store.ExecuteBatch(ctx, stmts); err != nil {
		return fmt.Errorf("seeding workspace %s: %w", w.namespace, err)
	}

	return nil
}

// Restrict implements Workspace.
func (w *SQL) Restrict(ctx context.Context, sources []models.Vertex) (int, error) {
	r := w.rel

	stmts := []relstore.Statement{relstore.Stmt("DELETE FROM %s", r.next)}
	stmts = append(stmts, insertValues(r.next, models.UniqueVertices(sources))...)
	stmts = append(stmts,
		relstore.Stmt("DELETE FROM %s", r.frontier),
		relstore.Stmt("INSERT INTO %s (id) SELECT n.id FROM %s n WHERE EXISTS (SELECT 1 FROM %s v WHERE v.id = n.id)", r.frontier, r.next, r.visited),
		relstore.Stmt("DELETE FROM %s", r.visited),
		relstore.Stmt("INSERT INTO %s (id) SELECT id FROM %s", r.visited, r.frontier),
		relstore.Stmt("DELETE FROM %s", r.path),
	)

	if err := w.store.ExecuteBatch(ctx, stmts); err != nil {
		return 0, fmt.Errorf("restricting workspace %s: %w", w.namespace, err)
	}

	return w.FrontierSize(ctx)
}

// Expand implements Workspace. The whole round is one batch.
func (w *SQL) Expand(ctx context.Context, step Step) error {
	if err := step.Validate(); err != nil {
		return err
	}

	if err := w.store.ExecuteBatch(ctx, w.roundStatements(step)); err != nil {
		return fmt.Errorf("expanding round %d: %w", step.Round, err)
	}

	return nil
}

// roundStatements builds the batch for one round.
func (w *SQL) roundStatements(step Step) []relstore.Statement {
	r := w.rel

	source := w.edges
	if step.Source == SourceSubgraph {
		source = r.subgraph
	}

	near, far := step.Direction.Near(), step.Direction.Far()
	join := fmt.Sprintf("FROM %s f JOIN %s e ON f.id = e.%s", r.frontier, source, near)

	if step.Bounded {
		join += fmt.Sprintf(" WHERE e.depth + %d <= %d", step.Hop(), step.Budget)
	}

	stmts := []relstore.Statement{relstore.Stmt("DELETE FROM %s", r.next)}

	if step.Annotate {
		stmts = append(stmts, relstore.Stmt("INSERT INTO %s (src, dst, depth) SELECT e.src, e.dst, %d %s", r.subgraph, step.Round, join))
	}

	if step.Collect {
		stmts = append(stmts, relstore.Stmt("INSERT INTO %s (src, dst, depth, hop) SELECT DISTINCT e.src, e.dst, e.depth, %d %s", r.path, step.Hop(), join))
	}

	return append(stmts,
		relstore.Stmt("INSERT INTO %s (id) SELECT e.%s %s GROUP BY e.%s", r.next, far, join, far),
		relstore.Stmt("DELETE FROM %s", r.frontier),
		relstore.Stmt("INSERT INTO %s (id) SELECT n.id FROM %s n WHERE NOT EXISTS (SELECT 1 FROM %s v WHERE v.id = n.id)", r.frontier, r.next, r.visited),
		relstore.Stmt("INSERT INTO %s (id) SELECT id FROM %s", r.visited, r.frontier),
	)
}

// FrontierSize implements Workspace.
func (w *SQL) FrontierSize(ctx context.Context) (int, error) {
	return w.count(ctx, w.rel.frontier)
}

// VisitedSize implements Workspace.
func (w *SQL) VisitedSize(ctx context.Context) (int, error) {
	return w.count(ctx, w.rel.visited)
}

func (w *SQL) count(ctx context.Context, relation string) (int, error) {
	out, err := w.store.Query(ctx, relstore.Stmt("SELECT COUNT(*) FROM %s", relation))
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", relation, err)
	}

	return relstore.ParseCount(out)
}

// FrontierEmpty implements Workspace.
func (w *SQL) FrontierEmpty(ctx context.Context) (bool, error) {
	out, err := w.store.Query(ctx, relstore.Stmt("SELECT 1 FROM %s LIMIT 1", w.rel.frontier))
	if err != nil {
		return false, fmt.Errorf("probing %s: %w", w.rel.frontier, err)
	}

	return strings.TrimSpace(out) == "", nil
}

// Visited implements Workspace.
func (w *SQL) Visited(ctx context.Context) ([]models.Vertex, error) {
	out, err := w.store.Query(ctx, relstore.Stmt("SELECT DISTINCT id FROM %s ORDER BY id", w.rel.visited))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", w.rel.visited, err)
	}

	return relstore.ParseInts(relstore.Rows(out), 0)
}

// Subgraph implements Workspace.
func (w *SQL) Subgraph(ctx context.Context) ([]models.DepthEdge, error) {
	out, err := w.store.Query(ctx, relstore.Stmt("SELECT src, dst, depth FROM %s ORDER BY depth, src, dst", w.rel.subgraph))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", w.rel.subgraph, err)
	}

	cols, err := parseColumns(relstore.Rows(out), 3)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", w.rel.subgraph, err)
	}

	edges := make([]models.DepthEdge, len(cols[0]))
	for i := range edges {
		edges[i] = models.DepthEdge{Src: cols[0][i], Dst: cols[1][i], Depth: int(cols[2][i])}
	}

	return edges, nil
}

// PathEdges implements Workspace.
func (w *SQL) PathEdges(ctx context.Context) ([]models.PathEdge, error) {
	out, err := w.store.Query(ctx, relstore.Stmt("SELECT src, dst, depth, hop FROM %s ORDER BY hop, src, dst, depth", w.rel.path))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", w.rel.path, err)
	}

	cols, err := parseColumns(relstore.Rows(out), 4)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", w.rel.path, err)
	}

	edges := make([]models.PathEdge, len(cols[0]))
	for i := range edges {
		edges[i] = models.PathEdge{Src: cols[0][i], Dst: cols[1][i], Depth: int(cols[2][i]), Hop: int(cols[3][i])}
	}

	return edges, nil
}

// Close drops every relation of the workspace.
func (w *SQL) Close(ctx context.Context) error {
	stmts := make([]relstore.Statement, 0, len(w.rel.all()))
	for _, name := range w.rel.all() {
		stmts = append(stmts, relstore.Stmt("DROP TABLE IF EXISTS %s", name))
	}

	if err := w.store.ExecuteBatch(ctx, stmts); err != nil {
		return fmt.Errorf("dropping workspace %s: %w", w.namespace, err)
	}

	return nil
}

// insertValues renders chunked multi-row INSERT statements for vs.
func insertValues(relation string, vs []models.Vertex) []relstore.Statement {
	var stmts []relstore.Statement

	for start := 0; start < len(vs); start += seedChunk {
		end := min(start+seedChunk, len(vs))

		var b strings.Builder

		b.WriteString("INSERT INTO ")
		b.WriteString(relation)
		b.WriteString(" (id) VALUES ")

		for i, v := range vs[start:end] {
			if i > 0 {
				b.WriteString(", ")
			}

			b.WriteByte('(')
			b.WriteString(strconv.FormatInt(v, 10))
			b.WriteByte(')')
		}

		stmts = append(stmts, relstore.Statement{SQL: b.String()})
	}

	return stmts
}

// parseColumns parses n integer columns of rows, column-major.
func parseColumns(rows [][]string, n int) ([][]int64, error) {
	cols := make([][]int64, n)

	for c := range n {
		vals, err := relstore.ParseInts(rows, c)
		if err != nil {
			return nil, err
		}

		cols[c] = vals
	}

	return cols, nil
}
