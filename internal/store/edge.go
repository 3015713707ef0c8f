package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/persistorai/lineage/internal/models"
	"github.com/persistorai/lineage/internal/relstore"
	"github.com/persistorai/lineage/internal/workset"
)

// insertChunk caps the VALUES tuples per INSERT when the store has no bulk path.
const insertChunk = 500

// EdgeStore reads and writes the base edge relation.
type EdgeStore struct {
	Base
	relation string
}

// NewEdgeStore creates an EdgeStore over relation.
func NewEdgeStore(base Base, relation string) (*EdgeStore, error) {
	if !workset.ValidIdentifier(relation) {
		return nil, fmt.Errorf("invalid edge relation name %q", relation)
	}

	return &EdgeStore{Base: base, relation: relation}, nil
}

// Relation returns the edge relation name.
func (s *EdgeStore) Relation() string { return s.relation }

// Insert appends edges to the relation. Duplicates are stored as given.
func (s *EdgeStore) Insert(ctx context.Context, edges []models.Edge) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if loader, ok := s.Store.(relstore.EdgeLoader); ok {
		n, err := loader.LoadEdges(ctx, s.relation, edges)
		if err != nil {
			return 0, fmt.Errorf("loading edges: %w", err)
		}

		return n, nil
	}

	if err := s.Store.ExecuteBatch(ctx, insertEdgeStatements(s.relation, edges)); err != nil {
		return 0, fmt.Errorf("inserting edges: %w", err)
	}

	return int64(len(edges)), nil
}

// insertEdgeStatements renders chunked multi-row INSERT statements.
func insertEdgeStatements(relation string, edges []models.Edge) []relstore.Statement {
	stmts := make([]relstore.Statement, 0, len(edges)/insertChunk+1)

	for start := 0; start < len(edges); start += insertChunk {
		end := min(start+insertChunk, len(edges))

		var b strings.Builder

		b.WriteString("INSERT INTO ")
		b.WriteString(relation)
		b.WriteString(" (src, dst) VALUES ")

		for i, e := range edges[start:end] {
			if i > 0 {
				b.WriteString(", ")
			}

			b.WriteByte('(')
			b.WriteString(strconv.FormatInt(e.Src, 10))
			b.WriteString(", ")
			b.WriteString(strconv.FormatInt(e.Dst, 10))
			b.WriteByte(')')
		}

		stmts = append(stmts, relstore.Statement{SQL: b.String()})
	}

	return stmts
}

// Count returns the number of edge rows.
func (s *EdgeStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	n, err := s.count(ctx, "SELECT COUNT(*) FROM "+s.relation)
	if err != nil {
		return 0, fmt.Errorf("counting edges: %w", err)
	}

	return n, nil
}

// Clear deletes every edge and returns how many were removed.
func (s *EdgeStore) Clear(ctx context.Context) (int64, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if err := s.Store.ExecuteBatch(ctx, []relstore.Statement{relstore.Stmt("DELETE FROM %s", s.relation)}); err != nil {
		return 0, fmt.Errorf("clearing edges: %w", err)
	}

	return n, nil
}

// All reads the whole relation ordered by (src, dst).
func (s *EdgeStore) All(ctx context.Context) ([]models.Edge, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	out, err := s.Store.Query(ctx, relstore.Stmt("SELECT src, dst FROM %s ORDER BY src, dst", s.relation))
	if err != nil {
		return nil, fmt.Errorf("reading edges: %w", err)
	}

	rows := relstore.Rows(out)

	srcs, err := relstore.ParseInts(rows, 0)
	if err != nil {
		return nil, fmt.Errorf("parsing edge sources: %w", err)
	}

	dsts, err := relstore.ParseInts(rows, 1)
	if err != nil {
		return nil, fmt.Errorf("parsing edge destinations: %w", err)
	}

	edges := make([]models.Edge, len(srcs))
	for i := range edges {
		edges[i] = models.Edge{Src: srcs[i], Dst: dsts[i]}
	}

	return edges, nil
}
