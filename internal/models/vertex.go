package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Vertex is an opaque vertex identifier.
type Vertex = int64

// ParseVertex parses a decimal vertex ID, tolerating surrounding whitespace.
func ParseVertex(s string) (Vertex, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing vertex %q: %w", s, err)
	}

	return v, nil
}

// ParseVertices parses a list of vertex IDs. Each element may itself hold
// several comma-separated IDs.
func ParseVertices(args []string) ([]Vertex, error) {
	out := make([]Vertex, 0, len(args))

	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}

			v, err := ParseVertex(part)
			if err != nil {
				return nil, err
			}

			out = append(out, v)
		}
	}

	return out, nil
}

// UniqueVertices returns the distinct vertices of vs in ascending order.
// The input is not modified.
func UniqueVertices(vs []Vertex) []Vertex {
	out := slices.Clone(vs)
	slices.Sort(out)

	return slices.Compact(out)
}
