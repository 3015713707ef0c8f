package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/persistorai/lineage/client"
)

// captureStdout replaces os.Stdout with a pipe, calls f, then returns the
// captured output and restores os.Stdout. It is NOT safe for parallel use
// because os.Stdout is a package-level variable.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		io.Copy(&buf, r) //nolint:errcheck
		close(done)
	}()

	f()

	w.Close()
	<-done
	os.Stdout = orig
	r.Close()
	return buf.String()
}

func sampleClosure() *client.ClosureResult {
	return &client.ClosureResult{
		RunID:     "r1",
		Direction: client.Backward,
		Seeds:     []int64{3},
		Visited:   []int64{1, 2, 3},
		Rounds:    3,
		Outcome:   client.OutcomeConverged,
	}
}

func TestPrintClosureJSON(t *testing.T) {
	resetFlags(t)
	flagFmt = "json"

	got := captureStdout(t, func() { printClosure(sampleClosure()) })

	var out client.ClosureResult
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, got)
	}
	if len(out.Visited) != 3 || out.Outcome != client.OutcomeConverged {
		t.Errorf("unexpected %+v", out)
	}
}

func TestPrintClosureQuiet(t *testing.T) {
	resetFlags(t)
	flagFmt = "quiet"

	got := captureStdout(t, func() { printClosure(sampleClosure()) })
	if got != "1\n2\n3\n" {
		t.Errorf("got %q", got)
	}
}

func TestPrintClosureTableSubgraph(t *testing.T) {
	resetFlags(t)
	flagFmt = "table"

	res := sampleClosure()
	res.Subgraph = []client.DepthEdge{{Src: 2, Dst: 3, Depth: 1}, {Src: 1, Dst: 2, Depth: 2}}

	got := captureStdout(t, func() { printClosure(res) })
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if !strings.HasPrefix(lines[0], "SRC") || !strings.Contains(lines[0], "DEPTH") {
		t.Errorf("header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "---") {
		t.Errorf("separator: %q", lines[1])
	}
	if !strings.Contains(got, "3 vertices, 3 rounds, converged") {
		t.Errorf("missing summary in %q", got)
	}
}

func TestPrintPathsQuiet(t *testing.T) {
	resetFlags(t)
	flagFmt = "quiet"

	res := &client.PathResult{Edges: []client.PathEdge{{Src: 1, Dst: 2}, {Src: 2, Dst: 5}}}
	got := captureStdout(t, func() { printPaths(res) })
	if got != "1\t2\n2\t5\n" {
		t.Errorf("got %q", got)
	}
}

func TestFormatTableAlignment(t *testing.T) {
	got := captureStdout(t, func() {
		formatTable([]string{"ID", "OUTCOME"}, [][]string{{"long-run-id", "converged"}})
	})
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), got)
	}
	if strings.Index(lines[0], "OUTCOME") != strings.Index(lines[2], "converged") {
		t.Errorf("columns misaligned:\n%s", got)
	}
}

func TestOutputQuiet(t *testing.T) {
	resetFlags(t)
	flagFmt = "quiet"

	got := captureStdout(t, func() { output(map[string]int{"count": 4}, "4") })
	if got != "4\n" {
		t.Errorf("got %q", got)
	}
}
