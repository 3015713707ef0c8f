package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/persistorai/lineage/client"
)

func formatJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode json: %v\n", err)
		os.Exit(1)
	}
}

func formatTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			w := 0
			if i < len(widths) {
				w = widths[i]
			}
			parts[i] = fmt.Sprintf("%-*s", w, cell)
		}
		fmt.Println(strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	printRow(headers)
	seps := make([]string, len(headers))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}
	printRow(seps)
	for _, row := range rows {
		printRow(row)
	}
}

func formatQuiet(lines ...string) {
	for _, l := range lines {
		fmt.Println(l)
	}
}

func vertexLines(vs []int64) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = strconv.FormatInt(v, 10)
	}
	return out
}

// printClosure renders a closure result: quiet prints one visited vertex per
// line, table prints the subgraph when annotated and the visited set otherwise.
func printClosure(res *client.ClosureResult) {
	switch flagFmt {
	case "quiet":
		formatQuiet(vertexLines(res.Visited)...)
	case "table":
		if len(res.Subgraph) > 0 {
			rows := make([][]string, len(res.Subgraph))
			for i, e := range res.Subgraph {
				rows[i] = []string{strconv.FormatInt(e.Src, 10), strconv.FormatInt(e.Dst, 10), strconv.Itoa(e.Depth)}
			}
			formatTable([]string{"SRC", "DST", "DEPTH"}, rows)
		} else {
			rows := make([][]string, len(res.Visited))
			for i, v := range vertexLines(res.Visited) {
				rows[i] = []string{v}
			}
			formatTable([]string{"VERTEX"}, rows)
		}
		fmt.Printf("\n%d vertices, %d rounds, %s\n", len(res.Visited), res.Rounds, res.Outcome)
	default:
		formatJSON(res)
	}
}

// printPaths renders a path result as edges with their depth and hop.
func printPaths(res *client.PathResult) {
	switch flagFmt {
	case "quiet":
		lines := make([]string, len(res.Edges))
		for i, e := range res.Edges {
			lines[i] = fmt.Sprintf("%d\t%d", e.Src, e.Dst)
		}
		formatQuiet(lines...)
	case "table":
		rows := make([][]string, len(res.Edges))
		for i, e := range res.Edges {
			rows[i] = []string{
				strconv.FormatInt(e.Src, 10), strconv.FormatInt(e.Dst, 10),
				strconv.Itoa(e.Depth), strconv.Itoa(e.Hop),
			}
		}
		formatTable([]string{"SRC", "DST", "DEPTH", "HOP"}, rows)
		fmt.Printf("\n%d vertices, %d edges\n", len(res.Vertices), len(res.Edges))
	default:
		formatJSON(res)
	}
}

func printRuns(runs []client.Run) {
	switch flagFmt {
	case "quiet":
		for _, r := range runs {
			formatQuiet(r.ID)
		}
	case "table":
		rows := make([][]string, len(runs))
		for i, r := range runs {
			rows[i] = []string{
				r.ID, r.Kind, string(r.Outcome), strconv.Itoa(r.Rounds),
				strconv.Itoa(r.VisitedSize), r.Duration.String(),
			}
		}
		formatTable([]string{"ID", "KIND", "OUTCOME", "ROUNDS", "VISITED", "DURATION"}, rows)
	default:
		formatJSON(runs)
	}
}

// output prints v as JSON, or quietVal in quiet mode.
func output(v any, quietVal string) {
	if flagFmt == "quiet" {
		formatQuiet(quietVal)
		return
	}
	formatJSON(v)
}
