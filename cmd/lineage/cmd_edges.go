package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/persistorai/lineage/client"
	"github.com/persistorai/lineage/internal/models"
)

func newEdgesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edges",
		Short: "Manage the edge relation",
	}
	cmd.AddCommand(edgesLoadCmd())
	cmd.AddCommand(edgesCountCmd())
	cmd.AddCommand(edgesClearCmd())
	return cmd
}

func edgesLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.csv>",
		Short: "Append edges from a CSV file of src,dst rows (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			edges, err := readEdgesFile(args[0])
			if err != nil {
				return err
			}
			out := make([]client.Edge, len(edges))
			for i, e := range edges {
				out[i] = client.Edge{Src: e.Src, Dst: e.Dst}
			}
			n, err := apiClient.Edges.Insert(context.Background(), out)
			if err != nil {
				fatal("load edges", err)
			}
			output(map[string]int64{"inserted": n}, fmt.Sprint(n))
			return nil
		},
	}
}

func edgesCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count edges",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			n, err := apiClient.Edges.Count(context.Background())
			if err != nil {
				fatal("count edges", err)
			}
			output(map[string]int64{"count": n}, fmt.Sprint(n))
		},
	}
}

func edgesClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every edge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear edges without --yes")
			}
			n, err := apiClient.Edges.Clear(context.Background())
			if err != nil {
				fatal("clear edges", err)
			}
			output(map[string]int64{"deleted": n}, fmt.Sprint(n))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

func readEdgesFile(path string) ([]models.Edge, error) {
	if path == "-" {
		return readEdgesCSV(os.Stdin)
	}
	f, err := os.Open(path) //nolint:gosec // user-supplied input file.
	if err != nil {
		return nil, fmt.Errorf("open edges: %w", err)
	}
	defer f.Close()
	return readEdgesCSV(f)
}

// readEdgesCSV parses src,dst rows. Blank lines and lines starting with #
// are skipped, as is a leading src,dst header.
func readEdgesCSV(r io.Reader) ([]models.Edge, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	var edges []models.Edge
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading edges: %w", err)
		}
		if line == 1 && strings.EqualFold(rec[0], "src") {
			continue
		}
		src, err := models.ParseVertex(rec[0])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", line, err)
		}
		dst, err := models.ParseVertex(rec[1])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", line, err)
		}
		edges = append(edges, models.Edge{Src: src, Dst: dst})
	}
	return edges, nil
}
