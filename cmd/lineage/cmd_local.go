package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/persistorai/lineage/client"
	"github.com/persistorai/lineage/internal/engine"
	"github.com/persistorai/lineage/internal/service"
	"github.com/persistorai/lineage/internal/workset"
)

func newLocalCmd() *cobra.Command {
	var edgesPath string
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Run traversals in memory over an edge CSV file",
	}
	cmd.PersistentFlags().StringVar(&edgesPath, "edges", "", "CSV file of src,dst rows (- for stdin)")
	_ = cmd.MarkPersistentFlagRequired("edges")

	cmd.AddCommand(localClosureCmd(&edgesPath))
	cmd.AddCommand(localPathsCmd(&edgesPath))
	return cmd
}

// localService builds an in-memory traversal service over the edges file.
func localService(edgesPath string) (*service.TraversalService, error) {
	edges, err := readEdgesFile(edgesPath)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)

	factory := &workset.MemoryFactory{Graph: workset.NewGraph(edges)}

	return service.NewTraversalService(engine.New(log), factory, service.TraversalConfig{}, nil, nil, log), nil
}

// wireAs re-encodes a result into its client form so local and remote
// output render identically.
func wireAs[T any](v any) (*T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func localClosureCmd(edgesPath *string) *cobra.Command {
	var flags closureFlags
	cmd := &cobra.Command{
		Use:   "closure <seed>...",
		Short: "Compute a closure in memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.parse(args)
			if err != nil {
				return err
			}
			svc, err := localService(*edgesPath)
			if err != nil {
				return err
			}
			res, err := svc.Closure(context.Background(), req)
			if err != nil {
				return fmt.Errorf("closure: %w", err)
			}
			out, err := wireAs[client.ClosureResult](res)
			if err != nil {
				return err
			}
			printClosure(out)
			warnRoundCap(out.Outcome)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func localPathsCmd(edgesPath *string) *cobra.Command {
	var flags pathFlags
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Find bounded paths in memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.parse()
			if err != nil {
				return err
			}
			svc, err := localService(*edgesPath)
			if err != nil {
				return err
			}
			res, err := svc.Paths(context.Background(), req)
			if err != nil {
				return fmt.Errorf("paths: %w", err)
			}
			out, err := wireAs[client.PathResult](res)
			if err != nil {
				return err
			}
			printPaths(out)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
