package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/persistorai/lineage/client"
	"github.com/persistorai/lineage/internal/models"
)

// closureFlags are shared by the remote and local closure commands.
type closureFlags struct {
	direction string
	maxRounds int
	annotate  bool
}

func (f *closureFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.direction, "direction", "backward", "forward|backward (aliases: descendants|ancestors)")
	cmd.Flags().IntVar(&f.maxRounds, "max-rounds", 0, "Round cap; 0 takes the default")
	cmd.Flags().BoolVar(&f.annotate, "annotate", false, "Return the reached subgraph with discovery depths")
}

func (f *closureFlags) parse(args []string) (models.ClosureRequest, error) {
	seeds, err := models.ParseVertices(args)
	if err != nil {
		return models.ClosureRequest{}, err
	}
	if len(seeds) == 0 {
		return models.ClosureRequest{}, models.ErrEmptySeedSet
	}
	dir, err := models.ParseDirection(f.direction)
	if err != nil {
		return models.ClosureRequest{}, err
	}
	if f.maxRounds < 0 {
		return models.ClosureRequest{}, fmt.Errorf("%w: --max-rounds must not be negative", models.ErrInvalidRoundCap)
	}
	return models.ClosureRequest{Seeds: seeds, Direction: dir, MaxRounds: f.maxRounds, Annotate: f.annotate}, nil
}

// pathFlags are shared by the remote and local paths commands.
type pathFlags struct {
	src      []string
	dst      []string
	maxDepth int
}

func (f *pathFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.src, "src", nil, "Source vertices (comma separated)")
	cmd.Flags().StringSliceVar(&f.dst, "dst", nil, "Destination vertices (comma separated)")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 10, "Maximum path length in hops")
	_ = cmd.MarkFlagRequired("src")
	_ = cmd.MarkFlagRequired("dst")
}

func (f *pathFlags) parse() (models.PathRequest, error) {
	sources, err := models.ParseVertices(f.src)
	if err != nil {
		return models.PathRequest{}, fmt.Errorf("--src: %w", err)
	}
	dests, err := models.ParseVertices(f.dst)
	if err != nil {
		return models.PathRequest{}, fmt.Errorf("--dst: %w", err)
	}
	req := models.PathRequest{Sources: sources, Destinations: dests, MaxDepth: f.maxDepth}
	if err := req.Validate(); err != nil {
		return models.PathRequest{}, err
	}
	return req, nil
}

func newClosureCmd() *cobra.Command {
	var flags closureFlags
	cmd := &cobra.Command{
		Use:   "closure <seed>...",
		Short: "Compute the vertices reachable from the seeds",
		Long: "Compute the transitive closure of the seed vertices on the server.\n" +
			"Seeds may be given as separate arguments or comma separated.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.parse(args)
			if err != nil {
				return err
			}
			res, err := apiClient.Traversal.Closure(context.Background(), &client.ClosureRequest{
				Seeds:     req.Seeds,
				Direction: client.Direction(req.Direction),
				MaxRounds: req.MaxRounds,
				Annotate:  req.Annotate,
			})
			if err != nil {
				reportPartial(err)
				fatal("closure", err)
			}
			printClosure(res)
			warnRoundCap(res.Outcome)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newPathsCmd() *cobra.Command {
	var flags pathFlags
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Find the edges on bounded paths between two vertex sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.parse()
			if err != nil {
				return err
			}
			depth := req.MaxDepth
			res, err := apiClient.Traversal.Paths(context.Background(), &client.PathRequest{
				Sources:      req.Sources,
				Destinations: req.Destinations,
				MaxDepth:     &depth,
			})
			if err != nil {
				fatal("paths", err)
			}
			printPaths(res)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// reportPartial prints how far a failed closure got before the error.
func reportPartial(err error) {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return
	}
	partial, perr := apiErr.PartialClosure()
	if perr != nil || partial == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "partial result: %d vertices visited before %s round %d failed\n",
		len(partial.Visited), apiErr.Phase, apiErr.Round)
}

func warnRoundCap(outcome client.Outcome) {
	if outcome == client.OutcomeRoundCap {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(`
warning: round cap reached before the closure converged; raise --max-rounds for the full result`))
	}
}
