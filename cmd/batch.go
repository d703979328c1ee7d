package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/timvw/joke-bot/internal/jokes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	flagCount      int
	flagParallel   int
	flagCategories []string
	flagKeepGoing  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate several jokes concurrently",
	Long: `Generate --count jokes, cycling through --categories (default: every
built-in category). Up to --parallel generations run at once; each one is an
independent writer-critic loop.

By default the first failure cancels the rest. With --keep-going failures are
logged and reported in the output instead.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVar(&flagCount, "count", len(jokes.Categories()), "number of jokes to generate")
	batchCmd.Flags().IntVar(&flagParallel, "parallel", 4, "maximum concurrent generations")
	batchCmd.Flags().StringSliceVar(&flagCategories, "categories", nil, "categories to cycle through (default: all)")
	batchCmd.Flags().StringVar(&flagLanguage, "language", jokes.DefaultLanguage, "language the jokes are written in")
	batchCmd.Flags().Float64Var(&flagWriterTemp, "writer-temp", 0, "writer temperature in [0, 1] (default: from config, 0.8)")
	batchCmd.Flags().Float64Var(&flagCriticTemp, "critic-temp", 0, "critic temperature in [0, 1] (default: from config, 0.3)")
	batchCmd.Flags().BoolVar(&flagKeepGoing, "keep-going", false, "report failures instead of stopping at the first one")
	rootCmd.AddCommand(batchCmd)
}

// batchEntry is one line of batch output. Exactly one of Result and Error
// is set.
type batchEntry struct {
	Category string        `json:"category"`
	Result   *jokes.Result `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// batchRequests expands categories into count requests, round robin.
func batchRequests(base jokes.Request, categories []string, count int) []jokes.Request {
	if len(categories) == 0 {
		categories = jokes.Categories()
	}
	reqs := make([]jokes.Request, count)
	for i := range reqs {
		reqs[i] = base
		reqs[i].Category = categories[i%len(categories)]
	}
	return reqs
}

func runBatch(cmd *cobra.Command, args []string) error {
	if flagCount < 1 {
		return fmt.Errorf("--count must be at least 1, got %d", flagCount)
	}
	if flagParallel < 1 {
		return fmt.Errorf("--parallel must be at least 1, got %d", flagParallel)
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	base := applyRequestFlags(cmd, a.request("", flagLanguage))
	reqs := batchRequests(base, flagCategories, flagCount)

	entries, err := generateAll(cmd.Context(), a.gen, a.logger, reqs, flagParallel, flagKeepGoing)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

type generator interface {
	Generate(ctx context.Context, req jokes.Request) (jokes.Result, error)
}

// generateAll runs reqs with at most parallel in flight. Entries keep the
// order of reqs.
func generateAll(ctx context.Context, gen generator, logger *zap.Logger, reqs []jokes.Request, parallel int, keepGoing bool) ([]batchEntry, error) {
	entries := make([]batchEntry, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, req := range reqs {
		g.Go(func() error {
			entries[i].Category = req.Category
			res, err := gen.Generate(ctx, req)
			if err != nil {
				if !keepGoing {
					return fmt.Errorf("%s: %w", req.Category, err)
				}
				logger.Warn("joke failed", zap.String("category", req.Category), zap.Error(err))
				entries[i].Error = err.Error()
				return nil
			}
			entries[i].Result = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
