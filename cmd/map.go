package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/donormap/internal/config"
	"github.com/sells-group/donormap/internal/monitoring"
	"github.com/sells-group/donormap/internal/pipeline"
	"github.com/sells-group/donormap/internal/store"
)

var (
	mapInput       string
	mapOutput      string
	mapPolicy      string
	mapConcurrency int
	mapNoLedger    bool
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Geocode every donation file in the input directory",
	Long:  "Resolves each contribution to a ZIP or municipality coordinate, aggregates the configured cities and writes one GeoJSON FeatureCollection per input file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyMapFlags(cmd, cfg)
		if err := cfg.Validate("map"); err != nil {
			return err
		}

		policy, err := config.LoadPolicy(cfg.Policy.Path)
		if err != nil {
			return err
		}

		engine, err := pipeline.BuildEngine(ctx, cfg.Reference, policy)
		if err != nil {
			return err
		}

		opts := []pipeline.RunnerOption{pipeline.WithMetrics(monitoring.NewMetrics())}
		if !mapNoLedger {
			st, err := store.Open(ctx, cfg.Store)
			if err != nil {
				return eris.Wrap(err, "map: open ledger")
			}
			defer st.Close() //nolint:errcheck
			opts = append(opts, pipeline.WithStore(st))
		}

		outcomes, err := pipeline.NewRunner(engine, cfg, opts...).RunDir(ctx)
		formatOutcomes(os.Stdout, outcomes)
		if err != nil {
			return err
		}

		if failed := countFailed(outcomes); failed > 0 {
			return eris.Errorf("map: %d of %d files failed", failed, len(outcomes))
		}
		return nil
	},
}

// applyMapFlags copies explicitly set flags over the loaded config.
func applyMapFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		c.Input.Dir = mapInput
	}
	if flags.Changed("output") {
		c.Output.Dir = mapOutput
	}
	if flags.Changed("policy") {
		c.Policy.Path = mapPolicy
	}
	if flags.Changed("concurrency") {
		c.Pipeline.Concurrency = mapConcurrency
	}
}

func countFailed(outcomes []pipeline.FileOutcome) int {
	var n int
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// formatOutcomes writes one line per mapped file to w.
func formatOutcomes(out io.Writer, outcomes []pipeline.FileOutcome) {
	if len(outcomes) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FILE\tSTATUS\tRECORDS\tFEATURES\tAGGREGATED\tUNRESOLVED\tDURATION")
	for _, o := range outcomes {
		name := filepath.Base(o.File)
		dur := o.Duration.Round(time.Millisecond).String()
		if o.Err != nil || o.Result == nil {
			_, _ = fmt.Fprintf(w, "%s\tfailed\t-\t-\t-\t-\t%s\n", name, dur)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\tok\t%d\t%d\t%d\t%d\t%s\n",
			name,
			o.Result.Records,
			len(o.Result.Features),
			o.Result.AggregatedCount(),
			o.Result.Unresolved,
			dur,
		)
	}
	_ = w.Flush()

	for _, o := range outcomes {
		if o.Err != nil {
			zap.L().Error("map failed", zap.String("file", o.File), zap.Error(o.Err))
		}
	}
}

func init() {
	mapCmd.Flags().StringVar(&mapInput, "input", "", "directory of donation files (overrides input.dir)")
	mapCmd.Flags().StringVar(&mapOutput, "output", "", "directory for GeoJSON output (overrides output.dir)")
	mapCmd.Flags().StringVar(&mapPolicy, "policy", "", "geocoding policy YAML file (overrides policy.path)")
	mapCmd.Flags().IntVar(&mapConcurrency, "concurrency", 1, "files mapped in parallel (overrides pipeline.concurrency)")
	mapCmd.Flags().BoolVar(&mapNoLedger, "no-ledger", false, "do not record runs in the ledger")
	rootCmd.AddCommand(mapCmd)
}
