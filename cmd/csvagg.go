package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bdc-cli/internal/pipeline"
	"github.com/sells-group/bdc-cli/internal/runlog"
	"github.com/sells-group/bdc-cli/internal/sink"
)

var (
	csvaggStates      string
	csvaggConcurrency int
)

var csvaggCmd = &cobra.Command{
	Use:   "csvagg",
	Short: "Run the legacy CSV-only aggregation (no geometry)",
	Long: `Aggregates availability filings per block and writes flat CSVs without
joining tabblock geometry. Serving counts are computed without the HOUSING20
reconciliation, since housing units come from the shapefile.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if csvaggConcurrency > 0 {
			cfg.Pipeline.Concurrency = csvaggConcurrency
		}
		if err := cfg.Validate("csvagg"); err != nil {
			return err
		}

		sts, err := resolveStates(csvaggStates)
		if err != nil {
			return err
		}

		normalizer, err := buildNormalizer(ctx)
		if err != nil {
			return err
		}

		rl, err := runlog.Open(cfg.Output.RunLog)
		if err != nil {
			return err
		}
		defer rl.Close() //nolint:errcheck

		p := pipeline.NewLegacy(cfg, normalizer, []sink.Sink{sink.NewCSV(cfg.Output.Dir)}, rl)
		results, err := p.Run(ctx, sts)
		if err != nil {
			return eris.Wrap(err, "csvagg")
		}

		printResults(results)
		return nil
	},
}

func init() {
	csvaggCmd.Flags().StringVar(&csvaggStates, "states", "", `states to process (default "all")`)
	csvaggCmd.Flags().IntVar(&csvaggConcurrency, "concurrency", 0, "parallel states (default from config)")
	rootCmd.AddCommand(csvaggCmd)
}
