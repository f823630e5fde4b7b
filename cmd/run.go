package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bdc-cli/internal/monitoring"
	"github.com/sells-group/bdc-cli/internal/pipeline"
	"github.com/sells-group/bdc-cli/internal/runlog"
)

var (
	runStates      string
	runFormats     []string
	runConcurrency int
	runYear        int
	runNoDownload  bool
	runResume      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full availability pipeline with block geometry",
	Long: `Processes each state's BDC availability filings: per-block provider and
technology aggregation, serving classification against HOUSING20, joined to
tabblock20 geometry, written to the configured output formats.

States are given as USPS abbreviations: "CO", "CO,UT", a range "CO-FL", or
"all" (the default).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyRunFlags()
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		sts, err := resolveStates(runStates)
		if err != nil {
			return err
		}

		normalizer, err := buildNormalizer(ctx)
		if err != nil {
			return err
		}

		sinks, cleanup, err := buildSinks(ctx, cfg.Output.Formats)
		if err != nil {
			return err
		}
		defer cleanup()

		rl, err := runlog.Open(cfg.Output.RunLog)
		if err != nil {
			return err
		}
		defer rl.Close() //nolint:errcheck

		var httpF, ftpF = buildFetchers()
		if runNoDownload {
			httpF, ftpF = nil, nil
		}

		watcher := monitoring.NewWatcher(
			time.Duration(cfg.Monitoring.SampleIntervalSecs)*time.Second,
			cfg.Monitoring.HeapWarnBytes,
		)
		go watcher.Run(ctx)

		p := pipeline.New(cfg, normalizer, sinks, rl, httpF, ftpF)
		if runResume != "" {
			p.Resume(runResume)
		}
		results, err := p.Run(ctx, sts)
		if err != nil {
			return eris.Wrap(err, "run")
		}

		printResults(results)
		zap.L().Info("peak memory", zap.Uint64("heap_alloc", watcher.Peak()))
		return nil
	},
}

func applyRunFlags() {
	if len(runFormats) > 0 {
		cfg.Output.Formats = runFormats
	}
	if runConcurrency > 0 {
		cfg.Pipeline.Concurrency = runConcurrency
	}
	if runYear > 0 {
		cfg.Census.Year = runYear
	}
}

func printResults(results []pipeline.StateResult) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Printf("%-4s FAILED  %v\n", r.State.Abbr, r.Err)
		case r.Skipped:
			fmt.Printf("%-4s skipped (already complete)\n", r.State.Abbr)
		default:
			fmt.Printf("%-4s ok      %d blocks, %d records\n", r.State.Abbr, r.Blocks, r.Records)
		}
	}
}

func init() {
	runCmd.Flags().StringVar(&runStates, "states", "", `states to process: "CO", "CO,UT", "CO-FL", or "all"`)
	runCmd.Flags().StringSliceVar(&runFormats, "formats", nil, "output formats: geojson, gpkg, csv, postgres (default from config)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "parallel states (default from config)")
	runCmd.Flags().IntVar(&runYear, "year", 0, "TIGER/Line year (default from config)")
	runCmd.Flags().BoolVar(&runNoDownload, "no-download", false, "use only shapefiles already on disk")
	runCmd.Flags().StringVar(&runResume, "resume", "", "previous run id to resume, skipping states that already succeeded")
	rootCmd.AddCommand(runCmd)
}
