package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bdc-cli/internal/census"
)

var (
	fetchStates string
	fetchYear   int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download TIGER/Line tabblock20 shapefiles",
	Long: `Downloads and extracts the Census tabblock20 shapefile for each state
into the configured tabblock directory. Already-downloaded archives are
reused, so the command is safe to re-run.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if fetchYear > 0 {
			cfg.Census.Year = fetchYear
		}
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		sts, err := resolveStates(fetchStates)
		if err != nil {
			return err
		}

		httpF, ftpF := buildFetchers()
		log := zap.L().With(zap.String("command", "fetch"))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Pipeline.Concurrency)

		var failed atomic.Int32
		for _, st := range sts {
			st := st
			g.Go(func() error {
				destDir := filepath.Join(cfg.Data.TabblockDir, st.DirName())
				shpPath, err := census.FetchTabblock(gctx, httpF, ftpF, cfg.Census.Year, st.FIPS, destDir)
				if err != nil {
					log.Error("tabblock download failed",
						zap.String("state", st.Abbr),
						zap.Error(err),
					)
					failed.Add(1)
					return nil // keep fetching the rest
				}
				fmt.Printf("%-4s %s\n", st.Abbr, shpPath)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "fetch")
		}

		if n := failed.Load(); n > 0 {
			return eris.Errorf("fetch: %d of %d states failed", n, len(sts))
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchStates, "states", "", `states to fetch (default "all")`)
	fetchCmd.Flags().IntVar(&fetchYear, "year", 0, "TIGER/Line year (default from config)")
	rootCmd.AddCommand(fetchCmd)
}
