package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/bdc-cli/internal/runlog"
)

var (
	statusRunID  string
	statusState  string
	statusFilter string
	statusLimit  int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent pipeline runs from the run log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("status"); err != nil {
			return err
		}

		rl, err := runlog.Open(cfg.Output.RunLog)
		if err != nil {
			return err
		}
		defer rl.Close() //nolint:errcheck

		runs, err := rl.List(cmd.Context(), runlog.Filter{
			RunID:     statusRunID,
			StateFIPS: statusState,
			Status:    statusFilter,
			Limit:     statusLimit,
		})
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTATE\tSTATUS\tBLOCKS\tRECORDS\tDURATION\tSTARTED\tERROR")
		for _, r := range runs {
			dur := ""
			if r.FinishedAt != nil {
				dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
			}
			fmt.Fprintf(w, "%.8s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
				r.RunID, r.StateAbbr, r.Status, r.Blocks, r.Records,
				dur, r.StartedAt.Format(time.RFC3339), r.Error,
			)
		}
		return w.Flush()
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusRunID, "run", "", "filter by run id")
	statusCmd.Flags().StringVar(&statusState, "state", "", "filter by state FIPS")
	statusCmd.Flags().StringVar(&statusFilter, "status", "", "filter by status: running, ok, failed")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 50, "maximum rows")
	rootCmd.AddCommand(statusCmd)
}
