package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/config-genie/genie/pkg/cli"
	"github.com/config-genie/genie/pkg/history"
)

var (
	histDevice string
	histRun    string
	histLimit  int
	histRuns   bool
	histSince  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query past runs",
	Long: `Query the run history.

By default every recorded event is listed, newest window first via
--limit. Use --runs for one line per completed run.

Examples:
  genie history --runs --limit 10
  genie history --device sw1
  genie history --run run-20260830-101500.000
  genie history --since 24h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openHistoryBackend()
		if err != nil {
			return err
		}
		defer backend.Close()

		filter := history.Filter{
			RunID:  histRun,
			Device: histDevice,
			Limit:  histLimit,
		}
		if histRuns {
			filter.Type = history.RecordRunCompleted
		}
		if histSince != "" {
			d, err := time.ParseDuration(histSince)
			if err != nil {
				return fmt.Errorf("--since: %w", err)
			}
			filter.StartTime = time.Now().Add(-d)
		}

		records, err := backend.Query(filter)
		if err != nil {
			return err
		}

		if histRuns {
			printRunRecords(records)
		} else {
			printEventRecords(records)
		}
		return nil
	},
}

func printRunRecords(records []*history.Record) {
	t := cli.NewTable("TIME", "RUN", "USER", "STATUS", "COMMITTED", "FAILED", "ROLLED BACK", "ABORTED")
	for _, r := range records {
		t.Row(
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.RunID,
			orDash(r.User),
			r.Status,
			fmt.Sprintf("%d", r.Committed),
			fmt.Sprintf("%d", r.Failed),
			fmt.Sprintf("%d", r.RolledBack),
			fmt.Sprintf("%d", r.Aborted),
		)
	}
	t.Flush()
}

func printEventRecords(records []*history.Record) {
	t := cli.NewTable("TIME", "RUN", "DEVICE", "EVENT")
	for _, r := range records {
		event := string(r.Type)
		if r.Type == history.RecordStateChange {
			event = fmt.Sprintf("%s -> %s", r.From, r.To)
		} else if r.Status != "" {
			event = r.Status
		}
		t.Row(
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.RunID,
			orDash(r.Device),
			event,
		)
	}
	t.Flush()
}

func init() {
	historyCmd.Flags().StringVar(&histDevice, "device", "", "Filter by device")
	historyCmd.Flags().StringVar(&histRun, "run", "", "Filter by run ID")
	historyCmd.Flags().IntVar(&histLimit, "limit", 50, "Maximum records shown")
	historyCmd.Flags().BoolVar(&histRuns, "runs", false, "Show one line per completed run")
	historyCmd.Flags().StringVar(&histSince, "since", "", "Only records newer than this duration (e.g. 24h)")
}
