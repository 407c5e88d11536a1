package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/store"
)

var (
	runsStatus string
	runsMode   string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect signal run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(runsStatus),
			Mode:   model.RunMode(runsMode),
			Limit:  runsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list runs")
		}
		if len(runs) == 0 {
			fmt.Println("No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "get run %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run and lead counts by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runCounts, err := st.CountRunsByStatus(ctx)
		if err != nil {
			return eris.Wrap(err, "count runs")
		}
		leadCounts, err := st.CountLeadsByStatus(ctx)
		if err != nil {
			return eris.Wrap(err, "count leads")
		}

		formatStatusCounts(os.Stdout, "Runs", runCounts)
		fmt.Println()
		formatStatusCounts(os.Stdout, "Leads", leadCounts)
		return nil
	},
}

// formatRunsList renders a run table, most recent first per store ordering.
func formatRunsList(out io.Writer, runs []model.SignalRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tSTATUS\tLEADS\tCOST\tSTARTED\tDURATION")
	fmt.Fprintln(w, "--\t----\t------\t-----\t----\t-------\t--------")
	for _, r := range runs {
		dur := "-"
		if r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t$%.4f\t%s\t%s\n",
			truncateID(r.ID), r.Mode, r.Status, r.Stats.LeadsGenerated,
			r.Cost.EstimatedUSD, r.StartedAt.UTC().Format("2006-01-02 15:04"), dur)
	}
	w.Flush()
}

// formatStatusCounts renders one per-status aggregation table.
func formatStatusCounts(out io.Writer, label string, counts []store.StatusCount) {
	fmt.Fprintf(out, "%s by status:\n", label)
	if len(counts) == 0 {
		fmt.Fprintln(out, "  (none)")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	total := 0
	for _, c := range counts {
		fmt.Fprintf(w, "  %s\t%d\n", c.Status, c.Count)
		total += c.Count
	}
	fmt.Fprintf(w, "  total\t%d\n", total)
	w.Flush()
}

// truncateID shortens a UUID for table display.
func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// truncateText clamps a display string to n runes.
func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (running, complete, failed)")
	runsListCmd.Flags().StringVar(&runsMode, "mode", "", "filter by mode (hunt, watch)")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to list")
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}
