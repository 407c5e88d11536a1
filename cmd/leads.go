package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/store"
)

var (
	leadsRunID    string
	leadsStatus   string
	leadsDomain   string
	leadsMinScore float64
	leadsLimit    int
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and manage stored leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if leadsStatus != "" && !model.LeadStatus(leadsStatus).Valid() {
			return eris.Errorf("invalid lead status %q", leadsStatus)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			RunID:    leadsRunID,
			Status:   model.LeadStatus(leadsStatus),
			Domain:   leadsDomain,
			MinScore: leadsMinScore,
			Limit:    leadsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list leads")
		}
		if len(leads) == 0 {
			fmt.Println("No leads found.")
			return nil
		}

		formatLeadsList(os.Stdout, leads)
		return nil
	},
}

var leadsShowCmd = &cobra.Command{
	Use:   "show <lead-id>",
	Short: "Show one lead as JSON, including evidence provenance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		lead, err := st.GetLead(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "get lead %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lead)
	},
}

var leadsSetStatusCmd = &cobra.Command{
	Use:   "set-status <lead-id> <status>",
	Short: "Move a lead through the outreach lifecycle",
	Long:  "Valid statuses: new, contacted, replied, qualified, disqualified.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		status := model.LeadStatus(args[1])
		if !status.Valid() {
			return eris.Errorf("invalid lead status %q", args[1])
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.UpdateLeadStatus(ctx, args[0], status); err != nil {
			return eris.Wrapf(err, "set status on %s", args[0])
		}
		fmt.Printf("Lead %s is now %s.\n", truncateID(args[0]), status)
		return nil
	},
}

// formatLeadsList renders a lead table shared by run output and leads list.
func formatLeadsList(out io.Writer, leads []model.LeadRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDOMAIN\tCOMPANY\tSCORE\tSTATUS\tSIGNALS")
	fmt.Fprintln(w, "--\t------\t-------\t-----\t------\t-------")
	for _, l := range leads {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%s\t%s\n",
			truncateID(l.ID), l.Domain, truncateText(l.CompanyName, 28),
			l.Score, l.Status, strings.Join(l.TriggeredSignals, ","))
	}
	w.Flush()
}

func init() {
	leadsListCmd.Flags().StringVar(&leadsRunID, "run", "", "filter by run ID")
	leadsListCmd.Flags().StringVar(&leadsStatus, "status", "", "filter by lead status")
	leadsListCmd.Flags().StringVar(&leadsDomain, "domain", "", "filter by domain")
	leadsListCmd.Flags().Float64Var(&leadsMinScore, "min-score", 0, "minimum score")
	leadsListCmd.Flags().IntVar(&leadsLimit, "limit", 50, "max leads to list")
	leadsCmd.AddCommand(leadsListCmd, leadsShowCmd, leadsSetStatusCmd)
	rootCmd.AddCommand(leadsCmd)
}
