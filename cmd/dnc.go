package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/signals-cli/internal/model"
)

var dncReason string

var dncCmd = &cobra.Command{
	Use:   "dnc",
	Short: "Manage the do-not-contact list",
	Long: `Domains on the do-not-contact list are dropped during dedup and never
become leads, regardless of how strong their signals are.`,
}

var dncAddCmd = &cobra.Command{
	Use:   "add <domain>",
	Short: "Add a domain to the DNC list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		domain := model.NormalizeDomain(args[0])
		if domain == "" {
			return eris.Errorf("invalid domain %q", args[0])
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.AddDNC(ctx, domain, dncReason); err != nil {
			return eris.Wrapf(err, "add dnc %s", domain)
		}
		fmt.Printf("Added %s to the DNC list.\n", domain)
		return nil
	},
}

var dncRemoveCmd = &cobra.Command{
	Use:   "remove <domain>",
	Short: "Remove a domain from the DNC list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		domain := model.NormalizeDomain(args[0])
		if domain == "" {
			return eris.Errorf("invalid domain %q", args[0])
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.RemoveDNC(ctx, domain); err != nil {
			return eris.Wrapf(err, "remove dnc %s", domain)
		}
		fmt.Printf("Removed %s from the DNC list.\n", domain)
		return nil
	},
}

var dncListCmd = &cobra.Command{
	Use:   "list",
	Short: "List DNC entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.ListDNC(ctx)
		if err != nil {
			return eris.Wrap(err, "list dnc")
		}
		if len(entries) == 0 {
			fmt.Println("The DNC list is empty.")
			return nil
		}

		formatDNCList(os.Stdout, entries)
		return nil
	},
}

var dncCheckCmd = &cobra.Command{
	Use:   "check <domain>",
	Short: "Check whether a domain is on the DNC list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		domain := model.NormalizeDomain(args[0])
		if domain == "" {
			return eris.Errorf("invalid domain %q", args[0])
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		blocked, err := st.IsDNC(ctx, domain)
		if err != nil {
			return eris.Wrapf(err, "check dnc %s", domain)
		}
		if blocked {
			fmt.Printf("%s is on the DNC list.\n", domain)
		} else {
			fmt.Printf("%s is not on the DNC list.\n", domain)
		}
		return nil
	},
}

func formatDNCList(out io.Writer, entries []model.DNCEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tREASON\tADDED")
	fmt.Fprintln(w, "------\t------\t-----")
	for _, e := range entries {
		reason := e.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Domain, reason, e.AddedAt.UTC().Format("2006-01-02"))
	}
	w.Flush()
}

func init() {
	dncAddCmd.Flags().StringVar(&dncReason, "reason", "", "why this domain must not be contacted")
	dncCmd.AddCommand(dncAddCmd, dncRemoveCmd, dncListCmd, dncCheckCmd)
	rootCmd.AddCommand(dncCmd)
}
