package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/registry"
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Inspect the signal registry and ICP profile",
}

var signalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the signal definitions the pipeline evaluates",
	RunE: func(cmd *cobra.Command, args []string) error {
		signals, err := registry.LoadSignals(cfg.Signals.RegistryPath)
		if err != nil {
			return err
		}

		source := cfg.Signals.RegistryPath
		if source == "" {
			source = "(embedded defaults)"
		}
		fmt.Printf("Registry: %s\n\n", source)
		formatSignalsList(os.Stdout, signals)
		return nil
	},
}

var signalsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configured registry and profile files",
	Long: `Loads the signal registry and ICP profile from the configured paths and
reports structural problems: duplicate or empty IDs, bad priorities,
non-positive weights, an empty offer. Exits non-zero on the first failure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		signals, err := registry.LoadSignals(cfg.Signals.RegistryPath)
		if err != nil {
			return err
		}
		profile, err := registry.LoadProfile(cfg.Signals.ProfilePath)
		if err != nil {
			return err
		}

		disqualifiers := 0
		for _, s := range signals {
			if s.IsDisqualifier {
				disqualifiers++
			}
		}
		fmt.Printf("OK: %d signals (%d disqualifiers), profile offer %q.\n",
			len(signals), disqualifiers, truncateText(profile.Offer, 60))
		return nil
	},
}

func formatSignalsList(out io.Writer, signals []model.SignalDefinition) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRIORITY\tWEIGHT\tDISQUALIFIER")
	fmt.Fprintln(w, "--\t----\t--------\t--------\t------\t------------")
	for _, s := range signals {
		disq := ""
		if s.IsDisqualifier {
			disq = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\t%s\n",
			s.ID, truncateText(s.Name, 32), s.Category, s.Priority, s.Weight, disq)
	}
	w.Flush()
}

func init() {
	signalsCmd.AddCommand(signalsListCmd, signalsValidateCmd)
	rootCmd.AddCommand(signalsCmd)
}
