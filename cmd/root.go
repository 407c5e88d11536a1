// Command signals-cli discovers companies showing timely buying signals,
// verifies every claimed signal against fetched evidence, and turns the
// survivors into scored, outreach-ready leads.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/config"
)

// cfg is loaded once in PersistentPreRunE and read by every subcommand.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "signals-cli",
	Short: "Evidence-gated buying-signal pipeline",
	Long: `signals-cli plans search queries from an ICP profile and a signal registry,
retrieves and dedups results, extracts candidate companies, gathers page
evidence, and asks an LLM to evaluate signals strictly against that evidence.
Candidates that survive citation validation and the deterministic score gate
become leads, which can be listed, exported, or pushed to a CRM.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return config.InitLogger(cfg.Log)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
