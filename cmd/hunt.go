package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/pipeline"
)

var (
	huntLimit int
	huntJSON  bool
)

var huntCmd = &cobra.Command{
	Use:   "hunt",
	Short: "Discover new companies showing buying signals",
	Long: `Runs the full discovery pipeline: plan queries from the ICP profile and
signal registry, search, dedup against seen domains and the DNC list,
extract candidates, gather evidence, evaluate signals, and store the leads
that pass the score gate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, pipeline.Options{
			Mode:       model.ModeHunt,
			Limit:      huntLimit,
			OnProgress: progressPrinter(os.Stderr),
		})
		if err != nil {
			return eris.Wrap(err, "hunt run")
		}

		zap.L().Info("hunt complete",
			zap.String("run_id", result.RunID),
			zap.Int("leads", len(result.Leads)),
			zap.Float64("cost_usd", result.Cost.EstimatedUSD),
		)

		if huntJSON {
			return writeResultJSON(os.Stdout, result)
		}
		formatRunResult(os.Stdout, result)
		return nil
	},
}

func init() {
	huntCmd.Flags().IntVar(&huntLimit, "limit", 0, "max leads to generate (0 uses pipeline.default_limit)")
	huntCmd.Flags().BoolVar(&huntJSON, "json", false, "print the full run result as JSON")
	rootCmd.AddCommand(huntCmd)
}
