package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/signals-cli/internal/export"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/store"
)

var (
	exportOut      string
	exportFormat   string
	exportRunID    string
	exportStatus   string
	exportMinScore float64
	exportLimit    int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored leads to a CSV, JSON, or XLSX file",
	Long: `Exports leads matching the given filters to a file. The format is taken
from --format when set, otherwise inferred from the output file extension.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var format export.Format
		if exportFormat != "" {
			f, err := export.ParseFormat(exportFormat)
			if err != nil {
				return err
			}
			format = f
		}
		if exportStatus != "" && !model.LeadStatus(exportStatus).Valid() {
			return eris.Errorf("invalid lead status %q", exportStatus)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			RunID:    exportRunID,
			Status:   model.LeadStatus(exportStatus),
			MinScore: exportMinScore,
			Limit:    exportLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list leads")
		}
		if len(leads) == 0 {
			fmt.Println("No leads matched the filter; nothing written.")
			return nil
		}

		if err := export.WriteFile(exportOut, format, leads); err != nil {
			return err
		}
		fmt.Printf("Wrote %d leads to %s.\n", len(leads), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (required)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "csv, json, or xlsx (default: inferred from --out)")
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "only leads from this run")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "only leads with this status")
	exportCmd.Flags().Float64Var(&exportMinScore, "min-score", 0, "minimum score")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "max leads to export (0 uses the store default)")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
