package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sells-group/signals-cli/internal/pipeline"
)

// progressPrinter returns a ProgressFunc that rewrites a single status line
// per stage and finishes it when the stage completes.
func progressPrinter(w io.Writer) pipeline.ProgressFunc {
	return func(stage string, completed, total int) {
		fmt.Fprintf(w, "\r%-10s %d/%d", stage, completed, total)
		if completed >= total {
			fmt.Fprintln(w)
		}
	}
}

func writeResultJSON(w io.Writer, result *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// formatRunResult writes a human-readable summary of a finished run.
func formatRunResult(out io.Writer, result *pipeline.Result) {
	fmt.Fprintf(out, "Run %s\n\n", result.RunID)

	s := result.Stats
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Queries executed:\t%d\n", s.QueriesExecuted)
	fmt.Fprintf(w, "Candidates found:\t%d\n", s.CandidatesFound)
	fmt.Fprintf(w, "After dedup:\t%d\n", s.CandidatesAfterDedup)
	fmt.Fprintf(w, "Evidence chunks:\t%d\n", s.EvidenceChunksFetched)
	fmt.Fprintf(w, "Evaluated:\t%d\n", s.SignalEvaluations)
	fmt.Fprintf(w, "Insufficient evidence:\t%d\n", s.InsufficientEvidence)
	fmt.Fprintf(w, "Disqualified:\t%d\n", s.Disqualified)
	fmt.Fprintf(w, "Duplicates skipped:\t%d\n", s.DuplicatesSkipped)
	fmt.Fprintf(w, "Passed gate:\t%d\n", s.LeadsPassedGate)
	fmt.Fprintf(w, "Leads generated:\t%d\n", s.LeadsGenerated)
	costLine := fmt.Sprintf("$%.4f (%d in / %d out tokens, %d searches",
		result.Cost.EstimatedUSD, result.Cost.InputTokens,
		result.Cost.OutputTokens, result.Cost.SearchQueries)
	if result.Cost.ReaderTokens > 0 {
		costLine += fmt.Sprintf(", %d reader tokens", result.Cost.ReaderTokens)
	}
	fmt.Fprintf(w, "Cost:\t%s)\n", costLine)
	w.Flush()

	if len(result.Leads) > 0 {
		fmt.Fprintln(out)
		formatLeadsList(out, result.Leads)
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "\n%d unit(s) degraded:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  - %s\n", e)
		}
	}
}
