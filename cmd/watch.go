package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/pipeline"
)

var (
	watchDomains     []string
	watchDomainsFile string
	watchLimit       int
	watchJSON        bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-evaluate signals for known domains",
	Long: `Runs the signal pipeline against a fixed list of domains instead of
discovering new ones. Watch mode skips search planning, seeds evidence
gathering directly from the given domains, and supplements it with recent
news when the newsfeed is enabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		domains, err := collectWatchDomains(watchDomains, watchDomainsFile)
		if err != nil {
			return err
		}
		if len(domains) == 0 {
			return eris.New("watch requires at least one domain (--domains or --domains-file)")
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, pipeline.Options{
			Mode:       model.ModeWatch,
			Limit:      watchLimit,
			Domains:    domains,
			OnProgress: progressPrinter(os.Stderr),
		})
		if err != nil {
			return eris.Wrap(err, "watch run")
		}

		zap.L().Info("watch complete",
			zap.String("run_id", result.RunID),
			zap.Int("domains", len(domains)),
			zap.Int("leads", len(result.Leads)),
		)

		if watchJSON {
			return writeResultJSON(os.Stdout, result)
		}
		formatRunResult(os.Stdout, result)
		return nil
	},
}

// collectWatchDomains merges the flag list with an optional file of one
// domain per line. Blank lines and # comments are skipped; entries are
// normalized and deduped, preserving first-seen order.
func collectWatchDomains(flagged []string, path string) ([]string, error) {
	raw := append([]string{}, flagged...)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read domains file %s", path)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			raw = append(raw, line)
		}
	}

	seen := make(map[string]bool, len(raw))
	var out []string
	for _, d := range raw {
		norm := model.NormalizeDomain(d)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	return out, nil
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchDomains, "domains", nil, "comma-separated domains to watch")
	watchCmd.Flags().StringVar(&watchDomainsFile, "domains-file", "", "file with one domain per line")
	watchCmd.Flags().IntVar(&watchLimit, "limit", 0, "max leads to generate (0 uses pipeline.default_limit)")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "print the full run result as JSON")
	rootCmd.AddCommand(watchCmd)
}
