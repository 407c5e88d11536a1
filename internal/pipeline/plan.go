package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/signals-cli/internal/config"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/pkg/anthropic"
)

const plannerSystem = `You are a B2B sales research strategist. You design web search queries that surface companies currently exhibiting buying signals. You know which phrasing finds job posts, funding announcements, press releases, and expansion news.`

const plannerPrompt = `Design a search query plan for finding companies that match this profile and currently show buying signals.

Ideal customer profile:
%s

Buying signals to surface (id, priority, question):
%s
%s
Requirements:
- Produce between %d and %d queries.
- Each query targets one or two signal ids from the list above.
- Vary phrasing: job-board style, press-release style, news style, and plain keyword queries.
- Prefer queries likely to reveal a company domain in the result snippet.
- Set expected_source_types per query from: job_post, press_release, sec_filing, blog, news, company_site, other.
- One short rationale per query.`

const queryPlanSchema = `{
  "queries": [
    {
      "query": "string, the search engine query text",
      "target_signals": ["signal id"],
      "expected_source_types": ["job_post"],
      "rationale": "string, one sentence"
    }
  ],
  "icp_summary": "string, one-paragraph restatement of the profile",
  "signal_summary": "string, one-paragraph summary of the signal set"
}`

// PlanQueries asks the model for a hunt-mode search plan. The query count is
// clamped to the configured maximum; a plan below the minimum is accepted
// with a warning rather than re-asked, since the structured provider already
// retried malformed shapes.
func PlanQueries(
	ctx context.Context,
	client anthropic.Client,
	acfg config.AnthropicConfig,
	bounds config.PlanConfig,
	profile model.Profile,
	signals []model.SignalDefinition,
	recentDomains []string,
) (*model.QueryPlan, anthropic.TokenUsage, error) {
	scoring := model.NonDisqualifiers(signals)

	var sigLines strings.Builder
	for _, s := range scoring {
		fmt.Fprintf(&sigLines, "- %s (%s): %s\n", s.ID, s.Priority, s.Question)
	}

	exclusions := ""
	if len(recentDomains) > 0 {
		exclusions = fmt.Sprintf("\nRecently covered domains; bias queries away from resurfacing them:\n%s\n",
			strings.Join(recentDomains, ", "))
	}

	prompt := fmt.Sprintf(plannerPrompt,
		profile.Summary(), sigLines.String(), exclusions,
		bounds.MinQueries, bounds.MaxQueries)

	plan, usage, err := anthropic.CompleteStructured[model.QueryPlan](ctx, client, anthropic.MessageRequest{
		Model:     acfg.Model,
		MaxTokens: int64(acfg.MaxTokens),
		System:    []anthropic.SystemBlock{{Text: plannerSystem}},
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	}, anthropic.StructuredOptions{
		SchemaName: "query_plan",
		Schema:     queryPlanSchema,
		MaxRetries: acfg.StructuredRetries,
	})
	if err != nil {
		return nil, usage, err
	}

	// Drop empty queries, then clamp to the configured ceiling.
	kept := plan.Queries[:0]
	for _, q := range plan.Queries {
		if strings.TrimSpace(q.Query) != "" {
			kept = append(kept, q)
		}
	}
	plan.Queries = kept
	if len(plan.Queries) > bounds.MaxQueries {
		plan.Queries = plan.Queries[:bounds.MaxQueries]
	}
	if len(plan.Queries) < bounds.MinQueries {
		zap.L().Warn("plan: model returned fewer queries than requested",
			zap.Int("got", len(plan.Queries)),
			zap.Int("min", bounds.MinQueries),
		)
	}
	return plan, usage, nil
}

// watchSourceTypes maps a signal category to the source types its template
// queries are expected to surface.
var watchSourceTypes = map[string][]string{
	"hiring":  {"job_post"},
	"funding": {"press_release", "news"},
	"growth":  {"news"},
	"people":  {"news"},
	"product": {"blog", "press_release"},
}

// ExpandWatchQueries builds the watch-mode query list deterministically:
// every signal query template expanded against every watched domain. No
// model call is involved.
func ExpandWatchQueries(signals []model.SignalDefinition, domains []string) []model.SearchQuery {
	var queries []model.SearchQuery
	for _, domain := range domains {
		domain = model.NormalizeDomain(domain)
		if domain == "" {
			continue
		}
		company := CompanyNameFromDomain(domain)
		for _, sig := range signals {
			for _, tmpl := range sig.QueryTemplates {
				queries = append(queries, model.SearchQuery{
					Query:               sig.ExpandTemplate(tmpl, company, domain),
					TargetSignals:       []string{sig.ID},
					ExpectedSourceTypes: watchSourceTypes[sig.Category],
					Rationale:           fmt.Sprintf("watch %s for %s", domain, sig.Name),
				})
			}
		}
	}
	return queries
}

// CompanyNameFromDomain derives a display name from a bare domain:
// "acme-robotics.com" becomes "Acme Robotics". Best-effort only; used when
// no extracted company name is available.
func CompanyNameFromDomain(domain string) string {
	label := model.NormalizeDomain(domain)
	if i := strings.IndexByte(label, '.'); i > 0 {
		label = label[:i]
	}
	label = strings.NewReplacer("-", " ", "_", " ").Replace(label)
	return cases.Title(language.English).String(label)
}
