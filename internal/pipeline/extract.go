package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/config"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/pkg/anthropic"
)

const extractorSystem = `You are a precise data extraction analyst. You identify operating companies mentioned in web search results. You never guess domains: a company is only extractable when its own website domain is explicitly visible in the result URL, title, or snippet.`

const extractorPrompt = `Extract candidate companies from these search results.

Rules:
- Only extract a company when its own domain is explicitly visible. Never infer or invent a domain.
- Never extract the platform hosting the result (job boards, news sites, aggregators, social networks) as the company itself.
- The company must be an operating business, not a product, person, or publication.
- confidence: 0.9-1.0 when the result is the company's own site, 0.7-0.9 when a third-party result names the company and its domain, 0.6-0.7 when the domain is visible but context is thin. Below 0.6, skip the company entirely.
- source_url is the URL of the result the company was found in; snippet is the evidence text that names it.

Search results:
%s`

const extractSchema = `{
  "candidates": [
    {
      "company_name": "string",
      "domain": "string, bare domain like acme.com",
      "source_url": "string, the search result URL",
      "snippet": "string, the text naming the company",
      "confidence": 0.8
    }
  ]
}`

type extractResponse struct {
	Candidates []model.CandidateCompany `json:"candidates"`
}

// ExtractCandidates runs the model over deduplicated search results in fixed
// chunks and post-filters the output: domains normalized, low confidence and
// excluded domains dropped, then global dedup by domain. A failed chunk
// degrades to zero candidates for that chunk. Returns the surviving
// candidates, the raw pre-filter count, accumulated token usage, and the
// number of failed chunks.
func ExtractCandidates(
	ctx context.Context,
	client anthropic.Client,
	acfg config.AnthropicConfig,
	ecfg config.ExtractConfig,
	results []model.SearchResult,
) ([]model.CandidateCompany, int, anthropic.TokenUsage, int) {
	var (
		usage        anthropic.TokenUsage
		raw          []model.CandidateCompany
		failedChunks int
	)

	chunkSize := ecfg.ChunkSize
	if chunkSize < 1 {
		chunkSize = 20
	}

	for start := 0; start < len(results); start += chunkSize {
		end := min(start+chunkSize, len(results))
		chunk := results[start:end]

		resp, chunkUsage, err := anthropic.CompleteStructured[extractResponse](ctx, client, anthropic.MessageRequest{
			Model:     acfg.Model,
			MaxTokens: int64(acfg.MaxTokens),
			System:    anthropic.BuildCachedSystemBlocks(extractorSystem),
			Messages: []anthropic.Message{{
				Role:    "user",
				Content: fmt.Sprintf(extractorPrompt, formatResults(chunk)),
			}},
		}, anthropic.StructuredOptions{
			SchemaName: "candidates",
			Schema:     extractSchema,
			MaxRetries: acfg.StructuredRetries,
		})
		usage.Add(chunkUsage)
		if err != nil {
			failedChunks++
			zap.L().Warn("extract: chunk failed",
				zap.Int("chunk_start", start),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			continue
		}
		raw = append(raw, resp.Candidates...)
	}

	found := len(raw)
	var filtered []model.CandidateCompany
	for _, c := range raw {
		c.Domain = model.NormalizeDomain(c.Domain)
		if c.Domain == "" || !strings.Contains(c.Domain, ".") {
			continue
		}
		if c.Confidence < ecfg.MinConfidence {
			continue
		}
		if domainExcluded(c.Domain, ecfg.ExcludedDomains) {
			continue
		}
		filtered = append(filtered, c)
	}

	return model.DedupCandidates(filtered), found, usage, failedChunks
}

// formatResults renders search results as a numbered block for extraction
// prompts.
func formatResults(results []model.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. URL: %s\n   Title: %s\n   Snippet: %s\n", i+1, r.URL, r.Title, r.Snippet)
	}
	return b.String()
}

// domainExcluded reports whether domain is in the exclusion set, matching
// exactly or as a subdomain suffix.
func domainExcluded(domain string, excluded []string) bool {
	for _, ex := range excluded {
		ex = model.NormalizeDomain(ex)
		if ex == "" {
			continue
		}
		if domain == ex || strings.HasSuffix(domain, "."+ex) {
			return true
		}
	}
	return false
}
