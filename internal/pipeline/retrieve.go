package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/batch"
	"github.com/sells-group/signals-cli/internal/config"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/pkg/jina"
	"github.com/sells-group/signals-cli/pkg/newsfeed"
)

// RetrieveResults executes the query list with bounded concurrency. A failed
// query is logged and counted, never aborts the pass. The returned slice is
// raw (not yet deduplicated) so a caller can merge supplemental sources
// before calling DedupResults.
func RetrieveResults(
	ctx context.Context,
	client jina.Client,
	cfg config.SearchConfig,
	queries []model.SearchQuery,
	excludeDomains []string,
) ([]model.SearchResult, model.SearchStats, error) {
	stats := model.SearchStats{TotalQueries: len(queries)}
	if len(queries) == 0 {
		return nil, stats, nil
	}

	perQuery := make([][]model.SearchResult, len(queries))
	errs, err := batch.Run(ctx, batch.Config{
		Concurrency: cfg.Concurrency,
		Delay:       time.Duration(cfg.BatchDelayMs) * time.Millisecond,
	}, queries, func(ctx context.Context, idx int, q model.SearchQuery) error {
		resp, searchErr := client.Search(ctx, q.Query,
			jina.WithMaxResults(cfg.MaxResultsPerQuery),
			jina.WithExcludeDomains(excludeDomains),
		)
		if searchErr != nil {
			zap.L().Warn("retrieve: query failed",
				zap.String("query", q.Query),
				zap.Error(searchErr),
			)
			return searchErr
		}
		for _, r := range resp.Data {
			snippet := r.Description
			if snippet == "" {
				snippet = r.Content
			}
			perQuery[idx] = append(perQuery[idx], model.SearchResult{
				URL:     r.URL,
				Title:   r.Title,
				Snippet: snippet,
			})
		}
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	var results []model.SearchResult
	for _, rs := range perQuery {
		results = append(results, rs...)
	}
	stats.FailedQueries = batch.Failed(errs)
	stats.SuccessfulQueries = stats.TotalQueries - stats.FailedQueries
	stats.TotalResults = len(results)
	return results, stats, nil
}

// DedupResults collapses results by normalized URL, keeping the first
// occurrence. Idempotent: deduping an already-deduped list is a no-op.
func DedupResults(results []model.SearchResult) []model.SearchResult {
	seen := make(map[string]bool, len(results))
	var out []model.SearchResult
	for _, r := range results {
		key := model.NormalizeURL(r.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// newsToResults converts feed items to search results for the watch-mode
// merge.
func newsToResults(items []newsfeed.Item) []model.SearchResult {
	results := make([]model.SearchResult, 0, len(items))
	for _, it := range items {
		results = append(results, model.SearchResult{
			URL:     it.URL,
			Title:   it.Title,
			Snippet: it.Snippet,
		})
	}
	return results
}
