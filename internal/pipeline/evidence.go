package pipeline

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/batch"
	"github.com/sells-group/signals-cli/internal/config"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/resilience"
	"github.com/sells-group/signals-cli/internal/scrape"
)

const (
	minSentenceChars = 50
	maxSentenceChars = 500
	maxPageSentences = 3
)

// PageReader fetches one URL and reduces it to readable text. Satisfied by
// the scrape chain.
type PageReader interface {
	Read(ctx context.Context, url string) (*scrape.Page, error)
}

// EvidenceStats counts what the gather stage produced and consumed.
// ReaderTokens is metered-reader billing, summed across all fetches.
type EvidenceStats struct {
	ChunksFetched int
	ReaderTokens  int
}

// GatherEvidence collects evidence chunks per candidate domain: one chunk
// from each matching search snippet, plus sentences from best-effort page
// fetches. Page failures downgrade to snippet-only evidence. Chunks are
// hash-deduplicated per domain.
func GatherEvidence(
	ctx context.Context,
	reader PageReader,
	cfg config.EvidenceConfig,
	candidates []model.CandidateCompany,
	results []model.SearchResult,
	signals []model.SignalDefinition,
) (map[string][]model.EvidenceChunk, EvidenceStats, error) {
	evidence := make(map[string][]model.EvidenceChunk, len(candidates))
	var stats EvidenceStats
	if len(candidates) == 0 {
		return evidence, stats, nil
	}

	keywords := signalKeywords(signals)
	perCandidate := make([][]model.EvidenceChunk, len(candidates))
	perTokens := make([]int, len(candidates))

	_, err := batch.Run(ctx, batch.Config{
		Concurrency: cfg.Concurrency,
		Delay:       time.Duration(cfg.BatchDelayMs) * time.Millisecond,
	}, candidates, func(ctx context.Context, idx int, cand model.CandidateCompany) error {
		perCandidate[idx], perTokens[idx] = gatherDomainEvidence(ctx, reader, cfg, cand, results, keywords)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	for i, cand := range candidates {
		evidence[cand.Domain] = perCandidate[i]
		stats.ChunksFetched += len(perCandidate[i])
		stats.ReaderTokens += perTokens[i]
	}
	return evidence, stats, nil
}

// gatherDomainEvidence builds the chunk list for a single candidate and
// reports the reader tokens its fetches consumed.
func gatherDomainEvidence(
	ctx context.Context,
	reader PageReader,
	cfg config.EvidenceConfig,
	cand model.CandidateCompany,
	results []model.SearchResult,
	keywords []string,
) ([]model.EvidenceChunk, int) {
	sources := candidateSources(cand, results, cfg.MaxSourcesPerDomain)

	var chunks []model.EvidenceChunk
	seen := make(map[string]bool)
	add := func(c model.EvidenceChunk) {
		if seen[c.Hash] {
			return
		}
		seen[c.Hash] = true
		chunks = append(chunks, c)
	}

	tokens := 0
	now := time.Now().UTC()
	for _, src := range sources {
		sourceType := ClassifySourceType(src.URL, src.Title, cand.Domain)

		if snippet := strings.TrimSpace(src.Snippet); len(snippet) >= cfg.MinSnippetChars {
			add(model.NewEvidenceChunk(src.URL, src.Title, snippet, sourceType, now))
		}

		page, err := fetchPage(ctx, reader, cfg, src.URL)
		if err != nil {
			zap.L().Debug("evidence: page fetch failed",
				zap.String("url", src.URL),
				zap.Error(err),
			)
			continue
		}
		tokens += page.ReaderTokens
		content := page.Content
		if cfg.MaxContentBytes > 0 && len(content) > cfg.MaxContentBytes {
			content = content[:cfg.MaxContentBytes]
		}
		title := page.Title
		if title == "" {
			title = src.Title
		}
		for _, sentence := range relevantSentences(content, keywords) {
			add(model.NewEvidenceChunk(src.URL, title, sentence, sourceType, now))
		}
	}
	return chunks, tokens
}

// candidateSources selects the URLs to gather evidence from: every search
// result whose host matches the candidate domain, plus the candidate's own
// source URL if absent, capped at maxSources.
func candidateSources(cand model.CandidateCompany, results []model.SearchResult, maxSources int) []model.SearchResult {
	if maxSources < 1 {
		maxSources = 5
	}

	var sources []model.SearchResult
	seen := make(map[string]bool)
	for _, r := range results {
		if !model.HostMatchesDomain(r.URL, cand.Domain) {
			continue
		}
		key := model.NormalizeURL(r.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		sources = append(sources, r)
	}

	if cand.SourceURL != "" && !seen[model.NormalizeURL(cand.SourceURL)] {
		sources = append(sources, model.SearchResult{
			URL:     cand.SourceURL,
			Title:   cand.CompanyName,
			Snippet: cand.Snippet,
		})
	}

	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}
	return sources
}

// fetchPage reads a URL through the scrape chain with a bounded timeout.
// Only transient failures (timeouts, resets, retryable statuses) are
// retried; a hard block or 404 fails straight through so paid fallback
// readers are not hammered for nothing.
func fetchPage(ctx context.Context, reader PageReader, cfg config.EvidenceConfig, url string) (*scrape.Page, error) {
	timeout := time.Duration(cfg.FetchTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return resilience.DoVal(ctx, resilience.RetryConfig{
		MaxAttempts:    cfg.FetchRetries + 1,
		InitialBackoff: time.Duration(cfg.RetryBackoffMs) * time.Millisecond,
		OnRetry:        resilience.RetryLogger("scrape", url),
	}, func(ctx context.Context) (*scrape.Page, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return reader.Read(fetchCtx, url)
	})
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]\s+`)

// relevantSentences extracts up to three meaningful sentences from page
// text, preferring those mentioning signal keywords. Sentences outside the
// 50-500 character window are ignored; when nothing matches a keyword the
// first qualifying sentence is kept so a successful fetch still contributes
// evidence.
func relevantSentences(content string, keywords []string) []string {
	parts := sentenceSplitRe.Split(content, -1)

	type scored struct {
		text  string
		score int
		order int
	}
	var qualifying []scored
	for i, p := range parts {
		s := strings.TrimSpace(p)
		if len(s) < minSentenceChars || len(s) > maxSentenceChars {
			continue
		}
		lower := strings.ToLower(s)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		qualifying = append(qualifying, scored{text: s, score: score, order: i})
	}
	if len(qualifying) == 0 {
		return nil
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].score > qualifying[j].score
	})

	var out []string
	for _, q := range qualifying {
		if len(out) > 0 && q.score == 0 {
			break
		}
		out = append(out, q.text)
		if len(out) == maxPageSentences {
			break
		}
	}
	return out
}

// signalKeywords derives the relevance vocabulary from signal names and
// categories plus a small built-in core.
func signalKeywords(signals []model.SignalDefinition) []string {
	base := []string{
		"hiring", "job", "career", "funding", "raised", "series",
		"investment", "expansion", "office", "launch", "appoint",
		"executive", "growth", "acquisition", "partnership",
	}
	seen := make(map[string]bool, len(base))
	out := make([]string, 0, len(base))
	for _, w := range base {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	addWord := func(w string) {
		w = strings.ToLower(strings.TrimSpace(w))
		if len(w) < 4 || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}
	for _, s := range signals {
		addWord(s.Category)
		for _, w := range strings.Fields(s.Name) {
			addWord(w)
		}
	}
	return out
}
