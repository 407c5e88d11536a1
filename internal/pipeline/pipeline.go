// Package pipeline implements the evidence-gated signal pipeline: plan
// queries, retrieve and dedup results, extract candidates, gather evidence,
// evaluate signals with citation validation, gate and score, then generate
// leads. Stages degrade per unit of work; only a planner failure or a broken
// store aborts a run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/config"
	"github.com/sells-group/signals-cli/internal/cost"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/store"
	"github.com/sells-group/signals-cli/pkg/anthropic"
	"github.com/sells-group/signals-cli/pkg/jina"
	"github.com/sells-group/signals-cli/pkg/newsfeed"
)

// maxRecentDomainHints bounds how many recently-seen domains the planner
// prompt mentions.
const maxRecentDomainHints = 40

// ProgressFunc receives incremental status: the stage name, units finished,
// and total units for that stage.
type ProgressFunc func(stage string, completed, total int)

// Options select what a single run does.
type Options struct {
	// Mode is hunt (discover via search) or watch (re-evaluate fixed domains).
	Mode model.RunMode
	// Limit caps generated leads; <= 0 uses the configured default.
	Limit int
	// Domains seeds watch mode. Required there, ignored in hunt mode.
	Domains []string
	// OnProgress, when set, is called after each unit in the sequential
	// stages.
	OnProgress ProgressFunc
}

// Result is the caller-facing outcome of a run. Errors lists per-unit
// degradations that did not abort the run; a fatal problem is returned as an
// error alongside the partial Result instead.
type Result struct {
	RunID  string
	Leads  []model.LeadRecord
	Stats  model.RunStats
	Cost   model.CostSummary
	Errors []string
}

// Pipeline wires the stages to their providers. Construct with New; the
// zero value is not usable.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	search   jina.Client
	llm      anthropic.Client
	news     newsfeed.Client
	reader   PageReader
	costCalc *cost.Calculator
	signals  []model.SignalDefinition
	profile  model.Profile
}

// New assembles a Pipeline. The news client may be nil; watch mode then
// runs on template queries alone.
func New(
	cfg *config.Config,
	st store.Store,
	search jina.Client,
	llm anthropic.Client,
	news newsfeed.Client,
	reader PageReader,
	signals []model.SignalDefinition,
	profile model.Profile,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		search:   search,
		llm:      llm,
		news:     news,
		reader:   reader,
		costCalc: cost.NewCalculator(ratesFromPricing(cfg.Pricing)),
		signals:  signals,
		profile:  profile,
	}
}

// Run executes one full pipeline invocation and persists its outcome. The
// returned Result is valid even on error: RunID and whatever stats were
// collected before the failure are filled in.
func (p *Pipeline) Run(ctx context.Context, opts Options) (res *Result, err error) {
	if !opts.Mode.Valid() {
		return nil, eris.Errorf("pipeline: unknown mode %q", opts.Mode)
	}
	if opts.Mode == model.ModeWatch && len(opts.Domains) == 0 {
		return nil, eris.New("pipeline: watch mode requires at least one domain")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = p.cfg.Pipeline.DefaultLimit
	}

	run := &model.SignalRun{
		ID:        uuid.NewString(),
		Mode:      opts.Mode,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if createErr := p.store.CreateRun(ctx, run); createErr != nil {
		return nil, eris.Wrap(createErr, "pipeline: create run")
	}

	result := &Result{RunID: run.ID}

	// A stage bug must not escape as a panic: the run record still has to be
	// marked failed and the caller still gets a structured result.
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("pipeline: panic recovered", zap.Any("panic", r))
			res, err = p.failRun(ctx, run, result, eris.Errorf("panic: %v", r))
		}
	}()

	var usage anthropic.TokenUsage
	var queries []model.SearchQuery
	var candidates []model.CandidateCompany
	var newsResults []model.SearchResult

	seenWindow := time.Duration(p.cfg.Pipeline.SeenDomainTTLHours) * time.Hour

	switch opts.Mode {
	case model.ModeHunt:
		recent := p.recentDomains(ctx, seenWindow)
		plan, planUsage, planErr := PlanQueries(ctx, p.llm, p.cfg.Anthropic, p.cfg.Plan,
			p.profile, p.signals, recent)
		usage.Add(planUsage)
		if planErr != nil {
			return p.failRun(ctx, run, result, eris.Wrap(planErr, "pipeline: plan queries"))
		}
		queries = plan.Queries
	case model.ModeWatch:
		candidates, newsResults = p.buildWatchCandidates(ctx, opts.Domains)
		queries = ExpandWatchQueries(p.signals, opts.Domains)
	}

	results, searchStats, searchErr := RetrieveResults(ctx, p.search, p.cfg.Search,
		queries, p.cfg.Extract.ExcludedDomains)
	if searchErr != nil {
		return p.failRun(ctx, run, result, eris.Wrap(searchErr, "pipeline: retrieve"))
	}
	result.Stats.QueriesExecuted = searchStats.TotalQueries
	if searchStats.FailedQueries > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("search: %d of %d queries failed", searchStats.FailedQueries, searchStats.TotalQueries))
	}

	results = append(results, newsResults...)
	results = DedupResults(results)

	if opts.Mode == model.ModeHunt {
		extracted, rawFound, extractUsage, failedChunks := ExtractCandidates(ctx, p.llm,
			p.cfg.Anthropic, p.cfg.Extract, results)
		usage.Add(extractUsage)
		if failedChunks > 0 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("extract: %d result chunks failed", failedChunks))
		}
		candidates = extracted
		result.Stats.CandidatesFound = rawFound
	} else {
		candidates = model.DedupCandidates(candidates)
		result.Stats.CandidatesFound = len(opts.Domains)
	}
	result.Stats.CandidatesAfterDedup = len(candidates)

	candidates = p.filterCandidates(ctx, opts.Mode, candidates, seenWindow, &result.Stats)

	evidence, evStats, evErr := GatherEvidence(ctx, p.reader, p.cfg.Evidence,
		candidates, results, p.signals)
	if evErr != nil {
		return p.failRun(ctx, run, result, eris.Wrap(evErr, "pipeline: gather evidence"))
	}
	result.Stats.EvidenceChunksFetched = evStats.ChunksFetched

	reports, evalUsage, evalErrs := EvaluateSignals(ctx, p.llm, p.cfg.Anthropic,
		p.signals, candidates, evidence, opts.OnProgress)
	usage.Add(evalUsage)
	result.Errors = append(result.Errors, evalErrs...)
	result.Stats.SignalEvaluations = len(candidates)

	scored := make([]model.ScoredCandidate, 0, len(candidates))
	for i, cand := range candidates {
		sc := ScoreCandidate(cand, reports[i], evidence[cand.Domain], p.signals)
		switch {
		case sc.Report.Disqualified:
			result.Stats.Disqualified++
		case sc.GateFailureReason == "insufficient evidence":
			result.Stats.InsufficientEvidence++
		}
		if sc.PassesGate {
			result.Stats.LeadsPassedGate++
		}
		scored = append(scored, sc)
	}

	top := SelectTopCandidates(scored, limit)

	leads, leadUsage, leadErrs := GenerateLeads(ctx, p.llm, p.cfg.Anthropic,
		p.profile, top, run.ID, opts.OnProgress)
	usage.Add(leadUsage)
	result.Errors = append(result.Errors, leadErrs...)
	result.Stats.LeadsGenerated = len(leads)

	if saveErr := p.store.SaveLeads(ctx, leads); saveErr != nil {
		return p.failRun(ctx, run, result, eris.Wrap(saveErr, "pipeline: save leads"))
	}
	if opts.Mode == model.ModeHunt {
		for _, lead := range leads {
			if markErr := p.store.MarkDomainSeen(ctx, lead.Domain); markErr != nil {
				zap.L().Warn("pipeline: mark domain seen failed",
					zap.String("domain", lead.Domain),
					zap.Error(markErr),
				)
			}
		}
	}

	result.Cost = p.summarizeCost(usage, searchStats.TotalQueries, evStats.ReaderTokens)
	result.Leads = leads

	now := time.Now().UTC()
	run.Status = model.RunStatusComplete
	run.Stats = result.Stats
	run.Cost = result.Cost
	run.CompletedAt = &now
	if completeErr := p.store.CompleteRun(ctx, run); completeErr != nil {
		return result, eris.Wrap(completeErr, "pipeline: complete run")
	}

	zap.L().Info("pipeline: run complete",
		zap.String("run_id", run.ID),
		zap.String("mode", string(opts.Mode)),
		zap.Int("leads", len(leads)),
		zap.Int("passed_gate", result.Stats.LeadsPassedGate),
		zap.Float64("estimated_usd", result.Cost.EstimatedUSD),
	)
	return result, nil
}

// failRun marks the run record failed with the captured message and returns
// the partial result. A store failure here is logged, not compounded.
func (p *Pipeline) failRun(ctx context.Context, run *model.SignalRun, result *Result, cause error) (*Result, error) {
	now := time.Now().UTC()
	run.Status = model.RunStatusFailed
	run.Error = cause.Error()
	run.Stats = result.Stats
	run.CompletedAt = &now
	if err := p.store.CompleteRun(ctx, run); err != nil {
		zap.L().Warn("pipeline: mark run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
	return result, cause
}

// recentDomains lists domains seen within the cooldown window, newest first,
// for the planner's exclusion hints. Degrades to none on store error.
func (p *Pipeline) recentDomains(ctx context.Context, within time.Duration) []string {
	if within <= 0 {
		return nil
	}
	seen, err := p.store.ListSeenDomains(ctx, within)
	if err != nil {
		zap.L().Warn("pipeline: list seen domains failed", zap.Error(err))
		return nil
	}
	domains := make([]string, 0, len(seen))
	for _, s := range seen {
		domains = append(domains, s.Domain)
		if len(domains) == maxRecentDomainHints {
			break
		}
	}
	return domains
}

// buildWatchCandidates turns the watched domain list into candidates. Each
// domain's top news item, when available, becomes the candidate's source so
// the evidence stage has a fetchable page; all items join the search results
// for the merge.
func (p *Pipeline) buildWatchCandidates(ctx context.Context, domains []string) ([]model.CandidateCompany, []model.SearchResult) {
	var candidates []model.CandidateCompany
	var extra []model.SearchResult

	for _, d := range domains {
		domain := model.NormalizeDomain(d)
		if domain == "" {
			continue
		}
		cand := model.CandidateCompany{
			CompanyName: CompanyNameFromDomain(domain),
			Domain:      domain,
			Confidence:  1.0,
		}
		if p.news != nil {
			items, err := p.news.CompanyNews(ctx, cand.CompanyName)
			switch {
			case err != nil:
				zap.L().Debug("watch: news lookup failed",
					zap.String("domain", domain),
					zap.Error(err),
				)
			case len(items) > 0:
				cand.SourceURL = items[0].URL
				cand.Snippet = items[0].Snippet
				extra = append(extra, newsToResults(items)...)
			}
		}
		candidates = append(candidates, cand)
	}
	return candidates, extra
}

// filterCandidates drops do-not-contact domains in every mode and, in hunt
// mode, domains seen within the cooldown window. A store error on a lookup
// keeps the candidate: losing one lookup must not discard a lead.
func (p *Pipeline) filterCandidates(
	ctx context.Context,
	mode model.RunMode,
	candidates []model.CandidateCompany,
	seenWindow time.Duration,
	stats *model.RunStats,
) []model.CandidateCompany {
	kept := candidates[:0]
	for _, cand := range candidates {
		dnc, err := p.store.IsDNC(ctx, cand.Domain)
		if err != nil {
			zap.L().Warn("pipeline: dnc lookup failed", zap.String("domain", cand.Domain), zap.Error(err))
		}
		if dnc {
			stats.DuplicatesSkipped++
			continue
		}
		if mode == model.ModeHunt && seenWindow > 0 {
			seen, seenErr := p.store.WasDomainSeen(ctx, cand.Domain, seenWindow)
			if seenErr != nil {
				zap.L().Warn("pipeline: seen lookup failed", zap.String("domain", cand.Domain), zap.Error(seenErr))
			}
			if seen {
				stats.DuplicatesSkipped++
				continue
			}
		}
		kept = append(kept, cand)
	}
	return kept
}

// summarizeCost folds token usage, search volume, and metered reader
// consumption into the run's cost record.
func (p *Pipeline) summarizeCost(usage anthropic.TokenUsage, searchQueries, readerTokens int) model.CostSummary {
	llmCost := p.costCalc.Claude(p.cfg.Anthropic.Model,
		int(usage.InputTokens), int(usage.OutputTokens),
		int(usage.CacheCreationInputTokens), int(usage.CacheReadInputTokens))
	return model.CostSummary{
		InputTokens:   int(usage.InputTokens),
		OutputTokens:  int(usage.OutputTokens),
		SearchQueries: searchQueries,
		ReaderTokens:  readerTokens,
		EstimatedUSD:  llmCost + p.costCalc.Search(searchQueries) + p.costCalc.JinaRead(readerTokens),
	}
}

// ratesFromPricing converts configured pricing into calculator rates,
// falling back to the built-in defaults when no overrides are set. Cache
// multipliers are not user-configurable.
func ratesFromPricing(pricing config.PricingConfig) cost.Rates {
	rates := cost.DefaultRates()
	for m, mp := range pricing.Anthropic {
		rates.Anthropic[m] = cost.ModelRate{
			Input: mp.Input, Output: mp.Output,
			CacheWriteMul: 1.25, CacheReadMul: 0.1,
		}
	}
	if pricing.Jina.PerQuery > 0 {
		rates.Jina.PerQuery = pricing.Jina.PerQuery
	}
	if pricing.Jina.PerMTok > 0 {
		rates.Jina.PerMTok = pricing.Jina.PerMTok
	}
	return rates
}
