package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/config"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/pkg/anthropic"
)

const (
	maxNarrativeBullets = 8
	minNarrativeBullets = 5
	maxAngles           = 3
	maxLeadEvidence     = 5
	openerShortWords    = 35
	openerMediumWords   = 75
)

const leadSystem = `You are a B2B outreach strategist. You turn verified buying signals into concise, specific outreach material. You only state facts present in the evidence provided. You never invent names, numbers, or circumstances.`

const leadPrompt = `Write outreach material for this company based on its verified buying signals.

Seller profile:
%s

Company: %s
Domain: %s

Verified signals:
%s
Evidence:
%s
Requirements:
- why_now: one sentence explaining why outreach makes sense right now.
- narrative: %d-%d short bullets, each grounded in a cited fact from the evidence.
- angles: up to %d outreach angles, each tied to a specific signal.
- opener_short: a cold-email opener of at most %d words.
- opener_medium: a warmer opener of at most %d words.
- person_name, industry, geo: fill only when explicitly stated in the evidence; otherwise null or empty.
- Mention nothing the evidence does not support.`

const leadSchema = `{
  "why_now": "string, one sentence",
  "narrative": ["string, one evidence-backed bullet"],
  "angles": ["string, one outreach angle"],
  "opener_short": "string",
  "opener_medium": "string",
  "person_name": "string or null",
  "industry": "string or empty",
  "geo": "string or empty"
}`

type leadResponse struct {
	WhyNow       string   `json:"why_now"`
	Narrative    []string `json:"narrative"`
	Angles       []string `json:"angles"`
	OpenerShort  string   `json:"opener_short"`
	OpenerMedium string   `json:"opener_medium"`
	PersonName   *string  `json:"person_name"`
	Industry     string   `json:"industry"`
	Geo          string   `json:"geo"`
}

// GenerateLeads produces one LeadRecord per gated candidate, sequentially.
// A generation failure substitutes a deterministic minimal lead so a gated
// candidate is never dropped this late in the run. The returned strings
// describe per-candidate fallbacks.
func GenerateLeads(
	ctx context.Context,
	client anthropic.Client,
	acfg config.AnthropicConfig,
	profile model.Profile,
	scored []model.ScoredCandidate,
	runID string,
	onProgress ProgressFunc,
) ([]model.LeadRecord, anthropic.TokenUsage, []string) {
	var usage anthropic.TokenUsage
	var failures []string

	leads := make([]model.LeadRecord, 0, len(scored))
	for i, sc := range scored {
		lead, callUsage, err := generateLead(ctx, client, acfg, profile, sc, runID)
		usage.Add(callUsage)
		if err != nil {
			zap.L().Warn("lead: generation failed, using fallback",
				zap.String("domain", sc.Candidate.Domain),
				zap.Error(err),
			)
			failures = append(failures, fmt.Sprintf("lead %s: %v", sc.Candidate.Domain, err))
			lead = fallbackLead(profile, sc, runID)
		}
		leads = append(leads, lead)
		if onProgress != nil {
			onProgress("generate", i+1, len(scored))
		}
	}
	return leads, usage, failures
}

func generateLead(
	ctx context.Context,
	client anthropic.Client,
	acfg config.AnthropicConfig,
	profile model.Profile,
	sc model.ScoredCandidate,
	runID string,
) (model.LeadRecord, anthropic.TokenUsage, error) {
	positives := sc.Report.PositiveMatches()
	urls, snippets := leadEvidence(positives)

	var sigLines strings.Builder
	for _, m := range positives {
		fmt.Fprintf(&sigLines, "- %s (confidence %.2f): %s\n", m.SignalName, m.Confidence, m.Reasoning)
	}
	var evLines strings.Builder
	for i, u := range urls {
		fmt.Fprintf(&evLines, "%d. %s\n", i+1, u)
		if i < len(snippets) {
			fmt.Fprintf(&evLines, "   %s\n", snippets[i])
		}
	}

	prompt := fmt.Sprintf(leadPrompt,
		profile.Summary(),
		sc.Candidate.CompanyName, sc.Candidate.Domain,
		sigLines.String(), evLines.String(),
		minNarrativeBullets, maxNarrativeBullets, maxAngles,
		openerShortWords, openerMediumWords)

	resp, usage, err := anthropic.CompleteStructured[leadResponse](ctx, client, anthropic.MessageRequest{
		Model:       acfg.Model,
		MaxTokens:   int64(acfg.MaxTokens),
		System:      anthropic.BuildCachedSystemBlocks(leadSystem),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &acfg.Temperature,
	}, anthropic.StructuredOptions{
		SchemaName: "lead",
		Schema:     leadSchema,
		MaxRetries: acfg.StructuredRetries,
	})
	if err != nil {
		return model.LeadRecord{}, usage, err
	}

	narrative := resp.Narrative
	if len(narrative) > maxNarrativeBullets {
		narrative = narrative[:maxNarrativeBullets]
	}
	angles := resp.Angles
	if len(angles) > maxAngles {
		angles = angles[:maxAngles]
	}

	now := time.Now().UTC()
	lead := model.LeadRecord{
		ID:               uuid.NewString(),
		RunID:            runID,
		Domain:           sc.Candidate.Domain,
		CompanyName:      sc.Candidate.CompanyName,
		Score:            sc.Score,
		WhyNow:           resp.WhyNow,
		Narrative:        narrative,
		Angles:           angles,
		EvidenceURLs:     urls,
		EvidenceSnippets: snippets,
		TriggeredSignals: triggeredSignalIDs(positives),
		TargetTitles:     profile.TargetTitles,
		OpenerShort:      truncateWords(resp.OpenerShort, openerShortWords),
		OpenerMedium:     truncateWords(resp.OpenerMedium, openerMediumWords),
		PersonName:       resp.PersonName,
		Industry:         resp.Industry,
		Geo:              resp.Geo,
		Status:           model.LeadStatusNew,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return lead, usage, nil
}

// fallbackLead builds the deterministic minimal lead: a generic opener from
// the company name and its triggered signal names, no invented detail.
func fallbackLead(profile model.Profile, sc model.ScoredCandidate, runID string) model.LeadRecord {
	positives := sc.Report.PositiveMatches()
	urls, snippets := leadEvidence(positives)

	names := make([]string, 0, len(positives))
	for _, m := range positives {
		names = append(names, m.SignalName)
	}
	signalPhrase := "recent buying signals"
	if len(names) > 0 {
		signalPhrase = strings.Join(names, "; ")
	}

	now := time.Now().UTC()
	return model.LeadRecord{
		ID:          uuid.NewString(),
		RunID:       runID,
		Domain:      sc.Candidate.Domain,
		CompanyName: sc.Candidate.CompanyName,
		Score:       sc.Score,
		WhyNow:      fmt.Sprintf("%s is showing: %s.", sc.Candidate.CompanyName, signalPhrase),
		Narrative: []string{
			fmt.Sprintf("%s matched %d verified buying signals.", sc.Candidate.CompanyName, len(positives)),
		},
		EvidenceURLs:     urls,
		EvidenceSnippets: snippets,
		TriggeredSignals: triggeredSignalIDs(positives),
		TargetTitles:     profile.TargetTitles,
		OpenerShort: fmt.Sprintf("Noticed %s: %s. Worth a quick conversation?",
			sc.Candidate.CompanyName, signalPhrase),
		OpenerMedium: fmt.Sprintf("I came across %s while researching companies showing %s. That usually means priorities are shifting, and it seemed worth reaching out directly.",
			sc.Candidate.CompanyName, signalPhrase),
		Status:    model.LeadStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// leadEvidence collects distinct cited URLs and their snippets from positive
// matches, capped at maxLeadEvidence.
func leadEvidence(positives []model.SignalMatch) ([]string, []string) {
	var urls, snippets []string
	seen := make(map[string]bool)
	for _, m := range positives {
		for i, u := range m.EvidenceURLs {
			if seen[u] {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
			if i < len(m.EvidenceSnippets) {
				snippets = append(snippets, m.EvidenceSnippets[i])
			} else {
				snippets = append(snippets, "")
			}
			if len(urls) == maxLeadEvidence {
				return urls, snippets
			}
		}
	}
	return urls, snippets
}

func triggeredSignalIDs(positives []model.SignalMatch) []string {
	ids := make([]string, 0, len(positives))
	for _, m := range positives {
		ids = append(ids, m.SignalID)
	}
	return ids
}

// truncateWords cuts s to at most n words. Model output occasionally runs
// past the requested ceiling.
func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}
