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

const evaluatorSystem = `You are a rigorous B2B sales signal analyst. You judge whether a company exhibits specific buying signals based strictly on the evidence provided. You never assert a signal without evidence that explicitly supports it. When the evidence is ambiguous or silent, you answer "unknown".`

const evaluatorPrompt = `Evaluate the buying signals below for this company, using only the evidence provided.

Company: %s
Domain: %s

Evidence:
%s
Signals to evaluate:
%s
Rules:
- result is "yes" only when at least one evidence URL explicitly supports the signal. Cite those URLs in evidence_urls and quote the supporting text in evidence_snippets.
- result is "no" only when evidence explicitly contradicts the signal.
- result is "unknown" whenever the evidence does not settle the question. Prefer "unknown" over guessing.
- confidence is 0.0-1.0 and reflects how strongly the cited evidence supports the result.
- evidence_urls may only contain URLs that appear in the evidence above.
- Return one entry per signal id, in any order.`

const signalMatchSchema = `{
  "matches": [
    {
      "signal_id": "string, one of the listed signal ids",
      "signal_name": "string",
      "result": "yes | no | unknown",
      "confidence": 0.0,
      "evidence_urls": ["url from the evidence list"],
      "evidence_snippets": ["verbatim supporting text"],
      "reasoning": "string, one or two sentences"
    }
  ]
}`

// demotionMarker is appended to the reasoning of a demoted match so the
// validation outcome stays visible downstream.
const demotionMarker = "[demoted: cited evidence not in fetched set]"

type evalResponse struct {
	Matches []model.SignalMatch `json:"matches"`
}

// EvaluateSignals runs the model over each candidate's evidence and returns
// one validated report per candidate. Candidates are evaluated sequentially:
// per-call cost and stable ordering matter more than latency here. A failed
// evaluation degrades to an all-unknown report instead of aborting the
// batch. The returned strings describe per-candidate failures.
func EvaluateSignals(
	ctx context.Context,
	client anthropic.Client,
	acfg config.AnthropicConfig,
	signals []model.SignalDefinition,
	candidates []model.CandidateCompany,
	evidence map[string][]model.EvidenceChunk,
	onProgress ProgressFunc,
) ([]model.SignalMatchReport, anthropic.TokenUsage, []string) {
	var usage anthropic.TokenUsage
	var failures []string

	reports := make([]model.SignalMatchReport, 0, len(candidates))
	for i, cand := range candidates {
		chunks := evidence[cand.Domain]

		report, callUsage, err := evaluateCandidate(ctx, client, acfg, signals, cand, chunks)
		usage.Add(callUsage)
		if err != nil {
			zap.L().Warn("evaluate: candidate failed, falling back to all-unknown",
				zap.String("domain", cand.Domain),
				zap.Error(err),
			)
			failures = append(failures, fmt.Sprintf("evaluate %s: %v", cand.Domain, err))
			report = fallbackReport(cand, signals, "evaluation failed")
		}

		demoted := ValidateCitations(report, model.ChunkURLSet(chunks))
		if demoted > 0 {
			zap.L().Warn("evaluate: demoted matches with invalid citations",
				zap.String("domain", cand.Domain),
				zap.Int("demoted", demoted),
			)
		}
		RecomputeReport(report, signals)

		reports = append(reports, *report)
		if onProgress != nil {
			onProgress("evaluate", i+1, len(candidates))
		}
	}
	return reports, usage, failures
}

// evaluateCandidate makes one model call and normalizes its matches against
// the signal definitions. Candidates with no evidence skip the call: with
// nothing to cite, every signal is unknown by construction.
func evaluateCandidate(
	ctx context.Context,
	client anthropic.Client,
	acfg config.AnthropicConfig,
	signals []model.SignalDefinition,
	cand model.CandidateCompany,
	chunks []model.EvidenceChunk,
) (*model.SignalMatchReport, anthropic.TokenUsage, error) {
	var usage anthropic.TokenUsage
	if len(chunks) == 0 {
		return fallbackReport(cand, signals, "no evidence gathered"), usage, nil
	}

	prompt := fmt.Sprintf(evaluatorPrompt,
		cand.CompanyName, cand.Domain,
		formatEvidence(chunks), formatSignalBlock(signals))

	resp, callUsage, err := anthropic.CompleteStructured[evalResponse](ctx, client, anthropic.MessageRequest{
		Model:       acfg.Model,
		MaxTokens:   int64(acfg.MaxTokens),
		System:      anthropic.BuildCachedSystemBlocks(evaluatorSystem),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &acfg.Temperature,
	}, anthropic.StructuredOptions{
		SchemaName: "signal_matches",
		Schema:     signalMatchSchema,
		MaxRetries: acfg.StructuredRetries,
	})
	usage.Add(callUsage)
	if err != nil {
		return nil, usage, err
	}

	report := &model.SignalMatchReport{
		Domain:      cand.Domain,
		CompanyName: cand.CompanyName,
		Matches:     normalizeMatches(resp.Matches, signals),
	}
	return report, usage, nil
}

// normalizeMatches reconciles the model's matches against the definitions:
// exactly one match per signal, names taken from the registry, verdicts and
// confidences clamped to their domains. Matches for unlisted signal ids are
// dropped.
func normalizeMatches(raw []model.SignalMatch, signals []model.SignalDefinition) []model.SignalMatch {
	byID := make(map[string]model.SignalMatch, len(raw))
	for _, m := range raw {
		if _, dup := byID[m.SignalID]; dup {
			continue
		}
		byID[m.SignalID] = m
	}

	out := make([]model.SignalMatch, 0, len(signals))
	for _, def := range signals {
		m, ok := byID[def.ID]
		if !ok {
			out = append(out, unknownMatch(def, "not addressed by evaluator"))
			continue
		}
		m.SignalName = def.Name
		switch m.Result {
		case model.ResultYes, model.ResultNo, model.ResultUnknown:
		default:
			m.Result = model.ResultUnknown
		}
		if m.Confidence < 0 {
			m.Confidence = 0
		}
		if m.Confidence > 1 {
			m.Confidence = 1
		}
		out = append(out, m)
	}
	return out
}

// ValidateCitations enforces the anti-hallucination rule: a yes-verdict must
// cite at least one URL, and every cited URL must exist in the fetched
// evidence set for the domain. Violating matches are demoted in place to
// unknown with confidence 0 and citations cleared. Returns the number of
// demotions.
func ValidateCitations(report *model.SignalMatchReport, fetched map[string]bool) int {
	demoted := 0
	for i := range report.Matches {
		m := &report.Matches[i]
		if m.Result != model.ResultYes {
			continue
		}
		valid := len(m.EvidenceURLs) > 0
		for _, u := range m.EvidenceURLs {
			if !fetched[u] {
				valid = false
				break
			}
		}
		if valid {
			continue
		}
		m.Result = model.ResultUnknown
		m.Confidence = 0
		m.EvidenceURLs = nil
		m.EvidenceSnippets = nil
		m.Reasoning = strings.TrimSpace(m.Reasoning + " " + demotionMarker)
		demoted++
	}
	return demoted
}

// RecomputeReport derives the aggregate fields from the validated matches:
// overall confidence is the mean over positive matches (never the model's
// self-reported number), and disqualification follows from any positive
// disqualifier signal.
func RecomputeReport(report *model.SignalMatchReport, signals []model.SignalDefinition) {
	positives := report.PositiveMatches()

	report.OverallConfidence = 0
	if len(positives) > 0 {
		sum := 0.0
		for _, m := range positives {
			sum += m.Confidence
		}
		report.OverallConfidence = sum / float64(len(positives))
	}

	report.Disqualified = false
	report.DisqualifierReason = ""
	for _, m := range positives {
		def := model.FindSignal(signals, m.SignalID)
		if def != nil && def.IsDisqualifier {
			report.Disqualified = true
			report.DisqualifierReason = def.Name
			break
		}
	}
}

// fallbackReport is the degraded all-unknown report used when evaluation
// cannot produce a judgment.
func fallbackReport(cand model.CandidateCompany, signals []model.SignalDefinition, reason string) *model.SignalMatchReport {
	matches := make([]model.SignalMatch, 0, len(signals))
	for _, def := range signals {
		matches = append(matches, unknownMatch(def, reason))
	}
	return &model.SignalMatchReport{
		Domain:      cand.Domain,
		CompanyName: cand.CompanyName,
		Matches:     matches,
	}
}

func unknownMatch(def model.SignalDefinition, reason string) model.SignalMatch {
	return model.SignalMatch{
		SignalID:   def.ID,
		SignalName: def.Name,
		Result:     model.ResultUnknown,
		Reasoning:  reason,
	}
}

// formatEvidence renders chunks as a numbered list the evaluator can cite.
func formatEvidence(chunks []model.EvidenceChunk) string {
	var sb strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&sb, "%d. URL: %s\n   Source type: %s\n   Title: %s\n   Excerpt: %s\n",
			i+1, c.URL, c.SourceType, c.Title, c.Snippet)
	}
	return sb.String()
}

// formatSignalBlock lists scoring signals first and disqualifiers last, the
// order the evaluator should consider them in.
func formatSignalBlock(signals []model.SignalDefinition) string {
	var scoring, disq []model.SignalDefinition
	for _, s := range signals {
		if s.IsDisqualifier {
			disq = append(disq, s)
		} else {
			scoring = append(scoring, s)
		}
	}

	var sb strings.Builder
	for _, s := range scoring {
		fmt.Fprintf(&sb, "- %s (%s priority): %s\n", s.ID, s.Priority, s.Question)
	}
	if len(disq) > 0 {
		sb.WriteString("\nDisqualifiers (a yes here rules the company out):\n")
		for _, s := range disq {
			fmt.Fprintf(&sb, "- %s: %s\n", s.ID, s.Question)
		}
	}
	return sb.String()
}
