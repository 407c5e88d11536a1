package pipeline

import (
	"fmt"
	"sort"

	"github.com/sells-group/signals-cli/internal/model"
)

// Priority thresholds for the signal-sufficiency gate.
const (
	minHighPositives   = 1
	minMediumPositives = 2
)

// ScoreCandidate applies the deterministic gate-and-score rules to one
// validated report. No model call happens here; the outcome is a pure
// function of the report, the evidence, and the signal registry.
//
// Gates zero the score outright. A candidate that reads strongly but cannot
// clear the evidence bar must not outrank a weaker, well-evidenced one.
func ScoreCandidate(
	cand model.CandidateCompany,
	report model.SignalMatchReport,
	chunks []model.EvidenceChunk,
	signals []model.SignalDefinition,
) model.ScoredCandidate {
	scored := model.ScoredCandidate{
		Candidate: cand,
		Report:    report,
		Evidence:  chunks,
	}

	if report.Disqualified {
		scored.GateFailureReason = fmt.Sprintf("disqualified: %s", report.DisqualifierReason)
		return scored
	}

	positives := report.PositiveMatches()

	base := 0.0
	for _, m := range positives {
		def := model.FindSignal(signals, m.SignalID)
		if def == nil || def.IsDisqualifier {
			continue
		}
		base += def.Weight * m.Confidence * 10
	}
	base += report.OverallConfidence * 10

	citedURLs := make(map[string]bool)
	for _, m := range positives {
		for _, u := range m.EvidenceURLs {
			citedURLs[u] = true
		}
	}
	if len(citedURLs) < 2 && !model.HasPrimarySource(chunks) {
		scored.GateFailureReason = "insufficient evidence"
		return scored
	}

	high, medium := 0, 0
	for _, m := range positives {
		def := model.FindSignal(signals, m.SignalID)
		if def == nil || def.IsDisqualifier {
			continue
		}
		switch def.Priority {
		case model.PriorityHigh:
			high++
		case model.PriorityMedium:
			medium++
		}
	}
	if high < minHighPositives && medium < minMediumPositives {
		scored.GateFailureReason = "insufficient signals"
		return scored
	}

	maxScore := MaxPossibleScore(signals)
	if maxScore > 0 {
		scored.Score = clamp(base/maxScore*100, 0, 100)
	}
	scored.PassesGate = true
	scored.Penalties = advisoryPenalties(chunks, citedURLs)
	return scored
}

// MaxPossibleScore is the theoretical ceiling of the base score: every
// non-disqualifier signal matched at confidence 1, plus the full fit bonus.
// Toggling signals between runs changes this denominator, so scores are only
// comparable across runs with the same registry.
func MaxPossibleScore(signals []model.SignalDefinition) float64 {
	total := 0.0
	for _, s := range signals {
		if s.IsDisqualifier {
			continue
		}
		total += s.Weight * 10
	}
	return total + 10
}

// advisoryPenalties flags evidence weaknesses on a passing candidate. They
// never change the score; they travel with it for a human reviewer.
func advisoryPenalties(chunks []model.EvidenceChunk, citedURLs map[string]bool) []string {
	var penalties []string
	if !model.HasPrimarySource(chunks) {
		penalties = append(penalties, "no primary source evidence")
	}
	if len(citedURLs) == 1 {
		penalties = append(penalties, "single cited source")
	}
	return penalties
}

// SelectTopCandidates returns the gate-passing candidates ordered by
// descending score, capped at limit. Gate failers never appear regardless of
// how empty the passing set is.
func SelectTopCandidates(scored []model.ScoredCandidate, limit int) []model.ScoredCandidate {
	var passing []model.ScoredCandidate
	for _, s := range scored {
		if s.PassesGate {
			passing = append(passing, s)
		}
	}
	sort.SliceStable(passing, func(i, j int) bool {
		return passing[i].Score > passing[j].Score
	})
	if limit > 0 && len(passing) > limit {
		passing = passing[:limit]
	}
	return passing
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
