package model

import "strings"

// SignalPriority ranks how strongly a signal indicates buying intent.
type SignalPriority string

const (
	PriorityHigh   SignalPriority = "high"
	PriorityMedium SignalPriority = "medium"
	PriorityLow    SignalPriority = "low"
)

// Valid reports whether p is a recognized priority.
func (p SignalPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// SignalResult is the evaluator's verdict for one signal on one candidate.
type SignalResult string

const (
	ResultYes     SignalResult = "yes"
	ResultNo      SignalResult = "no"
	ResultUnknown SignalResult = "unknown"
)

// SignalDefinition describes one evidence-checkable buying indicator.
// Definitions come from the registry and are immutable during a run.
type SignalDefinition struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Category       string         `json:"category" yaml:"category"`
	Priority       SignalPriority `json:"priority" yaml:"priority"`
	Weight         float64        `json:"weight" yaml:"weight"`
	IsDisqualifier bool           `json:"is_disqualifier" yaml:"disqualifier"`
	Question       string         `json:"question" yaml:"question"`
	QueryTemplates []string       `json:"query_templates" yaml:"query_templates"`
}

// ExpandTemplate substitutes {company} and {domain} placeholders in a
// query template.
func (s SignalDefinition) ExpandTemplate(tmpl, company, domain string) string {
	out := strings.ReplaceAll(tmpl, "{company}", company)
	return strings.ReplaceAll(out, "{domain}", domain)
}

// NonDisqualifiers returns the subset of signals that contribute to scoring.
func NonDisqualifiers(signals []SignalDefinition) []SignalDefinition {
	var out []SignalDefinition
	for _, s := range signals {
		if !s.IsDisqualifier {
			out = append(out, s)
		}
	}
	return out
}

// FindSignal returns the definition with the given id, or nil.
func FindSignal(signals []SignalDefinition, id string) *SignalDefinition {
	for i := range signals {
		if signals[i].ID == id {
			return &signals[i]
		}
	}
	return nil
}

// SignalMatch is one signal verdict for one candidate, with citations.
// Every yes-verdict must cite URLs that exist in the candidate's fetched
// evidence set; the evaluator's validation pass enforces this.
type SignalMatch struct {
	SignalID         string       `json:"signal_id"`
	SignalName       string       `json:"signal_name"`
	Result           SignalResult `json:"result"`
	Confidence       float64      `json:"confidence"`
	EvidenceURLs     []string     `json:"evidence_urls"`
	EvidenceSnippets []string     `json:"evidence_snippets"`
	Reasoning        string       `json:"reasoning"`
}

// SignalMatchReport aggregates all matches for one candidate.
// OverallConfidence is computed locally as the mean confidence of positive
// matches after validation, never taken from the model.
type SignalMatchReport struct {
	Domain             string        `json:"domain"`
	CompanyName        string        `json:"company_name"`
	Matches            []SignalMatch `json:"matches"`
	OverallConfidence  float64       `json:"overall_confidence"`
	Disqualified       bool          `json:"disqualified"`
	DisqualifierReason string        `json:"disqualifier_reason,omitempty"`
}

// PositiveMatches returns the matches with a yes verdict.
func (r *SignalMatchReport) PositiveMatches() []SignalMatch {
	var out []SignalMatch
	for _, m := range r.Matches {
		if m.Result == ResultYes {
			out = append(out, m)
		}
	}
	return out
}
