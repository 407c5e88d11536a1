package model

import "time"

// LeadStatus is the lead lifecycle state. The pipeline always writes
// LeadStatusNew; later transitions are driven by the CLI or API consumers.
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "new"
	LeadStatusContacted    LeadStatus = "contacted"
	LeadStatusReplied      LeadStatus = "replied"
	LeadStatusQualified    LeadStatus = "qualified"
	LeadStatusDisqualified LeadStatus = "disqualified"
)

// Valid reports whether s is a recognized lead status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusReplied,
		LeadStatusQualified, LeadStatusDisqualified:
		return true
	}
	return false
}

// ScoredCandidate wraps a validated report with its evidence and the
// deterministic gate/score outcome. Score is 0 whenever the candidate is
// disqualified or fails a gate.
type ScoredCandidate struct {
	Candidate         CandidateCompany  `json:"candidate"`
	Report            SignalMatchReport `json:"report"`
	Evidence          []EvidenceChunk   `json:"evidence"`
	Score             float64           `json:"score"`
	PassesGate        bool              `json:"passes_gate"`
	GateFailureReason string            `json:"gate_failure_reason,omitempty"`
	Penalties         []string          `json:"penalties,omitempty"`
}

// LeadRecord is the terminal artifact of a run: one outreach-ready lead with
// its evidentiary provenance. Evidentiary fields are immutable after the run;
// only Status changes afterwards.
type LeadRecord struct {
	ID               string     `json:"id"`
	RunID            string     `json:"run_id"`
	Domain           string     `json:"domain"`
	CompanyName      string     `json:"company_name"`
	Score            float64    `json:"score"`
	WhyNow           string     `json:"why_now"`
	Narrative        []string   `json:"narrative"`
	Angles           []string   `json:"angles,omitempty"`
	EvidenceURLs     []string   `json:"evidence_urls"`
	EvidenceSnippets []string   `json:"evidence_snippets,omitempty"`
	TriggeredSignals []string   `json:"triggered_signals"`
	TargetTitles     []string   `json:"target_titles"`
	OpenerShort      string     `json:"opener_short"`
	OpenerMedium     string     `json:"opener_medium"`
	PersonName       *string    `json:"person_name,omitempty"`
	Industry         string     `json:"industry,omitempty"`
	Geo              string     `json:"geo,omitempty"`
	Status           LeadStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
