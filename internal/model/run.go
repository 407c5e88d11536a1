package model

import "time"

// RunMode selects how candidates enter the pipeline.
type RunMode string

const (
	// ModeHunt discovers new candidate companies via planned search.
	ModeHunt RunMode = "hunt"
	// ModeWatch re-evaluates a fixed, caller-supplied domain list.
	ModeWatch RunMode = "watch"
)

// Valid reports whether m is a recognized run mode.
func (m RunMode) Valid() bool {
	return m == ModeHunt || m == ModeWatch
}

// RunStatus is the lifecycle state of a signal run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunStats is the run statistics reporting surface. The JSON field names are
// a fixed contract consumed by external reporting; do not rename them.
type RunStats struct {
	QueriesExecuted       int `json:"queriesExecuted"`
	CandidatesFound       int `json:"candidatesFound"`
	CandidatesAfterDedup  int `json:"candidatesAfterDedup"`
	EvidenceChunksFetched int `json:"evidenceChunksFetched"`
	SignalEvaluations     int `json:"signalEvaluations"`
	LeadsGenerated        int `json:"leadsGenerated"`
	LeadsPassedGate       int `json:"leadsPassedGate"`
	InsufficientEvidence  int `json:"insufficientEvidence"`
	Disqualified          int `json:"disqualified"`
	DuplicatesSkipped     int `json:"duplicatesSkipped"`
}

// CostSummary tracks provider spend for one run. ReaderTokens counts
// metered reader-fallback usage; zero when every page came from the
// local fetcher.
type CostSummary struct {
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	SearchQueries int     `json:"search_queries"`
	ReaderTokens  int     `json:"reader_tokens"`
	EstimatedUSD  float64 `json:"estimated_usd"`
}

// SignalRun is the persistent record of one pipeline invocation.
type SignalRun struct {
	ID          string      `json:"id"`
	Mode        RunMode     `json:"mode"`
	Status      RunStatus   `json:"status"`
	Stats       RunStats    `json:"stats"`
	Cost        CostSummary `json:"cost"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}
