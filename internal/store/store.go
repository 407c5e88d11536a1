// Package store persists signal runs, leads, seen-domain history, and the
// do-not-contact list. SQLite is the default for single-user CLI use;
// Postgres backs shared deployments and the serve mode.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/signals-cli/internal/model"
)

// ErrNotFound reports that a run, lead, or DNC entry does not exist. Both
// backends wrap it, so callers can errors.Is against a single sentinel.
var ErrNotFound = eris.New("not found")

// RunFilter narrows ListRuns. Zero fields match everything.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Mode   model.RunMode   `json:"mode,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// LeadFilter narrows ListLeads. Zero fields match everything.
type LeadFilter struct {
	RunID    string           `json:"run_id,omitempty"`
	Status   model.LeadStatus `json:"status,omitempty"`
	Domain   string           `json:"domain,omitempty"`
	MinScore float64          `json:"min_score,omitempty"`
	Limit    int              `json:"limit,omitempty"`
	Offset   int              `json:"offset,omitempty"`
}

// StatusCount is one row of a per-status aggregation.
type StatusCount struct {
	Status string
	Count  int
}

// Store defines the persistence interface for the signal pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run *model.SignalRun) error
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, run *model.SignalRun) error
	GetRun(ctx context.Context, runID string) (*model.SignalRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.SignalRun, error)
	CountRunsByStatus(ctx context.Context) ([]StatusCount, error)

	// Leads
	SaveLeads(ctx context.Context, leads []model.LeadRecord) error
	GetLead(ctx context.Context, leadID string) (*model.LeadRecord, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRecord, error)
	UpdateLeadStatus(ctx context.Context, leadID string, status model.LeadStatus) error
	CountLeadsByStatus(ctx context.Context) ([]StatusCount, error)

	// Seen domains (hunt-mode cooldown)
	MarkDomainSeen(ctx context.Context, domain string) error
	WasDomainSeen(ctx context.Context, domain string, within time.Duration) (bool, error)
	ListSeenDomains(ctx context.Context, within time.Duration) ([]model.SeenDomain, error)

	// Do-not-contact list
	AddDNC(ctx context.Context, domain, reason string) error
	RemoveDNC(ctx context.Context, domain string) error
	IsDNC(ctx context.Context, domain string) (bool, error)
	ListDNC(ctx context.Context) ([]model.DNCEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
