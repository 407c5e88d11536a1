// Package export renders stored leads to files and pushes them to external
// CRM targets.
package export

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/signals-cli/internal/model"
)

// Format identifies a file export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", eris.Errorf("export: unknown format %q (want csv, json, or xlsx)", s)
}

// Target pushes leads to an external system.
type Target interface {
	Name() string
	Push(ctx context.Context, leads []model.LeadRecord) (*PushResult, error)
}

// PushResult summarizes one push: every lead lands in exactly one bucket.
type PushResult struct {
	Created int
	Updated int
	Errors  []string
}

// leadHeader is the column order shared by the tabular exports.
var leadHeader = []string{
	"id", "run_id", "domain", "company_name", "score", "status",
	"why_now", "narrative", "angles", "triggered_signals",
	"evidence_urls", "opener_short", "opener_medium",
	"person_name", "industry", "geo", "created_at",
}

// leadRow renders one lead in leadHeader order. Multi-value fields use
// newlines except triggered_signals, which joins on ";" so the cell stays
// machine-splittable.
func leadRow(lead model.LeadRecord) []string {
	person := ""
	if lead.PersonName != nil {
		person = *lead.PersonName
	}
	return []string{
		lead.ID,
		lead.RunID,
		lead.Domain,
		lead.CompanyName,
		strconv.FormatFloat(lead.Score, 'f', 1, 64),
		string(lead.Status),
		lead.WhyNow,
		strings.Join(lead.Narrative, "\n"),
		strings.Join(lead.Angles, "\n"),
		strings.Join(lead.TriggeredSignals, ";"),
		strings.Join(lead.EvidenceURLs, "\n"),
		lead.OpenerShort,
		lead.OpenerMedium,
		person,
		lead.Industry,
		lead.Geo,
		lead.CreatedAt.UTC().Format(time.RFC3339),
	}
}
