package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/pkg/salesforce"
)

const leadSource = "Signals Pipeline"

// SalesforceTarget pushes leads into Salesforce as standard Lead records.
// Leads whose domain already matches an existing record's Website are updated
// in place; the rest are created through the Collections API in one batch.
type SalesforceTarget struct {
	client salesforce.Client
}

func NewSalesforceTarget(client salesforce.Client) *SalesforceTarget {
	return &SalesforceTarget{client: client}
}

func (t *SalesforceTarget) Name() string { return "salesforce" }

func (t *SalesforceTarget) Push(ctx context.Context, leads []model.LeadRecord) (*PushResult, error) {
	res := &PushResult{}
	var inserts []map[string]any
	for _, lead := range leads {
		existing, err := salesforce.FindLeadByWebsite(ctx, t.client, lead.Domain)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("find %s: %v", lead.Domain, err))
			continue
		}
		if existing != nil {
			if err := salesforce.UpdateLead(ctx, t.client, existing.ID, leadUpdateFields(lead)); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("update %s: %v", lead.Domain, err))
				continue
			}
			res.Updated++
			continue
		}
		inserts = append(inserts, leadInsertFields(lead))
	}

	if len(inserts) == 0 {
		return res, nil
	}
	results, err := salesforce.BulkInsertLeads(ctx, t.client, inserts)
	if err != nil {
		return res, eris.Wrap(err, "export: bulk insert leads")
	}
	for i, r := range results {
		if r.Success {
			res.Created++
			continue
		}
		company := ""
		if i < len(inserts) {
			company, _ = inserts[i]["Company"].(string)
		}
		res.Errors = append(res.Errors, fmt.Sprintf("insert %s: %s", company, strings.Join(r.Errors, "; ")))
	}
	return res, nil
}

func leadInsertFields(lead model.LeadRecord) map[string]any {
	fields := map[string]any{
		"Company":     lead.CompanyName,
		"LastName":    lastNameFor(lead),
		"Website":     lead.Domain,
		"Description": leadDescription(lead),
		"LeadSource":  leadSource,
		"Rating":      ratingFor(lead.Score),
	}
	if lead.Industry != "" {
		fields["Industry"] = lead.Industry
	}
	if len(lead.TargetTitles) > 0 {
		fields["Title"] = lead.TargetTitles[0]
	}
	return fields
}

// leadUpdateFields refreshes the evidence-derived fields on an existing
// record. Status stays untouched so the org's own workflow owns it.
func leadUpdateFields(lead model.LeadRecord) map[string]any {
	return map[string]any{
		"Description": leadDescription(lead),
		"Rating":      ratingFor(lead.Score),
	}
}

// lastNameFor satisfies the Lead object's mandatory LastName. The whole
// person name goes in as-is; splitting surnames out of free text is not
// reliable enough to attempt.
func lastNameFor(lead model.LeadRecord) string {
	if lead.PersonName != nil && strings.TrimSpace(*lead.PersonName) != "" {
		return strings.TrimSpace(*lead.PersonName)
	}
	return "Unknown"
}

func ratingFor(score float64) string {
	switch {
	case score >= 80:
		return "Hot"
	case score >= 50:
		return "Warm"
	}
	return "Cold"
}

func leadDescription(lead model.LeadRecord) string {
	var b strings.Builder
	b.WriteString(lead.WhyNow)
	for _, line := range lead.Narrative {
		b.WriteString("\n- ")
		b.WriteString(line)
	}
	if len(lead.EvidenceURLs) > 0 {
		b.WriteString("\n\nEvidence:")
		for _, u := range lead.EvidenceURLs {
			b.WriteString("\n")
			b.WriteString(u)
		}
	}
	return strings.TrimSpace(b.String())
}
