package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/pkg/notion"
)

// notionTextLimit is Notion's per-block rich text cap.
const notionTextLimit = 2000

// NotionTarget pushes leads into a Notion database, one page per lead. The
// database needs a "Name" title property and a "Domain" rich_text property;
// Domain is the dedup key, so pushing the same lead twice updates its page
// instead of duplicating it.
type NotionTarget struct {
	client notion.Client
	dbID   string
}

func NewNotionTarget(client notion.Client, dbID string) *NotionTarget {
	return &NotionTarget{client: client, dbID: dbID}
}

func (t *NotionTarget) Name() string { return "notion" }

func (t *NotionTarget) Push(ctx context.Context, leads []model.LeadRecord) (*PushResult, error) {
	pages, err := notion.QueryAll(ctx, t.client, t.dbID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "export: list notion pages")
	}
	existing := make(map[string]string, len(pages))
	for _, p := range pages {
		if d := pageDomain(p); d != "" {
			existing[d] = string(p.ID)
		}
	}

	res := &PushResult{}
	for _, lead := range leads {
		if pageID, ok := existing[lead.Domain]; ok {
			req := &notionapi.PageUpdateRequest{Properties: leadPageProperties(lead)}
			if _, err := t.client.UpdatePage(ctx, pageID, req); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("update %s: %v", lead.Domain, err))
				continue
			}
			res.Updated++
			continue
		}

		req := &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(t.dbID),
			},
			Properties: leadPageProperties(lead),
		}
		if _, err := t.client.CreatePage(ctx, req); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("create %s: %v", lead.Domain, err))
			continue
		}
		res.Created++
	}
	return res, nil
}

func leadPageProperties(lead model.LeadRecord) notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(lead.CompanyName),
		},
		"Domain": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(lead.Domain),
		},
		"Website": notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  normalizeURL(lead.Domain),
		},
		"Score": notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: lead.Score,
		},
		"Status": notionapi.StatusProperty{
			Status: notionapi.Status{Name: string(lead.Status)},
		},
		"Why Now": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(lead.WhyNow),
		},
	}

	if len(lead.TriggeredSignals) > 0 {
		opts := make([]notionapi.Option, 0, len(lead.TriggeredSignals))
		for _, sig := range lead.TriggeredSignals {
			opts = append(opts, notionapi.Option{Name: sig})
		}
		props["Signals"] = notionapi.MultiSelectProperty{
			Type:        notionapi.PropertyTypeMultiSelect,
			MultiSelect: opts,
		}
	}
	if len(lead.EvidenceURLs) > 0 {
		props["Evidence"] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(strings.Join(lead.EvidenceURLs, "\n")),
		}
	}
	if lead.OpenerShort != "" {
		props["Opener"] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(lead.OpenerShort),
		}
	}
	return props
}

// pageDomain pulls the dedup key out of a page's Domain property. The API
// unmarshals properties as pointer types; locally built pages carry values,
// so both shapes are handled.
func pageDomain(page notionapi.Page) string {
	prop, ok := page.Properties["Domain"]
	if !ok {
		return ""
	}
	switch p := prop.(type) {
	case *notionapi.RichTextProperty:
		return plainText(p.RichText)
	case notionapi.RichTextProperty:
		return plainText(p.RichText)
	}
	return ""
}

func plainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		if rt.PlainText != "" {
			b.WriteString(rt.PlainText)
			continue
		}
		if rt.Text != nil {
			b.WriteString(rt.Text.Content)
		}
	}
	return strings.TrimSpace(b.String())
}

// richText wraps s as a single text block, clamped to Notion's per-block
// limit without splitting a rune.
func richText(s string) []notionapi.RichText {
	if runes := []rune(s); len(runes) > notionTextLimit {
		s = string(runes[:notionTextLimit])
	}
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}

// normalizeURL ensures a domain has an https:// scheme prefix.
func normalizeURL(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ""
	}
	if !strings.Contains(domain, "://") {
		return "https://" + domain
	}
	return domain
}
