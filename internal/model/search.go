package model

import (
	"net/url"
	"strings"
)

// SearchQuery is one planned query, created by the planner and consumed
// once by the retriever.
type SearchQuery struct {
	Query               string   `json:"query"`
	TargetSignals       []string `json:"target_signals"`
	ExpectedSourceTypes []string `json:"expected_source_types"`
	Rationale           string   `json:"rationale"`
}

// QueryPlan is the planner's full output.
type QueryPlan struct {
	Queries       []SearchQuery `json:"queries"`
	ICPSummary    string        `json:"icp_summary"`
	SignalSummary string        `json:"signal_summary"`
}

// SearchResult is one raw hit from the search provider. Ephemeral; lives
// only for the duration of a run.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchStats summarizes one retrieval pass.
type SearchStats struct {
	TotalQueries      int `json:"total_queries"`
	SuccessfulQueries int `json:"successful_queries"`
	FailedQueries     int `json:"failed_queries"`
	TotalResults      int `json:"total_results"`
}

// NormalizeURL reduces a URL to its dedup identity: lowercased hostname plus
// path, trailing slash stripped, query string and fragment dropped. Invalid
// URLs normalize to their trimmed input so they still dedup exactly.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return strings.TrimSuffix(raw, "/")
	}
	host := strings.ToLower(u.Hostname())
	path := strings.TrimSuffix(u.Path, "/")
	return host + path
}

// NormalizeDomain canonicalizes a bare domain or URL-ish string: lowercase,
// scheme/path/port stripped, leading www. removed.
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	if d == "" {
		return ""
	}
	if strings.Contains(d, "://") {
		if u, err := url.Parse(d); err == nil && u.Hostname() != "" {
			d = u.Hostname()
		}
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.IndexByte(d, ':'); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, ".")
}

// HostMatchesDomain reports whether the URL's host is the domain itself or
// one of its subdomains, ignoring a www. prefix.
func HostMatchesDomain(rawURL, domain string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	domain = NormalizeDomain(domain)
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
