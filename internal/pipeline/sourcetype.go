package pipeline

import (
	"net/url"
	"strings"

	"github.com/sells-group/signals-cli/internal/model"
)

// Host suffixes recognized by the source-type classifier. Path and title
// patterns are checked alongside these; the first matching rule wins.
var (
	jobHostSuffixes = []string{
		"greenhouse.io", "lever.co", "ashbyhq.com", "workable.com",
		"indeed.com", "ziprecruiter.com", "wellfound.com", "builtin.com",
	}
	pressHostSuffixes = []string{
		"prnewswire.com", "businesswire.com", "globenewswire.com",
		"newswire.com", "accesswire.com",
	}
	newsHostSuffixes = []string{
		"techcrunch.com", "reuters.com", "bloomberg.com", "forbes.com",
		"businessinsider.com", "axios.com", "theinformation.com",
		"wsj.com", "ft.com", "cnbc.com", "finsmes.com", "news.google.com",
	}
	blogHostSuffixes = []string{"medium.com", "substack.com", "wordpress.com", "blogspot.com"}
)

// ClassifySourceType assigns an evidence source type from URL and title
// heuristics. candidateDomain is the domain the evidence is about; a URL on
// that domain with no more specific pattern classifies as company_site.
func ClassifySourceType(rawURL, title, candidateDomain string) model.EvidenceSourceType {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return model.SourceOther
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.ToLower(u.Path)
	lowerTitle := strings.ToLower(title)

	switch {
	case host == "sec.gov" || strings.HasSuffix(host, ".sec.gov"):
		return model.SourceSECFiling
	case hostMatchesAny(host, jobHostSuffixes),
		strings.HasPrefix(host, "jobs.") || strings.HasPrefix(host, "careers."),
		strings.Contains(path, "/careers") || strings.Contains(path, "/jobs"),
		strings.Contains(lowerTitle, "hiring") || strings.Contains(lowerTitle, "job opening"):
		return model.SourceJobPost
	case hostMatchesAny(host, pressHostSuffixes),
		strings.Contains(path, "/press-release") || strings.Contains(path, "/press/"),
		strings.Contains(lowerTitle, "press release") || strings.Contains(lowerTitle, "announces"):
		return model.SourcePressRelease
	case hostMatchesAny(host, newsHostSuffixes), strings.HasPrefix(host, "news."):
		return model.SourceNews
	case hostMatchesAny(host, blogHostSuffixes), strings.Contains(path, "/blog"):
		return model.SourceBlog
	case model.HostMatchesDomain(rawURL, candidateDomain):
		return model.SourceCompanySite
	}
	return model.SourceOther
}

func hostMatchesAny(host string, suffixes []string) bool {
	for _, s := range suffixes {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}
