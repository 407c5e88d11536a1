// Package newsfeed provides a client for the Google News RSS endpoint,
// used to supplement watch-mode retrieval with recent coverage of known
// companies.
package newsfeed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
)

// Client fetches recent news items for a company.
type Client interface {
	CompanyNews(ctx context.Context, company string) ([]Item, error)
}

// Item is one news story from the feed.
type Item struct {
	Title       string
	URL         string
	Source      string
	Snippet     string
	PublishedAt time.Time
}

// Config controls feed locale and result volume.
type Config struct {
	Language string        // hl parameter, e.g. "en-US"
	Country  string        // gl parameter, e.g. "US"
	MaxItems int           // per-company cap; <1 means 10
	MaxAge   time.Duration // drop items older than this; 0 keeps everything
}

// Option configures the newsfeed client.
type Option func(*httpClient)

// WithBaseURL sets a custom feed base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	cfg     Config
	http    *http.Client
	parser  *gofeed.Parser
}

// NewClient creates a Google News RSS client.
func NewClient(cfg Config, opts ...Option) Client {
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.Country == "" {
		cfg.Country = "US"
	}
	if cfg.MaxItems < 1 {
		cfg.MaxItems = 10
	}

	c := &httpClient{
		baseURL: "https://news.google.com/rss",
		cfg:     cfg,
		http:    &http.Client{Timeout: 15 * time.Second},
		parser:  gofeed.NewParser(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) CompanyNews(ctx context.Context, company string) ([]Item, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%q", company))
	params.Set("hl", c.cfg.Language)
	params.Set("gl", c.cfg.Country)
	params.Set("ceid", c.cfg.Country+":"+languageCode(c.cfg.Language))
	feedURL := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "newsfeed: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "newsfeed: fetch feed for %s", company)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("newsfeed: unexpected status %d for %s", resp.StatusCode, company)
	}

	feed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "newsfeed: parse feed for %s", company)
	}

	cutoff := time.Time{}
	if c.cfg.MaxAge > 0 {
		cutoff = time.Now().Add(-c.cfg.MaxAge)
	}

	items := make([]Item, 0, c.cfg.MaxItems)
	for _, it := range feed.Items {
		if len(items) >= c.cfg.MaxItems {
			break
		}

		var pub time.Time
		if it.PublishedParsed != nil {
			pub = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			pub = *it.UpdatedParsed
		}
		if !cutoff.IsZero() && !pub.IsZero() && pub.Before(cutoff) {
			continue
		}

		// Google News titles carry " - Publisher" suffixes.
		source := ""
		if idx := strings.LastIndex(it.Title, " - "); idx != -1 {
			source = strings.TrimSpace(it.Title[idx+3:])
		}

		items = append(items, Item{
			Title:       strings.TrimSpace(it.Title),
			URL:         strings.TrimSpace(it.Link),
			Source:      source,
			Snippet:     snippetFrom(it.Description),
			PublishedAt: pub,
		})
	}

	return items, nil
}

// languageCode reduces "en-US" to "en" for the ceid parameter.
func languageCode(lang string) string {
	if idx := strings.IndexByte(lang, '-'); idx != -1 {
		return lang[:idx]
	}
	return lang
}

// snippetFrom strips markup from an RSS description and trims it to a
// search-snippet length.
func snippetFrom(desc string) string {
	s := stripTags(desc)
	s = strings.Join(strings.Fields(s), " ")
	const maxLen = 300
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

func stripTags(s string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			sb.WriteByte(' ')
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
