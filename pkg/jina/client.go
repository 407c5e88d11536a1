// Package jina talks to the Jina AI reader (r.jina.ai) and search
// (s.jina.ai) endpoints. Both speak an authorized GET with a JSON
// envelope; the reader returns page content rendered as markdown.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultReaderURL = "https://r.jina.ai"
	defaultSearchURL = "https://s.jina.ai"

	maxAttempts    = 3
	initialBackoff = 1 * time.Second
)

// Client is the retrieval surface the pipeline depends on.
type Client interface {
	// Read fetches targetURL through the reader endpoint and returns the
	// page content as markdown.
	Read(ctx context.Context, targetURL string) (*ReadResponse, error)
	// Search runs a web search and returns result snippets.
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// ReadResponse is the reader envelope.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData carries the rendered page.
type ReadData struct {
	Title   string    `json:"title"`
	URL     string    `json:"url"`
	Content string    `json:"content"`
	Usage   ReadUsage `json:"usage"`
}

// ReadUsage reports tokens billed for the read.
type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// SearchResponse is the search envelope.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// SearchResult is one hit with its snippet.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// SearchOption adjusts a single search call.
type SearchOption func(*searchOpts)

type searchOpts struct {
	siteFilter     string
	maxResults     int
	excludeDomains []string
}

// WithSiteFilter limits hits to one domain.
func WithSiteFilter(domain string) SearchOption {
	return func(o *searchOpts) {
		o.siteFilter = domain
	}
}

// WithMaxResults caps hits per query. The cap goes to the API as the
// count parameter and is enforced again on the parsed response.
func WithMaxResults(n int) SearchOption {
	return func(o *searchOpts) {
		o.maxResults = n
	}
}

// WithExcludeDomains appends -site: operators so aggregator domains
// never reach the extractor.
func WithExcludeDomains(domains []string) SearchOption {
	return func(o *searchOpts) {
		o.excludeDomains = domains
	}
}

// Option adjusts the client itself.
type Option func(*httpClient)

// WithBaseURL points the reader at a different host. Tests use this.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithSearchBaseURL points search at a different host. Tests use this.
func WithSearchBaseURL(url string) Option {
	return func(c *httpClient) {
		c.searchBaseURL = url
	}
}

// WithHTTPClient swaps the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey        string
	baseURL       string
	searchBaseURL string
	http          *http.Client
	backoff       time.Duration
}

// NewClient builds a Client with production defaults.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:        apiKey,
		baseURL:       defaultReaderURL,
		searchBaseURL: defaultSearchURL,
		backoff:       initialBackoff,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Read(ctx context.Context, targetURL string) (*ReadResponse, error) {
	body, status, err := c.getJSON(ctx, fmt.Sprintf("%s/%s", c.baseURL, targetURL), true)
	if err != nil {
		return nil, eris.Wrap(err, "jina: read")
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("jina: unexpected status %d: %s", status, string(body))
	}

	var result ReadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal read response")
	}
	return &result, nil
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	var so searchOpts
	for _, opt := range opts {
		opt(&so)
	}
	for _, d := range so.excludeDomains {
		query += " -site:" + d
	}

	reqURL := fmt.Sprintf("%s/%s", c.searchBaseURL, url.QueryEscape(query))
	params := url.Values{}
	if so.siteFilter != "" {
		params.Set("site", so.siteFilter)
	}
	if so.maxResults > 0 {
		params.Set("count", strconv.Itoa(so.maxResults))
	}
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	body, status, err := c.getJSON(ctx, reqURL, false)
	if err != nil {
		return nil, eris.Wrap(err, "jina: search")
	}

	// 422 is the API's way of saying the query matched nothing.
	if status == http.StatusUnprocessableEntity {
		return &SearchResponse{Code: http.StatusUnprocessableEntity}, nil
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("jina: search unexpected status %d: %s", status, string(body))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal search response")
	}
	if so.maxResults > 0 && len(result.Data) > so.maxResults {
		result.Data = result.Data[:so.maxResults]
	}
	return &result, nil
}

// retryableStatusCode reports whether a status is worth another attempt.
func retryableStatusCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable:
		return true
	}
	return false
}

// getJSON issues an authorized GET, retrying transport errors and
// transient statuses (429, 500, 502, 503) with doubling backoff. A
// non-retryable status is returned to the caller along with the body,
// not turned into an error here.
func (c *httpClient) getJSON(ctx context.Context, rawURL string, markdown bool) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if markdown {
		req.Header.Set("X-Return-Format", "markdown")
	}

	wait := c.backoff
	var lastErr error
	for attempt := 1; ; attempt++ {
		body, status, err := c.attempt(ctx, req)
		switch {
		case err != nil:
			lastErr = err
		case retryableStatusCode(status):
			lastErr = eris.Errorf("status %d: %s", status, string(body))
		default:
			return body, status, nil
		}

		if attempt >= maxAttempts {
			return nil, 0, lastErr
		}
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

// attempt runs one round trip. The request is cloned so the retry loop
// can reuse it.
func (c *httpClient) attempt(ctx context.Context, req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req.Clone(ctx))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "read body")
	}
	return body, resp.StatusCode, nil
}
