package scrape

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/sells-group/signals-cli/internal/resilience"
)

const maxBodySize = 512 * 1024

// LocalReader fetches HTML via net/http, detects blocks, and reduces the
// page to readable article text. Free, no API calls. Blocked or JS-only
// pages fall through to the Jina reader.
type LocalReader struct {
	client *http.Client
}

// NewLocalReader creates a LocalReader with sensible defaults.
func NewLocalReader() *LocalReader {
	return &LocalReader{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

func (l *LocalReader) Name() string           { return "local_http" }
func (l *LocalReader) Supports(_ string) bool { return true }

// Read fetches a URL, detects blocks, and extracts the main article text.
func (l *LocalReader) Read(ctx context.Context, targetURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; SignalsBot/1.0)")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if block := DetectBlock(resp, body); block.Blocked() {
		return nil, eris.Errorf("local_http: blocked (%s)", block)
	}

	if resp.StatusCode >= 400 {
		err := eris.Errorf("local_http: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	if len(body) < 100 {
		return nil, eris.New("local_http: empty page")
	}

	html := decodeCharset(body, resp.Header.Get("Content-Type"))
	title, text := readableText(html, targetURL)
	if text == "" {
		return nil, eris.New("local_http: no readable content")
	}

	return &Page{
		URL:        targetURL,
		Title:      title,
		Content:    text,
		StatusCode: resp.StatusCode,
	}, nil
}

// decodeCharset converts a response body to UTF-8 based on the Content-Type
// charset parameter. Unknown or missing charsets pass through unchanged.
func decodeCharset(body []byte, contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body)
	}
	name := params["charset"]
	if name == "" || strings.EqualFold(name, "utf-8") {
		return string(body)
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return string(body)
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// readableText extracts the main article text from an HTML document.
// Readability finds the article node on content pages; listing pages and
// thin shells fall back to a plain tag strip so the caller still gets text.
func readableText(html, pageURL string) (title, text string) {
	if parsed, err := url.Parse(pageURL); err == nil {
		parser := readability.NewParser()
		article, err := parser.Parse(strings.NewReader(html), parsed)
		if err == nil {
			text = strings.TrimSpace(article.TextContent)
			if len(text) >= 100 {
				return article.Title, collapseSpace(text)
			}
		}
	}
	return extractTitle([]byte(html)), stripHTML(html)
}

var titleRe = regexp.MustCompile(`(?i)<title[^>]*>(.*?)</title>`)

// extractTitle pulls the <title> from HTML.
func extractTitle(body []byte) string {
	if m := titleRe.FindSubmatch(body); m != nil {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}

// dropTagRes match whole script/style/nav/footer blocks. RE2 has no
// backreferences, so each tag needs its own pattern to pair open and
// close correctly.
var dropTagRes = func() []*regexp.Regexp {
	tags := []string{"script", "style", "nav", "footer"}
	res := make([]*regexp.Regexp, len(tags))
	for i, tag := range tags {
		res[i] = regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
	}
	return res
}()

var tagRe = regexp.MustCompile(`<[^>]+>`)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&", "&lt;", "<", "&gt;", ">",
	"&quot;", `"`, "&#39;", "'", "&nbsp;", " ",
)

// stripHTML is the fallback when readability finds no article node: drop
// the markup-only blocks, strip tags, decode the common entities, and
// collapse whitespace.
func stripHTML(html string) string {
	for _, re := range dropTagRes {
		html = re.ReplaceAllString(html, "")
	}
	html = tagRe.ReplaceAllString(html, " ")
	return collapseSpace(entityReplacer.Replace(html))
}

var (
	spaceRe = regexp.MustCompile(`[ \t]+`)
	nlRe    = regexp.MustCompile(`\n{3,}`)
)

// collapseSpace squeezes runs of spaces and blank lines.
func collapseSpace(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = nlRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
