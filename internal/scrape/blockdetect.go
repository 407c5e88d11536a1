package scrape

import (
	"net/http"
	"strings"
)

// BlockType classifies the anti-bot wall a fetch ran into. A blocked page
// carries no evidence worth parsing, so readers fail it and let the chain
// try elsewhere.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// Blocked reports whether b names an actual block.
func (b BlockType) Blocked() bool { return b != BlockNone }

// jsShellMaxBytes bounds the body size for the JS-shell heuristic. A real
// article served alongside a noscript banner is bigger than this.
const jsShellMaxBytes = 2000

// bodyMarkers maps lowercase fragments of known interstitial pages to the
// block they indicate. First hit wins.
var bodyMarkers = []struct {
	fragment string
	block    BlockType
}{
	{"cf-browser-verification", BlockCloudflare},
	{"checking your browser", BlockCloudflare},
	{"attention required! | cloudflare", BlockCloudflare},
	{"recaptcha", BlockCaptcha},
	{"hcaptcha", BlockCaptcha},
	{"captcha", BlockCaptcha},
	{"are you a robot", BlockCaptcha},
	{"unusual traffic from your computer network", BlockCaptcha},
}

// DetectBlock classifies a raw HTTP response as a Cloudflare wall, a
// captcha interstitial, or a JavaScript-only shell with no server-rendered
// content. BlockNone means the page is worth parsing.
func DetectBlock(resp *http.Response, body []byte) BlockType {
	if resp == nil {
		return BlockNone
	}

	pressured := resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusServiceUnavailable
	if pressured && viaCloudflare(resp.Header) {
		return BlockCloudflare
	}

	lower := strings.ToLower(string(body))
	for _, m := range bodyMarkers {
		if strings.Contains(lower, m.fragment) {
			return m.block
		}
	}

	// A tiny page that only asks for JavaScript rendered nothing usable.
	if len(body) < jsShellMaxBytes {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return BlockJSShell
		}
	}

	return BlockNone
}

func viaCloudflare(h http.Header) bool {
	return h.Get("cf-ray") != "" ||
		h.Get("cf-cache-status") != "" ||
		strings.EqualFold(h.Get("server"), "cloudflare")
}
