package scrape

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/pkg/jina"
)

// Breaker tuning: three consecutive failures inside 30s open the circuit for
// 60s. While open the chain skips straight to the next reader.
const (
	breakerThreshold = 3
	breakerWindow    = 30 * time.Second
	breakerCooldown  = 60 * time.Second
)

// circuitBreaker opens after a burst of consecutive failures, protecting the
// metered Reader API from being hammered while it is down.
type circuitBreaker struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	cooldown  time.Duration

	streak   int       // consecutive failures inside the window
	lastFail time.Time // when the streak last grew
	openedAt time.Time // zero while closed
}

func newCircuitBreaker(threshold int, window, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{threshold: threshold, window: window, cooldown: cooldown}
}

func (cb *circuitBreaker) isOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.openedAt.IsZero() {
		return false
	}
	if time.Since(cb.openedAt) >= cb.cooldown {
		cb.openedAt = time.Time{}
		cb.streak = 0
		return false
	}
	return true
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	if cb.streak > 0 && now.Sub(cb.lastFail) > cb.window {
		cb.streak = 0
	}
	cb.streak++
	cb.lastFail = now

	if cb.streak >= cb.threshold && cb.openedAt.IsZero() {
		cb.openedAt = now
		zap.L().Warn("scrape: jina circuit breaker opened",
			zap.Int("failures", cb.streak),
			zap.Duration("cooldown", cb.cooldown),
		)
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.streak = 0
	cb.openedAt = time.Time{}
}

// JinaReader reads pages through the hosted Jina Reader API. It sits behind
// the local reader as the paid fallback, so a circuit breaker guards it.
type JinaReader struct {
	client  jina.Client
	breaker *circuitBreaker
}

// NewJinaReader wraps a Jina client as a chain reader.
func NewJinaReader(client jina.Client) *JinaReader {
	return &JinaReader{
		client:  client,
		breaker: newCircuitBreaker(breakerThreshold, breakerWindow, breakerCooldown),
	}
}

func (j *JinaReader) Name() string { return "jina" }

// Supports reports false while the breaker is open, so the chain moves on
// without burning an attempt.
func (j *JinaReader) Supports(_ string) bool { return !j.breaker.isOpen() }

// Read fetches one URL via Jina Reader and rejects unusable responses.
func (j *JinaReader) Read(ctx context.Context, targetURL string) (*Page, error) {
	if j.breaker.isOpen() {
		return nil, eris.New("jina: circuit breaker open")
	}

	resp, err := j.client.Read(ctx, targetURL)
	if err != nil {
		j.breaker.recordFailure()
		return nil, err
	}
	if needsFallback(resp) {
		j.breaker.recordFailure()
		return nil, eris.New("jina: unusable response")
	}

	j.breaker.recordSuccess()
	return &Page{
		URL:          resp.Data.URL,
		Title:        resp.Data.Title,
		Content:      resp.Data.Content,
		StatusCode:   resp.Code,
		ReaderTokens: resp.Data.Usage.Tokens,
	}, nil
}

const (
	minUsableContent   = 100
	challengeScanLimit = 1000
)

// challengeMarkers are phrases from anti-bot interstitials that Jina
// sometimes returns with a 200. In a short page one of these is a wall; in a
// long article the phrase is usually just quoted text.
var challengeMarkers = []string{
	"just a moment",
	"checking your browser",
	"attention required",
	"access denied",
	"enable javascript",
	"please enable cookies",
	"403 forbidden",
	"cloudflare",
}

// needsFallback reports whether the response carries no usable content and
// the next reader in the chain should try instead.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Code != 0 && resp.Code != 200 {
		return true
	}

	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < minUsableContent {
		return true
	}
	if len(content) >= challengeScanLimit {
		return false
	}

	lower := strings.ToLower(content)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
