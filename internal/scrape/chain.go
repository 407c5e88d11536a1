// Package scrape provides chained page fetching for evidence gathering:
// a free local HTTP reader first, the Jina Reader API as fallback for
// blocked or JS-rendered pages.
package scrape

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Chain tries readers in priority order, returning the first success.
type Chain struct {
	readers []Reader
}

// NewChain creates a Chain. Readers are tried in order.
func NewChain(readers ...Reader) *Chain {
	return &Chain{readers: readers}
}

// Read tries each reader in order for a single URL. Returns the first
// successful page, or an error if all readers fail.
func (c *Chain) Read(ctx context.Context, targetURL string) (*Page, error) {
	var lastErr error
	for _, r := range c.readers {
		if !r.Supports(targetURL) {
			continue
		}
		page, err := r.Read(ctx, targetURL)
		if err == nil && page != nil {
			return page, nil
		}
		if err != nil {
			zap.L().Debug("scrape: reader failed, trying next",
				zap.String("reader", r.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all readers failed")
	}
	return nil, eris.Errorf("scrape: no suitable reader for url: %s", targetURL)
}
