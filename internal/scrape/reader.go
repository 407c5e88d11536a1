package scrape

import "context"

// Page is one fetched web page reduced to readable text. ReaderTokens is
// the token count billed by a metered reader; the local reader leaves it
// zero.
type Page struct {
	URL          string
	Title        string
	Content      string
	StatusCode   int
	ReaderTokens int
}

// Reader fetches a single URL and returns its readable content.
type Reader interface {
	Read(ctx context.Context, url string) (*Page, error)
	Name() string
	Supports(url string) bool
}
