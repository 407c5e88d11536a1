package scrape

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubReader returns a fixed page or error.
type stubReader struct {
	name     string
	page     *Page
	err      error
	supports bool
	calls    int
}

func (s *stubReader) Read(_ context.Context, _ string) (*Page, error) {
	s.calls++
	return s.page, s.err
}

func (s *stubReader) Name() string           { return s.name }
func (s *stubReader) Supports(_ string) bool { return s.supports }

func TestChain_FirstSuccessWins(t *testing.T) {
	first := &stubReader{name: "first", supports: true, page: &Page{URL: "https://x.test", Content: "from first"}}
	second := &stubReader{name: "second", supports: true, page: &Page{URL: "https://x.test", Content: "from second"}}

	chain := NewChain(first, second)
	page, err := chain.Read(context.Background(), "https://x.test")

	require.NoError(t, err)
	assert.Equal(t, "from first", page.Content)
	assert.Equal(t, 0, second.calls, "later readers are not tried after a success")
}

func TestChain_FallsThroughOnError(t *testing.T) {
	first := &stubReader{name: "first", supports: true, err: eris.New("blocked")}
	second := &stubReader{name: "second", supports: true, page: &Page{Content: "recovered"}}

	chain := NewChain(first, second)
	page, err := chain.Read(context.Background(), "https://x.test")

	require.NoError(t, err)
	assert.Equal(t, "recovered", page.Content)
	assert.Equal(t, 1, first.calls)
}

func TestChain_SkipsUnsupported(t *testing.T) {
	skipped := &stubReader{name: "skipped", supports: false}
	used := &stubReader{name: "used", supports: true, page: &Page{Content: "ok"}}

	chain := NewChain(skipped, used)
	page, err := chain.Read(context.Background(), "https://x.test")

	require.NoError(t, err)
	assert.Equal(t, "ok", page.Content)
	assert.Equal(t, 0, skipped.calls)
}

func TestChain_AllFail(t *testing.T) {
	first := &stubReader{name: "first", supports: true, err: eris.New("nope")}
	second := &stubReader{name: "second", supports: true, err: eris.New("also nope")}

	chain := NewChain(first, second)
	_, err := chain.Read(context.Background(), "https://x.test")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all readers failed")
}

func TestChain_NoSuitableReader(t *testing.T) {
	only := &stubReader{name: "only", supports: false}

	chain := NewChain(only)
	_, err := chain.Read(context.Background(), "https://x.test")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suitable reader")
}
