package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/signals-cli/internal/model"
)

func searchResult(url, title string) model.SearchResult {
	return model.SearchResult{URL: url, Title: title, Snippet: title}
}

func TestExtractCandidates_ParsesAndFilters(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Extract.ExcludedDomains = []string{"linkedin.com"}

	llm := &mockAnthropicClient{}
	llm.On("CreateMessage", mock.Anything, systemContains("data extraction analyst")).
		Return(textResponse(`{"candidates": [
			{"company_name": "Acme", "domain": "https://www.acme.com/about", "source_url": "https://acme.com", "confidence": 0.9},
			{"company_name": "Shaky", "domain": "shaky.io", "confidence": 0.4},
			{"company_name": "Profile", "domain": "linkedin.com", "confidence": 0.95},
			{"company_name": "Subsidiary", "domain": "jobs.linkedin.com", "confidence": 0.95},
			{"company_name": "NoDot", "domain": "acme", "confidence": 0.9}
		]}`), nil)

	candidates, found, usage, failed := ExtractCandidates(ctx, llm, cfg.Anthropic, cfg.Extract,
		[]model.SearchResult{searchResult("https://example.com/list", "Fintech roundup")})

	assert.Equal(t, 5, found)
	assert.Zero(t, failed)
	assert.Positive(t, usage.InputTokens)

	require.Len(t, candidates, 1)
	assert.Equal(t, "Acme", candidates[0].CompanyName)
	// URL-shaped domains normalize to the bare host.
	assert.Equal(t, "acme.com", candidates[0].Domain)
	llm.AssertExpectations(t)
}

func TestExtractCandidates_DedupKeepsHighestConfidence(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	llm := &mockAnthropicClient{}
	llm.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse(`{"candidates": [
			{"company_name": "Acme (news)", "domain": "acme.com", "confidence": 0.7},
			{"company_name": "Acme (site)", "domain": "acme.com", "confidence": 0.95}
		]}`), nil)

	candidates, _, _, _ := ExtractCandidates(ctx, llm, cfg.Anthropic, cfg.Extract,
		[]model.SearchResult{searchResult("https://example.com", "r")})

	require.Len(t, candidates, 1)
	assert.Equal(t, "Acme (site)", candidates[0].CompanyName)
	assert.InDelta(t, 0.95, candidates[0].Confidence, 0.001)
}

func TestExtractCandidates_ChunksResults(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Extract.ChunkSize = 2

	llm := &mockAnthropicClient{}
	llm.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse(`{"candidates": []}`), nil)

	results := []model.SearchResult{
		searchResult("https://a.com", "a"),
		searchResult("https://b.com", "b"),
		searchResult("https://c.com", "c"),
	}

	_, found, _, failed := ExtractCandidates(ctx, llm, cfg.Anthropic, cfg.Extract, results)

	assert.Zero(t, found)
	assert.Zero(t, failed)
	llm.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestExtractCandidates_FailedChunkDegrades(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Extract.ChunkSize = 1

	llm := &mockAnthropicClient{}
	llm.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(nil, errors.New("overloaded")).Once()
	llm.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse(`{"candidates": [
			{"company_name": "Beta", "domain": "beta.io", "confidence": 0.8}
		]}`), nil).Once()

	candidates, found, _, failed := ExtractCandidates(ctx, llm, cfg.Anthropic, cfg.Extract,
		[]model.SearchResult{
			searchResult("https://one.com", "one"),
			searchResult("https://two.com", "two"),
		})

	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, found)
	require.Len(t, candidates, 1)
	assert.Equal(t, "beta.io", candidates[0].Domain)
}

func TestExtractCandidates_NoResults(t *testing.T) {
	llm := &mockAnthropicClient{}

	candidates, found, usage, failed := ExtractCandidates(context.Background(), llm,
		testConfig().Anthropic, testConfig().Extract, nil)

	assert.Empty(t, candidates)
	assert.Zero(t, found)
	assert.Zero(t, failed)
	assert.Zero(t, usage.InputTokens)
	llm.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestDomainExcluded(t *testing.T) {
	excluded := []string{"linkedin.com", "Indeed.com"}

	assert.True(t, domainExcluded("linkedin.com", excluded))
	assert.True(t, domainExcluded("jobs.linkedin.com", excluded))
	assert.True(t, domainExcluded("indeed.com", excluded), "exclusion list is case-insensitive")
	assert.False(t, domainExcluded("linkedin.company.com", excluded))
	assert.False(t, domainExcluded("acme.com", excluded))
	assert.False(t, domainExcluded("acme.com", nil))
}
