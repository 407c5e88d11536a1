package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/signals-cli/internal/config"
	"github.com/sells-group/signals-cli/pkg/anthropic"
)

func TestPlanQueries_ParsesPlan(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	llm := &mockAnthropicClient{}
	llm.On("CreateMessage", mock.Anything, systemContains("research strategist")).
		Return(textResponse(`{
			"queries": [
				{"query": "fintech startup \"hiring engineers\" site:greenhouse.io",
				 "target_signals": ["hiring_engineering"],
				 "expected_source_types": ["job_post"],
				 "rationale": "job boards reveal hiring velocity"},
				{"query": "fintech \"series b\" announcement 2026",
				 "target_signals": ["raised_funding"],
				 "expected_source_types": ["press_release", "news"],
				 "rationale": "funding press releases"}
			],
			"icp_summary": "US fintech companies",
			"signal_summary": "hiring and funding signals"
		}`), nil)

	plan, usage, err := PlanQueries(ctx, llm, cfg.Anthropic, cfg.Plan,
		testProfile(), testSignals(), nil)

	require.NoError(t, err)
	require.Len(t, plan.Queries, 2)
	assert.Equal(t, []string{"hiring_engineering"}, plan.Queries[0].TargetSignals)
	assert.Equal(t, "US fintech companies", plan.ICPSummary)
	assert.Positive(t, usage.InputTokens)
	llm.AssertExpectations(t)
}

func TestPlanQueries_DropsEmptyAndClampsToMax(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Plan = config.PlanConfig{MinQueries: 1, MaxQueries: 2}

	llm := &mockAnthropicClient{}
	llm.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse(`{
			"queries": [
				{"query": "   "},
				{"query": "first real query"},
				{"query": "second real query"},
				{"query": "third query beyond the cap"}
			]
		}`), nil)

	plan, _, err := PlanQueries(ctx, llm, cfg.Anthropic, cfg.Plan,
		testProfile(), testSignals(), nil)

	require.NoError(t, err)
	require.Len(t, plan.Queries, 2)
	assert.Equal(t, "first real query", plan.Queries[0].Query)
	assert.Equal(t, "second real query", plan.Queries[1].Query)
}

func TestPlanQueries_PromptCarriesRecentDomains(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	llm := &mockAnthropicClient{}
	llm.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.Messages) == 1 &&
			strings.Contains(req.Messages[0].Content, "seen-already.com")
	})).Return(textResponse(`{"queries": [{"query": "q"}]}`), nil)

	_, _, err := PlanQueries(ctx, llm, cfg.Anthropic, cfg.Plan,
		testProfile(), testSignals(), []string{"seen-already.com"})

	require.NoError(t, err)
	llm.AssertExpectations(t)
}

func TestPlanQueries_ErrorPropagates(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	llm := &mockAnthropicClient{}
	llm.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(nil, errors.New("overloaded"))

	_, _, err := PlanQueries(ctx, llm, cfg.Anthropic, cfg.Plan,
		testProfile(), testSignals(), nil)

	assert.Error(t, err)
}

func TestExpandWatchQueries(t *testing.T) {
	queries := ExpandWatchQueries(testSignals(), []string{"acme.com", "", "https://www.beta-corp.io/about"})

	// Two valid domains, two templated signals each.
	require.Len(t, queries, 4)

	assert.Equal(t, `"Acme" engineering jobs`, queries[0].Query)
	assert.Equal(t, []string{"hiring_engineering"}, queries[0].TargetSignals)
	assert.Equal(t, []string{"job_post"}, queries[0].ExpectedSourceTypes)
	assert.Contains(t, queries[0].Rationale, "acme.com")

	assert.Equal(t, `"Acme" raised funding`, queries[1].Query)

	// URL input is normalized to its registrable host.
	assert.Contains(t, queries[2].Rationale, "beta-corp.io")
	assert.Equal(t, `"Beta Corp" engineering jobs`, queries[2].Query)
}

func TestExpandWatchQueries_NoTemplatesNoQueries(t *testing.T) {
	signals := testSignals()[2:3] // hiring_sales has no templates
	assert.Empty(t, ExpandWatchQueries(signals, []string{"acme.com"}))
}

func TestCompanyNameFromDomain(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"acme.com", "Acme"},
		{"data-pipeline.io", "Data Pipeline"},
		{"snake_case.dev", "Snake Case"},
		{"www.acme.com", "Acme"},
		{"https://acme.com/about", "Acme"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompanyNameFromDomain(tt.domain), "domain %q", tt.domain)
	}
}
