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

// --- Citation validation ---

func TestValidateCitations_DemotesUnfetchedURL(t *testing.T) {
	report := &model.SignalMatchReport{
		Domain: "acme.com",
		Matches: []model.SignalMatch{
			{
				SignalID:         "hiring_engineering",
				Result:           model.ResultYes,
				Confidence:       0.9,
				EvidenceURLs:     []string{"https://acme.com/fabricated"},
				EvidenceSnippets: []string{"made up"},
				Reasoning:        "the page says so",
			},
		},
	}
	fetched := map[string]bool{"https://acme.com/careers": true}

	demoted := ValidateCitations(report, fetched)

	assert.Equal(t, 1, demoted)
	m := report.Matches[0]
	assert.Equal(t, model.ResultUnknown, m.Result)
	assert.Zero(t, m.Confidence)
	assert.Nil(t, m.EvidenceURLs)
	assert.Nil(t, m.EvidenceSnippets)
	assert.Contains(t, m.Reasoning, demotionMarker)
}

func TestValidateCitations_DemotesYesWithNoCitations(t *testing.T) {
	report := &model.SignalMatchReport{
		Matches: []model.SignalMatch{
			{SignalID: "raised_funding", Result: model.ResultYes, Confidence: 0.8},
		},
	}

	demoted := ValidateCitations(report, map[string]bool{"https://acme.com": true})

	assert.Equal(t, 1, demoted)
	assert.Equal(t, model.ResultUnknown, report.Matches[0].Result)
}

func TestValidateCitations_SubsetRule(t *testing.T) {
	// One fetched URL plus one fabricated URL: not a subset, so the whole
	// match is demoted.
	report := &model.SignalMatchReport{
		Matches: []model.SignalMatch{
			{
				SignalID:     "hiring_engineering",
				Result:       model.ResultYes,
				Confidence:   0.9,
				EvidenceURLs: []string{"https://acme.com/careers", "https://acme.com/invented"},
			},
		},
	}
	fetched := map[string]bool{"https://acme.com/careers": true}

	assert.Equal(t, 1, ValidateCitations(report, fetched))
	assert.Equal(t, model.ResultUnknown, report.Matches[0].Result)
}

func TestValidateCitations_ValidMatchUntouched(t *testing.T) {
	report := &model.SignalMatchReport{
		Matches: []model.SignalMatch{
			{
				SignalID:     "hiring_engineering",
				Result:       model.ResultYes,
				Confidence:   0.85,
				EvidenceURLs: []string{"https://acme.com/careers"},
				Reasoning:    "careers page lists open roles",
			},
			{SignalID: "raised_funding", Result: model.ResultNo, Confidence: 0.7},
			{SignalID: "expansion", Result: model.ResultUnknown},
		},
	}
	fetched := map[string]bool{"https://acme.com/careers": true}

	assert.Zero(t, ValidateCitations(report, fetched))
	assert.Equal(t, model.ResultYes, report.Matches[0].Result)
	assert.InDelta(t, 0.85, report.Matches[0].Confidence, 0.001)
	assert.NotContains(t, report.Matches[0].Reasoning, demotionMarker)
}

// --- Aggregate recomputation ---

func TestRecomputeReport_MeanOfPositives(t *testing.T) {
	report := &model.SignalMatchReport{
		// A stale model-reported aggregate that must be overwritten.
		OverallConfidence: 0.99,
		Matches: []model.SignalMatch{
			yesMatch("hiring_engineering", 0.9, "https://acme.com/careers"),
			yesMatch("hiring_sales", 0.6, "https://acme.com/careers"),
			{SignalID: "raised_funding", Result: model.ResultNo, Confidence: 0.8},
			{SignalID: "expansion", Result: model.ResultUnknown},
		},
	}

	RecomputeReport(report, testSignals())

	assert.InDelta(t, 0.75, report.OverallConfidence, 0.001)
	assert.False(t, report.Disqualified)
}

func TestRecomputeReport_NoPositivesZeroConfidence(t *testing.T) {
	report := &model.SignalMatchReport{
		OverallConfidence: 0.8,
		Matches: []model.SignalMatch{
			{SignalID: "hiring_engineering", Result: model.ResultUnknown},
		},
	}

	RecomputeReport(report, testSignals())

	assert.Zero(t, report.OverallConfidence)
}

func TestRecomputeReport_DisqualifierSetsFlag(t *testing.T) {
	report := &model.SignalMatchReport{
		Matches: []model.SignalMatch{
			yesMatch("already_customer", 1.0, "https://acme.com/case-study"),
		},
	}

	RecomputeReport(report, testSignals())

	assert.True(t, report.Disqualified)
	assert.Equal(t, "Already a customer", report.DisqualifierReason)
}

// --- Evaluation stage ---

func TestEvaluateSignals_ValidYesSurvives(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	candidates := []model.CandidateCompany{testCandidate("acme.com")}
	evidence := map[string][]model.EvidenceChunk{
		"acme.com": {primaryChunk("https://acme.com/careers")},
	}

	llm := &mockAnthropicClient{}
	llm.On("CreateMessage", mock.Anything, systemContains("signal analyst")).
		Return(textResponse(`{"matches": [
			{"signal_id": "hiring_engineering", "result": "yes", "confidence": 0.9,
			 "evidence_urls": ["https://acme.com/careers"],
			 "evidence_snippets": ["hiring across every engineering team"],
			 "reasoning": "careers page lists engineering roles"}
		]}`), nil)

	var progressed []int
	reports, usage, failures := EvaluateSignals(ctx, llm, cfg.Anthropic, testSignals(),
		candidates, evidence, func(stage string, completed, total int) {
			assert.Equal(t, "evaluate", stage)
			progressed = append(progressed, completed)
		})

	require.Len(t, reports, 1)
	assert.Empty(t, failures)
	assert.Positive(t, usage.InputTokens)
	assert.Equal(t, []int{1}, progressed)

	report := reports[0]
	positives := report.PositiveMatches()
	require.Len(t, positives, 1)
	assert.Equal(t, "hiring_engineering", positives[0].SignalID)
	assert.Equal(t, "Hiring engineers", positives[0].SignalName)
	assert.InDelta(t, 0.9, report.OverallConfidence, 0.001)

	// Signals the model skipped come back unknown.
	assert.Len(t, report.Matches, len(testSignals()))
	llm.AssertExpectations(t)
}

func TestEvaluateSignals_DemotesHallucinatedCitation(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	candidates := []model.CandidateCompany{testCandidate("acme.com")}
	evidence := map[string][]model.EvidenceChunk{
		"acme.com": {primaryChunk("https://acme.com/careers")},
	}

	llm := &mockAnthropicClient{}
	llm.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse(`{"matches": [
			{"signal_id": "raised_funding", "result": "yes", "confidence": 0.95,
			 "evidence_urls": ["https://techcrunch.com/never-fetched"],
			 "reasoning": "confident but unsupported"}
		]}`), nil)

	reports, _, failures := EvaluateSignals(ctx, llm, cfg.Anthropic, testSignals(),
		candidates, evidence, nil)

	require.Len(t, reports, 1)
	assert.Empty(t, failures)

	report := reports[0]
	assert.Empty(t, report.PositiveMatches())
	assert.Zero(t, report.OverallConfidence)

	funding := findMatch(t, report, "raised_funding")
	assert.Equal(t, model.ResultUnknown, funding.Result)
	assert.Zero(t, funding.Confidence)
	assert.Contains(t, funding.Reasoning, demotionMarker)
}

func TestEvaluateSignals_FallsBackOnError(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	candidates := []model.CandidateCompany{testCandidate("broken.com")}
	evidence := map[string][]model.EvidenceChunk{
		"broken.com": {newsChunk("https://news.example.com/broken")},
	}

	llm := &mockAnthropicClient{}
	llm.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(nil, errors.New("api unavailable"))

	reports, _, failures := EvaluateSignals(ctx, llm, cfg.Anthropic, testSignals(),
		candidates, evidence, nil)

	require.Len(t, reports, 1)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "broken.com")

	report := reports[0]
	assert.Len(t, report.Matches, len(testSignals()))
	for _, m := range report.Matches {
		assert.Equal(t, model.ResultUnknown, m.Result)
	}
	assert.False(t, report.Disqualified)
}

func TestEvaluateSignals_EmptyEvidenceSkipsModelCall(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	candidates := []model.CandidateCompany{testCandidate("quiet.com")}

	llm := &mockAnthropicClient{}
	reports, usage, failures := EvaluateSignals(ctx, llm, cfg.Anthropic, testSignals(),
		candidates, map[string][]model.EvidenceChunk{}, nil)

	require.Len(t, reports, 1)
	assert.Empty(t, failures)
	assert.Zero(t, usage.InputTokens)
	for _, m := range reports[0].Matches {
		assert.Equal(t, model.ResultUnknown, m.Result)
	}
	llm.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestNormalizeMatches_ClampsAndFills(t *testing.T) {
	raw := []model.SignalMatch{
		{SignalID: "hiring_engineering", Result: "maybe", Confidence: 1.7},
		{SignalID: "hiring_engineering", Result: model.ResultYes, Confidence: 0.5}, // duplicate dropped
		{SignalID: "not_a_signal", Result: model.ResultYes, Confidence: 0.9},
		{SignalID: "raised_funding", Result: model.ResultNo, Confidence: -0.2},
	}

	out := normalizeMatches(raw, testSignals())

	require.Len(t, out, len(testSignals()))

	eng := out[0]
	assert.Equal(t, "hiring_engineering", eng.SignalID)
	assert.Equal(t, model.ResultUnknown, eng.Result, "unrecognized verdict becomes unknown")
	assert.InDelta(t, 1.0, eng.Confidence, 0.001, "confidence clamped to 1")

	funding := out[1]
	assert.Equal(t, model.ResultNo, funding.Result)
	assert.Zero(t, funding.Confidence, "negative confidence clamped to 0")

	for _, m := range out {
		assert.NotEqual(t, "not_a_signal", m.SignalID)
		assert.NotEmpty(t, m.SignalName)
	}
}

func findMatch(t *testing.T, report model.SignalMatchReport, signalID string) model.SignalMatch {
	t.Helper()
	for _, m := range report.Matches {
		if m.SignalID == signalID {
			return m
		}
	}
	t.Fatalf("no match for signal %q", signalID)
	return model.SignalMatch{}
}
