package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/signals-cli/internal/config"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/scrape"
	"github.com/sells-group/signals-cli/internal/store"
	"github.com/sells-group/signals-cli/pkg/anthropic"
	"github.com/sells-group/signals-cli/pkg/jina"
	"github.com/sells-group/signals-cli/pkg/newsfeed"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// textResponse wraps a JSON payload as a single-block model reply.
func textResponse(payload string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: payload}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

// systemContains matches a CreateMessage request by a substring of its first
// system block, which is distinct per pipeline stage.
func systemContains(fragment string) any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.System) > 0 && strings.Contains(req.System[0].Text, fragment)
	})
}

// --- Jina Mock ---

type mockJinaClient struct {
	mock.Mock
}

func (m *mockJinaClient) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.ReadResponse), args.Error(1)
}

func (m *mockJinaClient) Search(ctx context.Context, query string, opts ...jina.SearchOption) (*jina.SearchResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.SearchResponse), args.Error(1)
}

// --- Newsfeed Mock ---

type mockNewsClient struct {
	mock.Mock
}

func (m *mockNewsClient) CompanyNews(ctx context.Context, company string) ([]newsfeed.Item, error) {
	args := m.Called(ctx, company)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]newsfeed.Item), args.Error(1)
}

// --- Page Reader Mock ---

type mockPageReader struct {
	mock.Mock
}

func (m *mockPageReader) Read(ctx context.Context, url string) (*scrape.Page, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scrape.Page), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, run *model.SignalRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *mockStore) CompleteRun(ctx context.Context, run *model.SignalRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.SignalRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SignalRun), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.SignalRun, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SignalRun), args.Error(1)
}

func (m *mockStore) CountRunsByStatus(ctx context.Context) ([]store.StatusCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.StatusCount), args.Error(1)
}

func (m *mockStore) SaveLeads(ctx context.Context, leads []model.LeadRecord) error {
	args := m.Called(ctx, leads)
	return args.Error(0)
}

func (m *mockStore) GetLead(ctx context.Context, leadID string) (*model.LeadRecord, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LeadRecord), args.Error(1)
}

func (m *mockStore) ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.LeadRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LeadRecord), args.Error(1)
}

func (m *mockStore) UpdateLeadStatus(ctx context.Context, leadID string, status model.LeadStatus) error {
	args := m.Called(ctx, leadID, status)
	return args.Error(0)
}

func (m *mockStore) CountLeadsByStatus(ctx context.Context) ([]store.StatusCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.StatusCount), args.Error(1)
}

func (m *mockStore) MarkDomainSeen(ctx context.Context, domain string) error {
	args := m.Called(ctx, domain)
	return args.Error(0)
}

func (m *mockStore) WasDomainSeen(ctx context.Context, domain string, within time.Duration) (bool, error) {
	args := m.Called(ctx, domain, within)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ListSeenDomains(ctx context.Context, within time.Duration) ([]model.SeenDomain, error) {
	args := m.Called(ctx, within)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SeenDomain), args.Error(1)
}

func (m *mockStore) AddDNC(ctx context.Context, domain, reason string) error {
	args := m.Called(ctx, domain, reason)
	return args.Error(0)
}

func (m *mockStore) RemoveDNC(ctx context.Context, domain string) error {
	args := m.Called(ctx, domain)
	return args.Error(0)
}

func (m *mockStore) IsDNC(ctx context.Context, domain string) (bool, error) {
	args := m.Called(ctx, domain)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ListDNC(ctx context.Context) ([]model.DNCEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DNCEntry), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Shared fixtures ---

// testConfig keeps batches serial and retries off so tests run fast and
// deterministically.
func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			Model:             "claude-sonnet-4-5-20250929",
			MaxTokens:         4096,
			Temperature:       0.2,
			StructuredRetries: 0,
		},
		Search: config.SearchConfig{
			Concurrency:        1,
			MaxResultsPerQuery: 10,
		},
		Extract: config.ExtractConfig{
			ChunkSize:     20,
			MinConfidence: 0.6,
		},
		Evidence: config.EvidenceConfig{
			Concurrency:         1,
			FetchTimeoutSecs:    1,
			FetchRetries:        0,
			MaxContentBytes:     1 << 18,
			MaxSourcesPerDomain: 5,
			MinSnippetChars:     30,
		},
		Plan: config.PlanConfig{
			MinQueries: 1,
			MaxQueries: 10,
		},
		Pipeline: config.PipelineConfig{
			DefaultLimit:       20,
			SeenDomainTTLHours: 0,
		},
	}
}

func testSignals() []model.SignalDefinition {
	return []model.SignalDefinition{
		{
			ID: "hiring_engineering", Name: "Hiring engineers", Category: "hiring",
			Priority: model.PriorityHigh, Weight: 5,
			Question:       "Is the company actively hiring software engineers?",
			QueryTemplates: []string{`"{company}" engineering jobs`},
		},
		{
			ID: "raised_funding", Name: "Raised funding", Category: "funding",
			Priority: model.PriorityHigh, Weight: 5,
			Question:       "Has the company raised a funding round in the last 12 months?",
			QueryTemplates: []string{`"{company}" raised funding`},
		},
		{
			ID: "hiring_sales", Name: "Hiring sales", Category: "hiring",
			Priority: model.PriorityMedium, Weight: 3,
			Question: "Is the company hiring sales or go-to-market roles?",
		},
		{
			ID: "expansion", Name: "Expansion", Category: "growth",
			Priority: model.PriorityMedium, Weight: 3,
			Question: "Is the company opening offices or entering new markets?",
		},
		{
			ID: "product_launch", Name: "Product launch", Category: "product",
			Priority: model.PriorityLow, Weight: 1,
			Question: "Has the company launched a major product recently?",
		},
		{
			ID: "already_customer", Name: "Already a customer", Category: "relationship",
			IsDisqualifier: true,
			Question:       "Is the company already a customer?",
		},
	}
}

func testProfile() model.Profile {
	return model.Profile{
		Offer:        "DevOps observability platform",
		Industries:   []string{"Fintech", "SaaS"},
		Geographies:  []string{"United States"},
		TargetTitles: []string{"VP Engineering", "CTO"},
	}
}

// testReport builds a minimal validated report with the given matches.
func testReport(domain string, matches ...model.SignalMatch) model.SignalMatchReport {
	report := model.SignalMatchReport{
		Domain:      domain,
		CompanyName: CompanyNameFromDomain(domain),
		Matches:     matches,
	}
	RecomputeReport(&report, testSignals())
	return report
}

func yesMatch(signalID string, confidence float64, urls ...string) model.SignalMatch {
	return model.SignalMatch{
		SignalID:     signalID,
		Result:       model.ResultYes,
		Confidence:   confidence,
		EvidenceURLs: urls,
		Reasoning:    "supported by cited evidence",
	}
}

func primaryChunk(url string) model.EvidenceChunk {
	return model.NewEvidenceChunk(url, "Careers", "We are hiring across every engineering team this quarter.", model.SourceJobPost, time.Now().UTC())
}

func newsChunk(url string) model.EvidenceChunk {
	return model.NewEvidenceChunk(url, "Coverage", "The firm was mentioned alongside competitors in a roundup.", model.SourceNews, time.Now().UTC())
}
