package anthropic

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns canned responses in order, recording each request.
type scriptedClient struct {
	responses []*MessageResponse
	errs      []error
	requests  []MessageRequest
}

func (c *scriptedClient) CreateMessage(_ context.Context, req MessageRequest) (*MessageResponse, error) {
	i := len(c.requests)
	c.requests = append(c.requests, req)
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i >= len(c.responses) {
		return nil, eris.New("scripted client exhausted")
	}
	return c.responses[i], nil
}

func textResponse(text string, in, out int64) *MessageResponse {
	return &MessageResponse{
		Content: []ContentBlock{{Type: "text", Text: text}},
		Usage:   TokenUsage{InputTokens: in, OutputTokens: out},
	}
}

type widget struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCompleteStructured_ParsesJSON(t *testing.T) {
	client := &scriptedClient{
		responses: []*MessageResponse{textResponse(`{"name":"gear","count":3}`, 100, 20)},
	}

	out, usage, err := CompleteStructured[widget](context.Background(), client, MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 512,
		Messages:  []Message{{Role: "user", Content: "make a widget"}},
	}, StructuredOptions{SchemaName: "widget"})

	require.NoError(t, err)
	assert.Equal(t, "gear", out.Name)
	assert.Equal(t, 3, out.Count)
	assert.Equal(t, int64(100), usage.InputTokens)
	assert.Equal(t, int64(20), usage.OutputTokens)
}

func TestCompleteStructured_StripsCodeFences(t *testing.T) {
	client := &scriptedClient{
		responses: []*MessageResponse{textResponse("```json\n{\"name\":\"fenced\",\"count\":1}\n```", 10, 5)},
	}

	out, _, err := CompleteStructured[widget](context.Background(), client, MessageRequest{}, StructuredOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fenced", out.Name)
}

func TestCompleteStructured_RetriesOnMalformed(t *testing.T) {
	client := &scriptedClient{
		responses: []*MessageResponse{
			textResponse("Sure! Here is the widget you asked for.", 50, 10),
			textResponse(`{"name":"second try","count":2}`, 60, 15),
		},
	}

	out, usage, err := CompleteStructured[widget](context.Background(), client, MessageRequest{
		Messages: []Message{{Role: "user", Content: "widget please"}},
	}, StructuredOptions{SchemaName: "widget", MaxRetries: 2})

	require.NoError(t, err)
	assert.Equal(t, "second try", out.Name)
	assert.Equal(t, int64(110), usage.InputTokens, "usage accumulates across attempts")

	// The retry carries the bad reply and a corrective instruction.
	require.Len(t, client.requests, 2)
	retry := client.requests[1].Messages
	require.Len(t, retry, 3)
	assert.Equal(t, "assistant", retry[1].Role)
	assert.Contains(t, retry[2].Content, "widget schema")
}

func TestCompleteStructured_ExhaustsRetries(t *testing.T) {
	client := &scriptedClient{
		responses: []*MessageResponse{
			textResponse("not json", 1, 1),
			textResponse("still not json", 1, 1),
		},
	}

	_, usage, err := CompleteStructured[widget](context.Background(), client, MessageRequest{}, StructuredOptions{
		SchemaName: "widget",
		MaxRetries: 1,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unparseable after 2 attempts")
	assert.Equal(t, int64(2), usage.InputTokens)
	assert.Len(t, client.requests, 2)
}

func TestCompleteStructured_APIErrorNotRetried(t *testing.T) {
	client := &scriptedClient{
		errs: []error{eris.New("rate limited")},
	}

	_, _, err := CompleteStructured[widget](context.Background(), client, MessageRequest{}, StructuredOptions{
		SchemaName: "widget",
		MaxRetries: 3,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "widget completion")
	assert.Len(t, client.requests, 1, "an API failure is not re-asked")
}

func TestCompleteStructured_AppendsSchemaBlock(t *testing.T) {
	client := &scriptedClient{
		responses: []*MessageResponse{textResponse(`{"name":"x","count":0}`, 1, 1)},
	}

	_, _, err := CompleteStructured[widget](context.Background(), client, MessageRequest{
		System: []SystemBlock{{Text: "base prompt"}},
	}, StructuredOptions{
		SchemaName: "widget",
		Schema:     `{"name": "string", "count": "number"}`,
	})

	require.NoError(t, err)
	require.Len(t, client.requests, 1)
	sys := client.requests[0].System
	require.Len(t, sys, 2)
	assert.Equal(t, "base prompt", sys[0].Text)
	assert.Contains(t, sys[1].Text, "widget schema")
	assert.Contains(t, sys[1].Text, `"count": "number"`)
}

func TestExtractText_MultipleBlocks(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "part one "},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "part two"},
		},
	}
	assert.Equal(t, "part one part two", ExtractText(resp))
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", `Here you go: {"a":1}`, `{"a":1}`},
		{"trailing prose", `{"a":1} Hope that helps!`, `{"a":1}`},
		{"array", `The list: [1,2,3] done`, `[1,2,3]`},
		{"whitespace", "  \n {\"a\":1} \n ", `{"a":1}`},
		{"no json at all", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}
