package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// StructuredOptions configure a CompleteStructured call.
type StructuredOptions struct {
	// SchemaName labels the expected payload in prompts and errors
	// ("query_plan", "signal_matches"). Defaults to "response".
	SchemaName string
	// Schema is a JSON shape description appended to the system prompt.
	// Optional; callers may embed the shape in their own prompt instead.
	Schema string
	// MaxRetries bounds re-asks after an unparseable response. The first
	// attempt is not a retry, so MaxRetries=2 allows three calls total.
	MaxRetries int
}

// CompleteStructured sends req and parses the model's reply into T. When the
// reply is not valid JSON for T, the bad reply and a corrective user message
// are appended and the request is retried up to opts.MaxRetries times. Token
// usage is accumulated across all attempts, including failed ones. API errors
// are returned immediately; the SDK already retries transport failures.
func CompleteStructured[T any](ctx context.Context, client Client, req MessageRequest, opts StructuredOptions) (*T, TokenUsage, error) {
	var usage TokenUsage

	name := opts.SchemaName
	if name == "" {
		name = "response"
	}
	if opts.Schema != "" {
		req.System = append(req.System, SystemBlock{
			Text: fmt.Sprintf("Respond with a single valid JSON object matching the %s schema below. No prose before or after the JSON.\n\n%s", name, opts.Schema),
		})
	}

	attempts := opts.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	messages := req.Messages
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptReq := req
		attemptReq.Messages = messages

		resp, err := client.CreateMessage(ctx, attemptReq)
		if err != nil {
			return nil, usage, eris.Wrapf(err, "anthropic: %s completion", name)
		}
		usage.Add(resp.Usage)

		text := ExtractText(resp)
		var out T
		if err := json.Unmarshal([]byte(CleanJSON(text)), &out); err != nil {
			lastErr = err
			zap.L().Warn("structured response not parseable",
				zap.String("schema", name),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			messages = append(messages,
				Message{Role: "assistant", Content: text},
				Message{Role: "user", Content: fmt.Sprintf("That was not valid JSON for the %s schema. Reply again with only the corrected JSON object.", name)},
			)
			continue
		}
		return &out, usage, nil
	}

	return nil, usage, eris.Wrapf(lastErr, "anthropic: %s completion unparseable after %d attempts", name, attempts)
}

// ExtractText concatenates all text content blocks from a response.
func ExtractText(resp *MessageResponse) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// CleanJSON strips markdown code fences and any prose surrounding the
// outermost JSON value. Models occasionally wrap JSON in ```json fences or
// lead with a sentence despite instructions.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return s
	}
	open := s[start]
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}
	end := strings.LastIndexByte(s, closing)
	if end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
