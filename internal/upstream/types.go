// Package upstream issues completion requests against a rotation of proxy
// endpoints with retry, backoff, timeout, and deterministic mock fallback.
// Whatever backend answers, the response converges to one normalized
// CompletionResult shape before any consumer sees it.
package upstream

import (
	"encoding/json"
	"strings"
)

// Message is one role-tagged entry in a completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionParams are the knobs for a single logical completion call.
type CompletionParams struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	N           int
}

// completionPayload is the wire body sent to the upstream API.
type completionPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	N           int       `json:"n"`
}

// Choice is one alternative completion in a result.
type Choice struct {
	Message Message `json:"message"`
}

// CompletionResult is the normalized completion shape. Every backend's
// response is converted to this form; Degraded marks results synthesized
// locally after retry exhaustion so UI layers can indicate degraded mode.
type CompletionResult struct {
	ID       string   `json:"id"`
	Model    string   `json:"model"`
	Choices  []Choice `json:"choices"`
	Degraded bool     `json:"degraded,omitempty"`
}

// FirstContent returns the trimmed content of the first choice, or "".
func (r CompletionResult) FirstContent() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Choices[0].Message.Content)
}

// Contents returns the trimmed, non-empty contents of all choices.
func (r CompletionResult) Contents() []string {
	out := make([]string, 0, len(r.Choices))
	for _, c := range r.Choices {
		if s := strings.TrimSpace(c.Message.Content); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalizeResponse parses a raw upstream body into a CompletionResult.
// It tolerates both chat-style choices ({message:{content}}) and legacy
// text choices ({text}); anything without usable content is malformed.
func normalizeResponse(body []byte, model string) (CompletionResult, error) {
	var wire struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Choices []struct {
			Message *Message `json:"message"`
			Text    string   `json:"text"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return CompletionResult{}, &MalformedResponseError{Reason: "invalid JSON", Err: err}
	}
	if len(wire.Choices) == 0 {
		return CompletionResult{}, &MalformedResponseError{Reason: "no choices in response"}
	}

	result := CompletionResult{
		ID:    wire.ID,
		Model: wire.Model,
	}
	if result.Model == "" {
		result.Model = model
	}

	for _, c := range wire.Choices {
		switch {
		case c.Message != nil:
			result.Choices = append(result.Choices, Choice{Message: *c.Message})
		case c.Text != "":
			result.Choices = append(result.Choices, Choice{Message: Message{Role: "assistant", Content: c.Text}})
		}
	}
	if len(result.Choices) == 0 {
		return CompletionResult{}, &MalformedResponseError{Reason: "choices carry no content"}
	}

	return result, nil
}
