package upstream

import (
	"crypto/sha256"
	"encoding/hex"
)

// mockLines are the canned assistant contents used when every attempt is
// exhausted. They cycle by choice index so n-choice requests still get n
// distinct entries, deterministically.
var mockLines = []string{
	"Okay, got it.",
	"Could you say that again?",
	"One moment, please.",
}

// MockCompletion synthesizes a deterministic CompletionResult from the
// request input. Same input, same result: the ID is a digest of the
// conversation, tagged with a mock- prefix, and Degraded is set so
// consumers can indicate degraded mode.
func MockCompletion(params CompletionParams, model string) CompletionResult {
	n := params.N
	if n < 1 {
		n = 1
	}

	h := sha256.New()
	for _, m := range params.Messages {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}
	digest := hex.EncodeToString(h.Sum(nil))[:12]

	result := CompletionResult{
		ID:       "mock-" + digest,
		Model:    model,
		Degraded: true,
	}
	for i := 0; i < n; i++ {
		result.Choices = append(result.Choices, Choice{
			Message: Message{
				Role:    "assistant",
				Content: mockLines[i%len(mockLines)],
			},
		})
	}
	return result
}

// lastUserContent returns the content of the final user message, for
// diagnostic logging on the degraded path.
func lastUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
