package handler

import (
	"testing"

	"github.com/voxrelay/voxrelay/internal/upstream"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single word", "hello", 1},
		{"ten words", "one two three four five six seven eight nine ten", 13},
		{"punctuation splits words", "hello, world! how are you?", 6},
		{"numbers count as words", "room 42 on floor 3", 6},
		{"whitespace only", "   \t\n  ", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateTokens(tt.text)
			if got != tt.want {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestEstimateUsage(t *testing.T) {
	ResetUsage()
	defer ResetUsage()

	messages := []upstream.Message{
		{Role: "system", Content: "You are a helpful assistant"},
		{Role: "user", Content: "hello there"},
	}
	result := upstream.CompletionResult{
		Choices: []upstream.Choice{
			{Message: upstream.Message{Role: "assistant", Content: "General Kenobi"}},
		},
	}

	u := estimateUsage(messages, result)

	if u.PromptTokens == 0 {
		t.Error("expected non-zero prompt tokens")
	}
	if u.CompletionTokens == 0 {
		t.Error("expected non-zero completion tokens")
	}
	if u.TotalTokens != u.PromptTokens+u.CompletionTokens {
		t.Errorf("total %d != prompt %d + completion %d",
			u.TotalTokens, u.PromptTokens, u.CompletionTokens)
	}

	prompt, completion := TotalTokens()
	if prompt != int64(u.PromptTokens) || completion != int64(u.CompletionTokens) {
		t.Errorf("meter (%d, %d) does not match usage (%d, %d)",
			prompt, completion, u.PromptTokens, u.CompletionTokens)
	}
}
