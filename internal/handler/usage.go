package handler

import (
	"strings"
	"sync"
	"unicode"

	"github.com/voxrelay/voxrelay/internal/upstream"
)

// TokensPerWord is the approximation ratio (1 word ≈ 1.3 tokens). Close
// enough for usage reporting without shipping a tokenizer.
const TokensPerWord = 1.3

// Usage is the OpenAI-shaped token usage block attached to relayed
// completion responses. Proxy endpoints often drop it; clients expect it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// usageMeter accumulates per-process token totals for the console stats.
type usageMeter struct {
	mu               sync.RWMutex
	promptTokens     int64
	completionTokens int64
}

var meter = &usageMeter{}

// TotalTokens returns the cumulative token estimate since startup.
func TotalTokens() (prompt, completion int64) {
	meter.mu.RLock()
	defer meter.mu.RUnlock()
	return meter.promptTokens, meter.completionTokens
}

// ResetUsage clears the cumulative counters (useful for testing).
func ResetUsage() {
	meter.mu.Lock()
	defer meter.mu.Unlock()
	meter.promptTokens = 0
	meter.completionTokens = 0
}

// EstimateTokens estimates the number of tokens in a text string.
// Counts words by letter/number runs, then applies the 1.3 multiplier.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	wordCount := 0
	inWord := false

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if !inWord {
				wordCount++
				inWord = true
			}
		} else {
			inWord = false
		}
	}

	tokens := int(float64(wordCount) * TokensPerWord)
	if tokens == 0 && wordCount > 0 {
		tokens = 1
	}

	return tokens
}

// estimateUsage builds the usage block for a request/result pair and
// feeds the cumulative meter.
func estimateUsage(messages []upstream.Message, result upstream.CompletionResult) Usage {
	var prompt strings.Builder
	for _, m := range messages {
		prompt.WriteString(m.Content)
		prompt.WriteString(" ")
	}

	var completion strings.Builder
	for _, content := range result.Contents() {
		completion.WriteString(content)
		completion.WriteString(" ")
	}

	u := Usage{
		PromptTokens:     EstimateTokens(prompt.String()),
		CompletionTokens: EstimateTokens(completion.String()),
	}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens

	meter.mu.Lock()
	meter.promptTokens += int64(u.PromptTokens)
	meter.completionTokens += int64(u.CompletionTokens)
	meter.mu.Unlock()

	return u
}
