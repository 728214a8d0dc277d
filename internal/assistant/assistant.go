// Package assistant turns call transcript text into reply suggestions,
// bilingual reply pairs, and translations. Every operation degrades to a
// deterministic rule-based mock instead of surfacing transport or parse
// failures; only missing-credential configuration errors propagate.
package assistant

import (
	"context"
	"log/slog"
	"strings"

	"github.com/voxrelay/voxrelay/internal/upstream"
)

// Completer is the slice of the upstream client the assistant needs.
type Completer interface {
	Complete(ctx context.Context, params upstream.CompletionParams) upstream.CompletionResult
}

// StyleSource supplies the response style at call time so settings
// changes apply to every subsequent request.
type StyleSource interface {
	ResponseStyle() string
}

// staticStyle is the default StyleSource.
type staticStyle string

func (s staticStyle) ResponseStyle() string { return string(s) }

// Suggestions is the short-reply result shape.
type Suggestions struct {
	Suggestions []string `json:"suggestions"`
	Degraded    bool     `json:"degraded,omitempty"`
}

// BilingualResponses is the paired-language result shape.
type BilingualResponses struct {
	Responses []BilingualPair `json:"responses"`
	Degraded  bool            `json:"degraded,omitempty"`
}

// Translation is the translation result shape.
type Translation struct {
	Translation string `json:"translation"`
	Degraded    bool   `json:"degraded,omitempty"`
}

// Assistant orchestrates prompt construction, the upstream call, and
// tolerant response parsing for the three call-assistant operations.
type Assistant struct {
	completer Completer
	style     StyleSource
	logger    *slog.Logger

	primaryLang   string
	secondaryLang string
}

// Option is a functional option for configuring an Assistant.
type Option func(*Assistant)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) { a.logger = logger }
}

// WithStyleSource sets the response-style source.
func WithStyleSource(src StyleSource) Option {
	return func(a *Assistant) { a.style = src }
}

// WithLanguages sets the bilingual language pair.
func WithLanguages(primary, secondary string) Option {
	return func(a *Assistant) {
		a.primaryLang = primary
		a.secondaryLang = secondary
	}
}

// New creates an Assistant over the given completer.
func New(completer Completer, opts ...Option) *Assistant {
	a := &Assistant{
		completer:     completer,
		style:         staticStyle(StyleCasual),
		logger:        slog.Default(),
		primaryLang:   "en",
		secondaryLang: "ru",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetSuggestions returns up to 3 short reply suggestions for the other
// party's last utterance. Zero extractable suggestions is treated as a
// retryable failure once; after that the rule-based mock answers.
func (a *Assistant) GetSuggestions(ctx context.Context, text string) Suggestions {
	params := upstream.CompletionParams{
		Messages: []upstream.Message{
			{Role: "system", Content: suggestionsPrompt(a.style.ResponseStyle())},
			{Role: "user", Content: text},
		},
		Temperature: 0.8,
		MaxTokens:   60,
		N:           3,
	}

	// One re-ask when the upstream answered but nothing usable came out.
	for attempt := 0; attempt < 2; attempt++ {
		result := a.completer.Complete(ctx, params)
		if result.Degraded {
			break
		}
		if contents := result.Contents(); len(contents) > 0 {
			return Suggestions{Suggestions: dedupeStrings(contents)}
		}
		a.logger.Warn("no usable suggestions in upstream result",
			slog.Int("attempt", attempt+1),
		)
	}

	a.logger.Info("serving rule-based suggestions", slog.String("reason", "upstream degraded or empty"))
	return Suggestions{Suggestions: mockSuggestions(text), Degraded: true}
}

// GetBilingualResponses returns up to 3 reply pairs in the configured
// language pair, parsed tolerantly from whatever shape the model emits.
func (a *Assistant) GetBilingualResponses(ctx context.Context, text string) BilingualResponses {
	result := a.completer.Complete(ctx, upstream.CompletionParams{
		Messages: []upstream.Message{
			{Role: "system", Content: bilingualPrompt(a.style.ResponseStyle(), a.primaryLang, a.secondaryLang)},
			{Role: "user", Content: text},
		},
		Temperature: 0.7,
		MaxTokens:   200,
		N:           1,
	})

	if !result.Degraded {
		if pairs := parseBilingual(result.FirstContent()); len(pairs) > 0 {
			return BilingualResponses{Responses: pairs}
		}
		a.logger.Warn("bilingual parse chain found no pairs")
	}

	a.logger.Info("serving rule-based bilingual pairs")
	return BilingualResponses{Responses: mockBilingual(text), Degraded: true}
}

// GetTranslation translates text between the given languages. The first
// choice's content is the translation, verbatim after trimming; any
// failure serves the static phrase table.
func (a *Assistant) GetTranslation(ctx context.Context, text, sourceLang, targetLang string) Translation {
	result := a.completer.Complete(ctx, upstream.CompletionParams{
		Messages: []upstream.Message{
			{Role: "system", Content: translationPrompt(sourceLang, targetLang)},
			{Role: "user", Content: text},
		},
		Temperature: 0.3,
		MaxTokens:   200,
		N:           1,
	})

	if !result.Degraded {
		if translated := result.FirstContent(); translated != "" {
			return Translation{Translation: translated}
		}
		a.logger.Warn("empty translation in upstream result")
	}

	a.logger.Info("serving phrase-table translation",
		slog.String("source", sourceLang),
		slog.String("target", targetLang),
	)
	return Translation{Translation: mockTranslation(text, sourceLang, targetLang), Degraded: true}
}

// dedupeStrings drops duplicate suggestions while preserving order.
func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
