// Package session drives the live call loop: finalized utterances from
// the other party arrive, get debounced, fan out to the assistant, and
// the results are published to the attached frame over the bridge.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxrelay/voxrelay/internal/assistant"
)

// DefaultDebounce is how long a session waits after the last utterance
// fragment before asking the assistant. Rapid-fire transcript updates
// collapse into one request.
const DefaultDebounce = 600 * time.Millisecond

// PublishFunc delivers one event payload to the session's frame and
// reports whether delivery happened. Callers bind it to a messenger and
// target window.
type PublishFunc func(payload []byte) bool

// Assist is the slice of the assistant facade a session calls.
type Assist interface {
	GetSuggestions(ctx context.Context, text string) assistant.Suggestions
	GetBilingualResponses(ctx context.Context, text string) assistant.BilingualResponses
}

// Utterance is one finalized transcript entry.
type Utterance struct {
	Speaker string `json:"speaker"` // "self" or "other"
	Text    string `json:"text"`
	Final   bool   `json:"final"`
}

// suggestionEvent is the payload published to the frame.
type suggestionEvent struct {
	Type        string                    `json:"type"`
	SessionID   string                    `json:"sessionId"`
	Utterance   string                    `json:"utterance"`
	Suggestions []string                  `json:"suggestions,omitempty"`
	Bilingual   []assistant.BilingualPair `json:"bilingual,omitempty"`
	Degraded    bool                      `json:"degraded,omitempty"`
}

// Session debounces incoming utterances and publishes assistant output.
type Session struct {
	id      string
	assist  Assist
	publish PublishFunc
	logger  *slog.Logger

	debounce  time.Duration
	bilingual bool

	mu      sync.Mutex
	pending string
	timer   *time.Timer
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Session.
type Option func(*Session)

// WithDebounce overrides the debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

// WithBilingual switches the session to bilingual reply pairs.
func WithBilingual(on bool) Option {
	return func(s *Session) { s.bilingual = on }
}

// WithSessionLogger sets a custom logger.
func WithSessionLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New creates a Session delivering events through publish.
func New(assist Assist, publish PublishFunc, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       uuid.NewString(),
		assist:   assist,
		publish:  publish,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// OnUtterance feeds a transcript entry into the session. Only the other
// party's finalized utterances trigger assistant calls; everything else
// is dropped. Consecutive finals within the debounce window collapse,
// with the latest text winning.
func (s *Session) OnUtterance(u Utterance) {
	if !u.Final || u.Speaker == "self" || u.Text == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.pending = u.Text
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.flush)
}

// flush runs after the debounce interval with no new finals.
func (s *Session) flush() {
	s.mu.Lock()
	text := s.pending
	s.pending = ""
	closed := s.closed
	s.mu.Unlock()

	if closed || text == "" {
		return
	}

	event := suggestionEvent{
		Type:      "assistant-suggestions",
		SessionID: s.id,
		Utterance: text,
	}

	if s.bilingual {
		result := s.assist.GetBilingualResponses(s.ctx, text)
		event.Bilingual = result.Responses
		event.Degraded = result.Degraded
	} else {
		result := s.assist.GetSuggestions(s.ctx, text)
		event.Suggestions = result.Suggestions
		event.Degraded = result.Degraded
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("encode suggestion event", slog.String("error", err.Error()))
		return
	}

	if !s.publish(payload) {
		s.logger.Warn("suggestion event not delivered", slog.String("session_id", s.id))
	}
}

// Close stops the session. A pending debounce fire becomes a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.cancel()
}
