package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxrelay/voxrelay/internal/assistant"
)

type fakeAssist struct {
	mu         sync.Mutex
	texts      []string
	bilinguals []string
}

func (f *fakeAssist) GetSuggestions(_ context.Context, text string) assistant.Suggestions {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return assistant.Suggestions{Suggestions: []string{"ok"}}
}

func (f *fakeAssist) GetBilingualResponses(_ context.Context, text string) assistant.BilingualResponses {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bilinguals = append(f.bilinguals, text)
	return assistant.BilingualResponses{Responses: []assistant.BilingualPair{{Primary: "Yes.", Secondary: "Да."}}}
}

func (f *fakeAssist) seenTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type capturePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (c *capturePublisher) publish(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return true
}

func (c *capturePublisher) wait(t *testing.T, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.payloads) >= n {
			out := append([][]byte(nil), c.payloads...)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d published events", n)
	return nil
}

func TestDebounceCollapsesRapidFinals(t *testing.T) {
	assist := &fakeAssist{}
	pub := &capturePublisher{}
	s := New(assist, pub.publish, WithDebounce(30*time.Millisecond))
	defer s.Close()

	s.OnUtterance(Utterance{Speaker: "other", Text: "how are", Final: true})
	s.OnUtterance(Utterance{Speaker: "other", Text: "how are you doing", Final: true})

	payloads := pub.wait(t, 1)
	require.Len(t, payloads, 1)
	assert.Equal(t, []string{"how are you doing"}, assist.seenTexts())

	var event map[string]any
	require.NoError(t, json.Unmarshal(payloads[0], &event))
	assert.Equal(t, "assistant-suggestions", event["type"])
	assert.Equal(t, s.ID(), event["sessionId"])
	assert.Equal(t, "how are you doing", event["utterance"])
}

func TestIgnoresSelfAndPartialUtterances(t *testing.T) {
	assist := &fakeAssist{}
	pub := &capturePublisher{}
	s := New(assist, pub.publish, WithDebounce(10*time.Millisecond))
	defer s.Close()

	s.OnUtterance(Utterance{Speaker: "self", Text: "my own words", Final: true})
	s.OnUtterance(Utterance{Speaker: "other", Text: "still talk", Final: false})
	s.OnUtterance(Utterance{Speaker: "other", Text: "", Final: true})

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, assist.seenTexts())
	assert.Empty(t, pub.payloads)
}

func TestBilingualSessionPublishesPairs(t *testing.T) {
	assist := &fakeAssist{}
	pub := &capturePublisher{}
	s := New(assist, pub.publish, WithDebounce(10*time.Millisecond), WithBilingual(true))
	defer s.Close()

	s.OnUtterance(Utterance{Speaker: "other", Text: "готов?", Final: true})

	payloads := pub.wait(t, 1)

	var event struct {
		Bilingual []assistant.BilingualPair `json:"bilingual"`
	}
	require.NoError(t, json.Unmarshal(payloads[0], &event))
	require.Len(t, event.Bilingual, 1)
	assert.Equal(t, "Да.", event.Bilingual[0].Secondary)
}

func TestCloseCancelsPendingFlush(t *testing.T) {
	assist := &fakeAssist{}
	pub := &capturePublisher{}
	s := New(assist, pub.publish, WithDebounce(30*time.Millisecond))

	s.OnUtterance(Utterance{Speaker: "other", Text: "never delivered", Final: true})
	s.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, assist.seenTexts())
	assert.Empty(t, pub.payloads)
}

func TestSessionIDsUnique(t *testing.T) {
	a := New(&fakeAssist{}, func([]byte) bool { return true })
	b := New(&fakeAssist{}, func([]byte) bool { return true })
	defer a.Close()
	defer b.Close()

	assert.NotEqual(t, a.ID(), b.ID())
}
