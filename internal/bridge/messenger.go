package bridge

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxrelay/voxrelay/internal/origin"
)

// WildcardOrigin is the accept-any-origin delivery target. It is only
// used in development contexts.
const WildcardOrigin = "*"

// Window is one embedding context the messenger can deliver to. In-process
// consumers implement it directly; remote frames are adapted by the Hub.
type Window interface {
	// ID uniquely identifies the window within the process.
	ID() string

	// Origin returns the window's normalized origin.
	Origin() string

	// Post delivers an envelope if targetOrigin matches the window's
	// origin (or is the wildcard). Delivery failures return an error.
	Post(env Envelope, targetOrigin string) error
}

// Handler receives inbound message payloads along with the sender origin.
type Handler func(payload []byte, origin string)

// Messenger is the send/receive facade for cross-frame messaging. It owns
// the envelope sequence counter, the duplicate and rate guards, and the
// single inbound handler slot.
type Messenger struct {
	self    Window
	policy  *origin.Policy
	deduper *Deduper
	rate    *RateWindow
	logger  *slog.Logger

	seq uint64

	// sendMu serializes the outbound path so messages to a given window
	// leave in send order.
	sendMu  sync.Mutex
	lastErr atomic.Value

	// handlerMu guards the single handler slot. Installing a second
	// handler replaces the first; handlers never stack.
	handlerMu sync.RWMutex
	handler   Handler
	errorSink func(env Envelope, senderOrigin string)
}

// MessengerOption is a functional option for configuring a Messenger.
type MessengerOption func(*Messenger)

// WithMessengerLogger sets a custom logger.
func WithMessengerLogger(logger *slog.Logger) MessengerOption {
	return func(m *Messenger) {
		m.logger = logger
	}
}

// WithDeduper sets a custom duplicate guard.
func WithDeduper(d *Deduper) MessengerOption {
	return func(m *Messenger) {
		m.deduper = d
	}
}

// WithRateWindow sets a custom send-rate guard.
func WithRateWindow(w *RateWindow) MessengerOption {
	return func(m *Messenger) {
		m.rate = w
	}
}

// WithErrorSink sets the sink that receives self-tagged error-report
// payloads before ordinary dispatch.
func WithErrorSink(sink func(env Envelope, senderOrigin string)) MessengerOption {
	return func(m *Messenger) {
		m.errorSink = sink
	}
}

// NewMessenger creates a Messenger for the given local window.
func NewMessenger(self Window, policy *origin.Policy, opts ...MessengerOption) *Messenger {
	m := &Messenger{
		self:    self,
		policy:  policy,
		deduper: NewDeduper(DefaultDedupeCapacity),
		rate:    NewRateWindow(DefaultRateCap, DefaultRateInterval),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.errorSink == nil {
		logger := m.logger
		m.errorSink = func(env Envelope, senderOrigin string) {
			logger.Error("frame error report",
				slog.String("origin", senderOrigin),
				slog.String("report", string(env.Payload)),
			)
		}
	}
	return m
}

// Send delivers payload to target, addressed at targetOrigin. It returns
// false when the send is rejected (duplicate, rate limit, unsafe target)
// or the transport fails; rejections never panic into the caller.
func (m *Messenger) Send(target Window, payload any, targetOrigin string) bool {
	if target == nil || (m.self != nil && target.ID() == m.self.ID()) {
		m.logger.Debug("send rejected: nil or same-window target")
		return false
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		m.fail(err, "unserializable payload")
		return false
	}

	// The dedupe key carries the window id: fan-out of one payload to
	// sibling frames sharing an origin is not a duplicate.
	if !m.deduper.ShouldProcess(target.ID() + "|" + targetOrigin + "|" + string(raw)) {
		m.logger.Debug("send suppressed: duplicate message",
			slog.String("window", target.ID()),
			slog.String("target_origin", targetOrigin),
		)
		return false
	}

	if err := m.rate.Allow(time.Now()); err != nil {
		m.fail(err, "send rate limit exceeded")
		return false
	}

	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	env := newEnvelope(m.sourceOrigin(), atomic.AddUint64(&m.seq, 1), raw, time.Now())

	// Development contexts deliver with the wildcard target up front.
	if m.policy.DevContext() {
		ok := m.post(target, env, WildcardOrigin)
		m.logger.Debug("dev-mode wildcard send",
			slog.String("window", target.ID()),
			slog.Bool("delivered", ok),
		)
		return ok
	}

	if m.policy.IsSafeTarget(targetOrigin) {
		if m.post(target, env, targetOrigin) {
			return true
		}
		return m.wildcardRetry(target, env)
	}

	// Unsafe target: fail closed. Builds carrying the dev tag may attempt
	// one logged wildcard delivery instead.
	if wildcardFallbackCompiledIn && m.policy.BypassEnabled() {
		m.logger.Warn("unsafe target, attempting wildcard fallback",
			slog.String("target_origin", targetOrigin),
		)
		return m.post(target, env, WildcardOrigin)
	}

	m.logger.Warn("send blocked: unsafe target origin",
		slog.String("target_origin", targetOrigin),
	)
	return false
}

// wildcardRetry retries a failed delivery once with the wildcard target.
// Compiled out of production builds.
func (m *Messenger) wildcardRetry(target Window, env Envelope) bool {
	if !wildcardFallbackCompiledIn {
		return false
	}
	m.logger.Warn("delivery failed, retrying with wildcard target",
		slog.String("window", target.ID()),
	)
	return m.post(target, env, WildcardOrigin)
}

// post performs one delivery attempt, converting any transport panic or
// error into a boolean failure.
func (m *Messenger) post(target Window, env Envelope, targetOrigin string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("transport panic during post", slog.Any("panic", r))
			ok = false
		}
	}()

	if err := target.Post(env, targetOrigin); err != nil {
		m.fail(err, "post failed")
		return false
	}
	return true
}

// Listen installs fn as the inbound handler and returns an unsubscribe
// function. Installing again replaces the previous handler; duplicate
// handlers never stack.
func (m *Messenger) Listen(fn Handler) (unsubscribe func()) {
	m.handlerMu.Lock()
	m.handler = fn
	m.handlerMu.Unlock()

	return func() {
		m.handlerMu.Lock()
		if m.handler != nil {
			m.handler = nil
		}
		m.handlerMu.Unlock()
	}
}

// Dispatch routes one inbound envelope through the receive-side policy
// rules. fromSelf marks messages originating from the local window, which
// are trusted unconditionally. Transports call this for every inbound
// message event.
func (m *Messenger) Dispatch(env Envelope, senderOrigin string, fromSelf bool) {
	// Diagnostic escape hatch: error reports reach the sink regardless of
	// the origin outcome. They are logged, never executed.
	if env.IsErrorReport() {
		m.errorSink(env, senderOrigin)
	}

	// Inbound duplicates are keyed on the envelope identity. The
	// timestamp keeps sibling frames with independent sequence counters
	// from colliding; peers that send bare payloads carry no envelope
	// and are never deduped.
	if !fromSelf && env.Seq != 0 {
		if !m.deduper.ShouldProcess(senderOrigin + "#" + env.Timestamp + "#" + strconv.FormatUint(env.Seq, 10)) {
			m.logger.Debug("inbound duplicate dropped",
				slog.String("origin", senderOrigin),
				slog.Uint64("seq", env.Seq),
			)
			return
		}
	}

	switch {
	case fromSelf:
		// Locally generated, trusted.
	case m.policy.IsAllowed(senderOrigin):
		// Allow-list, trusted family, or dev context per the policy.
	case wildcardFallbackCompiledIn && m.policy.BypassEnabled():
		m.logger.Warn("delivering despite origin rejection (bypass build)",
			slog.String("origin", senderOrigin),
		)
	default:
		m.logger.Warn("inbound message dropped",
			slog.String("origin", senderOrigin),
		)
		return
	}

	m.handlerMu.RLock()
	fn := m.handler
	m.handlerMu.RUnlock()
	if fn != nil {
		fn(env.Payload, senderOrigin)
	}
}

// LastError returns the most recent send-side failure, making hard stops
// like ErrRateLimited observable to callers that only see a false return.
func (m *Messenger) LastError() error {
	if err, ok := m.lastErr.Load().(error); ok {
		return err
	}
	return nil
}

func (m *Messenger) fail(err error, msg string) {
	m.lastErr.Store(err)
	m.logger.Error(msg, slog.String("error", err.Error()))
}

func (m *Messenger) sourceOrigin() string {
	if m.self == nil {
		return ""
	}
	return m.self.Origin()
}
