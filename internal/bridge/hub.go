package bridge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voxrelay/voxrelay/internal/origin"
)

const (
	// frameWriteTimeout bounds a single frame write.
	frameWriteTimeout = 10 * time.Second

	// frameReadLimit bounds inbound message size.
	frameReadLimit = 64 * 1024
)

// Frame is a remote embedding context attached over WebSocket. It
// implements Window so the Messenger can deliver to it like any
// in-process window.
type Frame struct {
	id     string
	origin string
	conn   *websocket.Conn

	// writeMu serializes writes; envelopes leave in send order.
	writeMu sync.Mutex
}

// ID returns the frame's process-unique identifier.
func (f *Frame) ID() string { return f.id }

// Origin returns the frame's normalized origin.
func (f *Frame) Origin() string { return f.origin }

// Post writes env to the frame when targetOrigin addresses it. A
// mismatched target is a delivery failure, mirroring the browser
// postMessage target-origin check.
func (f *Frame) Post(env Envelope, targetOrigin string) error {
	if targetOrigin != WildcardOrigin && origin.Normalize(targetOrigin) != f.origin {
		return &TargetMismatchError{Want: targetOrigin, Have: f.origin}
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	f.conn.SetWriteDeadline(time.Now().Add(frameWriteTimeout))
	return f.conn.WriteJSON(env)
}

// TargetMismatchError reports a delivery addressed at an origin the frame
// does not have.
type TargetMismatchError struct {
	Want string
	Have string
}

func (e *TargetMismatchError) Error() string {
	return "bridge: delivery target " + e.Want + " does not match frame origin " + e.Have
}

// Hub owns the set of attached frames and pumps their inbound messages
// through the Messenger's dispatch rules.
type Hub struct {
	messenger *Messenger
	policy    *origin.Policy
	logger    *slog.Logger
	upgrader  websocket.Upgrader

	mu     sync.RWMutex
	frames map[string]*Frame
}

// HubOption is a functional option for configuring a Hub.
type HubOption func(*Hub)

// WithHubLogger sets a custom logger.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// NewHub creates a Hub. The upgrader's origin check defers to the policy,
// so a frame from a rejected origin never completes the handshake.
func NewHub(messenger *Messenger, policy *origin.Policy, opts ...HubOption) *Hub {
	h := &Hub{
		messenger: messenger,
		policy:    policy,
		logger:    slog.Default(),
		frames:    make(map[string]*Frame),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return policy.IsAllowed(r.Header.Get("Origin"))
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attach upgrades the request to a WebSocket frame, registers it, and
// starts its read pump. The caller is expected to have authenticated the
// request already.
func (h *Hub) Attach(w http.ResponseWriter, r *http.Request) (*Frame, error) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	frame := &Frame{
		id:     uuid.NewString(),
		origin: origin.Normalize(r.Header.Get("Origin")),
		conn:   conn,
	}
	conn.SetReadLimit(frameReadLimit)

	h.mu.Lock()
	h.frames[frame.id] = frame
	h.mu.Unlock()

	h.logger.Info("frame attached",
		slog.String("frame_id", frame.id),
		slog.String("origin", frame.origin),
	)

	go h.readPump(frame)
	return frame, nil
}

// readPump reads envelopes off the frame until the connection closes and
// routes each one through the messenger's receive rules.
func (h *Hub) readPump(frame *Frame) {
	defer h.detach(frame)

	for {
		_, data, err := frame.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("frame read error",
					slog.String("frame_id", frame.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// Bare payloads without an envelope still get dispatched;
			// the wrapper is relay metadata, not a requirement on peers.
			env = Envelope{Payload: data}
		}

		h.messenger.Dispatch(env, frame.origin, false)
	}
}

// detach removes the frame and closes its connection.
func (h *Hub) detach(frame *Frame) {
	h.mu.Lock()
	delete(h.frames, frame.id)
	h.mu.Unlock()

	frame.conn.Close()
	h.logger.Info("frame detached", slog.String("frame_id", frame.id))
}

// Broadcast sends payload to every attached frame whose origin matches
// targetOrigin, returning the number of successful deliveries.
func (h *Hub) Broadcast(payload any, targetOrigin string) int {
	h.mu.RLock()
	targets := make([]*Frame, 0, len(h.frames))
	for _, f := range h.frames {
		targets = append(targets, f)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, f := range targets {
		if h.messenger.Send(f, payload, targetOrigin) {
			delivered++
		}
	}
	return delivered
}

// FrameCount returns the number of currently attached frames.
func (h *Hub) FrameCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.frames)
}
