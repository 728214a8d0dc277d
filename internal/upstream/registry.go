package upstream

import (
	"log/slog"
	"sync"
	"time"
)

// Registry holds the fixed rotation of proxy endpoints and the
// process-wide "current" cursor. Rotating affects the next call issued by
// any caller, not just the one that triggered the rotation, so all state
// lives behind one mutex.
type Registry struct {
	mu        sync.Mutex
	endpoints []Endpoint
	index     int

	// dead tracks endpoints pulled from rotation after persistent
	// failure, with the time they were marked. Revival is automatic once
	// the cooldown elapses.
	dead     map[string]time.Time
	cooldown time.Duration

	logger *slog.Logger
}

// RegistryOption is a functional option for configuring a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets a custom logger.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a Registry over the given endpoints, in rotation
// order. cooldown controls dead-endpoint revival; zero disables marking
// entirely (every endpoint stays in rotation).
func NewRegistry(endpoints []Endpoint, cooldown time.Duration, opts ...RegistryOption) *Registry {
	r := &Registry{
		endpoints: make([]Endpoint, 0, len(endpoints)),
		dead:      make(map[string]time.Time),
		cooldown:  cooldown,
		logger:    slog.Default(),
	}
	seen := make(map[string]struct{}, len(endpoints))
	for _, e := range endpoints {
		if !e.IsValid() {
			continue
		}
		if _, dup := seen[e.BaseURL]; dup {
			continue
		}
		seen[e.BaseURL] = struct{}{}
		r.endpoints = append(r.endpoints, e)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Current returns the endpoint at the rotation cursor, skipping past any
// endpoint still in cooldown. When every endpoint is dead the cursor's
// endpoint is returned anyway; a guess beats refusing to try.
func (r *Registry) Current() Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reviveExpired()
	return r.skipDeadLocked()
}

// Rotate advances the cursor to the next endpoint, wrapping, and returns
// it. Called after persistent failure of the current endpoint.
func (r *Registry) Rotate() Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reviveExpired()
	if len(r.endpoints) == 0 {
		return Endpoint{}
	}

	from := r.endpoints[r.index]
	r.index = (r.index + 1) % len(r.endpoints)
	next := r.skipDeadLocked()

	r.logger.Info("rotated proxy endpoint",
		slog.String("from", from.BaseURL),
		slog.String("to", next.BaseURL),
	)
	return next
}

// MarkDead pulls an endpoint from rotation for the cooldown duration.
// No-op when cooldown is disabled or the endpoint is not registered.
func (r *Registry) MarkDead(e Endpoint) {
	if r.cooldown == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, known := range r.endpoints {
		if known.BaseURL == e.BaseURL {
			r.dead[e.BaseURL] = time.Now()
			r.logger.Warn("endpoint marked dead",
				slog.String("base_url", e.BaseURL),
				slog.Duration("cooldown", r.cooldown),
			)
			return
		}
	}
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.endpoints)
}

// DeadCount returns the number of endpoints currently in cooldown.
func (r *Registry) DeadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviveExpired()
	return len(r.dead)
}

// skipDeadLocked returns the first live endpoint at or after the cursor,
// advancing the cursor past dead ones. Falls back to the cursor's
// endpoint after a full lap. Caller holds r.mu.
func (r *Registry) skipDeadLocked() Endpoint {
	if len(r.endpoints) == 0 {
		return Endpoint{}
	}
	for i := 0; i < len(r.endpoints); i++ {
		e := r.endpoints[r.index]
		if _, isDead := r.dead[e.BaseURL]; !isDead {
			return e
		}
		r.index = (r.index + 1) % len(r.endpoints)
	}
	return r.endpoints[r.index]
}

// reviveExpired returns cooled-down endpoints to rotation. Caller holds r.mu.
func (r *Registry) reviveExpired() {
	if r.cooldown == 0 {
		return
	}
	now := time.Now()
	for url, at := range r.dead {
		if now.Sub(at) >= r.cooldown {
			delete(r.dead, url)
			r.logger.Info("endpoint revived", slog.String("base_url", url))
		}
	}
}
