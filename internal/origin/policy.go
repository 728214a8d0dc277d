// Package origin decides which browsing-context origins may exchange
// messages with the relay. The unit of trust is the normalized origin
// (scheme, leading "www." and port stripped, lowercased).
package origin

import (
	"log/slog"
	"strings"
)

// Config holds the static trust rules for a Policy.
// The allow-list and trusted roots are fixed for the process lifetime.
type Config struct {
	// AllowedOrigins is the exact-match allow-list. Entries may carry a
	// scheme or a www. prefix; they are normalized before comparison.
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`

	// TrustedRoots is a small set of root domains whose subdomains are
	// all accepted (suffix match on the normalized host).
	TrustedRoots []string `json:"trusted_roots" mapstructure:"trusted_roots"`

	// Bypass forces every origin to validate as allowed. It only takes
	// effect in binaries built with the "dev" tag; production builds
	// compile the escape hatch out entirely.
	Bypass bool `json:"bypass" mapstructure:"bypass"`

	// Environment is the runtime mode ("development" or "production").
	Environment string `json:"environment" mapstructure:"environment"`

	// Hostname is the host the relay believes it is running on. A value
	// of "localhost" puts the policy in a development context.
	Hostname string `json:"hostname" mapstructure:"hostname"`
}

// Policy validates inbound and outbound message origins.
// Construct once at process start; safe for concurrent use (no mutable state).
type Policy struct {
	allowed map[string]struct{}
	roots   []string
	bypass  bool
	dev     bool
	logger  *slog.Logger
}

// Option is a functional option for configuring a Policy.
type Option func(*Policy)

// WithLogger sets a custom logger for audit output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// New creates a Policy from the given trust rules.
func New(cfg Config, opts ...Option) *Policy {
	p := &Policy{
		allowed: make(map[string]struct{}, len(cfg.AllowedOrigins)),
		bypass:  cfg.Bypass && bypassCompiledIn,
		dev:     cfg.Environment == "development" || cfg.Hostname == "localhost",
		logger:  slog.Default(),
	}

	for _, o := range cfg.AllowedOrigins {
		if n := Normalize(o); n != "" {
			p.allowed[n] = struct{}{}
		}
	}
	for _, r := range cfg.TrustedRoots {
		if n := Normalize(r); n != "" {
			p.roots = append(p.roots, n)
		}
	}

	for _, opt := range opts {
		opt(p)
	}

	if cfg.Bypass && !bypassCompiledIn {
		p.logger.Warn("origin bypass requested but not compiled in, ignoring")
	}

	return p
}

// Normalize reduces an origin string to its comparable form:
// lowercase host with scheme, leading "www." and trailing port removed.
func Normalize(origin string) string {
	s := strings.ToLower(strings.TrimSpace(origin))

	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	// Drop any path the caller left on.
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}

	return s
}

// IsAllowed reports whether an inbound message from origin may be processed.
// Every decision is logged with the raw origin for audit.
func (p *Policy) IsAllowed(origin string) bool {
	ok, rule := p.evaluate(origin)
	p.audit("inbound", origin, ok, rule)
	return ok
}

// IsSafeTarget reports whether origin may be used as an outbound delivery
// target. The rules are symmetric with IsAllowed.
func (p *Policy) IsSafeTarget(origin string) bool {
	ok, rule := p.evaluate(origin)
	p.audit("outbound", origin, ok, rule)
	return ok
}

// DevContext reports whether the policy is operating in a recognized
// development context (explicit environment flag or localhost hostname).
func (p *Policy) DevContext() bool {
	return p.dev
}

// BypassEnabled reports whether the validation bypass is active.
// Always false in production builds.
func (p *Policy) BypassEnabled() bool {
	return p.bypass
}

func (p *Policy) evaluate(origin string) (bool, string) {
	if p.bypass {
		return true, "bypass"
	}

	host := Normalize(origin)

	// An empty origin is locally generated only in a development context.
	// In production it is rejected, never silently allowed.
	if p.dev && (host == "" || strings.Contains(host, "localhost")) {
		return true, "dev-context"
	}
	if host == "" {
		return false, "empty-origin"
	}

	if _, ok := p.allowed[host]; ok {
		return true, "allow-list"
	}

	for _, root := range p.roots {
		if host == root || strings.HasSuffix(host, "."+root) {
			return true, "trusted-root"
		}
	}

	return false, "no-match"
}

func (p *Policy) audit(direction, origin string, allowed bool, rule string) {
	attrs := []any{
		slog.String("direction", direction),
		slog.String("origin", origin),
		slog.Bool("allowed", allowed),
		slog.String("rule", rule),
	}
	switch {
	case rule == "bypass":
		p.logger.Warn("origin check bypassed", attrs...)
	case allowed:
		p.logger.Debug("origin accepted", attrs...)
	default:
		p.logger.Warn("origin rejected", attrs...)
	}
}
