package upstream

import "strings"

// Kind determines how a proxy endpoint's URL is constructed.
type Kind string

const (
	// KindSelfHosted is our own thin relay server; the upstream path is
	// mounted under its /openai segment.
	KindSelfHosted Kind = "self-hosted"

	// KindPathProxy is a vendor proxy that forwards by path, using the
	// same /openai mount convention.
	KindPathProxy Kind = "path-proxy"

	// KindQueryProxy is a vendor proxy whose base URL already embeds the
	// upstream target in its query string.
	KindQueryProxy Kind = "query-proxy"

	// KindWrapProxy is a fetch-wrapper proxy; like KindQueryProxy the
	// upstream target lives in the base URL.
	KindWrapProxy Kind = "wrap-proxy"

	// KindDirect talks straight to the upstream API under its /v1 prefix.
	KindDirect Kind = "direct"
)

// Endpoint is one proxy base URL plus the kind that governs its URL rules.
type Endpoint struct {
	BaseURL string `json:"base_url" mapstructure:"base_url"`
	Kind    Kind   `json:"kind" mapstructure:"kind"`
}

// IsValid checks the endpoint has the required fields.
func (e Endpoint) IsValid() bool {
	return e.BaseURL != "" && e.Kind != ""
}

const (
	relayMount   = "/openai"
	directPrefix = "/v1"
)

// BuildURL joins an endpoint base with a logical upstream path such as
// "/chat/completions". It is idempotent: applying it to its own output
// never duplicates path segments.
func BuildURL(e Endpoint, logicalPath string) string {
	if !strings.HasPrefix(logicalPath, "/") {
		logicalPath = "/" + logicalPath
	}

	switch e.Kind {
	case KindQueryProxy, KindWrapProxy:
		// The upstream target is embedded in the base's query string;
		// only the upstream-side suffix is appended, no local prefix.
		if strings.HasSuffix(e.BaseURL, logicalPath) {
			return e.BaseURL
		}
		return e.BaseURL + logicalPath

	case KindDirect:
		return joinUnder(e.BaseURL, directPrefix, logicalPath)

	default: // KindSelfHosted, KindPathProxy
		return joinUnder(e.BaseURL, relayMount, logicalPath)
	}
}

// joinUnder appends prefix+path to base, inserting the prefix segment only
// when the base does not already end with it and skipping entirely when
// the base already ends with the full joined path.
func joinUnder(base, prefix, path string) string {
	b := strings.TrimSuffix(base, "/")
	if strings.HasSuffix(b, prefix+path) {
		return b
	}
	if strings.HasSuffix(b, prefix) {
		return b + path
	}
	return b + prefix + path
}
