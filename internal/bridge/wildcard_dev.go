//go:build dev

package bridge

// wildcardFallbackCompiledIn enables the logged wildcard-delivery
// fallbacks for test-harness builds only.
const wildcardFallbackCompiledIn = true
