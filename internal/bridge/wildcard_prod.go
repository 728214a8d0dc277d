//go:build !dev

package bridge

// wildcardFallbackCompiledIn gates the wildcard-delivery fallbacks at
// build time. Production binaries fail closed instead.
const wildcardFallbackCompiledIn = false
