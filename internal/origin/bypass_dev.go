//go:build dev

package origin

// bypassCompiledIn is true only under the "dev" build tag. Test harnesses
// that need to force all origins through validation build with -tags dev.
const bypassCompiledIn = true
