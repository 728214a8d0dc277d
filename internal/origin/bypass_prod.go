//go:build !dev

package origin

// bypassCompiledIn gates the validation bypass at build time. Production
// binaries carry false here, so the Bypass config flag cannot disable
// origin checks no matter how the process is configured.
const bypassCompiledIn = false
