// Package ui provides styled console output for the relay server:
// colorized request lines, status badges, and the startup banner.
package ui

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

var (
	// Badge colors
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	warningBadge = color.New(color.FgYellow, color.Bold)
	errorBadge   = color.New(color.BgRed, color.FgWhite, color.Bold)
	infoBadge    = color.New(color.FgCyan, color.Bold)
	debugBadge   = color.New(color.FgMagenta)

	// Text colors
	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed)
	infoText    = color.New(color.FgCyan)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgMagenta, color.Bold)

	neonBlue = color.New(color.FgHiCyan, color.Bold)

	// Method colors
	methodPOST   = color.New(color.BgHiMagenta, color.FgBlack, color.Bold)
	methodGET    = color.New(color.BgHiCyan, color.FgBlack, color.Bold)
	methodPUT    = color.New(color.BgHiYellow, color.FgBlack, color.Bold)
	methodDELETE = color.New(color.BgHiRed, color.FgBlack, color.Bold)
)

// PrintSuccess logs a successful request with green styling.
func PrintSuccess(status int, msg string) {
	successBadge.Printf(" %d OK ", status)
	fmt.Print(" ")
	successText.Println(msg)
}

// PrintEndpointSwitch logs an endpoint failover.
// Format: ⚠️ [SWITCHING] from → to
func PrintEndpointSwitch(from, to string) {
	fmt.Print("⚠️  ")
	warningBadge.Print("[SWITCHING]")
	fmt.Print(" ")
	mutedText.Print(shortURL(from))
	warningText.Print(" → ")
	accentText.Println(shortURL(to))
}

// PrintDeadEndpoint logs when an endpoint is pulled from rotation.
// Format: 💀 [DEAD ENDPOINT] url pulled from rotation (reason)
func PrintDeadEndpoint(baseURL, reason string) {
	fmt.Print("💀 ")
	errorBadge.Print(" DEAD ENDPOINT ")
	fmt.Print(" ")
	errorText.Print(shortURL(baseURL))
	mutedText.Printf(" pulled from rotation (%s)\n", reason)
}

// PrintRelayInfo logs general relay information.
func PrintRelayInfo(msg string) {
	infoBadge.Print("[RELAY]")
	fmt.Print(" ")
	infoText.Println(msg)
}

// PrintDegraded logs when a request was answered by the local mock.
// Format: 🛟 DEGRADED | served canned response after N attempts
func PrintDegraded(attempts int) {
	warningBadge.Print("🛟 DEGRADED ")
	fmt.Print("| served canned response after ")
	warningText.Printf("%d", attempts)
	fmt.Println(" attempts")
}

// PrintCacheHit logs a cache hit with lightning styling.
// Format: ⚡ CACHE HIT | key:xxxx...xxxx | 0ms
func PrintCacheHit(cacheKey string, latency time.Duration) {
	neonBlue.Print("⚡ CACHE HIT ")
	fmt.Print("| key:")
	mutedText.Print(shortKey(cacheKey))
	fmt.Print(" | ")
	successText.Printf("%dms\n", latency.Milliseconds())
}

// PrintBridgeAttach logs a frame joining the bridge.
func PrintBridgeAttach(origin string, frames int) {
	infoBadge.Print("[BRIDGE]")
	fmt.Print(" frame attached from ")
	accentText.Print(origin)
	mutedText.Printf(" (%d connected)\n", frames)
}

// PrintRequest logs a request with styled output.
// Color-codes status, method, and latency for quick visual parsing.
func PrintRequest(method, path string, status int, latency time.Duration) {
	mutedText.Printf("%s ", time.Now().Format("15:04:05"))

	printMethodBadge(method)
	fmt.Print(" ")

	fmt.Printf("%-30s ", truncatePath(path, 30))

	printStatusBadge(status)
	fmt.Print(" ")

	printLatency(latency)
	fmt.Println()
}

// printMethodBadge prints the HTTP method with appropriate color.
func printMethodBadge(method string) {
	switch method {
	case "POST":
		methodPOST.Printf(" %s ", method)
	case "GET":
		methodGET.Printf(" %s ", method)
	case "PUT":
		methodPUT.Printf(" %s ", method)
	case "DELETE":
		methodDELETE.Printf(" %s ", method)
	default:
		debugBadge.Printf(" %s ", method)
	}
}

// printStatusBadge prints the status code with appropriate color.
func printStatusBadge(status int) {
	switch {
	case status >= 200 && status < 300:
		successBadge.Printf(" %d ", status)
	case status >= 300 && status < 400:
		infoBadge.Printf(" %d ", status)
	case status >= 400 && status < 500:
		warningBadge.Printf(" %d ", status)
	default:
		errorBadge.Printf(" %d ", status)
	}
}

// printLatency prints latency with color gradient.
// Green: < 100ms, Yellow: < 500ms, Red: >= 500ms
func printLatency(latency time.Duration) {
	ms := latency.Milliseconds()
	latencyStr := fmt.Sprintf("%4dms", ms)

	switch {
	case ms < 100:
		successText.Print(latencyStr)
	case ms < 500:
		warningText.Print(latencyStr)
	default:
		errorText.Print(latencyStr)
	}
}

// shortKey returns a short masked version of a cache key or credential.
// Format: xxxx...xxxx
func shortKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// shortURL trims a base URL for single-line badges.
func shortURL(u string) string {
	return truncatePath(u, 40)
}

// truncatePath truncates a path to maxLen characters.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return path[:maxLen-3] + "..."
}

// PrintStartupInfo prints styled server startup information.
func PrintStartupInfo(host string, port int, endpoints int, environment string) {
	fmt.Println()
	infoBadge.Print("[RELAY]")
	fmt.Print(" Server starting on ")
	neonBlue.Printf("http://%s:%d\n", host, port)

	infoBadge.Print("[RELAY]")
	fmt.Print(" Upstream endpoints: ")
	if endpoints > 0 {
		successText.Printf("%d", endpoints)
	} else {
		errorText.Print("0")
	}
	fmt.Print(" | Environment: ")
	accentText.Println(environment)

	fmt.Println()
	printEndpoints()
}

// printEndpoints prints the available API endpoints.
func printEndpoints() {
	mutedText.Println("  ┌──────────────────────────────────────────────────────────────┐")

	mutedText.Print("  │ ")
	methodPOST.Print(" POST ")
	fmt.Print(" /openai/chat/completions ")
	mutedText.Print(" Completion relay (OpenAI shape)")
	mutedText.Println(" │")

	mutedText.Print("  │ ")
	methodPOST.Print(" POST ")
	fmt.Print(" /assist/*                ")
	mutedText.Print(" Suggestions / bilingual / translate")
	mutedText.Println(" │")

	mutedText.Print("  │ ")
	methodGET.Print(" GET  ")
	fmt.Print(" /bridge                  ")
	mutedText.Print(" WebSocket frame bridge          ")
	mutedText.Println(" │")

	mutedText.Print("  │ ")
	methodGET.Print(" GET  ")
	fmt.Print(" /health                  ")
	mutedText.Print(" Health check                    ")
	mutedText.Println(" │")

	mutedText.Println("  └──────────────────────────────────────────────────────────────┘")
	fmt.Println()
}

// PrintShutdown prints a styled shutdown message.
func PrintShutdown() {
	fmt.Println()
	warningBadge.Print("[SHUTDOWN]")
	warningText.Println(" Graceful shutdown initiated...")
}

// PrintGoodbye prints a styled goodbye message.
func PrintGoodbye() {
	successBadge.Print(" OK ")
	fmt.Print(" ")
	successText.Println("Server stopped. Goodbye! 👋")
}
