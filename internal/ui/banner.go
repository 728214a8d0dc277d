// Package ui provides styled console output for the relay server.
package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// PrintBanner displays the ASCII art startup banner.
func PrintBanner() {
	fmt.Println()

	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)
	hiCyan := color.New(color.FgHiCyan)
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite)
	dim := color.New(color.FgHiBlack)

	cyan.Println("╔══════════════════════════════════════════════════════════════╗")

	cyan.Print("║  ")
	hiCyan.Print("██╗   ██╗ ██████╗ ██╗  ██╗")
	magenta.Print("██████╗ ███████╗██╗      █████╗ ██╗   ██╗")
	cyan.Println("  ║")

	cyan.Print("║  ")
	hiCyan.Print("██║   ██║██╔═══██╗╚██╗██╔╝")
	magenta.Print("██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝")
	cyan.Println("  ║")

	cyan.Print("║  ")
	hiCyan.Print("██║   ██║██║   ██║ ╚███╔╝ ")
	magenta.Print("██████╔╝█████╗  ██║     ███████║ ╚████╔╝ ")
	cyan.Println("  ║")

	cyan.Print("║  ")
	hiCyan.Print("╚██╗ ██╔╝██║   ██║ ██╔██╗ ")
	magenta.Print("██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝  ")
	cyan.Println("  ║")

	cyan.Print("║   ")
	hiCyan.Print("╚████╔╝ ╚██████╔╝██╔╝ ██╗")
	magenta.Print("██║  ██║███████╗███████╗██║  ██║   ██║   ")
	cyan.Println("  ║")

	cyan.Print("║    ")
	hiCyan.Print("╚═══╝   ╚═════╝ ╚═╝  ╚═╝")
	magenta.Print("╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝   ")
	cyan.Println("  ║")

	cyan.Println("╠══════════════════════════════════════════════════════════════╣")

	cyan.Print("║  ")
	yellow.Print("🎙 VOICE CALL RELAY")
	dim.Print("  │  ")
	white.Print("NEVER-FAIL MODE")
	dim.Print("  │  ")
	white.Print("v1.0.0")
	dim.Print("              ")
	cyan.Println("║")

	cyan.Println("╚══════════════════════════════════════════════════════════════╝")

	fmt.Println()
}

// PrintMiniBanner displays a smaller banner for constrained terminals.
func PrintMiniBanner() {
	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)

	fmt.Println()
	cyan.Print("╔══════════════════════════════════════╗")
	fmt.Println()
	cyan.Print("║  ")
	magenta.Print("VOXRELAY")
	cyan.Print(" 🎙 NEVER-FAIL MODE        ")
	cyan.Print("║")
	fmt.Println()
	cyan.Print("╚══════════════════════════════════════╝")
	fmt.Println()
	fmt.Println()
}
