// Package tui contains terminal setup shared by nudge's interactive commands.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// InitializeTUI prepares the terminal environment for TUI applications.
// When `CLICOLOR_FORCE=1` or `COLORTERM=truecolor` is set it forces the
// truecolor profile, so output stays styled under test harnesses and CI.
// NO_COLOR wins over both.
func InitializeTUI() {
	if os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	if os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor" {
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}
