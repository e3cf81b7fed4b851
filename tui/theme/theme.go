// Package theme holds the lipgloss styles shared by nudge's CLI output,
// log formatter and watch TUI.
package theme

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/nudge/config"
)

const defaultThemeName = "dusk"

// Colors is the palette a theme is built from.
type Colors struct {
	Green     lipgloss.TerminalColor
	Yellow    lipgloss.TerminalColor
	Red       lipgloss.TerminalColor
	Cyan      lipgloss.TerminalColor
	Blue      lipgloss.TerminalColor
	Violet    lipgloss.TerminalColor
	MutedText lipgloss.TerminalColor
	Border    lipgloss.TerminalColor
	Selected  lipgloss.TerminalColor
}

// Theme holds the pre-configured styles.
type Theme struct {
	Colors Colors

	Header lipgloss.Style
	Title  lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Bold   lipgloss.Style
	Muted  lipgloss.Style
	Accent lipgloss.Style

	TableHeader   lipgloss.Style
	TableSelected lipgloss.Style
	Box           lipgloss.Style
}

var palettes = map[string]func() Colors{
	"dusk":     duskColors,
	"terminal": terminalColors,
}

// DefaultTheme is built once from NUDGE_THEME or the `tui.theme` config key.
var DefaultTheme = NewThemeWithName(themeName())

// NewThemeWithName builds a theme from a palette name, falling back to the default palette.
func NewThemeWithName(name string) *Theme {
	palette, ok := palettes[normalize(name)]
	if !ok {
		palette = palettes[defaultThemeName]
	}
	c := palette()

	return &Theme{
		Colors:  c,
		Header:  lipgloss.NewStyle().Bold(true).MarginBottom(1),
		Title:   lipgloss.NewStyle().Bold(true).Underline(true),
		Success: lipgloss.NewStyle().Foreground(c.Green),
		Error:   lipgloss.NewStyle().Foreground(c.Red),
		Warning: lipgloss.NewStyle().Foreground(c.Yellow),
		Info:    lipgloss.NewStyle().Foreground(c.Blue),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(c.MutedText),
		Accent:  lipgloss.NewStyle().Foreground(c.Cyan),
		TableHeader: lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(c.Border).
			BorderBottom(true),
		TableSelected: lipgloss.NewStyle().Bold(true).Background(c.Selected),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c.Border).
			Padding(0, 1),
	}
}

// ModeStyle returns the style used to render a trigger mode name.
func (t *Theme) ModeStyle(mode string) lipgloss.Style {
	switch mode {
	case "armed":
		return t.Warning.Bold(true)
	case "candidate_ready", "awaiting_response":
		return t.Success.Bold(true)
	case "cooldown":
		return lipgloss.NewStyle().Foreground(t.Colors.Violet)
	case "paused":
		return t.Muted.Italic(true)
	}
	return t.Info
}

func normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}

func themeName() string {
	if name := normalize(os.Getenv("NUDGE_THEME")); name != "" {
		return name
	}

	cfg, err := config.LoadDefault()
	if err != nil || cfg == nil {
		return defaultThemeName
	}
	var tuiCfg struct {
		Theme string `yaml:"theme"`
	}
	if err := cfg.UnmarshalExtension("tui", &tuiCfg); err == nil && tuiCfg.Theme != "" {
		return normalize(tuiCfg.Theme)
	}
	return defaultThemeName
}

func duskColors() Colors {
	return Colors{
		Green:     lipgloss.AdaptiveColor{Light: "#3F7D4E", Dark: "#8FC27A"},
		Yellow:    lipgloss.AdaptiveColor{Light: "#9A6B12", Dark: "#E8B75A"},
		Red:       lipgloss.AdaptiveColor{Light: "#B3363B", Dark: "#F2707A"},
		Cyan:      lipgloss.AdaptiveColor{Light: "#2E7A8C", Dark: "#74C7D6"},
		Blue:      lipgloss.AdaptiveColor{Light: "#3B5F9E", Dark: "#8AA8E6"},
		Violet:    lipgloss.AdaptiveColor{Light: "#6A4C93", Dark: "#B59CE0"},
		MutedText: lipgloss.AdaptiveColor{Light: "#6E6A7C", Dark: "#8A8597"},
		Border:    lipgloss.AdaptiveColor{Light: "#C2BFCC", Dark: "#3C3A48"},
		Selected:  lipgloss.AdaptiveColor{Light: "#E4E1F0", Dark: "#2A2838"},
	}
}

func terminalColors() Colors {
	return Colors{
		Green:     lipgloss.Color("2"),
		Yellow:    lipgloss.Color("3"),
		Red:       lipgloss.Color("1"),
		Cyan:      lipgloss.Color("6"),
		Blue:      lipgloss.Color("4"),
		Violet:    lipgloss.Color("5"),
		MutedText: lipgloss.Color("8"),
		Border:    lipgloss.Color("8"),
		Selected:  lipgloss.Color("0"),
	}
}
