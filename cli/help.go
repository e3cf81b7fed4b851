package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/nudge/tui/theme"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	maxWidth = 60
	minWidth = 40
)

// HelpSection is an extra titled list rendered after a command's examples,
// one name and description per row.
type HelpSection struct {
	Title string
	Rows  [][2]string
}

var (
	helpSections   = make(map[*cobra.Command][]HelpSection)
	helpSectionsMu sync.RWMutex
)

// AddHelpSection appends s to cmd's styled help.
func AddHelpSection(cmd *cobra.Command, s HelpSection) {
	helpSectionsMu.Lock()
	helpSections[cmd] = append(helpSections[cmd], s)
	helpSectionsMu.Unlock()
}

func sectionsFor(cmd *cobra.Command) []HelpSection {
	helpSectionsMu.RLock()
	defer helpSectionsMu.RUnlock()
	return helpSections[cmd]
}

// SetStyledHelp applies nudge styling to a command's help output.
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(renderHelp)
}

// ApplyStyledHelpRecursive applies styled help to cmd and every subcommand.
// Usage output is suppressed; errors are reported by the ErrorHandler.
// Call it after all subcommands have been added.
func ApplyStyledHelpRecursive(cmd *cobra.Command) {
	cmd.SetHelpFunc(renderHelp)
	cmd.SetUsageFunc(func(*cobra.Command) error { return nil })
	for _, sub := range cmd.Commands() {
		ApplyStyledHelpRecursive(sub)
	}
}

// terminalWidth returns the stdout width capped at maxWidth.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < minWidth || width > maxWidth {
		return maxWidth
	}
	return width
}

// wrapText wraps each paragraph of text at width, keeping existing line breaks.
func wrapText(text string, width int) string {
	if width <= 0 {
		width = maxWidth
	}

	var out []string
	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) <= width {
			out = append(out, paragraph)
			continue
		}
		line := ""
		for _, word := range strings.Fields(paragraph) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= width:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// splitExamples separates an "Examples:" block from the rest of a long description.
func splitExamples(long string) (description, examples string) {
	for _, marker := range []string{"\nExamples:\n", "\nExample:\n"} {
		if idx := strings.Index(long, marker); idx != -1 {
			return strings.TrimSpace(long[:idx]), strings.TrimSpace(long[idx+len(marker):])
		}
	}
	return strings.TrimSpace(long), ""
}

// parseChoices splits a usage string of the form "Thing: a, b, or c" into its
// description and choices. Fewer than three choices are left inline.
func parseChoices(usage string) (description string, choices []string) {
	colon := strings.Index(usage, ": ")
	if colon == -1 {
		return usage, nil
	}

	list, suffix := usage[colon+2:], ""
	if paren := strings.Index(list, " ("); paren != -1 {
		list, suffix = list[:paren], list[paren:]
	}
	parts := strings.Split(list, ", ")
	if len(parts) < 3 {
		return usage, nil
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(strings.TrimPrefix(p, "or "))
	}
	return usage[:colon+1] + suffix, parts
}

func flagName(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	}
	return "    --" + f.Name
}

type helpWriter struct {
	w       io.Writer
	t       *theme.Theme
	width   int
	heading lipgloss.Style
	name    lipgloss.Style
	flag    lipgloss.Style
	sub     lipgloss.Style
}

func newHelpWriter(w io.Writer) *helpWriter {
	t := theme.DefaultTheme
	return &helpWriter{
		w:       w,
		t:       t,
		width:   terminalWidth() - 2,
		heading: lipgloss.NewStyle().Italic(true).Foreground(t.Colors.Yellow),
		name:    lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Blue),
		flag:    lipgloss.NewStyle().Foreground(t.Colors.Violet),
		sub:     lipgloss.NewStyle().Foreground(t.Colors.Cyan),
	}
}

func (h *helpWriter) line(s string) {
	fmt.Fprintln(h.w, " "+s)
}

func (h *helpWriter) section(title string) {
	fmt.Fprintln(h.w)
	h.line(h.heading.Render(title))
}

func (h *helpWriter) paragraph(text string, style *lipgloss.Style) {
	for _, l := range strings.Split(wrapText(text, h.width), "\n") {
		if style != nil {
			l = style.Render(l)
		}
		h.line(l)
	}
}

// rows prints aligned name/description pairs.
func (h *helpWriter) rows(rows [][2]string, style lipgloss.Style) {
	pad := 0
	for _, r := range rows {
		if len(r[0]) > pad {
			pad = len(r[0])
		}
	}
	for _, r := range rows {
		h.line(style.Render(r[0]) + strings.Repeat(" ", pad-len(r[0])) + "  " + r[1])
	}
}

func (h *helpWriter) header(cmd *cobra.Command, description string) {
	h.line(lipgloss.NewStyle().Bold(true).Foreground(h.t.Colors.Yellow).Render(strings.ToUpper(cmd.CommandPath())))
	if cmd.Short != "" {
		italic := lipgloss.NewStyle().Italic(true)
		h.paragraph(cmd.Short, &italic)
	}
	if description != "" && description != cmd.Short {
		fmt.Fprintln(h.w)
		h.paragraph(description, nil)
	}
}

func (h *helpWriter) usage(cmd *cobra.Command) {
	if !cmd.Runnable() && !cmd.HasSubCommands() {
		return
	}
	h.section("USAGE")
	if cmd.Runnable() {
		h.line(cmd.UseLine())
	}
	if cmd.HasSubCommands() {
		h.line(cmd.CommandPath() + " [command]")
	}
}

func (h *helpWriter) commands(cmd *cobra.Command) {
	if !cmd.HasAvailableSubCommands() {
		return
	}
	var rows [][2]string
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			rows = append(rows, [2]string{sub.Name(), sub.Short})
		}
	}
	h.section("COMMANDS")
	h.rows(rows, h.name)
}

// flags lists local flags in detail for leaf commands and inline for parents.
func (h *helpWriter) flags(cmd *cobra.Command) {
	var visible []*pflag.Flag
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			visible = append(visible, f)
		}
	})
	if len(visible) == 0 {
		return
	}

	if cmd.HasAvailableSubCommands() {
		names := make([]string, 0, len(visible))
		for _, f := range visible {
			names = append(names, strings.TrimSpace(flagName(f)))
		}
		fmt.Fprintln(h.w)
		h.line(h.t.Muted.Render("Flags: " + strings.Join(names, ", ")))
		return
	}

	h.section("FLAGS")
	pad := 0
	for _, f := range visible {
		if n := len(flagName(f)); n > pad {
			pad = n
		}
	}
	for _, f := range visible {
		name := flagName(f)
		usage, choices := parseChoices(f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" {
			usage += h.t.Muted.Render(fmt.Sprintf(" (default: %s)", f.DefValue))
		}
		h.line(h.flag.Render(name) + strings.Repeat(" ", pad-len(name)) + "  " + usage)
		for _, c := range choices {
			bullet := h.t.Muted.Render("• " + c)
			h.line(strings.Repeat(" ", pad+2) + bullet)
		}
	}
}

// examples renders comment lines muted and colours the words of command lines.
func (h *helpWriter) examples(cmd *cobra.Command, text string) {
	if text == "" {
		return
	}
	root := cmd.Root().Name()
	h.section("EXAMPLES")
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		switch {
		case l == "":
			fmt.Fprintln(h.w)
		case strings.HasPrefix(l, "#"):
			h.line(h.t.Muted.Render(l))
		default:
			words := strings.Fields(l)
			for i, word := range words {
				switch {
				case i == 0 && word == root:
					words[i] = h.sub.Render(word)
				case strings.HasPrefix(word, "-"):
					words[i] = h.flag.Render(word)
				case i == 1:
					words[i] = h.name.Render(word)
				}
			}
			h.line("  " + strings.Join(words, " "))
		}
	}
}

func renderHelp(cmd *cobra.Command, _ []string) {
	h := newHelpWriter(cmd.OutOrStdout())

	description, examples := splitExamples(cmd.Long)
	if cmd.Long == "" {
		description = cmd.Short
	}
	if cmd.Example != "" {
		examples = cmd.Example
	}

	h.header(cmd, description)
	h.usage(cmd)
	h.commands(cmd)
	h.flags(cmd)
	h.examples(cmd, examples)
	for _, s := range sectionsFor(cmd) {
		h.section(s.Title)
		h.rows(s.Rows, h.flag)
	}

	if cmd.HasSubCommands() {
		fmt.Fprintln(h.w)
		h.line(fmt.Sprintf("Use \"%s [command] --help\" for more information.", cmd.CommandPath()))
	}
}
