// Package styles holds the shared lipgloss palette for the TUI.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette. Every color keeps WCAG AA contrast (4.5:1) on black and on
// dark surfaces.
var (
	PrimaryColor   = lipgloss.Color("#A78BFA") // purple
	SecondaryColor = lipgloss.Color("#10B981") // green
	WarningColor   = lipgloss.Color("#F59E0B") // amber
	ErrorColor     = lipgloss.Color("#F87171") // red
	MutedColor     = lipgloss.Color("#9CA3AF") // gray
	TextColor      = lipgloss.Color("#F9FAFB") // near-white
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

// Plain foreground styles, one per palette color.
var (
	Primary   = fg(PrimaryColor)
	Secondary = fg(SecondaryColor)
	Warning   = fg(WarningColor)
	Error     = fg(ErrorColor)
	Muted     = fg(MutedColor)
	Text      = fg(TextColor)
)

var (
	Title = fg(PrimaryColor).Bold(true)

	// ErrorBox frames daemon output under the wait prompt.
	ErrorBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ErrorColor).
			Padding(0, 1)

	HelpBar = fg(MutedColor).MarginTop(1)

	// HelpKey highlights the shortcut letter of a selectable option.
	HelpKey = fg(SecondaryColor).Bold(true)
)
