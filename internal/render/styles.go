package render

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	colorCommand = lipgloss.Color("#7C3AED")
	colorQuoted  = lipgloss.Color("#10B981")
	colorLiteral = lipgloss.Color("#F9FAFB")
	colorAccent  = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
)

// Styles controls how rendered output is decorated
type Styles struct {
	Command lipgloss.Style
	Literal lipgloss.Style
	Quoted  lipgloss.Style
	Branch  lipgloss.Style
	Kind    lipgloss.Style
	Offset  lipgloss.Style
	Error   lipgloss.Style
	Caret   lipgloss.Style
}

// DefaultStyles returns the coloured terminal styles
func DefaultStyles() Styles {
	return Styles{
		Command: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCommand),
		Literal: lipgloss.NewStyle().
			Foreground(colorLiteral),
		Quoted: lipgloss.NewStyle().
			Foreground(colorQuoted),
		Branch: lipgloss.NewStyle().
			Foreground(colorMuted),
		Kind: lipgloss.NewStyle().
			Foreground(colorAccent),
		Offset: lipgloss.NewStyle().
			Foreground(colorMuted),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError),
		Caret: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError),
	}
}

// PlainStyles returns styles that leave text untouched
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Command: plain,
		Literal: plain,
		Quoted:  plain,
		Branch:  plain,
		Kind:    plain,
		Offset:  plain,
		Error:   plain,
		Caret:   plain,
	}
}
