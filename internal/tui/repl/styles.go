package repl

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	colorAccent = lipgloss.Color("#7C3AED")
	colorPrompt = lipgloss.Color("#10B981")
	colorError  = lipgloss.Color("#EF4444")
	colorMuted  = lipgloss.Color("#6B7280")
	colorFg     = lipgloss.Color("#F9FAFB")
	colorBarBg  = lipgloss.Color("#374151")
)

// styles holds every style the REPL renders with. Without color only the
// layout and emphasis remain.
type styles struct {
	title   lipgloss.Style
	version lipgloss.Style
	prompt  lipgloss.Style
	echo    lipgloss.Style
	system  lipgloss.Style
	failure lipgloss.Style
	help    lipgloss.Style
	input   lipgloss.Style
	bar     lipgloss.Style
	ok      lipgloss.Style
}

func newStyles(color bool) styles {
	plain := lipgloss.NewStyle()
	s := styles{
		title:   plain.Bold(true),
		version: plain.Italic(true),
		prompt:  plain.Bold(true),
		echo:    plain,
		system:  plain.Italic(true),
		failure: plain,
		help:    plain,
		input:   plain.Border(lipgloss.NormalBorder()).Padding(0, 1),
		bar:     plain.Padding(0, 1),
		ok:      plain,
	}
	if !color {
		return s
	}

	s.title = s.title.Foreground(colorAccent)
	s.version = s.version.Foreground(colorMuted)
	s.prompt = s.prompt.Foreground(colorPrompt)
	s.echo = s.echo.Foreground(colorFg)
	s.system = s.system.Foreground(colorMuted)
	s.failure = s.failure.Foreground(colorError)
	s.help = s.help.Foreground(colorMuted)
	s.input = s.input.BorderForeground(colorAccent)
	s.bar = s.bar.Background(colorBarBg).Foreground(colorFg)
	s.ok = s.ok.Foreground(colorPrompt)
	return s
}
