// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     historyview
// Description: Styles for the history viewer TUI
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package historyview

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/callexpr/internal/store"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorSecondary = lipgloss.Color("#06B6D4")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorError     = lipgloss.Color("#EF4444")
	ColorDimmed    = lipgloss.Color("#374151")
	ColorBgPanel   = lipgloss.Color("#1E293B")
	ColorText      = lipgloss.Color("#F8FAFC")
	ColorTextMuted = lipgloss.Color("#94A3B8")
	ColorTextDim   = lipgloss.Color("#64748B")
)

// Header styles
var (
	LogoStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	TitlePanelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 2)
)

// Entry styles
var (
	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	ExpressionStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	DetailStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true)

	OKBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	FailedBadgeStyle = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true)
)

// Panel and bar styles
var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDimmed).
			Padding(0, 1)

	FilterBarStyle = lipgloss.NewStyle().
			Background(ColorBgPanel).
			Foreground(ColorText).
			Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Background(ColorBgPanel).
			Foreground(ColorText).
			Padding(0, 1)

	StatusPausedStyle = lipgloss.NewStyle().
				Foreground(ColorWarning).
				Bold(true)

	StatusErrorStyle = lipgloss.NewStyle().
				Foreground(ColorError)

	FilterActiveStyle = lipgloss.NewStyle().
				Foreground(ColorSuccess).
				Bold(true)

	FilterInactiveStyle = lipgloss.NewStyle().
				Foreground(ColorTextDim)
)

// Help styles
var (
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)
)

// Logo
const Logo = "callexpr history"

// RenderKeyHint renders a keyboard shortcut hint
func RenderKeyHint(key, description string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(description)
}

// RenderStatusBadge renders the outcome column of an entry
func RenderStatusBadge(ok bool, code string) string {
	if ok {
		return OKBadgeStyle.Render(fmt.Sprintf("[%-20s]", "OK"))
	}
	return FailedBadgeStyle.Render(fmt.Sprintf("[%-20s]", code))
}

// sourceColors colors the source column; local sources stay muted
var sourceColors = map[store.Source]lipgloss.Color{
	store.SourceCLI:  ColorTextMuted,
	store.SourceREPL: ColorTextMuted,
	store.SourceGRPC: ColorSecondary,
	store.SourceHTTP: ColorPrimary,
	store.SourceWS:   ColorWarning,
}

// RenderSource renders the source column of an entry
func RenderSource(source store.Source) string {
	color, ok := sourceColors[source]
	if !ok {
		color = ColorTextDim
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(fmt.Sprintf("%-9s", source))
}

// RenderFilterStatus renders a filter status indicator
func RenderFilterStatus(name string, active bool) string {
	if active {
		return FilterActiveStyle.Render(name)
	}
	return FilterInactiveStyle.Render(name)
}
