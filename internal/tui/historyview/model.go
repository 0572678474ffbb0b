// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     historyview
// Description: Live bubbletea view of the parse history
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package historyview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/callexpr/internal/store"
)

// Source is the part of the history store the viewer reads
type Source interface {
	List(ctx context.Context, filter store.Filter) ([]*store.Entry, error)
	Stats(ctx context.Context) (*store.Stats, error)
}

// StatusFilter tracks which outcomes are shown
type StatusFilter struct {
	OK     bool
	Failed bool
}

// sources cycled by the "s" key; empty means all
var sources = []store.Source{"", store.SourceCLI, store.SourceGRPC, store.SourceHTTP, store.SourceWS, store.SourceREPL}

// Config holds viewer configuration
type Config struct {
	Source   Source
	Interval time.Duration // refresh period
	Limit    int           // entries loaded per refresh
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Interval: 2 * time.Second,
		Limit:    500,
	}
}

// Model is the bubbletea model of the history viewer
type Model struct {
	// State
	width      int
	height     int
	ready      bool
	loading    bool
	paused     bool
	autoScroll bool
	err        error
	quitting   bool

	// Components
	viewport viewport.Model
	spinner  spinner.Model

	// Entries
	all          []*store.Entry
	filtered     []*store.Entry
	statusFilter StatusFilter
	sourceIndex  int
	stats        *store.Stats

	source   Source
	interval time.Duration
	limit    int
}

// New creates a new history viewer model
func New(cfg Config) Model {
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaults.Limit
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	return Model{
		spinner:      sp,
		loading:      true,
		autoScroll:   true,
		statusFilter: StatusFilter{OK: true, Failed: true},
		source:       cfg.Source,
		interval:     cfg.Interval,
		limit:        cfg.Limit,
	}
}

// Init starts the first load and the refresh ticker
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.loadEntries,
		m.loadStats,
		m.tick(),
	)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4 // title + filter bar
		footerHeight := 3 // status bar + help
		viewportHeight := msg.Height - headerHeight - footerHeight
		if viewportHeight < 1 {
			viewportHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, viewportHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = viewportHeight
		}
		m.updateViewportContent()

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case entriesLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.all = msg.entries
			m.applyFilters()
			m.updateViewportContent()
		}

	case statsLoadedMsg:
		if msg.err == nil {
			m.stats = msg.stats
		}

	case tickMsg:
		if !m.paused {
			cmds = append(cmds, m.loadEntries, m.loadStats)
		}
		cmds = append(cmds, m.tick())
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "q":
			m.quitting = true
			return m, tea.Quit

		// Outcome filters
		case "1":
			m.statusFilter.OK = !m.statusFilter.OK
		case "2":
			m.statusFilter.Failed = !m.statusFilter.Failed
		case "0":
			m.statusFilter = StatusFilter{OK: true, Failed: true}
			m.sourceIndex = 0

		// Source filter
		case "s":
			m.sourceIndex = (m.sourceIndex + 1) % len(sources)

		case "p", " ":
			m.paused = !m.paused
			return m, nil

		case "r":
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.loadEntries, m.loadStats)

		case "a":
			m.autoScroll = !m.autoScroll
			if m.autoScroll && m.ready {
				m.viewport.GotoBottom()
			}
			return m, nil

		case "g":
			m.viewport.GotoTop()
			m.autoScroll = false
			return m, nil

		case "G":
			m.viewport.GotoBottom()
			m.autoScroll = true
			return m, nil

		default:
			return m, nil
		}
		m.applyFilters()
		m.updateViewportContent()
		return m, nil

	case tea.KeyPgUp:
		m.viewport.ViewUp()
		m.autoScroll = false
	case tea.KeyPgDown:
		m.viewport.ViewDown()
	case tea.KeyUp:
		m.viewport.LineUp(1)
		m.autoScroll = false
	case tea.KeyDown:
		m.viewport.LineDown(1)
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading history..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderFilterBar())
	b.WriteString("\n")
	b.WriteString(PanelStyle.Width(m.width - 2).Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())
	return b.String()
}

func (m Model) renderHeader() string {
	header := LogoStyle.Render(Logo)
	if m.paused {
		header += "  " + StatusPausedStyle.Render("PAUSED")
	}
	return TitlePanelStyle.Width(m.width - 4).Render(header)
}

func (m Model) renderFilterBar() string {
	source := "all"
	if s := sources[m.sourceIndex]; s != "" {
		source = string(s)
	}
	filters := []string{
		"1:" + RenderFilterStatus("OK", m.statusFilter.OK),
		"2:" + RenderFilterStatus("FAILED", m.statusFilter.Failed),
		"s:" + FilterActiveStyle.Render(source),
	}

	content := strings.Join(filters, "  ") + "  " +
		HelpDescStyle.Render(fmt.Sprintf("[%d/%d]", len(m.filtered), len(m.all)))
	if m.autoScroll {
		content += "  " + FilterActiveStyle.Render("[auto-scroll]")
	}
	return FilterBarStyle.Width(m.width - 2).Render(content)
}

func (m Model) renderStatusBar() string {
	var left string
	if m.stats != nil {
		left = fmt.Sprintf("total %d  ok %d  failed %d  avg %s",
			m.stats.Total, m.stats.Succeeded, m.stats.Failed, m.stats.AvgDuration.Round(time.Microsecond))
	}

	var right string
	switch {
	case m.loading:
		right = m.spinner.View() + " loading"
	case m.err != nil:
		right = StatusErrorStyle.Render(m.err.Error())
	default:
		right = HelpDescStyle.Render("every " + m.interval.String())
	}

	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if pad < 2 {
		pad = 2
	}
	return StatusBarStyle.Width(m.width - 2).Render(left + strings.Repeat(" ", pad) + right)
}

func (m Model) renderHelpBar() string {
	items := []string{
		RenderKeyHint("1/2", "ok/failed"),
		RenderKeyHint("s", "source"),
		RenderKeyHint("0", "reset"),
		RenderKeyHint("p", "pause"),
		RenderKeyHint("r", "refresh"),
		RenderKeyHint("a", "auto-scroll"),
		RenderKeyHint("g/G", "top/bottom"),
		RenderKeyHint("q", "quit"),
	}
	return HelpStyle.Render(strings.Join(items, "  "))
}

// updateViewportContent renders the filtered entries into the viewport
func (m *Model) updateViewportContent() {
	if !m.ready {
		return
	}
	var content strings.Builder
	for _, e := range m.filtered {
		content.WriteString(formatEntry(e))
		content.WriteString("\n")
	}
	m.viewport.SetContent(content.String())
	if m.autoScroll {
		m.viewport.GotoBottom()
	}
}

// formatEntry renders one line: time, outcome, source, expression
func formatEntry(e *store.Entry) string {
	line := fmt.Sprintf("%s %s %s %s",
		TimestampStyle.Render(e.Timestamp.Local().Format("15:04:05")),
		RenderStatusBadge(e.OK, e.ErrorCode),
		RenderSource(e.Source),
		ExpressionStyle.Render(oneLine(e.Expression)))
	if !e.OK && e.ErrorMessage != "" {
		line += "  " + DetailStyle.Render(e.ErrorMessage)
	}
	return line
}

// applyFilters filters entries by outcome and source
func (m *Model) applyFilters() {
	source := sources[m.sourceIndex]
	m.filtered = make([]*store.Entry, 0, len(m.all))
	for _, e := range m.all {
		if e.OK && !m.statusFilter.OK || !e.OK && !m.statusFilter.Failed {
			continue
		}
		if source != "" && e.Source != source {
			continue
		}
		m.filtered = append(m.filtered, e)
	}
}

// loadEntries loads the newest entries and returns them oldest first
func (m Model) loadEntries() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := m.source.List(ctx, store.Filter{Limit: m.limit})
	if err != nil {
		return entriesLoadedMsg{err: err}
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entriesLoadedMsg{entries: entries}
}

// loadStats loads the history summary
func (m Model) loadStats() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := m.source.Stats(ctx)
	return statsLoadedMsg{stats: stats, err: err}
}

// Visible returns the entries passing the current filters, oldest first
func (m Model) Visible() []*store.Entry {
	return m.filtered
}

func oneLine(s string) string {
	return strings.NewReplacer("\r\n", "⏎", "\n", "⏎").Replace(s)
}

// Run starts the history viewer
func Run(cfg Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
