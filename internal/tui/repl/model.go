// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     repl
// Description: Interactive terminal REPL for call expressions
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package repl

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/msto63/callexpr/foundation/callexpr/token"
	"github.com/msto63/callexpr/internal/render"
	"github.com/msto63/callexpr/internal/service"
	"github.com/msto63/callexpr/internal/store"
	"github.com/msto63/callexpr/pkg/core/version"
)

// MaxHistory bounds the input history
const MaxHistory = 500

const helpText = `Enter an expression such as Foo(1, "a,b", Bar()) and press Enter.
  :format text|tree|json|yaml|tokens   switch the output format
  :clear                               clear the transcript
  :help                                show this help
  :quit                                leave the REPL
Keys: up/down history, pgup/pgdn scroll, ctrl+l clear, ctrl+c quit`

// Options configures the REPL
type Options struct {
	Format render.Format
	Color  bool
}

// parseResultMsg carries the outcome of one parse
type parseResultMsg struct {
	input    string
	output   string
	failed   bool
	duration time.Duration
}

// Model is the REPL model
type Model struct {
	// State
	width  int
	height int
	ready  bool

	// Components
	input    textinput.Model
	viewport viewport.Model

	service  *service.Service
	options  Options
	renderer *render.Renderer
	styles   styles

	// Transcript
	entries []string

	// Input history, oldest first; cursor == len(history) means the
	// line being edited
	history []string
	cursor  int
	draft   string

	// Status line
	lastOK   bool
	lastInfo string
	quitting bool
}

// NewModel creates a new REPL model
func NewModel(svc *service.Service, opts Options) Model {
	if opts.Format == "" {
		opts.Format = render.FormatTree
	}

	st := newStyles(opts.Color)

	ti := textinput.New()
	ti.Placeholder = `Foo(1, "a,b", Bar())`
	ti.Prompt = "» "
	ti.PromptStyle = st.prompt
	ti.CharLimit = svc.Parser().Options().MaxInputLength
	ti.Focus()

	return Model{
		input:    ti,
		viewport: viewport.New(80, 20),
		service:  svc,
		options:  opts,
		renderer: render.New(opts.Format, opts.Color),
		styles:   st,
		entries:  []string{st.system.Render("Type :help for help.")},
		lastOK:   true,
	}
}

// Run starts the REPL in the alternate screen and blocks until it exits
func Run(svc *service.Service, opts Options) error {
	p := tea.NewProgram(NewModel(svc, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			m.remember(line)
			if strings.HasPrefix(line, ":") {
				return m.command(line)
			}
			return m, m.parse(line)

		case tea.KeyUp:
			m.recall(-1)
			return m, nil

		case tea.KeyDown:
			m.recall(1)
			return m, nil

		case tea.KeyCtrlL:
			m.entries = nil
			m.refresh()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-7, 3)
		m.input.Width = max(msg.Width-8, 10)
		m.ready = true
		m.refresh()

	case parseResultMsg:
		m.lastOK = !msg.failed
		m.lastInfo = msg.duration.Round(time.Microsecond).String()
		m.entries = append(m.entries, m.styles.prompt.Render("» ")+m.styles.echo.Render(msg.input), msg.output)
		m.refresh()
		return m, nil
	}

	// Update components
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// parse returns a command that parses line with the current renderer
func (m Model) parse(line string) tea.Cmd {
	svc, renderer, failure := m.service, m.renderer, m.styles.failure
	return func() tea.Msg {
		ctx := service.WithSource(context.Background(), store.SourceREPL)
		start := time.Now()

		var out bytes.Buffer
		result, err := svc.Parse(ctx, line)
		if err != nil {
			renderer.Error(&out, line, err)
			return parseResultMsg{input: line, output: strings.TrimRight(out.String(), "\n"), failed: true, duration: time.Since(start)}
		}

		var tokens []token.Token
		if renderer.Format() == render.FormatTokens {
			tokens, _ = svc.Tokenize(ctx, line)
		}
		if err := renderer.Command(&out, result.Command, tokens); err != nil {
			return parseResultMsg{input: line, output: failure.Render(err.Error()), failed: true, duration: time.Since(start)}
		}
		return parseResultMsg{input: line, output: strings.TrimRight(out.String(), "\n"), duration: result.Duration}
	}
}

// command handles a colon command
func (m Model) command(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return m, nil
	}

	switch fields[0] {
	case "q", "quit", "exit":
		m.quitting = true
		return m, tea.Quit
	case "clear":
		m.entries = nil
	case "help":
		m.entries = append(m.entries, m.styles.help.Render(helpText))
	case "format":
		if len(fields) < 2 {
			m.entries = append(m.entries, m.styles.system.Render("format is "+string(m.options.Format)))
			break
		}
		format, err := render.ParseFormat(fields[1])
		if err != nil {
			m.entries = append(m.entries, m.styles.failure.Render(err.Error()))
			break
		}
		m.options.Format = format
		m.renderer = render.New(format, m.options.Color)
		m.entries = append(m.entries, m.styles.system.Render("format set to "+string(format)))
	default:
		m.entries = append(m.entries, m.styles.failure.Render("unknown command :"+fields[0]))
	}
	m.refresh()
	return m, nil
}

// remember appends line to the history, skipping immediate repeats
func (m *Model) remember(line string) {
	if n := len(m.history); n == 0 || m.history[n-1] != line {
		m.history = append(m.history, line)
		if len(m.history) > MaxHistory {
			m.history = m.history[len(m.history)-MaxHistory:]
		}
	}
	m.cursor = len(m.history)
	m.draft = ""
}

// recall moves through the history by delta
func (m *Model) recall(delta int) {
	if len(m.history) == 0 {
		return
	}
	if m.cursor == len(m.history) {
		m.draft = m.input.Value()
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.history))
	if m.cursor == len(m.history) {
		m.input.SetValue(m.draft)
	} else {
		m.input.SetValue(m.history[m.cursor])
	}
	m.input.CursorEnd()
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.entries, "\n"))
	m.viewport.GotoBottom()
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	var s strings.Builder

	// Header
	s.WriteString(m.styles.title.Render("callexpr repl") + " " + m.styles.version.Render("v"+version.Platform))
	s.WriteString("\n")

	// Transcript
	s.WriteString(m.viewport.View())
	s.WriteString("\n")

	// Input
	s.WriteString(m.styles.input.Width(max(m.width-2, 10)).Render(m.input.View()))
	s.WriteString("\n")

	// Status bar
	s.WriteString(m.statusBar())
	return s.String()
}

func (m Model) statusBar() string {
	state := m.styles.ok.Render("ok")
	if !m.lastOK {
		state = m.styles.failure.Render("error")
	}
	counters := m.service.Counters()
	info := fmt.Sprintf("format %s | parsed %d | failed %d", m.options.Format, counters.Parsed, counters.Failed)
	if m.lastInfo != "" {
		info += " | last " + m.lastInfo
	}
	return m.styles.bar.Render(state + " " + info)
}

// Entries returns the transcript lines
func (m Model) Entries() []string {
	return m.entries
}
