package repl

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/callexpr/internal/render"
	"github.com/msto63/callexpr/internal/service"
	"github.com/msto63/callexpr/pkg/core/logging"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	svc, err := service.NewService(service.Config{Logger: logging.Wrap(nil)})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	m := NewModel(svc, Options{Format: render.FormatText})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

// submit types line, presses enter and feeds the resulting message back
func submit(t *testing.T, m Model, line string) Model {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		return m
	}
	msg := cmd()
	if _, ok := msg.(parseResultMsg); !ok {
		return m
	}
	next, _ = m.Update(msg)
	return next.(Model)
}

func lastEntry(m Model) string {
	entries := m.Entries()
	if len(entries) == 0 {
		return ""
	}
	return entries[len(entries)-1]
}

func TestParseLine(t *testing.T) {
	m := newTestModel(t)

	m = submit(t, m, `Foo(1, "a,b", Bar())`)
	if got := lastEntry(m); got != `Foo(1, "a,b", Bar())` {
		t.Errorf("output = %q", got)
	}
	if !m.lastOK {
		t.Error("status should be ok")
	}
	if m.input.Value() != "" {
		t.Errorf("input not reset: %q", m.input.Value())
	}
}

func TestParseLine_Error(t *testing.T) {
	m := newTestModel(t)

	m = submit(t, m, "Foo(1))")
	got := lastEntry(m)
	if !strings.Contains(got, "MALFORMED_EXPRESSION") || !strings.Contains(got, "^") {
		t.Errorf("error output = %q", got)
	}
	if m.lastOK {
		t.Error("status should be error")
	}
}

func TestFormatCommand(t *testing.T) {
	m := newTestModel(t)

	m = submit(t, m, ":format tree")
	if m.options.Format != render.FormatTree {
		t.Fatalf("format = %s, want tree", m.options.Format)
	}
	m = submit(t, m, "A(B())")
	if got := lastEntry(m); got != "A\n└── B" {
		t.Errorf("tree output = %q", got)
	}

	m = submit(t, m, ":format xml")
	if !strings.Contains(lastEntry(m), "unknown output format") {
		t.Errorf("expected format error, got %q", lastEntry(m))
	}
	if m.options.Format != render.FormatTree {
		t.Error("invalid format should not change the format")
	}
}

func TestClearAndUnknownCommand(t *testing.T) {
	m := newTestModel(t)

	m = submit(t, m, ":nope")
	if !strings.Contains(lastEntry(m), "unknown command :nope") {
		t.Errorf("output = %q", lastEntry(m))
	}
	m = submit(t, m, ":clear")
	if len(m.Entries()) != 0 {
		t.Errorf("entries after clear = %d", len(m.Entries()))
	}
}

func TestHistoryNavigation(t *testing.T) {
	m := newTestModel(t)
	m = submit(t, m, "A()")
	m = submit(t, m, "B()")
	m = submit(t, m, "B()")

	if len(m.history) != 2 {
		t.Fatalf("history = %v, want repeats collapsed", m.history)
	}

	m.input.SetValue("draft")
	up := func() { next, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp}); m = next.(Model) }
	down := func() { next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown}); m = next.(Model) }

	up()
	if m.input.Value() != "B()" {
		t.Errorf("after up = %q, want B()", m.input.Value())
	}
	up()
	up()
	if m.input.Value() != "A()" {
		t.Errorf("after up x3 = %q, want A()", m.input.Value())
	}
	down()
	down()
	if m.input.Value() != "draft" {
		t.Errorf("after down x2 = %q, want draft restored", m.input.Value())
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue(":quit")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if next.(Model).View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestStyles_NoColor(t *testing.T) {
	plain := newStyles(false)
	if _, ok := plain.failure.GetForeground().(lipgloss.NoColor); !ok {
		t.Errorf("failure foreground = %v, want none", plain.failure.GetForeground())
	}
	if !plain.title.GetBold() {
		t.Error("title lost its emphasis without color")
	}

	colored := newStyles(true)
	if colored.failure.GetForeground() != colorError {
		t.Errorf("failure foreground = %v, want %v", colored.failure.GetForeground(), colorError)
	}
}
