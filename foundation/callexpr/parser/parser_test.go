package parser

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	mdwlog "github.com/msto63/callexpr/foundation/core/log"
)

func newTestParser(t *testing.T, opts Options) (*Parser, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	opts.Logger = mdwlog.NewWithConfig(mdwlog.Config{Level: mdwlog.LevelDebug, Format: mdwlog.FormatText, Output: buf})
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, buf
}

func TestNew_Defaults(t *testing.T) {
	p, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := p.Options().MaxInputLength; got != DefaultMaxInputLength {
		t.Errorf("MaxInputLength = %d, want %d", got, DefaultMaxInputLength)
	}
	if got := p.Options().MaxDepth; got != 0 {
		t.Errorf("MaxDepth = %d, want 0", got)
	}

	if _, err := New(Options{MaxDepth: -1}); !mdwerror.HasCode(err, mdwerror.CodeInvalidInput) {
		t.Errorf("New(MaxDepth: -1) error = %v, want INVALID_INPUT", err)
	}
}

func TestParser_InputTooLong(t *testing.T) {
	p, buf := newTestParser(t, Options{MaxInputLength: 8})

	if _, err := p.Parse("Foo(1,2)"); err != nil {
		t.Fatalf("Parse() at the limit error = %v", err)
	}
	_, err := p.Parse("Foo(1, 2)")
	if !errors.Is(err, ErrInputTooLong) {
		t.Fatalf("Parse() error = %v, want ErrInputTooLong", err)
	}
	if !strings.Contains(buf.String(), "Call expression rejected") {
		t.Errorf("rejection not logged: %s", buf.String())
	}
}

func TestParser_MaxDepth(t *testing.T) {
	p, _ := newTestParser(t, Options{MaxDepth: 3})

	if _, err := p.Parse("A(B(C()))"); err != nil {
		t.Fatalf("Parse() at the limit error = %v", err)
	}

	_, err := p.Parse("A(B(C(D())))")
	if !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("Parse() error = %v, want ErrDepthExceeded", err)
	}
	var e *mdwerror.Error
	if !errors.As(err, &e) {
		t.Fatalf("error is %T, want *mdwerror.Error", err)
	}
	if depth, _ := e.Detail(DetailDepth); depth != 4 {
		t.Errorf("depth detail = %v, want 4", depth)
	}
	if offset, _ := ErrorOffset(err); offset != 7 {
		t.Errorf("ErrorOffset() = %d, want 7", offset)
	}
}

func TestParser_Logging(t *testing.T) {
	p, buf := newTestParser(t, Options{})

	if _, err := p.Parse("Foo(Bar())"); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Starting call expression parsing", "Call expression parsing completed", `component="callexpr-parser"`, `command="Foo"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if _, err := p.Parse("Foo("); err == nil {
		t.Fatal("Parse(Foo() should fail")
	}
	if !strings.Contains(buf.String(), "[WRN]") || !strings.Contains(buf.String(), "Call expression parsing failed") {
		t.Errorf("failure not logged at warn level:\n%s", buf.String())
	}
}

func TestParser_ConcurrentUse(t *testing.T) {
	p, err := New(Options{Logger: mdwlog.Discard()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	inputs := []string{"A(1)", `B("x,y")`, "C(D(E()))", "F(", ")"}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, input := range inputs {
			wg.Add(1)
			go func(input string) {
				defer wg.Done()
				first, err1 := p.Parse(input)
				second, err2 := p.Parse(input)
				if (err1 == nil) != (err2 == nil) {
					t.Errorf("Parse(%q) not deterministic: %v vs %v", input, err1, err2)
					return
				}
				if err1 == nil && first.String() != second.String() {
					t.Errorf("Parse(%q) not deterministic: %s vs %s", input, first, second)
				}
			}(input)
		}
	}
	wg.Wait()
}
