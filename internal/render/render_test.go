package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/msto63/callexpr/foundation/callexpr/ast"
	"github.com/msto63/callexpr/foundation/callexpr/parser"
	"github.com/msto63/callexpr/foundation/callexpr/token"
)

const sample = `Foo(1, "a,b", Bar(2, Baz()))`

func mustParse(t *testing.T, input string) *ast.Command {
	t.Helper()
	cmd, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", input, err)
	}
	return cmd
}

func renderString(t *testing.T, format Format, input string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := New(format, false).Command(&buf, mustParse(t, input), token.Tokenize(input)); err != nil {
		t.Fatalf("Command(%s) error = %v", format, err)
	}
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		got, err := ParseFormat(" " + strings.ToUpper(string(f)))
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %v, %v", f, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestRender_Text(t *testing.T) {
	if got := renderString(t, FormatText, sample); got != sample+"\n" {
		t.Errorf("text = %q, want %q", got, sample+"\n")
	}
}

func TestRender_Tree(t *testing.T) {
	want := strings.Join([]string{
		"Foo",
		"├── 1",
		`├── "a,b"`,
		"└── Bar",
		"    ├── 2",
		"    └── Baz",
		"",
	}, "\n")
	if diff := cmp.Diff(want, renderString(t, FormatTree, sample)); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_JSON(t *testing.T) {
	out := renderString(t, FormatJSON, sample)

	var decoded ast.Command
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if !ast.Equal(&decoded, mustParse(t, sample)) {
		t.Errorf("decoded = %s, want %s", &decoded, sample)
	}
}

func TestRender_YAML(t *testing.T) {
	out := renderString(t, FormatYAML, sample)
	if !strings.HasPrefix(out, "name: Foo\n") {
		t.Errorf("yaml should start with the name:\n%s", out)
	}

	var m map[string]interface{}
	if err := yaml.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, out)
	}
	decoded, err := ast.FromMap(m)
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	if !ast.Equal(decoded, mustParse(t, sample)) {
		t.Errorf("decoded = %s, want %s", decoded, sample)
	}
}

func TestRender_Tokens(t *testing.T) {
	out := renderString(t, FormatTokens, `A("x")`)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want 6:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "ParenOpen") || !strings.Contains(lines[1], `"("`) {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[5], "    5") {
		t.Errorf("last line should start with offset 5: %q", lines[5])
	}
}

func TestRender_TokensStructured(t *testing.T) {
	tokens := token.Tokenize(`A(1)`)

	var buf bytes.Buffer
	if err := New(FormatJSON, false).Tokens(&buf, tokens); err != nil {
		t.Fatalf("Tokens() error = %v", err)
	}
	var views []TokenView
	if err := json.Unmarshal(buf.Bytes(), &views); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	want := []TokenView{
		{Kind: "Literal", Text: "A", Offset: 0},
		{Kind: "ParenOpen", Text: "(", Offset: 1},
		{Kind: "Literal", Text: "1", Offset: 2},
		{Kind: "ParenClose", Text: ")", Offset: 3},
	}
	if diff := cmp.Diff(want, views); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := New(FormatText, false).Tokens(&buf, tokens); err != nil {
		t.Fatalf("Tokens() error = %v", err)
	}
	if got := buf.String(); got != "Literal:A ParenOpen:( Literal:1 ParenClose:)\n" {
		t.Errorf("text tokens = %q", got)
	}
}

func TestRender_Error(t *testing.T) {
	input := "Foo(1))"
	_, err := parser.Parse(input)
	if err == nil {
		t.Fatal("expected parse error")
	}

	var buf bytes.Buffer
	if err := New(FormatText, false).Error(&buf, input, err); err != nil {
		t.Fatalf("Error() error = %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if !strings.HasPrefix(lines[0], "error[MALFORMED_EXPRESSION]: ") {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "  "+input {
		t.Errorf("echo = %q", lines[1])
	}
	if lines[2] != "        ^" {
		t.Errorf("caret = %q, want caret under offset 6", lines[2])
	}
}

func TestRender_ErrorMultibyteColumn(t *testing.T) {
	input := `Ä(ü))`
	_, err := parser.Parse(input)
	if err == nil {
		t.Fatal("expected parse error")
	}

	var buf bytes.Buffer
	_ = New(FormatText, false).Error(&buf, input, err)
	lines := strings.Split(buf.String(), "\n")
	if lines[2] != "      ^" {
		t.Errorf("caret = %q, want column 4", lines[2])
	}
}

func TestRender_DeepTree(t *testing.T) {
	const depth = 1000
	input := strings.Repeat("A(", depth) + strings.Repeat(")", depth)
	cmd := mustParse(t, input)

	var buf bytes.Buffer
	if err := New(FormatTree, false).Command(&buf, cmd, nil); err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != depth {
		t.Errorf("got %d lines, want %d", n, depth)
	}

	buf.Reset()
	if err := New(FormatText, true).Command(&buf, cmd, nil); err != nil {
		t.Fatalf("Command() error = %v", err)
	}
}
