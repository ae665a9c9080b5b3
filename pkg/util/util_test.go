package util

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/token"
)

func withOutput(t *testing.T, src string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevNoColor := Stderr, color.NoColor
	Stderr, color.NoColor = &buf, true
	SetSourceFiles([]SourceFileRecord{{Name: "main.c", Content: []rune(src)}})
	t.Cleanup(func() {
		Stderr, color.NoColor = prevOut, prevNoColor
		SetSourceFiles(nil)
	})
	return &buf
}

func TestCompileErrorFormat(t *testing.T) {
	withOutput(t, "int x;\n")
	err := Errorf(Semantic, token.Token{Line: 1, Column: 5, Len: 1}, "redefinition of '%s'", "x")
	if got, want := err.Error(), "main.c:1:5: semantic error: redefinition of 'x'"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestReportCaret(t *testing.T) {
	buf := withOutput(t, "int main(void) {\n\tretrun 0;\n}\n")
	Report(Errorf(Syntax, token.Token{Line: 2, Column: 2, Len: 6}, "expected ';'"))

	want := "main.c:2:2: syntax error: expected ';'\n" +
		"  \tretrun 0;\n" +
		"  \t^~~~~~\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Report output mismatch (-want +got):\n%s", diff)
	}
}

func TestReportPlainError(t *testing.T) {
	buf := withOutput(t, "")
	Report(fmt.Errorf("linking: %w", errors.New("cc not found")))
	if got, want := buf.String(), "xcc: error: linking: cc not found\n"; got != want {
		t.Errorf("Report = %q, want %q", got, want)
	}
}

func TestRecover(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		Raise(Lexical, token.Token{Line: 1, Column: 1}, "stray '%c'", '@')
		return nil
	}
	err := run()
	var ce *CompileError
	if !errors.As(err, &ce) || ce.Category != Lexical || ce.Msg != "stray '@'" {
		t.Fatalf("Recover produced %#v", err)
	}
}

func TestWarnRespectsConfig(t *testing.T) {
	buf := withOutput(t, "x;\n")
	cfg := config.NewConfig()
	tok := token.Token{Line: 1, Column: 1, Len: 1}

	cfg.SetWarning(config.WarnUnusedValue, false)
	Warn(cfg, config.WarnUnusedValue, tok, "value unused")
	if buf.Len() != 0 {
		t.Fatalf("disabled warning printed %q", buf.String())
	}

	cfg.SetWarning(config.WarnUnusedValue, true)
	Warn(cfg, config.WarnUnusedValue, tok, "value unused")
	want := "main.c:1:1: warning: value unused [-Wunused-value]\n  x;\n  ^\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Warn output mismatch (-want +got):\n%s", diff)
	}
}

func TestAlignUp(t *testing.T) {
	for _, tc := range []struct{ n, align, want int64 }{
		{0, 8, 0}, {1, 8, 8}, {8, 8, 8}, {9, 4, 12}, {5, 1, 5},
	} {
		if got := AlignUp(tc.n, tc.align); got != tc.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tc.n, tc.align, got, tc.want)
		}
	}
}
