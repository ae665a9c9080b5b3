package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/lexer"
	"github.com/xplshn/xcc/pkg/util"
)

func TestWriteTokensContinuesPastInvalid(t *testing.T) {
	src := "int @ x $ ;"
	var stderr bytes.Buffer
	prevOut, prevNoColor := util.Stderr, color.NoColor
	util.Stderr, color.NoColor = &stderr, true
	util.SetSourceFiles([]util.SourceFileRecord{{Name: "a.c", Content: []rune(src)}})
	t.Cleanup(func() {
		util.Stderr, color.NoColor = prevOut, prevNoColor
		util.SetSourceFiles(nil)
	})

	toks, errs := lexer.Tokenize([]rune(src), 0, config.NewConfig())
	var stdout bytes.Buffer
	if !writeTokens(&stdout, "a.c", toks, errs) {
		t.Fatalf("writeTokens reported no invalid token")
	}

	want := []string{
		"a.c:1:1: keyword int",
		"a.c:1:7: identifier x",
		"a.c:1:11: punctuator ;",
	}
	got := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
	for _, pos := range []string{"a.c:1:5: lexical error", "a.c:1:9: lexical error"} {
		if !strings.Contains(stderr.String(), pos) {
			t.Errorf("stderr lacks %q:\n%s", pos, stderr.String())
		}
	}
}

func TestWriteTokensValidInput(t *testing.T) {
	toks, errs := lexer.Tokenize([]rune("return 0;"), 0, config.NewConfig())
	var stdout bytes.Buffer
	if writeTokens(&stdout, "b.c", toks, errs) {
		t.Fatalf("writeTokens reported an invalid token for valid input")
	}
	if got := strings.Count(stdout.String(), "\n"); got != 3 {
		t.Errorf("printed %d tokens, want 3:\n%s", got, stdout.String())
	}
}
