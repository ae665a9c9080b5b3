package cli

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFlagSetParse(t *testing.T) {
	fs := NewFlagSet("xcc")
	var (
		out     string
		asm     bool
		libs    []string
		linker  []string
		verbose bool
	)
	fs.String(&out, "output", "o", "a.out", "Output file.", "file")
	fs.Bool(&asm, "emit-asm", "S", false, "Emit assembly.")
	fs.Bool(&verbose, "verbose", "v", false, "Verbose.")
	fs.List(&linker, "linker-arg", "L", []string{}, "Linker argument.", "arg")
	fs.Special(&libs, "l", "Link a library.", "lib")

	args := []string{"-o", "prog", "-S", "-lm", "--linker-arg=-s", "main.c", "-lc", "util.c"}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%q) failed: %v", args, err)
	}

	if out != "prog" {
		t.Errorf("output = %q, want %q", out, "prog")
	}
	if !asm || verbose {
		t.Errorf("emit-asm = %v, verbose = %v; want true, false", asm, verbose)
	}
	if diff := cmp.Diff([]string{"m", "c"}, libs); diff != "" {
		t.Errorf("libs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-s"}, linker); diff != "" {
		t.Errorf("linker args mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"main.c", "util.c"}, fs.Args()); diff != "" {
		t.Errorf("positional args mismatch (-want +got):\n%s", diff)
	}
	if !fs.Changed("output") || fs.Changed("verbose") {
		t.Errorf("Changed(output) = %v, Changed(verbose) = %v", fs.Changed("output"), fs.Changed("verbose"))
	}
}

func TestGroupFlags(t *testing.T) {
	fs := NewFlagSet("xcc")
	on, off := true, false
	fs.AddFlagGroup("Warning Flags", "", "warning flag", "", []FlagGroupEntry{
		{Name: "unreachable-code", Prefix: "W", Usage: "Unreachable code.", Enabled: &on, Disabled: &off},
	})
	if err := fs.Parse([]string{"-Wno-unreachable-code"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !off {
		t.Errorf("-Wno-unreachable-code did not set the disable flag")
	}
	if fs.Changed("Wunreachable-code") {
		t.Errorf("Wunreachable-code reported as changed")
	}
}

func TestParseErrors(t *testing.T) {
	fs := NewFlagSet("xcc")
	var out string
	fs.String(&out, "output", "o", "a.out", "Output file.", "file")
	for _, args := range [][]string{{"--nope"}, {"-o"}, {"-q"}} {
		if err := fs.Parse(args); err == nil {
			t.Errorf("Parse(%q) succeeded, want an error", args)
		}
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("place the output into the given file", 16)
	want := []string{"place the output", "into the given", "file"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wrapText mismatch (-want +got):\n%s", diff)
	}
}

func TestHelpPage(t *testing.T) {
	app := NewApp("xcc")
	app.Synopsis = "[options] <input.c> ..."
	app.Authors = []string{"xplshn"}
	var out string
	var libs []string
	on, off := true, false
	app.FlagSet.String(&out, "output", "o", "a.out", "Place the output into <file>.", "file")
	app.FlagSet.Special(&libs, "l", "Link with a library.", "lib")
	app.FlagSet.AddFlagGroup("Warning Flags", "", "warning", "Available warnings:", []FlagGroupEntry{
		{Name: "overflow", Prefix: "W", Usage: "Constant overflow.", Enabled: &on, Disabled: &off},
	})

	var sb strings.Builder
	app.writeHelp(&sb, 80)
	page := sb.String()
	for _, want := range []string{
		"xcc [options] <input.c> ...",
		"-o <file>, --output <file>",
		"|a.out|",
		"-l<lib>",
		"-Wno-<warning>",
		"Available warnings:",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("help page lacks %q:\n%s", want, page)
		}
	}
	if strings.Contains(page, "--Woverflow") {
		t.Errorf("group members listed as options:\n%s", page)
	}
	if !strings.Contains(page, "overflow") || !strings.Contains(page, "|x|") {
		t.Errorf("group entry not rendered as enabled:\n%s", page)
	}
}
