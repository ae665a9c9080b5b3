package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	Since       int
	FlagSet     *FlagSet
	Action      func(args []string) error
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name)}
}

// Run parses arguments and calls Action with the positional ones. Parse
// errors print a short usage page to stderr.
func (a *App) Run(arguments []string) error {
	var help bool
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.writeUsage(os.Stderr, terminalWidth())
		return err
	}
	if help {
		a.writeHelp(os.Stdout, terminalWidth())
		return nil
	}
	if a.Action == nil {
		return nil
	}
	return a.Action(a.FlagSet.Args())
}

const indentUnit = "    "

// row is one line of a help table: a flag, its description and an
// optional right-hand annotation such as a default value.
type row struct{ left, usage, right string }

type table struct {
	rows                  []row
	leftWidth, usageWidth int
}

func (t *table) add(r row) {
	t.rows = append(t.rows, r)
	t.leftWidth = max(t.leftWidth, runewidth.StringWidth(r.left))
	t.usageWidth = max(t.usageWidth, runewidth.StringWidth(r.usage))
}

// write renders rows with one shared column layout. Descriptions wrap to
// the terminal width under their own column.
func (t *table) write(sb *strings.Builder, rows []row, width int) {
	pad := len(indentUnit) * 2
	usageWidth := min(t.usageWidth, max(width-pad-t.leftWidth-1-len("  |x|"), 10))
	for _, r := range rows {
		lines := wrapText(r.usage, usageWidth)
		first := ""
		if len(lines) > 0 {
			first = lines[0]
		}
		left := runewidth.FillRight(r.left, t.leftWidth)
		if r.right != "" {
			fmt.Fprintf(sb, "%s%s%s %s  %s\n", indentUnit, indentUnit, left, runewidth.FillRight(first, usageWidth), r.right)
		} else {
			fmt.Fprintf(sb, "%s%s%s %s\n", indentUnit, indentUnit, left, first)
		}
		for _, l := range lines[min(1, len(lines)):] {
			fmt.Fprintf(sb, "%s%s%s %s\n", indentUnit, indentUnit, strings.Repeat(" ", t.leftWidth), l)
		}
	}
}

func flagSpec(fl *Flag) string {
	arg := ""
	if !fl.isBool() && fl.ExpectedType != "" {
		arg = " <" + fl.ExpectedType + ">"
	}
	if fl.Shorthand != "" {
		return "-" + fl.Shorthand + arg + ", --" + fl.Name + arg
	}
	if arg != "" {
		return "--" + fl.Name + "=" + fl.ExpectedType
	}
	return "--" + fl.Name
}

func flagRow(fl *Flag) row {
	r := row{left: flagSpec(fl), usage: fl.Usage}
	if !fl.isBool() && fl.DefValue != "" {
		r.right = "|" + fl.DefValue + "|"
	}
	return r
}

// options returns the plain flags sorted by name, leaving out prefixes and
// group members.
func (a *App) options() []*Flag {
	fs := a.FlagSet
	var out []*Flag
	for name, fl := range fs.flags {
		if fs.inGroup(name) {
			continue
		}
		special := false
		for _, p := range fs.prefixes {
			special = special || p == fl
		}
		if !special {
			out = append(out, fl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (a *App) writeUsage(w io.Writer, width int) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)

	var t table
	var rows []row
	for _, fl := range a.options() {
		r := flagRow(fl)
		t.add(r)
		rows = append(rows, r)
	}
	if len(rows) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indentUnit)
		t.write(&sb, rows, width)
	}
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	io.WriteString(w, sb.String())
}

func (a *App) writeHelp(w io.Writer, width int) {
	var sb strings.Builder
	var t table

	var options []row
	for _, fl := range a.options() {
		r := flagRow(fl)
		t.add(r)
		options = append(options, r)
	}
	for _, fl := range a.FlagSet.prefixes {
		r := row{left: "-" + fl.Name + "<" + fl.ExpectedType + ">", usage: fl.Usage}
		t.add(r)
		options = append(options, r)
	}

	groups := make([]FlagGroup, len(a.FlagSet.groups))
	copy(groups, a.FlagSet.groups)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	groupRows := make([][]row, len(groups))
	for i, g := range groups {
		if len(g.Flags) == 0 {
			continue
		}
		kind, prefix := g.GroupType, g.Flags[0].Prefix
		if kind == "" {
			kind = "flag"
		}
		t.add(row{left: "-" + prefix + "<" + kind + ">", usage: "Enable a specific " + kind})
		t.add(row{left: "-" + prefix + "no-<" + kind + ">", usage: "Disable a specific " + kind})

		entries := append([]FlagGroupEntry(nil), g.Flags...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			mark := "|-|"
			if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) {
				mark = "|x|"
			}
			r := row{left: e.Name, usage: e.Usage, right: mark}
			t.add(r)
			groupRows[i] = append(groupRows[i], r)
		}
	}

	years := fmt.Sprint(time.Now().Year())
	if a.Since > 0 && a.Since < time.Now().Year() {
		years = fmt.Sprintf("%d-%s", a.Since, years)
	}
	fmt.Fprintf(&sb, "\n%sCopyright (c) %s: %s and contributors\n", indentUnit, years, strings.Join(a.Authors, ", "))
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indentUnit, a.Repository)
	}
	if a.Synopsis != "" {
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s%s %s\n", indentUnit, indentUnit, indentUnit, a.Name, a.Synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n%s%s%s\n", indentUnit, indentUnit, indentUnit, a.Description)
	}
	if len(options) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indentUnit)
		t.write(&sb, options, width)
	}
	for i, g := range groups {
		if len(g.Flags) == 0 {
			continue
		}
		kind, prefix := g.GroupType, g.Flags[0].Prefix
		if kind == "" {
			kind = "flag"
		}
		fmt.Fprintf(&sb, "\n%s%s\n", indentUnit, g.Name)
		if g.Description != "" {
			fmt.Fprintf(&sb, "%s%s\n", indentUnit, g.Description)
		}
		t.write(&sb, []row{
			{left: "-" + prefix + "<" + kind + ">", usage: "Enable a specific " + kind},
			{left: "-" + prefix + "no-<" + kind + ">", usage: "Disable a specific " + kind},
		}, width)
		if g.Header != "" {
			fmt.Fprintf(&sb, "%s%s\n", indentUnit, g.Header)
		}
		t.write(&sb, groupRows[i], width)
	}
	io.WriteString(w, sb.String())
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

// wrapText breaks text into lines of at most maxWidth display columns.
// A single word wider than maxWidth gets a line of its own.
func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxWidth <= 0 {
		return []string{strings.Join(words, " ")}
	}
	var lines []string
	line, lineWidth := words[0], runewidth.StringWidth(words[0])
	for _, word := range words[1:] {
		ww := runewidth.StringWidth(word)
		if lineWidth+1+ww > maxWidth {
			lines = append(lines, line)
			line, lineWidth = word, ww
			continue
		}
		line += " " + word
		lineWidth += 1 + ww
	}
	return append(lines, line)
}
