package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
)

var (
	green   = color.New(color.FgHiGreen).SprintFunc()
	red     = color.New(color.FgHiRed).SprintFunc()
	yellow  = color.New(color.FgHiYellow).SprintFunc()
	cyan    = color.New(color.FgHiCyan).SprintFunc()
	magenta = color.New(color.FgHiMagenta).SprintFunc()
	bold    = color.New(color.Bold).SprintFunc()

	errTag  = red("[ERROR]")
	warnTag = yellow("[WARN]")
	okTag   = green("[OK]")
)

func statusTag(s Status) string {
	switch s {
	case Pass:
		return green(s)
	case Skip:
		return yellow(s)
	default:
		return red(s)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dus", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func formatDiff(diff string) string {
	var b strings.Builder
	b.WriteString("    --- diff ---\n")
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-"):
			line = red(line)
		case strings.HasPrefix(trimmed, "+"):
			line = green(line)
		}
		b.WriteString("    " + line + "\n")
	}
	return b.String()
}

// faster colours the smaller of two durations.
func faster(a, b time.Duration) (string, string) {
	sa, sb := formatDuration(a), formatDuration(b)
	switch {
	case a < b:
		sa = magenta(sa)
	case b < a:
		sb = magenta(sb)
	}
	return sa, sb
}

func totalRuntime(r *Result) time.Duration {
	var d time.Duration
	for _, run := range r.Runs {
		d += run.Result.Duration
	}
	return d
}

func printSummary(w io.Writer, results []*FileResult) {
	targetName, refName := filepath.Base(*targetCompiler), filepath.Base(*refCompiler)
	counts := make(map[Status]int)
	var targetCompile, refCompile, targetRun, refRun time.Duration
	compared := 0

	for _, r := range results {
		counts[r.Status]++
		fmt.Fprintln(w, strings.Repeat("-", 70))
		fmt.Fprintf(w, "Testing %s...\n", cyan(r.File))
		fmt.Fprintf(w, "  [%s] %s\n", statusTag(r.Status), r.Message)
		if r.Diff != "" {
			fmt.Fprint(w, formatDiff(r.Diff))
		}
		if r.Reference == nil || r.Target == nil {
			continue
		}

		compared++
		targetCompile += r.Target.Compile.Duration
		refCompile += r.Reference.Compile.Duration
		targetRun += totalRuntime(r.Target)
		refRun += totalRuntime(r.Reference)

		if *verbose {
			refRuns := make(map[string]time.Duration, len(r.Reference.Runs))
			for _, run := range r.Reference.Runs {
				refRuns[run.Name] = run.Result.Duration
			}
			for _, run := range r.Target.Runs {
				if d, ok := refRuns[run.Name]; ok {
					a, b := faster(run.Result.Duration, d)
					fmt.Fprintf(w, "    %-16s %s: %s | %s: %s\n", run.Name, targetName, a, refName, b)
				}
			}
		}
		a, b := faster(r.Target.Compile.Duration, r.Reference.Compile.Duration)
		fmt.Fprintf(w, "    compile  %s: %s | %s: %s\n", targetName, a, refName, b)
	}

	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "%s %s, %s, %s, %s, %d total\n", bold("Test Summary:"),
		green(counts[Pass], " passed"), red(counts[Fail], " failed"),
		yellow(counts[Skip], " skipped"), red(counts[Error], " errored"), len(results))

	if compared == 0 {
		return
	}
	fmt.Fprintln(w, "---")
	if line := ratio(targetName, refName, targetCompile, refCompile, "to compile"); line != "" {
		fmt.Fprintln(w, line)
	}
	if line := ratio(targetName, refName, targetRun, refRun, "at run time"); line != "" {
		fmt.Fprintln(w, line)
	}
}

func ratio(targetName, refName string, target, ref time.Duration, what string) string {
	switch {
	case target > ref && ref > 0:
		return fmt.Sprintf("%s was %s slower %s than %s.", bold(targetName), red(fmt.Sprintf("%.2fx", float64(target)/float64(ref))), what, refName)
	case ref > target && target > 0:
		return fmt.Sprintf("%s was %s faster %s than %s.", bold(targetName), green(fmt.Sprintf("%.2fx", float64(ref)/float64(target))), what, refName)
	}
	return ""
}
