package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Unstable bool          `json:"unstable,omitempty"`
}

// Case is one invocation of a compiled test program.
type Case struct {
	Name  string   `json:"name"`
	Args  []string `json:"args,omitempty"`
	Input string   `json:"input,omitempty"`
}

type CaseRun struct {
	Case
	Result Execution `json:"result"`
}

// Result is what a compiler produced for one source file.
type Result struct {
	Compile Execution `json:"compile"`
	Runs    []CaseRun `json:"runs,omitempty"`
}

func lookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// parseCases collects the cases declared in a test program. A line of the
// form
//
//	// xtest: name arg...
//
// adds a case passing args to the program, and
//
//	// xtest-input: name text
//
// sets the standard input of a case, with \n standing for a newline. A
// program without declarations runs once as "default".
func parseCases(src []byte) []Case {
	var cases []Case
	index := make(map[string]int)
	get := func(name string) *Case {
		if i, ok := index[name]; ok {
			return &cases[i]
		}
		index[name] = len(cases)
		cases = append(cases, Case{Name: name})
		return &cases[len(cases)-1]
	}

	sc := bufio.NewScanner(bytes.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if rest, ok := strings.CutPrefix(line, "// xtest-input:"); ok {
			name, text, _ := strings.Cut(strings.TrimSpace(rest), " ")
			if name != "" {
				get(name).Input = strings.ReplaceAll(text, `\n`, "\n")
			}
			continue
		}
		if rest, ok := strings.CutPrefix(line, "// xtest:"); ok {
			fields := strings.Fields(rest)
			if len(fields) > 0 {
				get(fields[0]).Args = fields[1:]
			}
		}
	}
	if len(cases) == 0 {
		cases = append(cases, Case{Name: "default"})
	}
	return cases
}

func execute(ctx context.Context, stdin string, name string, args ...string) Execution {
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	start := time.Now()
	err := cmd.Run()
	ex := Execution{Duration: time.Since(start), Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		ex.TimedOut, ex.ExitCode = true, -1
	case errors.As(err, &exitErr):
		ex.ExitCode = exitErr.ExitCode()
	case err != nil:
		ex.ExitCode, ex.Stderr = -1, err.Error()
	}
	return ex
}

// compileAndRun builds source with compiler and runs every declared case.
// A failed compilation is a result, not an error; errors are reserved for
// problems of the harness itself.
func compileAndRun(ctx context.Context, compiler string, extra []string, source, tempDir, hash string) (*Result, error) {
	src, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}
	binary := filepath.Join(tempDir, fmt.Sprintf("%s-%s", filepath.Base(compiler), hash))

	args := append([]string{"-o", binary, source}, extra...)
	res := &Result{Compile: execute(ctx, "", compiler, args...)}
	if res.Compile.ExitCode != 0 || res.Compile.TimedOut {
		return res, ctx.Err()
	}
	defer os.Remove(binary)

	ignored := splitIgnored(*ignoreLines)
	for _, c := range parseCases(src) {
		best := execute(ctx, c.Input, binary, c.Args...)
		for i := 1; i < *runs && best.ExitCode == 0 && !best.TimedOut; i++ {
			again := execute(ctx, c.Input, binary, c.Args...)
			if !sameOutput(best, again, ignored) {
				best.Unstable = true
				break
			}
			best.Duration = min(best.Duration, again.Duration)
		}
		res.Runs = append(res.Runs, CaseRun{Case: c, Result: best})
	}
	return res, ctx.Err()
}

func sameOutput(a, b Execution, ignored []string) bool {
	return a.ExitCode == b.ExitCode &&
		filterOutput(a.Stdout, ignored) == filterOutput(b.Stdout, ignored) &&
		filterOutput(a.Stderr, ignored) == filterOutput(b.Stderr, ignored)
}

// filterOutput drops the lines containing any of the ignored substrings.
func filterOutput(out string, ignored []string) string {
	if len(ignored) == 0 || out == "" {
		return out
	}
	lines := strings.Split(out, "\n")
	kept := lines[:0]
	for _, line := range lines {
		drop := false
		for _, sub := range ignored {
			if strings.Contains(line, sub) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// observed is the part of a run that must agree between compilers.
type observed struct {
	Name     string
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

func observe(r *Result, ignored []string) []observed {
	out := make([]observed, 0, len(r.Runs))
	for _, run := range r.Runs {
		out = append(out, observed{
			Name:     run.Name,
			Stdout:   filterOutput(run.Result.Stdout, ignored),
			Stderr:   filterOutput(run.Result.Stderr, ignored),
			ExitCode: run.Result.ExitCode,
			TimedOut: run.Result.TimedOut,
		})
	}
	return out
}

// compareResults fills in the verdict of fr from its reference and target
// results.
func compareResults(fr *FileResult, ignored []string) {
	ref, target := fr.Reference, fr.Target
	refOK, targetOK := ref.Compile.ExitCode == 0, target.Compile.ExitCode == 0
	switch {
	case !refOK && !targetOK:
		fr.Status, fr.Message = Pass, "both compilers rejected the program"
		return
	case !targetOK:
		fr.Status, fr.Message = Fail, "target compiler rejected a program the reference accepts"
		fr.Diff = target.Compile.Stderr
		return
	case !refOK:
		fr.Status, fr.Message = Fail, "target compiler accepted a program the reference rejects"
		fr.Diff = ref.Compile.Stderr
		return
	}

	if diff := cmp.Diff(observe(ref, ignored), observe(target, ignored)); diff != "" {
		fr.Status, fr.Message, fr.Diff = Fail, "runtime behaviour differs (-reference +target)", diff
		return
	}
	fr.Status, fr.Message = Pass, fmt.Sprintf("%d case(s) match", len(target.Runs))
	for _, run := range target.Runs {
		if run.Result.Unstable {
			fr.Message += "; output is unstable across runs"
			break
		}
	}
}
