// Command xtest compiles every test program with xcc and with a reference C
// compiler, runs both binaries and compares what they print.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

type Status string

const (
	Pass  Status = "PASS"
	Fail  Status = "FAIL"
	Skip  Status = "SKIP"
	Error Status = "ERROR"
)

// FileResult is the outcome of one test program.
type FileResult struct {
	File      string  `json:"file"`
	Hash      string  `json:"hash"`
	Status    Status  `json:"status"`
	Message   string  `json:"message,omitempty"`
	Diff      string  `json:"diff,omitempty"`
	Reference *Result `json:"reference,omitempty"`
	Target    *Result `json:"target,omitempty"`
}

type Report map[string]*FileResult

var (
	refCompiler    = flag.String("ref-compiler", "cc", "Path to the reference C compiler.")
	refArgs        = flag.String("ref-args", "", "Extra arguments for the reference compiler (space-separated).")
	targetCompiler = flag.String("target-compiler", "./xcc", "Path to the compiler under test.")
	targetArgs     = flag.String("target-args", "", "Extra arguments for the compiler under test (space-separated).")
	generateGolden = flag.String("generate-golden", "", "Write a golden .json file for the given source file and exit.")
	testFiles      = flag.String("test-files", "tests/*.c", "Glob pattern(s) of test programs (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".xtest_results.json", "Where to write the JSON report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each command.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	runs           = flag.Int("runs", 3, "Runs per test case; the fastest one is kept.")
	verbose        = flag.Bool("v", false, "Print per-case timings.")
	useCache       = flag.Bool("cached", false, "Prefer golden files over the reference compiler.")
	jsonDir        = flag.String("dir", "", "Directory holding golden files (defaults to the source directory).")
	ignoreLines    = flag.String("ignore-lines", "", "Comma-separated substrings; output lines containing one are not compared.")
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	if *runs < 1 {
		*runs = 1
	}
	if *jobs < 1 {
		*jobs = 1
	}

	tempDir, err := os.MkdirTemp("", "xtest-*")
	if err != nil {
		log.Fatalf("%s failed to create temp directory: %v", errTag, err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var failed bool
	if *generateGolden != "" {
		err = writeGolden(ctx, *generateGolden, tempDir)
	} else {
		failed, err = runSuite(ctx, tempDir)
	}
	os.RemoveAll(tempDir)
	if err != nil {
		log.Fatalf("%s %v", errTag, err)
	}
	if failed {
		os.Exit(1)
	}
}

func goldenPath(source string) string {
	name := "." + filepath.Base(source) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, name)
	}
	return filepath.Join(filepath.Dir(source), name)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// golden is the on-disk expectation for one source file.
type golden struct {
	Hash   string  `json:"hash"`
	Result *Result `json:"result"`
}

func writeGolden(ctx context.Context, source, tempDir string) error {
	hash, err := hashFile(source)
	if err != nil {
		return err
	}
	res, err := compileAndRun(ctx, *refCompiler, strings.Fields(*refArgs), source, tempDir, hash)
	if err != nil {
		return fmt.Errorf("reference run of %s: %w", source, err)
	}
	data, err := json.MarshalIndent(golden{Hash: hash, Result: res}, "", "  ")
	if err != nil {
		return err
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0o755); err != nil {
			return err
		}
	}
	path := goldenPath(source)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	log.Printf("%s golden file written to %s", okTag, path)
	return nil
}

func readGolden(path, hash string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var g golden
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if g.Hash != hash {
		return nil, fmt.Errorf("%s is stale (source hash %s, golden %s)", path, hash, g.Hash)
	}
	return g.Result, nil
}

func runSuite(ctx context.Context, tempDir string) (bool, error) {
	files, err := expandGlobs(*testFiles)
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		log.Println("no test files matched")
		return false, nil
	}

	refAvailable := lookPath(*refCompiler)
	if !refAvailable && !*useCache {
		log.Printf("%s reference compiler %q not found, relying on golden files", warnTag, *refCompiler)
	}

	skip := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skip[abs] = true
		}
	}

	results := make([]*FileResult, len(files))
	seen := make(map[string]string)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*jobs)
	for i, file := range files {
		if skip[file] {
			results[i] = &FileResult{File: file, Status: Skip, Message: "explicitly skipped"}
			continue
		}
		hash, err := hashFile(file)
		if err != nil {
			results[i] = &FileResult{File: file, Status: Error, Message: err.Error()}
			continue
		}
		if orig, dup := seen[hash]; dup {
			results[i] = &FileResult{File: file, Hash: hash, Status: Skip, Message: "identical to " + orig}
			continue
		}
		seen[hash] = file
		g.Go(func() error {
			results[i] = testFile(gctx, file, hash, tempDir, refAvailable)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	printSummary(os.Stdout, results)

	report := make(Report, len(results))
	failed := false
	for _, r := range results {
		report[r.File] = r
		failed = failed || r.Status == Fail || r.Status == Error
	}
	return failed, writeReport(report)
}

func testFile(ctx context.Context, file, hash, tempDir string, refAvailable bool) *FileResult {
	fr := &FileResult{File: file, Hash: hash}
	path := goldenPath(file)

	var ref *Result
	var err error
	switch {
	case *useCache || !refAvailable:
		ref, err = readGolden(path, hash)
		if err != nil {
			fr.Status, fr.Message = Skip, fmt.Sprintf("no usable golden file: %v", err)
			return fr
		}
	default:
		ref, err = compileAndRun(ctx, *refCompiler, strings.Fields(*refArgs), file, tempDir, hash)
		if err != nil {
			fr.Status, fr.Message = Error, fmt.Sprintf("reference compiler: %v", err)
			return fr
		}
	}

	target, err := compileAndRun(ctx, *targetCompiler, strings.Fields(*targetArgs), file, tempDir, hash)
	if err != nil {
		fr.Status, fr.Message = Error, fmt.Sprintf("target compiler: %v", err)
		return fr
	}
	fr.Reference, fr.Target = ref, target
	compareResults(fr, splitIgnored(*ignoreLines))
	return fr
}

func writeReport(report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	out := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0o755); err != nil {
			return err
		}
		out = filepath.Join(*jsonDir, out)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Full report saved to %s\n", out)
	return nil
}

func expandGlobs(patterns string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil || seen[abs] {
				continue
			}
			if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
				files = append(files, abs)
				seen[abs] = true
			}
		}
	}
	return files, nil
}

func splitIgnored(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
