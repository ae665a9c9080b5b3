package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/xplshn/xcc/pkg/ast"
	"github.com/xplshn/xcc/pkg/cache"
	"github.com/xplshn/xcc/pkg/cli"
	"github.com/xplshn/xcc/pkg/codegen"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/lexer"
	"github.com/xplshn/xcc/pkg/parser"
	"github.com/xplshn/xcc/pkg/printer"
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/util"
	"golang.org/x/sync/errgroup"
)

// errReported is returned once a diagnostic has already been printed.
var errReported = errors.New("compilation failed")

type mode int

const (
	modeLink mode = iota
	modeTokenize
	modeParse
	modePrintAST
	modeDumpIR
	modeAssembly
)

type options struct {
	mode       mode
	outFile    string
	verbose    bool
	noCache    bool
	linkerArgs []string
	libs       []string
}

// unit is one input file and what compiling it produced.
type unit struct {
	path    string
	index   int
	content []rune

	ast *ast.Node
	ir  string
	asm []byte
}

func main() {
	app := cli.NewApp("xcc")
	app.Synopsis = "[options] <input.c> ..."
	app.Description = "A compiler for a pragmatic subset of C, built on QBE."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/xcc>"
	app.Since = 2025

	var (
		outFile     string
		std         string
		target      string
		configPath  string
		linkerArgs  []string
		libRequests []string
		pedantic    bool
		verbose     bool
		noCache     bool
		tokenize    bool
		parseOnly   bool
		printAST    bool
		dumpIR      bool
		assembly    bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&target, "target", "t", "qbe", "Set the backend and target ABI.", "backend/target")
	fs.String(&std, "std", "", "c11", "Specify language standard (c89, c99, c11)", "std")
	fs.String(&configPath, "config", "", "", "Read project settings from <file> instead of searching for xcc.toml.", "file")
	fs.Bool(&pedantic, "pedantic", "", false, "Issue all warnings demanded by the current C std.")
	fs.Bool(&verbose, "verbose", "v", false, "Print each compilation stage.")
	fs.Bool(&noCache, "no-cache", "", false, "Do not read or write the build cache.")
	fs.Bool(&tokenize, "tokenize", "", false, "Print the token stream and exit.")
	fs.Bool(&parseOnly, "parse", "", false, "Check syntax and semantics and exit.")
	fs.Bool(&printAST, "print-ast", "", false, "Print the parsed program as C source and exit.")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Dump the QBE intermediate language and exit.")
	fs.Bool(&assembly, "assembly", "S", false, "Stop after generating assembly.")
	fs.List(&linkerArgs, "linker-arg", "L", []string{}, "Pass an argument to the linker.", "arg")
	fs.Special(&libRequests, "l", "Link with a library (e.g., -lm for 'm')", "lib")

	cfg := config.NewConfig()
	cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		if len(inputFiles) == 0 {
			util.Report(errors.New("no input files specified"))
			return errReported
		}

		project, err := loadProject(configPath, inputFiles[0])
		if err != nil {
			util.Report(err)
			return errReported
		}
		if project != nil {
			if err := cfg.Apply(project); err != nil {
				util.Report(err)
				return errReported
			}
			if t, ok := project.Target(); ok && !fs.Changed("target") {
				target = t
			}
			if project.Build.Output != "" && !fs.Changed("output") {
				outFile = project.Build.Output
			}
		}

		// Command line settings override the project file.
		if fs.Changed("std") {
			if err := cfg.ApplyStd(std); err != nil {
				util.Report(err)
				return errReported
			}
		}
		if pedantic {
			cfg.SetWarning(config.WarnPedantic, true)
		}
		cfg.ApplyFlagGroups(fs)

		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
			util.Report(err)
			return errReported
		}

		opts := options{
			outFile:    outFile,
			verbose:    verbose,
			noCache:    noCache,
			linkerArgs: append(cfg.LinkerArgs, linkerArgs...),
			libs:       append(cfg.LibRequests, libRequests...),
		}
		switch {
		case tokenize:
			opts.mode = modeTokenize
		case parseOnly:
			opts.mode = modeParse
		case printAST:
			opts.mode = modePrintAST
		case dumpIR:
			opts.mode = modeDumpIR
		case assembly:
			opts.mode = modeAssembly
		}
		return run(cfg, opts, inputFiles)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func loadProject(configPath, firstInput string) (*config.Project, error) {
	if configPath == "" {
		path, found, err := config.FindProjectFile(filepath.Dir(firstInput))
		if err != nil || !found {
			return nil, err
		}
		configPath = path
	}
	return config.LoadProjectFile(configPath)
}

func run(cfg *config.Config, opts options, paths []string) error {
	units := make([]*unit, len(paths))
	records := make([]util.SourceFileRecord, len(paths))
	for i, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			util.Report(fmt.Errorf("could not read file '%s': %w", path, err))
			return errReported
		}
		units[i] = &unit{path: path, index: i, content: []rune(string(content))}
		records[i] = util.SourceFileRecord{Name: path, Content: units[i].content}
	}
	util.SetSourceFiles(records)

	if opts.mode == modeTokenize {
		return tokenizeAll(cfg, units)
	}

	var buildCache *cache.Cache
	if !opts.noCache && opts.mode != modeParse && opts.mode != modePrintAST {
		c, err := cache.Open("")
		if err != nil && opts.verbose {
			fmt.Printf("Build cache disabled: %v\n", err)
		}
		buildCache = c
	}

	if opts.verbose {
		fmt.Printf("Compiling %d translation unit(s) for %s...\n", len(units), cfg.QbeTarget)
	}

	errs := make([]error, len(units))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, u := range units {
		g.Go(func() error {
			errs[u.index] = compileUnit(cfg, opts, buildCache, u)
			return nil
		})
	}
	_ = g.Wait()

	failed := false
	for _, err := range errs {
		if err != nil {
			util.Report(err)
			failed = true
		}
	}
	if failed {
		return errReported
	}

	switch opts.mode {
	case modeParse:
		return nil
	case modePrintAST:
		for _, u := range units {
			if len(units) > 1 {
				fmt.Printf("/* %s */\n", u.path)
			}
			fmt.Print(printer.Print(u.ast))
		}
		return nil
	case modeDumpIR:
		for _, u := range units {
			fmt.Print(u.ir)
		}
		return nil
	case modeAssembly:
		return writeAssembly(opts, units)
	}

	outFile := opts.outFile
	if outFile == "" {
		outFile = "a.out"
	}
	if opts.verbose {
		fmt.Printf("Linking to create '%s'...\n", outFile)
	}
	args := append([]string(nil), opts.linkerArgs...)
	for _, lib := range opts.libs {
		args = append(args, "-l"+lib)
	}
	if err := assembleAndLink(outFile, units, args); err != nil {
		util.Report(fmt.Errorf("assembler/linker failed: %w", err))
		return errReported
	}
	return nil
}

func tokenizeAll(cfg *config.Config, units []*unit) error {
	failed := false
	for _, u := range units {
		toks, errs := lexer.Tokenize(u.content, u.index, cfg)
		if writeTokens(os.Stdout, u.path, toks, errs) {
			failed = true
		}
	}
	if failed {
		return errReported
	}
	return nil
}

// writeTokens prints every token of one file to w and reports invalid ones
// as diagnostics. It returns whether any token was invalid.
func writeTokens(w io.Writer, path string, toks []token.Token, errs []*util.CompileError) (failed bool) {
	next := 0
	for _, tok := range toks {
		switch tok.Type {
		case token.EOF:
			return failed
		case token.Invalid:
			failed = true
			if next < len(errs) {
				util.Report(errs[next])
				next++
			}
			continue
		}
		fmt.Fprintf(w, "%s:%d:%d: %s %s\n", path, tok.Line, tok.Column, tok.Type.Class(), tok.Value)
	}
	return failed
}

// The bundled QBE keeps global state; one unit at a time goes through it.
var qbeMu sync.Mutex

func compileUnit(cfg *config.Config, opts options, buildCache *cache.Cache, u *unit) error {
	source := string(u.content)
	key := cache.Key(source, cfg.Fingerprint())
	if buildCache != nil && opts.mode != modeParse && opts.mode != modePrintAST {
		if e, ok, err := buildCache.Get(key); err == nil && ok {
			if opts.verbose {
				fmt.Printf("%s: using cached build\n", u.path)
			}
			u.ir, u.asm = e.IR, e.Asm
			return nil
		}
	}

	toks, lexErrs := lexer.Tokenize(u.content, u.index, cfg)
	if len(lexErrs) > 0 {
		return lexErrs[0]
	}

	if opts.verbose {
		fmt.Printf("%s: parsing...\n", u.path)
	}
	p := parser.NewParser(toks, cfg)
	root, err := p.Parse()
	if err != nil {
		return err
	}
	u.ast = root
	if opts.mode == modeParse || opts.mode == modePrintAST {
		return nil
	}

	if opts.verbose {
		fmt.Printf("%s: creating intermediate representation...\n", u.path)
	}
	prog, err := codegen.NewContext(cfg, p.Universe()).Generate(root)
	if err != nil {
		return err
	}

	backend := codegen.NewQBEBackend()
	if u.ir, err = backend.GenerateIR(prog, cfg); err != nil {
		return fmt.Errorf("%s: backend IR generation failed: %w", u.path, err)
	}
	if opts.mode == modeDumpIR {
		return nil
	}

	if opts.verbose {
		fmt.Printf("%s: generating code for %s...\n", u.path, cfg.QbeTarget)
	}
	qbeMu.Lock()
	asm, err := backend.Generate(prog, cfg)
	qbeMu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: backend code generation failed: %w", u.path, err)
	}
	u.asm = asm.Bytes()

	if buildCache != nil {
		entry := &cache.Entry{Source: u.path, Target: cfg.QbeTarget, IR: u.ir, Asm: u.asm}
		if err := buildCache.Put(key, entry); err != nil && opts.verbose {
			fmt.Printf("%s: could not write build cache: %v\n", u.path, err)
		}
	}
	return nil
}

// asmName is the output of -S for one input.
func asmName(opts options, u *unit, single bool) string {
	if single && opts.outFile != "" {
		return opts.outFile
	}
	return strings.TrimSuffix(filepath.Base(u.path), filepath.Ext(u.path)) + ".s"
}

func writeAssembly(opts options, units []*unit) error {
	for _, u := range units {
		name := asmName(opts, u, len(units) == 1)
		if name == "-" {
			os.Stdout.Write(u.asm)
			continue
		}
		if err := os.WriteFile(name, u.asm, 0o644); err != nil {
			util.Report(err)
			return errReported
		}
	}
	return nil
}

func assembleAndLink(outFile string, units []*unit, linkerArgs []string) error {
	// PIE is not supported by every QBE target yet.
	ccArgs := []string{"-no-pie", "-o", outFile}
	for _, u := range units {
		asmFile, err := os.CreateTemp("", "xcc-*.s")
		if err != nil {
			return fmt.Errorf("failed to create temp file for %s: %w", u.path, err)
		}
		defer os.Remove(asmFile.Name())
		if _, err := asmFile.Write(u.asm); err != nil {
			asmFile.Close()
			return fmt.Errorf("failed to write assembly of %s: %w", u.path, err)
		}
		asmFile.Close()
		ccArgs = append(ccArgs, asmFile.Name())
	}
	ccArgs = append(ccArgs, linkerArgs...)

	cmd := exec.Command("cc", ccArgs...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cc command failed: %w\nOutput:\n%s", err, string(output))
	}
	return nil
}
