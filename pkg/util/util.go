package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/token"
	"golang.org/x/term"
)

// Category is the class of a fatal diagnostic.
type Category int

const (
	Lexical Category = iota
	Syntax
	Semantic
)

func (c Category) String() string {
	switch c {
	case Lexical:
		return "lexical"
	case Syntax:
		return "syntax"
	default:
		return "semantic"
	}
}

// CompileError is the first fatal problem found in a compilation unit.
type CompileError struct {
	Tok      token.Token
	Category Category
	Msg      string
}

func (e *CompileError) Error() string {
	filename, line, col := findFileAndLine(e.Tok)
	return fmt.Sprintf("%s:%d:%d: %s error: %s", filename, line, col, e.Category, e.Msg)
}

func Errorf(cat Category, tok token.Token, format string, args ...interface{}) *CompileError {
	return &CompileError{Tok: tok, Category: cat, Msg: fmt.Sprintf(format, args...)}
}

// Raise aborts the current parse or lowering pass. The pass recovers it
// with Recover at its public entry point.
func Raise(cat Category, tok token.Token, format string, args ...interface{}) {
	panic(Errorf(cat, tok, format, args...))
}

// Recover turns a raised *CompileError back into an error. Any other panic
// keeps unwinding.
func Recover(errp *error) {
	if r := recover(); r != nil {
		if ce, ok := r.(*CompileError); ok {
			*errp = ce
			return
		}
		panic(r)
	}
}

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var (
	sourceMu    sync.RWMutex
	sourceFiles []SourceFileRecord

	// Stderr receives every diagnostic. Writes are serialized.
	Stderr io.Writer = os.Stderr
	outMu  sync.Mutex

	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	caretColor   = color.New(color.FgGreen)
)

func init() {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		color.NoColor = true
	}
}

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) {
	sourceMu.Lock()
	sourceFiles = files
	sourceMu.Unlock()
}

// AddSourceFile registers one more file and returns its index.
func AddSourceFile(rec SourceFileRecord) int {
	sourceMu.Lock()
	defer sourceMu.Unlock()
	sourceFiles = append(sourceFiles, rec)
	return len(sourceFiles) - 1
}

// findFileAndLine converts a global token to a file-specific location
func findFileAndLine(tok token.Token) (filename string, line, col int) {
	sourceMu.RLock()
	defer sourceMu.RUnlock()
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "<input>", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

func sourceLine(tok token.Token) ([]rune, bool) {
	sourceMu.RLock()
	defer sourceMu.RUnlock()
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return nil, false
	}

	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}
	if lineNum > 1 {
		return nil, false
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}
	return content[lineStart:lineEnd], true
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(w io.Writer, tok token.Token) {
	line, ok := sourceLine(tok)
	if !ok {
		return
	}
	fmt.Fprintf(w, "  %s\n", string(line))

	// Tabs are echoed so the caret stays aligned whatever the tab width.
	var pad strings.Builder
	for i := 0; i < tok.Column-1 && i < len(line); i++ {
		if line[i] == '\t' {
			pad.WriteByte('\t')
			continue
		}
		pad.WriteString(strings.Repeat(" ", runewidth.RuneWidth(line[i])))
	}

	width := 1
	if tok.Len > 1 {
		end := tok.Column - 1 + tok.Len
		if end > len(line) {
			end = len(line)
		}
		if start := tok.Column - 1; start < end {
			width = runewidth.StringWidth(string(line[start:end]))
		}
	}
	caret := "^"
	if width > 1 {
		caret += strings.Repeat("~", width-1)
	}
	fmt.Fprintf(w, "  %s%s\n", pad.String(), caretColor.Sprint(caret))
}

// Report prints err to Stderr. A *CompileError is shown with its source
// line; anything else is prefixed with the program name.
func Report(err error) {
	outMu.Lock()
	defer outMu.Unlock()

	var ce *CompileError
	if !errors.As(err, &ce) {
		fmt.Fprintf(Stderr, "xcc: %s %v\n", errorColor.Sprint("error:"), err)
		return
	}
	filename, line, col := findFileAndLine(ce.Tok)
	fmt.Fprintf(Stderr, "%s:%d:%d: %s %s\n", filename, line, col, errorColor.Sprintf("%s error:", ce.Category), ce.Msg)
	printErrorLine(Stderr, ce.Tok)
}

// Error prints a formatted error message and exits the program
func Error(tok token.Token, format string, args ...interface{}) {
	Report(Errorf(Semantic, tok, format, args...))
	os.Exit(1)
}

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	outMu.Lock()
	defer outMu.Unlock()

	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(Stderr, "%s:%d:%d: %s ", filename, line, col, warningColor.Sprint("warning:"))
	fmt.Fprintf(Stderr, format, args...)
	fmt.Fprintf(Stderr, " [-W%s]\n", cfg.Warnings[wt].Name)
	printErrorLine(Stderr, tok)
}

func AlignUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
