// Package printer renders an AST back to C source. Parsing the output again
// yields a structurally equal tree.
package printer

import (
	"bytes"
	"io"

	"github.com/xplshn/xcc/pkg/ast"
)

type Options struct {
	IndentWidth int
	UseTabs     bool
}

func (o Options) withDefaults() Options {
	if o.IndentWidth == 0 {
		o.IndentWidth = 4
	}
	return o
}

type printer struct {
	w *writer
}

// Print renders n with the default options.
func Print(n *ast.Node) string {
	var buf bytes.Buffer
	_ = Fprint(&buf, n, Options{})
	return buf.String()
}

// Fprint renders a translation unit, a statement or an expression to out.
func Fprint(out io.Writer, n *ast.Node, opt Options) error {
	p := &printer{w: newWriter(opt.withDefaults())}
	switch {
	case n == nil:
	case n.Type == ast.TranslationUnit:
		p.file(n)
	case n.IsExpr():
		p.w.WriteString(p.expr(n))
		p.w.Newline()
	default:
		p.stmt(n)
	}
	_, err := out.Write(p.w.Bytes())
	return err
}

func (p *printer) file(n *ast.Node) {
	for i, d := range n.Data.(ast.TranslationUnitNode).Decls {
		if i > 0 && (d.Type == ast.FuncDef || n.Data.(ast.TranslationUnitNode).Decls[i-1].Type == ast.FuncDef) {
			p.w.Newline()
		}
		p.stmt(d)
	}
}
