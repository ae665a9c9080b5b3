package printer

import (
	"strings"

	"github.com/xplshn/xcc/pkg/ast"
)

func (p *printer) decl(n *ast.Node) string {
	d := n.Data.(ast.DeclNode)
	if len(d.Inits) == 0 {
		return p.specs(d.Specs) + ";"
	}
	inits := make([]string, len(d.Inits))
	for i, init := range d.Inits {
		inits[i] = p.declarator(init.Decl)
		if init.Init != nil {
			inits[i] += " = " + p.expr(init.Init)
		}
	}
	return p.specs(d.Specs) + " " + strings.Join(inits, ", ") + ";"
}

// stmt prints one statement or declaration, ending with a newline.
func (p *printer) stmt(n *ast.Node) {
	w := p.w
	switch d := n.Data.(type) {
	case ast.DeclNode:
		w.WriteString(p.decl(n))
	case ast.FuncDefNode:
		w.WriteString(p.specs(d.Specs) + " " + p.declarator(d.Decl))
		p.body(d.Body)
	case ast.BlockNode:
		p.block(d)
	case ast.ExprStmtNode:
		if d.Expr != nil {
			w.WriteString(p.expr(d.Expr))
		}
		w.WriteString(";")
	case ast.IfNode:
		w.WriteString("if (" + p.expr(d.Cond) + ")")
		wasBlock := p.body(d.Then)
		if d.Else == nil {
			if !wasBlock {
				return
			}
			break
		}
		if wasBlock {
			w.WriteString(" else")
		} else {
			w.WriteString("else")
		}
		if d.Else.Type == ast.If {
			w.WriteString(" ")
			p.stmt(d.Else)
			return
		}
		if !p.body(d.Else) {
			return
		}
	case ast.SwitchNode:
		w.WriteString("switch (" + p.expr(d.Expr) + ")")
		if !p.body(d.Body) {
			return
		}
	case ast.WhileNode:
		w.WriteString("while (" + p.expr(d.Cond) + ")")
		if !p.body(d.Body) {
			return
		}
	case ast.DoWhileNode:
		w.WriteString("do")
		if p.body(d.Body) {
			w.WriteString(" ")
		}
		w.WriteString("while (" + p.expr(d.Cond) + ");")
	case ast.ForNode:
		w.WriteString("for (" + p.forClauses(d) + ")")
		if !p.body(d.Body) {
			return
		}
	case ast.GotoNode:
		w.WriteString("goto " + d.Label + ";")
	case ast.ContinueNode:
		w.WriteString("continue;")
	case ast.BreakNode:
		w.WriteString("break;")
	case ast.ReturnNode:
		if d.Expr == nil {
			w.WriteString("return;")
		} else {
			w.WriteString("return " + p.expr(d.Expr) + ";")
		}
	case ast.LabelNode:
		w.WriteString(d.Name + ":")
		w.Newline()
		p.stmt(d.Stmt)
		return
	case ast.CaseNode:
		w.WriteString("case " + p.expr(d.Expr) + ":")
		w.Newline()
		p.stmt(d.Body)
		return
	case ast.DefaultNode:
		w.WriteString("default:")
		w.Newline()
		p.stmt(d.Body)
		return
	}
	w.Newline()
}

func (p *printer) forClauses(d ast.ForNode) string {
	var sb strings.Builder
	switch {
	case d.Init == nil:
		sb.WriteString(";")
	case d.Init.Type == ast.Decl:
		sb.WriteString(p.decl(d.Init))
	default:
		sb.WriteString(p.expr(d.Init.Data.(ast.ExprStmtNode).Expr) + ";")
	}
	if d.Cond != nil {
		sb.WriteString(" " + p.expr(d.Cond))
	}
	sb.WriteString(";")
	if d.Post != nil {
		sb.WriteString(" " + p.expr(d.Post))
	}
	return sb.String()
}

// body prints the statement controlled by a header already written. A
// block opens on the header line and leaves the cursor after its '}'.
func (p *printer) body(n *ast.Node) bool {
	if n.Type == ast.Block {
		p.w.WriteString(" ")
		p.block(n.Data.(ast.BlockNode))
		return true
	}
	p.w.Newline()
	p.w.Indent()
	p.stmt(n)
	p.w.Unindent()
	return false
}

func (p *printer) block(b ast.BlockNode) {
	p.w.WriteString("{")
	p.w.Newline()
	p.w.Indent()
	for _, item := range b.Items {
		p.stmt(item)
	}
	p.w.Unindent()
	p.w.WriteString("}")
}
