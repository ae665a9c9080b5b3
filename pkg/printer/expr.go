package printer

import (
	"strings"

	"github.com/xplshn/xcc/pkg/ast"
	"github.com/xplshn/xcc/pkg/token"
)

func (p *printer) expr(n *ast.Node) string {
	switch d := n.Data.(type) {
	case ast.IdentNode:
		return d.Name
	case ast.NumberNode:
		return d.Text
	case ast.FloatNode:
		return d.Text
	case ast.CharNode:
		return d.Text
	case ast.StringNode:
		return strings.Join(d.Pieces, " ")
	case ast.ParenNode:
		return "(" + p.expr(d.Expr) + ")"
	case ast.SubscriptNode:
		return p.expr(d.Expr) + "[" + p.expr(d.Index) + "]"
	case ast.CallNode:
		args := make([]string, len(d.Args))
		for i, a := range d.Args {
			args[i] = p.expr(a)
		}
		return p.expr(d.Func) + "(" + strings.Join(args, ", ") + ")"
	case ast.MemberNode:
		if d.Arrow {
			return p.expr(d.Expr) + "->" + d.Name
		}
		return p.expr(d.Expr) + "." + d.Name
	case ast.PostfixOpNode:
		return p.expr(d.Expr) + d.Op.String()
	case ast.UnaryOpNode:
		return joinOperator(d.Op.String(), p.expr(d.Expr))
	case ast.SizeofExprNode:
		return "sizeof " + p.expr(d.Expr)
	case ast.SizeofTypeNode:
		return "sizeof(" + p.typeName(d.Type) + ")"
	case ast.CastNode:
		return "(" + p.typeName(d.Type) + ")" + p.expr(d.Expr)
	case ast.BinaryOpNode:
		return p.expr(d.Left) + " " + d.Op.String() + " " + p.expr(d.Right)
	case ast.TernaryNode:
		return p.expr(d.Cond) + " ? " + p.expr(d.Then) + " : " + p.expr(d.Else)
	case ast.AssignNode:
		return p.expr(d.Lhs) + " " + d.Op.String() + " " + p.expr(d.Rhs)
	case ast.CommaNode:
		return p.expr(d.Left) + ", " + p.expr(d.Right)
	}
	return ""
}

// joinOperator prefixes operand with a unary operator, separating the two
// when they would otherwise lex as a different token ("- -x", "& &x").
func joinOperator(op, operand string) string {
	if operand != "" && strings.ContainsRune("+-&", rune(operand[0])) && op[len(op)-1] == operand[0] {
		return op + " " + operand
	}
	return op + operand
}

func (p *printer) typeName(tn *ast.TypeName) string {
	return joinDecl(p.specs(tn.Specs), p.declarator(tn.Decl))
}

func joinDecl(specs, decl string) string {
	if decl == "" {
		return specs
	}
	return specs + " " + decl
}

func (p *printer) specs(s *ast.DeclSpecs) string {
	parts := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		if item.Record != nil {
			parts = append(parts, p.record(item.Kind, item.Record))
			continue
		}
		parts = append(parts, item.Kind.String())
	}
	return strings.Join(parts, " ")
}

func (p *printer) record(kind token.Type, rec *ast.RecordSpec) string {
	var sb strings.Builder
	sb.WriteString(kind.String())
	if rec.Name != "" {
		sb.WriteString(" " + rec.Name)
	}
	if !rec.HasBody {
		return sb.String()
	}
	sb.WriteString(" {")
	for _, f := range rec.Fields {
		decls := make([]string, len(f.Decls))
		for i, d := range f.Decls {
			decls[i] = p.declarator(d)
		}
		sb.WriteString(" " + p.specs(f.Specs) + " " + strings.Join(decls, ", ") + ";")
	}
	sb.WriteString(" }")
	return sb.String()
}

func (p *printer) declarator(d *ast.Declarator) string {
	if d == nil {
		return ""
	}
	var sb strings.Builder
	for _, ptr := range d.Pointers {
		sb.WriteString("*")
		for i, q := range ptr.Quals {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(q.String())
		}
		if len(ptr.Quals) > 0 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString(p.direct(d.Direct))
	return strings.TrimRight(sb.String(), " ")
}

func (p *printer) direct(dir ast.Direct) string {
	switch dd := dir.(type) {
	case *ast.IdentDeclarator:
		return dd.Name
	case *ast.ParenDeclarator:
		return "(" + p.declarator(dd.Inner) + ")"
	case *ast.FuncDeclarator:
		params := make([]string, 0, len(dd.Params)+1)
		for _, prm := range dd.Params {
			params = append(params, joinDecl(p.specs(prm.Specs), p.declarator(prm.Decl)))
		}
		if dd.Variadic {
			params = append(params, "...")
		}
		return p.direct(dd.Inner) + "(" + strings.Join(params, ", ") + ")"
	}
	return ""
}
