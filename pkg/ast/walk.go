package ast

// Children returns the direct child nodes of n in source order. Nil
// children are skipped.
func Children(n *Node) []*Node {
	var out []*Node
	add := func(nodes ...*Node) {
		for _, c := range nodes {
			if c != nil {
				out = append(out, c)
			}
		}
	}

	switch d := n.Data.(type) {
	case ParenNode:
		add(d.Expr)
	case SubscriptNode:
		add(d.Expr, d.Index)
	case CallNode:
		add(d.Func)
		add(d.Args...)
	case MemberNode:
		add(d.Expr)
	case PostfixOpNode:
		add(d.Expr)
	case UnaryOpNode:
		add(d.Expr)
	case SizeofExprNode:
		add(d.Expr)
	case CastNode:
		add(d.Expr)
	case BinaryOpNode:
		add(d.Left, d.Right)
	case TernaryNode:
		add(d.Cond, d.Then, d.Else)
	case AssignNode:
		add(d.Lhs, d.Rhs)
	case CommaNode:
		add(d.Left, d.Right)
	case BlockNode:
		add(d.Items...)
	case ExprStmtNode:
		add(d.Expr)
	case IfNode:
		add(d.Cond, d.Then, d.Else)
	case SwitchNode:
		add(d.Expr, d.Body)
	case WhileNode:
		add(d.Cond, d.Body)
	case DoWhileNode:
		add(d.Body, d.Cond)
	case ForNode:
		add(d.Init, d.Cond, d.Post, d.Body)
	case ReturnNode:
		add(d.Expr)
	case LabelNode:
		add(d.Stmt)
	case CaseNode:
		add(d.Expr, d.Body)
	case DefaultNode:
		add(d.Body)
	case DeclNode:
		for _, init := range d.Inits {
			add(init.Init)
		}
	case FuncDefNode:
		add(d.Body)
	case TranslationUnitNode:
		add(d.Decls...)
	}
	return out
}

// Inspect traverses the tree rooted at n in depth-first order. If f returns
// false the children of that node are skipped.
func Inspect(n *Node, f func(*Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}
