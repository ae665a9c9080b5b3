package codegen

import (
	"github.com/xplshn/xcc/pkg/ast"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/ir"
	"github.com/xplshn/xcc/pkg/token"
)

// codegenStmt lowers a statement and reports whether control cannot fall
// out of it.
func (ctx *Context) codegenStmt(node *ast.Node) (terminates bool) {
	if node == nil {
		return ctx.currentBlock == nil
	}
	switch node.Type {
	case ast.Block:
		warned := false
		for _, item := range node.Data.(ast.BlockNode).Items {
			switch {
			case isLabeled(item):
				warned = false
			case ctx.currentBlock == nil && !warned && item.Type != ast.Decl:
				ctx.warn(config.WarnUnreachableCode, item.Tok, "code will never be executed")
				warned = true
			}
			ctx.codegenStmt(item)
		}

	case ast.Decl:
		ctx.codegenLocalDecl(node)
	case ast.ExprStmt:
		ctx.codegenExprStmt(node)
	case ast.If:
		ctx.codegenIf(node)
	case ast.While:
		ctx.codegenWhile(node)
	case ast.DoWhile:
		ctx.codegenDoWhile(node)
	case ast.For:
		ctx.codegenFor(node)
	case ast.Switch:
		ctx.codegenSwitch(node)
	case ast.Return:
		ctx.codegenReturn(node)

	case ast.Label:
		d := node.Data.(ast.LabelNode)
		ctx.startBlock(userLabel(d.Name))
		ctx.codegenStmt(d.Stmt)

	case ast.Goto:
		ctx.jump(userLabel(node.Data.(ast.GotoNode).Label))

	case ast.Break:
		if ctx.breakLabel == nil {
			ctx.errorf(node.Tok, "'break' statement not in loop or switch statement")
		}
		ctx.jump(ctx.breakLabel)

	case ast.Continue:
		if ctx.continueLabel == nil {
			ctx.errorf(node.Tok, "'continue' statement not in loop statement")
		}
		ctx.jump(ctx.continueLabel)

	case ast.Case, ast.Default:
		label, ok := ctx.switchCaseLabels[node]
		if !ok {
			ctx.errorf(node.Tok, "'%s' statement not in switch statement", node.Tok.Value)
		}
		ctx.startBlock(label)
		if node.Type == ast.Case {
			ctx.codegenStmt(node.Data.(ast.CaseNode).Body)
		} else {
			ctx.codegenStmt(node.Data.(ast.DefaultNode).Body)
		}

	default:
		ctx.errorf(node.Tok, "internal: unhandled statement in codegen")
	}
	return ctx.currentBlock == nil
}

func isLabeled(n *ast.Node) bool {
	return n.Type == ast.Label || n.Type == ast.Case || n.Type == ast.Default
}

func (ctx *Context) codegenExprStmt(node *ast.Node) {
	expr := node.Data.(ast.ExprStmtNode).Expr
	if expr == nil {
		return
	}
	if !hasSideEffects(expr) {
		ctx.warn(config.WarnUnusedValue, expr.Tok, "expression result unused")
	}
	ctx.rvalue(expr)
}

// hasSideEffects reports whether the value of an expression statement may
// be discarded without a warning.
func hasSideEffects(n *ast.Node) bool {
	n = stripParens(n)
	switch n.Type {
	case ast.Assign, ast.Call, ast.PostfixOp:
		return true
	case ast.UnaryOp:
		op := n.Data.(ast.UnaryOpNode).Op
		return op == token.Inc || op == token.Dec
	case ast.Cast:
		return n.Data.(ast.CastNode).Type.Type.IsVoid() || hasSideEffects(n.Data.(ast.CastNode).Expr)
	case ast.Comma:
		return hasSideEffects(n.Data.(ast.CommaNode).Right)
	case ast.Ternary:
		d := n.Data.(ast.TernaryNode)
		return hasSideEffects(d.Then) || hasSideEffects(d.Else)
	case ast.BinaryOp:
		d := n.Data.(ast.BinaryOpNode)
		if d.Op == token.AndAnd || d.Op == token.OrOr {
			return hasSideEffects(d.Right)
		}
	}
	return false
}

func (ctx *Context) codegenReturn(node *ast.Node) {
	expr := node.Data.(ast.ReturnNode).Expr
	ret := ctx.fnEntity.Type.Ret
	switch {
	case expr == nil && ret.IsVoid():
		ctx.addInstr(&ir.Instruction{Op: ir.OpRet})
	case expr == nil:
		ctx.warn(config.WarnExtra, node.Tok, "non-void function '%s' should return a value", ctx.fnEntity.Name)
		ctx.implicitReturn(ret)
	case ret.IsVoid():
		val := ctx.rvalue(expr)
		if !val.typ.IsVoid() {
			ctx.errorf(expr.Tok, "void function '%s' should not return a value", ctx.fnEntity.Name)
		}
		ctx.addInstr(&ir.Instruction{Op: ir.OpRet})
	default:
		val := ctx.assign(ctx.rvalue(expr), ret, expr.Tok, "returning")
		ctx.addInstr(&ir.Instruction{Op: ir.OpRet, Args: []ir.Value{val.val}})
	}
}

func (ctx *Context) codegenIf(node *ast.Node) {
	d := node.Data.(ast.IfNode)
	thenL, endL := ctx.newLabel("if.then"), ctx.newLabel("if.end")
	elseL := endL
	if d.Else != nil {
		elseL = ctx.newLabel("if.else")
	}

	ctx.codegenLogicalCond(d.Cond, thenL, elseL)

	ctx.startBlock(thenL)
	thenTerminates := ctx.codegenStmt(d.Then)
	if !thenTerminates {
		ctx.jump(endL)
	}

	if d.Else != nil {
		ctx.startBlock(elseL)
		elseTerminates := ctx.codegenStmt(d.Else)
		if !elseTerminates {
			ctx.jump(endL)
		}
		if thenTerminates && elseTerminates {
			return
		}
	}
	ctx.startBlock(endL)
}

// loop installs the break and continue targets of a loop body.
func (ctx *Context) loop(breakL, continueL *ir.Label, body *ast.Node) {
	oldBreak, oldContinue := ctx.breakLabel, ctx.continueLabel
	ctx.breakLabel, ctx.continueLabel = breakL, continueL
	defer func() { ctx.breakLabel, ctx.continueLabel = oldBreak, oldContinue }()
	ctx.codegenStmt(body)
}

func (ctx *Context) codegenWhile(node *ast.Node) {
	d := node.Data.(ast.WhileNode)
	startL, bodyL, endL := ctx.newLabel("while.cond"), ctx.newLabel("while.body"), ctx.newLabel("while.end")

	ctx.startBlock(startL)
	ctx.codegenLogicalCond(d.Cond, bodyL, endL)

	ctx.startBlock(bodyL)
	ctx.loop(endL, startL, d.Body)
	if ctx.currentBlock != nil {
		ctx.jump(startL)
	}

	ctx.startBlock(endL)
}

func (ctx *Context) codegenDoWhile(node *ast.Node) {
	d := node.Data.(ast.DoWhileNode)
	bodyL, condL, endL := ctx.newLabel("do.body"), ctx.newLabel("do.cond"), ctx.newLabel("do.end")

	ctx.startBlock(bodyL)
	ctx.loop(endL, condL, d.Body)

	ctx.startBlock(condL)
	ctx.codegenLogicalCond(d.Cond, bodyL, endL)

	ctx.startBlock(endL)
}

func (ctx *Context) codegenFor(node *ast.Node) {
	d := node.Data.(ast.ForNode)
	condL, bodyL := ctx.newLabel("for.cond"), ctx.newLabel("for.body")
	postL, endL := ctx.newLabel("for.post"), ctx.newLabel("for.end")

	if d.Init != nil {
		ctx.codegenStmt(d.Init)
	}

	ctx.startBlock(condL)
	if d.Cond != nil {
		ctx.codegenLogicalCond(d.Cond, bodyL, endL)
	}

	ctx.startBlock(bodyL)
	ctx.loop(endL, postL, d.Body)

	ctx.startBlock(postL)
	if d.Post != nil {
		ctx.rvalue(d.Post)
	}
	ctx.jump(condL)

	ctx.startBlock(endL)
}

func (ctx *Context) codegenSwitch(node *ast.Node) {
	d := node.Data.(ast.SwitchNode)
	ctrl := ctx.rvalue(d.Expr)
	if !ctrl.typ.IsInteger() {
		ctx.errorf(d.Expr.Tok, "statement requires expression of integer type ('%s' invalid)", ctrl.typ)
	}
	ctrl = ctx.promote(ctrl)
	endL := ctx.newLabel("switch.end")
	defaultTarget := endL

	caseLabels := make(map[*ast.Node]*ir.Label)
	var cases []*ast.Node
	ast.Inspect(d.Body, func(n *ast.Node) bool {
		switch n.Type {
		case ast.Switch:
			return false
		case ast.Case:
			caseLabels[n] = ctx.newLabel("switch.case")
			cases = append(cases, n)
		case ast.Default:
			caseLabels[n] = ctx.newLabel("switch.default")
			defaultTarget = caseLabels[n]
		}
		return !n.IsExpr()
	})

	seen := make(map[int64]bool)
	for _, c := range cases {
		expr := c.Data.(ast.CaseNode).Expr
		val, ok := ctx.constEval(expr)
		if !ok {
			ctx.errorf(expr.Tok, "expression is not an integer constant expression")
		}
		v := ctx.assign(operand{val: &ir.Const{Value: val.val}, typ: val.typ}, ctrl.typ, expr.Tok, "initializing").val.(*ir.Const)
		if seen[v.Value] {
			ctx.errorf(expr.Tok, "duplicate case value '%s'", ctx.formatConst(constant{val: v.Value, typ: ctrl.typ}))
		}
		seen[v.Value] = true

		next := ctx.newLabel("switch.next")
		eq := ctx.compare(ir.OpCEq, ctx.baseType(ctrl.typ), ctrl.val, v)
		ctx.branch(eq, caseLabels[c], next)
		ctx.startBlock(next)
	}
	ctx.jump(defaultTarget)

	oldBreak, oldCases := ctx.breakLabel, ctx.switchCaseLabels
	ctx.breakLabel, ctx.switchCaseLabels = endL, caseLabels
	defer func() { ctx.breakLabel, ctx.switchCaseLabels = oldBreak, oldCases }()

	ctx.codegenStmt(d.Body)

	ctx.startBlock(endL)
}
