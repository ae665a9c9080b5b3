package codegen

import (
	"github.com/xplshn/xcc/pkg/ast"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/ir"
	"github.com/xplshn/xcc/pkg/scope"
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/types"
)

// rvalue lowers an expression for its value. Function designators decay
// to pointers to the function.
func (ctx *Context) rvalue(node *ast.Node) operand {
	switch node.Type {
	case ast.Number:
		d := node.Data.(ast.NumberNode)
		return operand{val: &ir.Const{Value: int64(d.Value)}, typ: d.Type}
	case ast.Char:
		return operand{val: &ir.Const{Value: node.Data.(ast.CharNode).Value}, typ: ctx.u.Basic(types.Int)}
	case ast.Float:
		return operand{val: floatConst(node.Data.(ast.FloatNode).Value), typ: ctx.u.Basic(types.Double)}
	case ast.String:
		return operand{val: ctx.addString(node.Data.(ast.StringNode).Value), typ: ctx.u.PointerTo(ctx.u.Basic(types.Char))}
	case ast.Paren:
		return ctx.rvalue(node.Data.(ast.ParenNode).Expr)
	case ast.Ident:
		return ctx.codegenIdent(node)
	case ast.Subscript, ast.Member:
		addr, t := ctx.lvalue(node)
		return ctx.load(addr, t)
	case ast.Call:
		return ctx.codegenCall(node)
	case ast.PostfixOp:
		d := node.Data.(ast.PostfixOpNode)
		return ctx.codegenIncDec(node.Tok, d.Op, d.Expr, true)
	case ast.UnaryOp:
		return ctx.codegenUnaryOp(node)
	case ast.SizeofExpr, ast.SizeofType:
		return operand{val: &ir.Const{Value: ctx.sizeof(node)}, typ: ctx.sizeType()}
	case ast.Cast:
		return ctx.codegenCast(node)
	case ast.BinaryOp:
		return ctx.codegenBinaryOp(node)
	case ast.Ternary:
		return ctx.codegenTernary(node)
	case ast.Assign:
		return ctx.codegenAssign(node)
	case ast.Comma:
		d := node.Data.(ast.CommaNode)
		ctx.rvalue(d.Left)
		return ctx.rvalue(d.Right)
	}
	ctx.errorf(node.Tok, "internal: unhandled expression in codegen")
	return operand{}
}

func (ctx *Context) codegenIdent(node *ast.Node) operand {
	switch e := node.Data.(ast.IdentNode).Entity.(type) {
	case *scope.Variable:
		return ctx.load(ctx.storage(e, node.Tok), e.Type)
	case *scope.Function:
		return operand{val: ctx.funcHandle(e), typ: ctx.u.PointerTo(e.Type)}
	}
	ctx.errorf(node.Tok, "internal: unresolved identifier '%s'", node.Data.(ast.IdentNode).Name)
	return operand{}
}

// lvalue lowers an expression that designates an object and returns its
// address and type.
func (ctx *Context) lvalue(node *ast.Node) (ir.Value, *types.Type) {
	switch node.Type {
	case ast.Paren:
		return ctx.lvalue(node.Data.(ast.ParenNode).Expr)
	case ast.Ident:
		if v, ok := node.Data.(ast.IdentNode).Entity.(*scope.Variable); ok {
			return ctx.storage(v, node.Tok), v.Type
		}
	case ast.UnaryOp:
		d := node.Data.(ast.UnaryOpNode)
		if d.Op == token.Star {
			ptr := ctx.rvalue(d.Expr)
			if !ptr.typ.IsPointer() {
				ctx.errorf(node.Tok, "indirection requires pointer operand ('%s' invalid)", ptr.typ)
			}
			return ptr.val, ptr.typ.Elem
		}
	case ast.Subscript:
		d := node.Data.(ast.SubscriptNode)
		base, index := ctx.rvalue(d.Expr), ctx.rvalue(d.Index)
		if index.typ.IsPointer() {
			base, index = index, base
		}
		if !base.typ.IsPointer() || !index.typ.IsInteger() {
			ctx.errorf(node.Tok, "subscripted value is not a pointer ('%s' and '%s')", base.typ, index.typ)
		}
		ptr := ctx.pointerAdd(node.Tok, base, index, false)
		return ptr.val, ptr.typ.Elem
	case ast.Member:
		return ctx.memberAddr(node)
	}
	ctx.errorf(node.Tok, "expression is not assignable")
	return nil, nil
}

// object is lvalue restricted to complete object types.
func (ctx *Context) object(node *ast.Node) (ir.Value, *types.Type) {
	addr, t := ctx.lvalue(node)
	if t.IsFunction() || t.IsVoid() || !t.IsComplete() {
		ctx.errorf(node.Tok, "expression of type '%s' is not assignable", t)
	}
	return addr, t
}

func (ctx *Context) memberAddr(node *ast.Node) (ir.Value, *types.Type) {
	d := node.Data.(ast.MemberNode)
	var base operand
	if d.Arrow {
		base = ctx.rvalue(d.Expr)
		if !base.typ.IsPointer() || !base.typ.Elem.IsStruct() {
			ctx.errorf(node.Tok, "member reference type '%s' is not a pointer to a struct or union", base.typ)
		}
		base.typ = base.typ.Elem
	} else {
		base = ctx.rvalue(d.Expr)
		if !base.typ.IsStruct() {
			ctx.errorf(node.Tok, "member reference base type '%s' is not a struct or union", base.typ)
		}
	}

	tag := base.typ.Tag
	if !tag.IsComplete() {
		ctx.errorf(node.Tok, "member access into incomplete type '%s'", tag)
	}
	field, ok := tag.Field(d.Name)
	if !ok {
		ctx.errorf(node.Tok, "no member named '%s' in '%s'", d.Name, tag)
	}
	if field.Offset == 0 {
		return base.val, field.Type
	}
	return ctx.emit(ir.OpAdd, ctx.wordType(), base.val, &ir.Const{Value: field.Offset}), field.Type
}

// typeOf returns the type of an expression without evaluating it. The
// operand is lowered into a scratch function that is then dropped.
func (ctx *Context) typeOf(node *ast.Node) *types.Type {
	fn, block, nstr := ctx.currentFunc, ctx.currentBlock, len(ctx.prog.Strings)
	allocs, temps := ctx.allocs, ctx.tempCount
	ctx.currentFunc, ctx.currentBlock = &ir.Func{Name: "sizeof"}, nil
	ctx.quiet++
	defer func() {
		ctx.currentFunc, ctx.currentBlock = fn, block
		ctx.allocs, ctx.tempCount = allocs, temps
		ctx.prog.Strings = ctx.prog.Strings[:nstr]
		ctx.quiet--
	}()
	return ctx.rvalue(node).typ
}

func (ctx *Context) sizeof(node *ast.Node) int64 {
	var t *types.Type
	if node.Type == ast.SizeofType {
		t = node.Data.(ast.SizeofTypeNode).Type.Type
	} else {
		expr := stripParens(node.Data.(ast.SizeofExprNode).Expr)
		if id, ok := expr.Data.(ast.IdentNode); ok {
			if _, isFunc := id.Entity.(*scope.Function); isFunc {
				ctx.errorf(node.Tok, "invalid application of 'sizeof' to a function type")
			}
		}
		t = ctx.typeOf(expr)
	}
	switch {
	case t.IsFunction():
		ctx.errorf(node.Tok, "invalid application of 'sizeof' to a function type")
	case !t.IsComplete():
		ctx.errorf(node.Tok, "invalid application of 'sizeof' to an incomplete type '%s'", t)
	}
	return ctx.u.Sizeof(t)
}

func (ctx *Context) codegenCast(node *ast.Node) operand {
	d := node.Data.(ast.CastNode)
	to := d.Type.Type
	ctx.checkSupported(to, node.Tok)
	op := ctx.rvalue(d.Expr)
	if !castable(op.typ, to) {
		ctx.errorf(node.Tok, "cannot cast from '%s' to '%s'", op.typ, to)
	}
	return ctx.convert(op, to)
}

func (ctx *Context) codegenUnaryOp(node *ast.Node) operand {
	d := node.Data.(ast.UnaryOpNode)
	switch d.Op {
	case token.Inc, token.Dec:
		return ctx.codegenIncDec(node.Tok, d.Op, d.Expr, false)
	case token.And:
		if id, ok := stripParens(d.Expr).Data.(ast.IdentNode); ok {
			if f, isFunc := id.Entity.(*scope.Function); isFunc {
				return operand{val: ctx.funcHandle(f), typ: ctx.u.PointerTo(f.Type)}
			}
		}
		if !isAddressable(d.Expr) {
			ctx.errorf(node.Tok, "cannot take the address of an rvalue")
		}
		addr, t := ctx.lvalue(d.Expr)
		return operand{val: addr, typ: ctx.u.PointerTo(t)}
	case token.Star:
		addr, t := ctx.lvalue(node)
		if t.IsFunction() {
			return operand{val: addr, typ: ctx.u.PointerTo(t)}
		}
		if !t.IsComplete() {
			ctx.errorf(node.Tok, "incomplete type '%s' where a complete type is required", t)
		}
		return ctx.load(addr, t)
	}

	op := ctx.rvalue(d.Expr)
	switch d.Op {
	case token.Not:
		if !op.typ.IsScalar() {
			ctx.errorf(node.Tok, "invalid argument type '%s' to unary expression", op.typ)
		}
		if c, ok := op.val.(*ir.Const); ok {
			return operand{val: boolConst(c.Value == 0), typ: ctx.u.Basic(types.Int)}
		}
		return operand{val: ctx.compare(ir.OpCEq, ctx.baseType(op.typ), op.val, ctx.zero(op.typ)), typ: ctx.u.Basic(types.Int)}
	case token.Plus, token.Minus, token.Complement:
		if !op.typ.IsInteger() {
			if op.typ.IsFloat() {
				ctx.errorf(node.Tok, "floating-point arithmetic is not supported")
			}
			ctx.errorf(node.Tok, "invalid argument type '%s' to unary expression", op.typ)
		}
		op = ctx.promote(op)
		zero := operand{val: &ir.Const{Value: 0}, typ: op.typ}
		switch d.Op {
		case token.Minus:
			return ctx.arith(node.Tok, token.Minus, zero, op)
		case token.Complement:
			return ctx.arith(node.Tok, token.Xor, op, operand{val: &ir.Const{Value: -1}, typ: op.typ})
		}
		return op
	}
	ctx.errorf(node.Tok, "internal: unhandled unary operator '%s'", d.Op)
	return operand{}
}

// isAddressable reports whether & may be applied to an expression.
func isAddressable(n *ast.Node) bool {
	n = stripParens(n)
	switch n.Type {
	case ast.Ident, ast.Subscript:
		return true
	case ast.UnaryOp:
		return n.Data.(ast.UnaryOpNode).Op == token.Star
	case ast.Member:
		d := n.Data.(ast.MemberNode)
		return d.Arrow || isAddressable(d.Expr)
	}
	return false
}

func (ctx *Context) codegenIncDec(tok token.Token, op token.Type, target *ast.Node, postfix bool) operand {
	if !isAddressable(target) {
		ctx.errorf(tok, "expression is not assignable")
	}
	addr, t := ctx.object(target)
	if !t.IsScalar() {
		ctx.errorf(tok, "cannot increment value of type '%s'", t)
	}
	old := ctx.load(addr, t)
	arithOp := token.Plus
	if op == token.Dec {
		arithOp = token.Minus
	}
	next := ctx.arith(tok, arithOp, old, operand{val: &ir.Const{Value: 1}, typ: ctx.u.Basic(types.Int)})
	next = ctx.convert(next, t)
	ctx.store(addr, next.val, t)
	if postfix {
		return old
	}
	return next
}

func (ctx *Context) codegenAssign(node *ast.Node) operand {
	d := node.Data.(ast.AssignNode)
	if !isAddressable(d.Lhs) {
		ctx.errorf(node.Tok, "expression is not assignable")
	}
	addr, t := ctx.object(d.Lhs)

	if d.Op == token.Eq {
		rhs := ctx.rvalue(d.Rhs)
		if t.IsStruct() {
			if !types.Identical(rhs.typ, t) {
				ctx.errorf(node.Tok, "incompatible types when assigning to '%s' from '%s'", t, rhs.typ)
			}
			ctx.blit(rhs.val, addr, t)
			return operand{val: addr, typ: t}
		}
		rhs = ctx.assign(rhs, t, node.Tok, "assigning to")
		ctx.store(addr, rhs.val, t)
		return rhs
	}

	if t.IsStruct() {
		ctx.errorf(node.Tok, "invalid operands to binary expression ('%s' and '%s')", t, ctx.typeOf(d.Rhs))
	}
	cur := ctx.load(addr, t)
	rhs := ctx.rvalue(d.Rhs)
	res := ctx.arith(node.Tok, compoundOps[d.Op], cur, rhs)
	res = ctx.assign(res, t, node.Tok, "assigning to")
	ctx.store(addr, res.val, t)
	return res
}

var compoundOps = map[token.Type]token.Type{
	token.StarEq: token.Star, token.SlashEq: token.Slash, token.RemEq: token.Rem,
	token.PlusEq: token.Plus, token.MinusEq: token.Minus, token.ShlEq: token.Shl,
	token.ShrEq: token.Shr, token.AndEq: token.And, token.XorEq: token.Xor,
	token.OrEq: token.Or,
}

func (ctx *Context) codegenBinaryOp(node *ast.Node) operand {
	d := node.Data.(ast.BinaryOpNode)
	if d.Op == token.AndAnd || d.Op == token.OrOr {
		return ctx.codegenLogical(node)
	}
	l := ctx.rvalue(d.Left)
	r := ctx.rvalue(d.Right)
	return ctx.arith(node.Tok, d.Op, l, r)
}

var (
	arithOps = map[token.Type]ir.Op{
		token.Plus: ir.OpAdd, token.Minus: ir.OpSub, token.Star: ir.OpMul,
		token.And: ir.OpAnd, token.Or: ir.OpOr, token.Xor: ir.OpXor,
	}
	signedCmp = map[token.Type]ir.Op{
		token.EqEq: ir.OpCEq, token.Neq: ir.OpCNe, token.Lt: ir.OpCSlt,
		token.Lte: ir.OpCSle, token.Gt: ir.OpCSgt, token.Gte: ir.OpCSge,
	}
	unsignedCmp = map[token.Type]ir.Op{
		token.EqEq: ir.OpCEq, token.Neq: ir.OpCNe, token.Lt: ir.OpCUlt,
		token.Lte: ir.OpCUle, token.Gt: ir.OpCUgt, token.Gte: ir.OpCUge,
	}
)

// arith lowers a binary operator on two lowered operands.
func (ctx *Context) arith(tok token.Token, op token.Type, l, r operand) operand {
	lt, rt := l.typ, r.typ
	if lt.IsFloat() && rt.IsArithmetic() || rt.IsFloat() && lt.IsArithmetic() {
		ctx.errorf(tok, "floating-point arithmetic is not supported")
	}

	if _, isCmp := signedCmp[op]; isCmp {
		return ctx.comparison(tok, op, l, r)
	}

	switch {
	case op == token.Plus && lt.IsPointer() && rt.IsInteger():
		return ctx.pointerAdd(tok, l, r, false)
	case op == token.Plus && lt.IsInteger() && rt.IsPointer():
		return ctx.pointerAdd(tok, r, l, false)
	case op == token.Minus && lt.IsPointer() && rt.IsInteger():
		return ctx.pointerAdd(tok, l, r, true)
	case op == token.Minus && lt.IsPointer() && rt.IsPointer():
		return ctx.pointerDiff(tok, l, r)
	}

	if !lt.IsInteger() || !rt.IsInteger() {
		ctx.errorf(tok, "invalid operands to binary expression ('%s' and '%s')", lt, rt)
	}

	if op == token.Shl || op == token.Shr {
		l = ctx.promote(l)
		r = ctx.convert(ctx.promote(r), ctx.u.Basic(types.Int))
		o := ir.OpShl
		if op == token.Shr {
			o = ir.OpSar
			if ctx.isUnsigned(l.typ) {
				o = ir.OpShr
			}
		}
		return operand{val: ctx.emit(o, ctx.baseType(l.typ), l.val, r.val), typ: l.typ}
	}

	t := ctx.usualType(ctx.promote(l).typ, ctx.promote(r).typ)
	l, r = ctx.convert(l, t), ctx.convert(r, t)
	o, ok := arithOps[op]
	if !ok {
		unsigned := ctx.isUnsigned(t)
		switch {
		case op == token.Slash && unsigned:
			o = ir.OpUDiv
		case op == token.Slash:
			o = ir.OpDiv
		case op == token.Rem && unsigned:
			o = ir.OpURem
		case op == token.Rem:
			o = ir.OpRem
		default:
			ctx.errorf(tok, "internal: unhandled binary operator '%s'", op)
		}
	}
	return operand{val: ctx.emit(o, ctx.baseType(t), l.val, r.val), typ: t}
}

func (ctx *Context) comparison(tok token.Token, op token.Type, l, r operand) operand {
	intType := ctx.u.Basic(types.Int)
	var t *types.Type
	switch {
	case l.typ.IsInteger() && r.typ.IsInteger():
		t = ctx.usualType(ctx.promote(l).typ, ctx.promote(r).typ)
		l, r = ctx.convert(l, t), ctx.convert(r, t)
	case l.typ.IsPointer() && r.typ.IsPointer():
		if !types.Identical(l.typ, r.typ) && !isVoidPtr(l.typ) && !isVoidPtr(r.typ) {
			ctx.warn(config.WarnImplicitConversion, tok, "comparison of distinct pointer types ('%s' and '%s')", l.typ, r.typ)
		}
		t = l.typ
	case l.typ.IsPointer() && r.typ.IsInteger():
		if !isNullConst(r) {
			ctx.warn(config.WarnImplicitConversion, tok, "comparison between pointer and integer ('%s' and '%s')", l.typ, r.typ)
		}
		t = l.typ
		r = ctx.convert(r, t)
	case l.typ.IsInteger() && r.typ.IsPointer():
		if !isNullConst(l) {
			ctx.warn(config.WarnImplicitConversion, tok, "comparison between pointer and integer ('%s' and '%s')", l.typ, r.typ)
		}
		t = r.typ
		l = ctx.convert(l, t)
	default:
		ctx.errorf(tok, "invalid operands to binary expression ('%s' and '%s')", l.typ, r.typ)
	}

	ops := signedCmp
	if ctx.isUnsigned(t) {
		ops = unsignedCmp
	}
	return operand{val: ctx.compare(ops[op], ctx.baseType(t), l.val, r.val), typ: intType}
}

// pointerAdd scales an integer by the pointee size and adds it to (or
// subtracts it from) a pointer.
func (ctx *Context) pointerAdd(tok token.Token, ptr, n operand, subtract bool) operand {
	size := ctx.elemSize(tok, ptr.typ)
	word := ctx.wordType()
	off := ctx.convert(n, ctx.u.Basic(types.Long))
	var offset ir.Value = off.val
	if c, ok := offset.(*ir.Const); ok {
		offset = &ir.Const{Value: c.Value * size}
	} else if size != 1 {
		offset = ctx.emit(ir.OpMul, word, offset, &ir.Const{Value: size})
	}
	o := ir.OpAdd
	if subtract {
		o = ir.OpSub
	}
	return operand{val: ctx.emit(o, word, ptr.val, offset), typ: ptr.typ}
}

// elemSize returns the pointee size of ptr. Struct pointees must be
// complete; void and function pointees count as one byte.
func (ctx *Context) elemSize(tok token.Token, ptr *types.Type) int64 {
	if ptr.Elem.IsStruct() && !ptr.Elem.IsComplete() {
		ctx.errorf(tok, "arithmetic on a pointer to an incomplete type '%s'", ptr.Elem)
	}
	return ctx.u.Sizeof(ptr.Elem)
}

func (ctx *Context) pointerDiff(tok token.Token, l, r operand) operand {
	if !types.Identical(l.typ.Elem, r.typ.Elem) {
		ctx.errorf(tok, "'%s' and '%s' are not pointers to compatible types", l.typ, r.typ)
	}
	size := ctx.elemSize(tok, l.typ)
	word := ctx.wordType()
	diff := ctx.emit(ir.OpSub, word, l.val, r.val)
	if size != 1 {
		diff = ctx.emit(ir.OpDiv, word, diff, &ir.Const{Value: size})
	}
	return operand{val: diff, typ: ctx.u.Basic(types.Long)}
}

// codegenLogical lowers && and || with an explicit phi over the two paths.
func (ctx *Context) codegenLogical(node *ast.Node) operand {
	d := node.Data.(ast.BinaryOpNode)
	rhsL, endL := ctx.newLabel("logic.rhs"), ctx.newLabel("logic.end")

	lhs := ctx.rvalue(d.Left)
	lv := ctx.condValue(lhs, d.Left.Tok)
	fromL := ctx.currentLabel()
	shortVal := &ir.Const{Value: 0}
	if d.Op == token.AndAnd {
		ctx.branch(lv, rhsL, endL)
	} else {
		shortVal = &ir.Const{Value: 1}
		ctx.branch(lv, endL, rhsL)
	}

	ctx.startBlock(rhsL)
	rhs := ctx.rvalue(d.Right)
	if !rhs.typ.IsScalar() {
		ctx.errorf(d.Right.Tok, "invalid operand of type '%s' to '%s'", rhs.typ, d.Op)
	}
	rv := ctx.toBool(rhs)
	fromR := ctx.currentLabel()
	ctx.jump(endL)

	ctx.startBlock(endL)
	res := ctx.newTemp()
	ctx.addInstr(&ir.Instruction{Op: ir.OpPhi, Typ: ir.TypeW, Result: res, Args: []ir.Value{fromL, shortVal, fromR, rv}})
	return operand{val: res, typ: ctx.u.Basic(types.Int)}
}

func (ctx *Context) codegenTernary(node *ast.Node) operand {
	d := node.Data.(ast.TernaryNode)
	thenL, elseL, endL := ctx.newLabel("cond.then"), ctx.newLabel("cond.else"), ctx.newLabel("cond.end")

	ctx.codegenLogicalCond(d.Cond, thenL, elseL)

	ctx.startBlock(thenL)
	a := ctx.rvalue(d.Then)
	aBlock := ctx.currentBlock
	ctx.jump(endL)

	ctx.startBlock(elseL)
	b := ctx.rvalue(d.Else)
	bBlock := ctx.currentBlock
	ctx.jump(endL)

	t := ctx.ternaryType(node.Tok, a, b)
	if t.IsVoid() {
		ctx.startBlock(endL)
		return operand{typ: t}
	}

	// The conversions belong to their arms, before the jumps.
	a = ctx.convertIn(aBlock, a, t)
	b = ctx.convertIn(bBlock, b, t)

	ctx.startBlock(endL)
	res := ctx.newTemp()
	ctx.addInstr(&ir.Instruction{
		Op: ir.OpPhi, Typ: ctx.baseType(t), Result: res,
		Args: []ir.Value{aBlock.Label, a.val, bBlock.Label, b.val},
	})
	return operand{val: res, typ: t}
}

// convertIn emits the conversion of op at the end of block, before its
// terminating jump.
func (ctx *Context) convertIn(block *ir.BasicBlock, op operand, to *types.Type) operand {
	if types.Identical(op.typ, to) {
		return op
	}
	jmp := block.Instructions[len(block.Instructions)-1]
	block.Instructions = block.Instructions[:len(block.Instructions)-1]
	saved := ctx.currentBlock
	ctx.currentBlock = block
	res := ctx.convert(op, to)
	ctx.currentBlock.Instructions = append(ctx.currentBlock.Instructions, jmp)
	ctx.currentBlock = saved
	return res
}

func (ctx *Context) ternaryType(tok token.Token, a, b operand) *types.Type {
	switch {
	case a.typ.IsArithmetic() && b.typ.IsArithmetic():
		return ctx.usualType(ctx.promote(a).typ, ctx.promote(b).typ)
	case a.typ.IsVoid() && b.typ.IsVoid():
		return a.typ
	case a.typ.IsStruct() && types.Identical(a.typ, b.typ):
		return a.typ
	case a.typ.IsPointer() && b.typ.IsPointer():
		if isVoidPtr(b.typ) {
			return b.typ
		}
		if !isVoidPtr(a.typ) && !types.Identical(a.typ, b.typ) {
			ctx.warn(config.WarnImplicitConversion, tok, "pointer type mismatch ('%s' and '%s')", a.typ, b.typ)
		}
		return a.typ
	case a.typ.IsPointer() && isNullConst(b):
		return a.typ
	case b.typ.IsPointer() && isNullConst(a):
		return b.typ
	}
	ctx.errorf(tok, "incompatible operand types ('%s' and '%s')", a.typ, b.typ)
	return nil
}

// codegenLogicalCond branches to trueL or falseL on the truth of node.
func (ctx *Context) codegenLogicalCond(node *ast.Node, trueL, falseL *ir.Label) {
	inner := stripParens(node)
	if inner.Type == ast.BinaryOp {
		d := inner.Data.(ast.BinaryOpNode)
		if d.Op == token.OrOr {
			newFalseL := ctx.newLabel("or.rhs")
			ctx.codegenLogicalCond(d.Left, trueL, newFalseL)
			ctx.startBlock(newFalseL)
			ctx.codegenLogicalCond(d.Right, trueL, falseL)
			return
		}
		if d.Op == token.AndAnd {
			newTrueL := ctx.newLabel("and.rhs")
			ctx.codegenLogicalCond(d.Left, newTrueL, falseL)
			ctx.startBlock(newTrueL)
			ctx.codegenLogicalCond(d.Right, trueL, falseL)
			return
		}
	}
	if inner.Type == ast.UnaryOp && inner.Data.(ast.UnaryOpNode).Op == token.Not {
		ctx.codegenLogicalCond(inner.Data.(ast.UnaryOpNode).Expr, falseL, trueL)
		return
	}

	cond := ctx.rvalue(node)
	ctx.branch(ctx.condValue(cond, node.Tok), trueL, falseL)
}

func (ctx *Context) codegenCall(node *ast.Node) operand {
	d := node.Data.(ast.CallNode)
	callee := ctx.rvalue(d.Func)
	if !callee.typ.IsPointer() || !callee.typ.Elem.IsFunction() {
		ctx.errorf(node.Tok, "called object type '%s' is not a function or function pointer", callee.typ)
	}
	ft := callee.typ.Elem
	ctx.checkSupported(ft, node.Tok)

	switch {
	case len(d.Args) < len(ft.Params):
		ctx.errorf(node.Tok, "too few arguments to function call, expected %d, have %d", len(ft.Params), len(d.Args))
	case len(d.Args) > len(ft.Params) && !ft.Variadic:
		ctx.errorf(node.Tok, "too many arguments to function call, expected %d, have %d", len(ft.Params), len(d.Args))
	}

	instr := &ir.Instruction{
		Op:        ir.OpCall,
		Typ:       ctx.baseType(ft.Ret),
		Args:      []ir.Value{callee.val},
		Variadic:  ft.Variadic,
		FixedArgs: len(ft.Params),
	}
	for i, argNode := range d.Args {
		arg := ctx.rvalue(argNode)
		if i < len(ft.Params) {
			arg = ctx.assign(arg, ft.Params[i], argNode.Tok, "passing")
		} else {
			arg = ctx.defaultPromote(arg, argNode.Tok)
		}
		agg := ""
		if arg.typ.IsStruct() {
			agg = ctx.aggName(arg.typ.Tag)
		}
		instr.Args = append(instr.Args, arg.val)
		instr.ArgTypes = append(instr.ArgTypes, ctx.baseType(arg.typ))
		instr.ArgAggs = append(instr.ArgAggs, agg)
	}

	if ft.Ret.IsVoid() {
		ctx.addInstr(instr)
		return operand{typ: ft.Ret}
	}
	if ft.Ret.IsStruct() {
		instr.Agg = ctx.aggName(ft.Ret.Tag)
	}
	instr.Result = ctx.newTemp()
	ctx.addInstr(instr)
	return operand{val: instr.Result, typ: ft.Ret}
}

// defaultPromote applies the default argument promotions to a variadic
// argument.
func (ctx *Context) defaultPromote(op operand, tok token.Token) operand {
	switch {
	case op.typ.IsVoid():
		ctx.errorf(tok, "argument type 'void' is incomplete")
	case op.typ.Kind == types.Float:
		return ctx.convert(op, ctx.u.Basic(types.Double))
	case op.typ.IsInteger():
		return ctx.promote(op)
	}
	return op
}
