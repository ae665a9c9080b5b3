package codegen

import (
	"strconv"

	"fortio.org/safecast"
	"github.com/xplshn/xcc/pkg/ast"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/ir"
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/types"
)

// constant is an integer constant expression. val is normalized to typ:
// unsigned values are zero-extended and signed values sign-extended.
type constant struct {
	val int64
	typ *types.Type
}

func stripParens(n *ast.Node) *ast.Node {
	for n.Type == ast.Paren {
		n = n.Data.(ast.ParenNode).Expr
	}
	return n
}

func (ctx *Context) promoteType(t *types.Type) *types.Type {
	if t.IsInteger() && ctx.u.Rank(t) < ctx.u.Rank(ctx.u.Basic(types.Int)) {
		return ctx.u.Basic(types.Int)
	}
	return t
}

func (ctx *Context) sizeType() *types.Type { return ctx.u.Basic(types.ULong) }

// constEval evaluates an integer constant expression. It reports false for
// anything that is not one; it raises only for errors no evaluation order
// can avoid, such as a division by zero.
func (ctx *Context) constEval(n *ast.Node) (constant, bool) {
	intType := ctx.u.Basic(types.Int)
	switch n.Type {
	case ast.Number:
		d := n.Data.(ast.NumberNode)
		return constant{val: int64(d.Value), typ: d.Type}, true
	case ast.Char:
		return constant{val: n.Data.(ast.CharNode).Value, typ: intType}, true
	case ast.Paren:
		return ctx.constEval(n.Data.(ast.ParenNode).Expr)
	case ast.SizeofType, ast.SizeofExpr:
		return constant{val: ctx.sizeof(n), typ: ctx.sizeType()}, true

	case ast.Cast:
		d := n.Data.(ast.CastNode)
		to := d.Type.Type
		if !to.IsInteger() && !to.IsPointer() {
			return constant{}, false
		}
		if c, ok := ctx.constEval(d.Expr); ok {
			return constant{val: ctx.normalize(c.val, to), typ: to}, true
		}
		if f, ok := ctx.constFloat(d.Expr); ok && to.IsInteger() {
			op := ctx.convert(operand{val: floatConst(f), typ: ctx.u.Basic(types.Double)}, to)
			return constant{val: constValue(op), typ: to}, true
		}

	case ast.UnaryOp:
		d := n.Data.(ast.UnaryOpNode)
		c, ok := ctx.constEval(d.Expr)
		if !ok || !c.typ.IsInteger() {
			return constant{}, false
		}
		t := ctx.promoteType(c.typ)
		switch d.Op {
		case token.Plus:
			return constant{val: ctx.normalize(c.val, t), typ: t}, true
		case token.Minus:
			return ctx.checked(n.Tok, -c.val, t), true
		case token.Complement:
			return constant{val: ctx.normalize(^c.val, t), typ: t}, true
		case token.Not:
			return constant{val: b2i(c.val == 0), typ: intType}, true
		}

	case ast.BinaryOp:
		d := n.Data.(ast.BinaryOpNode)
		l, lok := ctx.constEval(d.Left)
		if !lok || !l.typ.IsInteger() {
			return constant{}, false
		}
		// The right operand of a decided && or || is not evaluated.
		skip := (d.Op == token.AndAnd && l.val == 0) || (d.Op == token.OrOr && l.val != 0)
		r, rok := ctx.constEvalIf(!skip, d.Right)
		if !rok || !r.typ.IsInteger() {
			return constant{}, false
		}
		return ctx.constBinary(n.Tok, d.Op, l, r), true

	case ast.Ternary:
		d := n.Data.(ast.TernaryNode)
		c, ok := ctx.constEval(d.Cond)
		if !ok {
			return constant{}, false
		}
		a, aok := ctx.constEvalIf(c.val != 0, d.Then)
		b, bok := ctx.constEvalIf(c.val == 0, d.Else)
		if !aok || !bok {
			return constant{}, false
		}
		t := ctx.usualType(ctx.promoteType(a.typ), ctx.promoteType(b.typ))
		if c.val != 0 {
			return constant{val: ctx.normalize(a.val, t), typ: t}, true
		}
		return constant{val: ctx.normalize(b.val, t), typ: t}, true
	}
	return constant{}, false
}

// constEvalIf evaluates n, or only types it when evaluate is false: errors
// such as a division by zero are then ignored.
func (ctx *Context) constEvalIf(evaluate bool, n *ast.Node) (constant, bool) {
	if !evaluate {
		ctx.quiet++
		defer func() { ctx.quiet-- }()
	}
	return ctx.constEval(n)
}

func (ctx *Context) constBinary(tok token.Token, op token.Type, l, r constant) constant {
	intType := ctx.u.Basic(types.Int)
	if op == token.Shl || op == token.Shr {
		t := ctx.promoteType(l.typ)
		lv := ctx.normalize(l.val, t)
		if op == token.Shl {
			return ctx.checked(tok, lv<<uint64(r.val), t)
		}
		if ctx.isUnsigned(t) {
			return constant{val: ctx.normalize(int64(uint64(lv)>>uint64(r.val)), t), typ: t}
		}
		return constant{val: lv >> uint64(r.val), typ: t}
	}

	t := ctx.usualType(ctx.promoteType(l.typ), ctx.promoteType(r.typ))
	a, b := ctx.normalize(l.val, t), ctx.normalize(r.val, t)
	ua, ub := uint64(a), uint64(b)
	unsigned := ctx.isUnsigned(t)
	cmp := func(signed, uns bool) constant {
		if unsigned {
			return constant{val: b2i(uns), typ: intType}
		}
		return constant{val: b2i(signed), typ: intType}
	}

	switch op {
	case token.Plus:
		return ctx.checked(tok, a+b, t)
	case token.Minus:
		return ctx.checked(tok, a-b, t)
	case token.Star:
		return ctx.checked(tok, a*b, t)
	case token.Slash, token.Rem:
		if b == 0 {
			if ctx.quiet > 0 {
				return constant{val: 0, typ: t}
			}
			ctx.errorf(tok, "division by zero in constant expression")
		}
		switch {
		case unsigned && op == token.Slash:
			return constant{val: ctx.normalize(int64(ua/ub), t), typ: t}
		case unsigned:
			return constant{val: ctx.normalize(int64(ua%ub), t), typ: t}
		case op == token.Slash:
			return ctx.checked(tok, a/b, t)
		default:
			return constant{val: ctx.normalize(a%b, t), typ: t}
		}
	case token.And:
		return constant{val: ctx.normalize(a&b, t), typ: t}
	case token.Or:
		return constant{val: ctx.normalize(a|b, t), typ: t}
	case token.Xor:
		return constant{val: ctx.normalize(a^b, t), typ: t}
	case token.EqEq:
		return cmp(a == b, a == b)
	case token.Neq:
		return cmp(a != b, a != b)
	case token.Lt:
		return cmp(a < b, ua < ub)
	case token.Gt:
		return cmp(a > b, ua > ub)
	case token.Lte:
		return cmp(a <= b, ua <= ub)
	case token.Gte:
		return cmp(a >= b, ua >= ub)
	case token.AndAnd:
		return constant{val: b2i(a != 0 && b != 0), typ: intType}
	case token.OrOr:
		return constant{val: b2i(a != 0 || b != 0), typ: intType}
	}
	ctx.errorf(tok, "internal: unhandled constant operator '%s'", op)
	return constant{}
}

// checked normalizes the result of a signed operation and warns when the
// exact result does not fit the type.
func (ctx *Context) checked(tok token.Token, v int64, t *types.Type) constant {
	c := constant{val: ctx.normalize(v, t), typ: t}
	if !ctx.isUnsigned(t) && c.val != v {
		ctx.warn(config.WarnOverflow, tok, "overflow in expression; result is %d with type '%s'", c.val, t)
	}
	return c
}

// constFloat evaluates a floating constant expression.
func (ctx *Context) constFloat(n *ast.Node) (float64, bool) {
	switch n.Type {
	case ast.Float:
		return n.Data.(ast.FloatNode).Value, true
	case ast.Paren:
		return ctx.constFloat(n.Data.(ast.ParenNode).Expr)
	case ast.UnaryOp:
		d := n.Data.(ast.UnaryOpNode)
		f, ok := ctx.constFloat(d.Expr)
		switch {
		case !ok:
			return 0, false
		case d.Op == token.Minus:
			return -f, true
		case d.Op == token.Plus:
			return f, true
		}
		return 0, false
	case ast.Cast:
		d := n.Data.(ast.CastNode)
		if d.Type.Type.IsFloat() {
			f, ok := ctx.constFloat(d.Expr)
			if ok && d.Type.Type.Kind == types.Float {
				f = float64(float32(f))
			}
			return f, ok
		}
	}
	if c, ok := ctx.constEval(n); ok && c.typ.IsInteger() {
		if ctx.isUnsigned(c.typ) {
			return float64(uint64(c.val)), true
		}
		return float64(c.val), true
	}
	return 0, false
}

// fits reports whether the value of c is representable in type to.
func (ctx *Context) fits(c constant, to *types.Type) bool {
	size, unsigned := ctx.u.Sizeof(to), ctx.isUnsigned(to)
	if ctx.isUnsigned(c.typ) {
		return fitsIn(uint64(c.val), size, unsigned) == nil
	}
	return fitsIn(c.val, size, unsigned) == nil
}

func fitsIn[T int64 | uint64](v T, size int64, unsigned bool) (err error) {
	switch {
	case size == 1 && unsigned:
		_, err = safecast.Conv[uint8](v)
	case size == 1:
		_, err = safecast.Conv[int8](v)
	case size == 2 && unsigned:
		_, err = safecast.Conv[uint16](v)
	case size == 2:
		_, err = safecast.Conv[int16](v)
	case size == 4 && unsigned:
		_, err = safecast.Conv[uint32](v)
	case size == 4:
		_, err = safecast.Conv[int32](v)
	case unsigned:
		_, err = safecast.Conv[uint64](v)
	default:
		_, err = safecast.Conv[int64](v)
	}
	return err
}

func (ctx *Context) formatConst(c constant) string {
	if ctx.isUnsigned(c.typ) {
		return strconv.FormatUint(uint64(c.val), 10)
	}
	return strconv.FormatInt(c.val, 10)
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func floatConst(f float64) *ir.FloatConst { return &ir.FloatConst{Value: f, Typ: ir.TypeD} }

func constValue(op operand) int64 { return op.val.(*ir.Const).Value }
