package codegen

import (
	"fmt"

	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/ir"
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/types"
)

// operand is a lowered rvalue. Struct-typed operands hold the address of
// the object; void operands hold no value.
type operand struct {
	val ir.Value
	typ *types.Type
}

func (ctx *Context) wordType() ir.Type {
	if ctx.cfg.WordSize == 8 {
		return ir.TypeL
	}
	return ir.TypeW
}

// baseType is the class of a temporary holding a value of type t.
func (ctx *Context) baseType(t *types.Type) ir.Type {
	switch {
	case t.IsVoid():
		return ir.TypeNone
	case t.Kind == types.Float:
		return ir.TypeS
	case t.IsFloat():
		return ir.TypeD
	case t.IsInteger():
		if ctx.u.Sizeof(t) == 8 {
			return ir.TypeL
		}
		return ir.TypeW
	}
	return ctx.wordType()
}

// memType is the class used to load or store an object of type t.
func (ctx *Context) memType(t *types.Type) ir.Type {
	switch t.Kind {
	case types.Bool, types.UChar:
		return ir.TypeUB
	case types.Char, types.SChar:
		return ir.TypeSB
	case types.Short:
		return ir.TypeSH
	case types.UShort:
		return ir.TypeUH
	}
	return ctx.baseType(t)
}

func (ctx *Context) isUnsigned(t *types.Type) bool {
	return t.IsPointer() || (t.IsInteger() && !t.IsSigned())
}

func (ctx *Context) checkSupported(t *types.Type, tok token.Token) {
	switch {
	case t.Kind == types.LongDouble:
		ctx.errorf(tok, "'long double' is not supported by the QBE backend")
	case t.IsFunction():
		ctx.checkSupported(t.Ret, tok)
	}
}

// aggName returns the QBE aggregate type of a tag, declaring it and any
// aggregate it contains on first use.
func (ctx *Context) aggName(tag *types.Tag) string {
	if name, ok := ctx.aggs[tag]; ok {
		return name
	}
	name := tag.Name
	if name == "" {
		name = "anon"
	}
	name = fmt.Sprintf("%s.%d", name, tag.ID)

	agg := &ir.AggType{Name: name, Align: tag.Align(), Size: tag.Size(), Opaque: tag.Union}
	if !tag.Union {
		for _, f := range tag.Fields {
			if f.Type.IsStruct() {
				agg.Fields = append(agg.Fields, ir.AggField{Agg: ctx.aggName(f.Type.Tag)})
				continue
			}
			agg.Fields = append(agg.Fields, ir.AggField{Typ: ctx.memType(f.Type)})
		}
	}
	ctx.aggs[tag] = name
	ctx.prog.AggTypes = append(ctx.prog.AggTypes, agg)
	return name
}

func (ctx *Context) load(addr ir.Value, t *types.Type) operand {
	if t.IsStruct() {
		return operand{val: addr, typ: t}
	}
	res := ctx.newTemp()
	ctx.addInstr(&ir.Instruction{
		Op:          ir.OpLoad,
		Typ:         ctx.baseType(t),
		OperandType: ctx.memType(t),
		Result:      res,
		Args:        []ir.Value{addr},
	})
	return operand{val: res, typ: t}
}

func (ctx *Context) store(addr, val ir.Value, t *types.Type) {
	if t.IsStruct() {
		ctx.blit(val, addr, t)
		return
	}
	ctx.addInstr(&ir.Instruction{Op: ir.OpStore, OperandType: ctx.memType(t), Args: []ir.Value{val, addr}})
}

func (ctx *Context) blit(src, dst ir.Value, t *types.Type) {
	ctx.addInstr(&ir.Instruction{Op: ir.OpBlit, Args: []ir.Value{src, dst, &ir.Const{Value: ctx.u.Sizeof(t)}}})
}

func (ctx *Context) emit(op ir.Op, typ ir.Type, args ...ir.Value) ir.Value {
	res := ctx.newTemp()
	ctx.addInstr(&ir.Instruction{Op: op, Typ: typ, Result: res, Args: args})
	return res
}

func (ctx *Context) compare(op ir.Op, operandType ir.Type, a, b ir.Value) ir.Value {
	res := ctx.newTemp()
	ctx.addInstr(&ir.Instruction{Op: op, Typ: ir.TypeW, OperandType: operandType, Result: res, Args: []ir.Value{a, b}})
	return res
}

func (ctx *Context) zero(t *types.Type) ir.Value {
	if t.IsFloat() {
		return &ir.FloatConst{Value: 0, Typ: ctx.baseType(t)}
	}
	return &ir.Const{Value: 0}
}

// toBool yields a word that is 1 when op is nonzero and 0 otherwise.
func (ctx *Context) toBool(op operand) ir.Value {
	switch c := op.val.(type) {
	case *ir.Const:
		return boolConst(c.Value != 0)
	case *ir.FloatConst:
		return boolConst(c.Value != 0)
	}
	return ctx.compare(ir.OpCNe, ctx.baseType(op.typ), op.val, ctx.zero(op.typ))
}

// condValue yields a word that is nonzero exactly when op is.
func (ctx *Context) condValue(op operand, tok token.Token) ir.Value {
	if !op.typ.IsScalar() {
		ctx.errorf(tok, "statement requires expression of scalar type ('%s' invalid)", op.typ)
	}
	if ctx.baseType(op.typ) == ir.TypeW {
		return op.val
	}
	return ctx.toBool(op)
}

func boolConst(b bool) *ir.Const {
	if b {
		return &ir.Const{Value: 1}
	}
	return &ir.Const{Value: 0}
}

// normalize truncates v to the width of t and extends it back according to
// the signedness of t.
func (ctx *Context) normalize(v int64, t *types.Type) int64 {
	if t.Kind == types.Bool {
		if v != 0 {
			return 1
		}
		return 0
	}
	size := ctx.u.Sizeof(t)
	if size >= 8 {
		return v
	}
	bits := uint(size * 8)
	if ctx.isUnsigned(t) {
		return v & (1<<bits - 1)
	}
	return v << (64 - bits) >> (64 - bits)
}

// convert performs the conversion of a cast. Callers check that the
// conversion is allowed.
func (ctx *Context) convert(op operand, to *types.Type) operand {
	from := op.typ
	if types.Identical(from, to) || to.IsStruct() {
		return operand{val: op.val, typ: to}
	}
	if to.IsVoid() {
		return operand{typ: to}
	}
	if from.IsPointer() && to.IsPointer() {
		return operand{val: op.val, typ: to}
	}

	switch c := op.val.(type) {
	case *ir.Const:
		return ctx.convertConst(c.Value, from, to)
	case *ir.FloatConst:
		switch {
		case to.Kind == types.Bool:
			return operand{val: boolConst(c.Value != 0), typ: to}
		case to.IsFloat():
			v := c.Value
			if to.Kind == types.Float {
				v = float64(float32(v))
			}
			return operand{val: &ir.FloatConst{Value: v, Typ: ctx.baseType(to)}, typ: to}
		case ctx.isUnsigned(to):
			return operand{val: &ir.Const{Value: ctx.normalize(int64(uint64(c.Value)), to)}, typ: to}
		default:
			return operand{val: &ir.Const{Value: ctx.normalize(int64(c.Value), to)}, typ: to}
		}
	}

	fb, tb := ctx.baseType(from), ctx.baseType(to)
	switch {
	case to.Kind == types.Bool:
		return operand{val: ctx.toBool(op), typ: to}

	case to.IsFloat() && from.IsFloat():
		if fb == tb {
			return operand{val: op.val, typ: to}
		}
		if tb == ir.TypeD {
			return operand{val: ctx.emit(ir.OpExtS, tb, op.val), typ: to}
		}
		return operand{val: ctx.emit(ir.OpTruncD, tb, op.val), typ: to}

	case to.IsFloat():
		var o ir.Op
		switch {
		case fb == ir.TypeW && ctx.isUnsigned(from):
			o = ir.OpUWToF
		case fb == ir.TypeW:
			o = ir.OpSWToF
		case ctx.isUnsigned(from):
			o = ir.OpULToF
		default:
			o = ir.OpSLToF
		}
		return operand{val: ctx.emit(o, tb, op.val), typ: to}

	case from.IsFloat():
		o := ir.OpFToSI
		if ctx.isUnsigned(to) {
			o = ir.OpFToUI
		}
		res := ctx.newTemp()
		ctx.addInstr(&ir.Instruction{Op: o, Typ: tb, OperandType: fb, Result: res, Args: []ir.Value{op.val}})
		return ctx.narrow(operand{val: res, typ: ctx.u.Basic(types.Int)}, to)
	}

	v := op.val
	switch {
	case fb == ir.TypeW && tb == ir.TypeL:
		o := ir.OpExtSW
		if ctx.isUnsigned(from) {
			o = ir.OpExtUW
		}
		v = ctx.emit(o, ir.TypeL, v)
	case fb == ir.TypeL && tb == ir.TypeW:
		v = ctx.emit(ir.OpCopy, ir.TypeW, v)
	}
	return ctx.narrow(operand{val: v, typ: from}, to)
}

// narrow re-extends a word to a type narrower than int.
func (ctx *Context) narrow(op operand, to *types.Type) operand {
	ts := ctx.u.Sizeof(to)
	if ts >= 4 || to.IsPointer() {
		return operand{val: op.val, typ: to}
	}
	fs := ctx.u.Sizeof(op.typ)
	fromUnsigned, toUnsigned := ctx.isUnsigned(op.typ), ctx.isUnsigned(to)
	wider := fs < ts && (fromUnsigned || !toUnsigned)
	same := fs == ts && fromUnsigned == toUnsigned
	if op.typ.IsInteger() && (wider || same) {
		return operand{val: op.val, typ: to}
	}
	var o ir.Op
	switch {
	case ts == 1 && toUnsigned:
		o = ir.OpExtUB
	case ts == 1:
		o = ir.OpExtSB
	case toUnsigned:
		o = ir.OpExtUH
	default:
		o = ir.OpExtSH
	}
	return operand{val: ctx.emit(o, ir.TypeW, op.val), typ: to}
}

func (ctx *Context) convertConst(v int64, from, to *types.Type) operand {
	switch {
	case to.Kind == types.Bool:
		return operand{val: boolConst(v != 0), typ: to}
	case to.IsFloat():
		f := float64(v)
		if ctx.isUnsigned(from) {
			f = float64(uint64(v))
		}
		if to.Kind == types.Float {
			f = float64(float32(f))
		}
		return operand{val: &ir.FloatConst{Value: f, Typ: ctx.baseType(to)}, typ: to}
	}
	return operand{val: &ir.Const{Value: ctx.normalize(v, to)}, typ: to}
}

// promote applies the integer promotions.
func (ctx *Context) promote(op operand) operand {
	if op.typ.IsInteger() && ctx.u.Rank(op.typ) < ctx.u.Rank(ctx.u.Basic(types.Int)) {
		return ctx.convert(op, ctx.u.Basic(types.Int))
	}
	return op
}

// usualType is the common type of the usual arithmetic conversions for two
// promoted types.
func (ctx *Context) usualType(a, b *types.Type) *types.Type {
	if a.IsFloat() || b.IsFloat() {
		if a.Kind > b.Kind {
			return a
		}
		return b
	}
	if types.Identical(a, b) {
		return a
	}
	au, bu := ctx.isUnsigned(a), ctx.isUnsigned(b)
	ar, br := ctx.u.Rank(a), ctx.u.Rank(b)
	if au == bu {
		if ar >= br {
			return a
		}
		return b
	}
	signed, unsigned := a, b
	if au {
		signed, unsigned = b, a
	}
	if ctx.u.Rank(unsigned) >= ctx.u.Rank(signed) {
		return unsigned
	}
	if ctx.u.Sizeof(signed) > ctx.u.Sizeof(unsigned) {
		return signed
	}
	return ctx.u.Unsigned(signed)
}

func isNullConst(op operand) bool {
	c, ok := op.val.(*ir.Const)
	return ok && c.Value == 0 && op.typ.IsInteger()
}

func isVoidPtr(t *types.Type) bool { return t.IsPointer() && t.Elem.IsVoid() }

// assign converts op to the type of the object it is stored into. action
// names the context in diagnostics: "assigning to", "initializing",
// "passing", "returning".
func (ctx *Context) assign(op operand, to *types.Type, tok token.Token, action string) operand {
	from := op.typ
	switch {
	case to.IsStruct() || from.IsStruct():
		if !types.Identical(from, to) {
			ctx.errorf(tok, "incompatible types when %s '%s' from '%s'", action, to, from)
		}
		return op
	case from.IsVoid() || to.IsVoid():
		ctx.errorf(tok, "incompatible types when %s '%s' from '%s'", action, to, from)
	case to.IsArithmetic() && from.IsArithmetic():
		if c, ok := op.val.(*ir.Const); ok && to.IsInteger() && to.Kind != types.Bool {
			src := constant{val: c.Value, typ: from}
			res := ctx.convert(op, to)
			if !ctx.fits(src, to) {
				ctx.warn(config.WarnOverflow, tok, "implicit conversion from '%s' to '%s' changes value from %s to %d",
					from, to, ctx.formatConst(src), res.val.(*ir.Const).Value)
			}
			return res
		}
	case to.IsPointer() && from.IsPointer():
		if !types.Identical(to, from) && !isVoidPtr(to) && !isVoidPtr(from) {
			ctx.warn(config.WarnImplicitConversion, tok, "incompatible pointer types %s '%s' from '%s'", action, to, from)
		}
	case to.IsPointer() && from.IsInteger():
		if !isNullConst(op) {
			ctx.warn(config.WarnImplicitConversion, tok, "incompatible integer to pointer conversion %s '%s' from '%s'", action, to, from)
		}
	case to.IsInteger() && from.IsPointer():
		if to.Kind != types.Bool {
			ctx.warn(config.WarnImplicitConversion, tok, "incompatible pointer to integer conversion %s '%s' from '%s'", action, to, from)
		}
	default:
		ctx.errorf(tok, "incompatible types when %s '%s' from '%s'", action, to, from)
	}
	return ctx.convert(op, to)
}

// castable reports whether an explicit cast between two types is allowed.
func castable(from, to *types.Type) bool {
	switch {
	case to.IsVoid():
		return true
	case to.IsStruct() || from.IsStruct():
		return false
	case from.IsVoid():
		return false
	case to.IsPointer():
		return from.IsPointer() || from.IsInteger()
	case from.IsPointer():
		return to.IsInteger()
	}
	return to.IsArithmetic() && from.IsArithmetic()
}
