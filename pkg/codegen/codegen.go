// Package codegen lowers a resolved AST to the block-structured IR in
// package ir and hands it to a backend.
package codegen

import (
	"fmt"

	"github.com/xplshn/xcc/pkg/ast"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/ir"
	"github.com/xplshn/xcc/pkg/scope"
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/types"
	"github.com/xplshn/xcc/pkg/util"
)

// Context holds the lowering state of one translation unit. It is not safe
// for concurrent use; independent units use independent contexts.
type Context struct {
	prog *ir.Program
	cfg  *config.Config
	u    *types.Universe

	tempCount  int
	labelCount int
	staticSeq  int

	fnEntity      *scope.Function
	currentFunc   *ir.Func
	currentBlock  *ir.BasicBlock
	allocs        []*ir.Instruction // hoisted into the entry block
	breakLabel    *ir.Label
	continueLabel *ir.Label

	switchCaseLabels map[*ast.Node]*ir.Label

	globals []*scope.Variable // file-scope objects in declaration order
	emitted map[*scope.Variable]bool
	aggs    map[*types.Tag]string
	quiet   int // >0 while lowering an unevaluated operand
}

// NewContext creates a lowering context. u must be the universe the
// parser typed the tree with.
func NewContext(cfg *config.Config, u *types.Universe) *Context {
	return &Context{
		prog:             &ir.Program{WordSize: cfg.WordSize},
		cfg:              cfg,
		u:                u,
		switchCaseLabels: make(map[*ast.Node]*ir.Label),
		emitted:          make(map[*scope.Variable]bool),
		aggs:             make(map[*types.Tag]string),
	}
}

// Generate lowers a translation unit. The first semantic error found while
// lowering ends it.
func (ctx *Context) Generate(root *ast.Node) (prog *ir.Program, err error) {
	defer util.Recover(&err)

	if root == nil || root.Type != ast.TranslationUnit {
		return nil, fmt.Errorf("codegen: expected a translation unit")
	}
	for _, decl := range root.Data.(ast.TranslationUnitNode).Decls {
		switch decl.Type {
		case ast.FuncDef:
			ctx.codegenFuncDef(decl)
		case ast.Decl:
			ctx.codegenGlobalDecl(decl)
		}
	}
	ctx.emitTentative()

	if err := ctx.prog.Verify(); err != nil {
		return nil, err
	}
	return ctx.prog, nil
}

func (ctx *Context) errorf(tok token.Token, format string, args ...interface{}) {
	util.Raise(util.Semantic, tok, format, args...)
}

func (ctx *Context) warn(wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if ctx.quiet > 0 {
		return
	}
	util.Warn(ctx.cfg, wt, tok, format, args...)
}

func (ctx *Context) newTemp() *ir.Temporary {
	t := &ir.Temporary{ID: ctx.tempCount}
	ctx.tempCount++
	return t
}

func (ctx *Context) newLabel(prefix string) *ir.Label {
	l := &ir.Label{Name: fmt.Sprintf("%s.%d", prefix, ctx.labelCount)}
	ctx.labelCount++
	return l
}

// userLabel names the block of a source label. Generated labels never use
// the "label" prefix.
func userLabel(name string) *ir.Label { return &ir.Label{Name: "label." + name} }

// startBlock opens a new block. An open block that has not been terminated
// falls through into it.
func (ctx *Context) startBlock(label *ir.Label) {
	if ctx.currentBlock != nil && !ctx.currentBlock.Terminated() {
		ctx.currentBlock.Instructions = append(ctx.currentBlock.Instructions,
			&ir.Instruction{Op: ir.OpJmp, Args: []ir.Value{label}})
	}
	block := &ir.BasicBlock{Label: label}
	ctx.currentFunc.Blocks = append(ctx.currentFunc.Blocks, block)
	ctx.currentBlock = block
}

// addInstr appends to the current block. Code that follows a terminator
// goes to a fresh block nothing jumps to.
func (ctx *Context) addInstr(instr *ir.Instruction) {
	if ctx.currentBlock == nil {
		ctx.startBlock(ctx.newLabel("dead"))
	}
	ctx.currentBlock.Instructions = append(ctx.currentBlock.Instructions, instr)
	if instr.Op.IsTerminator() {
		ctx.currentBlock = nil
	}
}

func (ctx *Context) jump(label *ir.Label) {
	ctx.addInstr(&ir.Instruction{Op: ir.OpJmp, Args: []ir.Value{label}})
}

func (ctx *Context) branch(cond ir.Value, trueL, falseL *ir.Label) {
	ctx.addInstr(&ir.Instruction{Op: ir.OpJnz, Args: []ir.Value{cond, trueL, falseL}})
}

// currentLabel returns the label of the open block, opening one if needed.
func (ctx *Context) currentLabel() *ir.Label {
	if ctx.currentBlock == nil {
		ctx.startBlock(ctx.newLabel("dead"))
	}
	return ctx.currentBlock.Label
}

func (ctx *Context) addString(value []byte) ir.Value {
	name := fmt.Sprintf("str.%d", len(ctx.prog.Strings))
	ctx.prog.Strings = append(ctx.prog.Strings, &ir.StringLit{Name: name, Bytes: value})
	return &ir.Global{Name: name}
}

// alloc reserves a stack slot in the entry block and returns its address.
func (ctx *Context) alloc(t *types.Type) ir.Value {
	addr := ctx.newTemp()
	ctx.allocs = append(ctx.allocs, &ir.Instruction{
		Op:     ir.OpAlloc,
		Typ:    ctx.wordType(),
		Result: addr,
		Args:   []ir.Value{&ir.Const{Value: ctx.u.Sizeof(t)}},
		Align:  int(ctx.u.Alignof(t)),
	})
	return addr
}

// storage returns the address of a variable.
func (ctx *Context) storage(v *scope.Variable, tok token.Token) ir.Value {
	if v.Storage == nil {
		if !v.Global && !v.Extern {
			ctx.errorf(tok, "internal: variable '%s' used before its storage was assigned", v.Name)
		}
		v.Storage = &ir.Global{Name: v.Name}
	}
	return v.Storage
}

func (ctx *Context) funcHandle(f *scope.Function) ir.Value {
	if f.Handle == nil {
		f.Handle = &ir.Global{Name: f.Name}
	}
	return f.Handle
}

func (ctx *Context) codegenFuncDef(node *ast.Node) {
	d := node.Data.(ast.FuncDefNode)
	ft := d.Func.Type
	ctx.checkSupported(ft.Ret, d.Func.Tok)

	fn := &ir.Func{
		Name:       d.Func.Name,
		Export:     !d.Func.Static,
		ReturnType: ctx.baseType(ft.Ret),
		Variadic:   ft.Variadic,
	}
	if ft.Ret.IsStruct() {
		fn.ReturnAgg = ctx.aggName(ft.Ret.Tag)
	}
	ctx.funcHandle(d.Func)
	ctx.prog.Funcs = append(ctx.prog.Funcs, fn)

	ctx.fnEntity, ctx.currentFunc = d.Func, fn
	ctx.allocs, ctx.tempCount = nil, 0
	defer func() { ctx.fnEntity, ctx.currentFunc, ctx.currentBlock = nil, nil, nil }()

	ctx.startBlock(&ir.Label{Name: "start"})
	entry := ctx.currentBlock

	for _, v := range d.Params {
		ctx.checkSupported(v.Type, v.Tok)
		val := &ir.Temporary{Name: v.Name, ID: ctx.tempCount}
		ctx.tempCount++
		param := &ir.Param{Name: v.Name, Typ: ctx.baseType(v.Type), Val: val}
		if v.Type.IsStruct() {
			param.Agg = ctx.aggName(v.Type.Tag)
		}
		fn.Params = append(fn.Params, param)

		v.Storage = ctx.alloc(v.Type)
		ctx.store(v.Storage, val, v.Type)
	}

	ctx.codegenStmt(d.Body)

	if ctx.currentBlock != nil && !ctx.currentBlock.Terminated() {
		ctx.implicitReturn(ft.Ret)
	}
	entry.Instructions = append(append([]*ir.Instruction(nil), ctx.allocs...), entry.Instructions...)
}

// implicitReturn ends a function whose body runs off its end. main and
// every other non-void function return zero.
func (ctx *Context) implicitReturn(ret *types.Type) {
	switch {
	case ret.IsVoid():
		ctx.addInstr(&ir.Instruction{Op: ir.OpRet})
	case ret.IsStruct():
		ctx.addInstr(&ir.Instruction{Op: ir.OpRet, Args: []ir.Value{ctx.alloc(ret)}})
	case ret.IsFloat():
		ctx.addInstr(&ir.Instruction{Op: ir.OpRet, Args: []ir.Value{&ir.FloatConst{Value: 0, Typ: ctx.baseType(ret)}}})
	default:
		ctx.addInstr(&ir.Instruction{Op: ir.OpRet, Args: []ir.Value{&ir.Const{Value: 0}}})
	}
}

func (ctx *Context) codegenGlobalDecl(node *ast.Node) {
	d := node.Data.(ast.DeclNode)
	for _, init := range d.Inits {
		switch e := init.Entity.(type) {
		case *scope.Function:
			ctx.funcHandle(e)
		case *scope.Variable:
			ctx.checkSupported(e.Type, e.Tok)
			ctx.storage(e, e.Tok)
			if !ctx.seen(e) {
				ctx.globals = append(ctx.globals, e)
			}
			if init.Init != nil {
				ctx.defineData(e, e.Name, !e.Static, init.Init)
			}
		}
	}
}

func (ctx *Context) seen(v *scope.Variable) bool {
	for _, g := range ctx.globals {
		if g == v {
			return true
		}
	}
	return false
}

// emitTentative zero-fills every file-scope object that was declared
// without extern and never initialized.
func (ctx *Context) emitTentative() {
	for _, v := range ctx.globals {
		if v.Extern || ctx.emitted[v] {
			continue
		}
		if !v.Type.IsComplete() {
			ctx.errorf(v.Tok, "tentative definition has type '%s' that is never completed", v.Type)
		}
		ctx.defineData(v, v.Name, !v.Static, nil)
	}
}

// defineData emits the data definition of a static-duration object.
func (ctx *Context) defineData(v *scope.Variable, name string, export bool, init *ast.Node) {
	if ctx.emitted[v] {
		ctx.errorf(v.Tok, "redefinition of '%s'", v.Name)
	}
	ctx.emitted[v] = true

	data := &ir.Data{Name: name, Export: export, Align: int(ctx.u.Alignof(v.Type))}
	if init == nil {
		data.Items = []ir.DataItem{{Count: int(ctx.u.Sizeof(v.Type))}}
	} else {
		data.Items = []ir.DataItem{ctx.staticInit(v.Type, init)}
	}
	ctx.prog.Globals = append(ctx.prog.Globals, data)
}

// staticInit evaluates the initializer of a static-duration scalar.
func (ctx *Context) staticInit(t *types.Type, init *ast.Node) ir.DataItem {
	item := ir.DataItem{Typ: ctx.memType(t)}
	switch {
	case t.IsStruct():
		ctx.errorf(init.Tok, "initializer element is not a compile-time constant")
	case t.IsFloat():
		f, ok := ctx.constFloat(init)
		if !ok {
			ctx.errorf(init.Tok, "initializer element is not a compile-time constant")
		}
		item.Value = &ir.FloatConst{Value: f, Typ: ctx.baseType(t)}
		return item
	}

	if c, ok := ctx.constEval(init); ok {
		op := ctx.assign(operand{val: &ir.Const{Value: c.val}, typ: c.typ}, t, init.Tok, "initializing")
		item.Value = op.val
		return item
	}
	if t.IsPointer() {
		if addr, ok := ctx.constAddress(init); ok {
			item.Value = addr
			return item
		}
	}
	ctx.errorf(init.Tok, "initializer element is not a compile-time constant")
	return item
}

// constAddress accepts the address constants a static pointer can hold: a
// string literal, the address of a static object and a function name.
func (ctx *Context) constAddress(n *ast.Node) (ir.Value, bool) {
	n = stripParens(n)
	switch n.Type {
	case ast.String:
		return ctx.addString(n.Data.(ast.StringNode).Value), true
	case ast.Ident:
		if f, ok := n.Data.(ast.IdentNode).Entity.(*scope.Function); ok {
			return ctx.funcHandle(f), true
		}
	case ast.Cast:
		return ctx.constAddress(n.Data.(ast.CastNode).Expr)
	case ast.UnaryOp:
		d := n.Data.(ast.UnaryOpNode)
		if d.Op != token.And {
			return nil, false
		}
		target := stripParens(d.Expr)
		if target.Type != ast.Ident {
			return nil, false
		}
		switch e := target.Data.(ast.IdentNode).Entity.(type) {
		case *scope.Function:
			return ctx.funcHandle(e), true
		case *scope.Variable:
			if e.Global || e.Static || e.Extern {
				return ctx.storage(e, target.Tok), true
			}
		}
	}
	return nil, false
}

func (ctx *Context) codegenLocalDecl(node *ast.Node) {
	d := node.Data.(ast.DeclNode)
	for _, init := range d.Inits {
		v, ok := init.Entity.(*scope.Variable)
		if !ok {
			if f, isFunc := init.Entity.(*scope.Function); isFunc {
				ctx.funcHandle(f)
			}
			continue
		}
		ctx.checkSupported(v.Type, v.Tok)
		switch {
		case v.Extern:
			ctx.storage(v, v.Tok)
		case v.Static:
			ctx.staticSeq++
			name := fmt.Sprintf("%s.%s.%d", ctx.fnEntity.Name, v.Name, ctx.staticSeq)
			v.Storage = &ir.Global{Name: name}
			ctx.defineData(v, name, false, init.Init)
		default:
			v.Storage = ctx.alloc(v.Type)
			if init.Init != nil {
				ctx.initLocal(v, init.Init)
			}
		}
	}
}

func (ctx *Context) initLocal(v *scope.Variable, init *ast.Node) {
	val := ctx.rvalue(init)
	if v.Type.IsStruct() {
		if !types.Identical(val.typ, v.Type) {
			ctx.errorf(init.Tok, "initializing '%s' with an expression of incompatible type '%s'", v.Type, val.typ)
		}
		ctx.blit(val.val, v.Storage, v.Type)
		return
	}
	val = ctx.assign(val, v.Type, init.Tok, "initializing")
	ctx.store(v.Storage, val.val, v.Type)
}
