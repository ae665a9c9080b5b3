package ast

import (
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/types"
)

// DeclSpecs is a declaration-specifier sequence as written, plus the type
// and storage class it resolves to.
type DeclSpecs struct {
	Items   []Specifier
	Storage token.Type // token.EOF when no storage class was given
	Type    *types.Type
}

// Specifier is one keyword of a specifier sequence. Record is set only for
// struct and union specifiers.
type Specifier struct {
	Kind   token.Type
	Tok    token.Token
	Record *RecordSpec
}

type RecordSpec struct {
	Union   bool
	Name    string
	HasBody bool
	Fields  []*FieldDecl
	Tag     *types.Tag
}

type FieldDecl struct {
	Specs *DeclSpecs
	Decls []*Declarator
}

// TypeName is the operand of a cast or of sizeof.
type TypeName struct {
	Specs *DeclSpecs
	Decl  *Declarator
	Type  *types.Type
}

type Pointer struct {
	Tok   token.Token
	Quals []token.Type
}

// Declarator is a possibly abstract declarator. Direct is nil for an
// abstract declarator made only of pointers.
type Declarator struct {
	Pointers []Pointer
	Direct   Direct
}

// Direct is the direct part of a declarator: *IdentDeclarator,
// *ParenDeclarator or *FuncDeclarator.
type Direct interface{ direct() }

type IdentDeclarator struct {
	Name string
	Tok  token.Token
}

type ParenDeclarator struct{ Inner *Declarator }

// FuncDeclarator applies a parameter list to Inner, which is nil in an
// abstract function declarator.
type FuncDeclarator struct {
	Inner    Direct
	Tok      token.Token
	Params   []*ParamDecl
	Variadic bool
}

type ParamDecl struct {
	Specs *DeclSpecs
	Decl  *Declarator
	Type  *types.Type
}

func (*IdentDeclarator) direct() {}
func (*ParenDeclarator) direct() {}
func (*FuncDeclarator) direct()  {}

// Derivation is one step of a declarator applied to its base type.
type Derivation int

const (
	DerivPointer Derivation = iota
	DerivFunction
)

// Derivations lists the declarator's derivations from the identifier
// outwards. The last entry applies directly to the specifier type.
func (d *Declarator) Derivations() []Derivation {
	if d == nil {
		return nil
	}
	out := directDerivations(d.Direct)
	for range d.Pointers {
		out = append(out, DerivPointer)
	}
	return out
}

func directDerivations(dir Direct) []Derivation {
	switch dd := dir.(type) {
	case *ParenDeclarator:
		return dd.Inner.Derivations()
	case *FuncDeclarator:
		return append(directDerivations(dd.Inner), DerivFunction)
	}
	return nil
}

// Identifier returns the declared identifier, if any.
func (d *Declarator) Identifier() (token.Token, bool) {
	if d == nil {
		return token.Token{}, false
	}
	dir := d.Direct
	for {
		switch dd := dir.(type) {
		case *IdentDeclarator:
			return dd.Tok, true
		case *ParenDeclarator:
			if dd.Inner == nil {
				return token.Token{}, false
			}
			dir = dd.Inner.Direct
		case *FuncDeclarator:
			dir = dd.Inner
		default:
			return token.Token{}, false
		}
	}
}

// IsFunction reports whether the derivation closest to the identifier is a
// function declarator, so the declarator declares a function rather than an
// object.
func (d *Declarator) IsFunction() bool {
	derivs := d.Derivations()
	return len(derivs) > 0 && derivs[0] == DerivFunction
}

func (d *Declarator) PointerDepth() int {
	n := 0
	for _, dv := range d.Derivations() {
		if dv == DerivPointer {
			n++
		}
	}
	return n
}

// InnermostFunc returns the function declarator closest to the identifier.
// Its parameters are the ones a function definition binds.
func (d *Declarator) InnermostFunc() *FuncDeclarator {
	if d == nil {
		return nil
	}
	return innermostFunc(d.Direct)
}

func innermostFunc(dir Direct) *FuncDeclarator {
	switch dd := dir.(type) {
	case *ParenDeclarator:
		return dd.Inner.InnermostFunc()
	case *FuncDeclarator:
		if inner := innermostFunc(dd.Inner); inner != nil {
			return inner
		}
		return dd
	}
	return nil
}

// Unparen returns an equivalent declarator without redundant parentheses:
// a parenthesized declarator spanning the whole direct part merges into its
// parent, and parentheses around a pointerless inner declarator are dropped.
// Parameter declarators are normalized too.
func (d *Declarator) Unparen() *Declarator {
	if d == nil {
		return nil
	}
	if p, ok := d.Direct.(*ParenDeclarator); ok && p.Inner != nil {
		inner := p.Inner.Unparen()
		ptrs := append(append([]Pointer(nil), inner.Pointers...), d.Pointers...)
		return &Declarator{Pointers: ptrs, Direct: inner.Direct}
	}
	return &Declarator{Pointers: d.Pointers, Direct: unparenDirect(d.Direct)}
}

func unparenDirect(dir Direct) Direct {
	switch dd := dir.(type) {
	case *ParenDeclarator:
		inner := dd.Inner.Unparen()
		if len(inner.Pointers) == 0 && inner.Direct != nil {
			return inner.Direct
		}
		return &ParenDeclarator{Inner: inner}
	case *FuncDeclarator:
		params := make([]*ParamDecl, len(dd.Params))
		for i, prm := range dd.Params {
			params[i] = &ParamDecl{Specs: prm.Specs, Decl: prm.Decl.Unparen(), Type: prm.Type}
		}
		return &FuncDeclarator{Inner: unparenDirect(dd.Inner), Tok: dd.Tok, Params: params, Variadic: dd.Variadic}
	}
	return dir
}
