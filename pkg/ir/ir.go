// Package ir is the block-structured intermediate representation handed to
// the backend. Instructions map one to one onto QBE IL.
package ir

import (
	"fmt"
	"strconv"
)

type Op int

const (
	OpAlloc Op = iota
	OpLoad
	OpStore
	OpBlit
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpUDiv
	OpRem
	OpURem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr // logical
	OpSar // arithmetic
	OpNeg
	OpCEq
	OpCNe
	OpCSlt
	OpCSle
	OpCSgt
	OpCSge
	OpCUlt
	OpCUle
	OpCUgt
	OpCUge
	OpExtSB
	OpExtUB
	OpExtSH
	OpExtUH
	OpExtSW
	OpExtUW
	OpCopy
	OpSWToF
	OpUWToF
	OpSLToF
	OpULToF
	OpFToSI
	OpFToUI
	OpExtS
	OpTruncD
	OpJmp
	OpJnz
	OpRet
	OpCall
	OpPhi
)

func (op Op) IsTerminator() bool { return op == OpJmp || op == OpJnz || op == OpRet }

type Type int

const (
	TypeNone Type = iota
	TypeB         // byte (8-bit, ambiguous signedness)
	TypeH         // half-word (16-bit, ambiguous signedness)
	TypeW         // word (32-bit)
	TypeL         // long (64-bit)
	TypeS         // single float (32-bit)
	TypeD         // double float (64-bit)
	TypeSB        // signed byte (8-bit)
	TypeUB        // unsigned byte (8-bit)
	TypeSH        // signed half-word (16-bit)
	TypeUH        // unsigned half-word (16-bit)
)

var typeNames = [...]string{
	TypeB: "b", TypeH: "h", TypeW: "w", TypeL: "l", TypeS: "s", TypeD: "d",
	TypeSB: "sb", TypeUB: "ub", TypeSH: "sh", TypeUH: "uh",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return ""
	}
	return typeNames[t]
}

type Value interface {
	isValue()
	String() string
}

type Const struct{ Value int64 }

type FloatConst struct {
	Value float64
	Typ   Type
}

type Global struct{ Name string }

// Temporary is an SSA value. Named temporaries keep the source name of the
// variable they were spilled from.
type Temporary struct {
	Name string
	ID   int
}

type Label struct{ Name string }

func (c *Const) isValue()      {}
func (f *FloatConst) isValue() {}
func (g *Global) isValue()     {}
func (t *Temporary) isValue()  {}
func (l *Label) isValue()      {}

func (c *Const) String() string      { return strconv.FormatInt(c.Value, 10) }
func (f *FloatConst) String() string { return strconv.FormatFloat(f.Value, 'g', -1, 64) }
func (g *Global) String() string     { return g.Name }
func (t *Temporary) String() string  { return t.Name }
func (l *Label) String() string      { return l.Name }

type Func struct {
	Name       string
	Export     bool
	Params     []*Param
	ReturnType Type
	ReturnAgg  string // aggregate return type name, if any
	Variadic   bool
	Blocks     []*BasicBlock
}

type Param struct {
	Name string
	Typ  Type
	Agg  string
	Val  Value
}

type BasicBlock struct {
	Label        *Label
	Instructions []*Instruction
}

// Terminated reports whether the block already ends in a jump or return.
func (b *BasicBlock) Terminated() bool {
	n := len(b.Instructions)
	return n > 0 && b.Instructions[n-1].Op.IsTerminator()
}

type Instruction struct {
	Op          Op
	Typ         Type // result class
	OperandType Type // memory or comparison operand class
	Result      Value
	Args        []Value
	ArgTypes    []Type
	ArgAggs     []string
	Agg         string // aggregate result type of a call
	Align       int
	FixedArgs   int // for variadic calls: arguments before the "..." marker
	Variadic    bool
}

type Program struct {
	Globals  []*Data
	Strings  []*StringLit
	Funcs    []*Func
	AggTypes []*AggType
	WordSize int
}

type StringLit struct {
	Name  string
	Bytes []byte // without the terminating NUL
}

type Data struct {
	Name   string
	Export bool
	Align  int
	Items  []DataItem
}

// DataItem is one initializer item; a nil Value means Count zero bytes.
type DataItem struct {
	Typ   Type
	Value Value
	Count int
}

// AggType is an aggregate type declaration. Opaque types only carry a size
// and an alignment; they are used for unions.
type AggType struct {
	Name   string
	Align  int64
	Size   int64
	Opaque bool
	Fields []AggField
}

type AggField struct {
	Typ Type
	Agg string
}

func SizeOfType(t Type, wordSize int) int64 {
	switch t {
	case TypeB, TypeSB, TypeUB:
		return 1
	case TypeH, TypeSH, TypeUH:
		return 2
	case TypeW, TypeS:
		return 4
	case TypeL, TypeD:
		return 8
	}
	return int64(wordSize)
}

func (p *Program) FindFunc(name string) *Func {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Verify checks the structural invariants the backend relies on: every
// block is labeled and ends in exactly one terminator.
func (p *Program) Verify() error {
	for _, f := range p.Funcs {
		if len(f.Blocks) == 0 {
			return fmt.Errorf("function %s has no blocks", f.Name)
		}
		seen := make(map[string]bool)
		for _, b := range f.Blocks {
			if b.Label == nil {
				return fmt.Errorf("function %s: unlabeled block", f.Name)
			}
			if seen[b.Label.Name] {
				return fmt.Errorf("function %s: duplicate block @%s", f.Name, b.Label.Name)
			}
			seen[b.Label.Name] = true
			if !b.Terminated() {
				return fmt.Errorf("function %s: block @%s does not end in a jump or return", f.Name, b.Label.Name)
			}
			for _, instr := range b.Instructions[:len(b.Instructions)-1] {
				if instr.Op.IsTerminator() {
					return fmt.Errorf("function %s: block @%s has a terminator before its end", f.Name, b.Label.Name)
				}
			}
		}
		for _, b := range f.Blocks {
			last := b.Instructions[len(b.Instructions)-1]
			for _, arg := range last.Args {
				if l, ok := arg.(*Label); ok && !seen[l.Name] {
					return fmt.Errorf("function %s: jump to undefined block @%s", f.Name, l.Name)
				}
			}
		}
	}
	return nil
}
