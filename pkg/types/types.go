// Package types holds the canonical machine types of a compilation unit and
// the struct/union tags declared in it.
package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xplshn/xcc/pkg/token"
)

type Kind int

const (
	Void Kind = iota
	Bool
	Char
	SChar
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LongLong
	ULongLong
	Float
	Double
	LongDouble
	Pointer
	Function
	Struct
)

var kindNames = map[Kind]string{
	Void: "void", Bool: "_Bool", Char: "char", SChar: "signed char", UChar: "unsigned char",
	Short: "short", UShort: "unsigned short", Int: "int", UInt: "unsigned int",
	Long: "long", ULong: "unsigned long", LongLong: "long long", ULongLong: "unsigned long long",
	Float: "float", Double: "double", LongDouble: "long double",
}

type Type struct {
	Kind     Kind
	Elem     *Type // Pointer
	Ret      *Type // Function
	Params   []*Type
	Variadic bool
	Tag      *Tag // Struct, for both struct and union tags

	ptr *Type
}

func (t *Type) IsVoid() bool     { return t.Kind == Void }
func (t *Type) IsInteger() bool  { return t.Kind >= Bool && t.Kind <= ULongLong }
func (t *Type) IsFloat() bool    { return t.Kind >= Float && t.Kind <= LongDouble }
func (t *Type) IsPointer() bool  { return t.Kind == Pointer }
func (t *Type) IsFunction() bool { return t.Kind == Function }
func (t *Type) IsStruct() bool   { return t.Kind == Struct }

func (t *Type) IsArithmetic() bool { return t.IsInteger() || t.IsFloat() }
func (t *Type) IsScalar() bool     { return t.IsArithmetic() || t.IsPointer() }

// IsSigned reports whether an integer type is signed. Plain char is signed.
func (t *Type) IsSigned() bool {
	switch t.Kind {
	case Char, SChar, Short, Int, Long, LongLong:
		return true
	}
	return false
}

// IsComplete reports whether objects of the type have a known size.
func (t *Type) IsComplete() bool {
	switch t.Kind {
	case Void, Function:
		return false
	case Struct:
		return t.Tag.IsComplete()
	}
	return true
}

func (t *Type) String() string {
	switch t.Kind {
	case Pointer:
		if t.Elem.Kind == Function {
			return fmt.Sprintf("%s (*)(%s)", t.Elem.Ret, t.Elem.paramString())
		}
		return t.Elem.String() + " *"
	case Function:
		return fmt.Sprintf("%s (%s)", t.Ret, t.paramString())
	case Struct:
		return t.Tag.String()
	}
	return kindNames[t.Kind]
}

func (t *Type) paramString() string {
	parts := make([]string, 0, len(t.Params)+1)
	for _, p := range t.Params {
		parts = append(parts, p.String())
	}
	if t.Variadic {
		parts = append(parts, "...")
	}
	if len(parts) == 0 {
		return "void"
	}
	return strings.Join(parts, ", ")
}

// Identical reports whether a and b denote the same type.
func Identical(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Pointer:
		return Identical(a.Elem, b.Elem)
	case Struct:
		return a.Tag == b.Tag
	case Function:
		if a.Variadic != b.Variadic || len(a.Params) != len(b.Params) || !Identical(a.Ret, b.Ret) {
			return false
		}
		for i := range a.Params {
			if !Identical(a.Params[i], b.Params[i]) {
				return false
			}
		}
	}
	return true
}

// Universe owns the builtin types and tag identifiers of one compilation
// unit. It is not safe for concurrent use.
type Universe struct {
	WordSize int64
	basic    map[Kind]*Type
	nextTag  int
}

func NewUniverse(wordSize int) *Universe {
	u := &Universe{WordSize: int64(wordSize), basic: make(map[Kind]*Type)}
	for k := Void; k <= LongDouble; k++ {
		u.basic[k] = &Type{Kind: k}
	}
	return u
}

func (u *Universe) Basic(k Kind) *Type { return u.basic[k] }

// PointerTo returns the unique pointer type to t.
func (u *Universe) PointerTo(t *Type) *Type {
	if t.ptr == nil {
		t.ptr = &Type{Kind: Pointer, Elem: t}
	}
	return t.ptr
}

func (u *Universe) Func(ret *Type, params []*Type, variadic bool) *Type {
	return &Type{Kind: Function, Ret: ret, Params: params, Variadic: variadic}
}

// specifier multisets, spelled naturally; keys are normalized in init.
var builtinTable = map[string]Kind{
	"void":                   Void,
	"_Bool":                  Bool,
	"char":                   Char,
	"signed char":            SChar,
	"unsigned char":          UChar,
	"short":                  Short,
	"signed short":           Short,
	"short int":              Short,
	"signed short int":       Short,
	"unsigned short":         UShort,
	"unsigned short int":     UShort,
	"int":                    Int,
	"signed":                 Int,
	"signed int":             Int,
	"unsigned":               UInt,
	"unsigned int":           UInt,
	"long":                   Long,
	"signed long":            Long,
	"long int":               Long,
	"signed long int":        Long,
	"unsigned long":          ULong,
	"unsigned long int":      ULong,
	"long long":              LongLong,
	"signed long long":       LongLong,
	"long long int":          LongLong,
	"signed long long int":   LongLong,
	"unsigned long long":     ULongLong,
	"unsigned long long int": ULongLong,
	"float":                  Float,
	"double":                 Double,
	"long double":            LongDouble,
}

var complexTable = map[string]bool{
	"float _Complex": true, "double _Complex": true, "long double _Complex": true,
	"float _Imaginary": true, "double _Imaginary": true, "long double _Imaginary": true,
}

var builtins = make(map[string]Kind)
var complexes = make(map[string]bool)

func multisetKey(words []string) string {
	sorted := append([]string(nil), words...)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

func init() {
	for spelling, k := range builtinTable {
		builtins[multisetKey(strings.Fields(spelling))] = k
	}
	for spelling := range complexTable {
		complexes[multisetKey(strings.Fields(spelling))] = true
	}
}

// Builtin resolves a multiset of type-specifier keywords, in any order.
func (u *Universe) Builtin(specs []token.Type) (*Type, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("missing type specifier")
	}
	words := make([]string, len(specs))
	for i, s := range specs {
		words[i] = s.String()
	}
	key := multisetKey(words)
	if k, ok := builtins[key]; ok {
		return u.basic[k], nil
	}
	if complexes[key] {
		return nil, fmt.Errorf("complex types are not supported")
	}
	return nil, fmt.Errorf("invalid combination of type specifiers '%s'", strings.Join(words, " "))
}

// Sizeof returns the size in bytes of a complete type. void and function
// types report 1 so pointer arithmetic on them steps by one byte.
func (u *Universe) Sizeof(t *Type) int64 {
	switch t.Kind {
	case Void, Bool, Char, SChar, UChar, Function:
		return 1
	case Short, UShort:
		return 2
	case Int, UInt, Float:
		return 4
	case Long, ULong, Pointer:
		return u.WordSize
	case LongLong, ULongLong, Double:
		return 8
	case LongDouble:
		return 16
	case Struct:
		return t.Tag.size
	}
	return 0
}

func (u *Universe) Alignof(t *Type) int64 {
	if t.Kind == Struct {
		return t.Tag.align
	}
	return u.Sizeof(t)
}

// Rank orders integer types for the usual arithmetic conversions.
func (u *Universe) Rank(t *Type) int {
	switch t.Kind {
	case Bool:
		return 0
	case Char, SChar, UChar:
		return 1
	case Short, UShort:
		return 2
	case Int, UInt:
		return 3
	case Long, ULong:
		return 4
	case LongLong, ULongLong:
		return 5
	}
	return -1
}

// Unsigned returns the unsigned counterpart of an integer type.
func (u *Universe) Unsigned(t *Type) *Type {
	switch t.Kind {
	case Char, SChar:
		return u.basic[UChar]
	case Short:
		return u.basic[UShort]
	case Int:
		return u.basic[UInt]
	case Long:
		return u.basic[ULong]
	case LongLong:
		return u.basic[ULongLong]
	}
	return t
}
