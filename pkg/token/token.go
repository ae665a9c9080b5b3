package token

type Type int

const (
	EOF Type = iota
	Invalid
	Ident
	IntConst
	FloatConst
	CharConst
	String

	// Keywords
	Auto
	Break
	Case
	Char
	Const
	Continue
	Default
	Do
	Double
	Else
	Enum
	Extern
	Float
	For
	Goto
	If
	Inline
	Int
	Long
	Register
	Restrict
	Return
	Short
	Signed
	Sizeof
	Static
	Struct
	Switch
	Typedef
	Union
	Unsigned
	Void
	Volatile
	While
	Alignas
	Alignof
	Atomic
	Bool
	Complex
	Generic
	Imaginary
	Noreturn
	StaticAssert
	ThreadLocal

	// Punctuators
	LBracket
	RBracket
	LParen
	RParen
	LBrace
	RBrace
	Dot
	Arrow
	Inc
	Dec
	And
	Star
	Plus
	Minus
	Complement
	Not
	Slash
	Rem
	Shl
	Shr
	Lt
	Gt
	Lte
	Gte
	EqEq
	Neq
	Xor
	Or
	AndAnd
	OrOr
	Question
	Colon
	Semi
	Dots
	Eq
	StarEq
	SlashEq
	RemEq
	PlusEq
	MinusEq
	ShlEq
	ShrEq
	AndEq
	XorEq
	OrEq
	Comma
	Hash
	HashHash
)

var KeywordMap = map[string]Type{
	"auto":           Auto,
	"break":          Break,
	"case":           Case,
	"char":           Char,
	"const":          Const,
	"continue":       Continue,
	"default":        Default,
	"do":             Do,
	"double":         Double,
	"else":           Else,
	"enum":           Enum,
	"extern":         Extern,
	"float":          Float,
	"for":            For,
	"goto":           Goto,
	"if":             If,
	"inline":         Inline,
	"int":            Int,
	"long":           Long,
	"register":       Register,
	"restrict":       Restrict,
	"return":         Return,
	"short":          Short,
	"signed":         Signed,
	"sizeof":         Sizeof,
	"static":         Static,
	"struct":         Struct,
	"switch":         Switch,
	"typedef":        Typedef,
	"union":          Union,
	"unsigned":       Unsigned,
	"void":           Void,
	"volatile":       Volatile,
	"while":          While,
	"_Alignas":       Alignas,
	"_Alignof":       Alignof,
	"_Atomic":        Atomic,
	"_Bool":          Bool,
	"_Complex":       Complex,
	"_Generic":       Generic,
	"_Imaginary":     Imaginary,
	"_Noreturn":      Noreturn,
	"_Static_assert": StaticAssert,
	"_Thread_local":  ThreadLocal,
}

// PunctMap holds the canonical spelling of every punctuator.
var PunctMap = map[Type]string{
	LBracket: "[", RBracket: "]", LParen: "(", RParen: ")", LBrace: "{", RBrace: "}",
	Dot: ".", Arrow: "->", Inc: "++", Dec: "--", And: "&", Star: "*", Plus: "+",
	Minus: "-", Complement: "~", Not: "!", Slash: "/", Rem: "%", Shl: "<<",
	Shr: ">>", Lt: "<", Gt: ">", Lte: "<=", Gte: ">=", EqEq: "==", Neq: "!=",
	Xor: "^", Or: "|", AndAnd: "&&", OrOr: "||", Question: "?", Colon: ":",
	Semi: ";", Dots: "...", Eq: "=", StarEq: "*=", SlashEq: "/=", RemEq: "%=",
	PlusEq: "+=", MinusEq: "-=", ShlEq: "<<=", ShrEq: ">>=", AndEq: "&=",
	XorEq: "^=", OrEq: "|=", Comma: ",", Hash: "#", HashHash: "##",
}

// Reverse mapping from Type to the keyword string
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range PunctMap {
		TypeStrings[typ] = str
	}
}

// Class names the lexical class of a token type as printed by --tokenize.
func (t Type) Class() string {
	switch {
	case t == EOF:
		return "end-of-stream"
	case t == Invalid:
		return "invalid"
	case t == Ident:
		return "identifier"
	case t == IntConst, t == FloatConst, t == CharConst:
		return "constant"
	case t == String:
		return "string-literal"
	case t >= Auto && t <= ThreadLocal:
		return "keyword"
	case t >= LBracket && t <= HashHash:
		return "punctuator"
	}
	return "unknown"
}

// IsTypeSpecifier reports whether t starts a builtin type specifier.
func (t Type) IsTypeSpecifier() bool {
	switch t {
	case Void, Char, Short, Int, Long, Float, Double, Signed, Unsigned, Bool, Complex, Imaginary:
		return true
	}
	return false
}

// IsQualifier reports whether t is a type qualifier.
func (t Type) IsQualifier() bool {
	return t == Const || t == Restrict || t == Volatile || t == Atomic
}

// IsStorageClass reports whether t is a storage-class or function specifier.
func (t Type) IsStorageClass() bool {
	switch t {
	case Typedef, Extern, Static, ThreadLocal, Auto, Register, Inline, Noreturn:
		return true
	}
	return false
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	switch t {
	case EOF:
		return "end of file"
	case Ident:
		return "identifier"
	case IntConst, FloatConst, CharConst:
		return "constant"
	case String:
		return "string literal"
	}
	return "invalid token"
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
