// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"github.com/xplshn/xcc/pkg/scope"
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/types"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Expressions
	Ident NodeType = iota
	Number
	Float
	Char
	String
	Paren
	Subscript
	Call
	Member
	PostfixOp
	UnaryOp
	SizeofExpr
	SizeofType
	Cast
	BinaryOp
	Ternary
	Assign
	Comma

	// Statements
	Block
	ExprStmt
	If
	Switch
	While
	DoWhile
	For
	Goto
	Continue
	Break
	Return
	Label
	Case
	Default

	// Declarations
	Decl
	FuncDef
	TranslationUnit
)

// Node represents a node in the Abstract Syntax Tree. Every composite node
// owns its children; nodes are never shared.
type Node struct {
	Type NodeType
	Tok  token.Token
	Data interface{}
}

// --- Node Data Structs ---
type IdentNode struct {
	Name   string
	Entity scope.Entity // resolved at parse time
}
type NumberNode struct {
	Text  string
	Value uint64
	Type  *types.Type
}
type FloatNode struct {
	Text  string
	Value float64
}
type CharNode struct {
	Text  string
	Value int64
}

// StringNode keeps the raw spelling of every adjacent piece and the decoded
// bytes of their concatenation.
type StringNode struct {
	Pieces []string
	Value  []byte
}
type ParenNode struct{ Expr *Node }
type SubscriptNode struct{ Expr, Index *Node }
type CallNode struct {
	Func *Node
	Args []*Node
}
type MemberNode struct {
	Expr  *Node
	Name  string
	Arrow bool
}
type PostfixOpNode struct {
	Op   token.Type
	Expr *Node
}
type UnaryOpNode struct {
	Op   token.Type
	Expr *Node
}
type SizeofExprNode struct{ Expr *Node }
type SizeofTypeNode struct{ Type *TypeName }
type CastNode struct {
	Type *TypeName
	Expr *Node
}
type BinaryOpNode struct {
	Op          token.Type
	Left, Right *Node
}
type TernaryNode struct{ Cond, Then, Else *Node }
type AssignNode struct {
	Op       token.Type
	Lhs, Rhs *Node
}
type CommaNode struct{ Left, Right *Node }

type BlockNode struct{ Items []*Node }

// ExprStmtNode is an expression statement; a nil Expr is the null statement.
type ExprStmtNode struct{ Expr *Node }
type IfNode struct{ Cond, Then, Else *Node }
type SwitchNode struct{ Expr, Body *Node }
type WhileNode struct{ Cond, Body *Node }
type DoWhileNode struct{ Body, Cond *Node }

// ForNode.Init is a Decl or an ExprStmt node. Any clause may be nil.
type ForNode struct{ Init, Cond, Post, Body *Node }
type GotoNode struct{ Label string }
type ContinueNode struct{}
type BreakNode struct{}
type ReturnNode struct{ Expr *Node }
type LabelNode struct {
	Name string
	Stmt *Node
}
type CaseNode struct{ Expr, Body *Node }
type DefaultNode struct{ Body *Node }

type DeclNode struct {
	Specs *DeclSpecs
	Inits []*InitDeclarator
}

type InitDeclarator struct {
	Decl   *Declarator
	Init   *Node
	Entity scope.Entity
}

type FuncDefNode struct {
	Specs  *DeclSpecs
	Decl   *Declarator
	Body   *Node
	Func   *scope.Function
	Params []*scope.Variable
}

type TranslationUnitNode struct{ Decls []*Node }

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Data: data}
}

func NewIdent(tok token.Token, name string, entity scope.Entity) *Node {
	return newNode(tok, Ident, IdentNode{Name: name, Entity: entity})
}
func NewNumber(tok token.Token, value uint64, typ *types.Type) *Node {
	return newNode(tok, Number, NumberNode{Text: tok.Value, Value: value, Type: typ})
}
func NewFloat(tok token.Token, value float64) *Node {
	return newNode(tok, Float, FloatNode{Text: tok.Value, Value: value})
}
func NewChar(tok token.Token, value int64) *Node {
	return newNode(tok, Char, CharNode{Text: tok.Value, Value: value})
}
func NewString(tok token.Token, pieces []string, value []byte) *Node {
	return newNode(tok, String, StringNode{Pieces: pieces, Value: value})
}
func NewParen(tok token.Token, expr *Node) *Node {
	return newNode(tok, Paren, ParenNode{Expr: expr})
}
func NewSubscript(tok token.Token, expr, index *Node) *Node {
	return newNode(tok, Subscript, SubscriptNode{Expr: expr, Index: index})
}
func NewCall(tok token.Token, fn *Node, args []*Node) *Node {
	return newNode(tok, Call, CallNode{Func: fn, Args: args})
}
func NewMember(tok token.Token, expr *Node, name string, arrow bool) *Node {
	return newNode(tok, Member, MemberNode{Expr: expr, Name: name, Arrow: arrow})
}
func NewPostfixOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, PostfixOp, PostfixOpNode{Op: op, Expr: expr})
}
func NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr})
}
func NewSizeofExpr(tok token.Token, expr *Node) *Node {
	return newNode(tok, SizeofExpr, SizeofExprNode{Expr: expr})
}
func NewSizeofType(tok token.Token, typ *TypeName) *Node {
	return newNode(tok, SizeofType, SizeofTypeNode{Type: typ})
}
func NewCast(tok token.Token, typ *TypeName, expr *Node) *Node {
	return newNode(tok, Cast, CastNode{Type: typ, Expr: expr})
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right})
}
func NewTernary(tok token.Token, cond, thenExpr, elseExpr *Node) *Node {
	return newNode(tok, Ternary, TernaryNode{Cond: cond, Then: thenExpr, Else: elseExpr})
}
func NewAssign(tok token.Token, op token.Type, lhs, rhs *Node) *Node {
	return newNode(tok, Assign, AssignNode{Op: op, Lhs: lhs, Rhs: rhs})
}
func NewComma(tok token.Token, left, right *Node) *Node {
	return newNode(tok, Comma, CommaNode{Left: left, Right: right})
}
func NewBlock(tok token.Token, items []*Node) *Node {
	return newNode(tok, Block, BlockNode{Items: items})
}
func NewExprStmt(tok token.Token, expr *Node) *Node {
	return newNode(tok, ExprStmt, ExprStmtNode{Expr: expr})
}
func NewIf(tok token.Token, cond, thenBody, elseBody *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, Then: thenBody, Else: elseBody})
}
func NewSwitch(tok token.Token, expr, body *Node) *Node {
	return newNode(tok, Switch, SwitchNode{Expr: expr, Body: body})
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body})
}
func NewDoWhile(tok token.Token, body, cond *Node) *Node {
	return newNode(tok, DoWhile, DoWhileNode{Body: body, Cond: cond})
}
func NewFor(tok token.Token, init, cond, post, body *Node) *Node {
	return newNode(tok, For, ForNode{Init: init, Cond: cond, Post: post, Body: body})
}
func NewGoto(tok token.Token, label string) *Node {
	return newNode(tok, Goto, GotoNode{Label: label})
}
func NewContinue(tok token.Token) *Node {
	return newNode(tok, Continue, ContinueNode{})
}
func NewBreak(tok token.Token) *Node {
	return newNode(tok, Break, BreakNode{})
}
func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, ReturnNode{Expr: expr})
}
func NewLabel(tok token.Token, name string, stmt *Node) *Node {
	return newNode(tok, Label, LabelNode{Name: name, Stmt: stmt})
}
func NewCase(tok token.Token, expr, body *Node) *Node {
	return newNode(tok, Case, CaseNode{Expr: expr, Body: body})
}
func NewDefault(tok token.Token, body *Node) *Node {
	return newNode(tok, Default, DefaultNode{Body: body})
}
func NewDecl(tok token.Token, specs *DeclSpecs, inits []*InitDeclarator) *Node {
	return newNode(tok, Decl, DeclNode{Specs: specs, Inits: inits})
}
func NewFuncDef(tok token.Token, specs *DeclSpecs, decl *Declarator, body *Node, fn *scope.Function, params []*scope.Variable) *Node {
	return newNode(tok, FuncDef, FuncDefNode{Specs: specs, Decl: decl, Body: body, Func: fn, Params: params})
}
func NewTranslationUnit(tok token.Token, decls []*Node) *Node {
	return newNode(tok, TranslationUnit, TranslationUnitNode{Decls: decls})
}

// IsExpr reports whether the node is an expression.
func (n *Node) IsExpr() bool { return n.Type <= Comma }
