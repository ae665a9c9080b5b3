// Package parser turns a token stream into an AST. Names, scopes and types
// are resolved while parsing, so a successful parse leaves every identifier
// bound to its entity and every declaration typed.
package parser

import (
	"fmt"

	"github.com/xplshn/xcc/pkg/ast"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/scope"
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/types"
	"github.com/xplshn/xcc/pkg/util"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token

	cfg      *config.Config
	universe *types.Universe
	scopes   *scope.Stack

	fn        *funcContext // nil outside a function body
	loopDepth int
	switches  []*switchContext
}

type switchContext struct{ hasDefault bool }

// NewParser creates and initializes a new Parser from a token stream. The
// stream must end with an EOF token.
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	p := &Parser{
		tokens:   tokens,
		cfg:      cfg,
		universe: types.NewUniverse(cfg.WordSize),
		scopes:   scope.NewStack(),
	}
	p.current = p.tokens[0]
	return p
}

// Universe returns the type table filled by Parse.
func (p *Parser) Universe() *types.Universe { return p.universe }

// Scopes returns the scope stack. After Parse returns, successfully or
// not, only the global scope is left on it.
func (p *Parser) Scopes() *scope.Stack { return p.scopes }

// Parse parses a whole translation unit. The first error ends the parse.
func (p *Parser) Parse() (root *ast.Node, err error) {
	defer util.Recover(&err)

	for _, tok := range p.tokens {
		if tok.Type == token.Invalid {
			util.Raise(util.Lexical, tok, "invalid token '%s'", tok.Value)
		}
	}

	tok := p.current
	var decls []*ast.Node
	for !p.check(token.EOF) {
		if p.match(token.Semi) {
			util.Warn(p.cfg, config.WarnPedantic, p.previous, "extra ';' outside of a function")
			continue
		}
		decls = append(decls, p.parseExternalDecl())
	}
	return ast.NewTranslationUnit(tok, decls), nil
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, context string) token.Token {
	if p.check(tokType) {
		p.advance()
		return p.previous
	}
	msg := fmt.Sprintf("expected '%s'", tokType)
	if context != "" {
		msg += " " + context
	}
	p.syntaxError(msg)
	return token.Token{}
}

func (p *Parser) expectIdent(context string) token.Token {
	if p.match(token.Ident) {
		return p.previous
	}
	p.syntaxError("expected identifier " + context)
	return token.Token{}
}

// syntaxError reports msg against the current token, naming its class.
func (p *Parser) syntaxError(msg string) {
	util.Raise(util.Syntax, p.current, "%s, got %s", msg, describe(p.current))
}

func (p *Parser) semanticError(tok token.Token, format string, args ...interface{}) {
	util.Raise(util.Semantic, tok, format, args...)
}

func describe(tok token.Token) string {
	if tok.Type == token.EOF {
		return "end of file"
	}
	return fmt.Sprintf("%s '%s'", tok.Type.Class(), tok.Value)
}

func (p *Parser) pushScope() { p.scopes.Push() }
func (p *Parser) popScope()  { p.scopes.Pop() }
