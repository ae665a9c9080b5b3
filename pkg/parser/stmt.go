package parser

import (
	"github.com/xplshn/xcc/pkg/ast"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/token"
)

func (p *Parser) requireStmt() *ast.Node {
	stmt := p.parseStmt()
	if stmt == nil {
		p.syntaxError("expected statement")
	}
	return stmt
}

// parseStmt parses one statement, or returns nil if the current token
// cannot start one.
func (p *Parser) parseStmt() *ast.Node {
	tok := p.current

	switch {
	case p.check(token.Ident) && p.peek().Type == token.Colon:
		p.advance()
		p.advance()
		p.defineLabel(tok)
		return ast.NewLabel(tok, tok.Value, p.requireStmt())
	case p.match(token.Case):
		if len(p.switches) == 0 {
			p.semanticError(tok, "'case' statement not in switch statement")
		}
		value := p.require(p.parseTernaryExpr(), "constant expression after 'case'")
		p.expect(token.Colon, "after 'case' value")
		return ast.NewCase(tok, value, p.requireStmt())
	case p.match(token.Default):
		if len(p.switches) == 0 {
			p.semanticError(tok, "'default' statement not in switch statement")
		}
		sw := p.switches[len(p.switches)-1]
		if sw.hasDefault {
			p.semanticError(tok, "multiple default labels in one switch")
		}
		sw.hasDefault = true
		p.expect(token.Colon, "after 'default'")
		return ast.NewDefault(tok, p.requireStmt())
	case p.check(token.LBrace):
		return p.parseCompoundStmt(true)
	case p.match(token.If):
		p.expect(token.LParen, "after 'if'")
		cond := p.require(p.parseExpr(), "condition")
		p.expect(token.RParen, "after if condition")
		thenBody := p.requireStmt()
		var elseBody *ast.Node
		if p.match(token.Else) {
			elseBody = p.requireStmt()
		}
		return ast.NewIf(tok, cond, thenBody, elseBody)
	case p.match(token.Switch):
		return p.parseSwitch(tok)
	case p.match(token.While):
		p.expect(token.LParen, "after 'while'")
		cond := p.require(p.parseExpr(), "condition")
		p.expect(token.RParen, "after while condition")
		return ast.NewWhile(tok, cond, p.parseLoopBody())
	case p.match(token.Do):
		body := p.parseLoopBody()
		p.expect(token.While, "after do-while body")
		p.expect(token.LParen, "after 'while'")
		cond := p.require(p.parseExpr(), "condition")
		p.expect(token.RParen, "after do-while condition")
		p.expect(token.Semi, "after do-while statement")
		return ast.NewDoWhile(tok, body, cond)
	case p.match(token.For):
		return p.parseFor(tok)
	case p.match(token.Goto):
		label := p.expectIdent("after 'goto'")
		p.addGoto(tok, label)
		p.expect(token.Semi, "after goto statement")
		return ast.NewGoto(tok, label.Value)
	case p.match(token.Continue):
		if p.loopDepth == 0 {
			p.semanticError(tok, "'continue' statement not in loop statement")
		}
		p.expect(token.Semi, "after 'continue'")
		return ast.NewContinue(tok)
	case p.match(token.Break):
		if p.loopDepth == 0 && len(p.switches) == 0 {
			p.semanticError(tok, "'break' statement not in loop or switch statement")
		}
		p.expect(token.Semi, "after 'break'")
		return ast.NewBreak(tok)
	case p.match(token.Return):
		var expr *ast.Node
		if !p.check(token.Semi) {
			expr = p.require(p.parseExpr(), "expression or ';' after 'return'")
		}
		p.expect(token.Semi, "after return statement")
		return ast.NewReturn(tok, expr)
	case p.match(token.Semi):
		return ast.NewExprStmt(tok, nil)
	}

	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	p.expect(token.Semi, "after expression")
	return ast.NewExprStmt(tok, expr)
}

// parseCompoundStmt parses a block. A function body passes newScope=false
// because it shares the scope of the parameters.
func (p *Parser) parseCompoundStmt(newScope bool) *ast.Node {
	tok := p.expect(token.LBrace, "")
	if newScope {
		p.pushScope()
		defer p.popScope()
	}

	var items []*ast.Node
	sawStmt := false
	for !p.match(token.RBrace) {
		if p.check(token.EOF) {
			p.syntaxError("expected '}' to close block")
		}
		if p.isDeclStart() {
			if sawStmt && !p.cfg.IsFeatureEnabled(config.FeatMixedDecls) {
				p.semanticError(p.current, "declaration after statement is forbidden by the current feature set (-Fno-mixed-decls)")
			}
			items = append(items, p.parseBlockDecl())
			continue
		}
		items = append(items, p.requireStmt())
		sawStmt = true
	}
	return ast.NewBlock(tok, items)
}

func (p *Parser) parseSwitch(tok token.Token) *ast.Node {
	p.expect(token.LParen, "after 'switch'")
	expr := p.require(p.parseExpr(), "controlling expression")
	p.expect(token.RParen, "after switch expression")

	p.switches = append(p.switches, &switchContext{})
	defer func() { p.switches = p.switches[:len(p.switches)-1] }()
	return ast.NewSwitch(tok, expr, p.requireStmt())
}

func (p *Parser) parseLoopBody() *ast.Node {
	p.loopDepth++
	defer func() { p.loopDepth-- }()
	return p.requireStmt()
}

func (p *Parser) parseFor(tok token.Token) *ast.Node {
	p.expect(token.LParen, "after 'for'")

	var init *ast.Node
	switch {
	case p.isDeclStart():
		if !p.cfg.IsFeatureEnabled(config.FeatForDecl) {
			p.semanticError(p.current, "declaration in 'for' loop is forbidden by the current feature set (-Fno-for-decl)")
		}
		// The declaration is scoped to the loop.
		p.pushScope()
		defer p.popScope()
		init = p.parseBlockDecl()
	case !p.match(token.Semi):
		initTok := p.current
		init = ast.NewExprStmt(initTok, p.require(p.parseExpr(), "expression"))
		p.expect(token.Semi, "after 'for' initializer")
	}

	var cond, post *ast.Node
	if !p.check(token.Semi) {
		cond = p.require(p.parseExpr(), "condition")
	}
	p.expect(token.Semi, "after 'for' condition")
	if !p.check(token.RParen) {
		post = p.require(p.parseExpr(), "expression")
	}
	p.expect(token.RParen, "after 'for' clauses")

	return ast.NewFor(tok, init, cond, post, p.parseLoopBody())
}
