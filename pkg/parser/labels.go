package parser

import (
	"github.com/xplshn/xcc/pkg/scope"
	"github.com/xplshn/xcc/pkg/token"
)

// funcContext is the per-function state of the goto/label resolver. Labels
// have function scope, so gotos may jump forward; they are checked once the
// body is complete.
type funcContext struct {
	entity *scope.Function
	labels map[string]token.Token
	gotos  []pendingGoto
}

type pendingGoto struct {
	tok   token.Token // the 'goto' keyword
	label token.Token
}

func newFuncContext(fn *scope.Function) *funcContext {
	return &funcContext{entity: fn, labels: make(map[string]token.Token)}
}

func (p *Parser) defineLabel(tok token.Token) {
	if prev, dup := p.fn.labels[tok.Value]; dup {
		p.semanticError(tok, "redefinition of label '%s' (previous definition at line %d)", tok.Value, prev.Line)
	}
	p.fn.labels[tok.Value] = tok
}

func (p *Parser) addGoto(gotoTok, label token.Token) {
	p.fn.gotos = append(p.fn.gotos, pendingGoto{tok: gotoTok, label: label})
}

func (p *Parser) resolveGotos() {
	for _, g := range p.fn.gotos {
		if _, ok := p.fn.labels[g.label.Value]; !ok {
			p.semanticError(g.tok, "label '%s' used but not defined in function '%s'", g.label.Value, p.fn.entity.Name)
		}
	}
}
