package parser

import (
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/xplshn/xcc/pkg/ast"
	"github.com/xplshn/xcc/pkg/lexer"
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/types"
	"github.com/xplshn/xcc/pkg/util"
)

func getBinaryOpPrecedence(op token.Type) int {
	switch op {
	case token.Star, token.Slash, token.Rem:
		return 13
	case token.Plus, token.Minus:
		return 12
	case token.Shl, token.Shr:
		return 11
	case token.Lt, token.Gt, token.Lte, token.Gte:
		return 10
	case token.EqEq, token.Neq:
		return 9
	case token.And:
		return 8
	case token.Xor:
		return 7
	case token.Or:
		return 6
	case token.AndAnd:
		return 5
	case token.OrOr:
		return 4
	default:
		return -1
	}
}

func isAssignOp(op token.Type) bool {
	switch op {
	case token.Eq, token.StarEq, token.SlashEq, token.RemEq, token.PlusEq, token.MinusEq,
		token.ShlEq, token.ShrEq, token.AndEq, token.XorEq, token.OrEq:
		return true
	}
	return false
}

// isTypeNameStart reports whether tok can begin a type name.
func isTypeNameStart(tok token.Token) bool {
	t := tok.Type
	return t.IsTypeSpecifier() || t.IsQualifier() || t == token.Struct || t == token.Union || t == token.Enum
}

// require turns a "no match" result into a syntax error.
func (p *Parser) require(n *ast.Node, what string) *ast.Node {
	if n == nil {
		p.syntaxError("expected " + what)
	}
	return n
}

func (p *Parser) parseExpr() *ast.Node {
	expr := p.parseAssignmentExpr()
	if expr == nil {
		return nil
	}
	for p.check(token.Comma) {
		tok := p.current
		p.advance()
		right := p.require(p.parseAssignmentExpr(), "expression after ','")
		expr = ast.NewComma(tok, expr, right)
	}
	return expr
}

func (p *Parser) parseAssignmentExpr() *ast.Node {
	left := p.parseTernaryExpr()
	if left == nil {
		return nil
	}
	if isAssignOp(p.current.Type) {
		tok := p.current
		p.advance()
		right := p.require(p.parseAssignmentExpr(), "expression after '"+tok.Type.String()+"'")
		return ast.NewAssign(tok, tok.Type, left, right)
	}
	return left
}

func (p *Parser) parseTernaryExpr() *ast.Node {
	cond := p.parseBinaryExpr(0)
	if cond == nil {
		return nil
	}
	if p.check(token.Question) {
		tok := p.current
		p.advance()
		thenExpr := p.require(p.parseExpr(), "expression after '?'")
		p.expect(token.Colon, "in conditional expression")
		elseExpr := p.require(p.parseTernaryExpr(), "expression after ':'")
		return ast.NewTernary(tok, cond, thenExpr, elseExpr)
	}
	return cond
}

func (p *Parser) parseBinaryExpr(minPrec int) *ast.Node {
	left := p.parseCastExpr()
	if left == nil {
		return nil
	}

	for {
		op := p.current.Type
		prec := getBinaryOpPrecedence(op)
		if prec < minPrec || prec < 0 {
			break
		}
		opTok := p.current
		p.advance()
		right := p.require(p.parseBinaryExpr(prec+1), "expression after '"+op.String()+"'")
		left = ast.NewBinaryOp(opTok, op, left, right)
	}
	return left
}

func (p *Parser) parseCastExpr() *ast.Node {
	if p.check(token.LParen) && isTypeNameStart(p.peek()) {
		tok := p.current
		p.advance()
		typeName := p.parseTypeName()
		p.expect(token.RParen, "after type name")
		if p.check(token.LBrace) {
			p.semanticError(p.current, "compound literals are not supported")
		}
		expr := p.require(p.parseCastExpr(), "expression after cast")
		return ast.NewCast(tok, typeName, expr)
	}
	return p.parseUnaryExpr()
}

func (p *Parser) parseUnaryExpr() *ast.Node {
	tok := p.current
	switch tok.Type {
	case token.Inc, token.Dec:
		p.advance()
		operand := p.require(p.parseUnaryExpr(), "expression after '"+tok.Type.String()+"'")
		return ast.NewUnaryOp(tok, tok.Type, operand)
	case token.And, token.Star, token.Plus, token.Minus, token.Complement, token.Not:
		p.advance()
		operand := p.require(p.parseCastExpr(), "expression after unary '"+tok.Type.String()+"'")
		return ast.NewUnaryOp(tok, tok.Type, operand)
	case token.Sizeof:
		p.advance()
		if p.check(token.LParen) && isTypeNameStart(p.peek()) {
			p.advance()
			typeName := p.parseTypeName()
			p.expect(token.RParen, "after type name")
			return ast.NewSizeofType(tok, typeName)
		}
		operand := p.require(p.parseUnaryExpr(), "expression after 'sizeof'")
		return ast.NewSizeofExpr(tok, operand)
	case token.Alignof:
		p.semanticError(tok, "'_Alignof' is not supported")
	}
	return p.parsePostfixExpr()
}

func (p *Parser) parsePostfixExpr() *ast.Node {
	expr := p.parsePrimaryExpr()
	if expr == nil {
		return nil
	}

	for {
		tok := p.current
		switch {
		case p.match(token.LParen):
			var args []*ast.Node
			if !p.check(token.RParen) {
				for {
					args = append(args, p.require(p.parseAssignmentExpr(), "argument expression"))
					if !p.match(token.Comma) {
						break
					}
				}
			}
			p.expect(token.RParen, "after function arguments")
			expr = ast.NewCall(tok, expr, args)
		case p.match(token.LBracket):
			index := p.require(p.parseExpr(), "index expression")
			p.expect(token.RBracket, "after index expression")
			expr = ast.NewSubscript(tok, expr, index)
		case p.match(token.Dot), p.match(token.Arrow):
			name := p.expectIdent("after '" + tok.Type.String() + "'")
			expr = ast.NewMember(tok, expr, name.Value, tok.Type == token.Arrow)
		case p.match(token.Inc), p.match(token.Dec):
			expr = ast.NewPostfixOp(tok, tok.Type, expr)
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimaryExpr() *ast.Node {
	tok := p.current
	switch tok.Type {
	case token.Ident:
		p.advance()
		entity, ok := p.scopes.Lookup(tok.Value)
		if !ok {
			p.semanticError(tok, "use of undeclared identifier '%s'", tok.Value)
		}
		return ast.NewIdent(tok, tok.Value, entity)
	case token.IntConst:
		p.advance()
		return p.intConstant(tok)
	case token.FloatConst:
		p.advance()
		// Range errors were reported by the lexer; the value saturates.
		v, _ := strconv.ParseFloat(strings.TrimRight(tok.Value, "fFlL"), 64)
		return ast.NewFloat(tok, v)
	case token.CharConst:
		p.advance()
		b, err := lexer.Unescape(tok.Value)
		if err != nil {
			util.Raise(util.Lexical, tok, "%v", err)
		}
		var v int64
		if len(b) == 1 {
			v = int64(int8(b[0]))
		} else {
			for _, c := range b {
				v = v<<8 | int64(c)
			}
		}
		return ast.NewChar(tok, v)
	case token.String:
		var pieces []string
		var value []byte
		for p.check(token.String) {
			b, err := lexer.Unescape(p.current.Value)
			if err != nil {
				util.Raise(util.Lexical, p.current, "%v", err)
			}
			pieces = append(pieces, p.current.Value)
			value = append(value, b...)
			p.advance()
		}
		return ast.NewString(tok, pieces, value)
	case token.LParen:
		p.advance()
		expr := p.require(p.parseExpr(), "expression after '('")
		p.expect(token.RParen, "after expression")
		return ast.NewParen(tok, expr)
	case token.Generic:
		p.semanticError(tok, "'_Generic' is not supported")
	}
	return nil
}

func (p *Parser) intConstant(tok token.Token) *ast.Node {
	c, err := lexer.ParseIntConst(tok.Value)
	if err != nil {
		util.Raise(util.Lexical, tok, "%v", err)
	}
	return ast.NewNumber(tok, c.Value, p.intConstType(c))
}

var intConstKinds = []types.Kind{types.Int, types.UInt, types.Long, types.ULong, types.LongLong, types.ULongLong}

// intConstType picks the first type of the constant's candidate list that
// can represent its value.
func (p *Parser) intConstType(c lexer.IntConst) *types.Type {
	minRank := []int{3, 4, 5}[c.Longs]
	for _, k := range intConstKinds {
		t := p.universe.Basic(k)
		if p.universe.Rank(t) < minRank {
			continue
		}
		if t.IsSigned() && c.Unsigned {
			continue
		}
		if !t.IsSigned() && c.Decimal && !c.Unsigned {
			continue
		}
		if p.fits(c.Value, t) {
			return t
		}
	}
	return p.universe.Basic(types.ULongLong)
}

func (p *Parser) fits(v uint64, t *types.Type) bool {
	var err error
	switch size := p.universe.Sizeof(t); {
	case size == 4 && t.IsSigned():
		_, err = safecast.Conv[int32](v)
	case size == 4:
		_, err = safecast.Conv[uint32](v)
	case t.IsSigned():
		_, err = safecast.Conv[int64](v)
	}
	return err == nil
}
