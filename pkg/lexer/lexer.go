package lexer

import (
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/util"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	cfg       *config.Config
	errs      []*util.CompileError
}

func NewLexer(source []rune, fileIndex int, cfg *config.Config) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, cfg: cfg,
	}
}

// Tokenize scans the whole source. The result always ends with an EOF
// token; every token.Invalid in it has a matching entry in the returned
// errors, in order.
func Tokenize(source []rune, fileIndex int, cfg *config.Config) ([]token.Token, []*util.CompileError) {
	l := NewLexer(source, fileIndex, cfg)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks, l.errs
}

// Errors returns the diagnostics for the invalid tokens produced so far.
func (l *Lexer) Errors() []*util.CompileError { return l.errs }

func (l *Lexer) Next() token.Token {
	if tok, ok := l.skipWhitespaceAndComments(); !ok {
		return tok
	}
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine)
	}

	ch := l.peek()
	if isIdentStart(ch) {
		l.advance()
		return l.identifierOrKeyword(startPos, startCol, startLine)
	}
	if isDigit(ch) || (ch == '.' && isDigit(l.peekNext())) {
		return l.numberLiteral(startPos, startCol, startLine)
	}

	l.advance()
	if tt, ok := singlePuncts[ch]; ok {
		return l.punct(tt, startPos, startCol, startLine)
	}
	if pair, ok := eqPuncts[ch]; ok {
		return l.matchThen('=', pair[1], pair[0], startPos, startCol, startLine)
	}
	switch ch {
	case ':':
		if l.digraphs() && l.match('>') {
			return l.punct(token.RBracket, startPos, startCol, startLine)
		}
		return l.punct(token.Colon, startPos, startCol, startLine)
	case '#':
		return l.matchThen('#', token.HashHash, token.Hash, startPos, startCol, startLine)
	case '%':
		return l.percent(startPos, startCol, startLine)
	case '+':
		return l.plus(startPos, startCol, startLine)
	case '-':
		return l.minus(startPos, startCol, startLine)
	case '&':
		return l.ampersand(startPos, startCol, startLine)
	case '|':
		return l.pipe(startPos, startCol, startLine)
	case '<':
		return l.less(startPos, startCol, startLine)
	case '>':
		return l.greater(startPos, startCol, startLine)
	case '.':
		if l.peek() == '.' && l.peekNext() == '.' {
			l.advance()
			l.advance()
			return l.punct(token.Dots, startPos, startCol, startLine)
		}
		return l.punct(token.Dot, startPos, startCol, startLine)
	case '"':
		return l.stringLiteral(startPos, startCol, startLine)
	case '\'':
		return l.charLiteral(startPos, startCol, startLine)
	}

	return l.invalid(startPos, startCol, startLine, "stray '%c' in program", ch)
}

// singlePuncts never start a longer punctuator.
var singlePuncts = map[rune]token.Type{
	'(': token.LParen, ')': token.RParen, '{': token.LBrace, '}': token.RBrace,
	'[': token.LBracket, ']': token.RBracket, ';': token.Semi, ',': token.Comma,
	'?': token.Question, '~': token.Complement,
}

// eqPuncts map a character to its plain form and its form followed by '='.
var eqPuncts = map[rune][2]token.Type{
	'!': {token.Not, token.Neq},
	'^': {token.Xor, token.XorEq},
	'=': {token.Eq, token.EqEq},
	'*': {token.Star, token.StarEq},
	'/': {token.Slash, token.SlashEq},
}

func isIdentStart(c rune) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentChar(c rune) bool  { return isIdentStart(c) || isDigit(c) }
func isDigit(c rune) bool      { return c >= '0' && c <= '9' }
func isHexDigit(c rune) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) digraphs() bool { return l.cfg.IsFeatureEnabled(config.FeatDigraphs) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

// punct makes a punctuator token spelled canonically, so digraphs read
// the same as the tokens they stand for.
func (l *Lexer) punct(tokType token.Type, startPos, startCol, startLine int) token.Token {
	return l.makeToken(tokType, token.PunctMap[tokType], startPos, startCol, startLine)
}

func (l *Lexer) invalid(startPos, startCol, startLine int, format string, args ...interface{}) token.Token {
	tok := l.makeToken(token.Invalid, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
	l.errs = append(l.errs, util.Errorf(util.Lexical, tok, format, args...))
	return tok
}

func (l *Lexer) skipWhitespaceAndComments() (token.Token, bool) {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			l.advance()
		case '/':
			switch {
			case l.peekNext() == '*':
				if tok, ok := l.blockComment(); !ok {
					return tok, false
				}
			case l.peekNext() == '/' && l.cfg.IsFeatureEnabled(config.FeatCComments):
				l.lineComment()
			default:
				return token.Token{}, true
			}
		default:
			return token.Token{}, true
		}
	}
}

func (l *Lexer) blockComment() (token.Token, bool) {
	startPos, startCol, startLine := l.pos, l.column, l.line
	l.advance()
	l.advance()
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			return token.Token{}, true
		}
		l.advance()
	}
	// Only the opening "/*" is reported, not the rest of the file.
	tok := l.makeToken(token.Invalid, "/*", startPos, startCol, startLine)
	tok.Len = 2
	l.errs = append(l.errs, util.Errorf(util.Lexical, tok, "unterminated comment"))
	return tok, false
}

func (l *Lexer) lineComment() {
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for isIdentChar(l.peek()) {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.Ident, value, startPos, startCol, startLine)

	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		tok.Type = tokType
	}
	return tok
}

func (l *Lexer) matchThen(expected rune, thenType, elseType token.Type, sPos, sCol, sLine int) token.Token {
	if l.match(expected) {
		return l.punct(thenType, sPos, sCol, sLine)
	}
	return l.punct(elseType, sPos, sCol, sLine)
}

func (l *Lexer) percent(sPos, sCol, sLine int) token.Token {
	if l.digraphs() {
		if l.match('>') {
			return l.punct(token.RBrace, sPos, sCol, sLine)
		}
		if l.match(':') {
			if l.peek() == '%' && l.peekNext() == ':' {
				l.advance()
				l.advance()
				return l.punct(token.HashHash, sPos, sCol, sLine)
			}
			return l.punct(token.Hash, sPos, sCol, sLine)
		}
	}
	return l.matchThen('=', token.RemEq, token.Rem, sPos, sCol, sLine)
}

func (l *Lexer) plus(sPos, sCol, sLine int) token.Token {
	if l.match('+') {
		return l.punct(token.Inc, sPos, sCol, sLine)
	}
	return l.matchThen('=', token.PlusEq, token.Plus, sPos, sCol, sLine)
}

func (l *Lexer) minus(sPos, sCol, sLine int) token.Token {
	if l.match('-') {
		return l.punct(token.Dec, sPos, sCol, sLine)
	}
	if l.match('>') {
		return l.punct(token.Arrow, sPos, sCol, sLine)
	}
	return l.matchThen('=', token.MinusEq, token.Minus, sPos, sCol, sLine)
}

func (l *Lexer) ampersand(sPos, sCol, sLine int) token.Token {
	if l.match('&') {
		return l.punct(token.AndAnd, sPos, sCol, sLine)
	}
	return l.matchThen('=', token.AndEq, token.And, sPos, sCol, sLine)
}

func (l *Lexer) pipe(sPos, sCol, sLine int) token.Token {
	if l.match('|') {
		return l.punct(token.OrOr, sPos, sCol, sLine)
	}
	return l.matchThen('=', token.OrEq, token.Or, sPos, sCol, sLine)
}

func (l *Lexer) less(sPos, sCol, sLine int) token.Token {
	if l.match('<') {
		return l.matchThen('=', token.ShlEq, token.Shl, sPos, sCol, sLine)
	}
	if l.digraphs() {
		if l.match(':') {
			return l.punct(token.LBracket, sPos, sCol, sLine)
		}
		if l.match('%') {
			return l.punct(token.LBrace, sPos, sCol, sLine)
		}
	}
	return l.matchThen('=', token.Lte, token.Lt, sPos, sCol, sLine)
}

func (l *Lexer) greater(sPos, sCol, sLine int) token.Token {
	if l.match('>') {
		return l.matchThen('=', token.ShrEq, token.Shr, sPos, sCol, sLine)
	}
	return l.matchThen('=', token.Gte, token.Gt, sPos, sCol, sLine)
}
