package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/xcc/pkg/token"
)

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	// Scan a preprocessing number, then decide what it is.
	for {
		c := l.peek()
		switch {
		case isIdentChar(c) || c == '.':
			l.advance()
		case (c == '+' || c == '-') && l.pos > startPos && strings.ContainsRune("eEpP", l.source[l.pos-1]):
			l.advance()
		default:
			text := string(l.source[startPos:l.pos])
			if isFloatText(text) {
				if err := checkFloat(text); err != nil {
					return l.invalid(startPos, startCol, startLine, "invalid floating constant '%s': %v", text, err)
				}
				return l.makeToken(token.FloatConst, text, startPos, startCol, startLine)
			}
			if _, err := ParseIntConst(text); err != nil {
				return l.invalid(startPos, startCol, startLine, "%v", err)
			}
			return l.makeToken(token.IntConst, text, startPos, startCol, startLine)
		}
	}
}

func isHexText(text string) bool {
	return len(text) > 1 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X')
}

func isFloatText(text string) bool {
	if strings.ContainsRune(text, '.') {
		return true
	}
	if isHexText(text) {
		return strings.ContainsAny(text, "pP")
	}
	return strings.ContainsAny(text, "eE")
}

func checkFloat(text string) error {
	body := strings.TrimRight(text, "fFlL")
	if len(text)-len(body) > 1 {
		return fmt.Errorf("invalid suffix")
	}
	_, err := strconv.ParseFloat(body, 64)
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return nil
	}
	return err
}

// IntConst is a decoded integer constant.
type IntConst struct {
	Value    uint64
	Unsigned bool // 'u' suffix
	Longs    int  // number of 'l' in the suffix
	Decimal  bool
}

// ParseIntConst decodes the spelling of an integer constant.
func ParseIntConst(text string) (IntConst, error) {
	var c IntConst
	digits, base := text, 10
	switch {
	case isHexText(text):
		digits, base = text[2:], 16
	case len(text) > 1 && text[0] == '0':
		digits, base = text[1:], 8
	default:
		c.Decimal = true
	}

	end := 0
	for end < len(digits) && isHexDigit(rune(digits[end])) {
		if base != 16 && !isDigit(rune(digits[end])) {
			break
		}
		end++
	}
	suffix := digits[end:]
	digits = digits[:end]

	switch strings.ToLower(suffix) {
	case "":
	case "u":
		c.Unsigned = true
	case "l":
		c.Longs = 1
	case "ul", "lu":
		c.Unsigned, c.Longs = true, 1
	case "ll", "ull", "llu":
		if !strings.Contains(suffix, "ll") && !strings.Contains(suffix, "LL") {
			return c, fmt.Errorf("invalid suffix '%s' on integer constant", suffix)
		}
		c.Unsigned, c.Longs = strings.ContainsAny(suffix, "uU"), 2
	default:
		return c, fmt.Errorf("invalid suffix '%s' on integer constant", suffix)
	}

	if base == 16 && digits == "" {
		return c, fmt.Errorf("invalid integer constant '%s'", text)
	}
	if digits == "" {
		return c, nil
	}
	for _, d := range digits {
		if base == 8 && d > '7' {
			return c, fmt.Errorf("invalid digit '%c' in octal constant", d)
		}
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return c, fmt.Errorf("integer constant '%s' is too large", text)
	}
	c.Value = v
	return c, nil
}

func (l *Lexer) stringLiteral(startPos, startCol, startLine int) token.Token {
	return l.quoted('"', token.String, startPos, startCol, startLine)
}

func (l *Lexer) charLiteral(startPos, startCol, startLine int) token.Token {
	tok := l.quoted('\'', token.CharConst, startPos, startCol, startLine)
	if tok.Type == token.CharConst && tok.Value == "''" {
		return l.invalid(startPos, startCol, startLine, "empty character constant")
	}
	return tok
}

// quoted scans a literal up to the closing quote, keeping the raw spelling.
// Escapes are validated here and decoded later by Unescape.
func (l *Lexer) quoted(quote rune, kind token.Type, startPos, startCol, startLine int) token.Token {
	for {
		c := l.peek()
		switch {
		case l.isAtEnd() || c == '\n':
			return l.invalid(startPos, startCol, startLine, "missing terminating %c character", quote)
		case c == quote:
			l.advance()
			text := string(l.source[startPos:l.pos])
			if _, err := Unescape(text); err != nil {
				return l.invalid(startPos, startCol, startLine, "%v", err)
			}
			return l.makeToken(kind, text, startPos, startCol, startLine)
		case c == '\\':
			l.advance()
			if !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			l.advance()
		}
	}
}

var simpleEscapes = map[byte]byte{
	'\'': '\'', '"': '"', '?': '?', '\\': '\\',
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
}

// Unescape decodes a quoted character or string literal, quotes included,
// into the bytes it denotes.
func Unescape(raw string) ([]byte, error) {
	if len(raw) < 2 || raw[0] != raw[len(raw)-1] || (raw[0] != '"' && raw[0] != '\'') {
		return nil, fmt.Errorf("malformed literal %s", raw)
	}
	body := raw[1 : len(raw)-1]
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(body) {
			return nil, fmt.Errorf("incomplete escape sequence")
		}
		e := body[i]
		if v, ok := simpleEscapes[e]; ok {
			out = append(out, v)
			continue
		}
		switch {
		case e >= '0' && e <= '7':
			v := 0
			n := 0
			for ; n < 3 && i < len(body) && body[i] >= '0' && body[i] <= '7'; n++ {
				v = v*8 + int(body[i]-'0')
				i++
			}
			i--
			if v > 0xff {
				return nil, fmt.Errorf("octal escape sequence out of range")
			}
			out = append(out, byte(v))
		case e == 'x':
			v := 0
			n := 0
			for i+1 < len(body) && isHexDigit(rune(body[i+1])) {
				i++
				v = v*16 + hexVal(body[i])
				if v > 0xff {
					return nil, fmt.Errorf("hex escape sequence out of range")
				}
				n++
			}
			if n == 0 {
				return nil, fmt.Errorf("\\x used with no following hex digits")
			}
			out = append(out, byte(v))
		default:
			return nil, fmt.Errorf("unknown escape sequence '\\%c'", e)
		}
	}
	return out, nil
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}
