package expression

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokTemplate
	tokIdent
	tokSigil // @ # $

	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokComma
	tokColon
	tokDot
	tokQuestion
	tokArrow // =>

	tokOr  // ||
	tokAnd // &&
	tokEq
	tokStrictEq
	tokNeq
	tokStrictNeq
	tokLt
	tokLte
	tokGt
	tokGte
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokBang
)

// templatePart is one literal-or-interpolation segment of a template
// literal. Interpolation sources keep their absolute offset so sub-parse
// errors point at the right spot.
type templatePart struct {
	literal string
	expr    string
	offset  int
	isExpr  bool
}

type token struct {
	kind   tokenKind
	offset int
	text   string
	number float64
	parts  []templatePart
}

// lex scans source into a flat token slice. Scanning the whole expression up
// front keeps the parser free to look ahead, which arrow parameter lists
// need.
func lex(source string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(source) {
		c := source[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9':
			tok, next, err := lexNumber(source, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		case c == '"' || c == '\'':
			tok, next, err := lexString(source, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		case c == '`':
			tok, next, err := lexTemplate(source, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		case c == '@' || c == '#' || c == '$':
			tokens = append(tokens, token{kind: tokSigil, offset: i, text: string(c)})
			i++
		case isIdentStart(rune(c)):
			start := i
			for i < len(source) && isIdentPart(decodeRune(source, i)) {
				_, size := utf8.DecodeRuneInString(source[i:])
				i += size
			}
			tokens = append(tokens, token{kind: tokIdent, offset: start, text: source[start:i]})
		default:
			tok, next, err := lexOperator(source, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		}
	}
	tokens = append(tokens, token{kind: tokEOF, offset: len(source)})
	return tokens, nil
}

func lexNumber(source string, start int) (token, int, error) {
	i := start
	for i < len(source) && source[i] >= '0' && source[i] <= '9' {
		i++
	}
	if i < len(source) && source[i] == '.' {
		if i+1 >= len(source) || source[i+1] < '0' || source[i+1] > '9' {
			return token{}, 0, syntaxErrorf(i, "number literal has a trailing dot")
		}
		i++
		for i < len(source) && source[i] >= '0' && source[i] <= '9' {
			i++
		}
	}
	if i < len(source) && (source[i] == 'e' || source[i] == 'E') {
		j := i + 1
		if j < len(source) && (source[j] == '+' || source[j] == '-') {
			j++
		}
		if j >= len(source) || source[j] < '0' || source[j] > '9' {
			return token{}, 0, syntaxErrorf(i, "number literal has a malformed exponent")
		}
		i = j
		for i < len(source) && source[i] >= '0' && source[i] <= '9' {
			i++
		}
	}
	text := source[start:i]
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, 0, syntaxErrorf(start, "invalid number literal %q", text)
	}
	return token{kind: tokNumber, offset: start, text: text, number: value}, i, nil
}

func lexString(source string, start int) (token, int, error) {
	quote := source[start]
	var b strings.Builder
	i := start + 1
	for i < len(source) {
		c := source[i]
		switch c {
		case quote:
			return token{kind: tokString, offset: start, text: b.String()}, i + 1, nil
		case '\\':
			if i+1 >= len(source) {
				return token{}, 0, syntaxErrorf(i, "string literal ends in a bare backslash")
			}
			escaped, consumed, err := unescape(source, i)
			if err != nil {
				return token{}, 0, err
			}
			b.WriteString(escaped)
			i += consumed
		default:
			b.WriteByte(c)
			i++
		}
	}
	return token{}, 0, syntaxErrorf(start, "string literal is never closed")
}

// lexTemplate scans a backtick template literal into alternating literal and
// interpolation parts. Interpolations are sub-parsed later, at their
// recorded offsets.
func lexTemplate(source string, start int) (token, int, error) {
	var parts []templatePart
	var b strings.Builder
	i := start + 1
	flush := func() {
		parts = append(parts, templatePart{literal: b.String()})
		b.Reset()
	}
	for i < len(source) {
		c := source[i]
		switch {
		case c == '`':
			flush()
			return token{kind: tokTemplate, offset: start, parts: parts}, i + 1, nil
		case c == '\\':
			if i+1 >= len(source) {
				return token{}, 0, syntaxErrorf(i, "template literal ends in a bare backslash")
			}
			escaped, consumed, err := unescape(source, i)
			if err != nil {
				return token{}, 0, err
			}
			b.WriteString(escaped)
			i += consumed
		case c == '$' && i+1 < len(source) && source[i+1] == '{':
			flush()
			exprStart := i + 2
			depth := 1
			j := exprStart
			for j < len(source) && depth > 0 {
				switch source[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				j++
			}
			if depth != 0 {
				return token{}, 0, syntaxErrorf(i, "template interpolation is never closed")
			}
			parts = append(parts, templatePart{
				expr:   source[exprStart : j-1],
				offset: exprStart,
				isExpr: true,
			})
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return token{}, 0, syntaxErrorf(start, "template literal is never closed")
}

func unescape(source string, i int) (string, int, error) {
	switch source[i+1] {
	case 'n':
		return "\n", 2, nil
	case 't':
		return "\t", 2, nil
	case 'r':
		return "\r", 2, nil
	case '\\', '\'', '"', '`', '$', '{':
		return string(source[i+1]), 2, nil
	default:
		return "", 0, syntaxErrorf(i, "unsupported escape sequence %q", "\\"+string(source[i+1]))
	}
}

func lexOperator(source string, i int) (token, int, error) {
	two := ""
	if i+1 < len(source) {
		two = source[i : i+2]
	}
	three := ""
	if i+2 < len(source) {
		three = source[i : i+3]
	}

	switch three {
	case "===":
		return token{kind: tokStrictEq, offset: i, text: three}, i + 3, nil
	case "!==":
		return token{kind: tokStrictNeq, offset: i, text: three}, i + 3, nil
	}
	switch two {
	case "==":
		return token{kind: tokEq, offset: i, text: two}, i + 2, nil
	case "!=":
		return token{kind: tokNeq, offset: i, text: two}, i + 2, nil
	case "<=":
		return token{kind: tokLte, offset: i, text: two}, i + 2, nil
	case ">=":
		return token{kind: tokGte, offset: i, text: two}, i + 2, nil
	case "&&":
		return token{kind: tokAnd, offset: i, text: two}, i + 2, nil
	case "||":
		return token{kind: tokOr, offset: i, text: two}, i + 2, nil
	case "=>":
		return token{kind: tokArrow, offset: i, text: two}, i + 2, nil
	}

	kinds := map[byte]tokenKind{
		'(': tokLParen, ')': tokRParen, '{': tokLBrace, '}': tokRBrace,
		',': tokComma, ':': tokColon, '.': tokDot, '?': tokQuestion,
		'<': tokLt, '>': tokGt, '+': tokPlus, '-': tokMinus,
		'*': tokStar, '/': tokSlash, '%': tokPercent, '!': tokBang,
	}
	if kind, ok := kinds[source[i]]; ok {
		return token{kind: kind, offset: i, text: string(source[i])}, i + 1, nil
	}
	return token{}, 0, syntaxErrorf(i, "unexpected character %q", string(source[i]))
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func decodeRune(source string, i int) rune {
	r, _ := utf8.DecodeRuneInString(source[i:])
	return r
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of expression"
	case tokNumber, tokIdent:
		return fmt.Sprintf("%q", t.text)
	case tokString:
		return "string literal"
	case tokTemplate:
		return "template literal"
	default:
		return fmt.Sprintf("%q", t.text)
	}
}
