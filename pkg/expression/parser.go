package expression

import "errors"

// Parse turns source into an immutable AST, or a SyntaxError carrying the
// offset of the first offending character.
func Parse(source string) (Expr, error) {
	tokens, err := lex(source)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, syntaxErrorf(p.peek().offset, "unexpected %s after expression", p.peek().describe())
	}
	return expr, nil
}

// TryParse is the non-throwing variant of Parse for validation-time use: it
// returns nil on malformed input so a caller can collect many errors without
// aborting.
func TryParse(source string) Expr {
	expr, err := Parse(source)
	if err != nil {
		return nil
	}
	return expr
}

// Cache stores parsed expressions keyed by their source string.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// ParseCached parses through cache when one is supplied. Safe because
// parsing is pure and ASTs are immutable.
func ParseCached(cache Cache, source string) (Expr, error) {
	if cache != nil {
		if cached, ok := cache.Get(source); ok {
			if expr, ok := cached.(Expr); ok {
				return expr, nil
			}
		}
	}
	expr, err := Parse(source)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.Set(source, expr)
	}
	return expr, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	tok := p.peek()
	if tok.kind != kind {
		return token{}, syntaxErrorf(tok.offset, "expected %s, found %s", what, tok.describe())
	}
	return p.next(), nil
}

// parseExpr parses a full expression, ternary and down.
func (p *parser) parseExpr() (Expr, error) {
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokQuestion {
		return cond, nil
	}
	q := p.next()
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':' of ternary"); err != nil {
		return nil, err
	}
	alt, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Conditional{position: position(q.offset), Cond: cond, Then: then, Else: alt}, nil
}

var binaryPrecedence = map[tokenKind]int{
	tokOr:        1,
	tokAnd:       2,
	tokEq:        3,
	tokNeq:       3,
	tokStrictEq:  3,
	tokStrictNeq: 3,
	tokLt:        4,
	tokLte:       4,
	tokGt:        4,
	tokGte:       4,
	tokPlus:      5,
	tokMinus:     5,
	tokStar:      6,
	tokSlash:     6,
	tokPercent:   6,
}

func (p *parser) parseBinary(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		prec, isBinary := binaryPrecedence[op.kind]
		if !isBinary || prec < minPrec {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{position: position(op.offset), Op: op.text, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	tok := p.peek()
	if tok.kind == tokBang || tok.kind == tokMinus {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{position: position(tok.offset), Op: tok.text, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokDot:
			dot := p.next()
			name, err := p.expect(tokIdent, "field name after '.'")
			if err != nil {
				return nil, err
			}
			expr = &Member{position: position(dot.offset), Target: expr, Name: name.text}
		case tokLParen:
			paren := p.next()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expr = &Call{position: position(paren.offset), Callee: expr, Args: args}
		default:
			return expr, nil
		}
	}
}

func (p *parser) parseArgs() ([]Expr, error) {
	var args []Expr
	if p.peek().kind == tokRParen {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		switch p.peek().kind {
		case tokComma:
			p.next()
		case tokRParen:
			p.next()
			return args, nil
		default:
			return nil, syntaxErrorf(p.peek().offset, "expected ',' or ')' in argument list, found %s", p.peek().describe())
		}
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.kind {
	case tokNumber:
		p.next()
		return &Literal{position: position(tok.offset), Value: tok.number}, nil
	case tokString:
		p.next()
		return &Literal{position: position(tok.offset), Value: tok.text}, nil
	case tokTemplate:
		p.next()
		return p.buildTemplate(tok)
	case tokSigil:
		p.next()
		name, err := p.expect(tokIdent, "identifier after sigil "+tok.text)
		if err != nil {
			return nil, err
		}
		return &SigilRef{position: position(tok.offset), Sigil: tok.text, Name: name.text}, nil
	case tokIdent:
		switch tok.text {
		case "true":
			p.next()
			return &Literal{position: position(tok.offset), Value: true}, nil
		case "false":
			p.next()
			return &Literal{position: position(tok.offset), Value: false}, nil
		}
		if p.peekAt(1).kind == tokArrow {
			p.next()
			p.next()
			body, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return &Arrow{position: position(tok.offset), Params: []string{tok.text}, Body: body}, nil
		}
		p.next()
		return &Ident{position: position(tok.offset), Name: tok.text}, nil
	case tokLParen:
		if params, ok := p.tryArrowParams(); ok {
			body, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return &Arrow{position: position(tok.offset), Params: params, Body: body}, nil
		}
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case tokLBrace:
		return p.parseObject()
	default:
		return nil, syntaxErrorf(tok.offset, "expected an expression, found %s", tok.describe())
	}
}

// tryArrowParams speculatively scans `(a, b) =>` from the current position.
// On success it consumes through the arrow and returns the parameter names;
// otherwise the position is untouched.
func (p *parser) tryArrowParams() ([]string, bool) {
	saved := p.pos
	p.next() // '('
	var params []string
	if p.peek().kind == tokRParen {
		p.next()
	} else {
		for {
			if p.peek().kind != tokIdent {
				p.pos = saved
				return nil, false
			}
			params = append(params, p.next().text)
			if p.peek().kind == tokComma {
				p.next()
				continue
			}
			if p.peek().kind == tokRParen {
				p.next()
				break
			}
			p.pos = saved
			return nil, false
		}
	}
	if p.peek().kind != tokArrow {
		p.pos = saved
		return nil, false
	}
	p.next()
	return params, true
}

func (p *parser) parseObject() (Expr, error) {
	brace, err := p.expect(tokLBrace, "'{'")
	if err != nil {
		return nil, err
	}
	obj := &Object{position: position(brace.offset)}
	if p.peek().kind == tokRBrace {
		p.next()
		return obj, nil
	}
	for {
		keyTok := p.peek()
		if keyTok.kind != tokIdent && keyTok.kind != tokString {
			return nil, syntaxErrorf(keyTok.offset, "expected an object key, found %s", keyTok.describe())
		}
		p.next()
		if _, err := p.expect(tokColon, "':' after object key"); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		obj.Keys = append(obj.Keys, keyTok.text)
		obj.Values = append(obj.Values, value)
		switch p.peek().kind {
		case tokComma:
			p.next()
		case tokRBrace:
			p.next()
			return obj, nil
		default:
			return nil, syntaxErrorf(p.peek().offset, "expected ',' or '}' in object literal, found %s", p.peek().describe())
		}
	}
}

// buildTemplate sub-parses each interpolation at its recorded offset so
// syntax errors inside `${...}` point into the original source.
func (p *parser) buildTemplate(tok token) (Expr, error) {
	tmpl := &Template{position: position(tok.offset)}
	for _, part := range tok.parts {
		if !part.isExpr {
			tmpl.Chunks = append(tmpl.Chunks, part.literal)
			continue
		}
		expr, err := Parse(part.expr)
		if err != nil {
			var syn *SyntaxError
			if errors.As(err, &syn) {
				return nil, syntaxErrorf(part.offset+syn.Offset, "in template interpolation: %s", syn.Message)
			}
			return nil, err
		}
		tmpl.Exprs = append(tmpl.Exprs, expr)
	}
	return tmpl, nil
}
