// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

// Package parser implements a Pratt/precedence-climbing parser over the
// lexer's token stream, producing the AST the evaluator walks.
package parser

import (
	"strings"

	"calcnote/internal/ast"
	"calcnote/internal/calcerr"
	"calcnote/internal/lexer"
)

// singleLetterUnitParams holds single-letter identifiers that collide with
// unit abbreviations; they may not be used as function/lambda parameter
// names, since a parameter of that name would silently shadow the unit
// everywhere the body writes a bare quantity like `5m`.
var singleLetterUnitParams = map[string]bool{
	"s": true, "m": true, "g": true, "l": true, "c": true, "f": true, "k": true, "h": true, "b": true,
}

var typeNames = map[string]bool{
	"number": true, "string": true, "boolean": true, "array": true, "object": true,
	"null": true, "function": true, "date": true, "datetime": true,
	"length": true, "weight": true, "volume": true, "temperature": true,
	"data": true, "time": true, "currency": true, "angle": true,
}

// Parser walks a token slice produced by the lexer.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// ParseLine parses one notebook line's source text into an AST node. Empty
// input (including whole-line comments, which the lexer reduces to an
// immediate EOF) yields ast.Empty.
func ParseLine(source string) (ast.Node, error) {
	toks, err := lexer.Lex(source)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 && toks[0].Type == lexer.EOF {
		return ast.Empty{}, nil
	}
	p := &Parser{tokens: toks}
	return p.parseStatement()
}

// ParseExpr parses a standalone expression (used for `${...}` template
// interpolation segments, which are re-parsed from raw text).
func ParseExpr(source string) (ast.Node, error) {
	toks, err := lexer.Lex(source)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: toks}
	expr, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, p.errorf("unexpected token %s after expression", p.peek().Type)
	}
	return expr, nil
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peekAhead(n int) lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) atEnd() bool {
	return p.peek().Type == lexer.EOF
}

func (p *Parser) advance() lexer.Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(t lexer.TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(t lexer.TokenType, what string) (lexer.Token, error) {
	if !p.check(t) {
		return lexer.Token{}, p.errorf("expected %s, got %s", what, p.peek().Type)
	}
	return p.advance(), nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return calcerr.New(calcerr.KindUnexpectedToken, format, args...)
}

// parseStatement handles the statement-level forms: assignment, function
// definition, or a bare expression. Assignments and function definitions
// only ever appear at the top of a line, never nested inside an expression.
func (p *Parser) parseStatement() (ast.Node, error) {
	if p.check(lexer.IDENT) {
		if node, ok, err := p.tryParseAssignment(); ok || err != nil {
			return node, err
		}
		if node, ok, err := p.tryParseFuncDef(); ok || err != nil {
			return node, err
		}
	}
	expr, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, p.errorf("unexpected token %s", p.peek().Type)
	}
	return expr, nil
}

func (p *Parser) tryParseAssignment() (ast.Node, bool, error) {
	save := p.pos
	name := p.peek().Text
	p.advance()
	var op string
	switch {
	case p.check(lexer.ASSIGN):
		op = "="
	case p.check(lexer.PLUSEQ):
		op = "+="
	case p.check(lexer.MINUSEQ):
		op = "-="
	default:
		p.pos = save
		return nil, false, nil
	}
	p.advance()
	expr, err := p.parsePipe()
	if err != nil {
		return nil, true, err
	}
	if !p.atEnd() {
		return nil, true, p.errorf("unexpected token %s after assignment", p.peek().Type)
	}
	return &ast.Assignment{Name: name, Op: op, Expr: expr}, true, nil
}

func (p *Parser) tryParseFuncDef() (ast.Node, bool, error) {
	save := p.pos
	if !p.check(lexer.IDENT) || p.peekAhead(1).Type != lexer.LPAREN {
		return nil, false, nil
	}
	name := p.peek().Text
	p.advance() // name
	p.advance() // (
	params, err := p.parseIdentList(lexer.RPAREN)
	if err != nil {
		p.pos = save
		return nil, false, nil
	}
	if _, err := p.expect(lexer.RPAREN, ")"); err != nil {
		p.pos = save
		return nil, false, nil
	}
	if !p.check(lexer.ASSIGN) {
		p.pos = save
		return nil, false, nil
	}
	p.advance()
	if err := validateParams(params); err != nil {
		return nil, true, err
	}
	body, err := p.parsePipe()
	if err != nil {
		return nil, true, err
	}
	if !p.atEnd() {
		return nil, true, p.errorf("unexpected token %s after function body", p.peek().Type)
	}
	return &ast.FuncDef{Name: name, Params: params, Body: body}, true, nil
}

func validateParams(params []string) error {
	for _, param := range params {
		if singleLetterUnitParams[param] {
			return calcerr.New(calcerr.KindUnexpectedToken,
				"parameter name %q collides with a unit abbreviation; rename it", param)
		}
	}
	return nil
}

func (p *Parser) parseIdentList(end lexer.TokenType) ([]string, error) {
	var names []string
	if p.check(end) {
		return names, nil
	}
	for {
		tok, err := p.expect(lexer.IDENT, "parameter name")
		if err != nil {
			return nil, err
		}
		names = append(names, tok.Text)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	return names, nil
}

// --- precedence climbing ---

// parsePipe: level 1, `x | f`, left-assoc, lowest precedence. See
// DESIGN.md for why bare '|' never also means bitwise-or here.
func (p *Parser) parsePipe() (ast.Node, error) {
	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.PIPE) {
		if p.check(lexer.ARROW) {
			return nil, calcerr.New(calcerr.KindPipeLambdaDirect, "pipe right-hand side cannot be a bare lambda literal")
		}
		right, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if _, isLambda := right.(*ast.Lambda); isLambda {
			return nil, calcerr.New(calcerr.KindPipeLambdaDirect, "pipe right-hand side cannot be a bare lambda literal")
		}
		left = &ast.Pipe{Left: left, Right: right}
	}
	return left, nil
}

// parseTernary: level 2, right-assoc.
func (p *Parser) parseTernary() (ast.Node, error) {
	cond, err := p.parseOrOrNullish()
	if err != nil {
		return nil, err
	}
	if p.match(lexer.QUESTION) {
		then, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON, ":"); err != nil {
			return nil, err
		}
		els, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		return &ast.Ternary{Cond: cond, Then: then, Else: els}, nil
	}
	return cond, nil
}

// parseOrOrNullish: level 3, `||` and `??`, left-assoc, same level.
func (p *Parser) parseOrOrNullish() (ast.Node, error) {
	left, err := p.parseAndAnd()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.OROR) || p.check(lexer.NULLISH) {
		op := "||"
		if p.check(lexer.NULLISH) {
			op = "??"
		}
		p.advance()
		right, err := p.parseAndAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parseAndAnd: level 4.
func (p *Parser) parseAndAnd() (ast.Node, error) {
	left, err := p.parseEqualityIs()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.ANDAND) {
		right, err := p.parseEqualityIs()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

// parseEqualityIs: level 5, `== != is`.
func (p *Parser) parseEqualityIs() (ast.Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(lexer.EQ):
			right, err := p.parseComparison()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: "==", Left: left, Right: right}
		case p.match(lexer.NEQ):
			right, err := p.parseComparison()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: "!=", Left: left, Right: right}
		case p.match(lexer.IS):
			typeTok, err := p.expect(lexer.IDENT, "type name")
			if err != nil {
				return nil, err
			}
			left = &ast.IsCheck{Operand: left, TypeName: strings.ToLower(typeTok.Text)}
		default:
			return left, nil
		}
	}
}

// parseComparison: level 6, `< <= > >=`.
func (p *Parser) parseComparison() (ast.Node, error) {
	left, err := p.parseBitwise()
	if err != nil {
		return nil, err
	}
	ops := map[lexer.TokenType]string{lexer.LT: "<", lexer.LE: "<=", lexer.GT: ">", lexer.GE: ">="}
	for {
		matched := false
		for tt, op := range ops {
			if p.check(tt) {
				p.advance()
				right, err := p.parseBitwise()
				if err != nil {
					return nil, err
				}
				left = &ast.Binary{Op: op, Left: left, Right: right}
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
	}
}

// parseBitwise: level 7, `&`, `<<`, `>>`. See DESIGN.md: bitwise-or is
// exposed as the `bitor` built-in instead of the ambiguous bare `|`.
func (p *Parser) parseBitwise() (ast.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(lexer.AMP):
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: "&", Left: left, Right: right}
		case p.match(lexer.SHL):
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: "<<", Left: left, Right: right}
		case p.match(lexer.SHR):
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: ">>", Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

// parseAdditive: level 8, `+ -`.
func (p *Parser) parseAdditive() (ast.Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(lexer.PLUS):
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: "+", Left: left, Right: right}
		case p.match(lexer.MINUS):
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: "-", Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

// parseMultiplicative: level 9, `* / %`. `%` is also the postfix percent
// operator (level 12); we disambiguate here by lookahead, since a bare `%`
// not followed by an operand-starting token cannot be binary modulo.
func (p *Parser) parseMultiplicative() (ast.Node, error) {
	left, err := p.parseConvert()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(lexer.STAR):
			right, err := p.parseConvert()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: "*", Left: left, Right: right}
		case p.match(lexer.SLASH):
			right, err := p.parseConvert()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: "/", Left: left, Right: right}
		case p.check(lexer.PERCENT):
			if p.startsOperand(p.peekAhead(1)) {
				p.advance()
				right, err := p.parseConvert()
				if err != nil {
					return nil, err
				}
				left = &ast.Binary{Op: "%", Left: left, Right: right}
			} else {
				return left, nil // postfix `%` already folded in parsePostfix
			}
		default:
			return left, nil
		}
	}
}

func (p *Parser) startsOperand(t lexer.Token) bool {
	switch t.Type {
	case lexer.NUMBER, lexer.QUANTITY, lexer.IDENT, lexer.STRING, lexer.TEMPLATE,
		lexer.BOOL, lexer.NULL, lexer.DATE, lexer.DATETIME, lexer.TIME,
		lexer.LPAREN, lexer.LBRACKET, lexer.LBRACE, lexer.MINUS, lexer.PLUS, lexer.NOT:
		return true
	default:
		return false
	}
}

// parseConvert: `to`/`in`/`as` binds tighter than `* /` and `+ -` but looser
// than `^`, so it applies only to its immediately adjacent operand, not the
// whole sum or product: `2 * 1m to ft` is `2 * (1m to ft)`, and
// `2m + 1 to ft` is `2m + (1 to ft)`.
func (p *Parser) parseConvert() (ast.Node, error) {
	left, err := p.parseExponent()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.check(lexer.TO):
			op = "to"
		case p.check(lexer.IN):
			op = "in"
		case p.check(lexer.AS):
			op = "as"
		default:
			return left, nil
		}
		p.advance()
		target, err := p.parseConvertTarget()
		if err != nil {
			return nil, err
		}
		left = &ast.Convert{Operand: left, Op: op, Target: target}
	}
}

// parseConvertTarget reconstructs the textual unit/type expression following
// to/in/as: a bare type-name keyword, or a unit product/quotient like
// "m/s^2" or "km".
func (p *Parser) parseConvertTarget() (string, error) {
	if p.check(lexer.IDENT) && typeNames[strings.ToLower(p.peek().Text)] && !p.unitExprFollows(1) {
		tok := p.advance()
		return strings.ToLower(tok.Text), nil
	}
	var sb strings.Builder
	tok, err := p.expect(lexer.IDENT, "unit name")
	if err != nil {
		return "", err
	}
	sb.WriteString(tok.Text)
	for {
		switch {
		case p.check(lexer.CARET):
			p.advance()
			sign := ""
			if p.check(lexer.MINUS) {
				sign = "-"
				p.advance()
			}
			num, err := p.expect(lexer.NUMBER, "exponent")
			if err != nil {
				return "", err
			}
			sb.WriteString("^" + sign + num.Text)
		case p.check(lexer.STAR) && p.peekAhead(1).Type == lexer.IDENT:
			p.advance()
			sb.WriteString("*")
			t, _ := p.expect(lexer.IDENT, "unit name")
			sb.WriteString(t.Text)
		case p.check(lexer.SLASH) && p.peekAhead(1).Type == lexer.IDENT:
			p.advance()
			sb.WriteString("/")
			t, _ := p.expect(lexer.IDENT, "unit name")
			sb.WriteString(t.Text)
		default:
			return sb.String(), nil
		}
	}
}

// unitExprFollows reports whether the token `n` positions ahead continues a
// unit-product expression (used to tell "3 to m" [unit] from "3 to number"
// [type], when a type name and a unit name happen to collide).
func (p *Parser) unitExprFollows(n int) bool {
	t := p.peekAhead(n)
	return t.Type == lexer.CARET
}

// parseExponent: level 10, `^`/`**`, right-assoc.
func (p *Parser) parseExponent() (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.match(lexer.CARET) {
		right, err := p.parseExponent()
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: "^", Left: left, Right: right}, nil
	}
	return left, nil
}

// parseUnary: level 11, unary `+ - not`.
func (p *Parser) parseUnary() (ast.Node, error) {
	switch {
	case p.match(lexer.MINUS):
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: "-", Operand: operand}, nil
	case p.match(lexer.PLUS):
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: "+", Operand: operand}, nil
	case p.match(lexer.NOT):
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: "not", Operand: operand}, nil
	default:
		return p.parsePostfix()
	}
}

// parsePostfix: level 12, call/index/member/percent.
func (p *Parser) parsePostfix() (ast.Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.check(lexer.LPAREN):
			p.advance()
			args, err := p.parseArgList(lexer.RPAREN)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RPAREN, ")"); err != nil {
				return nil, err
			}
			expr = &ast.Call{Callee: expr, Args: args}
		case p.check(lexer.LBRACKET):
			p.advance()
			key, err := p.parsePipe()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACKET, "]"); err != nil {
				return nil, err
			}
			expr = &ast.Index{Collection: expr, Key: key}
		case p.check(lexer.DOT):
			p.advance()
			field, err := p.expect(lexer.IDENT, "field name")
			if err != nil {
				return nil, err
			}
			expr = &ast.Member{Object: expr, Field: field.Text}
		case p.check(lexer.PERCENT) && !p.startsOperand(p.peekAhead(1)):
			p.advance()
			expr = &ast.PercentOf{Operand: expr}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArgList(end lexer.TokenType) ([]ast.Node, error) {
	var args []ast.Node
	if p.check(end) {
		return args, nil
	}
	for {
		arg, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	return args, nil
}

// parsePrimary: level 13.
func (p *Parser) parsePrimary() (ast.Node, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.NUMBER:
		p.advance()
		return &ast.NumberLit{Text: tok.Text, Format: tok.NumberFormat}, nil
	case lexer.QUANTITY:
		p.advance()
		frags := make([]ast.UnitFragment, len(tok.Fragments))
		for i, f := range tok.Fragments {
			frags[i] = ast.UnitFragment{Text: f.NumberText, Unit: f.Unit}
		}
		return &ast.QuantityLit{Fragments: frags}, nil
	case lexer.STRING:
		p.advance()
		return &ast.StringLit{Value: tok.Text}, nil
	case lexer.TEMPLATE:
		p.advance()
		return p.parseTemplateRaw(tok.Raw)
	case lexer.BOOL:
		p.advance()
		return &ast.BoolLit{Value: tok.BoolValue}, nil
	case lexer.NULL:
		p.advance()
		return ast.NullLit{}, nil
	case lexer.DATE:
		p.advance()
		if tok.Year == 0 {
			return &ast.RelativeDateLit{Word: tok.Text, Timezone: tok.Timezone}, nil
		}
		return &ast.DateLit{Day: tok.Day, Month: tok.Month, Year: tok.Year, Timezone: tok.Timezone}, nil
	case lexer.DATETIME:
		p.advance()
		return &ast.DateLit{Day: tok.Day, Month: tok.Month, Year: tok.Year, HasTime: true, Hour: tok.Hour, Minute: tok.Minute, Timezone: tok.Timezone}, nil
	case lexer.TIME:
		p.advance()
		return &ast.TimeLit{Hour: tok.Hour, Minute: tok.Minute, Timezone: tok.Timezone}, nil
	case lexer.IDENT:
		return p.parseIdentOrLambda()
	case lexer.LPAREN:
		return p.parseParenOrLambda()
	case lexer.LBRACKET:
		return p.parseArrayLit()
	case lexer.LBRACE:
		return p.parseObjectLit()
	default:
		return nil, p.errorf("unexpected token %s", tok.Type)
	}
}

func (p *Parser) parseIdentOrLambda() (ast.Node, error) {
	tok := p.advance()
	if p.check(lexer.ARROW) {
		p.advance()
		if singleLetterUnitParams[tok.Text] {
			return nil, calcerr.New(calcerr.KindUnexpectedToken,
				"parameter name %q collides with a unit abbreviation; rename it", tok.Text)
		}
		body, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		return &ast.Lambda{Params: []string{tok.Text}, Body: body}, nil
	}
	return &ast.Ident{Name: tok.Text}, nil
}

// parseParenOrLambda disambiguates `(a, b) => expr` from `(expr)` by
// attempting the lambda-parameter-list parse first and backtracking.
func (p *Parser) parseParenOrLambda() (ast.Node, error) {
	save := p.pos
	p.advance() // (
	if params, ok := p.tryParseParamList(); ok {
		if err := validateParams(params); err != nil {
			return nil, err
		}
		body, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		return &ast.Lambda{Params: params, Body: body}, nil
	}
	p.pos = save
	p.advance() // (
	expr, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, ")"); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *Parser) tryParseParamList() (params []string, ok bool) {
	save := p.pos
	if p.check(lexer.RPAREN) {
		p.advance()
		if p.check(lexer.ARROW) {
			p.advance()
			return nil, true
		}
		p.pos = save
		return nil, false
	}
	for {
		if !p.check(lexer.IDENT) {
			p.pos = save
			return nil, false
		}
		params = append(params, p.advance().Text)
		if p.match(lexer.COMMA) {
			continue
		}
		break
	}
	if !p.check(lexer.RPAREN) {
		p.pos = save
		return nil, false
	}
	p.advance()
	if !p.check(lexer.ARROW) {
		p.pos = save
		return nil, false
	}
	p.advance()
	return params, true
}

func (p *Parser) parseArrayLit() (ast.Node, error) {
	p.advance() // [
	var items []ast.Node
	if !p.check(lexer.RBRACKET) {
		for {
			item, err := p.parsePipe()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(lexer.RBRACKET, "]"); err != nil {
		return nil, err
	}
	return &ast.ArrayLit{Items: items}, nil
}

func (p *Parser) parseObjectLit() (ast.Node, error) {
	p.advance() // {
	var keys []string
	var values []ast.Node
	if !p.check(lexer.RBRACE) {
		for {
			var key string
			switch {
			case p.check(lexer.IDENT):
				key = p.advance().Text
			case p.check(lexer.STRING):
				key = p.advance().Text
			default:
				return nil, p.errorf("expected object key, got %s", p.peek().Type)
			}
			if _, err := p.expect(lexer.COLON, ":"); err != nil {
				return nil, err
			}
			val, err := p.parsePipe()
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
			values = append(values, val)
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(lexer.RBRACE, "}"); err != nil {
		return nil, err
	}
	return &ast.ObjectLit{Keys: keys, Values: values}, nil
}

// parseTemplateRaw splits a backtick string's raw content on ${...}
// boundaries (brace-balanced) and recursively parses each expression
// segment.
func (p *Parser) parseTemplateRaw(raw string) (ast.Node, error) {
	var parts []ast.TemplatePart
	i := 0
	var literal strings.Builder
	for i < len(raw) {
		if raw[i] == '$' && i+1 < len(raw) && raw[i+1] == '{' {
			if literal.Len() > 0 {
				parts = append(parts, ast.TemplatePart{Literal: literal.String()})
				literal.Reset()
			}
			depth := 1
			j := i + 2
			for j < len(raw) && depth > 0 {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth > 0 {
					j++
				}
			}
			if depth != 0 {
				return nil, calcerr.New(calcerr.KindUnterminatedString, "unterminated ${...} in template")
			}
			exprSrc := raw[i+2 : j]
			exprNode, err := ParseExpr(exprSrc)
			if err != nil {
				return nil, err
			}
			parts = append(parts, ast.TemplatePart{Expr: exprNode})
			i = j + 1
			continue
		}
		literal.WriteByte(raw[i])
		i++
	}
	if literal.Len() > 0 {
		parts = append(parts, ast.TemplatePart{Literal: literal.String()})
	}
	return &ast.TemplateLit{Parts: parts}, nil
}
