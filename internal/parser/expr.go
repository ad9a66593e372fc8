package parser

import (
	"github.com/madappgang/metav/internal/ast"
	"github.com/madappgang/metav/internal/lexer"
)

// binaryPrec mirrors parse.py's precedence table (lowest to highest):
// ternary, ||, &&, |, ^, &, equality, relational, shifts, additive,
// multiplicative, then unary binds tightest of all.
var binaryPrec = map[lexer.Type]int{
	lexer.PIPEPIPE: 1,
	lexer.AMPAMP:   2,
	lexer.PIPE:     3,
	lexer.CARET:    4,
	lexer.AMP:      5,
	lexer.EQEQ:     6, lexer.EQEQEQ: 6, lexer.NE: 6, lexer.NEE: 6,
	lexer.LT: 7, lexer.GT: 7, lexer.LE: 7, lexer.GE: 7,
	lexer.SHL: 8, lexer.SHR: 8,
	lexer.PLUS: 9, lexer.MINUS: 9,
	lexer.STAR: 10, lexer.SLASH: 10, lexer.PERCENT: 10,
}

// parseExpression parses a full expression including the ternary operator,
// the lowest-precedence construct in the grammar. minPrec is accepted for
// symmetry with parseBinary's recursive calls but is always 0 at the
// top level; ternary associates looser than every binary operator.
func (p *Parser) parseExpression(minPrec int) (ast.Node, error) {
	left, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if p.at(lexer.QUESTION) {
		start := left.Range().Start
		p.advance()
		t, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		f, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		return ast.NewTernary(spanTo(start, f.Range().End), p.plan, left, t, f), nil
	}
	return left, nil
}

func (p *Parser) parseBinary(minPrec int) (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec, ok := binaryPrec[p.cur().Type]
		if !ok || prec < minPrec {
			return left, nil
		}
		opTok := p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryOp(spanTo(left.Range().Start, right.Range().End), p.plan, opTok.Value, left, right)
	}
}

var unaryOps = map[lexer.Type]bool{
	lexer.BANG: true, lexer.TILDE: true, lexer.MINUS: true, lexer.PLUS: true,
	lexer.PIPE: true, lexer.AMP: true, lexer.CARET: true,
}

func (p *Parser) parseUnary() (ast.Node, error) {
	if unaryOps[p.cur().Type] {
		start := p.cur().Range.Start
		opTok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(spanTo(start, operand.Range().End), p.plan, opTok.Value, operand), nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	switch p.cur().Type {
	case lexer.NUMBER:
		t := p.advance()
		return ast.NumberFromText(t.Range, t.Value)
	case lexer.STRING:
		t := p.advance()
		return ast.StringFromText(t.Range, t.Value)
	case lexer.LPAREN:
		p.advance()
		e, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case lexer.LBRACE:
		return p.parseConcatenation()
	case lexer.ID:
		id, err := p.parseIdRef()
		if err != nil {
			return nil, err
		}
		if p.at(lexer.LBRACK) {
			return p.parsePartSelectTail(id)
		}
		return id, nil
	}
	return nil, p.errf("unexpected token %s in expression", p.cur().Type)
}

// parseConcatenation parses {expr, expr, ...} and, when the first element
// is itself followed directly by a nested {...}, the repetition form
// {count{expr, ...}}.
func (p *Parser) parseConcatenation() (ast.Node, error) {
	start := p.cur().Range.Start
	p.advance() // {
	first, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.at(lexer.LBRACE) {
		inner, err := p.parseConcatenation()
		if err != nil {
			return nil, err
		}
		end := p.cur().Range.End
		if _, err := p.expect(lexer.RBRACE); err != nil {
			return nil, err
		}
		return ast.NewRepetition(spanTo(start, end), p.plan, first, inner.(*ast.Concatenation)), nil
	}
	exprs := []ast.Node{first}
	for p.at(lexer.COMMA) {
		p.advance()
		e, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	end := p.cur().Range.End
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return ast.NewConcatenation(spanTo(start, end), p.plan, exprs), nil
}

// parsePartSelectTail parses the trailing [expr], [msb:lsb] or [lsb+:size]
// after an identifier has already been consumed.
func (p *Parser) parsePartSelectTail(id *ast.Id) (ast.Node, error) {
	start := id.Range().Start
	p.advance() // [
	first, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	switch p.cur().Type {
	case lexer.COLON:
		p.advance()
		lsb, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		end := p.cur().Range.End
		if _, err := p.expect(lexer.RBRACK); err != nil {
			return nil, err
		}
		return ast.NewPartSelectRange(spanTo(start, end), p.plan, id, first, lsb), nil
	case lexer.PLUSCOLON:
		p.advance()
		size, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		end := p.cur().Range.End
		if _, err := p.expect(lexer.RBRACK); err != nil {
			return nil, err
		}
		return ast.NewPartSelectPlus(spanTo(start, end), p.plan, id, first, size), nil
	default:
		end := p.cur().Range.End
		if _, err := p.expect(lexer.RBRACK); err != nil {
			return nil, err
		}
		return ast.NewPartSelectSingle(spanTo(start, end), p.plan, id, first), nil
	}
}

func (p *Parser) parseExpressionList() ([]ast.Node, error) {
	var out []ast.Node
	for {
		e, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if !p.at(lexer.COMMA) {
			break
		}
		p.advance()
	}
	return out, nil
}
