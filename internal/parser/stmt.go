package parser

import (
	"github.com/madappgang/metav/internal/ast"
	"github.com/madappgang/metav/internal/lexer"
)

// parseStatement parses one Verilog statement, covering every form
// parse.py's `statement` nonterminal has plus the spec's For/While/
// TaskCall extensions.
func (p *Parser) parseStatement() (ast.Node, error) {
	switch p.cur().Type {
	case lexer.BEGIN:
		return p.parseBlock()
	case lexer.IF:
		return p.parseIf()
	case lexer.AT:
		return p.parseAt()
	case lexer.CASE, lexer.CASEZ, lexer.CASEX:
		return p.parseCase()
	case lexer.FOR:
		return p.parseFor()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.SEMI:
		// empty statement
		t := p.advance()
		return ast.NewBlock(t.Range, p.plan, "", nil), nil
	case lexer.ID:
		return p.parseIdStatement()
	default:
		return nil, p.errf("unexpected token %s at start of statement", p.cur().Type)
	}
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	start := p.cur().Range.Start
	p.advance() // BEGIN
	name := ""
	if p.at(lexer.COLON) {
		p.advance()
		t, err := p.expect(lexer.ID)
		if err != nil {
			return nil, err
		}
		name = t.Value
	}
	var stmts []ast.Node
	for !p.at(lexer.END) {
		if p.at(lexer.EOF) {
			return nil, p.errf("unterminated begin block: missing end")
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	end := p.cur().Range.End
	p.advance() // END
	return ast.NewBlock(spanTo(start, end), p.plan, name, stmts), nil
}

func (p *Parser) parseIf() (*ast.If, error) {
	start := p.cur().Range.Start
	p.advance() // IF
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	t, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	end := t.Range().End
	var f ast.Node
	if p.at(lexer.ELSE) {
		p.advance()
		f, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
		end = f.Range().End
	}
	return ast.NewIf(spanTo(start, end), p.plan, cond, t, f), nil
}

func (p *Parser) parseAt() (*ast.At, error) {
	start := p.cur().Range.Start
	p.advance() // @
	if p.at(lexer.STAR) {
		p.advance()
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return ast.NewAt(spanTo(start, stmt.Range().End), p.plan, nil, stmt), nil
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	if p.at(lexer.STAR) {
		p.advance()
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return ast.NewAt(spanTo(start, stmt.Range().End), p.plan, nil, stmt), nil
	}
	sens, err := p.parseSensitivityList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return ast.NewAt(spanTo(start, stmt.Range().End), p.plan, sens, stmt), nil
}

func (p *Parser) parseSensitivityList() ([]ast.Node, error) {
	var out []ast.Node
	for {
		s, err := p.parseSensitivity()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		if !p.at(lexer.OR) {
			break
		}
		p.advance()
	}
	return out, nil
}

func (p *Parser) parseSensitivity() (ast.Node, error) {
	start := p.cur().Range.Start
	polarity := ""
	switch p.cur().Type {
	case lexer.POSEDGE:
		polarity = "posedge"
		p.advance()
	case lexer.NEGEDGE:
		polarity = "negedge"
		p.advance()
	}
	id, err := p.parseIdRef()
	if err != nil {
		return nil, err
	}
	if polarity == "" {
		return id, nil
	}
	return ast.NewEdge(spanTo(start, id.Range().End), p.plan, polarity, id), nil
}

func (p *Parser) parseCase() (*ast.Case, error) {
	start := p.cur().Range.Start
	caseType := p.cur().Type.String()
	p.advance()
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	var items []*ast.CaseItem
	for !p.at(lexer.ENDCASE) {
		if p.at(lexer.EOF) {
			return nil, p.errf("unterminated case: missing endcase")
		}
		it, err := p.parseCaseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	end := p.cur().Range.End
	p.advance() // ENDCASE
	return ast.NewCase(spanTo(start, end), p.plan, caseType, expr, items), nil
}

func (p *Parser) parseCaseItem() (*ast.CaseItem, error) {
	start := p.cur().Range.Start
	isDefault := false
	var exprs []ast.Node
	if p.at(lexer.DEFAULT) {
		isDefault = true
		p.advance()
	} else {
		var err error
		exprs, err = p.parseExpressionList()
		if err != nil {
			return nil, err
		}
	}
	if p.at(lexer.COLON) {
		p.advance()
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return ast.NewCaseItem(spanTo(start, stmt.Range().End), p.plan, exprs, isDefault, stmt), nil
}

func (p *Parser) parseFor() (*ast.For, error) {
	start := p.cur().Range.Start
	p.advance() // FOR
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	init, err := p.parseAssignStatement(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	step, err := p.parseAssignStatement(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return ast.NewFor(spanTo(start, body.Range().End), p.plan, init, cond, step, body), nil
}

func (p *Parser) parseWhile() (*ast.While, error) {
	start := p.cur().Range.Start
	p.advance() // WHILE
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return ast.NewWhile(spanTo(start, body.Range().End), p.plan, cond, body), nil
}

// parseIdStatement disambiguates a statement that starts with an
// identifier between a blocking/non-blocking assignment and a task call,
// by looking at what follows the identifier (and any part-select).
func (p *Parser) parseIdStatement() (ast.Node, error) {
	start := p.cur().Range.Start
	id, err := p.parseIdRef()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.LPAREN) {
		p.advance()
		var args []ast.Node
		if !p.at(lexer.RPAREN) {
			args, err = p.parseExpressionList()
			if err != nil {
				return nil, err
			}
		}
		end := p.cur().Range.End
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		if err := p.expectSemi(); err != nil {
			return nil, err
		}
		return ast.NewTaskCall(spanTo(start, end), p.plan, id, args), nil
	}

	var lval ast.Node = id
	if p.at(lexer.LBRACK) {
		lval, err = p.parsePartSelectTail(id)
		if err != nil {
			return nil, err
		}
	}
	blocking, op, err := p.parseAssignOp()
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expectSemi(); err != nil {
		return nil, err
	}
	return ast.NewAssign(spanTo(start, rhs.Range().End), p.plan, lval, op, rhs, true, blocking), nil
}

func (p *Parser) parseAssignOp() (blocking bool, op string, err error) {
	switch p.cur().Type {
	case lexer.EQ:
		p.advance()
		return true, "=", nil
	case lexer.LE:
		p.advance()
		return false, "<=", nil
	}
	return false, "", p.errf("expected = or <= in assignment, got %s", p.cur().Type)
}

// parseAssignStatement parses a bare "lval = expr" with no trailing
// semicolon, as used in for-loop init/step clauses.
func (p *Parser) parseAssignStatement(allowNonBlocking bool) (*ast.Assign, error) {
	lval, err := p.parseLValue()
	if err != nil {
		return nil, err
	}
	blocking, op, err := p.parseAssignOp()
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	return ast.NewAssign(spanTo(lval.Range().Start, rhs.Range().End), p.plan, lval, op, rhs, false, blocking), nil
}
