package parser

import (
	"github.com/madappgang/metav/internal/ast"
	"github.com/madappgang/metav/internal/lexer"
	"github.com/madappgang/metav/internal/position"
)

// parseModuleItem dispatches on the lookahead token to one of the
// module_item alternatives in parse.py's grammar, plus the spec's
// extensions (function, genvar, generate).
func (p *Parser) parseModuleItem(mod *ast.Module) (ast.Node, error) {
	switch p.cur().Type {
	case lexer.PARAMETER, lexer.LOCALPARAM:
		item, err := p.parseParameterDecl()
		if err != nil {
			return nil, err
		}
		return item, p.expectSemi()
	case lexer.INPUT, lexer.OUTPUT, lexer.INOUT:
		item, err := p.parsePortItem()
		if err != nil {
			return nil, err
		}
		return item, p.expectSemi()
	case lexer.WIRE:
		item, err := p.parseWireDecl()
		if err != nil {
			return nil, err
		}
		return item, p.expectSemi()
	case lexer.REG:
		item, err := p.parseRegDecl()
		if err != nil {
			return nil, err
		}
		return item, p.expectSemi()
	case lexer.GENVAR:
		item, err := p.parseGenvars()
		if err != nil {
			return nil, err
		}
		return item, p.expectSemi()
	case lexer.ASSIGN:
		item, err := p.parseContAssign()
		if err != nil {
			return nil, err
		}
		return item, p.expectSemi()
	case lexer.ALWAYS:
		return p.parseAlways()
	case lexer.FUNCTION:
		return p.parseFunction()
	case lexer.GENERATE:
		return p.parseGenerateRegion()
	case lexer.ID:
		// Could be a module instantiation or a task call statement; both
		// begin with an identifier. Module instantiation is the only form
		// legal directly as a module item.
		item, err := p.parseModuleInstantiation()
		if err != nil {
			return nil, err
		}
		return item, p.expectSemi()
	default:
		return nil, p.errf("unexpected token %s in module body", p.cur().Type)
	}
}

func (p *Parser) expectSemi() error {
	_, err := p.expect(lexer.SEMI)
	return err
}

func (p *Parser) parseParameterDecl() (*ast.Parameter, error) {
	start := p.cur().Range.Start
	kind := ast.ParamRegular
	if p.at(lexer.LOCALPARAM) {
		kind = ast.ParamLocal
	}
	p.advance()
	rn, err := p.parseRangeOpt()
	if err != nil {
		return nil, err
	}
	assigns, err := p.parseIDAssigns()
	if err != nil {
		return nil, err
	}
	return ast.NewParameter(spanTo(start, assigns[len(assigns)-1].Range().End), p.plan, kind, rn, assigns), nil
}

func (p *Parser) parsePortItem() (*ast.Port, error) {
	start := p.cur().Range.Start
	var dir ast.Direction
	isReg := false
	switch p.cur().Type {
	case lexer.INPUT:
		dir = ast.DirInput
	case lexer.OUTPUT:
		dir = ast.DirOutput
	case lexer.INOUT:
		dir = ast.DirInout
	}
	p.advance()
	if dir == ast.DirOutput && p.at(lexer.REG) {
		isReg = true
		p.advance()
	}
	rn, err := p.parseRangeOpt()
	if err != nil {
		return nil, err
	}
	ids, err := p.parseIdList()
	if err != nil {
		return nil, err
	}
	return ast.NewPort(spanTo(start, ids[len(ids)-1].Range().End), p.plan, dir, isReg, rn, ids, false), nil
}

func (p *Parser) parseWireDecl() (*ast.Wire, error) {
	start := p.cur().Range.Start
	p.advance() // WIRE
	rn, err := p.parseRangeOpt()
	if err != nil {
		return nil, err
	}
	items, end, err := p.parseIdsOrAssigns()
	if err != nil {
		return nil, err
	}
	return ast.NewWire(spanTo(start, end), p.plan, rn, items), nil
}

// parseIdsOrAssigns parses a comma list that may be plain ids or id=expr
// assigns (wire decls allow either form; parse.py splits this into two
// grammar alternatives, collapsed here by lookahead on '=').
func (p *Parser) parseIdsOrAssigns() ([]ast.Node, position.Stack, error) {
	var out []ast.Node
	var end position.Stack
	for {
		id, err := p.parseIdRef()
		if err != nil {
			return nil, nil, err
		}
		if p.at(lexer.EQ) {
			p.advance()
			val, err := p.parseExpression(0)
			if err != nil {
				return nil, nil, err
			}
			a := ast.NewAssign(spanTo(id.Range().Start, val.Range().End), p.plan, id, "=", val, false, true)
			out = append(out, a)
			end = val.Range().End
		} else {
			out = append(out, id)
			end = id.Range().End
		}
		if !p.at(lexer.COMMA) {
			break
		}
		p.advance()
	}
	return out, end, nil
}

func (p *Parser) parseRegDecl() (*ast.Reg, error) {
	start := p.cur().Range.Start
	p.advance() // REG
	rn, err := p.parseRangeOpt()
	if err != nil {
		return nil, err
	}
	var items []ast.Node
	var end position.Stack
	for {
		id, err := p.parseIdRef()
		if err != nil {
			return nil, err
		}
		memRange, err := p.parseRangeOpt()
		if err != nil {
			return nil, err
		}
		if memRange != nil {
			mr := ast.NewMemReg(spanTo(id.Range().Start, memRange.Range().End), p.plan, id, memRange)
			items = append(items, mr)
			end = mr.Range().End
		} else {
			items = append(items, id)
			end = id.Range().End
		}
		if !p.at(lexer.COMMA) {
			break
		}
		p.advance()
	}
	return ast.NewReg(spanTo(start, end), p.plan, rn, items), nil
}

func (p *Parser) parseGenvars() (*ast.Genvars, error) {
	start := p.cur().Range.Start
	p.advance() // GENVAR
	ids, err := p.parseIdList()
	if err != nil {
		return nil, err
	}
	return ast.NewGenvars(spanTo(start, ids[len(ids)-1].Range().End), p.plan, ids), nil
}

func (p *Parser) parseContAssign() (*ast.Wire, error) {
	// Modeled as module-item "assign a = b, c = d;": represented as an
	// *ast.Wire with no bit-width RangeNode whose IdsOrAssigns holds the Assign nodes
	// directly, so each assign keeps its own range.
	start := p.cur().Range.Start
	p.advance() // ASSIGN
	var items []ast.Node
	var end position.Stack
	for {
		lval, err := p.parseLValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EQ); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		a := ast.NewAssign(spanTo(lval.Range().Start, rhs.Range().End), p.plan, lval, "=", rhs, false, true)
		items = append(items, a)
		end = a.Range().End
		if !p.at(lexer.COMMA) {
			break
		}
		p.advance()
	}
	return ast.NewWire(spanTo(start, end), p.plan, nil, items), nil
}

func (p *Parser) parseLValue() (ast.Node, error) {
	if p.at(lexer.LBRACE) {
		return p.parseConcatenation()
	}
	id, err := p.parseIdRef()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.LBRACK) {
		return p.parsePartSelectTail(id)
	}
	return id, nil
}

func (p *Parser) parseAlways() (*ast.Always, error) {
	start := p.cur().Range.Start
	p.advance() // ALWAYS
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return ast.NewAlways(spanTo(start, stmt.Range().End), p.plan, stmt), nil
}

func (p *Parser) parseFunction() (*ast.Function, error) {
	start := p.cur().Range.Start
	p.advance() // FUNCTION
	rn, err := p.parseRangeOpt()
	if err != nil {
		return nil, err
	}
	name, err := p.parseIdRef()
	if err != nil {
		return nil, err
	}
	var params []*ast.Port
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	if !p.at(lexer.RPAREN) {
		params, err = p.parsePortDeclList()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	end := p.cur().Range.End
	if _, err := p.expect(lexer.ENDFUNCTION); err != nil {
		return nil, err
	}
	return ast.NewFunction(spanTo(start, end), p.plan, name, rn, params, body), nil
}

func (p *Parser) parseModuleInstantiation() (*ast.ModuleInsts, error) {
	start := p.cur().Range.Start
	name, err := p.parseIdRef()
	if err != nil {
		return nil, err
	}
	var overrides []*ast.Connection
	if p.at(lexer.HASH) {
		p.advance()
		if _, err := p.expect(lexer.LPAREN); err != nil {
			return nil, err
		}
		overrides, err = p.parseConnections()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}
	var insts []*ast.ModuleInst
	var end position.Stack
	for {
		inst, err := p.parseOneInstantiation()
		if err != nil {
			return nil, err
		}
		insts = append(insts, inst)
		end = inst.Range().End
		if !p.at(lexer.COMMA) {
			break
		}
		p.advance()
	}
	return ast.NewModuleInsts(spanTo(start, end), p.plan, name, overrides, insts), nil
}

func (p *Parser) parseOneInstantiation() (*ast.ModuleInst, error) {
	instName, err := p.parseIdRef()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var conns []*ast.Connection
	if !p.at(lexer.RPAREN) {
		conns, err = p.parseConnections()
		if err != nil {
			return nil, err
		}
	}
	end := p.cur().Range.End
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return ast.NewModuleInst(spanTo(instName.Range().Start, end), p.plan, instName, conns), nil
}

func (p *Parser) parseConnections() ([]*ast.Connection, error) {
	var out []*ast.Connection
	for {
		c, err := p.parseConnection()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		if !p.at(lexer.COMMA) {
			break
		}
		p.advance()
	}
	return out, nil
}

func (p *Parser) parseConnection() (*ast.Connection, error) {
	start := p.cur().Range.Start
	if _, err := p.expect(lexer.DOT); err != nil {
		return nil, err
	}
	id, err := p.parseIdRef()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var expr ast.Node
	if !p.at(lexer.RPAREN) {
		expr, err = p.parseExpression(0)
		if err != nil {
			return nil, err
		}
	}
	end := p.cur().Range.End
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return ast.NewConnection(spanTo(start, end), p.plan, id, expr), nil
}

func (p *Parser) parseGenerateRegion() (*ast.Generate, error) {
	start := p.cur().Range.Start
	p.advance() // GENERATE
	var items []ast.Node
	for !p.at(lexer.ENDGENERATE) {
		if p.at(lexer.EOF) {
			return nil, p.errf("unterminated generate region: missing endgenerate")
		}
		item, err := p.parseGenerateItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	end := p.cur().Range.End
	p.advance() // ENDGENERATE
	return ast.NewGenerate(spanTo(start, end), p.plan, items), nil
}

func (p *Parser) parseGenerateItem() (ast.Node, error) {
	switch p.cur().Type {
	case lexer.IF:
		return p.parseGenerateIf()
	case lexer.FOR:
		return p.parseGenerateFor()
	case lexer.CASE:
		return p.parseGenerateCase()
	case lexer.BEGIN:
		return p.parseGenerateBlock()
	case lexer.GENVAR:
		item, err := p.parseGenvars()
		if err != nil {
			return nil, err
		}
		return item, p.expectSemi()
	default:
		mod := (*ast.Module)(nil)
		return p.parseModuleItem(mod)
	}
}

func (p *Parser) parseGenerateBlock() (*ast.GenerateBlock, error) {
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
	var items []ast.Node
	for !p.at(lexer.END) {
		if p.at(lexer.EOF) {
			return nil, p.errf("unterminated generate block: missing end")
		}
		item, err := p.parseGenerateItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	end := p.cur().Range.End
	p.advance() // END
	return ast.NewGenerateBlock(spanTo(start, end), p.plan, name, items), nil
}

func (p *Parser) parseGenerateIf() (*ast.GenerateIf, error) {
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
	t, err := p.parseGenerateItem()
	if err != nil {
		return nil, err
	}
	var f ast.Node
	end := t.Range().End
	if p.at(lexer.ELSE) {
		p.advance()
		f, err = p.parseGenerateItem()
		if err != nil {
			return nil, err
		}
		end = f.Range().End
	}
	return ast.NewGenerateIf(spanTo(start, end), p.plan, cond, t, f), nil
}

func (p *Parser) parseGenerateFor() (*ast.GenerateFor, error) {
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
	body, err := p.parseGenerateItem()
	if err != nil {
		return nil, err
	}
	return ast.NewGenerateFor(spanTo(start, body.Range().End), p.plan, init, cond, step, body), nil
}

func (p *Parser) parseGenerateCase() (*ast.GenerateCase, error) {
	start := p.cur().Range.Start
	p.advance() // CASE
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
	var items []*ast.GenerateCaseItem
	for !p.at(lexer.ENDCASE) {
		it, err := p.parseGenerateCaseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	end := p.cur().Range.End
	p.advance() // ENDCASE
	return ast.NewGenerateCase(spanTo(start, end), p.plan, expr, items), nil
}

func (p *Parser) parseGenerateCaseItem() (*ast.GenerateCaseItem, error) {
	start := p.cur().Range.Start
	var exprs []ast.Node
	isDefault := false
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
	body, err := p.parseGenerateItem()
	if err != nil {
		return nil, err
	}
	return ast.NewGenerateCaseItem(spanTo(start, body.Range().End), p.plan, exprs, isDefault, body), nil
}
