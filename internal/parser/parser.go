// Package parser builds the metav AST (internal/ast) from a lexer.Token
// stream by recursive descent with precedence climbing for expressions,
// following the grammar in original_source/metav/parse.py (a ply.yacc
// LALR grammar) while extending it with the constructs spec.md adds on
// top of the original: Function, TaskCall, For, While, Generate*, Genvars.
package parser

import (
	"github.com/madappgang/metav/internal/ast"
	"github.com/madappgang/metav/internal/lexer"
	"github.com/madappgang/metav/internal/metaverr"
	"github.com/madappgang/metav/internal/position"
)

// Parser consumes a flat token slice (already anchor-resolved by
// internal/lexer) and produces every top-level module it finds, each one
// sharing the single edit plan passed in by the driver.
type Parser struct {
	toks []lexer.Token
	i    int
	plan *ast.EditPlan
}

// New creates a parser over toks, whose edits (if any are later recorded
// against nodes it builds) are appended to plan.
func New(toks []lexer.Token, plan *ast.EditPlan) *Parser {
	return &Parser{toks: toks, plan: plan}
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.i] }
func (p *Parser) at(t lexer.Type) bool { return p.cur().Type == t }

func (p *Parser) advance() lexer.Token {
	t := p.toks[p.i]
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

func (p *Parser) expect(t lexer.Type) (lexer.Token, error) {
	if !p.at(t) {
		return lexer.Token{}, p.errf("expected %s, got %s %q", t, p.cur().Type, p.cur().Value)
	}
	return p.advance(), nil
}

func (p *Parser) errf(format string, args ...interface{}) error {
	return metaverr.New(metaverr.KindParseError, p.cur().Range.Start, format, args...)
}

// ParseSource parses every module in the token stream, in source order.
func (p *Parser) ParseSource() ([]*ast.Module, error) {
	var mods []*ast.Module
	for !p.at(lexer.EOF) {
		m, err := p.parseModule()
		if err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, nil
}

func (p *Parser) parseModule() (*ast.Module, error) {
	start := p.cur().Range.Start
	if _, err := p.expect(lexer.MODULE); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.ID)
	if err != nil {
		return nil, err
	}
	name := ast.NewId(nameTok.Range, nameTok.Value)

	var params []*ast.Parameter
	if p.at(lexer.HASH) {
		p.advance()
		if _, err := p.expect(lexer.LPAREN); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.PARAMETER); err != nil {
			return nil, err
		}
		assigns, err := p.parseIDAssigns()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.NewParameter(assigns[0].Range(), p.plan, ast.ParamRegular, nil, assigns))
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}

	style := ast.PortStyleNonANSI
	var ports []*ast.Port
	if p.at(lexer.LPAREN) {
		p.advance()
		style = ast.PortStyleANSI
		if !p.at(lexer.RPAREN) {
			ports, err = p.parsePortDeclList()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}

	mod := ast.NewModule(position.Range{Start: start, End: start}, p.plan, name, style, ports, params)

	for !p.at(lexer.ENDMODULE) {
		if p.at(lexer.EOF) {
			return nil, p.errf("unterminated module %s: missing endmodule", name.Name)
		}
		item, err := p.parseModuleItem(mod)
		if err != nil {
			return nil, err
		}
		if item != nil {
			mod.AddItem(item)
		}
	}
	mod.SetAppendPos(p.cur().Range.Start)
	end := p.cur().Range.End
	p.advance() // ENDMODULE
	mod.ExtendPos(end)
	return mod, nil
}

// parsePortDeclList parses the ANSI port-header list: either a plain
// identifier list (non-ANSI-style names inside an otherwise ANSI header,
// rare but legal) or full input/output/inout declarations.
func (p *Parser) parsePortDeclList() ([]*ast.Port, error) {
	var ports []*ast.Port
	for {
		if p.at(lexer.ID) && len(ports) > 0 {
			// A bare identifier continues the previous port's id list.
			id, err := p.parseIdRef()
			if err != nil {
				return nil, err
			}
			ports[len(ports)-1].Append(id)
		} else {
			port, err := p.parsePortDecl()
			if err != nil {
				return nil, err
			}
			ports = append(ports, port)
		}
		if !p.at(lexer.COMMA) {
			break
		}
		p.advance()
	}
	return ports, nil
}

func (p *Parser) parsePortDecl() (*ast.Port, error) {
	start := p.cur().Range.Start
	switch p.cur().Type {
	case lexer.INPUT:
		p.advance()
		rn, err := p.parseRangeOpt()
		if err != nil {
			return nil, err
		}
		id, err := p.parseIdRef()
		if err != nil {
			return nil, err
		}
		return ast.NewPort(spanTo(start, id.Range().End), p.plan, ast.DirInput, false, rn, []*ast.Id{id}, true), nil
	case lexer.OUTPUT:
		p.advance()
		isReg := false
		if p.at(lexer.REG) {
			isReg = true
			p.advance()
		}
		rn, err := p.parseRangeOpt()
		if err != nil {
			return nil, err
		}
		id, err := p.parseIdRef()
		if err != nil {
			return nil, err
		}
		return ast.NewPort(spanTo(start, id.Range().End), p.plan, ast.DirOutput, isReg, rn, []*ast.Id{id}, true), nil
	case lexer.INOUT:
		p.advance()
		rn, err := p.parseRangeOpt()
		if err != nil {
			return nil, err
		}
		id, err := p.parseIdRef()
		if err != nil {
			return nil, err
		}
		return ast.NewPort(spanTo(start, id.Range().End), p.plan, ast.DirInout, false, rn, []*ast.Id{id}, true), nil
	case lexer.ID:
		// A bare identifier at the head of the list becomes an input port.
		id, err := p.parseIdRef()
		if err != nil {
			return nil, err
		}
		return ast.NewPort(id.Range(), p.plan, ast.DirInput, false, nil, []*ast.Id{id}, true), nil
	}
	return nil, p.errf("expected a port declaration, got %s", p.cur().Type)
}

func (p *Parser) parseIdRef() (*ast.Id, error) {
	t, err := p.expect(lexer.ID)
	if err != nil {
		return nil, err
	}
	return ast.NewId(t.Range, t.Value), nil
}

func (p *Parser) parseRangeOpt() (*ast.RangeNode, error) {
	if !p.at(lexer.LBRACK) {
		return nil, nil
	}
	return p.parseRange()
}

func (p *Parser) parseRange() (*ast.RangeNode, error) {
	start := p.cur().Range.Start
	p.advance() // [
	msb, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COLON); err != nil {
		return nil, err
	}
	lsb, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	end := p.cur().Range.End
	if _, err := p.expect(lexer.RBRACK); err != nil {
		return nil, err
	}
	return ast.NewRangeNode(spanTo(start, end), p.plan, msb, lsb), nil
}

func (p *Parser) parseIDAssigns() ([]*ast.Assign, error) {
	var out []*ast.Assign
	for {
		id, err := p.parseIdRef()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EQ); err != nil {
			return nil, err
		}
		val, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		out = append(out, ast.NewAssign(spanTo(id.Range().Start, val.Range().End), p.plan, id, "=", val, false, true))
		if !p.at(lexer.COMMA) {
			break
		}
		p.advance()
	}
	return out, nil
}

func (p *Parser) parseIdList() ([]*ast.Id, error) {
	var out []*ast.Id
	for {
		id, err := p.parseIdRef()
		if err != nil {
			return nil, err
		}
		out = append(out, id)
		if !p.at(lexer.COMMA) {
			break
		}
		p.advance()
	}
	return out, nil
}

func spanTo(start, end position.Stack) position.Range {
	return position.Range{Start: start, End: end}
}
