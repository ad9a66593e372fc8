package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintLeafNodesUseOrigSpelling(t *testing.T) {
	n := NewNumber(rng("a.v", 0, 4), 8, 0xFF, 0, 0, false, "8'hFF")
	assert.Equal(t, "8'hFF", Print(n))

	s := NewStringLit(rng("a.v", 0, 5), "hi", "\"hi\"")
	assert.Equal(t, "\"hi\"", Print(s))

	assert.Equal(t, "x", Print(id("x", 0)))
}

func TestPrintBinaryUnaryTernary(t *testing.T) {
	plan := NewEditPlan()
	a := id("a", 0)
	b := id("b", 1)
	bop := NewBinaryOp(rng("f.v", 0, 5), plan, "&", a, b)
	assert.Equal(t, "(a & b)", Print(bop))

	uop := NewUnaryOp(rng("f.v", 0, 2), plan, "~", a)
	assert.Equal(t, "(~a)", Print(uop))

	tern := NewTernary(rng("f.v", 0, 9), plan, a, b, id("c", 2))
	assert.Equal(t, "(a ? b : c)", Print(tern))
}

func TestPrintWireAndReg(t *testing.T) {
	plan := NewEditPlan()
	r := NewRangeNode(rng("f.v", 0, 6), plan,
		NewNumber(rng("f.v", 1, 2), 0, 7, 0, 0, true, "7"),
		NewNumber(rng("f.v", 3, 4), 0, 0, 0, 0, true, "0"))
	w := NewWire(rng("f.v", 0, 20), plan, r, []Node{id("x", 10)})
	assert.Equal(t, "wire [7:0] x;", Print(w))

	reg := NewReg(rng("f.v", 0, 20), plan, nil, []Node{id("y", 10)})
	assert.Equal(t, "reg y;", Print(reg))
}

func TestPrintPortDirectionAndReg(t *testing.T) {
	plan := NewEditPlan()
	p := NewPort(rng("f.v", 0, 20), plan, DirOutput, true, nil, []*Id{id("q", 10)}, true)
	assert.Equal(t, "output reg q", Print(p))
}

func TestPrintPartSelectVariants(t *testing.T) {
	plan := NewEditPlan()
	base := id("bus", 0)
	single := NewPartSelectSingle(rng("f.v", 0, 6), plan, base, NewNumber(rng("f.v", 4, 5), 0, 2, 0, 0, true, "2"))
	assert.Equal(t, "bus[2]", Print(single))

	rangeSel := NewPartSelectRange(rng("f.v", 0, 9), plan, base,
		NewNumber(rng("f.v", 4, 5), 0, 7, 0, 0, true, "7"),
		NewNumber(rng("f.v", 6, 7), 0, 0, 0, 0, true, "0"))
	assert.Equal(t, "bus[7:0]", Print(rangeSel))

	plusSel := NewPartSelectPlus(rng("f.v", 0, 10), plan, base,
		NewNumber(rng("f.v", 4, 5), 0, 0, 0, 0, true, "0"),
		NewNumber(rng("f.v", 7, 8), 0, 4, 0, 0, true, "4"))
	assert.Equal(t, "bus[0+:4]", Print(plusSel))
}

func TestPrintIfElseAndModuleInst(t *testing.T) {
	plan := NewEditPlan()
	a := NewAssign(rng("f.v", 0, 10), plan, id("x", 0), "", id("y", 5), true, true)
	cond := id("c", 0)
	ifNode := NewIf(rng("f.v", 0, 30), plan, cond, a, nil)
	assert.Equal(t, "if (c) x = y;", Print(ifNode))

	conn := NewConnection(rng("f.v", 0, 10), plan, id("clk", 0), id("sysclk", 5))
	inst := NewModuleInst(rng("f.v", 0, 20), plan, id("u0", 0), []*Connection{conn})
	insts := NewModuleInsts(rng("f.v", 0, 30), plan, id("sub", 0), nil, []*ModuleInst{inst})
	assert.Equal(t, "sub u0(.clk(sysclk));", Print(insts))
}

func TestPrintMetavBlock(t *testing.T) {
	mv := NewMetav(rng("f.v", 0, 10), "x = 1", "top")
	assert.Equal(t, "/*metav\nx = 1\n*/", Print(mv))
}

func TestPrintModuleANSIHeader(t *testing.T) {
	plan := NewEditPlan()
	clk := NewPort(rng("f.v", 0, 10), plan, DirInput, false, nil, []*Id{id("clk", 0)}, true)
	m := NewModule(rng("f.v", 0, 40), plan, id("top", 0), PortStyleANSI, []*Port{clk}, nil)
	wire := NewWire(rng("f.v", 20, 30), plan, nil, []Node{id("x", 25)})
	m.AddItem(wire)

	assert.Equal(t, "module top(input clk);\nwire x;\nendmodule", Print(m))
}
