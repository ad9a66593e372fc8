package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madappgang/metav/internal/metaverr"
	"github.com/madappgang/metav/internal/position"
)

func frame(name string, byteOff int) position.Stack {
	return position.Stack{{Kind: position.FrameFile, Name: name, Byte: byteOff, Line: 1, Column: byteOff + 1}}
}

func rng(name string, start, end int) position.Range {
	return position.Range{Start: frame(name, start), End: frame(name, end)}
}

func id(name string, start int) *Id {
	return NewId(rng("top.v", start, start+len(name)), name)
}

func TestNewModuleIndexesPortsAndParams(t *testing.T) {
	plan := NewEditPlan()
	nameId := id("top", 7)
	clk := NewPort(rng("top.v", 15, 18), plan, DirInput, false, nil, []*Id{id("clk", 15)}, true)
	out := NewPort(rng("top.v", 20, 30), plan, DirOutput, true, nil, []*Id{id("y", 29)}, true)

	widthAssign := NewAssign(rng("top.v", 40, 48), plan, id("WIDTH", 40), "=", NewNumber(rng("top.v", 48, 49), 0, 8, 0, 0, true, "8"), false, true)
	param := NewParameter(rng("top.v", 30, 49), plan, ParamRegular, nil, []*Assign{widthAssign})

	m := NewModule(rng("top.v", 0, 60), plan, nameId, PortStyleANSI, []*Port{clk, out}, []*Parameter{param})

	assert.Equal(t, "top", m.Name.Name)
	clkDecls := m.FindID("clk")
	require.Len(t, clkDecls, 1)
	assert.Equal(t, DeclPort, clkDecls[0].Kind)

	// output reg is double-indexed: once as a port, once as a reg.
	yDecls := m.FindID("y")
	require.Len(t, yDecls, 2)
	kinds := []DeclKind{yDecls[0].Kind, yDecls[1].Kind}
	assert.Contains(t, kinds, DeclPort)
	assert.Contains(t, kinds, DeclReg)
	assert.Same(t, out, yDecls[0].Node)

	widthDecls := m.FindID("WIDTH")
	require.Len(t, widthDecls, 1)
	assert.Equal(t, DeclParam, widthDecls[0].Kind)

	assert.Same(t, m, clk.Parent())
	assert.Same(t, m, nameId.Parent())
}

func TestAddItemIndexesWireRegGenvarFunctionInstMetav(t *testing.T) {
	plan := NewEditPlan()
	m := NewModule(rng("top.v", 0, 10), plan, id("top", 7), PortStyleANSI, nil, nil)

	wire := NewWire(rng("top.v", 10, 20), plan, nil, []Node{id("a", 15)})
	m.AddItem(wire)
	wireDecls := m.FindID("a")
	require.Len(t, wireDecls, 1)
	assert.Equal(t, DeclWire, wireDecls[0].Kind)
	assert.Same(t, m, wire.Parent())

	reg := NewReg(rng("top.v", 20, 30), plan, nil, []Node{id("b", 25)})
	m.AddItem(reg)
	regDecls := m.FindID("b")
	require.Len(t, regDecls, 1)
	assert.Equal(t, DeclReg, regDecls[0].Kind)

	mem := NewMemReg(rng("top.v", 30, 40), plan, id("mem", 30), NewRangeNode(rng("top.v", 34, 40), plan, NewNumber(rng("top.v", 35, 36), 0, 7, 0, 0, true, "7"), NewNumber(rng("top.v", 37, 38), 0, 0, 0, 0, true, "0")))
	memReg := NewReg(rng("top.v", 30, 40), plan, nil, []Node{mem})
	m.AddItem(memReg)
	memDecls := m.FindID("mem")
	require.Len(t, memDecls, 1)
	assert.Equal(t, DeclReg, memDecls[0].Kind)

	gv := NewGenvars(rng("top.v", 40, 50), plan, []*Id{id("i", 40)})
	m.AddItem(gv)
	gvDecls := m.FindID("i")
	require.Len(t, gvDecls, 1)
	assert.Equal(t, DeclGenvar, gvDecls[0].Kind)

	fn := NewFunction(rng("top.v", 50, 60), plan, id("f", 50), nil, nil, NewBlock(rng("top.v", 55, 60), plan, "", nil))
	m.AddItem(fn)
	fnDecls := m.FindID("f")
	require.Len(t, fnDecls, 1)
	assert.Equal(t, DeclFunction, fnDecls[0].Kind)

	inst := NewModuleInst(rng("top.v", 60, 70), plan, id("u0", 60), nil)
	insts := NewModuleInsts(rng("top.v", 60, 70), plan, id("sub", 60), nil, []*ModuleInst{inst})
	m.AddItem(insts)
	instDecls := m.FindID("u0")
	require.Len(t, instDecls, 1)
	assert.Equal(t, DeclInst, instDecls[0].Kind)
	found := m.FindInsts("sub")
	require.Len(t, found, 1)
	assert.Same(t, insts, found[0])

	mv := NewMetav(rng("top.v", 70, 80), "x = 1", "top")
	m.AddItem(mv)
	require.Len(t, m.MetavNodes, 1)
	assert.Same(t, mv, m.MetavNodes[0])
}

func TestDeleteChildUnlinksPortAndItem(t *testing.T) {
	plan := NewEditPlan()
	clk := NewPort(rng("top.v", 10, 13), plan, DirInput, false, nil, []*Id{id("clk", 10)}, true)
	m := NewModule(rng("top.v", 0, 20), plan, id("top", 7), PortStyleANSI, []*Port{clk}, nil)

	wire := NewWire(rng("top.v", 20, 30), plan, nil, []Node{id("a", 25)})
	m.AddItem(wire)

	require.NoError(t, clk.Delete())
	assert.Empty(t, m.Ports)
	assert.Empty(t, m.FindID("clk"))
	// the edit plan recorded a Remove for clk's range.
	require.Len(t, plan.Ops(), 1)

	require.NoError(t, wire.Delete())
	assert.Empty(t, m.Items)
	assert.Empty(t, m.FindID("a"))
}

func TestDeleteChildMetavUnlinksFromMetavNodes(t *testing.T) {
	plan := NewEditPlan()
	m := NewModule(rng("top.v", 0, 10), plan, id("top", 7), PortStyleANSI, nil, nil)
	mv := NewMetav(rng("top.v", 10, 20), "x = 1", "top")
	m.AddItem(mv)
	require.Len(t, m.MetavNodes, 1)

	require.NoError(t, mv.Delete())
	assert.Empty(t, m.MetavNodes)
	assert.Empty(t, m.Items)
}

func TestDeleteChildNotAChildReturnsError(t *testing.T) {
	plan := NewEditPlan()
	m := NewModule(rng("top.v", 0, 10), plan, id("top", 7), PortStyleANSI, nil, nil)
	foreign := NewWire(rng("top.v", 20, 30), plan, nil, []Node{id("z", 25)})

	err := m.DeleteChild(foreign)
	require.Error(t, err)
	me, ok := err.(*metaverr.MetavError)
	require.True(t, ok)
	assert.Equal(t, metaverr.KindNotAChild, me.Kind)
}

func TestAddPortReturnsNotImplemented(t *testing.T) {
	m := NewModule(rng("top.v", 0, 10), NewEditPlan(), id("top", 7), PortStyleANSI, nil, nil)
	p, err := m.AddPort("y", DirOutput)
	assert.Nil(t, p)
	require.Error(t, err)
	me, ok := err.(*metaverr.MetavError)
	require.True(t, ok)
	assert.Equal(t, metaverr.KindNotImplemented, me.Kind)
}

func TestAddGeneratedItemIndexesAndSchedulesInsertAtAppendPos(t *testing.T) {
	plan := NewEditPlan()
	m := NewModule(rng("top.v", 0, 10), plan, id("top", 7), PortStyleANSI, nil, nil)
	m.SetAppendPos(frame("top.v", 10))

	wire := NewWire(rng("top.v", 0, 0), nil, nil, []Node{NewId(rng("top.v", 0, 0), "z")})
	require.NoError(t, m.AddGeneratedItem(wire))

	// indexed exactly as AddItem would index it.
	require.Len(t, m.Items, 1)
	zDecls := m.FindID("z")
	require.Len(t, zDecls, 1)
	assert.Equal(t, DeclWire, zDecls[0].Kind)

	// and an Insert is scheduled at the module's append position.
	ops := plan.Ops()
	require.Len(t, ops, 1)
	insOp, ok := ops[0].(InsertOp)
	require.True(t, ok)
	assert.Equal(t, "wire z;", insOp.Payload)
	file, start, _, ok := FileSpan(insOp)
	require.True(t, ok)
	assert.Equal(t, "top.v", file)
	assert.Equal(t, 10, start)
}

func TestAddGeneratedItemWithoutEditPlanReturnsError(t *testing.T) {
	m := NewModule(rng("top.v", 0, 10), nil, id("top", 7), PortStyleANSI, nil, nil)
	m.SetAppendPos(frame("top.v", 10))

	wire := NewWire(rng("top.v", 0, 0), nil, nil, []Node{NewId(rng("top.v", 0, 0), "z")})
	err := m.AddGeneratedItem(wire)
	require.Error(t, err)
	me, ok := err.(*metaverr.MetavError)
	require.True(t, ok)
	assert.Equal(t, metaverr.KindNotImplemented, me.Kind)
	// the item is still indexed even though the insert couldn't be scheduled.
	require.Len(t, m.Items, 1)
}

func TestFindIDUnknownNameReturnsNil(t *testing.T) {
	m := NewModule(rng("top.v", 0, 10), NewEditPlan(), id("top", 7), PortStyleANSI, nil, nil)
	assert.Nil(t, m.FindID("nope"))
}
