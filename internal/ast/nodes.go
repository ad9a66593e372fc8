package ast

import "github.com/madappgang/metav/internal/position"

// Direction is a port's signal direction.
type Direction int

const (
	DirInput Direction = iota
	DirOutput
	DirInout
)

func (d Direction) String() string {
	switch d {
	case DirInput:
		return "input"
	case DirOutput:
		return "output"
	case DirInout:
		return "inout"
	}
	return "?"
}

// ParamKind distinguishes parameter from localparam.
type ParamKind int

const (
	ParamRegular ParamKind = iota
	ParamLocal
)

// ---- leaf expression nodes ----------------------------------------------

// Id is an identifier reference or declaration occurrence.
type Id struct {
	base
	Name            string
	LeadingComment  string
	TrailingComment string
}

func NewId(rng position.Range, name string) *Id {
	n := &Id{Name: name}
	n.init(n, KindId, rng)
	return n
}

// Number is a decomposed Verilog numeric literal: size in bits, resolved
// value, per-bit x/z masks, and the original spelling (so a script that
// does not touch a literal reproduces it byte-for-byte via Orig).
type Number struct {
	base
	SizeBits int
	Value    uint64
	XMask    uint64
	ZMask    uint64
	Unsized  bool
	Orig     string
}

func NewNumber(rng position.Range, size int, value, xmask, zmask uint64, unsized bool, orig string) *Number {
	n := &Number{SizeBits: size, Value: value, XMask: xmask, ZMask: zmask, Unsized: unsized, Orig: orig}
	n.init(n, KindNumber, rng)
	return n
}

// String is a Verilog string literal.
type StringLit struct {
	base
	Value string // unescaped contents
	Orig  string // original spelling, including quotes
}

func NewStringLit(rng position.Range, value, orig string) *StringLit {
	n := &StringLit{Value: value, Orig: orig}
	n.init(n, KindString, rng)
	return n
}

// Real is a Verilog real-number literal.
type Real struct {
	base
	Value float64
	Orig  string
}

func NewReal(rng position.Range, value float64, orig string) *Real {
	n := &Real{Value: value, Orig: orig}
	n.init(n, KindReal, rng)
	return n
}

// ---- composite expressions -----------------------------------------------

type BinaryOp struct {
	base
	Op   string
	A, B Node
}

func NewBinaryOp(rng position.Range, plan *EditPlan, op string, a, b Node) *BinaryOp {
	n := &BinaryOp{Op: op, A: a, B: b}
	n.init(n, KindBinaryOp, rng)
	adopt(n, plan, a, b)
	return n
}

type UnaryOp struct {
	base
	Op   string
	Expr Node
}

func NewUnaryOp(rng position.Range, plan *EditPlan, op string, expr Node) *UnaryOp {
	n := &UnaryOp{Op: op, Expr: expr}
	n.init(n, KindUnaryOp, rng)
	adopt(n, plan, expr)
	return n
}

type Ternary struct {
	base
	Cond, True, False Node
}

func NewTernary(rng position.Range, plan *EditPlan, cond, t, f Node) *Ternary {
	n := &Ternary{Cond: cond, True: t, False: f}
	n.init(n, KindTernary, rng)
	adopt(n, plan, cond, t, f)
	return n
}

type Concatenation struct {
	base
	Exprs []Node
}

func NewConcatenation(rng position.Range, plan *EditPlan, exprs []Node) *Concatenation {
	n := &Concatenation{Exprs: exprs}
	n.init(n, KindConcatenation, rng)
	adopt(n, plan, exprs...)
	return n
}

type Repetition struct {
	base
	Repeat Node
	Concat *Concatenation
}

func NewRepetition(rng position.Range, plan *EditPlan, repeat Node, concat *Concatenation) *Repetition {
	n := &Repetition{Repeat: repeat, Concat: concat}
	n.init(n, KindRepetition, rng)
	adopt(n, plan, repeat, concat)
	return n
}

// PartSelect covers id[i] (single), id[m:l] (range) and id[l+:n] (plus).
type PartSelect struct {
	base
	Id         *Id
	SelectType string // "single", "range", "plus"
	Expr       Node   // single
	MSB, LSB   Node   // range
	Size       Node   // plus
}

func NewPartSelectSingle(rng position.Range, plan *EditPlan, id *Id, expr Node) *PartSelect {
	n := &PartSelect{Id: id, SelectType: "single", Expr: expr}
	n.init(n, KindPartSelect, rng)
	adopt(n, plan, id, expr)
	return n
}

func NewPartSelectRange(rng position.Range, plan *EditPlan, id *Id, msb, lsb Node) *PartSelect {
	n := &PartSelect{Id: id, SelectType: "range", MSB: msb, LSB: lsb}
	n.init(n, KindPartSelect, rng)
	adopt(n, plan, id, msb, lsb)
	return n
}

func NewPartSelectPlus(rng position.Range, plan *EditPlan, id *Id, lsb, size Node) *PartSelect {
	n := &PartSelect{Id: id, SelectType: "plus", LSB: lsb, Size: size}
	n.init(n, KindPartSelect, rng)
	adopt(n, plan, id, lsb, size)
	return n
}

// ---- declarations ----------------------------------------------------

// RangeNode is a [msb:lsb] bit-range.
type RangeNode struct {
	base
	MSB, LSB Node
}

func NewRangeNode(rng position.Range, plan *EditPlan, msb, lsb Node) *RangeNode {
	n := &RangeNode{MSB: msb, LSB: lsb}
	n.init(n, KindRange, rng)
	adopt(n, plan, msb, lsb)
	return n
}

// Port is an input/output/inout declaration, ANSI-header or module-item
// form (InPortlist distinguishes the two; see spec.md §4.4 port style).
type Port struct {
	base
	Direction  Direction
	IsReg      bool // output reg
	Range      *RangeNode
	Ids        []*Id
	InPortlist bool
}

func NewPort(rng position.Range, plan *EditPlan, dir Direction, isReg bool, rn *RangeNode, ids []*Id, inPortlist bool) *Port {
	n := &Port{Direction: dir, IsReg: isReg, Range: rn, Ids: ids, InPortlist: inPortlist}
	n.init(n, KindPort, rng)
	children := make([]Node, 0, len(ids)+1)
	if rn != nil {
		children = append(children, rn)
	}
	for _, id := range ids {
		children = append(children, id)
	}
	adopt(n, plan, children...)
	return n
}

// Append adds an id to a port declaration (non-ANSI "input a, b" style).
func (p *Port) Append(id *Id) {
	p.Ids = append(p.Ids, id)
	adopt(p, p.editPl, id)
	p.rng = p.rng.Extend(id.Range().End)
}

type Parameter struct {
	base
	Kind_   ParamKind
	Range   *RangeNode
	Assigns []*Assign
}

func NewParameter(rng position.Range, plan *EditPlan, kind ParamKind, rn *RangeNode, assigns []*Assign) *Parameter {
	n := &Parameter{Kind_: kind, Range: rn, Assigns: assigns}
	n.init(n, KindParameter, rng)
	children := make([]Node, 0, len(assigns)+1)
	if rn != nil {
		children = append(children, rn)
	}
	for _, a := range assigns {
		children = append(children, a)
	}
	adopt(n, plan, children...)
	return n
}

func (p *Parameter) Append(a *Assign) {
	p.Assigns = append(p.Assigns, a)
	adopt(p, p.editPl, a)
	p.rng = p.rng.Extend(a.Range().End)
}

type Wire struct {
	base
	Range        *RangeNode
	IdsOrAssigns []Node // *Id or *Assign
}

func NewWire(rng position.Range, plan *EditPlan, rn *RangeNode, idsOrAssigns []Node) *Wire {
	n := &Wire{Range: rn, IdsOrAssigns: idsOrAssigns}
	n.init(n, KindWire, rng)
	children := append([]Node{}, idsOrAssigns...)
	if rn != nil {
		children = append(children, rn)
	}
	adopt(n, plan, children...)
	return n
}

type MemReg struct {
	base
	Id    *Id
	Range *RangeNode
}

func NewMemReg(rng position.Range, plan *EditPlan, id *Id, rn *RangeNode) *MemReg {
	n := &MemReg{Id: id, Range: rn}
	n.init(n, KindMemReg, rng)
	adopt(n, plan, id, rn)
	return n
}

type Reg struct {
	base
	Range    *RangeNode
	IdsOrMem []Node // *Id or *MemReg
}

func NewReg(rng position.Range, plan *EditPlan, rn *RangeNode, idsOrMem []Node) *Reg {
	n := &Reg{Range: rn, IdsOrMem: idsOrMem}
	n.init(n, KindReg, rng)
	children := append([]Node{}, idsOrMem...)
	if rn != nil {
		children = append(children, rn)
	}
	adopt(n, plan, children...)
	return n
}

// ---- statements -----------------------------------------------------

type Assign struct {
	base
	Lval        Node
	Op          string
	Rval        Node
	IsStatement bool
	Blocking    bool // '=' vs '<='
}

func NewAssign(rng position.Range, plan *EditPlan, lval Node, op string, rval Node, isStatement, blocking bool) *Assign {
	n := &Assign{Lval: lval, Op: op, Rval: rval, IsStatement: isStatement, Blocking: blocking}
	n.init(n, KindAssign, rng)
	adopt(n, plan, lval, rval)
	return n
}

type Always struct {
	base
	Statement Node
}

func NewAlways(rng position.Range, plan *EditPlan, stmt Node) *Always {
	n := &Always{Statement: stmt}
	n.init(n, KindAlways, rng)
	adopt(n, plan, stmt)
	return n
}

type Edge struct {
	base
	Polarity string // "posedge", "negedge", or "" for a plain signal
	Signal   *Id
}

func NewEdge(rng position.Range, plan *EditPlan, polarity string, signal *Id) *Edge {
	n := &Edge{Polarity: polarity, Signal: signal}
	n.init(n, KindEdge, rng)
	adopt(n, plan, signal)
	return n
}

type At struct {
	base
	Sens      []Node // nil means @* / @(*)
	Statement Node
}

func NewAt(rng position.Range, plan *EditPlan, sens []Node, stmt Node) *At {
	n := &At{Sens: sens, Statement: stmt}
	n.init(n, KindAt, rng)
	children := append([]Node{}, sens...)
	children = append(children, stmt)
	adopt(n, plan, children...)
	return n
}

type If struct {
	base
	Cond        Node
	True, False Node
}

func NewIf(rng position.Range, plan *EditPlan, cond, t, f Node) *If {
	n := &If{Cond: cond, True: t, False: f}
	n.init(n, KindIf, rng)
	adopt(n, plan, cond, t, f)
	return n
}

type For struct {
	base
	Init *Assign
	Cond Node
	Step *Assign
	Body Node
}

func NewFor(rng position.Range, plan *EditPlan, init *Assign, cond Node, step *Assign, body Node) *For {
	n := &For{Init: init, Cond: cond, Step: step, Body: body}
	n.init(n, KindFor, rng)
	adopt(n, plan, init, cond, step, body)
	return n
}

type While struct {
	base
	Cond Node
	Body Node
}

func NewWhile(rng position.Range, plan *EditPlan, cond, body Node) *While {
	n := &While{Cond: cond, Body: body}
	n.init(n, KindWhile, rng)
	adopt(n, plan, cond, body)
	return n
}

type Block struct {
	base
	Name       string
	Statements []Node
}

func NewBlock(rng position.Range, plan *EditPlan, name string, stmts []Node) *Block {
	n := &Block{Name: name, Statements: stmts}
	n.init(n, KindBlock, rng)
	adopt(n, plan, stmts...)
	return n
}

type TaskCall struct {
	base
	Name *Id
	Args []Node
}

func NewTaskCall(rng position.Range, plan *EditPlan, name *Id, args []Node) *TaskCall {
	n := &TaskCall{Name: name, Args: args}
	n.init(n, KindTaskCall, rng)
	children := append([]Node{Node(name)}, args...)
	adopt(n, plan, children...)
	return n
}

type Case struct {
	base
	CaseType string // "case", "casez", "casex"
	Expr     Node
	Items    []*CaseItem
}

func NewCase(rng position.Range, plan *EditPlan, caseType string, expr Node, items []*CaseItem) *Case {
	n := &Case{CaseType: caseType, Expr: expr, Items: items}
	n.init(n, KindCase, rng)
	children := append([]Node{expr}, itemsToNodes(items)...)
	adopt(n, plan, children...)
	return n
}

func itemsToNodes(items []*CaseItem) []Node {
	out := make([]Node, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

type CaseItem struct {
	base
	Exprs     []Node
	IsDefault bool
	Statement Node
}

func NewCaseItem(rng position.Range, plan *EditPlan, exprs []Node, isDefault bool, stmt Node) *CaseItem {
	n := &CaseItem{Exprs: exprs, IsDefault: isDefault, Statement: stmt}
	n.init(n, KindCaseItem, rng)
	children := append([]Node{}, exprs...)
	children = append(children, stmt)
	adopt(n, plan, children...)
	return n
}

// ---- module instantiation ---------------------------------------------

type Connection struct {
	base
	Id   *Id
	Expr Node
}

func NewConnection(rng position.Range, plan *EditPlan, id *Id, expr Node) *Connection {
	n := &Connection{Id: id, Expr: expr}
	n.init(n, KindConnection, rng)
	adopt(n, plan, id, expr)
	return n
}

type ModuleInst struct {
	base
	InstName    *Id
	Connections []*Connection
}

func NewModuleInst(rng position.Range, plan *EditPlan, instName *Id, conns []*Connection) *ModuleInst {
	n := &ModuleInst{InstName: instName, Connections: conns}
	n.init(n, KindModuleInst, rng)
	children := append([]Node{Node(instName)}, connsToNodes(conns)...)
	adopt(n, plan, children...)
	return n
}

func connsToNodes(conns []*Connection) []Node {
	out := make([]Node, len(conns))
	for i, c := range conns {
		out[i] = c
	}
	return out
}

// ModuleInsts is one `module_name #(...) inst1(...), inst2(...);` item.
// Module holds the non-owning back-reference to the resolved child Module,
// filled in by the driver after it parses (or reuses) that module.
type ModuleInsts struct {
	base
	ModuleName     *Id
	ParamOverrides []*Connection
	Insts          []*ModuleInst
	ResolvedModule *Module
}

func NewModuleInsts(rng position.Range, plan *EditPlan, moduleName *Id, overrides []*Connection, insts []*ModuleInst) *ModuleInsts {
	n := &ModuleInsts{ModuleName: moduleName, ParamOverrides: overrides, Insts: insts}
	n.init(n, KindModuleInsts, rng)
	children := append([]Node{Node(moduleName)}, connsToNodes(overrides)...)
	for _, i := range insts {
		children = append(children, i)
	}
	adopt(n, plan, children...)
	return n
}

// ---- functions and generate constructs --------------------------------

type Function struct {
	base
	Name   *Id
	Range  *RangeNode // optional return range, e.g. function [7:0]
	Params []*Port
	Body   Node
}

func NewFunction(rng position.Range, plan *EditPlan, name *Id, rn *RangeNode, params []*Port, body Node) *Function {
	n := &Function{Name: name, Range: rn, Params: params, Body: body}
	n.init(n, KindFunction, rng)
	children := []Node{name}
	if rn != nil {
		children = append(children, rn)
	}
	for _, p := range params {
		children = append(children, p)
	}
	children = append(children, body)
	adopt(n, plan, children...)
	return n
}

type Genvars struct {
	base
	Ids []*Id
}

func NewGenvars(rng position.Range, plan *EditPlan, ids []*Id) *Genvars {
	n := &Genvars{Ids: ids}
	n.init(n, KindGenvars, rng)
	children := make([]Node, len(ids))
	for i, id := range ids {
		children[i] = id
	}
	adopt(n, plan, children...)
	return n
}

type Generate struct {
	base
	Items []Node
}

func NewGenerate(rng position.Range, plan *EditPlan, items []Node) *Generate {
	n := &Generate{Items: items}
	n.init(n, KindGenerate, rng)
	adopt(n, plan, items...)
	return n
}

type GenerateBlock struct {
	base
	Name  string
	Items []Node
}

func NewGenerateBlock(rng position.Range, plan *EditPlan, name string, items []Node) *GenerateBlock {
	n := &GenerateBlock{Name: name, Items: items}
	n.init(n, KindGenerateBlock, rng)
	adopt(n, plan, items...)
	return n
}

type GenerateIf struct {
	base
	Cond        Node
	True, False Node
}

func NewGenerateIf(rng position.Range, plan *EditPlan, cond, t, f Node) *GenerateIf {
	n := &GenerateIf{Cond: cond, True: t, False: f}
	n.init(n, KindGenerateIf, rng)
	adopt(n, plan, cond, t, f)
	return n
}

type GenerateFor struct {
	base
	Init *Assign
	Cond Node
	Step *Assign
	Body Node
}

func NewGenerateFor(rng position.Range, plan *EditPlan, init *Assign, cond Node, step *Assign, body Node) *GenerateFor {
	n := &GenerateFor{Init: init, Cond: cond, Step: step, Body: body}
	n.init(n, KindGenerateFor, rng)
	adopt(n, plan, init, cond, step, body)
	return n
}

type GenerateCaseItem struct {
	base
	Exprs     []Node
	IsDefault bool
	Body      Node
}

func NewGenerateCaseItem(rng position.Range, plan *EditPlan, exprs []Node, isDefault bool, body Node) *GenerateCaseItem {
	n := &GenerateCaseItem{Exprs: exprs, IsDefault: isDefault, Body: body}
	n.init(n, KindGenerateCaseItem, rng)
	children := append([]Node{}, exprs...)
	children = append(children, body)
	adopt(n, plan, children...)
	return n
}

type GenerateCase struct {
	base
	Expr  Node
	Items []*GenerateCaseItem
}

func NewGenerateCase(rng position.Range, plan *EditPlan, expr Node, items []*GenerateCaseItem) *GenerateCase {
	n := &GenerateCase{Expr: expr, Items: items}
	n.init(n, KindGenerateCase, rng)
	children := []Node{expr}
	for _, it := range items {
		children = append(children, it)
	}
	adopt(n, plan, children...)
	return n
}

// Metav is an embedded `/*metav ... */` script block, captured by the
// lexer with the source it wraps and the module it was found in.
type Metav struct {
	base
	Source     string
	ModuleName string
}

func NewMetav(rng position.Range, source, moduleName string) *Metav {
	n := &Metav{Source: source, ModuleName: moduleName}
	n.init(n, KindMetav, rng)
	return n
}
