// Package ast defines the tagged-variant Verilog syntax tree metav's parser
// builds: every node carries the exact (start, end) frame-stack range it was
// parsed from (spec.md §3) so that script-driven mutations can be replayed
// as byte-exact edits against the original source files.
package ast

import "github.com/madappgang/metav/internal/position"

// Kind tags each concrete node type, enabling the "visit by kind" pattern
// spec.md §9 calls for over a heterogeneous collection of AST variants.
type Kind int

const (
	KindModule Kind = iota
	KindPort
	KindRange
	KindParameter
	KindWire
	KindReg
	KindMemReg
	KindAlways
	KindEdge
	KindModuleInsts
	KindModuleInst
	KindConnection
	KindFunction
	KindCase
	KindCaseItem
	KindAssign
	KindAt
	KindIf
	KindFor
	KindWhile
	KindBlock
	KindTaskCall
	KindGenerate
	KindGenerateBlock
	KindGenerateIf
	KindGenerateFor
	KindGenerateCase
	KindGenerateCaseItem
	KindGenvars
	KindMetav
	KindId
	KindPartSelect
	KindBinaryOp
	KindUnaryOp
	KindTernary
	KindRepetition
	KindConcatenation
	KindNumber
	KindString
	KindReal
)

var kindNames = map[Kind]string{
	KindModule: "Module", KindPort: "Port", KindRange: "Range",
	KindParameter: "Parameter", KindWire: "Wire", KindReg: "Reg",
	KindMemReg: "MemReg", KindAlways: "Always", KindEdge: "Edge",
	KindModuleInsts: "ModuleInsts", KindModuleInst: "ModuleInst",
	KindConnection: "Connection", KindFunction: "Function", KindCase: "Case",
	KindCaseItem: "CaseItem", KindAssign: "Assign", KindAt: "At",
	KindIf: "If", KindFor: "For", KindWhile: "While", KindBlock: "Block",
	KindTaskCall: "TaskCall", KindGenerate: "Generate",
	KindGenerateBlock: "GenerateBlock", KindGenerateIf: "GenerateIf",
	KindGenerateFor: "GenerateFor", KindGenerateCase: "GenerateCase",
	KindGenerateCaseItem: "GenerateCaseItem", KindGenvars: "Genvars",
	KindMetav: "Metav", KindId: "Id", KindPartSelect: "PartSelect",
	KindBinaryOp: "BinaryOp", KindUnaryOp: "UnaryOp", KindTernary: "Ternary",
	KindRepetition: "Repetition", KindConcatenation: "Concatenation",
	KindNumber: "Number", KindString: "String", KindReal: "Real",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// Node is the common interface over every AST variant. parent is a
// non-owning back-reference (spec.md §3 lifecycle: nodes are owned
// exclusively by their parent; parent links are logical only).
type Node interface {
	Kind() Kind
	Range() position.Range
	Parent() Node
	// Delete removes the node from its parent (best-effort: full structural
	// unlinking is only implemented for a Module's direct items/ports/params,
	// see Module.DeleteChild) and appends a Remove edit over its range to the
	// owning edit plan.
	Delete() error
	// ExtendPos extends the node's recorded end position, used when trailing
	// punctuation (e.g. a closing `endmodule`) extends the semantic range.
	ExtendPos(end position.Stack)

	setParent(Node)
	plan() *EditPlan
	setPlan(*EditPlan)
}

// base is embedded in every concrete node and implements the common parts
// of the Node interface. self holds a back-reference to the embedding
// concrete value so that base's methods (Delete, in particular) dispatch
// against the real node identity rather than against *base.
type base struct {
	self   Node
	kind   Kind
	rng    position.Range
	parent Node
	editPl *EditPlan
}

func (b *base) init(self Node, kind Kind, rng position.Range) {
	b.self = self
	b.kind = kind
	b.rng = rng
}

func (b *base) Kind() Kind                 { return b.kind }
func (b *base) Range() position.Range      { return b.rng }
func (b *base) Parent() Node               { return b.parent }
func (b *base) setParent(p Node)           { b.parent = p }
func (b *base) ExtendPos(end position.Stack) { b.rng = b.rng.Extend(end) }
func (b *base) plan() *EditPlan            { return b.editPl }
func (b *base) setPlan(p *EditPlan)        { b.editPl = p }

// Delete appends a Remove edit for this node's range to the owning edit
// plan, and when the immediate parent is a *Module, also unlinks the node
// from the module's items/ports/params and rebuilds its id index.
func (b *base) Delete() error {
	if b.editPl != nil {
		b.editPl.Remove(b.rng)
	}
	if mod, ok := b.parent.(*Module); ok {
		return mod.DeleteChild(b.self)
	}
	return nil
}

// adopt attaches each non-nil child to its owning parent and propagates the
// shared edit plan down the tree; called by every constructor that takes
// child nodes.
func adopt(parent Node, plan *EditPlan, children ...Node) {
	for _, c := range children {
		if c == nil {
			continue
		}
		c.setParent(parent)
		c.setPlan(plan)
	}
}
