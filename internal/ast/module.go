package ast

import (
	"fmt"

	"github.com/madappgang/metav/internal/position"
	"github.com/madappgang/metav/internal/metaverr"
)

// DeclKind distinguishes the different things a Module.ids entry can name.
type DeclKind int

const (
	DeclPort DeclKind = iota
	DeclParam
	DeclWire
	DeclReg
	DeclGenvar
	DeclFunction
	DeclInst
)

func (k DeclKind) String() string {
	switch k {
	case DeclPort:
		return "port"
	case DeclParam:
		return "param"
	case DeclWire:
		return "wire"
	case DeclReg:
		return "reg"
	case DeclGenvar:
		return "genvar"
	case DeclFunction:
		return "function"
	case DeclInst:
		return "inst"
	}
	return "?"
}

// Decl is one entry in a Module's identifier index: the declaring kind
// plus a pointer back to the owning AST node (a *Port, *Wire, *Reg, ...).
// An output reg port is double-indexed: once as DeclPort (the port
// declaration) and once as DeclReg (the synthesized storage element),
// both entries pointing at the same *Port node (spec.md §3).
type Decl struct {
	Name string
	Kind DeclKind
	Node Node
}

// Module is the root and sole owner of the transitive AST under it: every
// node reachable from a Module is only ever deleted by unlinking it from
// the Module's item slices (spec.md §3 node-ownership invariant).
type Module struct {
	base

	Name       *Id
	PortStyle  PortStyleKind
	Ports      []*Port
	Params     []*Parameter
	Items      []Node // wires/regs/assigns/always/instances/functions/generate/metav, in source order
	MetavNodes []*Metav

	ids       map[string][]*Decl
	appendPos position.Stack // position immediately before endmodule
}

// PortStyleKind records whether a module used the ANSI (ports declared in
// the header) or non-ANSI (ports redeclared as module items) form, since
// scripts that add ports must match the module's existing style
// (spec.md §4.4).
type PortStyleKind int

const (
	PortStyleANSI PortStyleKind = iota
	PortStyleNonANSI
)

// NewModule constructs an (initially empty) module and indexes any ports
// and params passed in; Items are expected to be appended afterward via
// AddItem as the parser walks the module body, matching source order.
func NewModule(rng position.Range, plan *EditPlan, name *Id, style PortStyleKind, ports []*Port, params []*Parameter) *Module {
	m := &Module{Name: name, PortStyle: style, Ports: ports, Params: params, ids: map[string][]*Decl{}}
	m.init(m, KindModule, rng)
	m.editPl = plan
	children := []Node{Node(name)}
	for _, p := range ports {
		children = append(children, p)
	}
	for _, p := range params {
		children = append(children, p)
	}
	adopt(m, plan, children...)

	for _, p := range ports {
		m.indexPort(p)
	}
	for _, param := range params {
		m.indexParam(param)
	}
	return m
}

func (m *Module) indexPort(p *Port) {
	for _, id := range p.Ids {
		m.addDecl(&Decl{Name: id.Name, Kind: DeclPort, Node: p})
		if p.Direction == DirOutput && p.IsReg {
			m.addDecl(&Decl{Name: id.Name, Kind: DeclReg, Node: p})
		}
	}
}

func (m *Module) indexParam(p *Parameter) {
	for _, a := range p.Assigns {
		if id, ok := a.Lval.(*Id); ok {
			m.addDecl(&Decl{Name: id.Name, Kind: DeclParam, Node: p})
		}
	}
}

func (m *Module) addDecl(d *Decl) {
	m.ids[d.Name] = append(m.ids[d.Name], d)
}

// AddItem appends a module-body item (wire, reg, always, instance,
// function, generate, metav, ...) to the module in source order and
// extends the indexing as needed.
func (m *Module) AddItem(item Node) {
	m.Items = append(m.Items, item)
	adopt(m, m.editPl, item)

	switch n := item.(type) {
	case *Wire:
		for _, x := range n.IdsOrAssigns {
			if id, ok := x.(*Id); ok {
				m.addDecl(&Decl{Name: id.Name, Kind: DeclWire, Node: n})
			}
			if a, ok := x.(*Assign); ok {
				if id, ok := a.Lval.(*Id); ok {
					m.addDecl(&Decl{Name: id.Name, Kind: DeclWire, Node: n})
				}
			}
		}
	case *Reg:
		for _, x := range n.IdsOrMem {
			switch v := x.(type) {
			case *Id:
				m.addDecl(&Decl{Name: v.Name, Kind: DeclReg, Node: n})
			case *MemReg:
				m.addDecl(&Decl{Name: v.Id.Name, Kind: DeclReg, Node: n})
			}
		}
	case *Genvars:
		for _, id := range n.Ids {
			m.addDecl(&Decl{Name: id.Name, Kind: DeclGenvar, Node: n})
		}
	case *Function:
		m.addDecl(&Decl{Name: n.Name.Name, Kind: DeclFunction, Node: n})
	case *ModuleInsts:
		for _, inst := range n.Insts {
			m.addDecl(&Decl{Name: inst.InstName.Name, Kind: DeclInst, Node: n})
		}
	case *Metav:
		m.MetavNodes = append(m.MetavNodes, n)
	}
}

// SetAppendPos records the position immediately before endmodule, so that
// a later AddGeneratedItem knows where to splice newly added items. The
// parser calls this once, after parsing the last module item.
func (m *Module) SetAppendPos(pos position.Stack) {
	m.appendPos = pos
}

// AddGeneratedItem appends item to the module exactly as AddItem does
// (indexing it into Items/MetavNodes/ids) and additionally schedules its
// printed form to be spliced in just before endmodule via the module's
// edit plan, wrapped in a /*metav_generated:*/ sentinel by the rewrite
// executor. This is the entry point a script's add_item operation uses
// (spec.md §4.5, §8 scenario 3); AddItem itself stays side-effect-free
// against the edit plan so the parser can use it to populate a module
// from its original source without generating spurious inserts.
func (m *Module) AddGeneratedItem(item Node) error {
	m.AddItem(item)
	if m.editPl == nil {
		return metaverr.New(metaverr.KindNotImplemented, position.Stack{}, "module %s has no edit plan to insert into", m.Name.Name)
	}
	m.editPl.InsertNode(m.appendPos, item)
	return nil
}

// AddPort is left unimplemented: synthesizing a new ANSI or non-ANSI port
// declaration that round-trips byte-exactly through both port styles is
// an open design question original_source never had to answer (it only
// ever consumes existing ports). Scripts that need new ports should
// insert raw text via EditPlan.InsertRaw instead.
func (m *Module) AddPort(name string, dir Direction) (*Port, error) {
	return nil, metaverr.New(metaverr.KindNotImplemented, position.Stack{}, "AddPort is not implemented for module %s", m.Name.Name)
}

// FindID returns every Decl recorded under name, in declaration order.
func (m *Module) FindID(name string) []*Decl {
	return m.ids[name]
}

// FindInsts returns every ModuleInsts item whose module name matches
// name.
func (m *Module) FindInsts(name string) []*ModuleInsts {
	var out []*ModuleInsts
	for _, item := range m.Items {
		if mi, ok := item.(*ModuleInsts); ok && mi.ModuleName.Name == name {
			out = append(out, mi)
		}
	}
	return out
}

// DeleteChild unlinks child from whichever of Ports/Params/Items holds it
// and removes its entries from the id index. It returns a NotAChild error
// if child is not a direct member of this module, matching spec.md §4.5's
// "a node may only be deleted through its actual owner" invariant.
func (m *Module) DeleteChild(child Node) error {
	switch c := child.(type) {
	case *Port:
		for i, p := range m.Ports {
			if p == c {
				m.Ports = append(m.Ports[:i], m.Ports[i+1:]...)
				m.removeDeclsForNode(c)
				return nil
			}
		}
	case *Parameter:
		for i, p := range m.Params {
			if p == c {
				m.Params = append(m.Params[:i], m.Params[i+1:]...)
				m.removeDeclsForNode(c)
				return nil
			}
		}
	default:
		for i, item := range m.Items {
			if item == child {
				m.Items = append(m.Items[:i], m.Items[i+1:]...)
				m.removeDeclsForNode(child)
				if mv, ok := child.(*Metav); ok {
					m.removeMetav(mv)
				}
				return nil
			}
		}
	}
	return metaverr.New(metaverr.KindNotAChild, position.Stack{}, "%s is not a direct child of module %s", describe(child), m.Name.Name)
}

func (m *Module) removeDeclsForNode(n Node) {
	for name, decls := range m.ids {
		kept := decls[:0]
		for _, d := range decls {
			if d.Node != n {
				kept = append(kept, d)
			}
		}
		if len(kept) == 0 {
			delete(m.ids, name)
		} else {
			m.ids[name] = kept
		}
	}
}

func (m *Module) removeMetav(mv *Metav) {
	for i, x := range m.MetavNodes {
		if x == mv {
			m.MetavNodes = append(m.MetavNodes[:i], m.MetavNodes[i+1:]...)
			return
		}
	}
}

func describe(n Node) string {
	return fmt.Sprintf("%s node", n.Kind())
}
