package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// nodeRenderable adapts any live AST Node to Renderable so a script can
// insert a freshly built node (as opposed to raw text) via EditPlan.Insert;
// Print does the actual by-kind serialization.
type nodeRenderable struct {
	n Node
}

func (r nodeRenderable) Render() string { return Print(r.n) }

// AsRenderable wraps n so it can be passed to EditPlan.Insert.
func AsRenderable(n Node) Renderable { return nodeRenderable{n} }

// Print serializes n back to Verilog source text. It is used to render
// freshly constructed nodes for Insert edits; it is never applied to
// untouched nodes, whose original bytes are always replayed verbatim by
// the rewrite executor instead of being reprinted (spec.md §4.6: printing
// is only ever a source of *new* text).
func Print(n Node) string {
	if n == nil {
		return ""
	}
	switch v := n.(type) {
	case *Id:
		return v.Name
	case *Number:
		return v.Orig
	case *StringLit:
		if v.Orig == "" {
			return quoteString(v.Value)
		}
		return v.Orig
	case *Real:
		return v.Orig
	case *BinaryOp:
		return fmt.Sprintf("(%s %s %s)", Print(v.A), v.Op, Print(v.B))
	case *UnaryOp:
		return fmt.Sprintf("(%s%s)", v.Op, Print(v.Expr))
	case *Ternary:
		return fmt.Sprintf("(%s ? %s : %s)", Print(v.Cond), Print(v.True), Print(v.False))
	case *Concatenation:
		return fmt.Sprintf("{%s}", joinPrint(v.Exprs, ", "))
	case *Repetition:
		return fmt.Sprintf("{%s%s}", Print(v.Repeat), Print(v.Concat))
	case *PartSelect:
		switch v.SelectType {
		case "single":
			return fmt.Sprintf("%s[%s]", Print(v.Id), Print(v.Expr))
		case "range":
			return fmt.Sprintf("%s[%s:%s]", Print(v.Id), Print(v.MSB), Print(v.LSB))
		case "plus":
			return fmt.Sprintf("%s[%s+:%s]", Print(v.Id), Print(v.LSB), Print(v.Size))
		}
		return Print(v.Id)
	case *RangeNode:
		return fmt.Sprintf("[%s:%s]", Print(v.MSB), Print(v.LSB))
	case *Assign:
		op := "<="
		if v.Blocking {
			op = "="
		}
		if v.Op != "" {
			op = v.Op
		}
		if v.IsStatement {
			return fmt.Sprintf("%s %s %s;", Print(v.Lval), op, Print(v.Rval))
		}
		return fmt.Sprintf("%s = %s", Print(v.Lval), Print(v.Rval))
	case *Wire:
		return fmt.Sprintf("wire %s%s;", printRangePrefix(v.Range), joinPrint(v.IdsOrAssigns, ", "))
	case *Reg:
		return fmt.Sprintf("reg %s%s;", printRangePrefix(v.Range), joinPrint(v.IdsOrMem, ", "))
	case *MemReg:
		return fmt.Sprintf("%s %s", Print(v.Id), Print(v.Range))
	case *Port:
		return fmt.Sprintf("%s %s%s%s", v.Direction, regPrefix(v.IsReg), printRangePrefix(v.Range), joinPrint(idsToNodes(v.Ids), ", "))
	case *Parameter:
		kw := "parameter"
		if v.Kind_ == ParamLocal {
			kw = "localparam"
		}
		return fmt.Sprintf("%s %s%s", kw, printRangePrefix(v.Range), joinPrint(assignsToNodes(v.Assigns), ", "))
	case *Edge:
		if v.Polarity == "" {
			return Print(v.Signal)
		}
		return fmt.Sprintf("%s %s", v.Polarity, Print(v.Signal))
	case *At:
		if v.Sens == nil {
			return fmt.Sprintf("@(*) %s", Print(v.Statement))
		}
		return fmt.Sprintf("@(%s) %s", joinPrint(v.Sens, " or "), Print(v.Statement))
	case *Always:
		return fmt.Sprintf("always %s", Print(v.Statement))
	case *If:
		s := fmt.Sprintf("if (%s) %s", Print(v.Cond), Print(v.True))
		if v.False != nil {
			s += fmt.Sprintf(" else %s", Print(v.False))
		}
		return s
	case *For:
		return fmt.Sprintf("for (%s; %s; %s) %s", Print(v.Init), Print(v.Cond), Print(v.Step), Print(v.Body))
	case *While:
		return fmt.Sprintf("while (%s) %s", Print(v.Cond), Print(v.Body))
	case *Block:
		name := ""
		if v.Name != "" {
			name = ": " + v.Name
		}
		return fmt.Sprintf("begin%s\n%s\nend", name, indentJoin(v.Statements))
	case *TaskCall:
		return fmt.Sprintf("%s(%s);", Print(v.Name), joinPrint(v.Args, ", "))
	case *Case:
		var b strings.Builder
		fmt.Fprintf(&b, "%s (%s)\n", v.CaseType, Print(v.Expr))
		for _, it := range v.Items {
			b.WriteString(Print(it))
			b.WriteString("\n")
		}
		b.WriteString("endcase")
		return b.String()
	case *CaseItem:
		label := "default"
		if !v.IsDefault {
			label = joinPrint(v.Exprs, ", ")
		}
		return fmt.Sprintf("%s: %s", label, Print(v.Statement))
	case *Connection:
		return fmt.Sprintf(".%s(%s)", Print(v.Id), Print(v.Expr))
	case *ModuleInst:
		return fmt.Sprintf("%s(%s)", Print(v.InstName), joinPrint(connsToExprNodes(v.Connections), ", "))
	case *ModuleInsts:
		overrides := ""
		if len(v.ParamOverrides) > 0 {
			overrides = fmt.Sprintf(" #(%s)", joinPrint(connsToExprNodes(v.ParamOverrides), ", "))
		}
		insts := make([]Node, len(v.Insts))
		for i, x := range v.Insts {
			insts[i] = x
		}
		return fmt.Sprintf("%s%s %s;", Print(v.ModuleName), overrides, joinPrint(insts, ", "))
	case *Function:
		params := make([]Node, len(v.Params))
		for i, p := range v.Params {
			params[i] = p
		}
		return fmt.Sprintf("function %s%s(%s)\n%s\nendfunction", printRangePrefix(v.Range), Print(v.Name), joinPrint(params, ", "), Print(v.Body))
	case *Genvars:
		return fmt.Sprintf("genvar %s;", joinPrint(idsToNodes(v.Ids), ", "))
	case *Generate:
		return fmt.Sprintf("generate\n%s\nendgenerate", indentJoin(v.Items))
	case *GenerateBlock:
		name := ""
		if v.Name != "" {
			name = ": " + v.Name
		}
		return fmt.Sprintf("begin%s\n%s\nend", name, indentJoin(v.Items))
	case *GenerateIf:
		s := fmt.Sprintf("if (%s) %s", Print(v.Cond), Print(v.True))
		if v.False != nil {
			s += fmt.Sprintf(" else %s", Print(v.False))
		}
		return s
	case *GenerateFor:
		return fmt.Sprintf("for (%s; %s; %s) %s", Print(v.Init), Print(v.Cond), Print(v.Step), Print(v.Body))
	case *GenerateCase:
		var b strings.Builder
		fmt.Fprintf(&b, "case (%s)\n", Print(v.Expr))
		for _, it := range v.Items {
			b.WriteString(Print(it))
			b.WriteString("\n")
		}
		b.WriteString("endcase")
		return b.String()
	case *GenerateCaseItem:
		label := "default"
		if !v.IsDefault {
			label = joinPrint(v.Exprs, ", ")
		}
		return fmt.Sprintf("%s: %s", label, Print(v.Body))
	case *Metav:
		return fmt.Sprintf("/*metav\n%s\n*/", v.Source)
	case *Module:
		return printModule(v)
	}
	return ""
}

func printModule(m *Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s", m.Name.Name)
	if m.PortStyle == PortStyleANSI && len(m.Ports) > 0 {
		ports := make([]Node, len(m.Ports))
		for i, p := range m.Ports {
			ports[i] = p
		}
		fmt.Fprintf(&b, "(%s)", joinPrint(ports, ", "))
	}
	b.WriteString(";\n")
	for _, item := range m.Items {
		b.WriteString(Print(item))
		b.WriteString("\n")
	}
	b.WriteString("endmodule")
	return b.String()
}

func printRangePrefix(r *RangeNode) string {
	if r == nil {
		return ""
	}
	return Print(r) + " "
}

func regPrefix(isReg bool) string {
	if isReg {
		return "reg "
	}
	return ""
}

func idsToNodes(ids []*Id) []Node {
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func assignsToNodes(as []*Assign) []Node {
	out := make([]Node, len(as))
	for i, a := range as {
		out[i] = a
	}
	return out
}

func connsToExprNodes(cs []*Connection) []Node {
	out := make([]Node, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

func joinPrint(nodes []Node, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = Print(n)
	}
	return strings.Join(parts, sep)
}

func indentJoin(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		lines := strings.Split(Print(n), "\n")
		for j, l := range lines {
			lines[j] = "  " + l
		}
		parts[i] = strings.Join(lines, "\n")
	}
	return strings.Join(parts, "\n")
}

// quoteString renders a StringLit's decoded Value back into a quoted
// Verilog string literal; unused when Orig is available but kept for
// nodes constructed fresh by a script with no original spelling.
func quoteString(s string) string {
	return strconv.Quote(s)
}
