package ast

import (
	"fmt"
	"sort"

	"github.com/madappgang/metav/internal/position"
)

// EditOp is one scheduled mutation against an original source file. Every
// op resolves to a (filename, byte) anchor via FileSpan/FilePos so the
// rewrite executor can sort and replay them purely in terms of bytes,
// without any further knowledge of the AST that produced them.
type EditOp interface {
	Seq() int
	isEditOp()
}

type baseOp struct {
	seq int
}

func (o baseOp) Seq() int   { return o.seq }
func (o baseOp) isEditOp() {}

// RemoveOp wraps the original bytes of rng in a /*metav_delete:...*/
// sentinel rather than dropping them outright, so a script run can be
// undone by hand and reruns stay idempotent (spec.md §4.6).
type RemoveOp struct {
	baseOp
	Range position.Range
}

// DeleteOp drops the bytes of rng outright. Used only for bytes the
// preprocessor itself recognizes as a pre-existing metav sentinel, so a
// second run over already-rewritten output converges instead of nesting
// sentinels (spec.md §4.1 idempotence).
type DeleteOp struct {
	baseOp
	Range position.Range
}

// InsertOp splices Payload, wrapped in a /*metav_generated:*/.../*:metav_generated*/
// sentinel, at Pos. Pos is a single frame stack rather than a Range: an
// insertion has no width of its own in the original source.
type InsertOp struct {
	baseOp
	Pos     position.Stack
	Payload string
}

func (RemoveOp) isEditOp() {}
func (DeleteOp) isEditOp() {}
func (InsertOp) isEditOp() {}

// FileSpan resolves an op to the (filename, startByte, endByte) triple the
// rewrite executor sorts and replays against. Insertions report a
// zero-width span at their position.
func FileSpan(op EditOp) (filename string, start, end int, ok bool) {
	switch o := op.(type) {
	case RemoveOp:
		return o.Range.FileSpan()
	case DeleteOp:
		return o.Range.FileSpan()
	case InsertOp:
		f := o.Pos.Bottom()
		if f.Kind != position.FrameFile {
			return "", 0, 0, false
		}
		return f.Name, f.Byte, f.Byte, true
	}
	return "", 0, 0, false
}

// Renderable is implemented by anything that can serialize itself back to
// Verilog source text for use as an Insert payload: either a pre-rendered
// RawText literal, or a live AST Node via nodeRenderable in print.go.
type Renderable interface {
	Render() string
}

// RawText is a Renderable wrapping a literal string, used when a script
// supplies already-formatted text instead of building new AST nodes.
type RawText string

func (t RawText) Render() string { return string(t) }

// EditPlan accumulates every edit scheduled across every module touched
// by a single run. It is created once by the driver and threaded through
// every parsed module so that the whole run replays as one sorted pass
// over the edit stream (spec.md §4.6).
type EditPlan struct {
	ops []EditOp
}

// NewEditPlan returns an empty plan.
func NewEditPlan() *EditPlan {
	return &EditPlan{}
}

// Remove schedules a reversible removal of rng's original bytes.
func (p *EditPlan) Remove(rng position.Range) {
	p.ops = append(p.ops, RemoveOp{baseOp{seq: len(p.ops)}, rng})
}

// Delete schedules an outright drop of rng's bytes (sentinel cleanup).
func (p *EditPlan) Delete(rng position.Range) {
	p.ops = append(p.ops, DeleteOp{baseOp{seq: len(p.ops)}, rng})
}

// Insert schedules r's rendered text to be spliced in at pos.
func (p *EditPlan) Insert(pos position.Stack, r Renderable) {
	p.ops = append(p.ops, InsertOp{baseOp{seq: len(p.ops)}, pos, r.Render()})
}

// InsertRaw is a convenience wrapper over Insert for literal text.
func (p *EditPlan) InsertRaw(pos position.Stack, text string) {
	p.Insert(pos, RawText(text))
}

// InsertNode is a convenience wrapper that inserts n's printed form at pos.
func (p *EditPlan) InsertNode(pos position.Stack, n Node) {
	p.Insert(pos, AsRenderable(n))
}

// Ops returns every scheduled op, sorted by (filename, start byte,
// kind-priority, registration order): Inserts sort before Remove/Delete
// ops that share the same start byte so generated text lands before
// bytes being stripped at the same anchor, and any remaining tie falls
// back to registration order (spec.md §4.6).
func (p *EditPlan) Ops() []EditOp {
	type entry struct {
		file     string
		start    int
		priority int
		op       EditOp
	}
	entries := make([]entry, 0, len(p.ops))
	for _, op := range p.ops {
		file, start, _, ok := FileSpan(op)
		if !ok {
			continue
		}
		pr := 1
		if _, isInsert := op.(InsertOp); isInsert {
			pr = 0
		}
		entries = append(entries, entry{file, start, pr, op})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.file != b.file {
			return a.file < b.file
		}
		if a.start != b.start {
			return a.start < b.start
		}
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		return a.op.Seq() < b.op.Seq()
	})
	out := make([]EditOp, len(entries))
	for i, e := range entries {
		out[i] = e.op
	}
	return out
}

// String renders a one-line summary per op, useful for -n/--noop output
// and test diffs.
func (o RemoveOp) String() string {
	f, s, e, _ := o.Range.FileSpan()
	return fmt.Sprintf("remove %s:%d-%d", f, s, e)
}

func (o DeleteOp) String() string {
	f, s, e, _ := o.Range.FileSpan()
	return fmt.Sprintf("delete %s:%d-%d", f, s, e)
}

func (o InsertOp) String() string {
	f := o.Pos.Bottom()
	return fmt.Sprintf("insert %s:%d %q", f.Name, f.Byte, o.Payload)
}
