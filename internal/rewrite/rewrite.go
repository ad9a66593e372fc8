// Package rewrite replays an *ast.EditPlan against the original source
// files, producing byte-exact output for everything a script didn't
// touch. It mirrors original_source/metav/edit.py's execute(): sort by
// (filename, start byte), then stream each file once, splicing in
// generated text and wrapping or dropping removed spans as it goes.
package rewrite

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/madappgang/metav/internal/ast"
	"github.com/madappgang/metav/internal/metaverr"
	"github.com/madappgang/metav/internal/position"
)

// Executor replays an edit plan against a set of source files already
// read into memory (so the same bytes the preprocessor/lexer/parser saw
// are the ones rewritten against, regardless of concurrent disk state).
type Executor struct {
	Sources map[string][]byte
	DryRun  bool
}

// New creates an Executor over the given file contents.
func New(sources map[string][]byte) *Executor {
	return &Executor{Sources: sources}
}

// Output is the rewritten content for one touched file, addressed at
// Filename, which is the original source path with ".out" appended
// (spec.md §4.6) so a run never overwrites the user's original source.
type Output struct {
	Filename string
	Content  []byte
}

// Execute replays every op in plan and returns the rewritten content for
// each file that had at least one op scheduled against it. When DryRun is
// set (the CLI's -n/--noop flag, which original_source has no equivalent
// of — see DESIGN.md), Execute still computes and returns the outputs but
// the caller is expected not to write them back to disk.
func (e *Executor) Execute(plan *ast.EditPlan) ([]Output, error) {
	ops := plan.Ops()
	byFile := map[string][]ast.EditOp{}
	order := []string{}
	for _, op := range ops {
		file, _, _, ok := ast.FileSpan(op)
		if !ok {
			continue
		}
		if _, seen := byFile[file]; !seen {
			order = append(order, file)
		}
		byFile[file] = append(byFile[file], op)
	}
	sort.Strings(order)

	var outs []Output
	for _, file := range order {
		content, ok := e.Sources[file]
		if !ok {
			return nil, metaverr.New(metaverr.KindIOError, nil, "rewrite: no source content loaded for %s", file)
		}
		out, err := e.executeFile(file, content, byFile[file])
		if err != nil {
			return nil, err
		}
		outs = append(outs, Output{Filename: file + ".out", Content: out})
	}
	return outs, nil
}

// executeFile streams content once, in edit order, appending untouched
// bytes between ops and either the rendered replacement or nothing at
// each op's position. ops is already sorted by (start byte, priority,
// seq) for this file via EditPlan.Ops.
func (e *Executor) executeFile(filename string, content []byte, ops []ast.EditOp) ([]byte, error) {
	var out strings.Builder
	pos := 0
	for _, op := range ops {
		_, start, end, ok := ast.FileSpan(op)
		if !ok {
			continue
		}
		if start < pos {
			return nil, metaverr.New(metaverr.KindOverlappingEdits, nil,
				"overlapping edits in %s: op at %d starts before previous edit ended at %d", filename, start, pos)
		}
		out.Write(content[pos:start])

		switch o := op.(type) {
		case ast.InsertOp:
			fmt.Fprintf(&out, "/*metav_generated:*/\n%s\n/*:metav_generated*/", o.Payload)
			pos = start
		case ast.RemoveOp:
			if end < start {
				return nil, metaverr.New(metaverr.KindOverlappingEdits, nil, "remove op in %s has end before start", filename)
			}
			out.WriteString("/*metav_delete:")
			out.Write(content[start:end])
			out.WriteString(":metav_delete*/")
			pos = end
		case ast.DeleteOp:
			if end < start {
				return nil, metaverr.New(metaverr.KindOverlappingEdits, nil, "delete op in %s has end before start", filename)
			}
			pos = end
		}
	}
	out.Write(content[pos:])
	return []byte(out.String()), nil
}

// WriteAll writes every output to disk at its Output.Filename (the
// original path plus ".out"), unless dry is set, in which case nothing
// is written and callers should instead print a diff or summary of what
// would change.
func WriteAll(outs []Output, dry bool) error {
	if dry {
		return nil
	}
	for _, o := range outs {
		if err := os.WriteFile(o.Filename, o.Content, 0644); err != nil {
			return metaverr.Wrap(metaverr.KindIOError, nil, err, "writing %s", o.Filename)
		}
	}
	return nil
}

// SentinelDeletes converts the preprocessor's pre-scheduled sentinel
// cleanups into DeleteOps on plan, so a second run over already-rewritten
// output converges instead of nesting /*metav_delete:*/ markers forever
// (spec.md §4.1 idempotence).
func SentinelDeletes(plan *ast.EditPlan, filename string, startByte, endByte int) {
	f := position.Frame{Kind: position.FrameFile, Name: filename, Byte: startByte}
	e := position.Frame{Kind: position.FrameFile, Name: filename, Byte: endByte}
	plan.Delete(position.Range{Start: position.Stack{f}, End: position.Stack{e}})
}
