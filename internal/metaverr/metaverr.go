// Package metaverr defines the tagged error kinds metav's pipeline stages
// raise (spec.md §7) and renders them as rustc-style annotated source
// excerpts, following the shape of the teacher's own enhanced-error package
// adapted to metav's macro/include frame-stack positions instead of a
// single go/token.Pos.
package metaverr

import (
	"fmt"
	"strings"

	"github.com/madappgang/metav/internal/position"
)

// Kind tags the fatal error categories spec.md §7 enumerates.
type Kind string

const (
	KindIncludeNotFound      Kind = "IncludeNotFound"
	KindIncludeCycle         Kind = "IncludeCycle"
	KindModuleNotFound       Kind = "ModuleNotFound"
	KindDuplicateDefine      Kind = "DuplicateDefine"
	KindUnbalancedIfdef      Kind = "UnbalancedIfdef"
	KindLexError             Kind = "LexError"
	KindParseError           Kind = "ParseError"
	KindInconsistentPorts    Kind = "InconsistentPortStyle"
	KindNotAChild            Kind = "NotAChild"
	KindOverlappingEdits     Kind = "OverlappingEdits"
	KindScriptError          Kind = "ScriptError"
	KindIOError              Kind = "IOError"
	KindNotImplemented       Kind = "NotImplemented"
)

// MetavError is the single error type every pipeline stage raises; Kind
// selects the category, Pos anchors it to a source position (possibly
// through macro/include frames), and Wrapped optionally carries a host
// error (e.g. a script-executor failure) verbatim.
type MetavError struct {
	Kind     Kind
	Message  string
	Pos      position.Stack
	Wrapped  error
	Snippet  string // optional pre-rendered source excerpt
}

func (e *MetavError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if len(e.Pos) > 0 {
		fmt.Fprintf(&b, " at %s", e.Pos.String())
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Wrapped != nil {
		fmt.Fprintf(&b, ": %v", e.Wrapped)
	}
	return b.String()
}

func (e *MetavError) Unwrap() error { return e.Wrapped }

// New creates a MetavError with no source snippet attached.
func New(kind Kind, pos position.Stack, format string, args ...interface{}) *MetavError {
	return &MetavError{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// Wrap creates a MetavError that carries a wrapped host error verbatim, used
// for ScriptError and IOError per spec.md §7's propagation policy.
func Wrap(kind Kind, pos position.Stack, wrapped error, format string, args ...interface{}) *MetavError {
	return &MetavError{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos, Wrapped: wrapped}
}

// WithSnippet reads up to contextLines lines before and after the error's
// position out of source and attaches a rustc-style annotated excerpt with
// a single "^" caret under the bottom frame's column, the way the teacher's
// EnhancedError renders a go/token.Pos against a go/token.FileSet. The
// excerpt carries no "in macro X" annotation; that comes from the position
// string in Error.
func (e *MetavError) WithSnippet(source []byte, contextLines int) *MetavError {
	if len(e.Pos) == 0 {
		return e
	}
	bottom := e.Pos.Bottom()
	lines := strings.Split(string(source), "\n")
	lineIdx := bottom.Line - 1
	if lineIdx < 0 || lineIdx >= len(lines) {
		return e
	}

	start := lineIdx - contextLines
	if start < 0 {
		start = 0
	}
	end := lineIdx + contextLines
	if end >= len(lines) {
		end = len(lines) - 1
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "%5d | %s\n", i+1, lines[i])
		if i == lineIdx {
			col := bottom.Column
			if col < 1 {
				col = 1
			}
			b.WriteString("      | ")
			b.WriteString(strings.Repeat(" ", col-1))
			b.WriteString("^\n")
		}
	}
	e.Snippet = b.String()
	return e
}

// Render produces the single diagnostic line spec.md §7 mandates per error
// (kind, position with macro frames appended, human-readable message),
// followed by the optional snippet on subsequent lines.
func (e *MetavError) Render() string {
	var b strings.Builder
	b.WriteString(e.Error())
	if e.Snippet != "" {
		b.WriteString("\n")
		b.WriteString(e.Snippet)
	}
	return b.String()
}

// Diagnostics accumulates one MetavError per failure so that, per spec.md
// §7, "other top modules in the same file are still reported" even though
// the overall run remains fatal once any diagnostic is recorded.
type Diagnostics struct {
	errs []*MetavError
}

// Add records a diagnostic.
func (d *Diagnostics) Add(err *MetavError) {
	d.errs = append(d.errs, err)
}

// HasErrors reports whether any diagnostic was recorded.
func (d *Diagnostics) HasErrors() bool { return len(d.errs) > 0 }

// All returns every recorded diagnostic in registration order.
func (d *Diagnostics) All() []*MetavError { return d.errs }

// Error implements error so a non-empty Diagnostics can be returned/wrapped
// directly by the driver once a run is abandoned.
func (d *Diagnostics) Error() string {
	lines := make([]string, len(d.errs))
	for i, e := range d.errs {
		lines[i] = e.Render()
	}
	return strings.Join(lines, "\n")
}
