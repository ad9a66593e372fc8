// Package script defines the capability surface metav exposes to the
// external script-executor host (spec.md's explicit out-of-scope
// collaborator): the running module, a resolver for other modules, an AST
// node factory, and the include-path list. metav never embeds a script
// runtime; it only ever calls a caller-supplied Executor with this
// surface and lets the host run the script however it wants.
package script

import (
	"github.com/madappgang/metav/internal/ast"
)

// ModuleResolver looks up a module by name, as already parsed (or lazily
// parsed on demand) by the driver; a script that references a module the
// driver cannot locate gets a nil *ast.Module back, not an error. The
// driver's implementation also records a ModuleNotFound diagnostic for it,
// which makes the run fail once its scripts have finished.
type ModuleResolver interface {
	GetModule(name string) *ast.Module
}

// Factory constructs fresh AST nodes for a script that wants to insert
// new declarations or statements, without requiring the host to know
// about internal/position's frame-stack machinery: every factory method
// returns a node with a synthetic, non-file-rooted range, which is legal
// because such nodes are only ever used as Insert payloads, never as the
// target of FileSpan.
type Factory interface {
	NewWire(names []string) ast.Node
	NewReg(names []string) ast.Node
	NewAssign(lhs, rhs string) ast.Node
	NewId(name string) ast.Node
}

// Capabilities is the full surface passed to a Metav block's host
// execution: Module is the enclosing module (mutable through its own
// methods), Modules resolves sibling modules, AST is the node factory,
// and Includes is the resolved include-path list, exposed read-only for
// scripts that want to locate files themselves.
type Capabilities struct {
	Module   *ast.Module
	Modules  ModuleResolver
	AST      Factory
	Includes []string
}

// Executor is the single seam between metav's core and the external host
// language runtime: "execute this script source against this module".
// The core never implements Executor itself; the driver is handed one by
// its caller (the CLI, a test harness, or an embedding application).
type Executor interface {
	// Run executes source (a Metav block's body, already dedented) with
	// the given capabilities bound, and returns the host's error if the
	// script fails; the driver wraps that error as a ScriptError. The host
	// is responsible for
	// whatever translation of this capability surface its own language
	// requires; metav makes no assumption about what source is written in.
	Run(source string, caps Capabilities) error
}
