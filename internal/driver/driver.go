// Package driver orchestrates one top-module-driven run: preprocess,
// lex, parse, run embedded scripts, recursively resolve instantiated
// modules, and finally replay the accumulated edit plan (spec.md's data
// flow diagram). It owns the single shared *ast.EditPlan and the
// module_dict memoization cache for the whole run.
package driver

import (
	"os"
	"path/filepath"

	"github.com/madappgang/metav/internal/ast"
	"github.com/madappgang/metav/internal/lexer"
	"github.com/madappgang/metav/internal/metaverr"
	"github.com/madappgang/metav/internal/parser"
	"github.com/madappgang/metav/internal/position"
	"github.com/madappgang/metav/internal/preprocessor"
	"github.com/madappgang/metav/internal/rewrite"
	"github.com/madappgang/metav/internal/script"
)

// Config mirrors the CLI surface spec.md §6 describes: include paths for
// `include, module search paths for resolving an instantiated module's
// file by name, and the pre-existing defines a run starts with.
type Config struct {
	IncludePaths []string
	ModulePaths  []string
	Defines      map[string]string
}

// Driver runs the whole pipeline for one top_module invocation.
type Driver struct {
	cfg      Config
	executor script.Executor

	plan        *ast.EditPlan
	sources     map[string][]byte
	moduleDict  map[string]*ast.Module
	diagnostics metaverr.Diagnostics
	sourceMaps  map[string]*position.SourceMap
}

// New creates a Driver; executor may be nil if no module in the run
// contains a metav block (a nil executor encountering one is itself a
// ScriptError, not a panic).
func New(cfg Config, executor script.Executor) *Driver {
	return &Driver{
		cfg:        cfg,
		executor:   executor,
		plan:       ast.NewEditPlan(),
		sources:    map[string][]byte{},
		moduleDict: map[string]*ast.Module{},
		sourceMaps: map[string]*position.SourceMap{},
	}
}

// SourceMap returns the annotated-stream-to-original-file source map built
// while lexing file, or nil if file was never parsed this run. Used by the
// CLI's --emit-sourcemap flag; the core pipeline never reads this.
func (d *Driver) SourceMap(file string) *position.SourceMap {
	return d.sourceMaps[file]
}

// AllSourceMaps returns every source map built this run, keyed by the
// annotated-stream's originating file name.
func (d *Driver) AllSourceMaps() map[string]*position.SourceMap {
	return d.sourceMaps
}

// GetModule implements script.ModuleResolver, resolving a module by name
// through the same memoization cache used by Run's instance-graph walk.
func (d *Driver) GetModule(name string) *ast.Module {
	if m, ok := d.moduleDict[name]; ok {
		return m
	}
	m, err := d.resolveModule(name)
	if err != nil {
		d.diagnostics.Add(toMetavErr(err))
		return nil
	}
	return m
}

// Run drives the full pipeline for topModule and, if the run completes
// without any fatal diagnostic, replays the edit plan against every
// touched file. dryRun suppresses the actual disk write (the CLI's
// -n/--noop flag) while still returning the computed outputs.
func (d *Driver) Run(topModule string, dryRun bool) ([]rewrite.Output, error) {
	top, err := d.resolveModule(topModule)
	if err != nil {
		return nil, err
	}
	if err := d.runScripts(top); err != nil {
		return nil, err
	}
	if d.diagnostics.HasErrors() {
		return nil, &d.diagnostics
	}

	exec := rewrite.New(d.sources)
	exec.DryRun = dryRun
	outs, err := exec.Execute(d.plan)
	if err != nil {
		return nil, err
	}
	if err := rewrite.WriteAll(outs, dryRun); err != nil {
		return nil, err
	}
	return outs, nil
}

// resolveModule parses (if not already cached) the file containing name
// and every other module that file defines, indexing all of them into
// module_dict in one pass — mirroring how the reference implementation's
// parser returns every module in a file, not just the one asked for.
func (d *Driver) resolveModule(name string) (*ast.Module, error) {
	if m, ok := d.moduleDict[name]; ok {
		return m, nil
	}
	file, err := d.findModuleFile(name)
	if err != nil {
		return nil, err
	}
	mods, err := d.parseFile(file)
	if err != nil {
		return nil, err
	}
	for _, m := range mods {
		d.moduleDict[m.Name.Name] = m
	}
	m, ok := d.moduleDict[name]
	if !ok {
		return nil, metaverr.New(metaverr.KindModuleNotFound, nil, "module %s not found in %s", name, file)
	}
	return m, nil
}

func (d *Driver) findModuleFile(name string) (string, error) {
	for _, dir := range d.cfg.ModulePaths {
		p := filepath.Join(dir, name+".v")
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	if info, err := os.Stat(name + ".v"); err == nil && !info.IsDir() {
		return name + ".v", nil
	}
	return "", metaverr.New(metaverr.KindModuleNotFound, nil, "could not locate a file for module %s in module search paths", name)
}

func (d *Driver) parseFile(file string) ([]*ast.Module, error) {
	st := preprocessor.NewState(d.cfg.IncludePaths)
	for k, v := range d.cfg.Defines {
		st.Defines[k] = v
	}
	res, err := preprocessor.Preprocess(file, st)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return nil, metaverr.Wrap(metaverr.KindIOError, nil, err, "reading %s", file)
	}
	d.sources[file] = content

	for _, e := range res.Edits {
		rewrite.SentinelDeletes(d.plan, e.Filename, e.StartByte, e.EndByte)
		if _, ok := d.sources[e.Filename]; !ok {
			c, err := os.ReadFile(e.Filename)
			if err != nil {
				return nil, metaverr.Wrap(metaverr.KindIOError, nil, err, "reading %s", e.Filename)
			}
			d.sources[e.Filename] = c
		}
	}

	lx := lexer.New(res.Stream, file)
	toks, err := lx.Tokenize()
	if err != nil {
		return nil, err
	}
	d.sourceMaps[file] = buildSourceMap(file, toks)

	p := parser.New(toks, d.plan)
	mods, err := p.ParseSource()
	if err != nil {
		return nil, err
	}

	byName := map[string]*ast.Module{}
	for _, m := range mods {
		byName[m.Name.Name] = m
	}
	for _, blk := range lx.Metav {
		mod, ok := byName[blk.Module]
		if !ok {
			continue
		}
		mod.AddItem(ast.NewMetav(blk.Range, blk.Source, blk.Module))
	}
	return mods, nil
}

// runScripts executes every metav block attached to top (and, for every
// module top instantiates, recursively resolves and visits that module
// too), matching spec.md's sequential "parse completely, then run its
// scripts, then parse the next" discipline — no module is visited twice.
func (d *Driver) runScripts(top *ast.Module) error {
	visited := map[*ast.Module]bool{}
	return d.visit(top, visited)
}

func (d *Driver) visit(m *ast.Module, visited map[*ast.Module]bool) error {
	if visited[m] {
		return nil
	}
	visited[m] = true

	for _, mv := range append([]*ast.Metav{}, m.MetavNodes...) {
		if d.executor == nil {
			return metaverr.New(metaverr.KindScriptError, mv.Range().Start, "no script executor configured for module %s", m.Name.Name)
		}
		caps := script.Capabilities{
			Module:   m,
			Modules:  d,
			AST:      script.DefaultFactory{},
			Includes: d.cfg.IncludePaths,
		}
		if err := d.executor.Run(mv.Source, caps); err != nil {
			return metaverr.Wrap(metaverr.KindScriptError, mv.Range().Start, err, "running metav block in %s", m.Name.Name)
		}
	}

	for _, item := range m.Items {
		insts, ok := item.(*ast.ModuleInsts)
		if !ok {
			continue
		}
		child, err := d.resolveModule(insts.ModuleName.Name)
		if err != nil {
			d.diagnostics.Add(toMetavErr(err))
			continue
		}
		insts.ResolvedModule = child
		if err := d.visit(child, visited); err != nil {
			return err
		}
	}
	return nil
}

// buildSourceMap records, for every token, where it sits in the
// preprocessor's annotated stream versus the original file it ultimately
// came from — an optional diagnostic artifact for tooling that wants to
// inspect macro/include expansion provenance independent of the rewritten
// `.out` output (the --emit-sourcemap CLI flag).
func buildSourceMap(streamName string, toks []lexer.Token) *position.SourceMap {
	sm := position.NewSourceMap(streamName)
	for _, t := range toks {
		bottom := t.Range.Start.Bottom()
		if bottom.Name == "" {
			continue
		}
		sm.Add(position.Segment{
			GenLine:    t.GenLine,
			GenColumn:  t.GenCol,
			SourceFile: bottom.Name,
			SrcLine:    bottom.Line,
			SrcColumn:  bottom.Column,
		})
	}
	return sm
}

func toMetavErr(err error) *metaverr.MetavError {
	if me, ok := err.(*metaverr.MetavError); ok {
		return me
	}
	return metaverr.Wrap(metaverr.KindIOError, nil, err, "%v", err)
}
