package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madappgang/metav/internal/metaverr"
	"github.com/madappgang/metav/internal/script"
)

func writeModFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

// recordingExecutor records every module it was asked to run a script
// against, and optionally fails on a chosen module name.
type recordingExecutor struct {
	ran    []string
	failOn string
}

func (e *recordingExecutor) Run(source string, caps script.Capabilities) error {
	e.ran = append(e.ran, caps.Module.Name.Name)
	if caps.Module.Name.Name == e.failOn {
		return assertErr{"boom"}
	}
	return nil
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func TestDriverRunPassthroughModuleProducesNoEdits(t *testing.T) {
	dir := t.TempDir()
	writeModFile(t, dir, "top.v", "module top;\nendmodule\n")

	d := New(Config{ModulePaths: []string{dir}}, nil)
	outs, err := d.Run("top", true)
	require.NoError(t, err)
	assert.Empty(t, outs)
}

func TestDriverRunResolvesInstantiatedChildModules(t *testing.T) {
	dir := t.TempDir()
	writeModFile(t, dir, "top.v", "module top;\nsub u0();\nendmodule\n")
	writeModFile(t, dir, "sub.v", "module sub;\nendmodule\n")

	exec := &recordingExecutor{}
	d := New(Config{ModulePaths: []string{dir}}, exec)
	_, err := d.Run("top", true)
	require.NoError(t, err)

	_, ok := d.moduleDict["top"]
	require.True(t, ok)
	sub, ok := d.moduleDict["sub"]
	require.True(t, ok)
	assert.Equal(t, "sub", sub.Name.Name)
}

func TestDriverRunExecutesMetavBlockAgainstItsModule(t *testing.T) {
	dir := t.TempDir()
	writeModFile(t, dir, "top.v", "module top;\n/*metav\nx = 1\n*/\nendmodule\n")

	exec := &recordingExecutor{}
	d := New(Config{ModulePaths: []string{dir}}, exec)
	_, err := d.Run("top", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"top"}, exec.ran)
}

func TestDriverRunMissingExecutorWithMetavBlockIsScriptError(t *testing.T) {
	dir := t.TempDir()
	writeModFile(t, dir, "top.v", "module top;\n/*metav\nx = 1\n*/\nendmodule\n")

	d := New(Config{ModulePaths: []string{dir}}, nil)
	_, err := d.Run("top", true)
	require.Error(t, err)
	me, ok := err.(*metaverr.MetavError)
	require.True(t, ok)
	assert.Equal(t, metaverr.KindScriptError, me.Kind)
}

func TestDriverRunScriptFailurePropagatesAsScriptError(t *testing.T) {
	dir := t.TempDir()
	writeModFile(t, dir, "top.v", "module top;\n/*metav\nx = 1\n*/\nendmodule\n")

	exec := &recordingExecutor{failOn: "top"}
	d := New(Config{ModulePaths: []string{dir}}, exec)
	_, err := d.Run("top", true)
	require.Error(t, err)
	me, ok := err.(*metaverr.MetavError)
	require.True(t, ok)
	assert.Equal(t, metaverr.KindScriptError, me.Kind)
}

func TestDriverRunTopModuleNotFoundIsModuleNotFoundError(t *testing.T) {
	dir := t.TempDir()
	d := New(Config{ModulePaths: []string{dir}}, nil)
	_, err := d.Run("missing", true)
	require.Error(t, err)
	me, ok := err.(*metaverr.MetavError)
	require.True(t, ok)
	assert.Equal(t, metaverr.KindModuleNotFound, me.Kind)
}

func TestDriverRunUnresolvableChildModuleAccumulatesDiagnosticAndAborts(t *testing.T) {
	dir := t.TempDir()
	writeModFile(t, dir, "top.v", "module top;\nmissingmod u0();\nendmodule\n")

	d := New(Config{ModulePaths: []string{dir}}, nil)
	_, err := d.Run("top", true)
	require.Error(t, err)
	diags, ok := err.(*metaverr.Diagnostics)
	require.True(t, ok)
	require.True(t, diags.HasErrors())
	assert.Equal(t, metaverr.KindModuleNotFound, diags.All()[0].Kind)
}

// addItemExecutor simulates a script's add_item operation: it builds a
// new wire via the AST factory and appends it to the running module.
type addItemExecutor struct{ wireName string }

func (e addItemExecutor) Run(source string, caps script.Capabilities) error {
	wire := caps.AST.NewWire([]string{e.wireName})
	return caps.Module.AddGeneratedItem(wire)
}

func TestDriverRunAddItemScriptProducesGeneratedSentinelInOutput(t *testing.T) {
	dir := t.TempDir()
	top := filepath.Join(dir, "top.v")
	writeModFile(t, dir, "top.v", "module top;\n/*metav\nadd_item\n*/\nendmodule\n")

	exec := addItemExecutor{wireName: "generated_wire"}
	d := New(Config{ModulePaths: []string{dir}}, exec)
	outs, err := d.Run("top", false)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, top+".out", outs[0].Filename)

	got, err := os.ReadFile(top + ".out")
	require.NoError(t, err)
	assert.Contains(t, string(got), "/*metav_generated:*/\nwire generated_wire;\n/*:metav_generated*/")

	orig, err := os.ReadFile(top)
	require.NoError(t, err)
	assert.NotContains(t, string(orig), "generated_wire")
}

func TestDriverRunWritesFilesWhenNotDryRun(t *testing.T) {
	dir := t.TempDir()
	top := filepath.Join(dir, "top.v")
	writeModFile(t, dir, "top.v", "module top;\n/*metav_generated:*/\nwire y;\n/*:metav_generated*/\nendmodule\n")

	d := New(Config{ModulePaths: []string{dir}}, nil)
	outs, err := d.Run("top", false)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, top+".out", outs[0].Filename)

	// the original source must survive untouched; only the sibling .out
	// file is written.
	orig, err := os.ReadFile(top)
	require.NoError(t, err)
	assert.Contains(t, string(orig), "wire y;")

	got, err := os.ReadFile(top + ".out")
	require.NoError(t, err)
	assert.NotContains(t, string(got), "wire y;")
}

func TestDriverGetModuleResolvesByNameAndCachesResult(t *testing.T) {
	dir := t.TempDir()
	writeModFile(t, dir, "top.v", "module top;\nendmodule\n")

	d := New(Config{ModulePaths: []string{dir}}, nil)
	m := d.GetModule("top")
	require.NotNil(t, m)
	assert.Equal(t, "top", m.Name.Name)

	// a second call must return the cached instance without re-parsing.
	again := d.GetModule("top")
	assert.Same(t, m, again)
}

func TestDriverGetModuleUnknownNameRecordsDiagnosticAndReturnsNil(t *testing.T) {
	dir := t.TempDir()
	d := New(Config{ModulePaths: []string{dir}}, nil)
	m := d.GetModule("nope")
	assert.Nil(t, m)
	require.True(t, d.diagnostics.HasErrors())
}
