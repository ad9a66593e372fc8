package preprocessor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madappgang/metav/internal/metaverr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestPreprocessPassthrough(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "top.v", "module top;\nendmodule\n")

	res, err := Preprocess(f, NewState(nil))
	require.NoError(t, err)
	assert.Contains(t, res.Stream, "`file("+f+")")
	assert.Contains(t, res.Stream, "module top;")
	assert.Contains(t, res.Stream, "`endfile("+f+")")
}

func TestPreprocessDefineAndMacroExpansion(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "top.v", "`define WIDTH 8\nwire [`WIDTH-1:0] x;\n")

	res, err := Preprocess(f, NewState(nil))
	require.NoError(t, err)
	assert.Contains(t, res.Stream, "`macro(WIDTH)")
	assert.Contains(t, res.Stream, "`endmacro(WIDTH)")
	assert.Contains(t, res.Stream, "8")
}

func TestPreprocessDuplicateDefine(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "top.v", "`define W 8\n`define W 16\n")

	_, err := Preprocess(f, NewState(nil))
	require.Error(t, err)
	me, ok := err.(*metaverr.MetavError)
	require.True(t, ok)
	assert.Equal(t, metaverr.KindDuplicateDefine, me.Kind)
}

func TestPreprocessIfdefTrue(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "top.v", "`define FOO\n`ifdef FOO\nwire a;\n`else\nwire b;\n`endif\n")

	res, err := Preprocess(f, NewState(nil))
	require.NoError(t, err)
	assert.Contains(t, res.Stream, "wire a;")
	assert.NotContains(t, res.Stream, "wire b;")
}

func TestPreprocessIfndefFalseBranch(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "top.v", "`ifndef FOO\nwire a;\n`else\nwire b;\n`endif\n")

	res, err := Preprocess(f, NewState(nil))
	require.NoError(t, err)
	assert.Contains(t, res.Stream, "wire a;")
	assert.NotContains(t, res.Stream, "wire b;")
}

func TestPreprocessUnbalancedEndif(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "top.v", "`endif\n")

	_, err := Preprocess(f, NewState(nil))
	require.Error(t, err)
	me, ok := err.(*metaverr.MetavError)
	require.True(t, ok)
	assert.Equal(t, metaverr.KindUnbalancedIfdef, me.Kind)
}

func TestPreprocessInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inc.v", "wire included;\n")
	top := writeFile(t, dir, "top.v", "`include \"inc.v\"\nmodule top;\nendmodule\n")

	res, err := Preprocess(top, NewState([]string{dir}))
	require.NoError(t, err)
	assert.Contains(t, res.Stream, "wire included;")
	assert.Contains(t, res.Stream, "`file("+filepath.Join(dir, "inc.v")+")")
}

func TestPreprocessIncludeNotFound(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.v", "`include \"missing.v\"\n")

	_, err := Preprocess(top, NewState([]string{dir}))
	require.Error(t, err)
	me, ok := err.(*metaverr.MetavError)
	require.True(t, ok)
	assert.Equal(t, metaverr.KindIncludeNotFound, me.Kind)
}

func TestPreprocessIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.v", "`include \"b.v\"\n")
	b := writeFile(t, dir, "b.v", "`include \"a.v\"\n")
	_ = b

	_, err := Preprocess(filepath.Join(dir, "a.v"), NewState([]string{dir}))
	require.Error(t, err)
	me, ok := err.(*metaverr.MetavError)
	require.True(t, ok)
	assert.Equal(t, metaverr.KindIncludeCycle, me.Kind)
}

func TestPreprocessSchedulesSentinelDrop(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "top.v", "wire x; /*metav_delete:wire y;:metav_delete*/\n")

	res, err := Preprocess(f, NewState(nil))
	require.NoError(t, err)
	require.NotEmpty(t, res.Edits)
	assert.Equal(t, f, res.Edits[0].Filename)
}

func TestPreprocessGeneratedBlockDropped(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "top.v", "wire x;\n/*metav_generated:*/\nwire y;\n/*:metav_generated*/\n")

	res, err := Preprocess(f, NewState(nil))
	require.NoError(t, err)
	require.Len(t, res.Edits, 1)
	assert.NotContains(t, res.Stream, "wire y;")
}
