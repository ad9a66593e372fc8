package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madappgang/metav/internal/metaverr"
)

func TestDefaultHasSaneSearchPaths(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"."}, cfg.IncludePaths)
	assert.Equal(t, []string{"."}, cfg.ModulePaths)
	assert.Equal(t, "color", cfg.Diagnostics.Style)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesTOMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "metav.toml")
	require.NoError(t, os.WriteFile(p, []byte(`module_paths = ["rtl"]`+"\n"), 0644))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"rtl"}, cfg.ModulePaths)
	// untouched fields keep their default.
	assert.Equal(t, []string{"."}, cfg.IncludePaths)
}

func TestLoadMissingFileIsIOError(t *testing.T) {
	_, err := Load("/no/such/metav.toml")
	require.Error(t, err)
	me, ok := err.(*metaverr.MetavError)
	require.True(t, ok)
	assert.Equal(t, metaverr.KindIOError, me.Kind)
}

func TestOverlayAppliesOnTopOfFileConfig(t *testing.T) {
	cfg := Default()
	noWrite := true
	o := Overlay{
		IncludePaths: []string{"extra"},
		Defines:      map[string]string{"DEBUG": "1"},
		NoWrite:      &noWrite,
	}
	got := o.Apply(cfg)
	assert.Equal(t, []string{".", "extra"}, got.IncludePaths)
	assert.Equal(t, "1", got.Defines["DEBUG"])
	assert.True(t, got.NoWrite)
	// fields the overlay left empty keep the base value.
	assert.Equal(t, []string{"."}, got.ModulePaths)
}

func TestValidatePassesWhenModulePathsSet(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate("top"))
}

func TestValidatePassesWhenTopModuleNamesAFileDirectly(t *testing.T) {
	cfg := Config{}
	assert.NoError(t, cfg.Validate("top.v"))
}

func TestValidatePassesWhenBareNameResolvesInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(wd)
	require.NoError(t, os.Chdir(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.v"), []byte("module top;\nendmodule\n"), 0644))

	cfg := Config{}
	assert.NoError(t, cfg.Validate("top"))
}

func TestValidateFailsWhenModulePathsEmptyAndNameUnresolvable(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(wd)
	require.NoError(t, os.Chdir(dir))

	cfg := Config{}
	err = cfg.Validate("missing")
	require.Error(t, err)
	me, ok := err.(*metaverr.MetavError)
	require.True(t, ok)
	assert.Equal(t, metaverr.KindModuleNotFound, me.Kind)
}
