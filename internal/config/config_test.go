package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, defaultDBPath), cfg.DBPath)
	assert.Equal(t, int64(1024*1024), cfg.FileSizeCapBytes)
	assert.Equal(t, 3, cfg.DefaultContextLines)
	assert.Equal(t, "core", cfg.DefaultTier)
}

func TestLoadFromTOMLFile(t *testing.T) {
	dir := t.TempDir()
	content := "db_path = \"custom.db\"\nfile_size_cap_mib = 4\ndefault_context_lines = 20\ndefault_tier = \"memory\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corpusdb.toml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom.db"), cfg.DBPath)
	assert.Equal(t, int64(4*1024*1024), cfg.FileSizeCapBytes)
	assert.Equal(t, 10, cfg.DefaultContextLines, "context lines must clamp to 10")
	assert.Equal(t, "memory", cfg.DefaultTier)
}

func TestYAMLIgnoreOverrideIsAdditive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corpusdb.toml"), []byte("ignore_dirs = [\"vendor\"]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".corpusdb.yml"), []byte("ignore_dirs:\n  - generated\n  - third_party\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vendor", "generated", "third_party"}, cfg.IgnoreDirs)
}

func TestEnvOverridesDBPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDBPath, "/tmp/env-override.db")
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env-override.db", cfg.DBPath)
}
