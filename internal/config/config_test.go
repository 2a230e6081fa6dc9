package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault_PassesValidation(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_RejectsNonPositiveHNSWM(t *testing.T) {
	cfg := Default()
	cfg.HNSW.M = 0
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsOverlapGreaterThanSize(t *testing.T) {
	cfg := Default()
	cfg.Chunking.Size = 100
	cfg.Chunking.Overlap = 100
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownFsyncPolicy(t *testing.T) {
	cfg := Default()
	cfg.Storage.FsyncPolicy = "sometimes"
	require.Error(t, cfg.Validate())
}

func TestFromFile_OverridesOnlySpecifiedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hnsw:\n  m: 32\n"), 0o644))

	cfg, err := FromFile(path)
	require.NoError(t, err)
	require.Equal(t, 32, cfg.HNSW.M)
	require.Equal(t, Default().HNSW.EfConstruction, cfg.HNSW.EfConstruction)
}

func TestFromEnv_OverridesDefaults(t *testing.T) {
	t.Setenv("NMT_HNSW_M", "64")
	t.Setenv("NMT_LOG_PRETTY", "true")

	cfg := FromEnv(nil)
	require.Equal(t, 64, cfg.HNSW.M)
	require.True(t, cfg.Log.Pretty)
}

func TestFromEnv_IgnoresUnparsableValues(t *testing.T) {
	t.Setenv("NMT_HNSW_M", "not-a-number")
	cfg := FromEnv(nil)
	require.Equal(t, Default().HNSW.M, cfg.HNSW.M)
}

func TestLoad_WithoutFileUsesDefaultsAndEnv(t *testing.T) {
	t.Setenv("NMT_DATA_PATH", "/tmp/custom-path")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom-path", cfg.Storage.DataPath)
}
