package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysProvidedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	const body = "max_response_limit: 50\nsearch_timeout_secs: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 50, cfg.MaxResponseLimit)
	require.Equal(t, 2, cfg.SearchTimeoutSecs)
	require.Equal(t, Default().MaxSeeds, cfg.MaxSeeds)
}

func TestValidate_RejectsNonPositiveLimits(t *testing.T) {
	cfg := Default()
	cfg.MaxResponseLimit = 0
	require.Error(t, cfg.Validate())
}

func TestClampLimit(t *testing.T) {
	cfg := Default()
	require.Equal(t, cfg.MaxResponseLimit, cfg.ClampLimit(0))
	require.Equal(t, cfg.MaxResponseLimit, cfg.ClampLimit(cfg.MaxResponseLimit+100))
	require.Equal(t, 10, cfg.ClampLimit(10))
}
