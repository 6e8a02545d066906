package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Weights.Normalized())
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, 1000, cfg.History.MaxCommits)
}

func TestValidateRejectsBadWeights(t *testing.T) {
	cfg := Default()
	cfg.Weights.Overlap = 0.5 // now sums to 1.25
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownStorage(t *testing.T) {
	cfg := Default()
	cfg.Storage.Type = "cassandra"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedConfidence(t *testing.T) {
	cfg := Default()
	cfg.Thresholds.MinConfidence = 0.99
	assert.Error(t, cfg.Validate())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.RepoPath = "/tmp/some-repo"
	cfg.Thresholds.HighRisk = 0.8
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/some-repo", loaded.RepoPath)
	assert.Equal(t, 0.8, loaded.Thresholds.HighRisk)
	assert.True(t, loaded.Weights.Normalized())
}

func TestEnvOverrideSwitchesStorage(t *testing.T) {
	t.Setenv("GITINTEL_POSTGRES_DSN", "postgres://u:p@localhost/gitintel")

	cfg := Default()
	applyEnvOverrides(cfg)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, "postgres://u:p@localhost/gitintel", cfg.Storage.PostgresDSN)
}

func TestEnvOverrideMaxCommits(t *testing.T) {
	t.Setenv("GITINTEL_MAX_COMMITS", "250")

	cfg := Default()
	applyEnvOverrides(cfg)
	assert.Equal(t, 250, cfg.History.MaxCommits)
}

func TestGetStringDefault(t *testing.T) {
	t.Setenv("GITINTEL_TEST_STR", "set")
	assert.Equal(t, "set", GetString("GITINTEL_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", GetString("GITINTEL_TEST_STR_MISSING", "fallback"))
}

func TestGetIntDefault(t *testing.T) {
	t.Setenv("GITINTEL_TEST_INT", "42")
	assert.Equal(t, 42, GetInt("GITINTEL_TEST_INT", 7))
	assert.Equal(t, 7, GetInt("GITINTEL_TEST_INT_MISSING", 7))

	t.Setenv("GITINTEL_TEST_INT_BAD", "not-a-number")
	assert.Equal(t, 7, GetInt("GITINTEL_TEST_INT_BAD", 7))
}
