package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Household", "EUR", "checking")
	cfg.Store.Backend = BackendSQLite
	cfg.Dedup.Strict = true
	cfg.Rules.MinConfidence = 0.75

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("Household", "EUR", "checking")

	assert.Equal(t, "Household", cfg.Project.Name)
	assert.Equal(t, "EUR", cfg.Import.DefaultCurrency)
	assert.Equal(t, "checking", cfg.Import.DefaultAccount)
	assert.Equal(t, 4, cfg.Import.Workers)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Git.AutoCommit)
	assert.InDelta(t, 0.01, cfg.Dedup.AmountTolerance, 1e-9)
	assert.InDelta(t, 0.6, cfg.Rules.MinConfidence, 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("project:\n  name: Mini\nimport:\n  default_currency: USD\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Mini", cfg.Project.Name)
	assert.Equal(t, "USD", cfg.Import.DefaultCurrency)
	assert.Equal(t, 4, cfg.Import.Workers)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Rules.LearningThreshold)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Household", "EUR", "checking")))

	t.Setenv("TALLY_LOG_LEVEL", "debug")
	t.Setenv("TALLY_LOG_FORMAT", "json")
	t.Setenv("TALLY_STORE_BACKEND", "sqlite")
	t.Setenv("TALLY_SQLITE_PATH", "/tmp/x.db")
	t.Setenv("TALLY_DEFAULT_ACCOUNT", "savings")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/x.db", cfg.Store.SQLitePath)
	assert.Equal(t, "savings", cfg.Import.DefaultAccount)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("project: [unterminated"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestValidate(t *testing.T) {
	cfg := Default("x", "XXX", "")
	cfg.Store.Backend = "postgres"
	cfg.Logging.Format = "xml"
	cfg.Import.Workers = 0
	cfg.Rules.MinConfidence = 1.5
	cfg.Dedup.AmountTolerance = -1

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"default_currency", "workers", `unknown backend "postgres"`, `unknown format "xml"`, "min_confidence", "dedup"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Household", "EUR", "checking")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Household")
	assert.Contains(t, contents, "default_currency: EUR")
	assert.Contains(t, contents, "backend: file")
	assert.Contains(t, contents, "auto_commit: true")
	assert.Contains(t, contents, "min_confidence: 0.6")
}
