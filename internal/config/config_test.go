package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bern.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Kind)
	assert.Equal(t, "bern.db", cfg.Store.Path)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadYAMLWithInlineDimensions(t *testing.T) {
	path := writeConfig(t, `
data:
  dir: /srv/bern
  taxa: species.tsv
  links: relations.tsv
dimensions:
  - name: GWT
    long_name: groundwater table
    min: 0
    max: 200
  - name: pH
    min: 2
    max: 9
store:
  kind: sqlite
  path: /var/lib/bern.db
workers: 3
logging:
  level: debug
  development: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/bern", cfg.Data.Dir)
	assert.Equal(t, "species.tsv", cfg.Data.Taxa)
	require.Len(t, cfg.Dimensions, 2)
	assert.Equal(t, "groundwater table", cfg.Dimensions[0].LongName)
	assert.Equal(t, 9.0, cfg.Dimensions[1].Max)
	assert.Equal(t, "sqlite", cfg.Store.Kind)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.Logging.Development)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "workers: 3\nstore:\n  kind: memory\n")
	t.Setenv("BERN_WORKERS", "7")
	t.Setenv("BERN_STORE", "sqlite")
	t.Setenv("BERN_DB_PATH", "/tmp/other.db")
	t.Setenv("BERN_LOG_LEVEL", "warn")
	t.Setenv("BERN_DATA_DIR", "/data")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, "sqlite", cfg.Store.Kind)
	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/data", cfg.Data.Dir)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]string{
		"store kind":     "store:\n  kind: postgres\n",
		"workers":        "workers: -1\n",
		"duplicate dims": "dimensions:\n  - name: pH\n  - name: pH\n",
		"yaml":           "workers: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
