package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spyglass.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 10*time.Second, cfg.ScanTimeoutDuration())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
workers = 8
scan_timeout = "2s"
languages = ["python", "go"]
catalog_cache = "/tmp/spyglass.db"

[watch]
enabled = true
debounce_ms = 50

[server]
listen = "127.0.0.1:7180"

[[scripts]]
language = "lua"
extensions = [".lua"]
path = "adapters/lua.risor"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 2*time.Second, cfg.ScanTimeoutDuration())
	assert.Equal(t, []string{"python", "go"}, cfg.Languages)
	assert.Equal(t, "/tmp/spyglass.db", cfg.CatalogCache)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 50*time.Millisecond, cfg.Debounce())
	assert.Equal(t, "127.0.0.1:7180", cfg.Server.Listen)
	require.Len(t, cfg.Scripts, 1)
	assert.Equal(t, "lua", cfg.Scripts[0].Language)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `scan_timeout = "soon"`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan_timeout")
}

func TestLoad_InvalidWorkers(t *testing.T) {
	path := writeConfig(t, `workers = 0`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestLoad_ScriptNeedsLanguageAndPath(t *testing.T) {
	path := writeConfig(t, `
[[scripts]]
extensions = [".x"]
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := writeConfig(t, `workers = [`)
	_, err := Load(path)
	require.Error(t, err)
}
