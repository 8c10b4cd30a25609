package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified/pkg/core"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "build.toml", `
root = "game"
output = "game-1.2"
update = "game-1.1"
compress = true
exclude = ["**/*.log", "tmp"]

[log]
level = "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "game", cfg.Root)
	assert.Equal(t, "game-1.2", cfg.Output)
	assert.Equal(t, "game-1.1", cfg.Update)
	assert.True(t, cfg.Compress)
	assert.Equal(t, []string{"**/*.log", "tmp"}, cfg.Exclude)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Log.JSON)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "build.yaml", `
root: game
output: game
exclude:
  - "*.bak"
log:
  json: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "game", cfg.Root)
	assert.False(t, cfg.Compress)
	assert.Equal(t, []string{"*.bak"}, cfg.Exclude)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "info", cfg.Log.Level, "default kept")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, core.ErrConfig)

	_, err = Load(writeFile(t, "build.ini", "root=x"))
	assert.ErrorIs(t, err, core.ErrConfig)

	_, err = Load(writeFile(t, "bad.toml", "root = ["))
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestMerge(t *testing.T) {
	cfg := &Config{Root: "a", Output: "out", Exclude: []string{"x"}, Log: LogConfig{Level: "info"}}
	cfg.Merge(&Config{Root: "b", Compress: true, Exclude: []string{"y"}})

	assert.Equal(t, "b", cfg.Root)
	assert.Equal(t, "out", cfg.Output)
	assert.True(t, cfg.Compress)
	assert.Equal(t, []string{"x", "y"}, cfg.Exclude)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, (&Config{Output: "o"}).Validate(), ErrMissingRoot)
	assert.ErrorIs(t, (&Config{Root: "r"}).Validate(), ErrMissingOutput)
	assert.ErrorIs(t, (&Config{Root: "r"}).Validate(), core.ErrConfig)
	assert.ErrorIs(t, (&Config{Root: "r", Output: "o", Exclude: []string{"[a-"}}).Validate(), core.ErrConfig)
	assert.NoError(t, (&Config{Root: "r", Output: "o", Exclude: []string{"**/*.tmp"}}).Validate())
}

func TestOptions(t *testing.T) {
	cfg := &Config{Root: "r", Output: "o", Update: "u", Compress: true, Exclude: []string{"e"}}
	assert.Equal(t, core.Options{Root: "r", Name: "o", Update: "u", Compress: true, Exclude: []string{"e"}}, cfg.Options())
}
