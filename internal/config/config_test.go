package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, language.English, cfg.Language())
	assert.False(t, cfg.PredicateMethods)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	d := Default()
	assert.Equal(t, d.MessageRoot, cfg.MessageRoot)
	assert.Equal(t, d.Locale, cfg.Locale)
	assert.Equal(t, d.Log, cfg.Log)
	assert.Empty(t, cfg.ActionShortcuts)
	assert.Empty(t, cfg.Journal.Path)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "servactory.yaml", `
message_root: acme
locale: de-CH
predicate_methods: true
action_shortcuts: [assign, perform]
action_aliases: [execute]
log:
  level: debug
  format: console
journal:
  path: /tmp/journal.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.MessageRoot)
	assert.Equal(t, language.MustParse("de-CH"), cfg.Language())
	assert.True(t, cfg.PredicateMethods)
	assert.Equal(t, []string{"assign", "perform"}, cfg.ActionShortcuts)
	assert.Equal(t, []string{"execute"}, cfg.ActionAliases)
	assert.Equal(t, LogConfig{Level: "debug", Format: "console"}, cfg.Log)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal.Path)
}

func TestLoadJSONKeepsDefaults(t *testing.T) {
	path := writeFile(t, "servactory.json", `{"predicate_methods": true}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.PredicateMethods)
	assert.Equal(t, "servactory", cfg.MessageRoot)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVACTORY_LOCALE", "fr")
	t.Setenv("SERVACTORY_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fr", cfg.Locale)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "Config.Log.Level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "Config.Log.Format"},
		{"locale", func(c *Config) { c.Locale = "not a locale!" }, "Config.Locale"},
		{"empty root", func(c *Config) { c.MessageRoot = "" }, "Config.MessageRoot"},
		{"shortcut", func(c *Config) { c.ActionShortcuts = []string{"Assign-It"} }, "Config.ActionShortcuts[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
