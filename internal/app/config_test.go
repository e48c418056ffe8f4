package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/oskargrid/internal/oskar"
)

func TestNewConfig(t *testing.T) {
	valid := DefaultConfig()
	valid.GridPath = "grid"

	cfg, err := NewConfig(valid)
	require.NoError(t, err)
	assert.Equal(t, "grid", cfg.GridPath)

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"missing grid", func(c *Config) { c.GridPath = "" }, "GridPath is a required"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format"},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"no workers", func(c *Config) { c.WorkerCount = 0 }, "worker count must be at least 1"},
		{"bad port", func(c *Config) { c.HealthcheckPort = 70000 }, "invalid healthcheck port"},
		{"no binary", func(c *Config) { c.Oskar.ImagerBin = "" }, "OSKAR binary paths"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mutate(&c)
			_, err := NewConfig(c)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestNewConfig_NormalisesCase(t *testing.T) {
	c := DefaultConfig()
	c.GridPath = "grid"
	c.LogFormat = "JSON"
	c.LogLevel = "Debug"
	cfg, err := NewConfig(c)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oskargrid.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[log]
level = "debug"

[engine]
workers = 8

[oskar]
imager_bin = "/opt/oskar/bin/oskar_imager"
keep_work_dir = true
`), 0o644))

	fc, err := LoadFile(path)
	require.NoError(t, err)

	cfg := DefaultConfig()
	fc.Apply(&cfg)

	want := DefaultConfig()
	want.LogLevel = "debug"
	want.WorkerCount = 8
	want.Oskar = oskar.Config{
		InterferometerBin: oskar.DefaultConfig().InterferometerBin,
		ImagerBin:         "/opt/oskar/bin/oskar_imager",
		WorkDir:           oskar.DefaultConfig().WorkDir,
		KeepWorkDir:       true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("applied config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "opening config file")

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[engine]\nthreads = 2\n"), 0o644))
	_, err = LoadFile(path)
	assert.ErrorContains(t, err, "threads")
}

func TestParseLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", ""} {
		_, err := parseLevel(lvl)
		assert.NoError(t, err, lvl)
	}
	_, err := parseLevel("verbose")
	assert.Error(t, err)
}
