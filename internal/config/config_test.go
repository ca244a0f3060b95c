// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/pathrules"

	"github.com/woozymasta/pak"
	"github.com/woozymasta/pak/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		Log: config.LogConfig{Level: "info", Format: "console"},
		Pack: config.PackConfig{
			CreatePak:        "data.pak",
			CompressionLevel: 6,
			Alignment:        1,
			SizeCeiling:      "2GiB",
			MemoryLimit:      "1GiB",
		},
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rcpak.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestValidate_ValidConfig_NoError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"level below range", func(c *config.Config) { c.Pack.CompressionLevel = -1 }, config.ErrInvalidCompressionLevel},
		{"level above range", func(c *config.Config) { c.Pack.CompressionLevel = 10 }, config.ErrInvalidCompressionLevel},
		{"zero alignment", func(c *config.Config) { c.Pack.Alignment = 0 }, config.ErrInvalidAlignment},
		{"negative max size", func(c *config.Config) { c.Pack.MaxArchiveSizeKiB = -1 }, config.ErrInvalidMaxArchiveSize},
		{"negative workers", func(c *config.Config) { c.Pack.Workers = -2 }, config.ErrInvalidWorkers},
		{"negative unpack workers", func(c *config.Config) { c.Pack.UnpackWorkers = -1 }, config.ErrInvalidWorkers},
		{"bad memory limit", func(c *config.Config) { c.Pack.MemoryLimit = "lots" }, config.ErrInvalidSize},
		{"bad ceiling", func(c *config.Config) { c.Pack.SizeCeiling = "2 bananas" }, config.ErrInvalidSize},
		{"min above max", func(c *config.Config) {
			c.Pack.MinSourceSize = "2MiB"
			c.Pack.MaxSourceSize = "1MiB"
		}, config.ErrInvalidSourceRange},
		{"bad log level", func(c *config.Config) { c.Log.Level = "loud" }, config.ErrInvalidLogLevel},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, config.ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestZerologLevel(t *testing.T) {
	t.Parallel()

	level, err := config.LogConfig{}.ZerologLevel()
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)

	level, err = config.LogConfig{Level: " DEBUG "}.ZerologLevel()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)
}

func TestToOptions(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Pack.MaxArchiveSizeKiB = 1024
	cfg.Pack.MemoryLimit = "512MiB"
	cfg.Pack.MinSourceSize = "1k"
	cfg.Pack.MaxSourceSize = ""
	cfg.Pack.SizeCeiling = ""
	cfg.Pack.Key = " 000102030405060708090a0b0c0d0e0f "
	cfg.Pack.Exclude = []string{"*.tmp", "!keep.tmp"}
	cfg.Pack.Store = []string{"*.ogg"}
	cfg.Pack.Encrypt = true
	cfg.Pack.SplitOnOverflow = true

	opts, err := cfg.ToOptions()
	require.NoError(t, err)

	assert.Equal(t, "data.pak", opts.CreatePak)
	assert.Equal(t, int64(1<<20), opts.MaxArchiveSize)
	assert.Equal(t, int64(512<<20), opts.MemoryLimit)
	assert.Equal(t, int64(1000), opts.MinSourceSize)
	assert.Zero(t, opts.MaxSourceSize)
	assert.Equal(t, int64(pak.DefaultSizeCeiling), opts.SizeCeiling)
	assert.Equal(t, "000102030405060708090a0b0c0d0e0f", opts.Key)
	assert.True(t, opts.EncryptHeaders)
	assert.True(t, opts.SplitOnOverflow)
	assert.Equal(t, []pathrules.Rule{
		{Action: pathrules.ActionInclude, Pattern: "*.tmp"},
		{Action: pathrules.ActionExclude, Pattern: "keep.tmp"},
	}, opts.Exclude)
	assert.Len(t, opts.StoreRules, 1)
}

func TestToOptions_BadSize(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Pack.MaxSourceSize = "huge"

	_, err := cfg.ToOptions()
	assert.ErrorIs(t, err, config.ErrInvalidSize)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""), nil)
	require.NoError(t, err)

	assert.Equal(t, pak.DefaultCompressionLevel, cfg.Pack.CompressionLevel)
	assert.Equal(t, 1, cfg.Pack.Alignment)
	assert.Equal(t, "alphabetical", cfg.Pack.Sort)
	assert.Equal(t, "2GiB", cfg.Pack.SizeCeiling)
	assert.Equal(t, "1GiB", cfg.Pack.MemoryLimit)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.Pack.CreatePak)
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
manifest: out/manifest.yaml
log:
  format: json
pack:
  create_pak: game.pak
  target_root: out
  compression_level: 9
  max_archive_size_kib: 4096
  split_on_overflow: true
  memory_limit: 256MiB
  exclude:
    - "*.bak"
    - "cache/"
`)

	cfg, err := config.LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "out/manifest.yaml", cfg.Manifest)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "game.pak", cfg.Pack.CreatePak)
	assert.Equal(t, "out", cfg.Pack.TargetRoot)
	assert.Equal(t, 9, cfg.Pack.CompressionLevel)
	assert.Equal(t, int64(4096), cfg.Pack.MaxArchiveSizeKiB)
	assert.True(t, cfg.Pack.SplitOnOverflow)
	assert.Equal(t, []string{"*.bak", "cache/"}, cfg.Pack.Exclude)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "pack:\n  compression_level: 9\n  create_pak: file.pak\n  sort: size\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterPackFlags(fs)
	require.NoError(t, fs.Parse([]string{"--level", "2", "--exclude", "a/,b/", "--force-new"}))

	cfg, err := config.LoadConfig(path, fs)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Pack.CompressionLevel)
	assert.Equal(t, "file.pak", cfg.Pack.CreatePak)
	assert.Equal(t, "size", cfg.Pack.Sort)
	assert.Equal(t, []string{"a/", "b/"}, cfg.Pack.Exclude)
	assert.True(t, cfg.Pack.ForceNew)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "pack:\n  compression_level: 9\n  create_pak: file.pak\n")

	t.Setenv("RCPAK_PACK_COMPRESSION_LEVEL", "3")
	t.Setenv("RCPAK_PACK_KEY", "000102030405060708090a0b0c0d0e0f")

	cfg, err := config.LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Pack.CompressionLevel)
	assert.Equal(t, "file.pak", cfg.Pack.CreatePak)
	assert.Equal(t, "000102030405060708090a0b0c0d0e0f", cfg.Pack.Key)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "pack:\n  compression_level: 12\n"), nil)
	require.ErrorIs(t, err, config.ErrInvalidCompressionLevel)
}
