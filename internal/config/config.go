// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

// Package config loads rcpak settings from defaults, an optional YAML file,
// RCPAK_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/woozymasta/pak"
	"github.com/woozymasta/pak/internal/logctx"
)

// Config is the top-level rcpak configuration.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	// Manifest is the YAML manifest path written after packing; empty disables it.
	Manifest string     `mapstructure:"manifest"`
	Log      LogConfig  `mapstructure:"log"`
	Pack     PackConfig `mapstructure:"pack"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PackConfig holds packing directives and modifiers.
type PackConfig struct {
	SplitList    string `mapstructure:"split_list"`
	CreatePak    string `mapstructure:"create_pak"`
	ExtractTo    string `mapstructure:"extract_to"`
	TargetRoot   string `mapstructure:"target_root"`
	OutputFolder string `mapstructure:"output_folder"`
	FolderInPak  string `mapstructure:"folder_in_pak"`
	Key          string `mapstructure:"key"`
	Sort         string `mapstructure:"sort"`
	Split        string `mapstructure:"split"`

	// Exclude and Store are path patterns; a "!" prefix negates one.
	Exclude []string `mapstructure:"exclude"`
	Store   []string `mapstructure:"store"`

	// Sizes accept humanized values such as "512MiB" or "64k".
	SizeCeiling   string `mapstructure:"size_ceiling"`
	MinSourceSize string `mapstructure:"min_source_size"`
	MaxSourceSize string `mapstructure:"max_source_size"`
	MemoryLimit   string `mapstructure:"memory_limit"`

	CompressionLevel int `mapstructure:"compression_level"`
	Alignment        int `mapstructure:"alignment"`
	// MaxArchiveSizeKiB is the per-part budget in KiB, zero means unlimited.
	MaxArchiveSizeKiB int64 `mapstructure:"max_archive_size_kib"`
	Workers           int   `mapstructure:"workers"`
	UnpackWorkers     int   `mapstructure:"unpack_workers"`

	Encrypt              bool `mapstructure:"encrypt"`
	EncryptContent       bool `mapstructure:"encrypt_content"`
	SplitOnOverflow      bool `mapstructure:"split_on_overflow"`
	ForceNew             bool `mapstructure:"force_new"`
	NameAsCRC32          bool `mapstructure:"name_as_crc32"`
	FastestDecompression bool `mapstructure:"fastest_decompression"`
	FailOnOversize       bool `mapstructure:"fail_on_oversize"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidCompressionLevel indicates a level outside 0..9.
	ErrInvalidCompressionLevel = errors.New("pack.compression_level must be between 0 and 9")
	// ErrInvalidAlignment indicates a non-positive alignment.
	ErrInvalidAlignment = errors.New("pack.alignment must be positive")
	// ErrInvalidMaxArchiveSize indicates a negative archive budget.
	ErrInvalidMaxArchiveSize = errors.New("pack.max_archive_size_kib must be non-negative")
	// ErrInvalidWorkers indicates a negative worker count.
	ErrInvalidWorkers = errors.New("pack.workers and pack.unpack_workers must be non-negative")
	// ErrInvalidSize indicates a size value humanize cannot parse.
	ErrInvalidSize = errors.New("invalid size")
	// ErrInvalidSourceRange indicates min_source_size above max_source_size.
	ErrInvalidSourceRange = errors.New("pack.min_source_size exceeds pack.max_source_size")
	// ErrInvalidLogLevel indicates an unknown zerolog level name.
	ErrInvalidLogLevel = errors.New("log.level is not a known level")
	// ErrInvalidLogFormat indicates an unknown log format.
	ErrInvalidLogFormat = errors.New("log.format must be json or console")
)

// Validate checks value ranges. Mode exclusivity and policy names are left to
// the pak manager, which reports them as bad arguments.
func (c *Config) Validate() error {
	if c.Pack.CompressionLevel < 0 || c.Pack.CompressionLevel > 9 {
		return ErrInvalidCompressionLevel
	}

	if c.Pack.Alignment < 1 {
		return ErrInvalidAlignment
	}

	if c.Pack.MaxArchiveSizeKiB < 0 {
		return ErrInvalidMaxArchiveSize
	}

	if c.Pack.Workers < 0 || c.Pack.UnpackWorkers < 0 {
		return ErrInvalidWorkers
	}

	sizes := map[string]string{
		"pack.size_ceiling":    c.Pack.SizeCeiling,
		"pack.min_source_size": c.Pack.MinSourceSize,
		"pack.max_source_size": c.Pack.MaxSourceSize,
		"pack.memory_limit":    c.Pack.MemoryLimit,
	}
	for key, value := range sizes {
		if _, err := parseSize(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	minSize, _ := parseSize(c.Pack.MinSourceSize)
	maxSize, _ := parseSize(c.Pack.MaxSourceSize)
	if maxSize > 0 && minSize > maxSize {
		return ErrInvalidSourceRange
	}

	if _, err := c.Log.ZerologLevel(); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", logctx.FormatJSON, logctx.FormatConsole:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}

	return nil
}

// ZerologLevel parses Level; empty means info.
func (l LogConfig) ZerologLevel() (zerolog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(l.Level))
	if name == "" {
		return zerolog.InfoLevel, nil
	}

	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}

// ToOptions converts the pack section into manager options.
func (c *Config) ToOptions() (pak.Options, error) {
	opts := pak.DefaultOptions()
	p := c.Pack

	opts.SplitList = p.SplitList
	opts.CreatePak = p.CreatePak
	opts.ExtractTo = p.ExtractTo
	opts.TargetRoot = p.TargetRoot
	opts.OutputFolder = p.OutputFolder
	opts.FolderInPak = p.FolderInPak
	opts.Key = strings.TrimSpace(p.Key)
	opts.SortPolicy = p.Sort
	opts.SplitPolicy = p.Split
	opts.Exclude = pak.PatternRules(p.Exclude)
	opts.StoreRules = pak.PatternRules(p.Store)

	opts.CompressionLevel = p.CompressionLevel
	opts.Alignment = p.Alignment
	opts.MaxArchiveSize = p.MaxArchiveSizeKiB * 1024
	opts.Workers = p.Workers
	opts.UnpackWorkers = p.UnpackWorkers

	opts.EncryptHeaders = p.Encrypt
	opts.EncryptContent = p.EncryptContent
	opts.SplitOnOverflow = p.SplitOnOverflow
	opts.ForceNew = p.ForceNew
	opts.NameAsCRC32 = p.NameAsCRC32
	opts.FastestDecompression = p.FastestDecompression
	opts.FailOnOversize = p.FailOnOversize

	// zero keeps the library default for ceiling and memory limit
	targets := []struct {
		dst      *int64
		key      string
		value    string
		keepZero bool
	}{
		{&opts.SizeCeiling, "pack.size_ceiling", p.SizeCeiling, false},
		{&opts.MinSourceSize, "pack.min_source_size", p.MinSourceSize, true},
		{&opts.MaxSourceSize, "pack.max_source_size", p.MaxSourceSize, true},
		{&opts.MemoryLimit, "pack.memory_limit", p.MemoryLimit, false},
	}
	for _, target := range targets {
		size, err := parseSize(target.value)
		if err != nil {
			return pak.Options{}, fmt.Errorf("%s: %w", target.key, err)
		}

		if size > 0 || target.keepZero {
			*target.dst = size
		}
	}

	return opts, nil
}

// parseSize parses a humanized byte size; empty means zero.
func parseSize(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidSize, value, err)
	}

	if size > math.MaxInt64 {
		return 0, fmt.Errorf("%w %q: too large", ErrInvalidSize, value)
	}

	return int64(size), nil
}
