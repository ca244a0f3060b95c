// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/woozymasta/pak"
	"github.com/woozymasta/pak/internal/logctx"
)

const (
	configName      = ".rcpak"
	configType      = "yaml"
	envPrefix       = "RCPAK"
	envKeySeparator = "_"

	defaultSizeCeiling = "2GiB"
	defaultMemoryLimit = "1GiB"
)

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"split-list":            "pack.split_list",
	"create-pak":            "pack.create_pak",
	"extract-to":            "pack.extract_to",
	"target-root":           "pack.target_root",
	"output-folder":         "pack.output_folder",
	"folder-in-pak":         "pack.folder_in_pak",
	"key":                   "pack.key",
	"sort":                  "pack.sort",
	"split":                 "pack.split",
	"exclude":               "pack.exclude",
	"store":                 "pack.store",
	"size-ceiling":          "pack.size_ceiling",
	"min-size":              "pack.min_source_size",
	"max-source-size":       "pack.max_source_size",
	"memory-limit":          "pack.memory_limit",
	"level":                 "pack.compression_level",
	"alignment":             "pack.alignment",
	"max-size":              "pack.max_archive_size_kib",
	"workers":               "pack.workers",
	"unpack-workers":        "pack.unpack_workers",
	"encrypt":               "pack.encrypt",
	"encrypt-content":       "pack.encrypt_content",
	"split-on-overflow":     "pack.split_on_overflow",
	"force-new":             "pack.force_new",
	"crc32-names":           "pack.name_as_crc32",
	"fastest-decompression": "pack.fastest_decompression",
	"fail-on-oversize":      "pack.fail_on_oversize",
	"manifest":              "manifest",
	"log-level":             "log.level",
	"log-format":            "log.format",
}

// RegisterPackFlags adds the packing flags to fs. Defaults mirror the loader
// defaults so an untouched flag never shadows the config file.
func RegisterPackFlags(fs *pflag.FlagSet) {
	fs.String("split-list", "", "split list YAML assigning files to named paks")
	fs.StringP("create-pak", "o", "", "output pak name")
	fs.StringP("extract-to", "x", "", "extract source paks into this folder")
	fs.String("target-root", "", "root folder for relative output paths")
	fs.String("output-folder", "", "subfolder of the target root for produced paks")
	fs.String("folder-in-pak", "", "folder prepended to every in-archive path")
	fs.String("key", "", "128-bit encryption key as 32 hex characters")
	fs.String("sort", string(pak.SortAlphabetical), "sort policy: none, size, streaming, suffix, alphabetical")
	fs.String("split", "", "split policy: original, basedir, streaming, suffix")
	fs.StringSlice("exclude", nil, "source path patterns to skip")
	fs.StringSlice("store", nil, "path patterns stored without compression")
	fs.String("size-ceiling", defaultSizeCeiling, "hard archive size ceiling")
	fs.String("min-size", "", "skip sources smaller than this size")
	fs.String("max-source-size", "", "skip sources larger than this size")
	fs.String("memory-limit", defaultMemoryLimit, "payload bytes held by compression workers")
	fs.IntP("level", "l", pak.DefaultCompressionLevel, "compression level 0..9")
	fs.Int("alignment", 1, "entry data alignment in bytes")
	fs.Int64("max-size", 0, "maximum archive size in KiB (0 means unlimited)")
	fs.Int("workers", 0, "compression workers (0 means GOMAXPROCS)")
	fs.Int("unpack-workers", 0, "archives extracted concurrently (0 means half the CPUs)")
	fs.Bool("encrypt", false, "encrypt archive headers")
	fs.Bool("encrypt-content", false, "encrypt entry payloads")
	fs.Bool("split-on-overflow", false, "continue into numbered parts when an archive is full")
	fs.Bool("force-new", false, "rebuild archives from scratch")
	fs.Bool("crc32-names", false, "store entries under the CRC-32 of their path")
	fs.Bool("fastest-decompression", false, "prefer codecs that decode fastest")
	fs.Bool("fail-on-oversize", false, "fail when an archive exceeds the size ceiling")
	fs.String("manifest", "", "write a YAML manifest of produced paks")
}

// LoadConfig reads configuration with precedence flags > env > file > defaults.
// An explicit configPath must exist; otherwise .rcpak.yaml is looked up in the
// working directory and the home directory. flags may be nil.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	if err := viperCfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		if err := bindFlags(viperCfg, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := viperCfg.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// bindFlags binds every known flag present in flags.
func bindFlags(viperCfg *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}

		if err := viperCfg.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	return nil
}

// applyDefaults sets every key so AutomaticEnv can resolve it on Unmarshal.
func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("manifest", "")

	viperCfg.SetDefault("log.level", "info")
	viperCfg.SetDefault("log.format", logctx.FormatConsole)

	viperCfg.SetDefault("pack.split_list", "")
	viperCfg.SetDefault("pack.create_pak", "")
	viperCfg.SetDefault("pack.extract_to", "")
	viperCfg.SetDefault("pack.target_root", "")
	viperCfg.SetDefault("pack.output_folder", "")
	viperCfg.SetDefault("pack.folder_in_pak", "")
	viperCfg.SetDefault("pack.key", "")
	viperCfg.SetDefault("pack.sort", string(pak.SortAlphabetical))
	viperCfg.SetDefault("pack.split", "")
	viperCfg.SetDefault("pack.exclude", []string{})
	viperCfg.SetDefault("pack.store", []string{})

	viperCfg.SetDefault("pack.size_ceiling", defaultSizeCeiling)
	viperCfg.SetDefault("pack.min_source_size", "")
	viperCfg.SetDefault("pack.max_source_size", "")
	viperCfg.SetDefault("pack.memory_limit", defaultMemoryLimit)

	viperCfg.SetDefault("pack.compression_level", pak.DefaultCompressionLevel)
	viperCfg.SetDefault("pack.alignment", 1)
	viperCfg.SetDefault("pack.max_archive_size_kib", 0)
	viperCfg.SetDefault("pack.workers", 0)
	viperCfg.SetDefault("pack.unpack_workers", 0)

	viperCfg.SetDefault("pack.encrypt", false)
	viperCfg.SetDefault("pack.encrypt_content", false)
	viperCfg.SetDefault("pack.split_on_overflow", false)
	viperCfg.SetDefault("pack.force_new", false)
	viperCfg.SetDefault("pack.name_as_crc32", false)
	viperCfg.SetDefault("pack.fastest_decompression", false)
	viperCfg.SetDefault("pack.fail_on_oversize", false)
}
