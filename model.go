// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"path/filepath"
	"runtime"
	"time"

	"github.com/woozymasta/pathrules"
)

// Internal zip layout sizes used for on-disk size prediction.
const (
	localHeaderLen   = 30 // local file header without name/extra
	centralHeaderLen = 46 // central directory header without name/extra/comment
	eocdLen          = 22 // end of central directory record without comment
	maxNameLen       = 0xffff
)

// Default packer tuning values.
const (
	// MinEmptyArchiveSize is the on-disk size of an archive without entries.
	MinEmptyArchiveSize = eocdLen
	// DefaultCompressionLevel is the deflate level used when none is configured.
	DefaultCompressionLevel = 6
	// DefaultMemoryLimit bounds compressed payloads held in flight by one batched add.
	DefaultMemoryLimit = 1 << 30
	// DefaultSizeCeiling is the hard archive size backstop (2 GiB).
	DefaultSizeCeiling = 2 << 30
	// DefaultArchiveExt is the extension of produced archives.
	DefaultArchiveExt = ".pak"
)

// Result is the aggregate outcome of a manager operation.
type Result int

// Results ordered by severity; merging keeps the most severe one.
const (
	// ResultSkipped means nothing was requested or nothing was done.
	ResultSkipped Result = iota
	// ResultSucceeded means every bucket was processed.
	ResultSucceeded
	// ResultErroneous means non-fatal problems such as name collisions occurred.
	ResultErroneous
	// ResultFailed means at least one archive may be left inconsistent.
	ResultFailed
	// ResultBadArgs means arguments were rejected before any file was touched.
	ResultBadArgs
)

// String returns lower-case result name.
func (r Result) String() string {
	switch r {
	case ResultSkipped:
		return "skipped"
	case ResultSucceeded:
		return "succeeded"
	case ResultErroneous:
		return "erroneous"
	case ResultFailed:
		return "failed"
	case ResultBadArgs:
		return "bad_args"
	default:
		return "unknown"
	}
}

// merge returns the more severe of two results.
func (r Result) merge(other Result) Result {
	if other > r {
		return other
	}

	return r
}

// FileStatus is the per-file outcome of a batched add.
type FileStatus int

// Per-file outcomes reported by Archive.UpdateMultipleFiles.
const (
	StatusAdded FileStatus = iota
	StatusUpToDate
	StatusSkipped
	StatusMissing
	StatusFailed
)

// String returns lower-case status name.
func (s FileStatus) String() string {
	switch s {
	case StatusAdded:
		return "added"
	case StatusUpToDate:
		return "up-to-date"
	case StatusSkipped:
		return "skipped"
	case StatusMissing:
		return "missing"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FileReport is one per-file outcome event.
type FileReport struct {
	// Name is the in-archive path.
	Name string `json:"name" yaml:"name"`
	// RealPath is the source file path on disk.
	RealPath string `json:"real_path,omitempty" yaml:"real_path,omitempty"`
	// Reason describes why a file failed or was skipped.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
	// Status is the outcome.
	Status FileStatus `json:"status" yaml:"status"`
	// Size is the source size in bytes.
	Size int64 `json:"size,omitempty" yaml:"size,omitempty"`
	// StoredSize is the payload size written to the archive.
	StoredSize int64 `json:"stored_size,omitempty" yaml:"stored_size,omitempty"`
	// Method is the payload method for added files.
	Method Method `json:"method,omitempty" yaml:"method,omitempty"`
}

// SourceFile is one discovered input file.
type SourceFile struct {
	// SourceRoot is the directory the file was discovered under.
	SourceRoot string `json:"source_root" yaml:"source_root"`
	// RelativePath is the path below SourceRoot, also the default in-archive path.
	RelativePath string `json:"relative_path" yaml:"relative_path"`
	// TargetRoot is the output root for produced archives.
	TargetRoot string `json:"target_root,omitempty" yaml:"target_root,omitempty"`
}

// RealPath returns the absolute or root-relative path of the file on disk.
func (f SourceFile) RealPath() string {
	return filepath.Join(f.SourceRoot, filepath.FromSlash(f.RelativePath))
}

// EntryInfo describes a single archive entry.
type EntryInfo struct {
	// Modified is the entry modification time (2-second resolution).
	Modified time.Time `json:"modified" yaml:"modified"`
	// Name is the entry path as stored in the archive.
	Name string `json:"name" yaml:"name"`
	// CompressedSize is the stored payload size in bytes.
	CompressedSize int64 `json:"compressed_size" yaml:"compressed_size"`
	// UncompressedSize is the original data size in bytes.
	UncompressedSize int64 `json:"uncompressed_size" yaml:"uncompressed_size"`
	// CRC32 is the IEEE checksum of the uncompressed data.
	CRC32 uint32 `json:"crc32" yaml:"crc32"`
	// Method is the payload compression method.
	Method Method `json:"method" yaml:"method"`
	// Encrypted reports whether the payload is encrypted.
	Encrypted bool `json:"encrypted,omitempty" yaml:"encrypted,omitempty"`
}

// ArchiveOptions configures OpenArchive.
type ArchiveOptions struct {
	// Key is used for header and content encryption; nil disables both.
	Key *Key `json:"-" yaml:"-"`
	// Alignment pads entry data offsets to a multiple of this value.
	Alignment int `json:"alignment,omitempty" yaml:"alignment,omitempty"`
	// EncryptHeaders encrypts the central directory on Close and decrypts it on open.
	EncryptHeaders bool `json:"encrypt_headers,omitempty" yaml:"encrypt_headers,omitempty"`
	// ReadOnly opens an existing archive without creating or rewriting it.
	ReadOnly bool `json:"read_only,omitempty" yaml:"read_only,omitempty"`
}

// UpdateOptions configures Archive.UpdateMultipleFiles.
type UpdateOptions struct {
	// StoreRules select paths written without compression.
	StoreRules []pathrules.Rule `json:"store_rules,omitempty" yaml:"store_rules,omitempty"`
	// StoreMatcherOptions control store rule matching.
	StoreMatcherOptions pathrules.MatcherOptions `json:"store_matcher_options,omitzero" yaml:"store_matcher_options,omitzero"`
	// CompressionLevel is 0 for store, 1..9 for deflate levels.
	CompressionLevel int `json:"compression_level" yaml:"compression_level"`
	// MaxArchiveSize skips further files once the archive grows past it (zero means unlimited).
	MaxArchiveSize int64 `json:"max_archive_size,omitempty" yaml:"max_archive_size,omitempty"`
	// MinSourceSize skips sources smaller than this size.
	MinSourceSize int64 `json:"min_source_size,omitempty" yaml:"min_source_size,omitempty"`
	// MaxSourceSize skips sources larger than this size (zero means unlimited).
	MaxSourceSize int64 `json:"max_source_size,omitempty" yaml:"max_source_size,omitempty"`
	// MemoryLimit bounds payload bytes held by compression workers.
	MemoryLimit int64 `json:"memory_limit,omitempty" yaml:"memory_limit,omitempty"`
	// Workers is number of compression workers (zero means GOMAXPROCS).
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
	// EncryptContent encrypts compressed payloads with the archive key.
	EncryptContent bool `json:"encrypt_content,omitempty" yaml:"encrypt_content,omitempty"`
	// FastestDecompression picks the candidate codec that decodes fastest.
	FastestDecompression bool `json:"fastest_decompression,omitempty" yaml:"fastest_decompression,omitempty"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(entry EntryInfo, written int64, outputPath string) `json:"-" yaml:"-"`
	// FileMode controls output file creation policy.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// Entries limits extraction to selected entries; nil means all entries.
	Entries []EntryInfo `json:"-" yaml:"-"`
	// MaxWorkers is number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// RawNames disables default path sanitization during extract.
	RawNames bool `json:"raw_names,omitempty" yaml:"raw_names,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeAuto first tries create-only, then falls back to truncate for existing files.
	ExtractFileModeAuto ExtractFileMode = "auto"
	// ExtractFileModeTruncate opens existing files with truncate and creates missing files.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// Options configures Manager.
type Options struct {
	// OnUnpackProgress receives one event per finished archive in extract mode.
	OnUnpackProgress func(UnpackProgress) `json:"-" yaml:"-"`
	// Reporter receives per-file outcomes; nil logs through the context logger.
	Reporter Reporter `json:"-" yaml:"-"`

	// SplitList is the split list file path (split-list-to-paks mode).
	SplitList string `json:"split_list,omitempty" yaml:"split_list,omitempty"`
	// CreatePak is the output archive name (create-single-pak mode).
	CreatePak string `json:"create_pak,omitempty" yaml:"create_pak,omitempty"`
	// ExtractTo is the output folder (unpack mode).
	ExtractTo string `json:"extract_to,omitempty" yaml:"extract_to,omitempty"`
	// TargetRoot is the root for relative archive paths.
	TargetRoot string `json:"target_root,omitempty" yaml:"target_root,omitempty"`
	// OutputFolder is a subfolder below TargetRoot for produced archives.
	OutputFolder string `json:"output_folder,omitempty" yaml:"output_folder,omitempty"`
	// FolderInPak is prepended to every in-archive path.
	FolderInPak string `json:"folder_in_pak,omitempty" yaml:"folder_in_pak,omitempty"`
	// Key is the 32 hex character encryption key.
	Key string `json:"-" yaml:"-"`
	// SortPolicy is one of none, size, streaming, suffix, alphabetical.
	SortPolicy string `json:"sort_policy,omitempty" yaml:"sort_policy,omitempty"`
	// SplitPolicy is one of original, basedir, streaming, suffix.
	SplitPolicy string `json:"split_policy,omitempty" yaml:"split_policy,omitempty"`

	// Exclude rules drop matching source paths before classification.
	Exclude []pathrules.Rule `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	// StoreRules select paths written without compression.
	StoreRules []pathrules.Rule `json:"store_rules,omitempty" yaml:"store_rules,omitempty"`

	// CompressionLevel is 0 for store, 1..9 for deflate levels.
	CompressionLevel int `json:"compression_level" yaml:"compression_level"`
	// Alignment pads entry data offsets to a multiple of this value.
	Alignment int `json:"alignment,omitempty" yaml:"alignment,omitempty"`
	// MaxArchiveSize is the per-part byte budget (zero means unlimited).
	MaxArchiveSize int64 `json:"max_archive_size,omitempty" yaml:"max_archive_size,omitempty"`
	// SizeCeiling is the hard size backstop checked after each close.
	SizeCeiling int64 `json:"size_ceiling,omitempty" yaml:"size_ceiling,omitempty"`
	// MinSourceSize skips sources smaller than this size.
	MinSourceSize int64 `json:"min_source_size,omitempty" yaml:"min_source_size,omitempty"`
	// MaxSourceSize skips sources larger than this size (zero means unlimited).
	MaxSourceSize int64 `json:"max_source_size,omitempty" yaml:"max_source_size,omitempty"`
	// MemoryLimit bounds payload bytes held by compression workers.
	MemoryLimit int64 `json:"memory_limit,omitempty" yaml:"memory_limit,omitempty"`
	// Workers is number of compression workers (zero means GOMAXPROCS).
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
	// UnpackWorkers is number of archives extracted concurrently (zero means half the CPUs).
	UnpackWorkers int `json:"unpack_workers,omitempty" yaml:"unpack_workers,omitempty"`

	// EncryptHeaders encrypts archive central directories.
	EncryptHeaders bool `json:"encrypt_headers,omitempty" yaml:"encrypt_headers,omitempty"`
	// EncryptContent encrypts entry payloads.
	EncryptContent bool `json:"encrypt_content,omitempty" yaml:"encrypt_content,omitempty"`
	// SplitOnOverflow moves files that do not fit into numbered parts.
	SplitOnOverflow bool `json:"split_on_overflow,omitempty" yaml:"split_on_overflow,omitempty"`
	// ForceNew rebuilds archives from scratch instead of updating them.
	ForceNew bool `json:"force_new,omitempty" yaml:"force_new,omitempty"`
	// NameAsCRC32 stores entries under the CRC-32 of their path.
	NameAsCRC32 bool `json:"name_as_crc32,omitempty" yaml:"name_as_crc32,omitempty"`
	// FastestDecompression picks the candidate codec that decodes fastest.
	FastestDecompression bool `json:"fastest_decompression,omitempty" yaml:"fastest_decompression,omitempty"`
	// FailOnOversize turns the size ceiling warning into a failure.
	FailOnOversize bool `json:"fail_on_oversize,omitempty" yaml:"fail_on_oversize,omitempty"`
}

// DefaultOptions returns options with the documented defaults.
func DefaultOptions() Options {
	return Options{
		CompressionLevel: DefaultCompressionLevel,
		Alignment:        1,
		SortPolicy:       string(SortAlphabetical),
		SizeCeiling:      DefaultSizeCeiling,
		MemoryLimit:      DefaultMemoryLimit,
	}
}

// applyDefaults fills zero-valued archive options with defaults.
func (opts *ArchiveOptions) applyDefaults() {
	if opts.Alignment < 1 {
		opts.Alignment = 1
	}
}

// applyDefaults fills zero-valued update options with defaults.
func (opts *UpdateOptions) applyDefaults() {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	if opts.MemoryLimit <= 0 {
		opts.MemoryLimit = DefaultMemoryLimit
	}

	if opts.CompressionLevel < 0 {
		opts.CompressionLevel = DefaultCompressionLevel
	}

	if opts.CompressionLevel > 9 {
		opts.CompressionLevel = 9
	}

	if opts.StoreMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.StoreMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.StoreMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.StoreMatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}

// applyDefaults fills zero-valued manager options with defaults.
func (opts *Options) applyDefaults() {
	if opts.Alignment < 1 {
		opts.Alignment = 1
	}

	if opts.SizeCeiling <= 0 {
		opts.SizeCeiling = DefaultSizeCeiling
	}

	if opts.MemoryLimit <= 0 {
		opts.MemoryLimit = DefaultMemoryLimit
	}

	if opts.CompressionLevel < 0 {
		opts.CompressionLevel = DefaultCompressionLevel
	}
}

// updateOptions derives batched add options.
func (opts *Options) updateOptions() UpdateOptions {
	return UpdateOptions{
		StoreRules:           opts.StoreRules,
		CompressionLevel:     opts.CompressionLevel,
		MaxArchiveSize:       opts.MaxArchiveSize,
		MinSourceSize:        opts.MinSourceSize,
		MaxSourceSize:        opts.MaxSourceSize,
		MemoryLimit:          opts.MemoryLimit,
		Workers:              opts.Workers,
		EncryptContent:       opts.EncryptContent,
		FastestDecompression: opts.FastestDecompression,
	}
}
