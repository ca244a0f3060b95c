// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import "errors"

// Sentinel errors for pak operations. Use errors.Is in callers.
var (
	// ErrCorruptArchive means the archive file exists but cannot be parsed.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrArchiveClosed means the archive handle is already closed.
	ErrArchiveClosed = errors.New("archive already closed")
	// ErrReadOnlyArchive means a mutating call was made on an archive opened read-only.
	ErrReadOnlyArchive = errors.New("archive opened read-only")
	// ErrEntryNotFound means the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrInvalidEntryPath means one of input entry paths is empty or invalid after normalization.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrMismatchedInputs means real path and archive name lists differ in length.
	ErrMismatchedInputs = errors.New("real path and archive name counts differ")
	// ErrUnsupportedMethod means an entry uses a compression method this package cannot decode.
	ErrUnsupportedMethod = errors.New("unsupported compression method")
	// ErrChecksumMismatch means decoded entry data does not match the stored CRC-32.
	ErrChecksumMismatch = errors.New("entry checksum mismatch")
	// ErrKeyRequired means encrypted data was found but no key was supplied.
	ErrKeyRequired = errors.New("encryption key required")
	// ErrInvalidKey means the encryption key string is malformed.
	ErrInvalidKey = errors.New("invalid encryption key")
	// ErrUnknownSortPolicy means the sort policy name is not recognized.
	ErrUnknownSortPolicy = errors.New("unknown sort policy")
	// ErrUnknownSplitPolicy means the split policy name is not recognized.
	ErrUnknownSplitPolicy = errors.New("unknown split policy")
	// ErrConflictingModes means more than one mode directive was configured.
	ErrConflictingModes = errors.New("split list, create and extract directives are mutually exclusive")
	// ErrNameCollision means two source paths map to the same content-addressed name.
	ErrNameCollision = errors.New("content-addressed name collision")
	// ErrArchiveTooLarge means a produced archive exceeds the configured ceiling.
	ErrArchiveTooLarge = errors.New("archive exceeds size ceiling")
	// ErrInvalidExtractPath means archive entry path is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrExtractPathOutsideRoot means resolved extraction path escapes destination root.
	ErrExtractPathOutsideRoot = errors.New("extract path escapes destination root")
	// ErrInvalidPattern means one or more path rules are invalid.
	ErrInvalidPattern = errors.New("invalid path rules")
	// ErrNoSourceFiles means no packable file was found.
	ErrNoSourceFiles = errors.New("no source files to pack")
	// ErrNoTargetArchive means an operation needs an output archive name and none is configured.
	ErrNoTargetArchive = errors.New("no target archive configured")
	// ErrInvalidSplitList means the split list file cannot be parsed.
	ErrInvalidSplitList = errors.New("invalid split list")
)
