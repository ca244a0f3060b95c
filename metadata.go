// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import "fmt"

// ListOptions configures ListEntries.
type ListOptions struct {
	// Method keeps only entries stored with this method when set.
	Method *Method `json:"method,omitempty" yaml:"method,omitempty"`
	// Prefix keeps entries under this in-archive folder (case-insensitive).
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// Archive are the open options; ReadOnly is always forced.
	Archive ArchiveOptions `json:"archive" yaml:"archive"`
	// MinSize keeps entries with at least this original size.
	MinSize int64 `json:"min_size,omitempty" yaml:"min_size,omitempty"`
}

// ListEntries opens an archive and returns entry metadata without payload reads.
func ListEntries(path string, opts ListOptions) ([]EntryInfo, error) {
	opts.Archive.ReadOnly = true

	a, err := OpenArchive(path, opts.Archive)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	defer func() { _ = a.Close() }()

	entries := a.Entries()
	entries = filterEntriesByPrefix(entries, opts.Prefix)
	entries = filterEntriesBySize(entries, opts.MinSize)
	if opts.Method != nil {
		entries = filterEntriesByMethod(entries, *opts.Method)
	}

	return entries, nil
}
