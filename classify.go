// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// SortPolicy orders files inside a bucket. Order decides which files land in
// which part when a bucket is split.
type SortPolicy string

// Sort policies.
const (
	SortNone         SortPolicy = "none"
	SortSize         SortPolicy = "size"
	SortStreaming    SortPolicy = "streaming"
	SortSuffix       SortPolicy = "suffix"
	SortAlphabetical SortPolicy = "alphabetical"
)

// SplitPolicy maps files to archive buckets.
type SplitPolicy string

// Split policies.
const (
	SplitOriginal  SplitPolicy = "original"
	SplitBaseDir   SplitPolicy = "basedir"
	SplitStreaming SplitPolicy = "streaming"
	SplitSuffix    SplitPolicy = "suffix"
)

// ParseSortPolicy parses a sort policy name; empty means alphabetical.
func ParseSortPolicy(name string) (SortPolicy, error) {
	switch p := SortPolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return SortAlphabetical, nil
	case SortNone, SortSize, SortStreaming, SortSuffix, SortAlphabetical:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortPolicy, name)
	}
}

// ParseSplitPolicy parses a split policy name. Empty means original, or
// streaming when files are sorted by streaming level.
func ParseSplitPolicy(name string, sortPolicy SortPolicy) (SplitPolicy, error) {
	switch p := SplitPolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		if sortPolicy == SortStreaming {
			return SplitStreaming, nil
		}

		return SplitOriginal, nil
	case SplitOriginal, SplitBaseDir, SplitStreaming, SplitSuffix:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSplitPolicy, name)
	}
}

// PakEntry is one source file assigned to a bucket.
type PakEntry struct {
	// Source is the discovered file.
	Source SourceFile `json:"source" yaml:"source"`
	// Name is the in-archive path.
	Name string `json:"name" yaml:"name"`
	// Suffix is the lower-case "_suffix" of the file stem, if any.
	Suffix string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
	// Size is the source size on disk, zero when unknown.
	Size int64 `json:"size" yaml:"size"`
	// MipLevel is the streamed mip level of "*.dds.N" files, -1 otherwise.
	MipLevel int `json:"mip_level" yaml:"mip_level"`
}

// Bucket is one target archive and its ordered files.
type Bucket struct {
	// Name is the archive path the bucket is written to.
	Name string `json:"name" yaml:"name"`
	// Entries are the files in packing order.
	Entries []PakEntry `json:"entries" yaml:"entries"`
}

// Classify groups files into buckets derived from archivePath. folder is
// prepended to every in-archive path. Buckets are ordered by name.
func Classify(files []SourceFile, folder string, archivePath string, sortPolicy SortPolicy, splitPolicy SplitPolicy) []Bucket {
	groups := make(map[string][]PakEntry)
	for _, file := range files {
		entry := newPakEntry(file, folder)
		name := bucketName(archivePath, entry, splitPolicy)
		groups[name] = append(groups[name], entry)
	}

	buckets := make([]Bucket, 0, len(groups))
	for name, entries := range groups {
		sortEntries(entries, sortPolicy)
		buckets = append(buckets, Bucket{Name: name, Entries: entries})
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets
}

// newPakEntry builds the entry and its sort hints.
func newPakEntry(file SourceFile, folder string) PakEntry {
	entry := PakEntry{
		Source:   file,
		Name:     joinArchivePath(folder, file.RelativePath),
		MipLevel: -1,
	}

	if fi, err := os.Stat(file.RealPath()); err == nil {
		entry.Size = fi.Size()
	}

	base := path.Base(entry.Name)
	if ext := path.Ext(base); len(ext) > 1 {
		if level, err := strconv.Atoi(ext[1:]); err == nil && strings.EqualFold(path.Ext(strings.TrimSuffix(base, ext)), ".dds") {
			entry.MipLevel = level
			base = strings.TrimSuffix(base, ext)
		}
	}

	stem := strings.TrimSuffix(base, path.Ext(base))
	if idx := strings.LastIndexByte(stem, '_'); idx > 0 && idx < len(stem)-1 {
		entry.Suffix = strings.ToLower(stem[idx+1:])
	}

	return entry
}

// bucketName returns the archive path for one entry.
func bucketName(archivePath string, entry PakEntry, policy SplitPolicy) string {
	var qualifier string
	switch policy {
	case SplitBaseDir:
		if dir, _, ok := strings.Cut(entry.Name, "/"); ok {
			qualifier = strings.ToLower(dir)
		}
	case SplitStreaming:
		if entry.MipLevel >= 0 {
			qualifier = "mip" + strconv.Itoa(entry.MipLevel)
		}
	case SplitSuffix:
		qualifier = entry.Suffix
	}

	if qualifier == "" {
		return archivePath
	}

	ext := filepath.Ext(archivePath)
	return strings.TrimSuffix(archivePath, ext) + "_" + qualifier + ext
}

// sortEntries orders entries in place by policy.
func sortEntries(entries []PakEntry, policy SortPolicy) {
	byName := func(a, b PakEntry) bool {
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}

		return a.Name < b.Name
	}

	var less func(a, b PakEntry) bool
	switch policy {
	case SortSize:
		less = func(a, b PakEntry) bool {
			if a.Size != b.Size {
				return a.Size < b.Size
			}

			return byName(a, b)
		}
	case SortStreaming:
		// non-streamed files first, then coarse to fine mips
		less = func(a, b PakEntry) bool {
			if (a.MipLevel < 0) != (b.MipLevel < 0) {
				return a.MipLevel < 0
			}

			if a.MipLevel != b.MipLevel {
				return a.MipLevel > b.MipLevel
			}

			return byName(a, b)
		}
	case SortSuffix:
		less = func(a, b PakEntry) bool {
			if a.Suffix != b.Suffix {
				return a.Suffix < b.Suffix
			}

			return byName(a, b)
		}
	case SortAlphabetical:
		less = byName
	default:
		return
	}

	sort.SliceStable(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
}
