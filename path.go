// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"fmt"
	"hash/crc32"
	"path"
	"path/filepath"
	"strings"
)

// reservedExtMarker starts extensions of intermediate files that are never packed.
const reservedExtMarker = '$'

// NormalizePath converts an archive/internal path to normalized slash-separated form.
// It trims spaces, accepts both "/" and "\", removes leading "./" and "/", and cleans "." segments.
func NormalizePath(raw string) string {
	raw = normalizePathForMatching(raw)
	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}

	return strings.TrimSuffix(raw, "/")
}

// normalizePathForMatching normalizes user/input paths for matcher use.
func normalizePathForMatching(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, `/`)
	p = strings.TrimPrefix(p, "./")
	return p
}

// normalizeArchiveEntryPath converts input path to canonical in-archive form.
func normalizeArchiveEntryPath(raw string) (string, error) {
	normalizedPath := NormalizePath(raw)
	if normalizedPath == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryPath, raw)
	}

	if len(normalizedPath) > maxNameLen {
		return "", fmt.Errorf("%w: name too long: %q", ErrInvalidEntryPath, raw)
	}

	return normalizedPath, nil
}

// entryKey is the case-insensitive lookup key for an in-archive path.
func entryKey(name string) string {
	return strings.ToLower(NormalizePath(name))
}

// joinArchivePath prefixes rel with folder inside the archive.
func joinArchivePath(folder, rel string) string {
	folder = NormalizePath(folder)
	rel = NormalizePath(rel)
	if folder == "" {
		return rel
	}

	return folder + "/" + rel
}

// crc32Name returns the content-addressed entry name for an in-archive path.
func crc32Name(name string) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(entryKey(name))))
}

// isPackExcluded reports files that are never packed: reserved-marker
// extensions and nested archives.
func isPackExcluded(name string) bool {
	ext := path.Ext(NormalizePath(name))
	if len(ext) > 1 && ext[1] == reservedExtMarker {
		return true
	}

	return strings.EqualFold(ext, DefaultArchiveExt)
}

// partPath returns "<base>-part<N><ext>" for an archive path.
func partPath(archivePath string, index int) string {
	ext := filepath.Ext(archivePath)
	if ext == "" {
		ext = DefaultArchiveExt
	}

	return fmt.Sprintf("%s-part%d%s", strings.TrimSuffix(archivePath, filepath.Ext(archivePath)), index, ext)
}
