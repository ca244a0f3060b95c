// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// extractWorkItem stores one selected entry with prepared output relative paths.
type extractWorkItem struct {
	entry   *archiveEntry
	relPath string
	relDir  string
}

// Extract writes selected entries to dstDir. Extraction is parallelized by
// MaxWorkers; on failure it returns the first encountered error.
func (a *Archive) Extract(ctx context.Context, dstDir string, opts ExtractOptions) error {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return ErrArchiveClosed
	}

	workers := max(opts.MaxWorkers, 0)
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	entries := opts.Entries
	if entries == nil {
		entries = a.Entries()
	}

	if len(entries) == 0 {
		return nil
	}

	fileMode := opts.FileMode
	if fileMode == "" {
		fileMode = ExtractFileModeAuto
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	workItems, err := a.prepareExtractWorkItems(entries, opts.RawNames)
	if err != nil {
		return err
	}

	if err := prepareExtractDirs(dstRootAbs, workItems); err != nil {
		return err
	}

	taskCh := make(chan extractWorkItem, len(workItems))
	errCh := make(chan error, len(workItems))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for range min(workers, len(workItems)) {
		wg.Go(func() {
			copyBuf := make([]byte, copyBufferSize)
			for task := range taskCh {
				err := a.extractPreparedEntry(ctx, dstRootAbs, task, fileMode, copyBuf, opts.OnEntryDone)
				if err != nil {
					cancel()
				}

				errCh <- err
			}
		})
	}

	for _, task := range workItems {
		taskCh <- task
	}

	close(taskCh)
	wg.Wait()
	close(errCh)

	var first error
	for err := range errCh {
		if err != nil && (first == nil || errors.Is(first, context.Canceled)) {
			first = err
		}
	}

	if first == nil {
		first = ctx.Err()
	}

	return first
}

// prepareExtractWorkItems resolves selected entries and prepares relative fs paths.
func (a *Archive) prepareExtractWorkItems(entries []EntryInfo, rawNames bool) ([]extractWorkItem, error) {
	var outNames []string
	if !rawNames {
		sanitized, err := sanitizeEntryPaths(entries)
		if err != nil {
			return nil, err
		}

		outNames = sanitized
	}

	workItems := make([]extractWorkItem, 0, len(entries))
	for i, info := range entries {
		entry := a.lookup(info.Name)
		if entry == nil {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, info.Name)
		}

		outName := info.Name
		if outNames != nil {
			outName = outNames[i]
		}

		normalizedPath, err := normalizeExtractEntryPath(outName)
		if err != nil {
			return nil, fmt.Errorf("normalize entry path %s: %w", info.Name, err)
		}

		relPath := filepath.FromSlash(normalizedPath)
		relDir := filepath.Dir(relPath)
		if relDir == "." {
			relDir = ""
		}

		workItems = append(workItems, extractWorkItem{entry: entry, relPath: relPath, relDir: relDir})
	}

	return workItems, nil
}

// prepareExtractDirs creates all unique parent directories needed by work items.
func prepareExtractDirs(dstRootAbs string, workItems []extractWorkItem) error {
	seen := make(map[string]struct{}, len(workItems))
	for _, task := range workItems {
		if task.relDir == "" {
			continue
		}

		dirPath := filepath.Join(dstRootAbs, task.relDir)
		if _, exists := seen[dirPath]; exists {
			continue
		}

		seen[dirPath] = struct{}{}
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dirPath, err)
		}
	}

	return nil
}

// extractPreparedEntry decodes one entry and writes it below the destination root.
func (a *Archive) extractPreparedEntry(
	ctx context.Context,
	dstRootAbs string,
	task extractWorkItem,
	fileMode ExtractFileMode,
	copyBuf []byte,
	onEntryDone func(entry EntryInfo, written int64, outputPath string),
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := task.entry.info.Name
	outPath := filepath.Join(dstRootAbs, task.relPath)
	if rel, err := filepath.Rel(dstRootAbs, outPath); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrExtractPathOutsideRoot, name)
	}

	data, err := a.readEntry(task.entry)
	if err != nil {
		return err
	}

	file, err := openExtractFile(outPath, fileMode)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}

	written, copyErr := copyExtractData(file, bytes.NewReader(data), copyBuf)
	closeErr := file.Close()
	if copyErr != nil {
		return fmt.Errorf("write %s: %w", name, copyErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close %s: %w", name, closeErr)
	}

	if onEntryDone != nil {
		onEntryDone(task.entry.info, written, outPath)
	}

	return nil
}

// openExtractFile opens output path according to selected extract file mode.
func openExtractFile(path string, mode ExtractFileMode) (*os.File, error) {
	switch mode {
	case ExtractFileModeAuto:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil || !os.IsExist(err) {
			return file, err
		}

		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExtractFileModeTruncate:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExtractFileModeCreateOnly:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	default:
		return nil, fmt.Errorf("unknown extract file mode %q", mode)
	}
}

// copyExtractData copies one entry stream to output file using fixed worker buffer.
func copyExtractData(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	if len(buf) == 0 {
		return 0, io.ErrShortBuffer
	}

	return io.CopyBuffer(struct{ io.Writer }{dst}, struct{ io.Reader }{src}, buf)
}

// normalizeExtractEntryPath normalizes entry path and rejects absolute/traversal inputs.
func normalizeExtractEntryPath(entryPath string) (string, error) {
	raw := strings.TrimSpace(entryPath)
	if raw == "" || strings.ContainsRune(raw, 0) {
		return "", ErrInvalidExtractPath
	}

	if strings.HasPrefix(raw, `/`) || strings.HasPrefix(raw, `\`) {
		return "", ErrInvalidExtractPath
	}

	raw = strings.ReplaceAll(raw, `\`, `/`)
	if hasWindowsAbsDrivePrefix(raw) {
		return "", ErrInvalidExtractPath
	}

	parts := strings.Split(raw, `/`)
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidExtractPath
		default:
			cleanParts = append(cleanParts, part)
		}
	}

	if len(cleanParts) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(cleanParts, `/`), nil
}

// hasWindowsAbsDrivePrefix reports whether path starts with drive-root prefix like C:/.
func hasWindowsAbsDrivePrefix(path string) bool {
	if len(path) < 3 {
		return false
	}

	c := path[0] | 0x20
	return c >= 'a' && c <= 'z' && path[1] == ':' && path[2] == '/'
}
