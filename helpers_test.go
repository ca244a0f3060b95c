// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/woozymasta/pathrules"
)

// includeRules builds include rules from raw patterns for concise test setup.
func includeRules(patterns ...string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		rules = append(rules, pathrules.Rule{
			Action:  pathrules.ActionInclude,
			Pattern: pattern,
		})
	}

	return rules
}

// writeSources writes files below root and returns them as discovered sources in name order.
func writeSources(t testing.TB, root string, files map[string][]byte) []SourceFile {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]SourceFile, 0, len(names))
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}

		if err := os.WriteFile(path, files[name], 0o600); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}

		sources = append(sources, SourceFile{SourceRoot: root, RelativePath: name})
	}

	return sources
}

// symbolData returns n deterministic bytes drawn from the first symbols letters,
// so deflate reaches a predictable ratio.
func symbolData(seed int64, n int, symbols int) []byte {
	rng := rand.New(rand.NewSource(seed))
	data := make([]byte, n)
	for i := range data {
		data[i] = byte('a' + rng.Intn(symbols))
	}

	return data
}

// packFiles writes files into a fresh archive at path and closes it.
func packFiles(t testing.TB, path string, files map[string][]byte, archiveOpts ArchiveOptions, updateOpts UpdateOptions) {
	t.Helper()

	root := t.TempDir()
	sources := writeSources(t, root, files)

	realPaths := make([]string, len(sources))
	names := make([]string, len(sources))
	for i, src := range sources {
		realPaths[i] = src.RealPath()
		names[i] = src.RelativePath
	}

	a, err := OpenArchive(path, archiveOpts)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}

	if err := a.UpdateMultipleFiles(context.Background(), realPaths, names, updateOpts, nil, nil); err != nil {
		_ = a.Close()
		t.Fatalf("UpdateMultipleFiles: %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// readAll reads every entry of an archive into a map keyed by entry name.
func readAll(t testing.TB, path string, opts ArchiveOptions) map[string][]byte {
	t.Helper()

	opts.ReadOnly = true
	a, err := OpenArchive(path, opts)
	if err != nil {
		t.Fatalf("OpenArchive(%s): %v", path, err)
	}
	defer func() { _ = a.Close() }()

	out := make(map[string][]byte, a.Len())
	for _, entry := range a.Entries() {
		data, err := a.ReadFile(entry.Name)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", entry.Name, err)
		}

		out[entry.Name] = data
	}

	return out
}

// recordingReporter collects reports for assertions.
type recordingReporter struct {
	mu      sync.Mutex
	reports []FileReport
	speeds  int
}

func (r *recordingReporter) ReportFile(report FileReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports = append(r.reports, report)
}

func (r *recordingReporter) ReportSpeed(float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.speeds++
}

// count returns the number of reports with status.
func (r *recordingReporter) count(status FileStatus) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, report := range r.reports {
		if report.Status == status {
			n++
		}
	}

	return n
}

// reset drops collected reports.
func (r *recordingReporter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports = nil
	r.speeds = 0
}
