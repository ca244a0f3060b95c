// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/woozymasta/pathrules"

	"github.com/woozymasta/pak/internal/logctx"
)

// errDestination marks a destination directory that cannot be created; it aborts the whole call.
var errDestination = errors.New("create destination directory")

// Manager builds, updates and extracts pak archives.
//
// One Manager runs one operation at a time; produced archive paths are
// collected and available through Paks.
type Manager struct {
	key  *Key
	paks []string
	opts Options
	mu   sync.Mutex
}

// NewManager returns a manager for opts with defaults applied.
func NewManager(opts Options) *Manager {
	opts.applyDefaults()
	return &Manager{opts: opts}
}

// Options returns the effective options.
func (m *Manager) Options() Options {
	return m.opts
}

// Paks returns the registered archive paths in registration order.
func (m *Manager) Paks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.paks)
}

// OutputPath resolves an archive name against the target root and output folder.
func (m *Manager) OutputPath(name string) string {
	if filepath.Ext(name) == "" {
		name += DefaultArchiveExt
	}

	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}

	return filepath.Join(m.opts.TargetRoot, m.opts.OutputFolder, name)
}

// CompileFilesIntoPaks runs the configured mode over files: split list,
// single archive or extraction. No mode yields ResultSkipped.
func (m *Manager) CompileFilesIntoPaks(ctx context.Context, files []SourceFile) (Result, error) {
	logger := logctx.FromContext(ctx)

	modes := 0
	for _, directive := range []string{m.opts.SplitList, m.opts.CreatePak, m.opts.ExtractTo} {
		if directive != "" {
			modes++
		}
	}

	if modes > 1 {
		logger.Error().Err(ErrConflictingModes).Msg("bad arguments")
		return ResultBadArgs, ErrConflictingModes
	}

	switch {
	case m.opts.SplitList != "":
		return m.compileSplitList(ctx, files)
	case m.opts.CreatePak != "":
		return m.CreatePakFile(ctx, files, m.opts.FolderInPak, m.OutputPath(m.opts.CreatePak), !m.opts.ForceNew)
	case m.opts.ExtractTo != "":
		return Unpack(ctx, UnpackJobsFor(files, m.opts.ExtractTo), UnpackOptions{
			OnProgress: m.opts.OnUnpackProgress,
			Key:        m.opts.Key,
			Workers:    m.opts.UnpackWorkers,
		})
	default:
		logger.Info().Msg("no split list, create or extract directive, nothing to do")
		return ResultSkipped, nil
	}
}

// CreatePakFile classifies files and packs every bucket derived from
// requestedPath. folder is prepended to in-archive paths. With updateExisting
// unset every archive of a bucket chain is rebuilt from scratch.
func (m *Manager) CreatePakFile(
	ctx context.Context,
	files []SourceFile,
	folder string,
	requestedPath string,
	updateExisting bool,
) (Result, error) {
	logger := logctx.FromContext(ctx)

	sortPolicy, splitPolicy, exclude, err := m.preparePack()
	if err != nil {
		logger.Error().Err(err).Msg("bad arguments")
		return ResultBadArgs, err
	}

	reporter := NewLogReporter(logger, m.opts.Reporter)
	packable := make([]SourceFile, 0, len(files))
	for _, file := range files {
		name := joinArchivePath(folder, file.RelativePath)
		if exclude.Match(file.RelativePath) {
			continue
		}

		if isPackExcluded(name) {
			reporter.ReportFile(FileReport{
				Name:     name,
				RealPath: file.RealPath(),
				Status:   StatusSkipped,
				Reason:   "extension is never packed",
			})
			continue
		}

		packable = append(packable, file)
	}

	if len(packable) == 0 {
		logger.Error().Str("pak", requestedPath).Msg("no valid files found")
		return ResultFailed, fmt.Errorf("%s: %w", requestedPath, ErrNoSourceFiles)
	}

	result := ResultSkipped
	var errs []error
	for _, bucket := range Classify(packable, folder, requestedPath, sortPolicy, splitPolicy) {
		bucketResult, err := m.packBucket(ctx, bucket, updateExisting)
		result = result.merge(bucketResult)
		if err != nil {
			errs = append(errs, err)
		}

		if errors.Is(err, errDestination) {
			break
		}
	}

	return result, errors.Join(errs...)
}

// DeleteFilesFromPaks removes in-archive names from the configured archive and
// every part of its chain, then renumbers the chain.
func (m *Manager) DeleteFilesFromPaks(ctx context.Context, names []string) (Result, error) {
	if m.opts.CreatePak == "" {
		return ResultBadArgs, ErrNoTargetArchive
	}

	if _, _, _, err := m.preparePack(); err != nil {
		return ResultBadArgs, err
	}

	requested := m.OutputPath(m.opts.CreatePak)
	ctx = logctx.WithStr(ctx, "pak", requested)
	logger := logctx.FromContext(ctx)

	targets := chainPaths(requested)
	multi := len(targets) > 0
	if fileExists(requested) {
		targets = append([]string{requested}, targets...)
	}

	if len(targets) == 0 {
		logger.Info().Msg("archive does not exist, nothing to delete")
		return ResultSkipped, nil
	}

	removed := 0
	for _, target := range targets {
		a, err := OpenArchive(target, m.archiveOptions())
		if err != nil {
			return ResultFailed, fmt.Errorf("open %s: %w", target, err)
		}

		for _, name := range names {
			if a.RemoveFile(m.entryName(joinArchivePath(m.opts.FolderInPak, name))) {
				removed++
			}
		}

		if err := a.Close(); err != nil {
			return ResultFailed, fmt.Errorf("close %s: %w", target, err)
		}
	}

	logger.Info().Int("removed", removed).Int("requested", len(names)).Msg("files deleted")

	if err := m.finishBucket(ctx, requested, multi); err != nil {
		return ResultFailed, err
	}

	return ResultSucceeded, nil
}

// preparePack validates the packing arguments and caches the parsed key.
func (m *Manager) preparePack() (SortPolicy, SplitPolicy, *ruleMatcher, error) {
	sortPolicy, err := ParseSortPolicy(m.opts.SortPolicy)
	if err != nil {
		return "", "", nil, err
	}

	splitPolicy, err := ParseSplitPolicy(m.opts.SplitPolicy, sortPolicy)
	if err != nil {
		return "", "", nil, err
	}

	if m.opts.Key != "" {
		key, err := ParseKey(m.opts.Key)
		if err != nil {
			return "", "", nil, err
		}

		m.key = &key
	}

	if (m.opts.EncryptHeaders || m.opts.EncryptContent) && m.key == nil {
		return "", "", nil, ErrKeyRequired
	}

	exclude, err := newRuleMatcher(m.opts.Exclude, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		return "", "", nil, err
	}

	return sortPolicy, splitPolicy, exclude, nil
}

// bucketRun is the state of one bucket being packed.
type bucketRun struct {
	target    archiveTarget
	realPaths []string
	names     []string
	// ledger holds names committed to earlier parts.
	ledger []string
	// offset is the first name not yet committed.
	offset int
}

// archiveTarget tracks where one bucket is written.
type archiveTarget struct {
	requested string
	current   string
	part      int
	multi     bool
}

// advance redirects writes to the next part, renaming the unsuffixed archive
// to part 0 on the first split.
func (t *archiveTarget) advance() error {
	if !t.multi {
		if err := renameIfExists(t.requested, partPath(t.requested, 0)); err != nil {
			return err
		}

		t.multi = true
	}

	t.part++
	t.current = partPath(t.requested, t.part)
	return nil
}

// packBucket writes one bucket and registers the produced archives.
func (m *Manager) packBucket(ctx context.Context, bucket Bucket, updateExisting bool) (Result, error) {
	ctx = logctx.WithStr(ctx, "pak", bucket.Name)
	logger := logctx.FromContext(ctx)

	reporter := NewLogReporter(logger, m.opts.Reporter)
	defer reporter.LogSummary()

	if !updateExisting {
		if err := removeChain(bucket.Name); err != nil {
			logger.Error().Err(err).Msg("cannot remove previous archive")
			return ResultFailed, err
		}
	}

	dir := filepath.Dir(bucket.Name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		logger.Error().Err(err).Str("dir", dir).Msg("cannot create destination directory")
		return ResultFailed, fmt.Errorf("%w %s: %w", errDestination, dir, err)
	}

	run := &bucketRun{target: archiveTarget{requested: bucket.Name, current: bucket.Name}}
	if err := m.bucketInputs(run, bucket); err != nil {
		logger.Error().Err(err).Msg("bucket abandoned")
		return ResultErroneous, fmt.Errorf("%s: %w", bucket.Name, err)
	}

	if fileExists(partPath(bucket.Name, 0)) {
		run.target.multi = true
		run.target.current = partPath(bucket.Name, 0)
	}

	result, err := m.placeFiles(ctx, run, reporter)
	if result == ResultFailed && !errors.Is(err, ErrArchiveTooLarge) {
		logger.Error().Err(err).Msg("archive left in an inconsistent state")
		return result, err
	}

	if run.target.multi {
		if purgeErr := m.purgeStaleParts(ctx, run); purgeErr != nil {
			return ResultFailed, purgeErr
		}
	}

	if finishErr := m.finishBucket(ctx, bucket.Name, run.target.multi); finishErr != nil {
		return ResultFailed, finishErr
	}

	return result, err
}

// bucketInputs fills parallel real path and in-archive name lists, applying
// content-addressed names when enabled.
func (m *Manager) bucketInputs(run *bucketRun, bucket Bucket) error {
	run.realPaths = make([]string, 0, len(bucket.Entries))
	run.names = make([]string, 0, len(bucket.Entries))

	var seen map[string]string
	if m.opts.NameAsCRC32 {
		seen = make(map[string]string, len(bucket.Entries))
	}

	for _, entry := range bucket.Entries {
		name := entry.Name
		if seen != nil {
			hashed := crc32Name(name)
			if prev, ok := seen[hashed]; ok && entryKey(prev) != entryKey(name) {
				return fmt.Errorf("%w: %s and %s both map to %s", ErrNameCollision, prev, name, hashed)
			}

			seen[hashed] = name
			name = hashed
		}

		run.realPaths = append(run.realPaths, entry.Source.RealPath())
		run.names = append(run.names, name)
	}

	return nil
}

// placeFiles runs the split and retry loop until every name is committed.
func (m *Manager) placeFiles(ctx context.Context, run *bucketRun, reporter Reporter) (Result, error) {
	logger := logctx.FromContext(ctx)
	updateOpts := m.opts.updateOptions()
	splitEnabled := m.opts.SplitOnOverflow && m.opts.MaxArchiveSize > 0

	result := ResultSucceeded
	var ceilingErr error
	keepRetrying := false

	for run.offset < len(run.names) {
		a, err := m.openArchive(ctx, run.target.current)
		if err != nil {
			return ResultFailed, err
		}

		if !keepRetrying {
			for _, name := range run.ledger {
				a.RemoveFile(name)
			}
		}

		var splitter *SizeSplitter
		if splitEnabled {
			splitter = NewSizeSplitter(len(run.names)-run.offset-1, m.opts.MaxArchiveSize)
		}

		err = a.UpdateMultipleFiles(ctx, run.realPaths[run.offset:], run.names[run.offset:], updateOpts, reporter, splitter)
		if err != nil {
			_ = a.Close()
			return ResultFailed, fmt.Errorf("update %s: %w", run.target.current, err)
		}

		if splitter == nil || !splitter.HasReachedWriteLimit() {
			run.offset = len(run.names)
			if err := m.closePart(ctx, a); err != nil {
				return ResultFailed, err
			}

			break
		}

		tail := run.offset + splitter.FileLast() + 1
		for _, name := range run.names[tail:] {
			a.RemoveFile(name)
		}

		forced := false
		if tail == run.offset && a.Len() == 0 {
			logger.Warn().
				Str("file", run.names[tail]).
				Str("limit", humanize.IBytes(uint64(m.opts.MaxArchiveSize))).
				Msg("file does not fit an empty archive, storing it in its own part")

			err := a.UpdateMultipleFiles(ctx, run.realPaths[tail:tail+1], run.names[tail:tail+1], updateOpts, reporter, nil)
			if err != nil {
				_ = a.Close()
				return ResultFailed, fmt.Errorf("update %s: %w", run.target.current, err)
			}

			tail++
			forced = true
		}

		consumed := tail > run.offset
		run.ledger = append(run.ledger, run.names[run.offset:tail]...)
		run.offset = tail

		// the reopened part predicts the same size, which may exceed the
		// disk size when alignment padding is reserved
		size := a.Size()
		if err := m.closePart(ctx, a); err != nil {
			if !errors.Is(err, ErrArchiveTooLarge) {
				return ResultFailed, err
			}

			result, ceilingErr = ResultFailed, err
		}

		if run.offset >= len(run.names) {
			break
		}

		if !forced && size < splitter.SizeThreshold() && (consumed || !keepRetrying) {
			logger.Debug().
				Str("archive", run.target.current).
				Int64("size", size).
				Int64("threshold", splitter.SizeThreshold()).
				Msg("archive shrank below threshold, retrying remaining files")
			keepRetrying = true
			continue
		}

		keepRetrying = false
		if err := run.target.advance(); err != nil {
			return ResultFailed, err
		}

		logger.Debug().Str("archive", run.target.current).Int("remaining", len(run.names)-run.offset).Msg("split to next part")
	}

	return result, ceilingErr
}

// closePart closes an archive and checks the size ceiling.
func (m *Manager) closePart(ctx context.Context, a *Archive) error {
	path := a.Path()
	if err := a.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	size, err := fileSize(path)
	if err != nil {
		return err
	}

	if size <= m.opts.SizeCeiling {
		return nil
	}

	logger := logctx.FromContext(ctx)
	logger.Error().
		Str("archive", path).
		Str("size", humanize.IBytes(uint64(size))).
		Str("ceiling", humanize.IBytes(uint64(m.opts.SizeCeiling))).
		Msg("archive exceeds size ceiling")

	if m.opts.FailOnOversize {
		return fmt.Errorf("%w: %s", ErrArchiveTooLarge, path)
	}

	return nil
}

// openArchive opens path for update; an unreadable archive is deleted and
// recreated once.
func (m *Manager) openArchive(ctx context.Context, path string) (*Archive, error) {
	opts := m.archiveOptions()
	a, err := OpenArchive(path, opts)
	if err == nil {
		return a, nil
	}

	logger := logctx.FromContext(ctx)
	logger.Warn().Err(err).Str("archive", path).Msg("cannot open archive, recreating it")
	if err := removeIfExists(path); err != nil {
		return nil, err
	}

	a, err = OpenArchive(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return a, nil
}

// purgeStaleParts removes this bucket's names from parts past the last one
// written, so renumbering drops parts left over from larger earlier runs.
func (m *Manager) purgeStaleParts(ctx context.Context, run *bucketRun) error {
	for i := run.target.part + 1; ; i++ {
		path := partPath(run.target.requested, i)
		if !fileExists(path) {
			return nil
		}

		a, err := m.openArchive(ctx, path)
		if err != nil {
			return err
		}

		for _, name := range run.names {
			a.RemoveFile(name)
		}

		if err := a.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}
	}
}

// finishBucket drops empty archives, renumbers a part chain and registers results.
func (m *Manager) finishBucket(ctx context.Context, requested string, multi bool) error {
	logger := logctx.FromContext(ctx)

	if !multi {
		size, err := fileSize(requested)
		if err != nil {
			return err
		}

		if size < 0 {
			return nil
		}

		if size <= MinEmptyArchiveSize {
			logger.Info().Str("archive", requested).Msg("archive has no content, removed")
			return removeIfExists(requested)
		}

		m.register(requested)
		return nil
	}

	parts, err := renumberParts(requested)
	if err != nil {
		return err
	}

	switch len(parts) {
	case 0:
		logger.Info().Msg("all parts empty, nothing registered")
	case 1:
		if err := m.dropShadowed(ctx, requested); err != nil {
			return err
		}

		if err := os.Rename(parts[0], requested); err != nil {
			return fmt.Errorf("rename %s to %s: %w", parts[0], requested, err)
		}

		logger.Debug().Msg("single part left, collapsed to unsuffixed archive")
		m.register(requested)
	default:
		// the chain is authoritative; an unsuffixed leftover would shadow it
		if err := m.dropShadowed(ctx, requested); err != nil {
			return err
		}

		for _, part := range parts {
			m.register(part)
		}
	}

	return nil
}

// dropShadowed removes an unsuffixed archive that sits next to a part chain,
// naming any entries it still held.
func (m *Manager) dropShadowed(ctx context.Context, requested string) error {
	if !fileExists(requested) {
		return nil
	}

	logger := logctx.FromContext(ctx)

	entries, err := ListEntries(requested, ListOptions{Archive: m.archiveOptions()})
	if err != nil {
		logger.Warn().Err(err).Str("archive", requested).Msg("unreadable archive shadowed by part chain, removing")
	} else if len(entries) > 0 {
		names := make([]string, len(entries))
		for i, entry := range entries {
			names[i] = entry.Name
		}

		logger.Warn().
			Str("archive", requested).
			Strs("entries", names).
			Msg("archive shadowed by part chain, dropping its entries")
	}

	return removeIfExists(requested)
}

// renumberParts deletes empty parts, closes the gaps and returns surviving part paths.
func renumberParts(requested string) ([]string, error) {
	parts := chainPaths(requested)

	for i := 0; i < len(parts); {
		size, err := fileSize(parts[i])
		if err != nil {
			return nil, err
		}

		if size > MinEmptyArchiveSize {
			i++
			continue
		}

		if err := removeIfExists(parts[i]); err != nil {
			return nil, err
		}

		for j := i + 1; j < len(parts); j++ {
			if err := os.Rename(parts[j], parts[j-1]); err != nil {
				return nil, fmt.Errorf("rename %s to %s: %w", parts[j], parts[j-1], err)
			}
		}

		parts = parts[:len(parts)-1]
	}

	return parts, nil
}

// chainPaths returns existing "-partN" paths of requested, in order.
func chainPaths(requested string) []string {
	var parts []string
	for i := 0; ; i++ {
		path := partPath(requested, i)
		if !fileExists(path) {
			return parts
		}

		parts = append(parts, path)
	}
}

// removeChain deletes requested and all of its parts.
func removeChain(requested string) error {
	for _, path := range append(chainPaths(requested), requested) {
		if err := removeIfExists(path); err != nil {
			return err
		}
	}

	return nil
}

// register records a produced archive path once.
func (m *Manager) register(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(m.paks, path) {
		m.paks = append(m.paks, path)
	}
}

// archiveOptions derives archive open options.
func (m *Manager) archiveOptions() ArchiveOptions {
	return ArchiveOptions{
		Key:            m.key,
		Alignment:      m.opts.Alignment,
		EncryptHeaders: m.opts.EncryptHeaders,
	}
}

// entryName maps an in-archive path to the stored name.
func (m *Manager) entryName(name string) string {
	if m.opts.NameAsCRC32 {
		return crc32Name(name)
	}

	return NormalizePath(name)
}

// compileSplitList packs one archive per split list group.
func (m *Manager) compileSplitList(ctx context.Context, files []SourceFile) (Result, error) {
	logger := logctx.FromContext(ctx)

	list, err := LoadSplitList(m.opts.SplitList)
	if err != nil {
		logger.Error().Err(err).Msg("bad arguments")
		return ResultBadArgs, err
	}

	groups, unmatched, err := list.Assign(files)
	if err != nil {
		logger.Error().Err(err).Msg("bad arguments")
		return ResultBadArgs, err
	}

	if len(unmatched) > 0 {
		reporter := NewLogReporter(logger, m.opts.Reporter)
		for _, file := range unmatched {
			reporter.ReportFile(FileReport{
				Name:     joinArchivePath(m.opts.FolderInPak, file.RelativePath),
				RealPath: file.RealPath(),
				Status:   StatusSkipped,
				Reason:   "not matched by split list",
			})
		}
	}

	result := ResultSkipped
	var errs []error
	for i, pak := range list.Paks {
		if len(groups[i]) == 0 {
			logger.Debug().Str("pak", pak.Name).Msg("split list group has no files")
			continue
		}

		groupResult, err := m.CreatePakFile(ctx, groups[i], m.opts.FolderInPak, m.OutputPath(pak.Name), !m.opts.ForceNew)
		result = result.merge(groupResult)
		if err != nil {
			errs = append(errs, err)
		}

		if groupResult == ResultBadArgs {
			break
		}
	}

	if result == ResultSkipped && len(unmatched) > 0 {
		logger.Warn().Int("unmatched", len(unmatched)).Msg("no split list group matched any file")
	}

	return result, errors.Join(errs...)
}
