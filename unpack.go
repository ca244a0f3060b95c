// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/woozymasta/pak/internal/logctx"
)

// UnpackJob is one archive extracted to one folder.
type UnpackJob struct {
	// Archive is the archive path.
	Archive string `json:"archive" yaml:"archive"`
	// Destination is the output folder.
	Destination string `json:"destination" yaml:"destination"`
}

// UnpackProgress is reported once per finished archive.
type UnpackProgress struct {
	// Err is the extraction error, nil on success.
	Err error `json:"-" yaml:"-"`
	// Job is the finished job.
	Job UnpackJob `json:"job" yaml:"job"`
	// Done counts finished archives including this one.
	Done int `json:"done" yaml:"done"`
	// Total is the number of jobs.
	Total int `json:"total" yaml:"total"`
	// Entries is the number of extracted files.
	Entries int `json:"entries" yaml:"entries"`
}

// UnpackOptions configures Unpack.
type UnpackOptions struct {
	// OnProgress is called once per archive; calls are serialized.
	OnProgress func(UnpackProgress) `json:"-" yaml:"-"`
	// Key decrypts archives with encrypted headers or content.
	Key string `json:"-" yaml:"-"`
	// Workers is number of archives extracted concurrently (zero means half the CPUs).
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// UnpackJobsFor maps archive source files to jobs extracting each archive to
// outDir/<relative dir>/<archive name without extension>. Other files are ignored.
func UnpackJobsFor(files []SourceFile, outDir string) []UnpackJob {
	jobs := make([]UnpackJob, 0, len(files))
	for _, file := range files {
		if !strings.EqualFold(filepath.Ext(file.RelativePath), DefaultArchiveExt) {
			continue
		}

		rel := filepath.FromSlash(NormalizePath(file.RelativePath))
		jobs = append(jobs, UnpackJob{
			Archive:     file.RealPath(),
			Destination: filepath.Join(outDir, strings.TrimSuffix(rel, filepath.Ext(rel))),
		})
	}

	return jobs
}

// Unpack extracts jobs in parallel. A failing archive does not stop the
// others; it is logged and passed to OnProgress. Only setup errors fail the call.
func Unpack(ctx context.Context, jobs []UnpackJob, opts UnpackOptions) (Result, error) {
	logger := logctx.FromContext(ctx)

	var key *Key
	if opts.Key != "" {
		parsed, err := ParseKey(opts.Key)
		if err != nil {
			logger.Error().Err(err).Msg("cannot parse decryption key")
			return ResultFailed, err
		}

		key = &parsed
	}

	if len(jobs) == 0 {
		logger.Info().Msg("no archives to extract")
		return ResultSkipped, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = max(1, runtime.NumCPU()/2)
	}

	entryWorkers := max(1, runtime.GOMAXPROCS(0)/workers)

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		g.Go(func() error {
			entries, err := unpackArchive(gctx, job, key, entryWorkers)

			mu.Lock()
			defer mu.Unlock()

			done++
			if err != nil {
				logger.Error().Err(err).Str("archive", job.Archive).Msg("extraction failed")
			} else {
				logger.Info().Str("archive", job.Archive).Str("to", job.Destination).Int("entries", entries).Msg("archive extracted")
			}

			if opts.OnProgress != nil {
				opts.OnProgress(UnpackProgress{Job: job, Err: err, Done: done, Total: len(jobs), Entries: entries})
			}

			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return ResultFailed, err
	}

	return ResultSucceeded, nil
}

// unpackArchive opens one archive read-only and extracts every entry.
func unpackArchive(ctx context.Context, job UnpackJob, key *Key, workers int) (int, error) {
	opts := ArchiveOptions{Key: key, ReadOnly: true}
	a, err := OpenArchive(job.Archive, opts)
	if err != nil && key != nil && errors.Is(err, ErrCorruptArchive) {
		opts.EncryptHeaders = true
		a, err = OpenArchive(job.Archive, opts)
	}

	if err != nil {
		return 0, err
	}
	defer func() { _ = a.Close() }()

	if err := a.Extract(ctx, job.Destination, ExtractOptions{MaxWorkers: workers}); err != nil {
		return 0, fmt.Errorf("extract %s: %w", job.Archive, err)
	}

	return a.Len(), nil
}
