// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Reporter receives batched add outcomes.
type Reporter interface {
	// ReportFile is called once per input file.
	ReportFile(report FileReport)
	// ReportSpeed is called once per batched add with source bytes per second.
	ReportSpeed(bytesPerSecond float64)
}

// Stats counts per-file outcomes.
type Stats struct {
	Added    int `json:"added" yaml:"added"`
	UpToDate int `json:"up_to_date" yaml:"up_to_date"`
	Skipped  int `json:"skipped" yaml:"skipped"`
	Missing  int `json:"missing" yaml:"missing"`
	Failed   int `json:"failed" yaml:"failed"`
}

// String returns the summary line.
func (s Stats) String() string {
	return fmt.Sprintf("%d added, %d up-to-date, %d skipped, %d missing, %d failed",
		s.Added, s.UpToDate, s.Skipped, s.Missing, s.Failed)
}

// add counts one status.
func (s *Stats) add(status FileStatus) {
	switch status {
	case StatusAdded:
		s.Added++
	case StatusUpToDate:
		s.UpToDate++
	case StatusSkipped:
		s.Skipped++
	case StatusMissing:
		s.Missing++
	case StatusFailed:
		s.Failed++
	}
}

// LogReporter logs outcomes with zerolog and keeps counters. Safe for concurrent use.
type LogReporter struct {
	next   Reporter
	logger zerolog.Logger
	mu     sync.Mutex
	stats  Stats
	speed  float64
}

// NewLogReporter returns a reporter logging to logger and forwarding to next (may be nil).
func NewLogReporter(logger zerolog.Logger, next Reporter) *LogReporter {
	return &LogReporter{logger: logger, next: next}
}

// ReportFile implements Reporter.
func (r *LogReporter) ReportFile(report FileReport) {
	r.mu.Lock()
	r.stats.add(report.Status)
	r.mu.Unlock()

	var ev *zerolog.Event
	switch report.Status {
	case StatusMissing, StatusFailed:
		ev = r.logger.Warn()
	default:
		ev = r.logger.Debug()
	}

	ev = ev.Str("file", report.Name).Str("status", report.Status.String())
	if report.Reason != "" {
		ev = ev.Str("reason", report.Reason)
	}

	if report.Status == StatusAdded {
		ev = ev.Int64("size", report.Size).Int64("stored", report.StoredSize).Str("method", report.Method.String())
	}

	ev.Msg("pak file")

	if r.next != nil {
		r.next.ReportFile(report)
	}
}

// ReportSpeed implements Reporter.
func (r *LogReporter) ReportSpeed(bytesPerSecond float64) {
	r.mu.Lock()
	r.speed = bytesPerSecond
	r.mu.Unlock()

	if r.next != nil {
		r.next.ReportSpeed(bytesPerSecond)
	}
}

// Stats returns a snapshot of counters.
func (r *LogReporter) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stats
}

// LogSummary writes the summary line of counted outcomes.
func (r *LogReporter) LogSummary() {
	r.mu.Lock()
	stats, speed := r.stats, r.speed
	r.mu.Unlock()

	r.logger.Info().
		Int("added", stats.Added).
		Int("up_to_date", stats.UpToDate).
		Int("skipped", stats.Skipped).
		Int("missing", stats.Missing).
		Int("failed", stats.Failed).
		Str("speed", humanize.IBytes(uint64(speed))+"/s").
		Msg(stats.String())
}

// nopReporter discards reports.
type nopReporter struct{}

func (nopReporter) ReportFile(FileReport) {}
func (nopReporter) ReportSpeed(float64)   {}
