// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogReporter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	next := &recordingReporter{}
	r := NewLogReporter(zerolog.New(&buf).Level(zerolog.DebugLevel), next)

	r.ReportFile(FileReport{Name: "a.txt", Status: StatusAdded, Size: 10, StoredSize: 5, Method: MethodDeflate})
	r.ReportFile(FileReport{Name: "b.txt", Status: StatusUpToDate})
	r.ReportFile(FileReport{Name: "c.txt", Status: StatusMissing, Reason: "source not found"})
	r.ReportFile(FileReport{Name: "d.txt", Status: StatusSkipped})
	r.ReportFile(FileReport{Name: "e.txt", Status: StatusFailed, Reason: "boom"})
	r.ReportSpeed(2048)
	r.LogSummary()

	want := Stats{Added: 1, UpToDate: 1, Skipped: 1, Missing: 1, Failed: 1}
	if r.Stats() != want {
		t.Fatalf("Stats()=%+v, want %+v", r.Stats(), want)
	}

	if len(next.reports) != 5 || next.speeds != 1 {
		t.Fatalf("forwarded reports=%d speeds=%d", len(next.reports), next.speeds)
	}

	out := buf.String()
	for _, fragment := range []string{`"method":"deflate"`, `"reason":"boom"`, `"level":"warn"`, want.String(), `"speed":"2.0 KiB/s"`} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("log output misses %s:\n%s", fragment, out)
		}
	}
}

func TestResultMergeAndStrings(t *testing.T) {
	t.Parallel()

	if got := ResultSkipped.merge(ResultSucceeded).merge(ResultErroneous).merge(ResultSucceeded); got != ResultErroneous {
		t.Fatalf("merge=%s, want erroneous", got)
	}

	names := map[Result]string{
		ResultSkipped:   "skipped",
		ResultSucceeded: "succeeded",
		ResultErroneous: "erroneous",
		ResultFailed:    "failed",
		ResultBadArgs:   "bad_args",
		Result(42):      "unknown",
	}
	for result, want := range names {
		if result.String() != want {
			t.Fatalf("%d.String()=%q, want %q", int(result), result.String(), want)
		}
	}

	if StatusUpToDate.String() != "up-to-date" || Method(7).String() != "method(7)" {
		t.Fatal("unexpected status or method name")
	}
}
