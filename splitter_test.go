// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import "testing"

func TestSizeSplitterCheckWriteLimit(t *testing.T) {
	t.Parallel()

	s := NewSizeSplitter(9, 100)

	testCases := []struct {
		name            string
		total, add, sub int64
		wantReject      bool
	}{
		{name: "fits", total: 50, add: 40, wantReject: false},
		{name: "exact", total: 60, add: 40, wantReject: false},
		{name: "overflow", total: 61, add: 40, wantReject: true},
		{name: "replace frees space", total: 80, add: 40, sub: 30, wantReject: false},
		{name: "huge file", total: 22, add: 200, wantReject: true},
	}

	for _, tc := range testCases {
		if got := s.CheckWriteLimit(tc.total, tc.add, tc.sub); got != tc.wantReject {
			t.Fatalf("%s: CheckWriteLimit=%v, want %v", tc.name, got, tc.wantReject)
		}
	}
}

func TestSizeSplitterLastFile(t *testing.T) {
	t.Parallel()

	s := NewSizeSplitter(4, 1000)
	if s.HasReachedWriteLimit() {
		t.Fatal("fresh splitter must not report a reached limit")
	}

	if s.FileLast() != 4 {
		t.Fatalf("FileLast=%d, want 4", s.FileLast())
	}

	s.SetLastFile(900, 300, 0, 2)
	if !s.HasReachedWriteLimit() {
		t.Fatal("expected reached limit after SetLastFile(2)")
	}

	if s.FileLast() != 2 {
		t.Fatalf("FileLast=%d, want 2", s.FileLast())
	}

	if s.SizeThreshold() != 700 {
		t.Fatalf("SizeThreshold=%d, want 700", s.SizeThreshold())
	}

	s.SetLastFile(900, 100, 0, 4)
	if s.HasReachedWriteLimit() {
		t.Fatal("last index equal to file count means everything fit")
	}
}
