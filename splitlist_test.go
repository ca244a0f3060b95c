// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestParseSplitListErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "no paks", data: "paks: []\n"},
		{name: "unknown field", data: "paks:\n  - name: a\n    include: [\"*\"]\n    compress: true\n"},
		{name: "no name", data: "paks:\n  - include: [\"*\"]\n"},
		{name: "no include", data: "paks:\n  - name: a\n"},
		{name: "duplicate", data: "paks:\n  - name: a.pak\n    include: [\"*\"]\n  - name: A.PAK\n    include: [\"*\"]\n"},
		{name: "not yaml", data: "paks: [\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := ParseSplitList([]byte(tc.data)); !errors.Is(err, ErrInvalidSplitList) {
				t.Fatalf("expected ErrInvalidSplitList, got %v", err)
			}
		})
	}
}

func TestLoadSplitListMissing(t *testing.T) {
	t.Parallel()

	if _, err := LoadSplitList(filepath.Join(t.TempDir(), "none.yaml")); !errors.Is(err, ErrInvalidSplitList) {
		t.Fatalf("expected ErrInvalidSplitList, got %v", err)
	}
}

func TestSplitListAssign(t *testing.T) {
	t.Parallel()

	list, err := ParseSplitList([]byte(`paks:
  - name: " sounds "
    include: ["*.ogg", "*.wav"]
    exclude: ["music/**"]
  - name: all
    include: ["**"]
`))
	if err != nil {
		t.Fatalf("ParseSplitList: %v", err)
	}

	if list.Paks[0].Name != "sounds" {
		t.Fatalf("name=%q, want trimmed", list.Paks[0].Name)
	}

	files := []SourceFile{
		{RelativePath: "sfx/hit.ogg"},
		{RelativePath: "music/theme.ogg"},
		{RelativePath: "scripts/a.lua"},
		{RelativePath: `sfx\step.WAV`},
	}

	groups, unmatched, err := list.Assign(files)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	if len(unmatched) != 0 {
		t.Fatalf("unmatched=%+v, want none", unmatched)
	}

	if len(groups[0]) != 2 || groups[0][0].RelativePath != "sfx/hit.ogg" || groups[0][1].RelativePath != `sfx\step.WAV` {
		t.Fatalf("sounds group=%+v", groups[0])
	}

	if len(groups[1]) != 2 {
		t.Fatalf("all group=%+v, want music and scripts", groups[1])
	}
}
