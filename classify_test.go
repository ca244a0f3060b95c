// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"errors"
	"strings"
	"testing"
)

func TestParsePolicies(t *testing.T) {
	t.Parallel()

	if p, err := ParseSortPolicy(""); err != nil || p != SortAlphabetical {
		t.Fatalf("ParseSortPolicy(\"\") = %q, %v", p, err)
	}

	if p, err := ParseSortPolicy(" Size "); err != nil || p != SortSize {
		t.Fatalf("ParseSortPolicy(Size) = %q, %v", p, err)
	}

	if _, err := ParseSortPolicy("random"); !errors.Is(err, ErrUnknownSortPolicy) {
		t.Fatalf("expected ErrUnknownSortPolicy, got %v", err)
	}

	if p, err := ParseSplitPolicy("", SortStreaming); err != nil || p != SplitStreaming {
		t.Fatalf("ParseSplitPolicy(\"\", streaming) = %q, %v", p, err)
	}

	if p, err := ParseSplitPolicy("", SortSize); err != nil || p != SplitOriginal {
		t.Fatalf("ParseSplitPolicy(\"\", size) = %q, %v", p, err)
	}

	if _, err := ParseSplitPolicy("bytype", SortNone); !errors.Is(err, ErrUnknownSplitPolicy) {
		t.Fatalf("expected ErrUnknownSplitPolicy, got %v", err)
	}
}

func TestNewPakEntryHints(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		rel    string
		suffix string
		mip    int
	}{
		{rel: "textures/rock_DIF.dds", suffix: "dif", mip: -1},
		{rel: "textures/rock_ddn.dds.3", suffix: "ddn", mip: 3},
		{rel: "textures/plain.dds.1a", suffix: "", mip: -1},
		{rel: "scripts/main.lua", suffix: "", mip: -1},
		{rel: "_hidden.txt", suffix: "", mip: -1},
		{rel: "data/archive.tar.2", suffix: "", mip: -1},
	}

	for _, tc := range testCases {
		entry := newPakEntry(SourceFile{SourceRoot: t.TempDir(), RelativePath: tc.rel}, "")
		if entry.Suffix != tc.suffix || entry.MipLevel != tc.mip {
			t.Fatalf("newPakEntry(%s) suffix=%q mip=%d, want %q %d", tc.rel, entry.Suffix, entry.MipLevel, tc.suffix, tc.mip)
		}

		if entry.Size != 0 {
			t.Fatalf("missing source must have zero size, got %d", entry.Size)
		}
	}
}

func TestClassifyBuckets(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sources := writeSources(t, root, map[string][]byte{
		"textures/rock_dif.dds":   make([]byte, 30),
		"textures/rock_ddn.dds":   make([]byte, 10),
		"textures/rock_dif.dds.1": make([]byte, 20),
		"scripts/main.lua":        make([]byte, 40),
		"Readme.txt":              make([]byte, 5),
	})

	testCases := []struct {
		name  string
		split SplitPolicy
		sort  SortPolicy
		want  map[string][]string
	}{
		{
			name:  "original alphabetical",
			split: SplitOriginal,
			sort:  SortAlphabetical,
			want: map[string][]string{
				"out/base.pak": {
					"game/Readme.txt",
					"game/scripts/main.lua",
					"game/textures/rock_ddn.dds",
					"game/textures/rock_dif.dds",
					"game/textures/rock_dif.dds.1",
				},
			},
		},
		{
			name:  "basedir by size",
			split: SplitBaseDir,
			sort:  SortSize,
			want: map[string][]string{
				"out/base_game.pak": {
					"game/Readme.txt",
					"game/textures/rock_ddn.dds",
					"game/textures/rock_dif.dds.1",
					"game/textures/rock_dif.dds",
					"game/scripts/main.lua",
				},
			},
		},
		{
			name:  "suffix",
			split: SplitSuffix,
			sort:  SortSuffix,
			want: map[string][]string{
				"out/base.pak":     {"game/Readme.txt", "game/scripts/main.lua"},
				"out/base_ddn.pak": {"game/textures/rock_ddn.dds"},
				"out/base_dif.pak": {"game/textures/rock_dif.dds", "game/textures/rock_dif.dds.1"},
			},
		},
		{
			name:  "streaming",
			split: SplitStreaming,
			sort:  SortStreaming,
			want: map[string][]string{
				"out/base.pak": {
					"game/Readme.txt",
					"game/scripts/main.lua",
					"game/textures/rock_ddn.dds",
					"game/textures/rock_dif.dds",
				},
				"out/base_mip1.pak": {"game/textures/rock_dif.dds.1"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buckets := Classify(sources, "game", "out/base.pak", tc.sort, tc.split)
			if len(buckets) != len(tc.want) {
				t.Fatalf("buckets=%d, want %d", len(buckets), len(tc.want))
			}

			for i, bucket := range buckets {
				if i > 0 && buckets[i-1].Name >= bucket.Name {
					t.Fatalf("buckets not ordered by name: %s before %s", buckets[i-1].Name, bucket.Name)
				}

				names := make([]string, len(bucket.Entries))
				for j, entry := range bucket.Entries {
					names[j] = entry.Name
				}

				want, ok := tc.want[bucket.Name]
				if !ok {
					t.Fatalf("unexpected bucket %s", bucket.Name)
				}

				if strings.Join(names, ",") != strings.Join(want, ",") {
					t.Fatalf("bucket %s = %v, want %v", bucket.Name, names, want)
				}
			}
		})
	}
}

func TestSortNoneKeepsInputOrder(t *testing.T) {
	t.Parallel()

	entries := []PakEntry{{Name: "c"}, {Name: "a"}, {Name: "b"}}
	sortEntries(entries, SortNone)
	if entries[0].Name != "c" || entries[1].Name != "a" || entries[2].Name != "b" {
		t.Fatalf("SortNone reordered entries: %+v", entries)
	}
}
