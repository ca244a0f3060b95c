// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/woozymasta/lzss"
	"github.com/woozymasta/pathrules"
)

func TestRuleMatcherMatch(t *testing.T) {
	t.Parallel()

	matcher, err := newRuleMatcher(includeRules(
		"*.ogg",
		"video/",
		"/sounds/**/*.wav",
	), pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	cases := []struct {
		name string
		path string
		want bool
	}{
		{name: "extension rule", path: `foo\bar\a.OGG`, want: true},
		{name: "dir-only rule", path: "cutscenes/video/intro.bk2", want: true},
		{name: "anchored root match", path: "sounds/music/a.wav", want: true},
		{name: "anchored root miss", path: "x/sounds/music/a.wav", want: false},
		{name: "no match", path: "scripts/main.lua", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := matcher.Match(tc.path); got != tc.want {
				t.Fatalf("Match(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestRuleMatcherNilMatchesNothing(t *testing.T) {
	t.Parallel()

	matcher, err := newRuleMatcher(nil, pathrules.MatcherOptions{})
	if err != nil {
		t.Fatalf("newRuleMatcher(nil): %v", err)
	}

	if matcher.Match("anything.txt") {
		t.Fatal("nil matcher must not match")
	}
}

func TestRuleMatcherInvalidRule(t *testing.T) {
	t.Parallel()

	_, err := newRuleMatcher([]pathrules.Rule{
		{
			Action:  pathrules.ActionUnknown,
			Pattern: "*.ogg",
		},
	}, pathrules.MatcherOptions{
		DefaultAction: pathrules.ActionExclude,
	})
	if !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
}

func TestPatternRules(t *testing.T) {
	t.Parallel()

	rules := PatternRules([]string{"*.dds", " !*_preview.dds"})
	if len(rules) != 2 {
		t.Fatalf("len(rules)=%d, want 2", len(rules))
	}

	if rules[0].Action != pathrules.ActionInclude || rules[0].Pattern != "*.dds" {
		t.Fatalf("rules[0]=%+v", rules[0])
	}

	if rules[1].Action != pathrules.ActionExclude || rules[1].Pattern != "*_preview.dds" {
		t.Fatalf("rules[1]=%+v", rules[1])
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	random := make([]byte, 8192)
	rng := rand.New(rand.NewSource(42))
	for i := range random {
		random[i] = byte(rng.Intn(256))
	}

	inputs := map[string][]byte{
		"repetitive": bytes.Repeat([]byte("abcabcabc"), 700),
		"text":       []byte("material { shader = terrain; diffuse = rock_d.dds; }"),
		"random":     random,
		"symbols":    symbolData(7, 64*1024, 32),
	}

	for _, method := range []Method{MethodStore, MethodDeflate, MethodZstd, MethodLZ4, MethodLZSS} {
		for name, data := range inputs {
			t.Run(method.String()+"/"+name, func(t *testing.T) {
				t.Parallel()

				payload, err := encodePayload(method, 6, data)
				if errors.Is(err, errIncompressible) {
					return
				}

				if err != nil {
					t.Fatalf("encodePayload: %v", err)
				}

				got, err := decodePayload(method, payload, int64(len(data)))
				if err != nil {
					t.Fatalf("decodePayload: %v", err)
				}

				if !bytes.Equal(got, data) {
					t.Fatal("round trip mismatch")
				}
			})
		}
	}
}

func TestLZSSMatchesLibraryStream(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("class Terrain { size = 4096; };"), 200)

	var stream bytes.Buffer
	inSize, outSize, err := lzss.CompressToWriter(&stream, bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("lzss.CompressToWriter: %v", err)
	}

	if inSize != int64(len(data)) {
		t.Fatalf("input size = %d, want %d", inSize, len(data))
	}

	got, err := encodePayload(MethodLZSS, 0, data)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}

	if outSize != int64(len(got)) || !bytes.Equal(stream.Bytes(), got) {
		t.Fatal("stream output differs from slice output")
	}
}

func TestDecodeUnsupportedMethod(t *testing.T) {
	t.Parallel()

	_, err := decodePayload(Method(99), []byte{1}, 1)
	if !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
}

func TestCompressPolicy(t *testing.T) {
	t.Parallel()

	store, err := newRuleMatcher(includeRules("*.ogg"), pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		t.Fatalf("newRuleMatcher: %v", err)
	}

	compressible := bytes.Repeat([]byte("0123456789"), 4096)
	random := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(random)

	testCases := []struct {
		name    string
		file    string
		data    []byte
		policy  compressPolicy
		want    Method
		anyComp bool
	}{
		{name: "level zero stores", file: "a.txt", data: compressible, policy: compressPolicy{level: 0}, want: MethodStore},
		{name: "store rule", file: "music/a.ogg", data: compressible, policy: compressPolicy{level: 6, store: store}, want: MethodStore},
		{name: "deflate", file: "a.txt", data: compressible, policy: compressPolicy{level: 6}, want: MethodDeflate},
		{name: "incompressible stores", file: "a.bin", data: random, policy: compressPolicy{level: 9}, want: MethodStore},
		{name: "forced deflate for textures", file: "tex/rock.DDS", data: compressible, policy: compressPolicy{level: 6, fastest: true}, want: MethodDeflate},
		{name: "forced deflate for cover", file: "ui/cover.ctc", data: compressible, policy: compressPolicy{level: 6, fastest: true}, want: MethodDeflate},
		{name: "fastest picks a codec", file: "a.txt", data: compressible, policy: compressPolicy{level: 6, fastest: true}, anyComp: true},
		{name: "fastest incompressible stores", file: "a.bin", data: random, policy: compressPolicy{level: 6, fastest: true}, want: MethodStore},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			payload, method, err := tc.policy.compress(tc.file, tc.data)
			if err != nil {
				t.Fatalf("compress: %v", err)
			}

			if tc.anyComp {
				if method == MethodStore || len(payload) >= len(tc.data) {
					t.Fatalf("method=%s size=%d, want a smaller compressed payload", method, len(payload))
				}
			} else if method != tc.want {
				t.Fatalf("method=%s, want %s", method, tc.want)
			}

			got, err := decodePayload(method, payload, int64(len(tc.data)))
			if err != nil {
				t.Fatalf("decodePayload: %v", err)
			}

			if !bytes.Equal(got, tc.data) {
				t.Fatal("round trip mismatch")
			}
		})
	}
}
