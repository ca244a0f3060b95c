// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/woozymasta/lzss"
	"github.com/woozymasta/pathrules"
)

// Method is a zip entry compression method id.
type Method uint16

// Supported payload methods. LZ4 and LZSS use private method ids.
const (
	MethodStore   Method = 0
	MethodDeflate Method = 8
	MethodZstd    Method = zstd.ZipMethodWinZip
	MethodLZ4     Method = 0x4c34
	MethodLZSS    Method = 0x4c53
)

// fastestTestBytes is the minimum amount of data decoded when timing a candidate.
const fastestTestBytes = 1 << 20

// errIncompressible marks a codec result that is not smaller than its input.
var errIncompressible = errors.New("payload not compressible")

// fastestCandidates are tried in order when fastest decompression is requested.
var fastestCandidates = []Method{MethodDeflate, MethodZstd, MethodLZ4}

var (
	zstdEncoders sync.Map // zstd.EncoderLevel -> *zstd.Encoder

	sharedZstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodStore:
		return "store"
	case MethodDeflate:
		return "deflate"
	case MethodZstd:
		return "zstd"
	case MethodLZ4:
		return "lz4"
	case MethodLZSS:
		return "lzss"
	default:
		return fmt.Sprintf("method(%d)", uint16(m))
	}
}

// ruleMatcher holds compiled path rules.
type ruleMatcher struct {
	matcher *pathrules.Matcher
}

// newRuleMatcher compiles path rules; no rules yields a nil matcher that matches nothing.
func newRuleMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*ruleMatcher, error) {
	rules = normalizeRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidPattern, err)
	}

	return &ruleMatcher{matcher: matcher}, nil
}

// PatternRules turns plain patterns into include rules; a leading "!" makes
// an exclude rule.
func PatternRules(patterns []string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		action := pathrules.ActionInclude
		if rest, ok := strings.CutPrefix(strings.TrimSpace(pattern), "!"); ok {
			action, pattern = pathrules.ActionExclude, rest
		}

		rules = append(rules, pathrules.Rule{Action: action, Pattern: pattern})
	}

	return rules
}

// normalizeRules normalizes rule patterns and drops empty patterns.
func normalizeRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether path is included by the rules.
func (m *ruleMatcher) Match(p string) bool {
	if m == nil || m.matcher == nil {
		return false
	}

	candidate := NormalizePath(p)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}

// requiresDeflate reports file types whose loaders only understand deflate.
func requiresDeflate(name string) bool {
	base := strings.ToLower(path.Base(NormalizePath(name)))
	switch path.Ext(base) {
	case ".dds", ".uicanvas":
		return true
	}

	return base == "cover.ctc"
}

// encodePayload compresses data with the method and level.
func encodePayload(method Method, level int, data []byte) ([]byte, error) {
	switch method {
	case MethodStore:
		return data, nil
	case MethodDeflate:
		var buf bytes.Buffer
		buf.Grow(len(data) / 2)
		w, err := flate.NewWriter(&buf, level)
		if err != nil {
			return nil, fmt.Errorf("deflate writer: %w", err)
		}

		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}

		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}

		return buf.Bytes(), nil
	case MethodZstd:
		enc, err := zstdEncoder(level)
		if err != nil {
			return nil, err
		}

		return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case MethodLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}

		if n == 0 {
			return nil, errIncompressible
		}

		return dst[:n], nil
	case MethodLZSS:
		return lzss.Compress(data, lzss.DefaultCompressOptions())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
}

// decodePayload decompresses data into exactly size bytes.
func decodePayload(method Method, data []byte, size int64) ([]byte, error) {
	switch method {
	case MethodStore:
		if int64(len(data)) != size {
			return nil, fmt.Errorf("%w: stored size %d, want %d", ErrCorruptArchive, len(data), size)
		}

		return data, nil
	case MethodDeflate:
		r := flate.NewReader(bytes.NewReader(data))
		defer func() { _ = r.Close() }()

		out := make([]byte, size)
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, fmt.Errorf("inflate: %w", err)
		}

		return out, nil
	case MethodZstd:
		dec, err := sharedZstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}

		out, err := dec.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}

		if int64(len(out)) != size {
			return nil, fmt.Errorf("%w: zstd size %d, want %d", ErrCorruptArchive, len(out), size)
		}

		return out, nil
	case MethodLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}

		if int64(n) != size {
			return nil, fmt.Errorf("%w: lz4 size %d, want %d", ErrCorruptArchive, n, size)
		}

		return out, nil
	case MethodLZSS:
		var buf bytes.Buffer
		buf.Grow(int(size))
		if _, err := lzss.DecompressToWriter(&buf, bytes.NewReader(data), int(size), nil); err != nil {
			return nil, fmt.Errorf("lzss: %w", err)
		}

		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
}

// zstdEncoder returns a shared encoder for a deflate-style level.
func zstdEncoder(level int) (*zstd.Encoder, error) {
	encLevel := zstd.EncoderLevelFromZstd(level)
	if enc, ok := zstdEncoders.Load(encLevel); ok {
		return enc.(*zstd.Encoder), nil
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}

	actual, _ := zstdEncoders.LoadOrStore(encLevel, enc)
	return actual.(*zstd.Encoder), nil
}

// compressPolicy decides the stored method for one entry.
type compressPolicy struct {
	store   *ruleMatcher
	level   int
	fastest bool
}

// compress returns the stored payload and method for data. Results that are not
// smaller than data fall back to store.
func (p *compressPolicy) compress(name string, data []byte) ([]byte, Method, error) {
	if p.level == 0 || len(data) == 0 || p.store.Match(name) {
		return data, MethodStore, nil
	}

	if !p.fastest || requiresDeflate(name) {
		out, err := encodePayload(MethodDeflate, p.level, data)
		if err != nil {
			return nil, MethodStore, err
		}

		if len(out) >= len(data) {
			return data, MethodStore, nil
		}

		return out, MethodDeflate, nil
	}

	return selectFastest(p.level, data)
}

// selectFastest compresses data with every candidate and keeps the one that decodes fastest.
// Candidate errors are ignored; no usable candidate means store.
func selectFastest(level int, data []byte) ([]byte, Method, error) {
	var (
		best       []byte
		bestMethod = MethodStore
		bestTime   time.Duration
	)

	rounds := max(1, fastestTestBytes/max(1, len(data)))
	for _, method := range fastestCandidates {
		out, err := encodePayload(method, level, data)
		if err != nil || len(out) >= len(data) {
			continue
		}

		elapsed, err := timeDecode(method, out, int64(len(data)), rounds)
		if err != nil {
			continue
		}

		if best == nil || elapsed < bestTime {
			best, bestMethod, bestTime = out, method, elapsed
		}
	}

	if best == nil {
		return data, MethodStore, nil
	}

	return best, bestMethod, nil
}

// timeDecode measures rounds of decompression.
func timeDecode(method Method, payload []byte, size int64, rounds int) (time.Duration, error) {
	start := time.Now()
	for range rounds {
		if _, err := decodePayload(method, payload, size); err != nil {
			return 0, err
		}
	}

	return time.Since(start), nil
}
