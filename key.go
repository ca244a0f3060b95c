// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// keyHexLen is the textual key length: 128 bits as hex.
const keyHexLen = 32

// Key is a 128-bit encryption key stored as four words, low word first.
type Key [4]uint32

// KeyError reports a malformed key string.
type KeyError struct {
	// Reason describes the problem.
	Reason string
	// Offset is the 0-based position of the first offending character.
	Offset int
}

// Error implements error.
func (e *KeyError) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", ErrInvalidKey, e.Offset, e.Reason)
}

// Unwrap makes errors.Is(err, ErrInvalidKey) work.
func (e *KeyError) Unwrap() error {
	return ErrInvalidKey
}

// ParseKey parses 32 hex characters into a Key. Each group of 8 characters is
// one big-endian word; the last group becomes word 0.
func ParseKey(s string) (Key, error) {
	var key Key

	limit := min(len(s), keyHexLen)
	for i := 0; i < limit; i++ {
		if _, ok := hexNibble(s[i]); !ok {
			return key, &KeyError{Offset: i, Reason: fmt.Sprintf("non-hex character %q", s[i])}
		}
	}

	if len(s) != keyHexLen {
		return key, &KeyError{
			Offset: limit,
			Reason: fmt.Sprintf("want %d hex characters, got %d", keyHexLen, len(s)),
		}
	}

	for group := 0; group < 4; group++ {
		var word uint32
		for _, c := range []byte(s[group*8 : group*8+8]) {
			nibble, _ := hexNibble(c)
			word = word<<4 | uint32(nibble)
		}

		key[3-group] = word
	}

	return key, nil
}

// String returns the key in the textual form accepted by ParseKey.
func (k Key) String() string {
	var b strings.Builder
	b.Grow(keyHexLen)
	for i := 3; i >= 0; i-- {
		fmt.Fprintf(&b, "%08X", k[i])
	}

	return b.String()
}

// bytes returns the 16-byte cipher key; word 0 first, big-endian per word.
func (k Key) bytes() []byte {
	out := make([]byte, 16)
	for i, word := range k {
		binary.BigEndian.PutUint32(out[i*4:], word)
	}

	return out
}

// hexNibble decodes one hex digit.
func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
