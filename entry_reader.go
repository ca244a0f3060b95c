// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
)

// ReadFile reads full (decrypted and decompressed) content of the named entry.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return nil, ErrArchiveClosed
	}

	entry := a.lookup(name)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return a.readEntry(entry)
}

// Open returns a reader over the decoded content of the named entry.
func (a *Archive) Open(name string) (io.ReadCloser, error) {
	data, err := a.ReadFile(name)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// readEntry loads, decrypts, decodes and verifies one entry.
func (a *Archive) readEntry(entry *archiveEntry) ([]byte, error) {
	info := entry.info

	src, err := a.payloadReader(entry)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, info.CompressedSize)
	if _, err := io.ReadFull(src, payload); err != nil {
		return nil, fmt.Errorf("read entry %s: %w", info.Name, err)
	}

	if info.Encrypted {
		if err := xorInPlace(a.opts.Key, contentIV(info.Name, info.UncompressedSize), payload); err != nil {
			return nil, fmt.Errorf("decrypt entry %s: %w", info.Name, err)
		}
	}

	data, err := decodePayload(info.Method, payload, info.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", info.Name, err)
	}

	if crc32.ChecksumIEEE(data) != info.CRC32 {
		return nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, info.Name)
	}

	return data, nil
}
