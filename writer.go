// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
)

const (
	// copyBufferSize is temporary buffer size used by payload copy.
	copyBufferSize = 64 * 1024
	// zipVersion20 is the creator and reader version written to headers.
	zipVersion20 = 20
	// alignmentExtraID is the extra field id used for data alignment padding.
	alignmentExtraID = 0xd935
	// utf8NameFlag marks UTF-8 encoded entry names.
	utf8NameFlag = 0x800
)

var (
	// copyBufferPool reuses payload copy buffers between rewrites.
	copyBufferPool = sync.Pool{
		New: func() any {
			return new([copyBufferSize]byte)
		},
	}
)

// acquireCopyBuffer returns pooled copy buffer and release callback.
func acquireCopyBuffer() ([]byte, func()) {
	buf := copyBufferPool.Get().(*[copyBufferSize]byte)
	return buf[:], func() { copyBufferPool.Put(buf) }
}

// rewrite writes all live entries into a temporary file and replaces the archive.
func (a *Archive) rewrite() error {
	dir := filepath.Dir(a.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(a.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}

	tmpPath := tmp.Name()
	if err := a.writeArchive(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if a.opts.EncryptHeaders {
		if err := encryptDirectoryFile(tmp, a.opts.Key); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
			return fmt.Errorf("encrypt headers: %w", err)
		}
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp archive: %w", err)
	}

	if a.file != nil {
		_ = a.file.Close()
		a.file = nil
	}

	if err := replaceFile(tmpPath, a.path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return nil
}

// writeArchive streams live entries as a zip archive to w.
func (a *Archive) writeArchive(w io.Writer) error {
	buf, release := acquireCopyBuffer()
	defer release()

	zw := zip.NewWriter(w)
	seen := make(map[string]struct{}, len(a.entries))

	var offset int64
	for _, key := range a.order {
		entry, ok := a.entries[key]
		if !ok {
			continue
		}

		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}

		written, err := a.writeEntry(zw, entry, offset, buf)
		if err != nil {
			return err
		}

		offset += written
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("write central directory: %w", err)
	}

	return nil
}

// writeEntry writes one raw entry and returns bytes used by its local header and payload.
func (a *Archive) writeEntry(zw *zip.Writer, entry *archiveEntry, offset int64, buf []byte) (int64, error) {
	info := entry.info
	extra := alignmentExtra(offset+int64(localHeaderLen+len(info.Name)), a.opts.Alignment)
	date, clock := timeToMSDOS(info.Modified)

	var flags uint16
	if info.Encrypted {
		flags |= encryptedEntryFlagBits
	}

	if !isASCII(info.Name) && utf8.ValidString(info.Name) {
		flags |= utf8NameFlag
	}

	fh := &zip.FileHeader{
		Name:               info.Name,
		CreatorVersion:     zipVersion20,
		ReaderVersion:      zipVersion20,
		Flags:              flags,
		Method:             uint16(info.Method),
		ModifiedTime:       clock,
		ModifiedDate:       date,
		CRC32:              info.CRC32,
		CompressedSize64:   uint64(info.CompressedSize),
		UncompressedSize64: uint64(info.UncompressedSize),
		Extra:              extra,
	}

	fw, err := zw.CreateRaw(fh)
	if err != nil {
		return 0, fmt.Errorf("write header %s: %w", info.Name, err)
	}

	src, err := a.payloadReader(entry)
	if err != nil {
		return 0, err
	}

	n, err := copyPayloadBounded(fw, src, info.CompressedSize, buf)
	if err != nil {
		return 0, fmt.Errorf("write payload %s: %w", info.Name, err)
	}

	if n != info.CompressedSize {
		return 0, fmt.Errorf("%w: payload %s truncated (%d of %d bytes)", ErrCorruptArchive, info.Name, n, info.CompressedSize)
	}

	return int64(localHeaderLen+len(info.Name)+len(extra)) + n, nil
}

// alignmentExtra returns an extra field that moves payload start to a multiple
// of align. The field itself takes 4 bytes, so nil is returned when no padding is needed.
func alignmentExtra(dataStart int64, align int) []byte {
	if align <= 1 || dataStart%int64(align) == 0 {
		return nil
	}

	pad := (int64(align) - (dataStart+4)%int64(align)) % int64(align)
	extra := make([]byte, 4+pad)
	binary.LittleEndian.PutUint16(extra[0:2], alignmentExtraID)
	binary.LittleEndian.PutUint16(extra[2:4], uint16(pad))
	return extra
}

// maxAlignmentExtra is the largest extra field alignmentExtra can return.
func maxAlignmentExtra(align int) int64 {
	if align <= 1 {
		return 0
	}

	return int64(4 + align - 1)
}

// copyPayloadBounded streams payload from src to dst and stops after limit bytes.
func copyPayloadBounded(dst io.Writer, src io.Reader, limit int64, buf []byte) (int64, error) {
	if limit < 0 {
		return 0, fmt.Errorf("%w: negative payload size", ErrCorruptArchive)
	}

	if len(buf) == 0 {
		buf = make([]byte, 32*1024)
	}

	var written int64
	emptyReads := 0
	for written < limit {
		chunkSize := len(buf)
		remaining := limit - written
		if int64(chunkSize) > remaining {
			chunkSize = int(remaining)
		}

		n, readErr := src.Read(buf[:chunkSize])
		if n > 0 {
			emptyReads = 0
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)

			if writeErr != nil {
				return written, writeErr
			}
			if nw != n {
				return written, io.ErrShortWrite
			}
		}
		if n == 0 && readErr == nil {
			emptyReads++
			if emptyReads > 100 {
				return written, io.ErrNoProgress
			}

			continue
		}

		if readErr != nil {
			if readErr == io.EOF {
				break
			}

			return written, readErr
		}
	}

	return written, nil
}

// isASCII reports whether s contains only 7-bit characters.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}

	return true
}
