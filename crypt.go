// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/xtea"
)

// Zip directory record signatures and sizes.
const (
	eocdSignature          = 0x06054b50
	zip64LocatorSignature  = 0x07064b50
	zip64EOCDSignature     = 0x06064b50
	zip64LocatorLen        = 20
	zip64EOCDLen           = 56
	uint32Max              = 0xffffffff
	encryptedEntryFlagBits = 0x1
)

// directoryIV seeds the keystream of encrypted central directories.
var directoryIV = []byte{'p', 'a', 'k', 'd', 'i', 'r', 0, 1}

// newKeyStream builds an XTEA-CTR keystream for the key and 8-byte IV.
func newKeyStream(key *Key, iv []byte) (cipher.Stream, error) {
	if key == nil {
		return nil, ErrKeyRequired
	}

	block, err := xtea.NewCipher(key.bytes())
	if err != nil {
		return nil, fmt.Errorf("xtea cipher: %w", err)
	}

	return cipher.NewCTR(block, iv), nil
}

// xorInPlace encrypts or decrypts data in place.
func xorInPlace(key *Key, iv []byte, data []byte) error {
	stream, err := newKeyStream(key, iv)
	if err != nil {
		return err
	}

	stream.XORKeyStream(data, data)
	return nil
}

// contentIV derives the per-entry IV from entry name and uncompressed size.
func contentIV(name string, size int64) []byte {
	iv := make([]byte, 8)
	binary.BigEndian.PutUint32(iv[0:4], crc32.ChecksumIEEE([]byte(strings.ToLower(name))))
	binary.BigEndian.PutUint32(iv[4:8], uint32(size))
	return iv
}

// locateDirectory returns central directory offset and size from the end records.
// Archive comments are not supported; the EOCD must be the last 22 bytes.
func locateDirectory(ra io.ReaderAt, size int64) (int64, int64, error) {
	if size < eocdLen {
		return 0, 0, fmt.Errorf("%w: file too short", ErrCorruptArchive)
	}

	eocd := make([]byte, eocdLen)
	if _, err := ra.ReadAt(eocd, size-eocdLen); err != nil {
		return 0, 0, fmt.Errorf("read end record: %w", err)
	}

	if binary.LittleEndian.Uint32(eocd[0:4]) != eocdSignature {
		return 0, 0, fmt.Errorf("%w: end record not found", ErrCorruptArchive)
	}

	dirSize := int64(binary.LittleEndian.Uint32(eocd[12:16]))
	dirOffset := int64(binary.LittleEndian.Uint32(eocd[16:20]))
	if dirSize != uint32Max && dirOffset != uint32Max {
		return dirOffset, dirSize, nil
	}

	locatorAt := size - eocdLen - zip64LocatorLen
	if locatorAt < 0 {
		return 0, 0, fmt.Errorf("%w: zip64 locator missing", ErrCorruptArchive)
	}

	locator := make([]byte, zip64LocatorLen)
	if _, err := ra.ReadAt(locator, locatorAt); err != nil {
		return 0, 0, fmt.Errorf("read zip64 locator: %w", err)
	}

	if binary.LittleEndian.Uint32(locator[0:4]) != zip64LocatorSignature {
		return 0, 0, fmt.Errorf("%w: zip64 locator missing", ErrCorruptArchive)
	}

	record := make([]byte, zip64EOCDLen)
	if _, err := ra.ReadAt(record, int64(binary.LittleEndian.Uint64(locator[8:16]))); err != nil {
		return 0, 0, fmt.Errorf("read zip64 end record: %w", err)
	}

	if binary.LittleEndian.Uint32(record[0:4]) != zip64EOCDSignature {
		return 0, 0, fmt.Errorf("%w: zip64 end record not found", ErrCorruptArchive)
	}

	return int64(binary.LittleEndian.Uint64(record[48:56])), int64(binary.LittleEndian.Uint64(record[40:48])), nil
}

// encryptDirectoryFile encrypts the central directory of a finished archive in place.
// End records stay plain so the directory can still be located.
func encryptDirectoryFile(f *os.File, key *Key) error {
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	dirOffset, dirSize, err := locateDirectory(f, fi.Size())
	if err != nil {
		return err
	}

	if dirSize == 0 {
		return nil
	}

	dir := make([]byte, dirSize)
	if _, err := f.ReadAt(dir, dirOffset); err != nil {
		return fmt.Errorf("read central directory: %w", err)
	}

	if err := xorInPlace(key, directoryIV, dir); err != nil {
		return err
	}

	if _, err := f.WriteAt(dir, dirOffset); err != nil {
		return fmt.Errorf("write central directory: %w", err)
	}

	return nil
}

// decryptedDirectoryReader overlays a decrypted central directory onto the raw archive.
type decryptedDirectoryReader struct {
	ra    io.ReaderAt
	plain []byte
	start int64
}

// newDecryptedDirectoryReader reads and decrypts the central directory of ra.
func newDecryptedDirectoryReader(ra io.ReaderAt, size int64, key *Key) (*decryptedDirectoryReader, error) {
	dirOffset, dirSize, err := locateDirectory(ra, size)
	if err != nil {
		return nil, err
	}

	if dirOffset < 0 || dirSize < 0 || dirOffset+dirSize > size {
		return nil, fmt.Errorf("%w: central directory out of bounds", ErrCorruptArchive)
	}

	plain := make([]byte, dirSize)
	if _, err := ra.ReadAt(plain, dirOffset); err != nil {
		return nil, fmt.Errorf("read central directory: %w", err)
	}

	if err := xorInPlace(key, directoryIV, plain); err != nil {
		return nil, err
	}

	return &decryptedDirectoryReader{ra: ra, plain: plain, start: dirOffset}, nil
}

// ReadAt implements io.ReaderAt.
func (r *decryptedDirectoryReader) ReadAt(p []byte, off int64) (int, error) {
	n, err := r.ra.ReadAt(p, off)

	end := r.start + int64(len(r.plain))
	lo := max(off, r.start)
	hi := min(off+int64(n), end)
	if lo < hi {
		copy(p[lo-off:hi-off], r.plain[lo-r.start:hi-r.start])
	}

	return n, err
}
