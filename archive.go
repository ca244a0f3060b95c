// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
)

// payloadSource tells where the stored bytes of an entry live.
type payloadSource uint8

const (
	payloadFromArchive payloadSource = iota // raw bytes in the opened archive file
	payloadFromSpool                        // raw bytes appended to the spool file
)

// archiveEntry is one entry of the in-memory index.
type archiveEntry struct {
	info   EntryInfo
	offset int64 // payload offset in the archive or spool file
	source payloadSource
}

// Archive is a zip-based pak opened for update or reading.
//
// Changes are collected in memory (payloads are spooled to a temporary file
// next to the archive) and written by Close, which rewrites the archive into a
// temporary file and renames it over the original.
type Archive struct {
	// file is the opened archive, nil for archives created from scratch.
	file *os.File
	// spool holds payloads of added entries until Close.
	spool *os.File
	// entries maps case-insensitive keys to entries.
	entries map[string]*archiveEntry
	// opts are the open options with defaults applied.
	opts ArchiveOptions
	// path is the archive location on disk.
	path string
	// order keeps keys in insertion order; removed keys are skipped on write.
	order []string
	// spoolSize is the next free spool offset.
	spoolSize int64
	// size is the predicted on-disk size.
	size int64
	// mu guards closed state and close operation.
	mu sync.Mutex
	// dirty reports whether Close must rewrite the archive.
	dirty bool
	// closed reports whether Close was already called.
	closed bool
}

// OpenArchive opens the archive at path or prepares a new empty one. A missing
// or empty file yields an empty archive that is created on Close. ReadOnly
// archives must exist.
func OpenArchive(path string, opts ArchiveOptions) (*Archive, error) {
	opts.applyDefaults()

	if opts.EncryptHeaders && opts.Key == nil {
		return nil, fmt.Errorf("encrypted headers: %w", ErrKeyRequired)
	}

	a := &Archive{
		opts:    opts,
		path:    path,
		entries: make(map[string]*archiveEntry),
		size:    eocdLen,
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !opts.ReadOnly {
			a.dirty = true
			return a, nil
		}

		return nil, fmt.Errorf("open archive: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	if fi.Size() == 0 {
		_ = f.Close()
		if opts.ReadOnly {
			return nil, fmt.Errorf("%w: empty file", ErrCorruptArchive)
		}

		a.dirty = true
		return a, nil
	}

	if err := a.load(f, fi.Size()); err != nil {
		_ = f.Close()
		return nil, err
	}

	a.file = f
	return a, nil
}

// load parses the central directory of an existing archive.
func (a *Archive) load(f *os.File, size int64) error {
	var ra io.ReaderAt = f
	if a.opts.EncryptHeaders {
		dr, err := newDecryptedDirectoryReader(f, size, a.opts.Key)
		if err != nil {
			return err
		}

		ra = dr
	}

	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}

	for _, zf := range zr.File {
		offset, err := zf.DataOffset()
		if err != nil {
			return fmt.Errorf("%w: entry %s: %w", ErrCorruptArchive, zf.Name, err)
		}

		info := EntryInfo{
			Name:             zf.Name,
			Method:           Method(zf.Method),
			CRC32:            zf.CRC32,
			CompressedSize:   int64(zf.CompressedSize64),
			UncompressedSize: int64(zf.UncompressedSize64),
			Modified:         msdosToTime(zf.ModifiedDate, zf.ModifiedTime),
			Encrypted:        zf.Flags&encryptedEntryFlagBits != 0,
		}

		if offset+info.CompressedSize > size {
			return fmt.Errorf("%w: entry %s exceeds file size", ErrCorruptArchive, zf.Name)
		}

		a.put(&archiveEntry{info: info, offset: offset, source: payloadFromArchive})
	}

	return nil
}

// Path returns the archive location.
func (a *Archive) Path() string {
	return a.path
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Size returns the predicted on-disk size of the archive after Close. It is
// exact without alignment and an upper bound with it.
func (a *Archive) Size() int64 {
	return a.size
}

// Entries returns entry metadata sorted by name.
func (a *Archive) Entries() []EntryInfo {
	out := make([]EntryInfo, 0, len(a.entries))
	for _, entry := range a.entries {
		out = append(out, entry.info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stat returns metadata for one entry.
func (a *Archive) Stat(name string) (EntryInfo, bool) {
	entry := a.lookup(name)
	if entry == nil {
		return EntryInfo{}, false
	}

	return entry.info, true
}

// RemoveFile removes an entry by in-archive path and reports whether it existed.
func (a *Archive) RemoveFile(name string) bool {
	if a.checkWritable() != nil {
		return false
	}

	key := entryKey(name)
	entry, ok := a.entries[key]
	if !ok {
		return false
	}

	delete(a.entries, key)
	a.size -= entryDiskSize(entry.info.Name, entry.info.CompressedSize, a.opts.Alignment)
	a.dirty = true
	return true
}

// Close writes pending changes and releases file handles.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}

	a.closed = true

	var err error
	if a.dirty && !a.opts.ReadOnly {
		err = a.rewrite()
	}

	if a.file != nil {
		if closeErr := a.file.Close(); closeErr != nil && err == nil && !errors.Is(closeErr, os.ErrClosed) {
			err = fmt.Errorf("close archive: %w", closeErr)
		}
	}

	a.releaseSpool()
	return err
}

// lookup returns the entry for an in-archive path.
func (a *Archive) lookup(name string) *archiveEntry {
	return a.entries[entryKey(name)]
}

// put inserts or replaces an entry and updates the size prediction.
func (a *Archive) put(entry *archiveEntry) {
	key := entryKey(entry.info.Name)
	if old, ok := a.entries[key]; ok {
		a.size -= entryDiskSize(old.info.Name, old.info.CompressedSize, a.opts.Alignment)
	} else {
		a.order = append(a.order, key)
	}

	a.entries[key] = entry
	a.size += entryDiskSize(entry.info.Name, entry.info.CompressedSize, a.opts.Alignment)
}

// checkWritable rejects mutations on closed or read-only archives.
func (a *Archive) checkWritable() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrArchiveClosed
	}

	if a.opts.ReadOnly {
		return ErrReadOnlyArchive
	}

	return nil
}

// spoolWrite appends one payload to the spool file and returns its offset.
func (a *Archive) spoolWrite(payload []byte) (int64, error) {
	if a.spool == nil {
		f, err := os.CreateTemp(filepath.Dir(a.path), "."+filepath.Base(a.path)+".spool-*")
		if err != nil {
			return 0, fmt.Errorf("create spool: %w", err)
		}

		a.spool = f
	}

	offset := a.spoolSize
	if _, err := a.spool.WriteAt(payload, offset); err != nil {
		return 0, fmt.Errorf("write spool: %w", err)
	}

	a.spoolSize += int64(len(payload))
	return offset, nil
}

// releaseSpool closes and deletes the spool file.
func (a *Archive) releaseSpool() {
	if a.spool == nil {
		return
	}

	name := a.spool.Name()
	_ = a.spool.Close()
	_ = removeIfExists(name)
	a.spool = nil
}

// payloadReader returns a reader over the stored bytes of an entry.
func (a *Archive) payloadReader(entry *archiveEntry) (*io.SectionReader, error) {
	var src *os.File
	switch entry.source {
	case payloadFromArchive:
		src = a.file
	case payloadFromSpool:
		src = a.spool
	}

	if src == nil {
		return nil, fmt.Errorf("%w: payload source missing for %s", ErrCorruptArchive, entry.info.Name)
	}

	return io.NewSectionReader(src, entry.offset, entry.info.CompressedSize), nil
}

// entryDiskSize predicts bytes used by one entry: local and central headers
// (both carrying the name and the alignment extra field) plus the payload.
// Padding depends on where Close places the entry, so the largest possible
// extra field is counted and the prediction stays an upper bound.
func entryDiskSize(name string, compressedSize int64, align int) int64 {
	size := int64(localHeaderLen+centralHeaderLen+2*len(name)) + compressedSize
	if align > 1 {
		size += 2 * maxAlignmentExtra(align)
	}

	return size
}

// timeToMSDOS converts a time to MS-DOS date and time fields (UTC, 2-second resolution).
func timeToMSDOS(t time.Time) (uint16, uint16) {
	t = t.UTC()
	if t.Year() < 1980 {
		t = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	if t.Year() > 2107 {
		t = time.Date(2107, 12, 31, 23, 59, 58, 0, time.UTC)
	}

	date := uint16(t.Day() + int(t.Month())<<5 + (t.Year()-1980)<<9)
	clock := uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)
	return date, clock
}

// msdosToTime converts MS-DOS date and time fields to UTC time.
func msdosToTime(date, clock uint16) time.Time {
	return time.Date(
		int(date>>9)+1980,
		time.Month(date>>5&0xf),
		int(date&0x1f),
		int(clock>>11),
		int(clock>>5&0x3f),
		int(clock&0x1f*2),
		0,
		time.UTC,
	)
}

// dosTime truncates a time to what an archive entry can store.
func dosTime(t time.Time) time.Time {
	return msdosToTime(timeToMSDOS(t))
}
