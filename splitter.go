// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

// SizeSplitter decides, file by file during a batched add, whether the next
// file still fits the byte budget of the current archive.
//
// fileCount is the highest valid candidate index (count-1). The writer calls
// CheckWriteLimit before adding each file and SetLastFile once with the index
// of the last file that fit.
type SizeSplitter struct {
	fileLast      int
	fileCount     int
	sizeLimit     int64
	sizeThreshold int64
}

// NewSizeSplitter returns a splitter for candidates 0..fileCount and a byte budget.
func NewSizeSplitter(fileCount int, sizeLimit int64) *SizeSplitter {
	return &SizeSplitter{
		fileLast:      fileCount,
		fileCount:     fileCount,
		sizeLimit:     sizeLimit,
		sizeThreshold: sizeLimit,
	}
}

// CheckWriteLimit reports whether adding a file must be rejected: the archive
// after removing sizeToRemove would leave less than sizeToAdd of headroom.
func (s *SizeSplitter) CheckWriteLimit(totalSoFar, sizeToAdd, sizeToRemove int64) bool {
	return totalSoFar-sizeToRemove > s.sizeLimit-sizeToAdd
}

// SetLastFile records the last index that fits and the remaining headroom.
// Total and removed sizes are accepted for symmetry with CheckWriteLimit.
func (s *SizeSplitter) SetLastFile(_, sizeAdded, _ int64, lastIndex int) {
	s.fileLast = lastIndex
	s.sizeThreshold = s.sizeLimit - sizeAdded
}

// HasReachedWriteLimit reports whether not all candidates fit.
func (s *SizeSplitter) HasReachedWriteLimit() bool {
	return s.fileLast < s.fileCount
}

// FileLast returns the last candidate index that fit.
func (s *SizeSplitter) FileLast() int {
	return s.fileLast
}

// SizeThreshold returns the size below which a retry into the same archive is worthwhile.
func (s *SizeSplitter) SizeThreshold() int64 {
	return s.sizeThreshold
}

// SizeLimit returns the byte budget.
func (s *SizeSplitter) SizeLimit() int64 {
	return s.sizeLimit
}
