// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// renameIfExists renames source to destination when source exists.
func renameIfExists(from string, to string) error {
	_, err := os.Stat(from)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", from, err)
	}

	if err := removeIfExists(to); err != nil {
		return err
	}

	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}

	return nil
}

// removeIfExists removes file when present.
func removeIfExists(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) || err == nil {
		return nil
	}

	return fmt.Errorf("remove %s: %w", path, err)
}

// rollbackFromBackup restores backup on failed replace.
func rollbackFromBackup(path string, backupPath string) error {
	_ = os.Remove(path)

	if err := os.Rename(backupPath, path); err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}

	return nil
}

// replaceFile moves tmpPath over path, keeping the previous file as backup until
// the move succeeded.
func replaceFile(tmpPath string, path string) error {
	backupPath := path + ".bak"
	if err := removeIfExists(backupPath); err != nil {
		return err
	}

	hadOriginal := fileExists(path)
	if hadOriginal {
		if err := os.Rename(path, backupPath); err != nil {
			return fmt.Errorf("backup %s: %w", path, err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if hadOriginal {
			if rbErr := rollbackFromBackup(path, backupPath); rbErr != nil {
				return fmt.Errorf("replace %s: %w (rollback: %v)", path, err, rbErr)
			}
		}

		return fmt.Errorf("replace %s: %w", path, err)
	}

	if hadOriginal {
		return removeIfExists(backupPath)
	}

	return nil
}

// fileExists reports whether a regular file or directory exists at path.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// fileSize returns the size of a file, or -1 when it does not exist.
func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return -1, nil
	}

	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}

	return fi.Size(), nil
}
