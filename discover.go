// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/woozymasta/pathrules"
)

// Discover walks source roots and returns their regular files in lexical
// order. A root may also name a single file. Files whose root-relative path
// matches an exclude rule are dropped.
func Discover(roots []string, targetRoot string, exclude []pathrules.Rule) ([]SourceFile, error) {
	matcher, err := newRuleMatcher(exclude, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		return nil, err
	}

	var files []SourceFile
	for _, root := range roots {
		fi, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("source root: %w", err)
		}

		if !fi.IsDir() {
			if !matcher.Match(filepath.Base(root)) {
				files = append(files, SourceFile{
					SourceRoot:   filepath.Dir(root),
					RelativePath: filepath.Base(root),
					TargetRoot:   targetRoot,
				})
			}

			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}

			if !d.Type().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			rel = filepath.ToSlash(rel)
			if matcher.Match(rel) {
				return nil
			}

			files = append(files, SourceFile{SourceRoot: root, RelativePath: rel, TargetRoot: targetRoot})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	return files, nil
}
