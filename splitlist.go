// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/woozymasta/pathrules"
	"gopkg.in/yaml.v3"
)

// SplitList assigns source files to named archives.
//
//	paks:
//	  - name: textures.pak
//	    include: ["textures/**"]
//	    exclude: ["**/*_preview.*"]
type SplitList struct {
	Paks []SplitListPak `json:"paks" yaml:"paks"`
}

// SplitListPak is one target archive with its path rules. Rules match source
// paths relative to their source root.
type SplitListPak struct {
	// Name is the archive name, resolved like Options.CreatePak.
	Name string `json:"name" yaml:"name"`
	// Include patterns select files for this archive.
	Include []string `json:"include" yaml:"include"`
	// Exclude patterns drop files selected by Include.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// LoadSplitList reads and validates a split list file.
func LoadSplitList(path string) (*SplitList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSplitList, err)
	}

	return ParseSplitList(data)
}

// ParseSplitList decodes and validates split list YAML.
func ParseSplitList(data []byte) (*SplitList, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var list SplitList
	if err := dec.Decode(&list); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSplitList, err)
	}

	if len(list.Paks) == 0 {
		return nil, fmt.Errorf("%w: no paks defined", ErrInvalidSplitList)
	}

	seen := make(map[string]struct{}, len(list.Paks))
	for i, pak := range list.Paks {
		name := strings.TrimSpace(pak.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: pak #%d has no name", ErrInvalidSplitList, i)
		}

		if len(pak.Include) == 0 {
			return nil, fmt.Errorf("%w: pak %s has no include patterns", ErrInvalidSplitList, name)
		}

		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: pak %s listed twice", ErrInvalidSplitList, name)
		}

		seen[key] = struct{}{}
		list.Paks[i].Name = name
	}

	return &list, nil
}

// Assign returns files grouped by pak index (first matching pak wins) and the
// files no pak matched.
func (l *SplitList) Assign(files []SourceFile) ([][]SourceFile, []SourceFile, error) {
	matchers := make([]*ruleMatcher, len(l.Paks))
	for i, pak := range l.Paks {
		rules := PatternRules(pak.Include)
		for _, pattern := range pak.Exclude {
			rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: pattern})
		}

		matcher, err := newRuleMatcher(rules, pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("pak %s: %w", pak.Name, err)
		}

		matchers[i] = matcher
	}

	groups := make([][]SourceFile, len(l.Paks))
	var unmatched []SourceFile
	for _, file := range files {
		placed := false
		for i, matcher := range matchers {
			if matcher.Match(file.RelativePath) {
				groups[i] = append(groups[i], file)
				placed = true
				break
			}
		}

		if !placed {
			unmatched = append(unmatched, file)
		}
	}

	return groups, unmatched, nil
}
