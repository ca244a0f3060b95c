// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest describes produced archives.
type Manifest struct {
	// Generated is the manifest build time (UTC).
	Generated time.Time `json:"generated" yaml:"generated"`
	// Paks are the archives in registration order.
	Paks []ManifestPak `json:"paks" yaml:"paks"`
}

// ManifestPak is one produced archive.
type ManifestPak struct {
	Path    string `json:"path" yaml:"path"`
	SHA256  string `json:"sha256" yaml:"sha256"`
	Size    int64  `json:"size" yaml:"size"`
	Entries int    `json:"entries" yaml:"entries"`
}

// BuildManifest hashes and counts entries of every archive path.
func BuildManifest(paths []string, opts ArchiveOptions) (Manifest, error) {
	m := Manifest{Generated: time.Now().UTC(), Paks: make([]ManifestPak, 0, len(paths))}
	for _, path := range paths {
		pak, err := describeArchive(path, opts)
		if err != nil {
			return Manifest{}, err
		}

		m.Paks = append(m.Paks, pak)
	}

	return m, nil
}

// WriteManifest writes m as YAML through a temporary file.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}

	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write manifest: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close manifest: %w", err)
	}

	if err := replaceFile(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return nil
}

// describeArchive hashes one archive file and counts its entries.
func describeArchive(path string, opts ArchiveOptions) (ManifestPak, error) {
	opts.ReadOnly = true
	a, err := OpenArchive(path, opts)
	if err != nil {
		return ManifestPak{}, fmt.Errorf("manifest %s: %w", path, err)
	}

	entries := a.Len()
	_ = a.Close()

	f, err := os.Open(path)
	if err != nil {
		return ManifestPak{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	buf, release := acquireCopyBuffer()
	defer release()

	h := sha256.New()
	size, err := io.CopyBuffer(h, f, buf)
	if err != nil {
		return ManifestPak{}, fmt.Errorf("hash %s: %w", path, err)
	}

	return ManifestPak{
		Path:    filepath.ToSlash(path),
		SHA256:  hex.EncodeToString(h.Sum(nil)),
		Size:    size,
		Entries: entries,
	}, nil
}
