// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

/*
Package pak packs loose asset files into size-constrained zip-based pak
archives and extracts them again.

Packing rules (summary):
  - files are grouped into buckets by a split policy and ordered by a sort policy;
  - each bucket is written to one archive, or to a "<base>-partN.pak" chain when
    split-on-overflow is enabled and the archive would exceed the size limit;
  - compression runs in parallel, decisions are made strictly in input order;
  - payloads are stored whenever compression does not make them smaller;
  - files with a "$"-prefixed or ".pak" extension are never packed.

# Packing

Build one archive, splitting at 512 MiB:

	files, err := pak.Discover([]string{"assets"}, "out", nil)
	if err != nil {
	    return err
	}

	opts := pak.DefaultOptions()
	opts.CreatePak = "data.pak"
	opts.TargetRoot = "out"
	opts.MaxArchiveSize = 512 << 20
	opts.SplitOnOverflow = true

	m := pak.NewManager(opts)
	result, err := m.CompileFilesIntoPaks(ctx, files)
	if err != nil {
	    return err
	}
	fmt.Println(result, m.Paks())

Re-running with the same inputs only reports up-to-date files. Set ForceNew to
rebuild every archive of the chain from scratch.

# Archives

Archive is the container used by the manager and can be used directly:

	a, err := pak.OpenArchive("data.pak", pak.ArchiveOptions{})
	if err != nil {
	    return err
	}
	err = a.UpdateMultipleFiles(ctx,
	    []string{"assets/a.txt"}, []string{"a.txt"},
	    pak.UpdateOptions{CompressionLevel: 9}, nil, nil)
	if err != nil {
	    _ = a.Close()
	    return err
	}
	return a.Close()

Changes are written by Close through a temporary file renamed over the
original archive.

# Encryption

A 128-bit key is given as 32 hex characters (see ParseKey). EncryptHeaders
encrypts the central directory, EncryptContent encrypts entry payloads; both
use XTEA in CTR mode.

# Extracting

	result, err := pak.Unpack(ctx, pak.UnpackJobsFor(files, "unpacked"), pak.UnpackOptions{
	    Workers: 2,
	    OnProgress: func(p pak.UnpackProgress) {
	        fmt.Printf("%d/%d %s\n", p.Done, p.Total, p.Job.Archive)
	    },
	})

Extracted names are sanitized for the host filesystem and path traversal is
rejected.
*/
package pak
