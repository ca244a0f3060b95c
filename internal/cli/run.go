// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/woozymasta/pak"
	"github.com/woozymasta/pak/internal/config"
	"github.com/woozymasta/pak/internal/logctx"
)

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] <source-root>...",
		Short: "Pack, split-list pack or extract source roots",
		Long: `Run discovers files under every source root and executes one mode:

  --create-pak NAME   pack everything into NAME (and NAME-partN.pak parts)
  --split-list FILE   pack into the archives named by a split list
  --extract-to DIR    extract every .pak found under the roots into DIR`,
		Example: `  rcpak run --create-pak data.pak --target-root out --max-size 524288 --split-on-overflow assets
  rcpak run --extract-to unpacked out`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctx, err := a.load(cmd)
			if err != nil {
				return err
			}

			return a.runPack(ctx, cfg, args)
		},
	}

	config.RegisterPackFlags(cmd.Flags())
	return cmd
}

// runPack discovers sources, runs the manager and writes the manifest.
func (a *app) runPack(ctx context.Context, cfg *config.Config, roots []string) error {
	logger := logctx.FromContext(ctx)

	opts, err := cfg.ToOptions()
	if err != nil {
		return badArgs(err)
	}

	files, err := pak.Discover(roots, opts.TargetRoot, opts.Exclude)
	if err != nil {
		return badArgs(err)
	}

	logger.Debug().Int("files", len(files)).Strs("roots", roots).Msg("sources discovered")

	opts.OnUnpackProgress = func(p pak.UnpackProgress) {
		status := "ok"
		if p.Err != nil {
			status = "failed"
		}

		_, _ = fmt.Fprintf(a.stdout, "[%d/%d] %s -> %s: %s\n", p.Done, p.Total, p.Job.Archive, p.Job.Destination, status)
	}

	m := pak.NewManager(opts)
	result, runErr := m.CompileFilesIntoPaks(ctx, files)

	for _, path := range m.Paks() {
		_, _ = fmt.Fprintln(a.stdout, path)
	}

	if cfg.Manifest != "" && len(m.Paks()) > 0 && exitCode(result) == ExitOK {
		manifest, err := writeManifest(cfg.Manifest, m.Paks(), opts)
		if err != nil {
			logger.Error().Err(err).Str("manifest", cfg.Manifest).Msg("cannot write manifest")
			return a.finish(pak.ResultFailed, err)
		}

		var total int64
		for _, p := range manifest.Paks {
			total += p.Size
		}

		logger.Info().Str("manifest", cfg.Manifest).Msg("manifest written")
		_, _ = fmt.Fprintf(a.stdout, "manifest: %d paks, %s\n", len(manifest.Paks), humanize.IBytes(uint64(total)))
	}

	return a.finish(result, runErr)
}

// writeManifest describes produced paks with the options they were written with.
func writeManifest(path string, paks []string, opts pak.Options) (pak.Manifest, error) {
	archive := pak.ArchiveOptions{Alignment: opts.Alignment, EncryptHeaders: opts.EncryptHeaders}
	if opts.Key != "" {
		key, err := pak.ParseKey(opts.Key)
		if err != nil {
			return pak.Manifest{}, err
		}

		archive.Key = &key
	}

	m, err := pak.BuildManifest(paks, archive)
	if err != nil {
		return pak.Manifest{}, err
	}

	return m, pak.WriteManifest(path, m)
}
