// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/woozymasta/pak"
)

// listFlags are the local flags of the list command.
type listFlags struct {
	key     string
	prefix  string
	minSize string
	encrypt bool
}

func newListCommand(a *app) *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "list [flags] <pak>",
		Short: "Print the entries of a pak",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pak.ListOptions{Prefix: flags.prefix}
			if flags.minSize != "" {
				size, err := humanize.ParseBytes(flags.minSize)
				if err != nil {
					return badArgs(fmt.Errorf("min size: %w", err))
				}

				opts.MinSize = int64(size)
			}

			if flags.key != "" {
				key, err := pak.ParseKey(flags.key)
				if err != nil {
					return badArgs(err)
				}

				opts.Archive.Key = &key
			}

			opts.Archive.EncryptHeaders = flags.encrypt

			entries, err := pak.ListEntries(args[0], opts)
			if err != nil {
				return &exitError{err: err, code: ExitFailed}
			}

			_, _ = fmt.Fprintln(a.stdout, renderEntries(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.key, "key", "", "decryption key as 32 hex characters")
	cmd.Flags().BoolVar(&flags.encrypt, "encrypt", false, "archive headers are encrypted")
	cmd.Flags().StringVar(&flags.prefix, "prefix", "", "only entries under this folder")
	cmd.Flags().StringVar(&flags.minSize, "min-size", "", "only entries at least this large")

	return cmd
}

// renderEntries formats entries as a table with a totals footer.
func renderEntries(entries []pak.EntryInfo) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Format.Footer = text.FormatDefault

	tbl.AppendHeader(table.Row{"Name", "Method", "Size", "Packed", "Ratio", "CRC32", "Modified"})

	var size, packed int64
	for _, entry := range entries {
		size += entry.UncompressedSize
		packed += entry.CompressedSize

		tbl.AppendRow(table.Row{
			entry.Name,
			entry.Method.String(),
			humanize.IBytes(uint64(entry.UncompressedSize)),
			humanize.IBytes(uint64(entry.CompressedSize)),
			ratio(entry.CompressedSize, entry.UncompressedSize),
			fmt.Sprintf("%08x", entry.CRC32),
			entry.Modified.Format("2006-01-02 15:04:05"),
		})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("Total: %d entries", len(entries)),
		"",
		humanize.IBytes(uint64(size)),
		humanize.IBytes(uint64(packed)),
		ratio(packed, size),
	})

	return tbl.Render()
}

// ratio formats packed/size as a percentage.
func ratio(packed, size int64) string {
	if size == 0 {
		return "-"
	}

	return fmt.Sprintf("%.1f%%", float64(packed)*100/float64(size))
}
