// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package cli

import (
	"github.com/spf13/cobra"

	"github.com/woozymasta/pak"
	"github.com/woozymasta/pak/internal/config"
)

func newDeleteCommand(a *app) *cobra.Command {
	var zip string

	cmd := &cobra.Command{
		Use:   "delete --zip NAME <in-pak path>...",
		Short: "Remove files from a pak and every part of its chain",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctx, err := a.load(cmd)
			if err != nil {
				return err
			}

			cfg.Pack.CreatePak = zip
			opts, err := cfg.ToOptions()
			if err != nil {
				return badArgs(err)
			}

			result, err := pak.NewManager(opts).DeleteFilesFromPaks(ctx, args)
			return a.finish(result, err)
		},
	}

	cmd.Flags().StringVar(&zip, "zip", "", "target pak name")
	_ = cmd.MarkFlagRequired("zip")
	config.RegisterPackFlags(cmd.Flags())

	return cmd
}
