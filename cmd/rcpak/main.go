// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

// Command rcpak packs asset folders into size-constrained pak archives.
package main

import (
	"os"

	"github.com/woozymasta/pak/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
