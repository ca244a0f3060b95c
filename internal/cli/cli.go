// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

// Package cli implements the rcpak command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/woozymasta/pak"
	"github.com/woozymasta/pak/internal/config"
	"github.com/woozymasta/pak/internal/logctx"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailed  = 1
	ExitBadArgs = 2
)

// Version is the binary version, set with -ldflags at build time.
var Version = "dev"

// app holds global flags and the outcome of the executed command.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logFormat  string
	logLevel   string
	verbose    bool
	quiet      bool

	code int
}

// exitError carries an exit code out of a command.
type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// badArgs marks err as an argument error.
func badArgs(err error) error {
	return &exitError{err: err, code: ExitBadArgs}
}

// Execute runs rcpak with args and returns the process exit code.
func Execute(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return run(ctx, args, os.Stdout, os.Stderr)
}

// run executes the command tree with explicit streams.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}

	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)

		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}

		// cobra flag and argument errors
		return ExitBadArgs
	}

	return a.code
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "rcpak",
		Short: "Pack loose asset files into size-constrained pak archives",
		Long: `rcpak packs source folders into zip-based pak archives, splitting them
into numbered parts when a size limit is reached, and extracts paks again.

Settings are read from .rcpak.yaml (or --config), RCPAK_* environment
variables and flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default .rcpak.yaml in working or home directory)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: console or json")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "only warnings and errors")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddCommand(
		newRunCommand(a),
		newDeleteCommand(a),
		newListCommand(a),
		newVersionCommand(a),
	)

	return root
}

// load reads configuration for cmd and returns a context carrying the logger.
func (a *app) load(cmd *cobra.Command) (*config.Config, context.Context, error) {
	cfg, err := config.LoadConfig(a.configPath, cmd.Flags())
	if err != nil {
		return nil, nil, badArgs(err)
	}

	level, err := cfg.Log.ZerologLevel()
	if err != nil {
		return nil, nil, badArgs(err)
	}

	switch {
	case a.verbose:
		level = zerolog.DebugLevel
	case a.quiet:
		level = zerolog.WarnLevel
	}

	logger, err := logctx.New(a.stderr, cfg.Log.Format, level)
	if err != nil {
		return nil, nil, badArgs(err)
	}

	return cfg, logctx.WithLogger(cmd.Context(), logger), nil
}

// finish records the exit code of result and prints the colored result line.
func (a *app) finish(result pak.Result, err error) error {
	a.code = exitCode(result)

	printer := color.New(color.FgGreen)
	switch a.code {
	case ExitFailed:
		printer = color.New(color.FgRed)
	case ExitBadArgs:
		printer = color.New(color.FgYellow)
	}

	_, _ = printer.Fprintf(a.stdout, "result: %s\n", result)
	if err != nil {
		_, _ = color.New(color.FgRed).Fprintf(a.stderr, "Error: %v\n", err)
	}

	return nil
}

// exitCode maps a manager result to a process exit code.
func exitCode(result pak.Result) int {
	switch result {
	case pak.ResultSkipped, pak.ResultSucceeded:
		return ExitOK
	case pak.ResultBadArgs:
		return ExitBadArgs
	default:
		return ExitFailed
	}
}
