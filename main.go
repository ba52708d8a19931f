// dischat - chat with hosted LLMs from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/dischat/internal/app"
	"github.com/jeranaias/dischat/internal/cli"
	"github.com/jeranaias/dischat/internal/config"
	"github.com/jeranaias/dischat/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdHelp:
		return help(args)
	case cli.CmdVersion:
		return version(args)
	}

	cfg, err := config.Load()
	if err != nil {
		cli.DisplayError(fmt.Errorf("failed to load config: %w", err), args.JSON)
		return cli.ExitConfigError
	}

	level := cfg.Logging.Level
	if args.Verbose {
		level = "debug"
	}
	closeLog, err := logging.Setup(logging.Options{Level: level, Dir: cfg.Logging.Dir, Keep: cfg.Logging.Keep})
	if err != nil {
		cli.DisplayError(err, args.JSON)
		return cli.ExitConfigError
	}
	defer closeLog()

	if !cmd.NeedsApp() {
		if err := cli.HandleConfig(cfg, args, os.Stdout); err != nil {
			cli.DisplayError(err, args.JSON)
			return cli.GetExitCode(err)
		}
		return cli.ExitSuccess
	}

	// --provider applies to this run only
	if args.Provider != "" {
		cfg.Provider.Name = args.Provider
	}

	ctx := context.Background()
	if cmd != cli.CmdChat {
		// The chat loop handles Ctrl+C itself so it can cancel one request
		// without ending the session.
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	a := app.New(cfg)
	if err := a.Init(ctx); err != nil {
		cli.DisplayError(err, args.JSON)
		return cli.GetExitCode(err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	log.Debug().Str("command", cmd.String()).Str("provider", a.Provider().Name).Bool("sync", a.SyncEnabled()).Msg("starting")

	if err := cli.NewRunner(a, args).Run(ctx, cmd); err != nil {
		cli.DisplayError(err, args.JSON)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}

func help(args cli.Args) int {
	if args.Unknown == "" {
		cli.PrintUsage()
		return cli.ExitSuccess
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args.Unknown)
	if hint := cli.SuggestCommand(args.Unknown); hint != "" {
		fmt.Fprintf(os.Stderr, "Did you mean: dischat %s\n", hint)
	}
	fmt.Fprintln(os.Stderr, "Run 'dischat help' for usage.")
	return cli.ExitUsageError
}

func version(args cli.Args) int {
	if args.JSON {
		if err := cli.WriteJSON(os.Stdout, map[string]string{
			"version":    Version,
			"git_commit": GitCommit,
			"build_date": BuildDate,
			"go":         runtime.Version(),
			"platform":   runtime.GOOS + "/" + runtime.GOARCH,
		}); err != nil {
			return cli.ExitGeneralError
		}
		return cli.ExitSuccess
	}
	cli.PrintVersion()
	return cli.ExitSuccess
}
