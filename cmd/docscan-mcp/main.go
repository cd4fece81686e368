package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ironsheep/doc-scanner-mcp/internal/config"
	"github.com/ironsheep/doc-scanner-mcp/internal/logging"
	"github.com/ironsheep/doc-scanner-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("docscan-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	fs := pflag.NewFlagSet("docscan-mcp", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "docscan-mcp - MCP server for document scanning")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Usage: docscan-mcp [options]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Options:")
		fmt.Fprint(os.Stderr, fs.FlagUsages())
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Every option can also be set as an environment variable, e.g. %s_LOGLEVEL=debug.\n", config.EnvPrefix)
		fmt.Fprintln(os.Stderr, "This server communicates via MCP protocol over stdin/stdout.")
	}

	cfg, err := config.Load(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "docscan-mcp: %v\n", err)
		os.Exit(2)
	}
	if Version != "dev" {
		cfg.Version = Version
	}

	// stdout carries the protocol, so logs always go to stderr
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docscan-mcp: %v\n", err)
		os.Exit(2)
	}
	logger.WithField("build_time", BuildTime).WithField("commit", GitCommit).
		Debugf("Document scanner MCP server v%s", cfg.Version)
	logger.Debugf("Configuration: %s", cfg)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}
