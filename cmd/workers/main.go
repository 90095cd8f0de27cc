// Package main is the entry point for the edge workers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/blackroad/workers/internal/config"
	"github.com/blackroad/workers/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

const defaultConfigPath = "configs/workers.yaml"

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags(os.Args[1:])

	if flags.showVersion {
		printVersion()
		return
	}

	cfg, err := loadAndValidateConfig(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(flags, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting workers",
		observability.String("version", version),
		observability.String("config", flags.configPath),
		observability.Int("services", len(cfg.Services)),
	)

	app, err := newApplication(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", observability.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx); err != nil {
		logger.Error("workers exited with error", observability.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("workers stopped")
}

// parseFlags parses command line flags. Unset flags fall back to
// WORKERS_* environment variables.
func parseFlags(args []string) cliFlags {
	fsFlags := flag.NewFlagSet("workers", flag.ExitOnError)
	configPath := fsFlags.String("config", getEnvOrDefault("WORKERS_CONFIG_PATH", defaultConfigPath),
		"Path to configuration file")
	logLevel := fsFlags.String("log-level", getEnvOrDefault("WORKERS_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the config file")
	logFormat := fsFlags.String("log-format", getEnvOrDefault("WORKERS_LOG_FORMAT", ""),
		"Log format (json, console); overrides the config file")
	showVersion := fsFlags.Bool("version", false, "Show version information")
	_ = fsFlags.Parse(args)

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("workers version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// loadAndValidateConfig loads the config file. A missing file at the
// default location yields the built-in configuration.
func loadAndValidateConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	switch {
	case path == "":
		cfg = config.DefaultConfig()
	default:
		cfg, err = config.LoadConfig(path)
		if errors.Is(err, fs.ErrNotExist) && path == defaultConfigPath {
			cfg, err = config.DefaultConfig(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogger builds the logger from the config, with flags taking precedence.
func initLogger(flags cliFlags, cfg *config.Config) (observability.Logger, error) {
	logCfg := observability.DefaultLogConfig()
	if l := cfg.Observability.Logging; l != nil {
		logCfg.Level = l.Level
		logCfg.Format = l.Format
		logCfg.Output = l.Output
	}
	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		logCfg.Format = flags.logFormat
	}

	return observability.NewLogger(logCfg)
}
