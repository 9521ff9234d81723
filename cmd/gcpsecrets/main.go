package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"github.com/systmms/gcpsecrets/cmd/gcpsecrets/commands"
	"github.com/systmms/gcpsecrets/internal/config"
	"github.com/systmms/gcpsecrets/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	memguard.CatchInterrupt()

	err := run()
	memguard.Purge()
	if err != nil {
		if !errors.Is(err, commands.ErrAbsent) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		backend    string
		project    string
		noCache    bool
		cacheTTL   time.Duration
		sealCache  bool
		noColor    bool
		debug      bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "gcpsecrets",
		Short: "Read secrets from GCP Secret Manager and other secret stores",
		Long: `gcpsecrets reads secrets from a remote secret manager by name.

A name resolves to the newest enabled version; NAME:VERSION pins a version.
Lookups are cached for the life of the process: pinned versions forever,
latest versions for cache_ttl_seconds. gcpsecrets never writes secrets.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			flags := cmd.Flags()

			cfg.Path = configFile
			cfg.PathExplicit = flags.Changed("config")
			cfg.Logger = logging.New(debug, noColor)

			if flags.Changed("backend") {
				cfg.Overrides.Backend = &backend
			}
			if flags.Changed("project") {
				cfg.Overrides.Project = &project
			}
			if flags.Changed("no-cache") {
				enabled := !noCache
				cfg.Overrides.Cache = &enabled
			}
			if flags.Changed("cache-ttl") {
				cfg.Overrides.CacheTTL = &cacheTTL
			}
			if flags.Changed("seal-cache") {
				cfg.Overrides.Seal = &sealCache
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Secret backend: gcp, aws, aws-ssm or azure")
	rootCmd.PersistentFlags().StringVar(&project, "project", "", "GCP project, AWS region or Azure vault")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Disable lookup caching")
	rootCmd.PersistentFlags().DurationVar(&cacheTTL, "cache-ttl", 0, "Latest-version cache TTL (0 caches forever)")
	rootCmd.PersistentFlags().BoolVar(&sealCache, "seal-cache", false, "Keep cached payloads in encrypted memory")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewGetCommand(cfg),
		commands.NewHasCommand(cfg),
		commands.NewVersionsCommand(cfg),
		commands.NewSetCommand(cfg),
		commands.NewDoctorCommand(cfg),
	)

	return rootCmd.ExecuteContext(context.Background())
}
