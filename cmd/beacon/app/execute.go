package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the beacon CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "beacon",
		Short:   "Verified provider catalog client",
		Version: a.version,
		Long: `Beacon fetches signed catalog documents describing external service
providers, verifies their Ed25519 signatures against built-in trust
anchors, and caches verified documents locally so they stay available
when the network is not.

Loads are cache-first: a fresh cached copy is served without network
I/O, and when the source is unreachable the last verified copy is
served with an explicit stale marker.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.beacon.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.config.BaseURL, "base-url", a.config.BaseURL, "catalog source base URL")
	rootCmd.PersistentFlags().StringVar(&a.config.StorePath, "store", a.config.StorePath, "local cache database path")
	rootCmd.PersistentFlags().DurationVar(&a.config.TTL, "ttl", a.config.TTL, "cache freshness window")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().BoolVar(&a.config.NoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&a.config.Format, "format", "o", "", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("beacon {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	verbose := mustGetBool(cmd, "verbose")
	quiet := mustGetBool(cmd, "quiet")
	noColor := mustGetBool(cmd, "no-color")
	format := mustGetString(cmd, "format")
	logLevel := mustGetString(cmd, "log-level")

	a.config.UpdateFromFlags(verbose, quiet, noColor, format, logLevel)

	// Reinitialize logger with updated config
	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(a.NewLoadCommand())
	rootCmd.AddCommand(a.NewRefreshCommand())
	rootCmd.AddCommand(a.NewListCommand())
	rootCmd.AddCommand(a.NewStatsCommand())
	rootCmd.AddCommand(a.NewCleanupCommand())
	rootCmd.AddCommand(a.NewVersionCommand())
}

// ExitOnError prints an error and exits with status 1. It is meant to be
// used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't
// exist. Only for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't
// exist. Only for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
