package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"phonehunt/internal/config"
	"phonehunt/internal/logging"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phonehunt",
		Short: "Batch phone number extraction from public people-search records",
		Long: `phonehunt walks a CSV of person records and resolves phone numbers for
each one by searching a public people-search site in an isolated,
proxied browser session. A result only counts when its address matches
the record's address; unresolved records keep empty columns and are
retried on the next run.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file path (default: XDG config location)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewProxiesCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewFanoutCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// loadConfig reads the configuration honoring the persistent flags and
// initializes logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}
	logging.Init(cfg.LogLevel, cfg.LogJSON)
	return cfg, nil
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
