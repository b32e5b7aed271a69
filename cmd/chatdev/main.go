package main

import (
	"context"
	"fmt"
	"os"

	"chatdev/internal/app"
	"chatdev/internal/config"
	"chatdev/internal/logging"
	"chatdev/internal/ui"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	cfgFile    string
	backendURL string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatdev",
		Short: "Terminal client for the ChatDev multi-agent code generator",
		Long: `chatdev submits software tasks to a ChatDev service, follows the
agents' conversation live and previews the generated files.

Run without arguments for the interactive interface.`,
		SilenceUsage: true,
		RunE:         runTUI,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/chatdev/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "service base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to the log file")

	rootCmd.AddCommand(
		newCreateCmd(),
		newSessionsCmd(),
		newDeleteCmd(),
		newFilesCmd(),
		newLoginCmd(),
		newModelCmd(),
		newHealthCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "chatdev version %s\n", version)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if backendURL != "" {
		cfg.Server.BaseURL = backendURL
	}
	if verbose {
		cfg.Logging.Enabled = true
		cfg.Logging.Level = "debug"
	}
	cfg.Version = version

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp loads config, starts file logging and restores persisted state.
// The returned context ends on SIGINT/SIGTERM; cleanup closes everything.
func openApp(parent context.Context) (*app.App, context.Context, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.Logging.Enabled {
		if err := logging.EnableFileLogging(cfg.Dir(), logging.ParseLevel(cfg.Logging.Level)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		}
	}

	a, err := app.New(cfg, app.Options{})
	if err != nil {
		logging.Close()
		return nil, nil, nil, fmt.Errorf("failed to create application: %w", err)
	}
	a.Restore()

	ctx, stop := a.HandleSignals(parent)
	cleanup := func() {
		stop()
		a.Close()
		logging.Close()
	}
	return a, ctx, cleanup, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, ctx, cleanup, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	return ui.Run(ctx, a)
}
