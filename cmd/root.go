package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/neurokit/neurokit-go/cmd/inspect"
	"github.com/neurokit/neurokit-go/cmd/split"
	"github.com/neurokit/neurokit-go/internal/conf"
	"github.com/neurokit/neurokit-go/internal/logging"
	"github.com/neurokit/neurokit-go/internal/observability"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, metrics *observability.Metrics) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "neurokit",
		Short: "NeuroKit epoch container CLI",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		logging.Fatal("error setting up flags", "error", err)
	}

	subcommands := []*cobra.Command{
		inspect.Command(settings, metrics),
		split.Command(settings, metrics),
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Parse the command line flags
		if err := cmd.Flags().Parse(args); err != nil {
			return err
		}
		if settings.Debug {
			logging.SetLevel(slog.LevelDebug)
		}
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
