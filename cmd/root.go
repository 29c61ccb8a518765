package cmd

import (
	"fmt"
	"os"

	"github.com/fileelf/fileelf/pkg/config"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "fileelf",
	Short:   "fileelf - access-weighted file locator daemon and client",
	Version: "v0.3.0",
	Long: `fileelf indexes your directories into an access-weighted cache and
answers name, fuzzy, and regex lookups in milliseconds. Run "fileelf serve"
to start the daemon, "fileelf search" to query it interactively.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (default: user config dir)")
}

// resolveConfigPath falls back to the per-user default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}
