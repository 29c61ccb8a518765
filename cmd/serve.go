package cmd

import (
	"fmt"

	"github.com/fileelf/fileelf/pkg/backend"
	"github.com/fileelf/fileelf/pkg/config"
	"github.com/fileelf/fileelf/pkg/server"
	"github.com/fileelf/fileelf/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the locator daemon",
	Long: `Boot the index from the persistent store, watch the configured target
directories for changes, and serve lookup queries over local HTTP.`,
	Example: `  # Run with the default config location
  fileelf serve

  # Run against an explicit config
  fileelf serve --config /etc/file-elf/config.toml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		logrus.SetLevel(cfg.Level())

		db, err := store.Open(cfg.Database.DBType, cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()

		engine := backend.NewEngine(cfg, db)
		defer engine.Close()

		if err := engine.Boot(); err != nil {
			return fmt.Errorf("boot index: %w", err)
		}

		for _, target := range cfg.Database.Targets {
			if err := engine.Watch(target); err != nil {
				logrus.Errorf("watch %s: %v", target, err)
			}
		}

		return server.Run(engine, cfg, servePort)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", config.DefaultPort, "HTTP port of the query surface")
	rootCmd.AddCommand(serveCmd)
}
