package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tidybook/tidybook/internal/config"
	"github.com/tidybook/tidybook/internal/logging"
	"github.com/tidybook/tidybook/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo tenant data into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		log := logging.New(os.Stderr, cfg.Logging.Level)

		db, err := store.Open(cfg.Database.Path, log)
		if err != nil {
			return err
		}
		defer db.Close()

		return store.Seed(cmd.Context(), db)
	},
}
