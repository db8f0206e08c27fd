package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/kioku/internal/database"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or revert database migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(database.Up), string(database.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction, err := database.ParseDirection(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := openDatabase(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := database.Migrate(db, direction); err != nil {
				return fmt.Errorf("migrate %s: %w", direction, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s\n", direction)
			return nil
		},
	}
}
