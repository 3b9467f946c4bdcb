package main

import (
	"fmt"

	"value-ledger/config"
	pgStorage "value-ledger/internal/adapter/storage/postgres"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
)

// migrateCommands groups the schema migration subcommands.
func migrateCommands(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(migrateCommand(opts, "up", "Apply pending migrations", migrate.Up))
	cmd.AddCommand(migrateCommand(opts, "down", "Roll back applied migrations", migrate.Down))

	return cmd
}

func migrateCommand(opts *cliOptions, use, short string, direction migrate.MigrationDirection) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}

			n, err := pgStorage.Migrate(cfg.Database.DSN(), direction, limit)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}

			verb := "Applied"
			if direction == migrate.Down {
				verb = "Rolled back"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d migrations\n", verb, n)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of migrations (0 = all)")
	return cmd
}
