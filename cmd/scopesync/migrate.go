package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bcmodular/scopesync-core/internal/infrastructure/config"
	"github.com/bcmodular/scopesync-core/internal/infrastructure/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the parameter state database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd, func(db *database.DB) error {
					if err := db.Migrate(cmd.Context()); err != nil {
						return errors.Wrap(err, "applying migrations")
					}
					return printMigrationStatus(cmd.OutOrStdout(), cmd, db)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert the most recently applied migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd, func(db *database.DB) error {
					if err := db.MigrateDown(cmd.Context()); err != nil {
						return errors.Wrap(err, "reverting migration")
					}
					return printMigrationStatus(cmd.OutOrStdout(), cmd, db)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd, func(db *database.DB) error {
					return printMigrationStatus(cmd.OutOrStdout(), cmd, db)
				})
			},
		},
	)

	return cmd
}

// withDatabase opens the configured database for the duration of fn.
func withDatabase(cmd *cobra.Command, fn func(db *database.DB) error) error {
	cfg, err := config.Load(getConfigPath(cmd))
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer db.Close()

	return fn(db)
}

func printMigrationStatus(w io.Writer, cmd *cobra.Command, db *database.DB) error {
	applied, pending, err := db.MigrationStatus(cmd.Context())
	if err != nil {
		return errors.Wrap(err, "reading migration status")
	}

	for _, m := range applied {
		fmt.Fprintf(w, "applied  %s  %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, m := range pending {
		fmt.Fprintf(w, "pending  %s  %s\n", m.Version, m.Name)
	}
	fmt.Fprintf(w, "%d applied, %d pending\n", len(applied), len(pending))
	return nil
}
