package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/richa/internal/db"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the session database schema",
		Long: `Opening the database applies pending migrations, so "up" is only
needed to check a database. Use "down" and "force" to recover from a bad
migration.`,
	}

	// withDB runs fn against the configured database.
	withDB := func(fn func(cmd *cobra.Command, d *db.DB, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			d, err := root.openDB()
			if err != nil {
				return err
			}
			defer d.Close()
			return fn(cmd, d, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withDB(func(cmd *cobra.Command, d *db.DB, args []string) error {
				if err := d.MigrateUp(); err != nil {
					return err
				}
				return printVersion(cmd, d)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: withDB(func(cmd *cobra.Command, d *db.DB, args []string) error {
				if err := d.MigrateDown(); err != nil {
					return err
				}
				return printVersion(cmd, d)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the schema version",
			Args:  cobra.NoArgs,
			RunE: withDB(func(cmd *cobra.Command, d *db.DB, args []string) error {
				return printVersion(cmd, d)
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Record a schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withDB(func(cmd *cobra.Command, d *db.DB, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				if err := d.MigrateForce(v); err != nil {
					return err
				}
				return printVersion(cmd, d)
			}),
		},
	)
	return cmd
}

func printVersion(cmd *cobra.Command, d *db.DB) error {
	version, dirty, err := d.MigrateVersion()
	if err != nil {
		return err
	}
	latest, err := db.LatestMigrationVersion()
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d of %d (%s)\n", version, latest, state)
	return nil
}
