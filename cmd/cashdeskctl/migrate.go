package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cashdesk/internal/infrastructure/migration"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Example: `  # Apply all pending migrations
  cashdeskctl migrate up

  # Roll back the last migration
  cashdeskctl migrate steps -1

  # Clear a dirty flag after a failed migration was fixed by hand
  cashdeskctl migrate force 1`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd, func(m *migration.Migrator) error {
			return m.Up(cmd.Context())
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !migrateYes {
			return fmt.Errorf("refusing to drop the schema without --yes")
		}
		return withMigrator(cmd, func(m *migration.Migrator) error {
			return m.Down(cmd.Context())
		})
	},
}

var migrateStepsCmd = &cobra.Command{
	Use:   "steps <n>",
	Short: "Apply n migrations, or roll back when n is negative",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n == 0 {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return withMigrator(cmd, func(m *migration.Migrator) error {
			return m.Steps(cmd.Context(), n)
		})
	},
}

var migrateForceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Set the schema version without running migrations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < -1 {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return withMigrator(cmd, func(m *migration.Migrator) error {
			return m.Force(cmd.Context(), v)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd, func(m *migration.Migrator) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if dirty {
				fmt.Fprintf(cmd.OutOrStdout(), "%d (dirty)\n", v)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		})
	},
}

var migrateYes bool

func init() {
	migrateDownCmd.Flags().BoolVar(&migrateYes, "yes", false, "confirm dropping all tables")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStepsCmd, migrateForceCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

func withMigrator(cmd *cobra.Command, fn func(m *migration.Migrator) error) error {
	env, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer env.close()

	m, err := migration.New(env.pool.Unwrap(), env.log)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	return fn(m)
}
