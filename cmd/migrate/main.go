package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/utleieskade/backend/internal/config"
	"github.com/utleieskade/backend/internal/db"
	"github.com/utleieskade/backend/internal/logger"
)

var (
	migrationsDir string
	steps         int
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Database migration tools",
		Long:          `Apply or roll back the versioned SQL migrations for the configured DB_DIALECT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&migrationsDir, "dir", "d", "migrations", "Directory holding one sub-directory per dialect")

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: withMigrator(func(m *db.Migrator, _ []string) error {
			return m.Down(steps)
		}),
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			RunE: withMigrator(func(m *db.Migrator, _ []string) error {
				return m.Up()
			}),
		},
		down,
		&cobra.Command{
			Use:   "goto VERSION",
			Short: "Migrate up or down to a specific version",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(m *db.Migrator, args []string) error {
				version, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Goto(uint(version))
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the version without running migrations and clear the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(m *db.Migrator, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(version)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the current migration version",
			RunE: withMigrator(func(m *db.Migrator, _ []string) error {
				status, err := m.Status()
				if err != nil {
					return err
				}
				if !status.Applied {
					fmt.Println("No migrations applied")
					return nil
				}
				fmt.Printf("Version: %d (dirty: %t)\n", status.Version, status.Dirty)
				return nil
			}),
		},
	)
	return cmd
}

func withMigrator(run func(*db.Migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Initialize()

		m, err := db.NewMigrator(cfg.Database, migrationsDir)
		if err != nil {
			return err
		}
		defer m.Close()

		logger.Info("Running migration command", map[string]interface{}{
			"command": cmd.Name(),
			"dialect": cfg.Database.Dialect,
		})
		return run(m, args)
	}
}
