package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qbank/internal/config"
	"qbank/internal/store"
)

func newMigrateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dryRun bool
	var inspect bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run or inspect SQLite schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inspect || dryRun {
				db, err := store.OpenRaw(cfg.SQLite.Path)
				if err != nil {
					return err
				}
				defer db.Close()

				plan, err := store.MigrationPlan(db)
				if err != nil {
					return fmt.Errorf("inspect migrations: %w", err)
				}

				if *jsonOutput {
					return writeJSON(plan)
				}

				lines := []string{
					fmt.Sprintf("Current version: %d", plan.CurrentVersion),
					fmt.Sprintf("Available version: %d", plan.AvailableVersion),
				}
				if len(plan.Pending) == 0 {
					lines = append(lines, "No pending migrations.")
				} else {
					lines = append(lines, fmt.Sprintf("Pending migrations: %d", len(plan.Pending)))
					for _, m := range plan.Pending {
						lines = append(lines, fmt.Sprintf("  %d: %s", m.Version, m.Description))
					}
				}
				for _, line := range lines {
					if err := writePlain("%s\n", line); err != nil {
						return err
					}
				}
				return nil
			}

			// Opening the store applies pending migrations.
			st, err := store.Open(cfg.SQLite.Path)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer st.Close()

			if *jsonOutput {
				db, err := store.OpenRaw(cfg.SQLite.Path)
				if err != nil {
					return err
				}
				defer db.Close()

				plan, err := store.MigrationPlan(db)
				if err != nil {
					return err
				}
				return writeJSON(plan)
			}

			return writePlain("Migrations applied successfully.\n")
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "show migration status")

	return cmd
}
