package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/woreda-portal/compliance-service/internal/persistence"
)

var migrationsDir string

// migrateCmd applies the SQL files in the migrations directory.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply SQL migrations",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "", "Migrations directory (default: POSTGRES_MIGRATIONS_DIR)")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	env, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	dir := migrationsDir
	if dir == "" {
		dir = env.cfg.Postgres.MigrationsDir
	}
	if err := persistence.RunMigrations(ctx, env.pg.PoolHandle(), dir, env.logger); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrations from %s applied\n", dir)
	return nil
}
