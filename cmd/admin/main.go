package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/woreda-portal/compliance-service/internal/config"
	"github.com/woreda-portal/compliance-service/internal/observability"
	"github.com/woreda-portal/compliance-service/internal/persistence"
)

var (
	timeout time.Duration
	verbose bool
)

// rootCmd is the operator entry point.
var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Operator tooling for the compliance service",
	Long: `Operator tooling for the compliance service.

Available subcommands:
  migrate        - apply SQL migrations
  staff create   - bootstrap a staff account
  reports list   - print reports matching a filter`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(staffCmd)
	rootCmd.AddCommand(reportsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtimeEnv holds what every subcommand needs.
type runtimeEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
}

func (e *runtimeEnv) Close() {
	e.pg.Close()
	_ = e.logger.Sync()
}

func openEnv(ctx context.Context) (*runtimeEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Logger.Level = "debug"
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if pg.PoolHandle() == nil {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	return &runtimeEnv{cfg: cfg, logger: logger, pg: pg}, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}
