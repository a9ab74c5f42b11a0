package cmds

import (
	"context"
	"fmt"
	"log/slog"

	sloggorm "github.com/orandin/slog-gorm"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/opencontest/contest-api/internal/config"
	"github.com/opencontest/contest-api/internal/logger"
)

const name = "github.com/opencontest/contest-api/cmd/contestctl/cmds"

var tracer = otel.Tracer(name)

var rootCmd = &cobra.Command{
	Use:   "contestctl",
	Short: "Operational commands for the contest api",
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Shared db bootstrap for subcommands. No tracing plugin here; one-shot
// commands flush straight to stderr.
func openDB() (*gorm.DB, *config.Config, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	gormLogger := slog.New(logger.Handler)
	sg := sloggorm.New(
		sloggorm.WithHandler(gormLogger.Handler()),
		sloggorm.SetLogLevel(sloggorm.DefaultLogType, slog.Level(cfg.Logging.Gorm.Level)),
	)

	db, err := gorm.Open(
		postgres.Open(cfg.PostgresDSN()),
		&gorm.Config{Logger: sg, TranslateError: true},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, cfg, nil
}
