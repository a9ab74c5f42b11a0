package cmds

import (
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/codes"

	"github.com/opencontest/contest-api/internal/distribution"
	"github.com/opencontest/contest-api/internal/scheduler"
	"github.com/opencontest/contest-api/internal/logger"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Run one status reconciliation pass and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "resolveCmd")
		defer span.End()

		db, cfg, err := openDB()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to open database")
			return err
		}

		s := scheduler.New(
			db,
			distribution.New(db),
			time.Duration(cfg.Scheduler.TickSeconds)*time.Second,
		)
		if err := s.Tick(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "reconciliation pass failed")
			return err
		}

		logger.Logger.InfoContext(ctx, "reconciliation pass complete")

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "resolved statuses")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
