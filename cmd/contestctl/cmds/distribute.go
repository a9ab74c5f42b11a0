package cmds

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/opencontest/contest-api/internal/distribution"
	"github.com/opencontest/contest-api/internal/logger"
)

var distributeCmd = &cobra.Command{
	Use:   "distribute <round-id>",
	Short: "Distribute a round's pending submissions across its contest's judges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "distributeCmd")
		defer span.End()

		roundID, err := uuid.Parse(args[0])
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid round id")
			return fmt.Errorf("invalid round id %q: %w", args[0], err)
		}

		span.SetAttributes(attribute.String("round.id", roundID.String()))

		db, _, err := openDB()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to open database")
			return err
		}

		if err := distribution.New(db).Distribute(ctx, roundID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to distribute submissions")
			return err
		}

		logger.Logger.InfoContext(ctx, "distributed submissions", "round", roundID)

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "distributed submissions")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(distributeCmd)
}
