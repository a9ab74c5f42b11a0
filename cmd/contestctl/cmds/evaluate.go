package cmds

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/opencontest/contest-api/internal/evaluation"
	"github.com/opencontest/contest-api/internal/judge"
	"github.com/opencontest/contest-api/internal/logger"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <submission-id>",
	Short: "Run a submission against its problem's test cases and record the score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "evaluateCmd")
		defer span.End()

		submissionID, err := uuid.Parse(args[0])
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid submission id")
			return fmt.Errorf("invalid submission id %q: %w", args[0], err)
		}

		span.SetAttributes(attribute.String("submission.id", submissionID.String()))

		db, cfg, err := openDB()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to open database")
			return err
		}

		runner := judge.NewClient(judge.Config{
			URL:                 cfg.Judge.URL,
			AuthToken:           cfg.Judge.AuthToken,
			BatchSize:           cfg.Judge.BatchSize,
			MaxPollAttempts:     cfg.Judge.MaxPollAttempts,
			PollInterval:        time.Duration(cfg.Judge.PollIntervalMS) * time.Millisecond,
			SubmissionDelay:     time.Duration(cfg.Judge.SubmissionDelayMS) * time.Millisecond,
			RequestTimeout:      time.Duration(cfg.Judge.RequestTimeoutSecs) * time.Second,
			Base64EncodedBodies: cfg.Judge.Base64EncodedBodies,
		})

		if err := evaluation.New(db, runner).Evaluate(ctx, submissionID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to evaluate submission")
			return err
		}

		logger.Logger.InfoContext(ctx, "evaluated submission", "submission", submissionID)

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "evaluated submission")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}
