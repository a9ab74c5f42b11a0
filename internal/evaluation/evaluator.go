package evaluation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/opencontest/contest-api/internal/models"
	"github.com/opencontest/contest-api/internal/judge"
	"github.com/opencontest/contest-api/internal/logger"
	"github.com/opencontest/contest-api/internal/types"
)

const name = "github.com/opencontest/contest-api/cmd/server/internal/evaluation"

var tracer = otel.Tracer(name)

var (
	ErrNotAutoGraded = errors.New("problem is not automatically graded")
	ErrNoTestCases   = errors.New("problem has no test cases")
)

// Runner abstracts the execution service client for tests
type Runner interface {
	Run(ctx context.Context, req *judge.RunRequest) (*judge.RunResult, error)
}

// Evaluator runs a submission against its problem's test cases through the
// execution service and persists the outcome.
type Evaluator struct {
	db     *gorm.DB
	runner Runner
}

func New(db *gorm.DB, runner Runner) *Evaluator {
	return &Evaluator{db: db, runner: runner}
}

// Evaluate scores one pending submission on an auto-graded problem. A rate
// limited execution service propagates as [judge.ErrRateLimited] without
// touching the submission so the caller can retry; any other execution
// failure marks the submission errored.
func (e *Evaluator) Evaluate(ctx context.Context, submissionID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "Evaluator.Evaluate", trace.WithAttributes(
		attribute.String("submission.id", submissionID.String()),
	))
	defer span.End()

	db := e.db.WithContext(ctx)

	submission, err := models.ByID[models.Submission](ctx, db, submissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load submission")
		return fmt.Errorf("failed to load submission: %w", err)
	}

	var problem models.Problem
	err = db.Preload("TestCases", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&problem, submission.ProblemID).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load problem")
		return fmt.Errorf("failed to load problem: %w", err)
	}

	if problem.GradingKind != types.GradingKindAuto {
		span.RecordError(ErrNotAutoGraded)
		span.SetStatus(codes.Error, ErrNotAutoGraded.Error())
		return ErrNotAutoGraded
	}
	if len(problem.TestCases) == 0 {
		span.RecordError(ErrNoTestCases)
		span.SetStatus(codes.Error, ErrNoTestCases.Error())
		return ErrNoTestCases
	}

	req := &judge.RunRequest{
		SourceCode:       submission.SourceCode,
		LanguageID:       submission.LanguageID,
		CPUTimeLimitSecs: problem.CPUTimeLimitSecs,
		MemoryLimitKB:    problem.MemoryLimitKB,
		TestCases:        make([]judge.TestCase, 0, len(problem.TestCases)),
	}
	for _, testCase := range problem.TestCases {
		req.TestCases = append(req.TestCases, judge.TestCase{
			Stdin:          testCase.Stdin,
			ExpectedOutput: testCase.ExpectedOutput,
		})
	}

	result, err := e.runner.Run(ctx, req)
	if err != nil {
		span.RecordError(err)

		if errors.Is(err, judge.ErrRateLimited) {
			span.SetStatus(codes.Error, "execution service rate limited")
			return err
		}

		span.SetStatus(codes.Error, "execution failed")
		if markErr := e.mark(ctx, submission.ID, types.SubmissionStatusErrored, 0); markErr != nil {
			return errors.Join(err, markErr)
		}
		return err
	}

	score := 100 * result.Passed / len(result.Results)
	if err := e.mark(ctx, submission.ID, types.SubmissionStatusJudged, score); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist evaluation")
		return err
	}

	logger.Logger.InfoContext(ctx, "evaluated submission",
		"submission", submission.ID,
		"passed", result.Passed,
		"testCases", len(result.Results),
		"score", score,
	)

	span.SetAttributes(
		attribute.Int("passed", result.Passed),
		attribute.Int("score", score),
	)
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "evaluated submission")
	return nil
}

func (e *Evaluator) mark(
	ctx context.Context,
	id uuid.UUID,
	status types.SubmissionStatus,
	score int,
) error {
	return e.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Updates(models.Submission{
			Status: status,
			Score:  models.NewNullFromData(score),
		}).Error
}
