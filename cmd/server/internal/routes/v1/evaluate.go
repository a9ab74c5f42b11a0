package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	srverr "github.com/opencontest/contest-api/cmd/server/internal/error"
	"github.com/opencontest/contest-api/internal/evaluation"
	"github.com/opencontest/contest-api/internal/models"
	"github.com/opencontest/contest-api/cmd/server/internal/response"
	"github.com/opencontest/contest-api/internal/judge"
	"github.com/opencontest/contest-api/internal/types"
)

// EvaluateSubmission runs a submission through the execution service and
// records the verdict. The request blocks until polling finishes, so slow
// test suites hold the connection open for a while.
func (h *Handler) EvaluateSubmission(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "EvaluateSubmission")
	defer span.End()

	submission, ok := c.Get("submission").(*models.Submission)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("submission: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("submission.id", submission.ID.String()),
	)

	err := h.evaluator.Evaluate(ctx, submission.ID)
	if err != nil {
		span.RecordError(err)

		switch {
		case errors.Is(err, evaluation.ErrNotAutoGraded),
			errors.Is(err, evaluation.ErrNoTestCases):
			span.SetStatus(codes.Ok, "submission is not evaluable")
			return echo.NewHTTPError(http.StatusBadRequest, types.StringError(err.Error()))
		case errors.Is(err, judge.ErrRateLimited):
			span.SetStatus(codes.Ok, "execution service rate limited")
			return echo.NewHTTPError(
				http.StatusServiceUnavailable,
				types.StringError("execution service is rate limited, retry later"),
			)
		}

		span.SetStatus(codes.Error, "failed to evaluate submission")
		return response.InternalServerError
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "evaluated submission")
	return c.JSON(http.StatusOK, types.EvaluateResponse{Status: "evaluated"})
}
