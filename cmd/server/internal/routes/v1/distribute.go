package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/opencontest/contest-api/internal/distribution"
	srverr "github.com/opencontest/contest-api/cmd/server/internal/error"
	"github.com/opencontest/contest-api/internal/models"
	"github.com/opencontest/contest-api/cmd/server/internal/response"
	"github.com/opencontest/contest-api/internal/types"
)

// DistributeRound triggers submission distribution for a round ahead of the
// scheduler. Safe to call repeatedly; a second call is a no-op.
func (h *Handler) DistributeRound(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "DistributeRound")
	defer span.End()

	round, ok := c.Get("round").(*models.Round)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("round: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("round.id", round.ID.String()),
	)

	err := h.distributor.Distribute(ctx, round.ID)
	if err != nil {
		span.RecordError(err)

		switch {
		case errors.Is(err, distribution.ErrNoProblem),
			errors.Is(err, distribution.ErrNotManuallyGraded):
			span.SetStatus(codes.Ok, "round is not distributable")
			return echo.NewHTTPError(http.StatusBadRequest, types.StringError(err.Error()))
		case errors.Is(err, distribution.ErrNoActiveJudges):
			span.SetStatus(codes.Ok, "no judges to distribute to")
			return echo.NewHTTPError(http.StatusConflict, types.StringError(err.Error()))
		}

		span.SetStatus(codes.Error, "failed to distribute submissions")
		return response.InternalServerError
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "distributed submissions")
	return c.JSON(http.StatusOK, types.DistributeResponse{Status: "distributed"})
}
