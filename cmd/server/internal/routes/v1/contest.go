package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/opencontest/contest-api/internal/configstore"
	srverr "github.com/opencontest/contest-api/cmd/server/internal/error"
	"github.com/opencontest/contest-api/internal/models"
	"github.com/opencontest/contest-api/cmd/server/internal/response"
	"github.com/opencontest/contest-api/internal/status"
	"github.com/opencontest/contest-api/internal/types"
)

// ContestStatus reports a contest with its statuses resolved against the
// request time, without waiting for the next scheduler tick. Resolution here
// is read only; the stored statuses are untouched.
func (h *Handler) ContestStatus(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "ContestStatus")
	defer span.End()

	db := h.DB.WithContext(ctx)

	contest, ok := c.Get("contest").(*models.Contest)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("contest: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	requestTime, ok := c.Get("time").(time.Time)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("time: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("contest.id", contest.ID.String()),
		attribute.Int64("request.timestamp_ms", requestTime.UnixMilli()),
	)

	var rounds []models.Round
	err := db.Where("contest_id = ?", contest.ID).Order("starts_at ASC").Find(&rounds).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load contest rounds")
		return response.InternalServerError
	}
	contest.Rounds = rounds

	store := configstore.New(db)
	window := status.RegistrationWindow{}
	if start, ok, err := store.GetTime(ctx, configstore.ContestRegistrationStart(contest.ID)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load registration start")
		return response.InternalServerError
	} else if ok {
		window.Start = &start
	}
	if end, ok, err := store.GetTime(ctx, configstore.ContestRegistrationEnd(contest.ID)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load registration end")
		return response.InternalServerError
	} else if ok {
		window.End = &end
	}

	resolved := contest.Status
	if next, changed := status.ResolveContest(contest, window, requestTime); changed {
		resolved = next
	}

	resp := types.ContestStatusResponse{
		ID:             contest.ID.String(),
		Name:           contest.Name,
		Status:         string(contest.Status),
		ResolvedStatus: string(resolved),
		Rounds:         make([]types.RoundStatusView, 0, len(rounds)),
	}
	if window.Start != nil {
		start := window.Start.Format(configstore.TimeFormat)
		resp.RegistrationStart = &start
	}
	if window.End != nil {
		end := window.End.Format(configstore.TimeFormat)
		resp.RegistrationEnd = &end
	}
	for i := range rounds {
		resp.Rounds = append(resp.Rounds, types.RoundStatusView{
			ID:     rounds[i].ID.String(),
			Name:   rounds[i].Name,
			Status: string(status.ResolveRound(&rounds[i], requestTime)),
		})
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "resolved contest status")
	return c.JSON(http.StatusOK, resp)
}
