package status

import (
	"time"

	"github.com/opencontest/contest-api/internal/models"
	"github.com/opencontest/contest-api/internal/types"
)

// ResolveRound derives a round's status purely from its window and "now".
// A round is opened for now in [starts_at, ends_at) and closed otherwise, so
// re-evaluating an unchanged window always yields the same answer.
func ResolveRound(round *models.Round, now time.Time) types.RoundStatus {
	if now.Before(round.StartsAt) || !now.Before(round.EndsAt) {
		return types.RoundStatusClosed
	}

	return types.RoundStatusOpened
}
