package status

import (
	"time"

	"github.com/opencontest/contest-api/internal/models"
	"github.com/opencontest/contest-api/internal/types"
)

// Registration window parsed from the contest's config entries. Nil fields
// mean the corresponding key is unset.
type RegistrationWindow struct {
	Start *time.Time
	End   *time.Time
}

// ResolveContest evaluates the contest status chain in strict priority order;
// the first matching rule wins and no match means no change. The second
// return is false when the contest should be left alone.
//
// Completed and cancelled are terminal. Paused is an operator-only state the
// resolver never overrides; there is no automatic entry or exit for it.
func ResolveContest(
	contest *models.Contest,
	window RegistrationWindow,
	now time.Time,
) (types.ContestStatus, bool) {
	current := contest.Status

	if current.Terminal() || current == types.ContestStatusPaused {
		return current, false
	}

	if current == types.ContestStatusOngoing && allRoundsEnded(contest.Rounds, now) {
		return changed(current, types.ContestStatusCompleted)
	}

	if contest.EndsAt != nil && !now.Before(*contest.EndsAt) {
		return changed(current, types.ContestStatusCompleted)
	}

	if contest.StartsAt != nil && !now.Before(*contest.StartsAt) &&
		(contest.EndsAt == nil || now.Before(*contest.EndsAt)) {
		return changed(current, types.ContestStatusOngoing)
	}

	if window.End != nil && !now.Before(*window.End) &&
		contest.StartsAt != nil && now.Before(*contest.StartsAt) &&
		current != types.ContestStatusRegistrationClosed {
		return changed(current, types.ContestStatusRegistrationClosed)
	}

	if window.Start != nil && window.End != nil &&
		!now.Before(*window.Start) && now.Before(*window.End) &&
		current == types.ContestStatusPublished {
		return changed(current, types.ContestStatusRegistrationOpen)
	}

	return current, false
}

// Every round over, with at least one round present. The leaderboard freeze
// fires off this rule rather than the contest window so a contest with an
// open-ended schedule still completes once its last round closes.
func allRoundsEnded(rounds []models.Round, now time.Time) bool {
	if len(rounds) == 0 {
		return false
	}

	for _, round := range rounds {
		if now.Before(round.EndsAt) {
			return false
		}
	}

	return true
}

func changed(current, next types.ContestStatus) (types.ContestStatus, bool) {
	return next, next != current
}
