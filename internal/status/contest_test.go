package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opencontest/contest-api/internal/models"
	"github.com/opencontest/contest-api/internal/types"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestResolveContestLifecycle(t *testing.T) {
	// A contest running Jan 10 through Jan 20 with registration open Jan 1
	// through Jan 8.
	contestStart := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	contestEnd := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)
	regStart := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	regEnd := time.Date(2025, time.January, 8, 0, 0, 0, 0, time.UTC)

	window := RegistrationWindow{Start: &regStart, End: &regEnd}

	tests := []struct {
		name            string
		current         types.ContestStatus
		now             time.Time
		expected        types.ContestStatus
		expectedChanged bool
	}{
		{
			name:            "PublishedBeforeRegistration",
			current:         types.ContestStatusPublished,
			now:             regStart.Add(-time.Hour),
			expectedChanged: false,
		},
		{
			name:            "PublishedDuringRegistration",
			current:         types.ContestStatusPublished,
			now:             time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC),
			expected:        types.ContestStatusRegistrationOpen,
			expectedChanged: true,
		},
		{
			name:            "RegistrationOpenAfterWindowEnds",
			current:         types.ContestStatusRegistrationOpen,
			now:             time.Date(2025, time.January, 9, 0, 0, 0, 0, time.UTC),
			expected:        types.ContestStatusRegistrationClosed,
			expectedChanged: true,
		},
		{
			name:            "RegistrationClosedBeforeStart",
			current:         types.ContestStatusRegistrationClosed,
			now:             time.Date(2025, time.January, 9, 12, 0, 0, 0, time.UTC),
			expectedChanged: false,
		},
		{
			name:            "RegistrationClosedAtStart",
			current:         types.ContestStatusRegistrationClosed,
			now:             contestStart,
			expected:        types.ContestStatusOngoing,
			expectedChanged: true,
		},
		{
			name:            "OngoingMidContest",
			current:         types.ContestStatusOngoing,
			now:             time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
			expectedChanged: false,
		},
		{
			name:            "OngoingAfterEnd",
			current:         types.ContestStatusOngoing,
			now:             time.Date(2025, time.January, 21, 0, 0, 0, 0, time.UTC),
			expected:        types.ContestStatusCompleted,
			expectedChanged: true,
		},
		{
			name:            "PublishedSkipsStraightToOngoing",
			current:         types.ContestStatusPublished,
			now:             contestStart.Add(time.Hour),
			expected:        types.ContestStatusOngoing,
			expectedChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contest := &models.Contest{
				Status:   tt.current,
				StartsAt: timePtr(contestStart),
				EndsAt:   timePtr(contestEnd),
			}

			next, changed := ResolveContest(contest, window, tt.now)
			assert.Equal(t, tt.expectedChanged, changed)
			if tt.expectedChanged {
				assert.Equal(t, tt.expected, next)
			}
		})
	}
}

func TestResolveContestTerminalAndPaused(t *testing.T) {
	start := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)

	for _, current := range []types.ContestStatus{
		types.ContestStatusCompleted,
		types.ContestStatusCancelled,
		types.ContestStatusPaused,
	} {
		t.Run(string(current), func(t *testing.T) {
			contest := &models.Contest{
				Status:   current,
				StartsAt: &start,
				EndsAt:   &end,
			}

			// Well past the end; a live contest would complete here.
			_, changed := ResolveContest(contest, RegistrationWindow{}, end.Add(time.Hour))
			assert.False(t, changed)
		})
	}
}

func TestResolveContestAllRoundsEnded(t *testing.T) {
	start := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)

	t.Run("CompletesWhenEveryRoundEnded", func(t *testing.T) {
		contest := &models.Contest{
			Status:   types.ContestStatusOngoing,
			StartsAt: &start,
			Rounds: []models.Round{
				{StartsAt: start, EndsAt: start.Add(24 * time.Hour)},
				{StartsAt: start.Add(24 * time.Hour), EndsAt: start.Add(48 * time.Hour)},
			},
		}

		next, changed := ResolveContest(contest, RegistrationWindow{}, now)
		assert.True(t, changed)
		assert.Equal(t, types.ContestStatusCompleted, next)
	})

	t.Run("StaysOngoingWhileARoundRemains", func(t *testing.T) {
		contest := &models.Contest{
			Status:   types.ContestStatusOngoing,
			StartsAt: &start,
			Rounds: []models.Round{
				{StartsAt: start, EndsAt: start.Add(24 * time.Hour)},
				{StartsAt: now.Add(24 * time.Hour), EndsAt: now.Add(48 * time.Hour)},
			},
		}

		_, changed := ResolveContest(contest, RegistrationWindow{}, now)
		assert.False(t, changed)
	})

	t.Run("NoRoundsNeverCompletesVacuously", func(t *testing.T) {
		contest := &models.Contest{
			Status:   types.ContestStatusOngoing,
			StartsAt: &start,
		}

		_, changed := ResolveContest(contest, RegistrationWindow{}, now)
		assert.False(t, changed)
	})
}

func TestResolveContestOpenEndedSchedule(t *testing.T) {
	start := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)

	t.Run("StartsWithoutEndDate", func(t *testing.T) {
		contest := &models.Contest{
			Status:   types.ContestStatusPublished,
			StartsAt: &start,
		}

		next, changed := ResolveContest(contest, RegistrationWindow{}, start.Add(time.Hour))
		assert.True(t, changed)
		assert.Equal(t, types.ContestStatusOngoing, next)
	})

	t.Run("NoDatesNoChange", func(t *testing.T) {
		contest := &models.Contest{Status: types.ContestStatusPublished}

		_, changed := ResolveContest(contest, RegistrationWindow{}, start)
		assert.False(t, changed)
	})

	t.Run("RegistrationRulesNeedContestStart", func(t *testing.T) {
		regStart := start.Add(-10 * 24 * time.Hour)
		regEnd := start.Add(-2 * 24 * time.Hour)
		contest := &models.Contest{Status: types.ContestStatusRegistrationOpen}

		// Window has passed but with no contest start date the closed rule
		// cannot fire.
		_, changed := ResolveContest(
			contest,
			RegistrationWindow{Start: &regStart, End: &regEnd},
			start.Add(-24*time.Hour),
		)
		assert.False(t, changed)
	})
}
