package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opencontest/contest-api/internal/models"
	"github.com/opencontest/contest-api/internal/types"
)

func TestResolveRound(t *testing.T) {
	start := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.January, 12, 0, 0, 0, 0, time.UTC)
	round := &models.Round{StartsAt: start, EndsAt: end}

	tests := []struct {
		name     string
		now      time.Time
		expected types.RoundStatus
	}{
		{"BeforeStart", start.Add(-time.Hour), types.RoundStatusClosed},
		{"AtStart", start, types.RoundStatusOpened},
		{"DuringWindow", start.Add(time.Hour), types.RoundStatusOpened},
		{"JustBeforeEnd", end.Add(-time.Nanosecond), types.RoundStatusOpened},
		{"AtEnd", end, types.RoundStatusClosed},
		{"AfterEnd", end.Add(time.Hour), types.RoundStatusClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveRound(round, tt.now))
		})
	}
}

func TestResolveRoundIsStable(t *testing.T) {
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	round := &models.Round{StartsAt: start, EndsAt: start.Add(2 * time.Hour)}

	now := start.Add(time.Hour)
	first := ResolveRound(round, now)
	for range 10 {
		assert.Equal(t, first, ResolveRound(round, now))
	}
}
