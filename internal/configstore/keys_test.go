package configstore

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyBuilders(t *testing.T) {
	contestID := uuid.MustParse("0194e7a0-0000-7000-8000-000000000001")
	roundID := uuid.MustParse("0194e7a0-0000-7000-8000-000000000002")
	userID := uuid.MustParse("0194e7a0-0000-7000-8000-000000000003")

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{
			"RegistrationStart",
			ContestRegistrationStart(contestID),
			fmt.Sprintf("contest:%s:registration_start", contestID),
		},
		{
			"RegistrationEnd",
			ContestRegistrationEnd(contestID),
			fmt.Sprintf("contest:%s:registration_end", contestID),
		},
		{
			"TeamMembersMax",
			ContestTeamMembersMax(contestID),
			fmt.Sprintf("contest:%s:team_members_max", contestID),
		},
		{
			"TeamLimitMax",
			ContestTeamLimitMax(contestID),
			fmt.Sprintf("contest:%s:team_limit_max", contestID),
		},
		{
			"Rewards",
			ContestRewards(contestID),
			fmt.Sprintf("contest:%s:rewards", contestID),
		},
		{
			"Policy",
			ContestPolicy(contestID, "late_submission"),
			fmt.Sprintf("contest:%s:policy:late_submission", contestID),
		},
		{
			"Judge",
			ContestJudge(contestID, userID),
			fmt.Sprintf("contest:%s:judge:%s", contestID, userID),
		},
		{
			"TimeLimit",
			RoundTimeLimitSeconds(roundID),
			fmt.Sprintf("round:%s:time_limit_seconds", roundID),
		},
		{
			"DistributedFlag",
			RoundSubmissionsDistributed(roundID),
			fmt.Sprintf("round:%s:submissions_distributed", roundID),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.key)
		})
	}
}

func TestJudgeUserID(t *testing.T) {
	contestID := uuid.New()
	userID := uuid.New()

	t.Run("RoundTrips", func(t *testing.T) {
		parsed, err := judgeUserID(ContestJudge(contestID, userID))
		require.NoError(t, err)
		assert.Equal(t, userID, parsed)
	})

	t.Run("MalformedKey", func(t *testing.T) {
		_, err := judgeUserID("nonsense")
		assert.Error(t, err)
	})

	t.Run("NonUUIDSuffix", func(t *testing.T) {
		_, err := judgeUserID("contest:abc:judge:not-a-uuid")
		assert.Error(t, err)
	})
}
