package configstore

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Canonical config key builders. Call sites never hand-format key strings; a
// typo'd key silently reads as "unset" so every key goes through here.

const (
	ScopeContest  = "contest"
	ScopeRound    = "round"
	ScopeDefaults = "defaults"
)

func ContestRegistrationStart(contestID uuid.UUID) string {
	return fmt.Sprintf("contest:%s:registration_start", contestID)
}

func ContestRegistrationEnd(contestID uuid.UUID) string {
	return fmt.Sprintf("contest:%s:registration_end", contestID)
}

func ContestTeamMembersMax(contestID uuid.UUID) string {
	return fmt.Sprintf("contest:%s:team_members_max", contestID)
}

func ContestTeamLimitMax(contestID uuid.UUID) string {
	return fmt.Sprintf("contest:%s:team_limit_max", contestID)
}

func ContestRewards(contestID uuid.UUID) string {
	return fmt.Sprintf("contest:%s:rewards", contestID)
}

func ContestPolicy(contestID uuid.UUID, policyKey string) string {
	return fmt.Sprintf("contest:%s:policy:%s", contestID, policyKey)
}

func ContestJudge(contestID, userID uuid.UUID) string {
	return fmt.Sprintf("contest:%s:judge:%s", contestID, userID)
}

func RoundTimeLimitSeconds(roundID uuid.UUID) string {
	return fmt.Sprintf("round:%s:time_limit_seconds", roundID)
}

func RoundSubmissionsDistributed(roundID uuid.UUID) string {
	return fmt.Sprintf("round:%s:submissions_distributed", roundID)
}

const (
	DefaultTeamMembersMax = "defaults:team_members_max"
	DefaultTeamLimitMax   = "defaults:team_limit_max"
)

// SQL LIKE pattern matching every judge participation key of a contest
func contestJudgePattern(contestID uuid.UUID) string {
	return fmt.Sprintf("contest:%s:judge:%%", contestID)
}

// Extracts the user id from a judge participation key
func judgeUserID(key string) (uuid.UUID, error) {
	idx := strings.LastIndex(key, ":")
	if idx < 0 {
		return uuid.Nil, fmt.Errorf("malformed judge key: %q", key)
	}

	return uuid.Parse(key[idx+1:])
}
