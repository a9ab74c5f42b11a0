package models

import (
	"github.com/google/uuid"

	"github.com/opencontest/contest-api/internal/types"
)

type Problem struct {
	Model
	Title            string
	GradingKind      types.GradingKind
	RoundID          uuid.UUID `gorm:"uniqueIndex"`
	LanguageID       int
	CPUTimeLimitSecs float64 `gorm:"column:cpu_time_limit_secs"`
	MemoryLimitKB    int     `gorm:"column:memory_limit_kb"`
	TestCases        []TestCase
}

func (Problem) TableName() string {
	return "problem"
}

func (p Problem) GetID() uuid.UUID {
	return p.ID
}

func (p *Problem) ManuallyGraded() bool {
	return p.GradingKind == types.GradingKindManual
}

// Ordered input/expected-output pair for automated evaluation
type TestCase struct {
	Model
	Stdin          string
	ExpectedOutput string
	ProblemID      uuid.UUID
	Position       int
}

func (TestCase) TableName() string {
	return "test_case"
}

func (t TestCase) GetID() uuid.UUID {
	return t.ID
}

type McqTest struct {
	Model
	Title         string
	RoundID       uuid.UUID `gorm:"uniqueIndex"`
	QuestionCount int
}

func (McqTest) TableName() string {
	return "mcq_test"
}

func (m McqTest) GetID() uuid.UUID {
	return m.ID
}
