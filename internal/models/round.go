package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/opencontest/contest-api/internal/types"
)

// A round carries at most one graded artifact: either a coding problem or an
// MCQ test, never both. The CRUD layer enforces the one-of relationship.
type Round struct {
	Model
	DeletedAt gorm.DeletedAt `gorm:"index"`
	StartsAt  time.Time
	EndsAt    time.Time
	Name      string
	Status    types.RoundStatus
	ContestID uuid.UUID
	Problem   *Problem
	McqTest   *McqTest
}

func (Round) TableName() string {
	return "round"
}

func (r Round) GetID() uuid.UUID {
	return r.ID
}

// All non-deleted rounds regardless of contest state. Rounds belonging to
// terminal contests still need their own status kept current.
func AllRounds(ctx context.Context, db *gorm.DB) ([]Round, error) {
	ctx, span := tracer.Start(ctx, "AllRounds")
	defer span.End()

	var rounds []Round
	err := db.WithContext(ctx).Preload("Problem").Find(&rounds).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load rounds")
		return nil, err
	}

	return rounds, nil
}
