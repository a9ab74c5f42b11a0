package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/opencontest/contest-api/internal/types"
)

type Contest struct {
	Model
	DeletedAt gorm.DeletedAt `gorm:"index"`
	StartsAt  *time.Time
	EndsAt    *time.Time
	Name      string
	CreatedBy string
	Status    types.ContestStatus
	Rounds    []Round
	Year      int
}

func (Contest) TableName() string {
	return "contest"
}

func (c Contest) GetID() uuid.UUID {
	return c.ID
}

// Non-terminal contests with their rounds, loaded in one query per tick.
func ActiveContests(ctx context.Context, db *gorm.DB) ([]Contest, error) {
	ctx, span := tracer.Start(ctx, "ActiveContests")
	defer span.End()

	var contests []Contest
	err := db.WithContext(ctx).
		Preload("Rounds").
		Where("status NOT IN ?", []types.ContestStatus{
			types.ContestStatusCompleted,
			types.ContestStatusCancelled,
		}).
		Find(&contests).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load active contests")
		return nil, err
	}

	return contests, nil
}
