package models

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/opencontest/contest-api/internal/types"
)

type Submission struct {
	Model
	DeletedAt  gorm.DeletedAt `gorm:"index"`
	SourceCode string
	Status     types.SubmissionStatus
	JudgedBy   datatypes.Null[string]
	Score      datatypes.Null[int]
	TeamID     uuid.UUID
	ProblemID  uuid.UUID
	LanguageID int
}

func (Submission) TableName() string {
	return "submission"
}

func (s Submission) GetID() uuid.UUID {
	return s.ID
}

// Pending, unassigned submissions for a problem in creation order. The stable
// ordering makes a re-run of distribution assign identically.
func PendingSubmissions(
	ctx context.Context,
	db *gorm.DB,
	problemID uuid.UUID,
) ([]Submission, error) {
	ctx, span := tracer.Start(ctx, "PendingSubmissions")
	defer span.End()

	var submissions []Submission
	err := db.WithContext(ctx).
		Where("problem_id = ?", problemID).
		Where("status = ?", types.SubmissionStatusPending).
		Where("judged_by IS NULL").
		Order("created_at ASC, id ASC").
		Find(&submissions).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load pending submissions")
		return nil, err
	}

	return submissions, nil
}
