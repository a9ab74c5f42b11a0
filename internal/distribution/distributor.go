package distribution

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/opencontest/contest-api/internal/configstore"
	"github.com/opencontest/contest-api/internal/models"
	"github.com/opencontest/contest-api/internal/logger"
)

const name = "github.com/opencontest/contest-api/cmd/server/internal/distribution"

var tracer = otel.Tracer(name)

var (
	// Domain errors, never retried by the scheduler
	ErrNoProblem         = errors.New("round has no coding problem")
	ErrNotManuallyGraded = errors.New("round's problem is not manually graded")

	// Recoverable: judges may opt in before the next tick
	ErrNoActiveJudges = errors.New("no active judges participating in contest")
)

// Distributor assigns a closed round's pending manual submissions across the
// contest's active judges exactly once.
type Distributor struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Distributor {
	return &Distributor{db: db}
}

// Distribute is idempotent and safe to invoke concurrently for the same
// round: the whole operation runs in one transaction holding a per-round
// advisory lock, and a one-shot flag in the config store guards re-entry.
// Assignment is a pure function of the creation-ordered pending list and the
// opt-in-ordered judge list, so a rolled-back attempt redoes the identical
// assignment on retry.
func (d *Distributor) Distribute(ctx context.Context, roundID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "Distributor.Distribute", trace.WithAttributes(
		attribute.String("round.id", roundID.String()),
	))
	defer span.End()

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRound(tx, roundID); err != nil {
			return fmt.Errorf("failed to take round lock: %w", err)
		}

		store := configstore.New(tx)

		flagKey := configstore.RoundSubmissionsDistributed(roundID)
		distributed, err := store.Flag(ctx, flagKey)
		if err != nil {
			return fmt.Errorf("failed to check distribution flag: %w", err)
		}
		if distributed {
			span.AddEvent("already_distributed")
			logger.Logger.InfoContext(ctx, "submissions already distributed",
				"round", roundID)
			return nil
		}

		round, err := models.ByID[models.Round](ctx, tx, roundID)
		if err != nil {
			return fmt.Errorf("failed to load round: %w", err)
		}

		var problem models.Problem
		err = tx.Where("round_id = ?", roundID).First(&problem).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoProblem
			}
			return fmt.Errorf("failed to load round problem: %w", err)
		}

		if !problem.ManuallyGraded() {
			return ErrNotManuallyGraded
		}

		judges, err := store.ActiveJudges(ctx, round.ContestID)
		if err != nil {
			return fmt.Errorf("failed to list active judges: %w", err)
		}
		if len(judges) == 0 {
			return ErrNoActiveJudges
		}

		submissions, err := models.PendingSubmissions(ctx, tx, problem.ID)
		if err != nil {
			return fmt.Errorf("failed to list pending submissions: %w", err)
		}

		// Round-robin starting from judge index 0. Grouping the ids per judge
		// bounds the write count at one update per judge.
		perJudge := make(map[uuid.UUID][]uuid.UUID, len(judges))
		for i, submission := range submissions {
			judge := judges[i%len(judges)]
			perJudge[judge] = append(perJudge[judge], submission.ID)
		}

		for judge, ids := range perJudge {
			err = tx.Model(&models.Submission{}).
				Where("id IN ?", ids).
				Update("judged_by", judge.String()).Error
			if err != nil {
				return fmt.Errorf("failed to assign submissions to judge %s: %w", judge, err)
			}
		}

		// An empty pending list still sets the flag; there is nothing to hand
		// out but the round must not be revisited every tick.
		if err := store.SetFlag(ctx, flagKey, configstore.ScopeRound); err != nil {
			return fmt.Errorf("failed to set distribution flag: %w", err)
		}

		logger.Logger.InfoContext(ctx, "distributed submissions to judges",
			"round", roundID,
			"roundName", round.Name,
			"submissions", len(submissions),
			"judges", len(judges),
		)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to distribute submissions")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "distributed submissions")
	return nil
}

// Serializes concurrent distribution attempts for one round. The lock is
// transaction scoped and released on commit or rollback.
func lockRound(tx *gorm.DB, roundID uuid.UUID) error {
	return tx.Exec(
		"SELECT pg_advisory_xact_lock(hashtextextended(?, 0))",
		roundID.String(),
	).Error
}
