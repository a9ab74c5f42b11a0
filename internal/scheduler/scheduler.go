package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/opencontest/contest-api/internal/configstore"
	"github.com/opencontest/contest-api/internal/distribution"
	"github.com/opencontest/contest-api/internal/models"
	"github.com/opencontest/contest-api/internal/status"
	"github.com/opencontest/contest-api/internal/logger"
	"github.com/opencontest/contest-api/internal/types"
)

const name = "github.com/opencontest/contest-api/cmd/server/internal/scheduler"

var tracer = otel.Tracer(name)

// Scheduler drives contest and round status transitions on a fixed cadence.
// One instance runs per process; all work inside a tick is sequential so
// write ordering stays predictable.
type Scheduler struct {
	db          *gorm.DB
	distributor *distribution.Distributor
	interval    time.Duration
	now         func() time.Time
}

func New(db *gorm.DB, distributor *distribution.Distributor, interval time.Duration) *Scheduler {
	return &Scheduler{
		db:          db,
		distributor: distributor,
		interval:    interval,
		now:         time.Now,
	}
}

// Run loops until ctx is cancelled. A failed tick is logged and the loop
// sleeps until the next interval; nothing short of cancellation stops it.
func (s *Scheduler) Run(ctx context.Context) {
	logger.Logger.InfoContext(ctx, "starting state transition scheduler",
		"interval", s.interval)

	for {
		s.tickSafely(ctx)

		select {
		case <-ctx.Done():
			logger.Logger.Info("state transition scheduler shutting down")
			return
		case <-time.After(s.interval):
		}
	}
}

// A panicking tick must not take the loop down with it
func (s *Scheduler) tickSafely(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger.ErrorContext(ctx, "panic during scheduler tick", "panic", r)
		}
	}()

	if err := s.Tick(ctx); err != nil {
		logger.Logger.ErrorContext(ctx, "scheduler tick failed", "error", err)
	}
}

// Tick runs one full reconciliation pass: bulk load, resolve, persist deltas,
// then hand ended manual rounds to the distributor. Also exposed for the
// one-shot `contestctl resolve` command.
func (s *Scheduler) Tick(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Scheduler.Tick", trace.WithNewRoot())
	defer span.End()

	now := s.now()
	db := s.db.WithContext(ctx).Session(&gorm.Session{})
	store := configstore.New(db)

	contests, err := models.ActiveContests(ctx, db)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load contests")
		return fmt.Errorf("failed to load contests: %w", err)
	}

	rounds, err := models.AllRounds(ctx, db)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load rounds")
		return fmt.Errorf("failed to load rounds: %w", err)
	}

	span.SetAttributes(
		attribute.Int("contests", len(contests)),
		attribute.Int("rounds", len(rounds)),
	)

	index, err := s.registrationIndex(ctx, store, contests)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to index registration config")
		return fmt.Errorf("failed to index registration config: %w", err)
	}

	if err := s.transitionContests(ctx, db, contests, index, now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to transition contests")
		return err
	}

	if err := s.transitionRounds(ctx, db, rounds, now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to transition rounds")
		return err
	}

	s.distributeEndedRounds(ctx, store, rounds, now)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "ticked")
	return nil
}

// One batched fetch for every candidate contest's registration window keys,
// indexed by exact key. Avoids a per-contest config lookup.
func (s *Scheduler) registrationIndex(
	ctx context.Context,
	store *configstore.Store,
	contests []models.Contest,
) (map[string]string, error) {
	keys := make([]string, 0, len(contests)*2)
	for _, contest := range contests {
		keys = append(keys,
			configstore.ContestRegistrationStart(contest.ID),
			configstore.ContestRegistrationEnd(contest.ID),
		)
	}

	return store.Index(ctx, keys)
}

func (s *Scheduler) registrationWindow(
	ctx context.Context,
	index map[string]string,
	contest *models.Contest,
) status.RegistrationWindow {
	window := status.RegistrationWindow{}
	window.Start = s.parseIndexedTime(ctx, index, configstore.ContestRegistrationStart(contest.ID))
	window.End = s.parseIndexedTime(ctx, index, configstore.ContestRegistrationEnd(contest.ID))
	return window
}

// A malformed stored timestamp reads as unset rather than failing the tick
func (s *Scheduler) parseIndexedTime(
	ctx context.Context,
	index map[string]string,
	key string,
) *time.Time {
	value, ok := index[key]
	if !ok {
		return nil
	}

	t, err := time.Parse(configstore.TimeFormat, value)
	if err != nil {
		logger.Logger.WarnContext(ctx, "ignoring malformed config timestamp",
			"key", key, "value", value, "error", err)
		return nil
	}

	return &t
}

type statusDelta struct {
	id   string
	name string
	old  string
	new  string
}

func (s *Scheduler) transitionContests(
	ctx context.Context,
	db *gorm.DB,
	contests []models.Contest,
	index map[string]string,
	now time.Time,
) error {
	deltas := make([]statusDelta, 0)
	changed := make(map[string]types.ContestStatus)

	for i := range contests {
		contest := &contests[i]
		window := s.registrationWindow(ctx, index, contest)

		next, ok := status.ResolveContest(contest, window, now)
		if !ok {
			continue
		}

		changed[contest.ID.String()] = next
		deltas = append(deltas, statusDelta{
			id:   contest.ID.String(),
			name: contest.Name,
			old:  string(contest.Status),
			new:  string(next),
		})
	}

	if len(changed) == 0 {
		return nil
	}

	// One flush for all contest deltas
	err := db.Transaction(func(tx *gorm.DB) error {
		for id, next := range changed {
			err := tx.Model(&models.Contest{}).
				Where("id = ?", id).
				Update("status", next).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to persist contest transitions: %w", err)
	}

	for _, delta := range deltas {
		logger.Logger.InfoContext(ctx, "contest status transition",
			"contest", delta.id,
			"contestName", delta.name,
			"oldStatus", delta.old,
			"newStatus", delta.new,
		)
	}

	return nil
}

func (s *Scheduler) transitionRounds(
	ctx context.Context,
	db *gorm.DB,
	rounds []models.Round,
	now time.Time,
) error {
	deltas := make([]statusDelta, 0)
	changed := make(map[string]types.RoundStatus)

	for i := range rounds {
		round := &rounds[i]

		next := status.ResolveRound(round, now)
		if next == round.Status {
			continue
		}

		changed[round.ID.String()] = next
		deltas = append(deltas, statusDelta{
			id:   round.ID.String(),
			name: round.Name,
			old:  string(round.Status),
			new:  string(next),
		})
	}

	if len(changed) == 0 {
		return nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for id, next := range changed {
			err := tx.Model(&models.Round{}).
				Where("id = ?", id).
				Update("status", next).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to persist round transitions: %w", err)
	}

	for _, delta := range deltas {
		logger.Logger.InfoContext(ctx, "round status transition",
			"round", delta.id,
			"roundName", delta.name,
			"oldStatus", delta.old,
			"newStatus", delta.new,
		)
	}

	return nil
}

// Hands every ended, manually graded, not-yet-distributed round to the
// distributor. Failures are logged per round and never abort the pass; the
// next tick retries anything recoverable.
func (s *Scheduler) distributeEndedRounds(
	ctx context.Context,
	store *configstore.Store,
	rounds []models.Round,
	now time.Time,
) {
	candidates := make([]models.Round, 0)
	flagKeys := make([]string, 0)
	for _, round := range rounds {
		if round.EndsAt.After(now) {
			continue
		}
		if round.Problem == nil || !round.Problem.ManuallyGraded() {
			continue
		}

		candidates = append(candidates, round)
		flagKeys = append(flagKeys, configstore.RoundSubmissionsDistributed(round.ID))
	}

	if len(candidates) == 0 {
		return
	}

	flags, err := store.Index(ctx, flagKeys)
	if err != nil {
		logger.Logger.ErrorContext(ctx, "failed to batch check distribution flags",
			"error", err)
		return
	}

	for _, round := range candidates {
		if _, done := flags[configstore.RoundSubmissionsDistributed(round.ID)]; done {
			continue
		}

		if err := s.distributor.Distribute(ctx, round.ID); err != nil {
			logger.Logger.ErrorContext(ctx, "failed to distribute submissions for round",
				"round", round.ID,
				"roundName", round.Name,
				"error", err,
			)
			continue
		}
	}
}
