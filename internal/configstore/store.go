package configstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opencontest/contest-api/internal/models"
)

const name = "github.com/opencontest/contest-api/cmd/server/internal/configstore"

var tracer = otel.Tracer(name)

// Stored timestamps round-trip through RFC 3339 with sub-second precision
const TimeFormat = time.RFC3339Nano

const flagTrue = "true"

// Store wraps the config_entry table with upsert-by-key semantics. Pass the
// transaction handle when calls must be atomic with surrounding writes.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the live value for a key. The second return is false when no
// non-deleted entry exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "Store.Get")
	defer span.End()
	span.SetAttributes(attribute.String("key", key))

	var entry models.ConfigEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read config entry")
		return "", false, err
	}

	return entry.Value, true, nil
}

// Set upserts the value for a key, undeleting a soft-deleted row instead of
// inserting a duplicate. At most one live row per key exists afterwards.
func (s *Store) Set(ctx context.Context, key, value, scope string) error {
	ctx, span := tracer.Start(ctx, "Store.Set")
	defer span.End()
	span.SetAttributes(
		attribute.String("key", key),
		attribute.String("scope", scope),
	)

	entry := models.ConfigEntry{Key: key, Value: value, Scope: scope}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"value":      value,
				"scope":      scope,
				"deleted_at": nil,
			}),
		}).
		Create(&entry).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upsert config entry")
		return err
	}

	return nil
}

// Delete soft-deletes the entry for a key. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "Store.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("key", key))

	err := s.db.WithContext(ctx).
		Where("key = ?", key).
		Delete(&models.ConfigEntry{}).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to soft delete config entry")
		return err
	}

	return nil
}

// Index batch-fetches the given keys into an exact-match map. Missing keys are
// simply absent from the result; one query regardless of key count.
func (s *Store) Index(ctx context.Context, keys []string) (map[string]string, error) {
	ctx, span := tracer.Start(ctx, "Store.Index")
	defer span.End()
	span.SetAttributes(attribute.Int("keys", len(keys)))

	index := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return index, nil
	}

	var entries []models.ConfigEntry
	err := s.db.WithContext(ctx).Where("key IN ?", keys).Find(&entries).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to batch fetch config entries")
		return nil, err
	}

	for _, entry := range entries {
		index[entry.Key] = entry.Value
	}

	return index, nil
}

// Flag reports whether a boolean flag key is set
func (s *Store) Flag(ctx context.Context, key string) (bool, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}

	return ok && value == flagTrue, nil
}

func (s *Store) SetFlag(ctx context.Context, key, scope string) error {
	return s.Set(ctx, key, flagTrue, scope)
}

// GetTime parses a stored round-trip timestamp. Absent keys return ok=false.
func (s *Store) GetTime(ctx context.Context, key string) (time.Time, bool, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}

	t, err := time.Parse(TimeFormat, value)
	if err != nil {
		return time.Time{}, false, err
	}

	return t, true, nil
}

func (s *Store) SetTime(ctx context.Context, key string, t time.Time, scope string) error {
	return s.Set(ctx, key, t.Format(TimeFormat), scope)
}

// GetInt parses a stored decimal integer. Absent keys return ok=false.
func (s *Store) GetInt(ctx context.Context, key string) (int, bool, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, err
	}

	return n, true, nil
}

// AddJudge records judge participation for a contest, re-activating a
// previously opted-out row when one exists.
func (s *Store) AddJudge(ctx context.Context, contestID, userID uuid.UUID) error {
	return s.Set(ctx, ContestJudge(contestID, userID), flagTrue, ScopeContest)
}

// RemoveJudge soft-deletes the participation row, preserving audit history
func (s *Store) RemoveJudge(ctx context.Context, contestID, userID uuid.UUID) error {
	return s.Delete(ctx, ContestJudge(contestID, userID))
}

// ActiveJudges lists the user ids currently participating as judges for a
// contest, ordered by opt-in time so round-robin assignment is deterministic.
func (s *Store) ActiveJudges(ctx context.Context, contestID uuid.UUID) ([]uuid.UUID, error) {
	ctx, span := tracer.Start(ctx, "Store.ActiveJudges")
	defer span.End()
	span.SetAttributes(attribute.String("contest.id", contestID.String()))

	var entries []models.ConfigEntry
	err := s.db.WithContext(ctx).
		Where("key LIKE ?", contestJudgePattern(contestID)).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list judge participation")
		return nil, err
	}

	judges := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		userID, err := judgeUserID(entry.Key)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "malformed judge participation key")
			return nil, err
		}
		judges = append(judges, userID)
	}

	return judges, nil
}
