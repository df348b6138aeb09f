// internal/draftstore/redis.go
package draftstore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"draft-engine/internal/common/errors"
	"draft-engine/internal/common/logger"
	"draft-engine/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists full draft snapshots as JSON values. Snapshots carry no
// TTL: a draft lives until the user deletes it or final submission does.
type RedisStore struct {
	redis     *redis.Client
	summaries SummaryIndex // optional; nil falls back to snapshot scans
	logger    logger.Logger
	now       func() time.Time
}

func NewRedisStore(rdb *redis.Client, summaries SummaryIndex, log logger.Logger) *RedisStore {
	return &RedisStore{
		redis:     rdb,
		summaries: summaries,
		logger:    log.WithFields(map[string]interface{}{"component": "draftstore"}),
		now:       time.Now,
	}
}

func (s *RedisStore) Get(ctx context.Context, userID, draftID string) (*models.Draft, error) {
	raw, err := s.redis.Get(ctx, snapshotKey(userID, draftID)).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, errors.NewDraftNotFoundError(draftID)
		}
		return nil, errors.NewPersistenceError("get", err)
	}

	var draft models.Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, errors.NewSnapshotCorruptError(draftID, err)
	}
	if draft.ID == "" || !draft.Status.Valid() {
		return nil, errors.NewSnapshotCorruptError(draftID, stderrors.New("missing id or status"))
	}

	return &draft, nil
}

func (s *RedisStore) Put(ctx context.Context, draft *models.Draft) error {
	draft.LastModified = s.now().UTC()

	raw, err := json.Marshal(draft)
	if err != nil {
		return errors.NewPersistenceError("marshal", err)
	}

	if err := s.redis.Set(ctx, snapshotKey(draft.UserID, draft.ID), raw, 0).Err(); err != nil {
		return errors.NewPersistenceError("put", err)
	}
	if err := s.redis.SAdd(ctx, indexKey(draft.UserID), draft.ID).Err(); err != nil {
		return errors.NewPersistenceError("index", err)
	}

	// The snapshot is already durable at this point; a summary failure only
	// degrades list rendering, so it is logged rather than returned.
	if s.summaries != nil {
		if err := s.summaries.Upsert(ctx, draft.Summarize()); err != nil {
			s.logger.Warn("summary index upsert failed", map[string]interface{}{
				"draftId": draft.ID,
				"error":   err.Error(),
			})
		}
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID, draftID string) error {
	if err := s.redis.Del(ctx, snapshotKey(userID, draftID)).Err(); err != nil {
		return errors.NewPersistenceError("delete", err)
	}
	if err := s.redis.SRem(ctx, indexKey(userID), draftID).Err(); err != nil {
		return errors.NewPersistenceError("deindex", err)
	}

	if s.summaries != nil {
		if err := s.summaries.Delete(ctx, draftID); err != nil {
			s.logger.Warn("summary index delete failed", map[string]interface{}{
				"draftId": draftID,
				"error":   err.Error(),
			})
		}
	}

	// Drop the pointer only when it referenced the deleted draft.
	ptr, err := s.GetCurrentPointer(ctx, userID)
	if err == nil && ptr != nil && ptr.DraftID == draftID {
		if err := s.ClearCurrentPointer(ctx, userID); err != nil {
			s.logger.Warn("pointer clear failed after delete", map[string]interface{}{
				"draftId": draftID,
				"error":   err.Error(),
			})
		}
	}

	return nil
}

func (s *RedisStore) ListIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, indexKey(userID)).Result()
	if err != nil {
		return nil, errors.NewPersistenceError("list", err)
	}
	return ids, nil
}

func (s *RedisStore) ListSummaries(ctx context.Context, userID string) ([]models.DraftSummary, error) {
	if s.summaries != nil {
		out, err := s.summaries.List(ctx, userID)
		if err != nil {
			return nil, errors.NewSummaryIndexFailedError(err)
		}
		return out, nil
	}

	// No summary index wired: project summaries from the snapshots themselves.
	ids, err := s.ListIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.DraftSummary, 0, len(ids))
	for _, id := range ids {
		draft, err := s.Get(ctx, userID, id)
		if err != nil {
			if stderrors.Is(err, errors.ErrDraftNotFound) {
				continue // index raced a delete
			}
			return nil, err
		}
		summaries = append(summaries, draft.Summarize())
	}
	return summaries, nil
}

func (s *RedisStore) GetCurrentPointer(ctx context.Context, userID string) (*models.DraftPointer, error) {
	raw, err := s.redis.Get(ctx, pointerKey(userID)).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.NewPersistenceError("pointer get", err)
	}

	var ptr models.DraftPointer
	if err := json.Unmarshal([]byte(raw), &ptr); err != nil {
		return nil, errors.NewPersistenceError("pointer decode", err)
	}
	return &ptr, nil
}

func (s *RedisStore) SetCurrentPointer(ctx context.Context, userID, draftID string, step int) error {
	raw, err := json.Marshal(models.DraftPointer{DraftID: draftID, Step: step})
	if err != nil {
		return errors.NewPersistenceError("pointer marshal", err)
	}
	if err := s.redis.Set(ctx, pointerKey(userID), raw, 0).Err(); err != nil {
		return errors.NewPersistenceError("pointer set", err)
	}
	return nil
}

func (s *RedisStore) ClearCurrentPointer(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, pointerKey(userID)).Err(); err != nil {
		return errors.NewPersistenceError("pointer clear", err)
	}
	return nil
}
