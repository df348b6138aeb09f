// Package mailbox implements the single-slot hand-off channel used to pass a
// freshly documented asset between screens that are not in a direct
// parent/child navigation relationship. Delivery is at-least-once; the
// consumer's merge must be idempotent, and the slot is cleared only after a
// successful merge.
package mailbox

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"draft-engine/internal/common/errors"
	"draft-engine/internal/models"

	"github.com/redis/go-redis/v9"
)

// Mailbox is a one-slot-per-draft store. A second Publish before a Clear
// overwrites the first; the wizard never produces more than one outstanding
// hand-off per draft.
type Mailbox struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

func New(rdb *redis.Client, ttl time.Duration) *Mailbox {
	return &Mailbox{redis: rdb, ttl: ttl, now: time.Now}
}

func slotKey(draftID string) string {
	return fmt.Sprintf("pending_asset_%s", draftID)
}

// Publish stores the hand-off payload, replacing any previous slot content.
// The TTL guards abandoned drafts from leaking slots forever.
func (m *Mailbox) Publish(ctx context.Context, draftID, areaID string, asset models.Asset) error {
	payload := models.PendingHandoff{
		DraftID:     draftID,
		AreaID:      areaID,
		Asset:       asset,
		PublishedAt: m.now().UTC(),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.NewMailboxUnavailableError("marshal", err)
	}
	if err := m.redis.Set(ctx, slotKey(draftID), raw, m.ttl).Err(); err != nil {
		return errors.NewMailboxUnavailableError("publish", err)
	}
	return nil
}

// Peek reads the slot without consuming it. Returns (nil, nil) when empty.
// Reading without deleting lets the consumer clear the slot only after its
// merge succeeded.
func (m *Mailbox) Peek(ctx context.Context, draftID string) (*models.PendingHandoff, error) {
	raw, err := m.redis.Get(ctx, slotKey(draftID)).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.NewMailboxUnavailableError("peek", err)
	}

	var payload models.PendingHandoff
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		// A corrupt slot can never merge; drop it rather than wedging the
		// consumer's retry loop.
		_ = m.redis.Del(ctx, slotKey(draftID)).Err()
		return nil, errors.NewMailboxUnavailableError("decode", err)
	}
	return &payload, nil
}

// Clear deletes the slot. Clearing an empty slot is not an error.
func (m *Mailbox) Clear(ctx context.Context, draftID string) error {
	if err := m.redis.Del(ctx, slotKey(draftID)).Err(); err != nil {
		return errors.NewMailboxUnavailableError("clear", err)
	}
	return nil
}
