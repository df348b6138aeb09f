// Package collection lists and deletes a user's drafts independently of any
// open draft session.
package collection

import (
	"context"

	"draft-engine/internal/common/logger"
	"draft-engine/internal/draftstore"
	"draft-engine/internal/models"
)

// Collection is the list-screen view over the draft store. Deletion is
// immediate and terminal; there is no tombstone state.
type Collection struct {
	store  draftstore.Store
	logger logger.Logger
}

func New(store draftstore.Store, log logger.Logger) *Collection {
	return &Collection{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "collection"}),
	}
}

// List returns summaries for all non-deleted drafts owned by the user, newest
// first.
func (c *Collection) List(ctx context.Context, userID string) ([]models.DraftSummary, error) {
	return c.store.ListSummaries(ctx, userID)
}

// Delete removes one draft. Idempotent.
func (c *Collection) Delete(ctx context.Context, userID, draftID string) error {
	return c.store.Delete(ctx, userID, draftID)
}

// ClearAll removes every draft owned by the user.
func (c *Collection) ClearAll(ctx context.Context, userID string) error {
	ids, err := c.store.ListIDs(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := c.store.Delete(ctx, userID, id); err != nil {
			return err
		}
	}
	if err := c.store.ClearCurrentPointer(ctx, userID); err != nil {
		c.logger.Warn("pointer clear failed during clearAll", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
	return nil
}
