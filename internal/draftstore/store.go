// Package draftstore provides durable persistence for draft snapshots: a
// Redis-backed key/value store for full snapshots plus the per-user
// current-draft pointer, and a Postgres summary index for list rendering.
package draftstore

import (
	"context"
	"fmt"

	"draft-engine/internal/models"
)

// Store is the durable persistence boundary consumed by sessions and the
// draft collection.
type Store interface {
	// Get loads a full snapshot. Returns errors.ErrDraftNotFound when no
	// snapshot exists for the id.
	Get(ctx context.Context, userID, draftID string) (*models.Draft, error)

	// Put persists a full snapshot, stamping LastModified with the write time,
	// and upserts the summary index row.
	Put(ctx context.Context, draft *models.Draft) error

	// Delete removes the snapshot, its summary row, and clears the pointer if
	// it referenced the draft. Deleting an absent draft is not an error.
	Delete(ctx context.Context, userID, draftID string) error

	// ListIDs returns all draft ids stored for a user.
	ListIDs(ctx context.Context, userID string) ([]string, error)

	// ListSummaries returns list-row projections for all of a user's drafts.
	ListSummaries(ctx context.Context, userID string) ([]models.DraftSummary, error)

	// GetCurrentPointer reads the per-user current-draft slot. Returns
	// (nil, nil) when no pointer is set.
	GetCurrentPointer(ctx context.Context, userID string) (*models.DraftPointer, error)

	// SetCurrentPointer writes the per-user current-draft slot. Last write wins.
	SetCurrentPointer(ctx context.Context, userID, draftID string, step int) error

	// ClearCurrentPointer removes the per-user current-draft slot.
	ClearCurrentPointer(ctx context.Context, userID string) error
}

// SummaryIndex maintains the queryable draft list alongside snapshot writes.
type SummaryIndex interface {
	Upsert(ctx context.Context, summary models.DraftSummary) error
	Delete(ctx context.Context, draftID string) error
	DeleteByUser(ctx context.Context, userID string) error
	List(ctx context.Context, userID string) ([]models.DraftSummary, error)
}

func snapshotKey(userID, draftID string) string {
	return fmt.Sprintf("draft:%s:%s", userID, draftID)
}

func pointerKey(userID string) string {
	return fmt.Sprintf("draft:current:%s", userID)
}

func indexKey(userID string) string {
	return fmt.Sprintf("draft:index:%s", userID)
}
