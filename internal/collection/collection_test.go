package collection

import (
	"context"
	"testing"

	"draft-engine/internal/common/logger"
	"draft-engine/internal/draftstore"
	"draft-engine/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollection(t *testing.T) (*Collection, draftstore.Store) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := draftstore.NewRedisStore(client, nil, logger.NewTestLogger(t))
	return New(store, logger.NewTestLogger(t)), store
}

func seedDraft(t *testing.T, store draftstore.Store, userID, draftID, name string) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), &models.Draft{
		ID:     draftID,
		UserID: userID,
		PropertyData: models.PropertyData{
			Name:    name,
			Address: "1 Test Street",
		},
		Status: models.StatusInProgress,
	}))
}

func TestCollection_List(t *testing.T) {
	c, store := newTestCollection(t)
	ctx := context.Background()

	seedDraft(t, store, "user-1", "draft-1", "First")
	seedDraft(t, store, "user-1", "draft-2", "Second")
	seedDraft(t, store, "user-2", "draft-3", "Other User")

	summaries, err := c.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	names := []string{summaries[0].PropertyName, summaries[1].PropertyName}
	assert.ElementsMatch(t, []string{"First", "Second"}, names)
}

func TestCollection_List_EmptyUser(t *testing.T) {
	c, _ := newTestCollection(t)

	summaries, err := c.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestCollection_Delete(t *testing.T) {
	c, store := newTestCollection(t)
	ctx := context.Background()

	seedDraft(t, store, "user-1", "draft-1", "Doomed")
	require.NoError(t, c.Delete(ctx, "user-1", "draft-1"))

	summaries, err := c.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, summaries)

	// Deletion is idempotent.
	assert.NoError(t, c.Delete(ctx, "user-1", "draft-1"))
}

func TestCollection_ClearAll(t *testing.T) {
	c, store := newTestCollection(t)
	ctx := context.Background()

	seedDraft(t, store, "user-1", "draft-1", "One")
	seedDraft(t, store, "user-1", "draft-2", "Two")
	seedDraft(t, store, "user-2", "draft-3", "Untouched")
	require.NoError(t, store.SetCurrentPointer(ctx, "user-1", "draft-1", 2))

	require.NoError(t, c.ClearAll(ctx, "user-1"))

	summaries, err := c.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, summaries)

	ptr, err := store.GetCurrentPointer(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, ptr, "pointer cleared with the drafts")

	others, err := c.List(ctx, "user-2")
	require.NoError(t, err)
	assert.Len(t, others, 1, "other users are untouched")
}
