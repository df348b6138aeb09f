package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"draft-engine/internal/common/config"
	"draft-engine/internal/common/errors"
	"draft-engine/internal/common/logger"
	"draft-engine/internal/draftstore"
	"draft-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Fakes
// ==========================

type fakeStore struct {
	mu       sync.Mutex
	drafts   map[string]*models.Draft
	pointers map[string]*models.DraftPointer
	putCount int
	putErr   error
	lastPut  *models.Draft
}

var _ draftstore.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		drafts:   make(map[string]*models.Draft),
		pointers: make(map[string]*models.DraftPointer),
	}
}

func storeKey(userID, draftID string) string { return userID + "|" + draftID }

func (f *fakeStore) Get(ctx context.Context, userID, draftID string) (*models.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	draft, ok := f.drafts[storeKey(userID, draftID)]
	if !ok {
		return nil, errors.NewDraftNotFoundError(draftID)
	}
	return draft.Clone(), nil
}

func (f *fakeStore) Put(ctx context.Context, draft *models.Draft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	draft.LastModified = time.Now().UTC()
	f.drafts[storeKey(draft.UserID, draft.ID)] = draft.Clone()
	f.lastPut = draft.Clone()
	f.putCount++
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, userID, draftID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.drafts, storeKey(userID, draftID))
	if ptr := f.pointers[userID]; ptr != nil && ptr.DraftID == draftID {
		delete(f.pointers, userID)
	}
	return nil
}

func (f *fakeStore) ListIDs(ctx context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, d := range f.drafts {
		if d.UserID == userID {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}

func (f *fakeStore) ListSummaries(ctx context.Context, userID string) ([]models.DraftSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DraftSummary
	for _, d := range f.drafts {
		if d.UserID == userID {
			out = append(out, d.Summarize())
		}
	}
	return out, nil
}

func (f *fakeStore) GetCurrentPointer(ctx context.Context, userID string) (*models.DraftPointer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ptr, ok := f.pointers[userID]
	if !ok {
		return nil, nil
	}
	copied := *ptr
	return &copied, nil
}

func (f *fakeStore) SetCurrentPointer(ctx context.Context, userID, draftID string, step int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointers[userID] = &models.DraftPointer{DraftID: draftID, Step: step}
	return nil
}

func (f *fakeStore) ClearCurrentPointer(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pointers, userID)
	return nil
}

func (f *fakeStore) puts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.putCount
}

func (f *fakeStore) last() *models.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastPut == nil {
		return nil
	}
	return f.lastPut.Clone()
}

func (f *fakeStore) setPutErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putErr = err
}

type fakeResolver struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
	delay map[string]time.Duration
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		calls: make(map[string]int),
		fail:  make(map[string]bool),
		delay: make(map[string]time.Duration),
	}
}

func (r *fakeResolver) Resolve(ctx context.Context, bucket, path string) (string, error) {
	r.mu.Lock()
	r.calls[path]++
	shouldFail := r.fail[path]
	d := r.delay[path]
	r.mu.Unlock()

	if d > 0 {
		time.Sleep(d)
	}
	if shouldFail {
		return "", errors.NewReferenceUnavailableError(path, assert.AnError)
	}
	return fmt.Sprintf("https://signed.example/%s/%s?sig=abc", bucket, path), nil
}

func (r *fakeResolver) callsFor(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[path]
}

type fakeMailbox struct {
	mu   sync.Mutex
	slot map[string]*models.PendingHandoff
}

var _ HandoffChannel = (*fakeMailbox)(nil)

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{slot: make(map[string]*models.PendingHandoff)}
}

func (m *fakeMailbox) publish(draftID, areaID string, asset models.Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slot[draftID] = &models.PendingHandoff{
		DraftID: draftID, AreaID: areaID, Asset: asset, PublishedAt: time.Now().UTC(),
	}
}

func (m *fakeMailbox) Peek(ctx context.Context, draftID string) (*models.PendingHandoff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.slot[draftID]
	if !ok {
		return nil, nil
	}
	copied := *payload
	return &copied, nil
}

func (m *fakeMailbox) Clear(ctx context.Context, draftID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slot, draftID)
	return nil
}

func (m *fakeMailbox) has(draftID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.slot[draftID]
	return ok
}

// ==========================
// Test Helper Functions
// ==========================

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		AutosaveDelay:       80 * time.Millisecond,
		SaveTimeout:         2 * time.Second,
		ResolverConcurrency: 2,
		HandoffTTL:          time.Hour,
	}
}

type testDeps struct {
	store    *fakeStore
	resolver *fakeResolver
	mailbox  *fakeMailbox
}

func newTestSession(t *testing.T, userID string) (*Session, *testDeps) {
	deps := &testDeps{
		store:    newFakeStore(),
		resolver: newFakeResolver(),
		mailbox:  newFakeMailbox(),
	}
	s := New(testEngineConfig(), "media", userID, deps.store, deps.resolver, deps.mailbox, logger.NewTestLogger(t))
	t.Cleanup(func() { s.Close(context.Background()) })
	return s, deps
}

// ==========================
// Open
// ==========================

func TestSession_Open_NewDraft(t *testing.T) {
	s, _ := newTestSession(t, "user-1")
	require.NoError(t, s.Open(context.Background(), ""))

	draft := s.Snapshot()
	require.NotNil(t, draft)
	assert.NotEmpty(t, draft.ID)
	assert.Equal(t, "user-1", draft.UserID)
	assert.Equal(t, 0, draft.CurrentStep)
	assert.Empty(t, draft.Areas)
	assert.Equal(t, models.StatusDraft, draft.Status)
	assert.Equal(t, 0, draft.CompletionPercentage)
}

func TestSession_Open_ExplicitUnknownID_FailsClosed(t *testing.T) {
	s, _ := newTestSession(t, "user-1")

	err := s.Open(context.Background(), "no-such-draft")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDraftNotFound)
	assert.Nil(t, s.Snapshot())
}

func TestSession_Open_ResumesFromPointer(t *testing.T) {
	s, deps := newTestSession(t, "user-1")
	ctx := context.Background()

	stored := &models.Draft{
		ID: "draft-1", UserID: "user-1", Status: models.StatusInProgress, CurrentStep: 3,
		PropertyData: models.PropertyData{Name: "Resumed"},
	}
	require.NoError(t, deps.store.Put(ctx, stored))
	require.NoError(t, deps.store.SetCurrentPointer(ctx, "user-1", "draft-1", 3))

	require.NoError(t, s.Open(ctx, ""))
	draft := s.Snapshot()
	assert.Equal(t, "draft-1", draft.ID)
	assert.Equal(t, 3, draft.CurrentStep)
	assert.Equal(t, "Resumed", draft.PropertyData.Name)
}

func TestSession_Open_StalePointerFallsBackToNewDraft(t *testing.T) {
	s, deps := newTestSession(t, "user-1")
	ctx := context.Background()
	require.NoError(t, deps.store.SetCurrentPointer(ctx, "user-1", "deleted-draft", 2))

	require.NoError(t, s.Open(ctx, ""))
	draft := s.Snapshot()
	require.NotNil(t, draft)
	assert.NotEqual(t, "deleted-draft", draft.ID)
	assert.Equal(t, 0, draft.CurrentStep)
}

// ==========================
// Autosave Debounce
// ==========================

func TestSession_DebounceCoalescing(t *testing.T) {
	s, deps := newTestSession(t, "user-1")
	require.NoError(t, s.Open(context.Background(), ""))

	// Five mutations inside the debounce window must produce exactly one
	// durable write, carrying the state after the fifth call.
	for i := 1; i <= 5; i++ {
		s.UpdatePropertyData(models.PropertyPatch{Name: models.StringPtr(fmt.Sprintf("Name %d", i))})
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, deps.store.puts(), "no write before the window elapses")

	require.Eventually(t, func() bool { return deps.store.puts() == 1 },
		time.Second, 10*time.Millisecond)

	persisted := deps.store.last()
	assert.Equal(t, "Name 5", persisted.PropertyData.Name)

	// The window has passed with no further mutations: still one write.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, deps.store.puts())
}

func TestSession_ForcedSaveBypassesDebounce(t *testing.T) {
	s, deps := newTestSession(t, "user-1")
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, ""))

	s.UpdateAreas([]models.Area{{ID: "area-1", Name: "Kitchen", Type: models.AreaKitchen}})
	require.NoError(t, s.Save(ctx))

	assert.Equal(t, 1, deps.store.puts())
	persisted := deps.store.last()
	require.Len(t, persisted.Areas, 1)
	assert.Equal(t, "area-1", persisted.Areas[0].ID)

	// The forced save consumed the pending state; the debounce timer must not
	// produce a duplicate write.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, deps.store.puts())
}

func TestSession_SaveFailure_PreservesSnapshotAndRecordsError(t *testing.T) {
	s, deps := newTestSession(t, "user-1")
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, ""))

	s.UpdatePropertyData(models.PropertyPatch{Name: models.StringPtr("Keep Me")})
	deps.store.setPutErr(errors.NewPersistenceError("put", assert.AnError))

	err := s.Save(ctx)
	require.Error(t, err)

	// What the user typed survives the failed write.
	assert.Equal(t, "Keep Me", s.Snapshot().PropertyData.Name)
	state := s.State()
	require.Error(t, state.LastError)
	assert.Equal(t, errors.ErrCodePersistenceFailed, errors.CodeOf(state.LastError))

	// A later successful save clears the recorded error.
	deps.store.setPutErr(nil)
	require.NoError(t, s.Save(ctx))
	assert.NoError(t, s.State().LastError)
	assert.False(t, s.State().LastSavedAt.IsZero())
}

// ==========================
// Round Trip
// ==========================

func TestSession_SaveThenReopen_RoundTrip(t *testing.T) {
	s1, deps := newTestSession(t, "user-1")
	ctx := context.Background()
	require.NoError(t, s1.Open(ctx, ""))

	s1.UpdatePropertyData(models.PropertyPatch{
		Name:       models.StringPtr("Round Trip"),
		Bedrooms:   models.IntPtr(2),
		PhotoPaths: models.StringsPtr([]string{"prop/front.jpg"}),
	})
	s1.UpdateAreas([]models.Area{{
		ID: "area-1", Name: "Kitchen", Type: models.AreaKitchen,
		PhotoPaths: []string{"areas/area-1/1.jpg"},
		Photos:     []string{"https://old.example/expired"},
	}})
	s1.UpdateCurrentStep(2)
	require.NoError(t, s1.Save(ctx))
	draftID := s1.DraftID()

	s2 := New(testEngineConfig(), "media", "user-1", deps.store, deps.resolver, deps.mailbox, logger.NewTestLogger(t))
	defer s2.Close(ctx)
	require.NoError(t, s2.Open(ctx, draftID))

	loaded := s2.Snapshot()
	saved := s1.Snapshot()
	assert.Equal(t, saved.PropertyData.Name, loaded.PropertyData.Name)
	assert.Equal(t, saved.PropertyData.Bedrooms, loaded.PropertyData.Bedrooms)
	assert.Equal(t, saved.PropertyData.PhotoPaths, loaded.PropertyData.PhotoPaths)
	assert.Equal(t, saved.CurrentStep, loaded.CurrentStep)
	assert.Equal(t, saved.Status, loaded.Status)
	require.Len(t, loaded.Areas, 1)
	assert.Equal(t, saved.Areas[0].PhotoPaths, loaded.Areas[0].PhotoPaths)

	// Photos are never trusted from the write: they are regenerated.
	assert.Equal(t, []string{"https://signed.example/media/areas/area-1/1.jpg?sig=abc"}, loaded.Areas[0].Photos)
}

// ==========================
// Status, Step, Pointer
// ==========================

func TestSession_FirstMutationPromotesStatus(t *testing.T) {
	s, _ := newTestSession(t, "user-1")
	require.NoError(t, s.Open(context.Background(), ""))
	assert.Equal(t, models.StatusDraft, s.Snapshot().Status)

	s.UpdatePropertyData(models.PropertyPatch{Name: models.StringPtr("x")})
	assert.Equal(t, models.StatusInProgress, s.Snapshot().Status)
}

func TestSession_UpdateCurrentStep_WritesPointer(t *testing.T) {
	s, deps := newTestSession(t, "user-1")
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, ""))

	s.UpdateCurrentStep(2)

	require.Eventually(t, func() bool {
		ptr, _ := deps.store.GetCurrentPointer(ctx, "user-1")
		return ptr != nil && ptr.DraftID == s.DraftID() && ptr.Step == 2
	}, time.Second, 10*time.Millisecond)
}

func TestSession_StepZero_DoesNotWritePointer(t *testing.T) {
	s, deps := newTestSession(t, "user-1")
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, ""))

	s.UpdateCurrentStep(0)
	time.Sleep(50 * time.Millisecond)

	ptr, err := deps.store.GetCurrentPointer(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, ptr)
}

// ==========================
// Bootstrap Precedence
// ==========================

func TestSession_Bootstrap_SeedsOnlyNewDrafts(t *testing.T) {
	ctx := context.Background()
	route := models.PropertyPatch{Name: models.StringPtr("From Route")}

	fresh, _ := newTestSession(t, "user-1")
	require.NoError(t, fresh.Open(ctx, ""))
	fresh.BootstrapPropertyData(route)
	assert.Equal(t, "From Route", fresh.Snapshot().PropertyData.Name,
		"route data seeds a brand-new draft")

	loadedSession, deps := newTestSession(t, "user-2")
	require.NoError(t, deps.store.Put(ctx, &models.Draft{
		ID: "draft-1", UserID: "user-2", Status: models.StatusInProgress,
		PropertyData: models.PropertyData{Name: "From Store"},
	}))
	require.NoError(t, loadedSession.Open(ctx, "draft-1"))
	loadedSession.BootstrapPropertyData(route)
	assert.Equal(t, "From Store", loadedSession.Snapshot().PropertyData.Name,
		"persisted draft state wins over navigation parameters")
}

// ==========================
// Delete and Close
// ==========================

func TestSession_DeleteDraft_Idempotent(t *testing.T) {
	s, deps := newTestSession(t, "user-1")
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, ""))
	s.UpdateCurrentStep(2)
	require.NoError(t, s.Save(ctx))
	draftID := s.DraftID()

	require.NoError(t, s.DeleteDraft(ctx))
	require.NoError(t, s.DeleteDraft(ctx), "second delete succeeds")

	_, err := deps.store.Get(ctx, "user-1", draftID)
	assert.ErrorIs(t, err, errors.ErrDraftNotFound)

	ptr, err := deps.store.GetCurrentPointer(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, ptr, "pointer is cleared with the draft")
}

func TestSession_DeleteDraft_StopsPendingAutosave(t *testing.T) {
	s, deps := newTestSession(t, "user-1")
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, ""))

	s.UpdatePropertyData(models.PropertyPatch{Name: models.StringPtr("doomed")})
	require.NoError(t, s.DeleteDraft(ctx))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, deps.store.puts(), "no write resurrects a deleted draft")
}

func TestSession_Close_FlushesPendingMutations(t *testing.T) {
	s, deps := newTestSession(t, "user-1")
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, ""))

	s.UpdatePropertyData(models.PropertyPatch{Name: models.StringPtr("Flushed")})
	require.NoError(t, s.Close(ctx))

	assert.Equal(t, 1, deps.store.puts())
	assert.Equal(t, "Flushed", deps.store.last().PropertyData.Name)
}

func TestSession_MutationsAfterClose_AreIgnored(t *testing.T) {
	s, deps := newTestSession(t, "user-1")
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, ""))
	require.NoError(t, s.Close(ctx))

	s.UpdatePropertyData(models.PropertyPatch{Name: models.StringPtr("too late")})
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, deps.store.puts())
}
