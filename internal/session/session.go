// Package session implements the draft engine proper: exclusive ownership of
// one draft's in-memory snapshot, synchronous mutations, a trailing-edge
// debounced autosave with write coalescing, stale media regeneration on load,
// and idempotent consumption of the hand-off mailbox.
//
// Two sessions pointed at the same draft never share memory; they coordinate
// only through the store (last writer wins) and the mailbox.
package session

import (
	"context"
	"sync"
	"time"

	"draft-engine/internal/common/config"
	"draft-engine/internal/common/errors"
	"draft-engine/internal/common/logger"
	"draft-engine/internal/common/metrics"
	"draft-engine/internal/draftstore"
	"draft-engine/internal/models"
	"draft-engine/internal/resolver"

	"github.com/google/uuid"
)

// HandoffChannel is the narrow mailbox view the session consumes.
type HandoffChannel interface {
	Peek(ctx context.Context, draftID string) (*models.PendingHandoff, error)
	Clear(ctx context.Context, draftID string) error
}

// State is the observable session state a consuming screen renders.
type State struct {
	IsLoading   bool
	IsSaving    bool
	LastSavedAt time.Time
	LastError   error
}

// Session owns the in-memory snapshot for exactly one draft. All exported
// methods are safe for concurrent use; mutations are applied in
// lock-acquisition order.
type Session struct {
	cfg      config.EngineConfig
	bucket   string
	userID   string
	store    draftstore.Store
	resolver resolver.Resolver
	handoffs HandoffChannel
	logger   logger.Logger

	// saveMu serializes durable writes: at most one write is in flight, and a
	// write that queued behind another always sends the latest snapshot.
	saveMu sync.Mutex

	mu              sync.Mutex
	draft           *models.Draft
	loadedFromStore bool
	dirty           bool
	closed          bool
	isLoading       bool
	isSaving        bool
	lastSavedAt     time.Time
	lastError       error
	timer           *time.Timer
}

func New(cfg config.EngineConfig, bucket, userID string, store draftstore.Store, res resolver.Resolver, handoffs HandoffChannel, log logger.Logger) *Session {
	return &Session{
		cfg:      cfg,
		bucket:   bucket,
		userID:   userID,
		store:    store,
		resolver: res,
		handoffs: handoffs,
		logger:   log.WithFields(map[string]interface{}{"component": "session", "userId": userID}),
	}
}

// Open loads an existing snapshot or allocates a new empty one.
//
// With an explicit draftID, a missing snapshot fails closed with
// DRAFT_NOT_FOUND. With an empty draftID the per-user current-draft pointer is
// consulted first (cold-start resume); a stale pointer falls back to a fresh
// draft. Loaded snapshots have their signed photo URLs regenerated from
// photoPaths before Open returns.
func (s *Session) Open(ctx context.Context, draftID string) error {
	s.mu.Lock()
	s.isLoading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.isLoading = false
		s.mu.Unlock()
	}()

	if draftID != "" {
		draft, err := s.store.Get(ctx, s.userID, draftID)
		if err != nil {
			return err
		}
		s.adopt(ctx, draft, true)
		return nil
	}

	ptr, err := s.store.GetCurrentPointer(ctx, s.userID)
	if err != nil {
		s.logger.Warn("current draft pointer unreadable, starting fresh", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if ptr != nil {
		draft, err := s.store.Get(ctx, s.userID, ptr.DraftID)
		if err == nil {
			s.adopt(ctx, draft, true)
			return nil
		}
		s.logger.Warn("current draft pointer is stale, starting fresh", map[string]interface{}{
			"draftId": ptr.DraftID,
			"error":   err.Error(),
		})
	}

	fresh := &models.Draft{
		ID:          uuid.NewString(),
		UserID:      s.userID,
		Status:      models.StatusDraft,
		CurrentStep: 0,
		Areas:       []models.Area{},
	}
	fresh.CompletionPercentage = fresh.ComputeCompletion()
	s.adopt(ctx, fresh, false)
	return nil
}

// adopt installs the snapshot and, for loaded drafts, regenerates signed URLs.
func (s *Session) adopt(ctx context.Context, draft *models.Draft, fromStore bool) {
	if fromStore {
		s.regeneratePhotos(ctx, draft)
	}

	s.mu.Lock()
	s.draft = draft
	s.loadedFromStore = fromStore
	s.lastSavedAt = draft.LastModified
	s.mu.Unlock()

	metrics.DraftsOpen.Inc()
}

// DraftID returns the id of the open draft, or "" before Open.
func (s *Session) DraftID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return ""
	}
	return s.draft.ID
}

// Snapshot returns a deep copy of the current in-memory draft, or nil before
// Open. Callers may hold it across renders without racing the session.
func (s *Session) Snapshot() *models.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return nil
	}
	return s.draft.Clone()
}

// State returns the observable flags.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		IsLoading:   s.isLoading,
		IsSaving:    s.isSaving,
		LastSavedAt: s.lastSavedAt,
		LastError:   s.lastError,
	}
}

// BootstrapPropertyData is the single precedence rule for route-carried
// property data: it seeds the snapshot only when the draft is brand new.
// A snapshot loaded from the store always wins over navigation parameters.
func (s *Session) BootstrapPropertyData(route models.PropertyPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil || s.loadedFromStore || route.IsEmpty() {
		return
	}
	route.Apply(&s.draft.PropertyData)
	s.draft.CompletionPercentage = s.draft.ComputeCompletion()
	s.armAutosaveLocked()
}

// UpdatePropertyData merges the patch into the snapshot. Synchronous,
// fire-and-forget with respect to durability.
func (s *Session) UpdatePropertyData(patch models.PropertyPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil || s.closed {
		return
	}
	patch.Apply(&s.draft.PropertyData)
	s.markMutatedLocked()
}

// UpdateAreas replaces the area list wholesale. Order is display order.
func (s *Session) UpdateAreas(areas []models.Area) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil || s.closed {
		return
	}
	s.draft.Areas = cloneAreas(areas)
	s.markMutatedLocked()
}

// UpdateCurrentStep records the wizard position. Advancing past the first
// step also updates the per-user current-draft pointer so a reload resumes at
// the right screen; the pointer write is fire-and-forget.
func (s *Session) UpdateCurrentStep(step int) {
	s.mu.Lock()
	if s.draft == nil || s.closed {
		s.mu.Unlock()
		return
	}
	s.draft.CurrentStep = step
	draftID := s.draft.ID
	s.markMutatedLocked()
	s.mu.Unlock()

	if step >= 1 {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SaveTimeout)
			defer cancel()
			if err := s.store.SetCurrentPointer(ctx, s.userID, draftID, step); err != nil {
				s.logger.Warn("current draft pointer update failed", map[string]interface{}{
					"draftId": draftID,
					"error":   err.Error(),
				})
			}
		}()
	}
}

// markMutatedLocked applies the bookkeeping every mutation shares: first
// mutation promotes the status, completion is recomputed, the debounce timer
// restarts. Caller holds s.mu.
func (s *Session) markMutatedLocked() {
	if s.draft.Status == models.StatusDraft {
		s.draft.Status = models.StatusInProgress
	}
	s.draft.CompletionPercentage = s.draft.ComputeCompletion()
	s.armAutosaveLocked()
}

// armAutosaveLocked restarts the trailing-edge debounce timer. Caller holds s.mu.
func (s *Session) armAutosaveLocked() {
	s.dirty = true
	if s.closed {
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.cfg.AutosaveDelay, s.autosaveFire)
	} else {
		s.timer.Reset(s.cfg.AutosaveDelay)
	}
}

func (s *Session) autosaveFire() {
	s.mu.Lock()
	skip := s.closed || !s.dirty
	s.mu.Unlock()
	if skip {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SaveTimeout)
	defer cancel()
	// flush records lastError; autosave failures are surfaced to the screen
	// as session state, never as a crash.
	_ = s.flush(ctx, "debounce")
}

// Save forces an immediate durable write, bypassing the debounce timer. The
// in-memory snapshot is left untouched on failure.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.draft == nil {
		s.mu.Unlock()
		return errors.NewDraftNotFoundError("")
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	return s.flush(ctx, "forced")
}

// flush sends the latest snapshot to the store. saveMu guarantees one write
// in flight; a caller blocked here re-snapshots after the lock, so
// intermediate states are dropped rather than written.
func (s *Session) flush(ctx context.Context, trigger string) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.draft == nil {
		s.mu.Unlock()
		return nil
	}
	if trigger == "debounce" && !s.dirty {
		// A forced save already carried this state while we waited.
		s.mu.Unlock()
		return nil
	}
	snapshot := s.draft.Clone()
	s.dirty = false
	s.isSaving = true
	s.mu.Unlock()

	start := time.Now()
	err := s.store.Put(ctx, snapshot)
	metrics.DraftSaveDuration.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	s.isSaving = false
	if err != nil {
		s.dirty = true
		s.lastError = err
		s.mu.Unlock()

		metrics.DraftSaveFailures.WithLabelValues(trigger).Inc()
		s.logger.WithError(err).Error("draft save failed", map[string]interface{}{
			"draftId": snapshot.ID,
			"trigger": trigger,
		})
		return err
	}

	s.lastError = nil
	s.lastSavedAt = snapshot.LastModified
	if s.draft != nil {
		s.draft.LastModified = snapshot.LastModified
	}
	s.mu.Unlock()

	metrics.DraftSavesTotal.WithLabelValues(trigger).Inc()
	return nil
}

// DeleteDraft removes the durable snapshot and clears the current-draft
// pointer for this user. Idempotent: deleting an already-deleted draft
// succeeds.
func (s *Session) DeleteDraft(ctx context.Context) error {
	s.mu.Lock()
	if s.draft == nil {
		s.mu.Unlock()
		return nil
	}
	draftID := s.draft.ID
	if s.timer != nil {
		s.timer.Stop()
	}
	s.dirty = false
	s.mu.Unlock()

	if err := s.store.Delete(ctx, s.userID, draftID); err != nil {
		s.mu.Lock()
		s.lastError = err
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.lastError = nil
	s.mu.Unlock()
	return nil
}

// Close stops the autosave timer, flushing once when mutations are pending.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	pending := s.dirty && s.draft != nil
	opened := s.draft != nil
	s.mu.Unlock()

	if opened {
		metrics.DraftsOpen.Dec()
	}

	if pending {
		return s.flush(ctx, "forced")
	}
	return nil
}

func cloneAreas(areas []models.Area) []models.Area {
	out := make([]models.Area, len(areas))
	for i, area := range areas {
		copied := area
		copied.Photos = append([]string(nil), area.Photos...)
		copied.PhotoPaths = append([]string(nil), area.PhotoPaths...)
		copied.Assets = make([]models.Asset, len(area.Assets))
		for j, asset := range area.Assets {
			ca := asset
			ca.Photos = append([]string(nil), asset.Photos...)
			ca.PhotoPaths = append([]string(nil), asset.PhotoPaths...)
			copied.Assets[j] = ca
		}
		out[i] = copied
	}
	return out
}
