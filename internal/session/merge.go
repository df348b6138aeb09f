// internal/session/merge.go
package session

import (
	"context"
	stderrors "errors"

	"draft-engine/internal/common/errors"
	"draft-engine/internal/common/metrics"
)

// MergePendingAsset consumes the hand-off mailbox for this session's draft.
// The consuming screen runs it on mount and again on every focus; delivery is
// at-least-once, so the merge is idempotent: a repeat with the same payload
// leaves exactly one copy of the asset in the target area.
//
// The mailbox slot is cleared only after a successful (or already-done) merge.
// A missing target area returns MERGE_TARGET_MISSING with the slot intact, so
// the next trigger retries rather than dropping the payload.
func (s *Session) MergePendingAsset(ctx context.Context) error {
	s.mu.Lock()
	draftID := ""
	if s.draft != nil {
		draftID = s.draft.ID
	}
	s.mu.Unlock()
	if draftID == "" || s.handoffs == nil {
		return nil
	}

	payload, err := s.handoffs.Peek(ctx, draftID)
	if err != nil {
		return err
	}
	if payload == nil {
		metrics.HandoffMerges.WithLabelValues("empty").Inc()
		return nil
	}

	s.mu.Lock()
	area := s.draft.FindArea(payload.AreaID)
	if area == nil {
		s.mu.Unlock()

		// The session may be asked to merge before its own areas arrived;
		// consult the durable snapshot before giving up on this trigger.
		stored, getErr := s.store.Get(ctx, s.userID, draftID)
		if getErr != nil || stored.FindArea(payload.AreaID) == nil {
			metrics.HandoffMerges.WithLabelValues("deferred").Inc()
			return errors.NewMergeTargetMissingError(draftID, payload.AreaID)
		}
		// Adopted areas came from durable storage, so their signed URLs are
		// rebuilt from photoPaths like any other load.
		s.regenerateAreaPhotos(ctx, stored.Areas)

		s.mu.Lock()
		if len(s.draft.Areas) == 0 {
			s.draft.Areas = stored.Areas
		}
		area = s.draft.FindArea(payload.AreaID)
		if area == nil {
			s.mu.Unlock()
			metrics.HandoffMerges.WithLabelValues("deferred").Inc()
			return errors.NewMergeTargetMissingError(draftID, payload.AreaID)
		}
	}

	if area.FindAsset(payload.Asset.ID) != nil {
		// Already merged on a previous trigger; consuming again must be
		// side-effect-free.
		s.mu.Unlock()
		metrics.HandoffMerges.WithLabelValues("duplicate").Inc()
		return s.clearSlot(ctx, draftID)
	}

	area.Assets = append(area.Assets, payload.Asset)
	s.markMutatedLocked()
	s.mu.Unlock()

	metrics.HandoffMerges.WithLabelValues("merged").Inc()
	s.logger.Info("pending asset merged", map[string]interface{}{
		"draftId": draftID,
		"areaId":  payload.AreaID,
		"assetId": payload.Asset.ID,
	})
	return s.clearSlot(ctx, draftID)
}

func (s *Session) clearSlot(ctx context.Context, draftID string) error {
	err := s.handoffs.Clear(ctx, draftID)
	if err != nil && !stderrors.Is(err, context.Canceled) {
		s.logger.Warn("mailbox clear failed; merge stays idempotent on redelivery", map[string]interface{}{
			"draftId": draftID,
			"error":   err.Error(),
		})
	}
	return err
}
