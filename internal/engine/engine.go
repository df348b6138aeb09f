// Package engine is the assembly point for the draft engine: it binds the
// store, resolver, and hand-off mailbox once and hands out per-user sessions
// and the draft collection.
package engine

import (
	"draft-engine/internal/collection"
	"draft-engine/internal/common/config"
	"draft-engine/internal/common/logger"
	"draft-engine/internal/draftstore"
	"draft-engine/internal/resolver"
	"draft-engine/internal/session"
)

type Engine struct {
	cfg      config.EngineConfig
	bucket   string
	store    draftstore.Store
	resolver resolver.Resolver
	handoffs session.HandoffChannel
	logger   logger.Logger
}

func New(cfg config.EngineConfig, bucket string, store draftstore.Store, res resolver.Resolver, handoffs session.HandoffChannel, log logger.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		bucket:   bucket,
		store:    store,
		resolver: res,
		handoffs: handoffs,
		logger:   log,
	}
}

// NewSession creates an unopened session bound to one user. Callers follow up
// with Open to load or allocate a draft.
func (e *Engine) NewSession(userID string) *session.Session {
	return session.New(e.cfg, e.bucket, userID, e.store, e.resolver, e.handoffs, e.logger)
}

// Collection returns the list/delete view over all of a user's drafts.
func (e *Engine) Collection() *collection.Collection {
	return collection.New(e.store, e.logger)
}
