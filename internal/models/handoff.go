package models

import "time"

// PendingHandoff is the ephemeral mailbox payload used to pass one freshly
// created asset from the screen that documented it to the screen that owns the
// area's inventory. It is never part of the durable draft snapshot.
type PendingHandoff struct {
	DraftID     string    `json:"draftId"`
	AreaID      string    `json:"areaId"`
	Asset       Asset     `json:"asset"`
	PublishedAt time.Time `json:"publishedAt"`
}
