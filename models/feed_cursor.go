// ABOUTME: This file defines the per-feed continuation cursor model
// ABOUTME: A nil NextCursor after a successful fetch marks the feed as fully paged

package models

import (
	"time"
)

// DefaultFeed is the feed name used when callers do not pick one.
const DefaultFeed = "main"

// FeedCursor holds where pagination left off for one logical feed.
type FeedCursor struct {
	Feed       string    `json:"feed" db:"feed"`
	NextCursor *string   `json:"next_cursor" db:"next_cursor"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// NewFeedCursor creates a cursor row for a feed.
func NewFeedCursor(feed string, nextCursor *string) *FeedCursor {
	return &FeedCursor{
		Feed:       feed,
		NextCursor: nextCursor,
		UpdatedAt:  time.Now().UTC(),
	}
}

// EndOfPagination reports whether the remote source has no further pages for this feed.
func (c *FeedCursor) EndOfPagination() bool {
	return c.NextCursor == nil
}
