// ABOUTME: SQL for the feed cursor table
// ABOUTME: One row per feed holding the last continuation cursor, NULL once pagination is exhausted

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"note-sync/models"
)

func getCursor(ctx context.Context, db dbtx, feed string) (*models.FeedCursor, error) {
	var (
		next      sql.NullString
		updatedAt int64
	)
	err := db.QueryRowContext(ctx,
		`SELECT next_cursor, updated_at FROM feed_cursors WHERE feed = ?`, feed,
	).Scan(&next, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCursorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cursor for feed %s: %w", feed, err)
	}

	var nextCursor *string
	if next.Valid {
		nextCursor = &next.String
	}
	cursor := models.NewFeedCursor(feed, nextCursor)
	cursor.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return cursor, nil
}

func putCursor(ctx context.Context, db dbtx, feed string, cursor *string, now time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO feed_cursors (feed, next_cursor, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (feed) DO UPDATE SET
			next_cursor = excluded.next_cursor,
			updated_at = excluded.updated_at`,
		feed, cursor, now.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put cursor for feed %s: %w", feed, err)
	}
	return nil
}

func deleteCursor(ctx context.Context, db dbtx, feed string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM feed_cursors WHERE feed = ?`, feed); err != nil {
		return fmt.Errorf("delete cursor for feed %s: %w", feed, err)
	}
	return nil
}
