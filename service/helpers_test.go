package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"note-sync/models"
	"note-sync/repository"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	store, err := repository.Open(context.Background(), filepath.Join(t.TempDir(), "notes.db"), time.Second, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// dto builds an enriched wire note created id minutes after 2024-01-01.
func dto(id int64) models.NoteDTO {
	createdAt := time.Date(2024, 1, 1, 0, int(id), 0, 0, time.UTC).Format(time.RFC3339)
	return models.NoteDTO{
		ID:        id,
		UserID:    "user-1",
		UserName:  "Ann",
		Title:     fmt.Sprintf("note %d", id),
		Content:   "body",
		Summarize: strPtr("summary"),
		Sentiment: floatPtr(0.5),
		CreatedAt: &createdAt,
	}
}

func page(next *string, ids ...int64) *models.PagedNotesDTO {
	items := make([]models.NoteDTO, 0, len(ids))
	for _, id := range ids {
		items = append(items, dto(id))
	}
	return &models.PagedNotesDTO{Items: items, NextCursor: next, HasMore: next != nil}
}

func storedIDs(t *testing.T, store repository.NoteStore) []int64 {
	t.Helper()
	notes, err := store.Query(context.Background(), repository.QueryOptions{})
	require.NoError(t, err)
	ids := make([]int64, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
	}
	return ids
}

func storedCursor(t *testing.T, store repository.NoteStore, feed string) *models.FeedCursor {
	t.Helper()
	cursor, err := store.GetCursor(context.Background(), feed)
	require.NoError(t, err)
	return cursor
}
