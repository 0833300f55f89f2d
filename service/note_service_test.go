package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"note-sync/driver"
	"note-sync/mocks"
	"note-sync/models"
)

func TestNoteService_CreateAndUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteSource(ctrl)
	store := newTestStore(t)
	svc := NewNoteService(remote, store, "desc", nil)
	ctx := context.Background()

	created := dto(5)
	created.CreatedAt = nil
	created.Summarize = nil
	remote.EXPECT().CreateNote(gomock.Any(), models.NoteRequest{Title: "t", Content: "c"}).Return(&created, nil)

	note, err := svc.Create(ctx, "t", "c")
	require.NoError(t, err)
	assert.Equal(t, models.EpochTimestamp, note.CreatedAt)

	stored, err := store.GetByID(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, stored.Summary)

	updated := dto(5)
	updated.Title = "edited"
	remote.EXPECT().UpdateNote(gomock.Any(), int64(5), models.NoteRequest{Title: "edited", Content: "c"}).Return(&updated, nil)

	_, err = svc.Update(ctx, 5, "edited", "c")
	require.NoError(t, err)

	stored, err = store.GetByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "edited", stored.Title)
	assert.True(t, stored.IsEnriched())
}

func TestNoteService_CreateRemoteFailureLeavesStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteSource(ctrl)
	store := newTestStore(t)
	svc := NewNoteService(remote, store, "desc", nil)

	remote.EXPECT().CreateNote(gomock.Any(), gomock.Any()).Return(nil, driver.ErrBadRequest)

	_, err := svc.Create(context.Background(), "", "")
	assert.ErrorIs(t, err, driver.ErrBadRequest)

	count, err := store.Count(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNoteService_Delete(t *testing.T) {
	tests := map[string]struct {
		remoteErr   error
		expectErr   error
		expectLocal bool
	}{
		"deleted":            {remoteErr: nil, expectLocal: false},
		"already_gone":       {remoteErr: &driver.APIError{StatusCode: 404, Err: driver.ErrNotFound}, expectLocal: false},
		"remote_unavailable": {remoteErr: driver.ErrTemporaryFailure, expectErr: driver.ErrTemporaryFailure, expectLocal: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			remote := mocks.NewMockRemoteSource(ctrl)
			store := newTestStore(t)
			svc := NewNoteService(remote, store, "desc", nil)
			ctx := context.Background()

			seedStore(t, store, nil, 1)
			remote.EXPECT().DeleteNote(gomock.Any(), int64(1)).Return(tc.remoteErr)

			err := svc.Delete(ctx, 1)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				require.NoError(t, err)
			}

			_, getErr := store.GetByID(ctx, 1)
			assert.Equal(t, tc.expectLocal, getErr == nil)
		})
	}
}

func TestNoteService_Reconcile(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteSource(ctrl)
	store := newTestStore(t)
	svc := NewNoteService(remote, store, "desc", nil)
	ctx := context.Background()

	seedStore(t, store, strPtr("c9"), 1, 2, 3, 4)

	gomock.InOrder(
		remote.EXPECT().ListNotes(gomock.Any(), 50, gomock.Nil(), "desc").Return(page(strPtr("p2"), 4, 3), nil),
		remote.EXPECT().ListNotes(gomock.Any(), 50, gomock.Eq(strPtr("p2")), "desc").Return(page(nil, 1, 6), nil),
	)

	result, err := svc.Reconcile(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, 4, result.Remote)
	assert.Equal(t, int64(1), result.Removed)

	assert.Equal(t, []int64{6, 4, 3, 1}, storedIDs(t, store))
	assert.Equal(t, "c9", *storedCursor(t, store, feed).NextCursor, "reconcile does not move the feed cursor")
}

func TestNoteService_ReconcileAbortsOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteSource(ctrl)
	store := newTestStore(t)
	svc := NewNoteService(remote, store, "desc", nil)

	seedStore(t, store, nil, 1, 2)

	gomock.InOrder(
		remote.EXPECT().ListNotes(gomock.Any(), gomock.Any(), gomock.Nil(), gomock.Any()).Return(page(strPtr("p2"), 2), nil),
		remote.EXPECT().ListNotes(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset")),
	)

	_, err := svc.Reconcile(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, []int64{2, 1}, storedIDs(t, store))
}

func TestNoteService_ReconcileAbortsOnCursorCycle(t *testing.T) {
	tests := map[string]struct {
		cursors []string
	}{
		"same_cursor_twice": {cursors: []string{"a", "a"}},
		"two_cursor_cycle":  {cursors: []string{"a", "b", "a"}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			remote := mocks.NewMockRemoteSource(ctrl)
			store := newTestStore(t)
			svc := NewNoteService(remote, store, "desc", nil)

			seedStore(t, store, nil, 1, 2)

			calls := make([]any, 0, len(tc.cursors))
			for i, c := range tc.cursors {
				calls = append(calls, remote.EXPECT().
					ListNotes(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(page(strPtr(c), int64(i+1)), nil))
			}
			gomock.InOrder(calls...)

			_, err := svc.Reconcile(context.Background(), 10)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "repeated cursor")
			assert.Equal(t, []int64{2, 1}, storedIDs(t, store), "an aborted walk prunes nothing")
		})
	}
}
