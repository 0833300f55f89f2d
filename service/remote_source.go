//go:generate mockgen -source=remote_source.go -destination=../mocks/remote_source_mock.go -package=mocks RemoteSource

package service

import (
	"context"

	"note-sync/models"
)

// RemoteSource is the subset of the notes API the services depend on.
// driver.NotesAPIClient implements it.
type RemoteSource interface {
	ListNotes(ctx context.Context, limit int, cursor *string, order string) (*models.PagedNotesDTO, error)
	CreateNote(ctx context.Context, request models.NoteRequest) (*models.NoteDTO, error)
	UpdateNote(ctx context.Context, id int64, request models.NoteRequest) (*models.NoteDTO, error)
	DeleteNote(ctx context.Context, id int64) error
}
