// ABOUTME: Write-through note operations against the notes API
// ABOUTME: Successful network writes are reflected into the local store on a best-effort basis

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"note-sync/driver"
	"note-sync/models"
	"note-sync/repository"
)

// ReconcileResult summarizes a reconciliation pass.
type ReconcileResult struct {
	Pages   int
	Remote  int
	Removed int64
}

// NoteService creates, updates and deletes notes remotely and mirrors the result locally.
type NoteService struct {
	remote RemoteSource
	store  repository.NoteStore
	order  string
	logger *slog.Logger
}

// NewNoteService creates a note service.
func NewNoteService(remote RemoteSource, store repository.NoteStore, order string, logger *slog.Logger) *NoteService {
	if logger == nil {
		logger = slog.Default()
	}
	if order == "" {
		order = "desc"
	}
	return &NoteService{
		remote: remote,
		store:  store,
		order:  order,
		logger: logger,
	}
}

// Create posts a new note and stores the server's copy.
func (s *NoteService) Create(ctx context.Context, title, content string) (*models.Note, error) {
	dto, err := s.remote.CreateNote(ctx, models.NoteRequest{Title: title, Content: content})
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return s.reflect(ctx, "create", *dto)
}

// Update replaces a note's title and content and stores the server's copy.
func (s *NoteService) Update(ctx context.Context, id int64, title, content string) (*models.Note, error) {
	dto, err := s.remote.UpdateNote(ctx, id, models.NoteRequest{Title: title, Content: content})
	if err != nil {
		return nil, fmt.Errorf("update note %d: %w", id, err)
	}
	return s.reflect(ctx, "update", *dto)
}

// Delete removes a note remotely and locally. A note already gone on the server is still removed locally.
func (s *NoteService) Delete(ctx context.Context, id int64) error {
	if err := s.remote.DeleteNote(ctx, id); err != nil {
		if !errors.Is(err, driver.ErrNotFound) {
			return fmt.Errorf("delete note %d: %w", id, err)
		}
		s.logger.Info("Note already deleted on server", "note_id", id)
	}

	if err := s.store.DeleteByID(ctx, id); err != nil {
		s.logger.Error("Deleted remotely but failed to delete locally",
			"note_id", id,
			"error", err)
		return fmt.Errorf("reflect delete of note %d: %w", id, err)
	}
	return nil
}

// Reconcile walks every remote page and removes local notes the server no longer has.
// Pages are also upserted so edits made elsewhere are picked up.
func (s *NoteService) Reconcile(ctx context.Context, pageSize int) (*ReconcileResult, error) {
	limit := clampPageSize(pageSize)
	result := &ReconcileResult{}

	var (
		ids    []int64
		notes  []models.Note
		cursor *string
		seen   = map[string]struct{}{}
	)
	for {
		page, err := s.remote.ListNotes(ctx, limit, cursor, s.order)
		if err != nil {
			return nil, fmt.Errorf("reconcile page %d: %w", result.Pages+1, err)
		}
		result.Pages++

		for _, note := range models.NotesFromDTOs(page.Items) {
			ids = append(ids, note.ID)
			notes = append(notes, note)
		}

		if page.NextCursor == nil {
			break
		}
		if _, ok := seen[*page.NextCursor]; ok {
			return nil, fmt.Errorf("reconcile: server repeated cursor after page %d", result.Pages)
		}
		seen[*page.NextCursor] = struct{}{}
		cursor = page.NextCursor
	}
	result.Remote = len(ids)

	err := s.store.RunAtomic(ctx, func(tx repository.Tx) error {
		removed, err := tx.PruneExcept(ctx, ids)
		if err != nil {
			return err
		}
		result.Removed = removed
		return tx.UpsertMany(ctx, notes)
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile store: %w", err)
	}

	s.logger.Info("Reconciled local notes with server",
		"pages", result.Pages,
		"remote_count", result.Remote,
		"removed_count", result.Removed)

	return result, nil
}

func (s *NoteService) reflect(ctx context.Context, op string, dto models.NoteDTO) (*models.Note, error) {
	note := models.NoteFromDTO(dto)
	if err := s.store.UpsertMany(ctx, []models.Note{note}); err != nil {
		s.logger.Error("Remote write succeeded but local reflection failed",
			"operation", op,
			"note_id", note.ID,
			"error", err)
		return &note, fmt.Errorf("reflect %s of note %d: %w", op, note.ID, err)
	}
	return &note, nil
}
