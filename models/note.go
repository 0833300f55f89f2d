// ABOUTME: This file defines the note models shared by the cache, the remote client and the pager
// ABOUTME: Covers the stored representation, the wire DTOs and createdAt normalization

package models

import (
	"strings"
)

// EpochTimestamp is the effective createdAt of notes whose timestamp is missing or blank.
const EpochTimestamp = "1970-01-01T00:00:00Z"

// Note is the cached unit persisted in the local store.
type Note struct {
	ID               int64    `json:"id" db:"id"`
	OwnerID          string   `json:"owner_id" db:"owner_id"`
	OwnerDisplayName string   `json:"owner_display_name" db:"owner_display_name"`
	Title            string   `json:"title" db:"title"`
	Body             string   `json:"body" db:"body"`
	Summary          *string  `json:"summary,omitempty" db:"summary"`
	SentimentScore   *float64 `json:"sentiment_score,omitempty" db:"sentiment_score"`
	CreatedAt        string   `json:"created_at" db:"created_at"`
}

// IsEnriched reports whether the server has finished computing both derived fields.
func (n *Note) IsEnriched() bool {
	return n.Summary != nil && n.SentimentScore != nil
}

// NoteDTO is the wire shape of a note returned by the notes API.
type NoteDTO struct {
	ID        int64    `json:"id"`
	UserID    string   `json:"userId"`
	UserName  string   `json:"userName"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Summarize *string  `json:"summarize"`
	Sentiment *float64 `json:"sentiment"`
	CreatedAt *string  `json:"createdAt"`
}

// PagedNotesDTO is the response of the paged list endpoint.
// HasMore is informational only; a nil NextCursor is what ends pagination.
type PagedNotesDTO struct {
	Items      []NoteDTO `json:"items"`
	NextCursor *string   `json:"next_cursor"`
	HasMore    bool      `json:"has_more"`
}

// NoteRequest is the body of create and update calls.
type NoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NormalizeCreatedAt maps a missing or blank timestamp to EpochTimestamp.
func NormalizeCreatedAt(createdAt *string) string {
	if createdAt == nil || strings.TrimSpace(*createdAt) == "" {
		return EpochTimestamp
	}
	return *createdAt
}

// NoteFromDTO converts a wire note into its stored form.
// Derived fields stay nil when the server has not produced them yet; a
// sentiment outside [0,1] is treated as absent.
func NoteFromDTO(dto NoteDTO) Note {
	note := Note{
		ID:               dto.ID,
		OwnerID:          dto.UserID,
		OwnerDisplayName: dto.UserName,
		Title:            dto.Title,
		Body:             dto.Content,
		CreatedAt:        NormalizeCreatedAt(dto.CreatedAt),
	}
	if dto.Summarize != nil {
		summary := *dto.Summarize
		note.Summary = &summary
	}
	if dto.Sentiment != nil && *dto.Sentiment >= 0 && *dto.Sentiment <= 1 {
		score := *dto.Sentiment
		note.SentimentScore = &score
	}
	return note
}

// NotesFromDTOs converts a page of wire notes.
func NotesFromDTOs(dtos []NoteDTO) []Note {
	notes := make([]Note, 0, len(dtos))
	for _, dto := range dtos {
		notes = append(notes, NoteFromDTO(dto))
	}
	return notes
}
