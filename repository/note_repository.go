// ABOUTME: SQL for the cached notes table
// ABOUTME: Upserts by id, prunes by id set and reads in the fixed created_at desc, id desc order

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"note-sync/models"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const epochJulian = "2440587.5"

const noteColumns = `id, owner_id, owner_display_name, title, body, summary, sentiment_score, created_at`

const enrichedFilter = `summary IS NOT NULL AND sentiment_score IS NOT NULL`

func upsertNotes(ctx context.Context, db dbtx, notes []models.Note) error {
	query := `
		INSERT INTO notes (` + noteColumns + `, sort_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, COALESCE(julianday(?), ` + epochJulian + `))
		ON CONFLICT (id) DO UPDATE SET
			owner_id = excluded.owner_id,
			owner_display_name = excluded.owner_display_name,
			title = excluded.title,
			body = excluded.body,
			summary = excluded.summary,
			sentiment_score = excluded.sentiment_score,
			created_at = excluded.created_at,
			sort_at = excluded.sort_at`

	for _, note := range notes {
		createdAt := models.NormalizeCreatedAt(&note.CreatedAt)
		if _, err := db.ExecContext(ctx, query,
			note.ID,
			note.OwnerID,
			note.OwnerDisplayName,
			note.Title,
			note.Body,
			note.Summary,
			note.SentimentScore,
			createdAt,
			createdAt,
		); err != nil {
			return fmt.Errorf("upsert note %d: %w", note.ID, err)
		}
	}
	return nil
}

func clearNotes(ctx context.Context, db dbtx) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM notes`); err != nil {
		return fmt.Errorf("clear notes: %w", err)
	}
	return nil
}

func deleteNote(ctx context.Context, db dbtx, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete note %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete note %d: %w", id, err)
	}
	return affected > 0, nil
}

// pruneNotes removes every row whose id is not in keep. The id set travels as one
// JSON array parameter so it is not bound by the SQLite variable limit.
func pruneNotes(ctx context.Context, db dbtx, keep []int64) (int64, error) {
	if keep == nil {
		keep = []int64{}
	}
	encoded, err := json.Marshal(keep)
	if err != nil {
		return 0, fmt.Errorf("encode id set: %w", err)
	}

	result, err := db.ExecContext(ctx,
		`DELETE FROM notes WHERE id NOT IN (SELECT value FROM json_each(?))`,
		string(encoded),
	)
	if err != nil {
		return 0, fmt.Errorf("prune notes: %w", err)
	}
	return result.RowsAffected()
}

func queryNotes(ctx context.Context, db dbtx, opts QueryOptions) ([]models.Note, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + noteColumns + ` FROM notes`)
	if opts.EnrichedOnly {
		b.WriteString(` WHERE ` + enrichedFilter)
	}
	b.WriteString(` ORDER BY sort_at DESC, id DESC LIMIT ? OFFSET ?`)

	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := max(opts.Offset, 0)

	rows, err := db.QueryContext(ctx, b.String(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	notes := make([]models.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

func getNote(ctx context.Context, db dbtx, id int64) (*models.Note, error) {
	row := db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note %d: %w", id, err)
	}
	return &note, nil
}

func countNotes(ctx context.Context, db dbtx, enrichedOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM notes`
	if enrichedOnly {
		query += ` WHERE ` + enrichedFilter
	}
	var count int
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (models.Note, error) {
	var (
		note      models.Note
		summary   sql.NullString
		sentiment sql.NullFloat64
	)
	if err := row.Scan(
		&note.ID,
		&note.OwnerID,
		&note.OwnerDisplayName,
		&note.Title,
		&note.Body,
		&summary,
		&sentiment,
		&note.CreatedAt,
	); err != nil {
		return models.Note{}, err
	}
	if summary.Valid {
		note.Summary = &summary.String
	}
	if sentiment.Valid {
		note.SentimentScore = &sentiment.Float64
	}
	return note, nil
}
