// ABOUTME: Repository layer contracts for the local note cache
// ABOUTME: Defines the transactional unit of work and the store surface the services depend on

package repository

import (
	"context"
	"errors"
	"fmt"

	"note-sync/models"
)

// Table names used for change subscriptions.
const (
	TableNotes       = "notes"
	TableFeedCursors = "feed_cursors"
)

var (
	ErrNoteNotFound   = errors.New("note not found")
	ErrCursorNotFound = errors.New("feed cursor not found")
	ErrStoreClosed    = errors.New("store is closed")
)

// StoreError wraps any failure of the durable store so callers can classify it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// QueryOptions selects a window of the ordered note table.
type QueryOptions struct {
	EnrichedOnly bool
	Limit        int
	Offset       int
}

// Tx is the set of operations that can run inside RunAtomic.
type Tx interface {
	// Note operations
	UpsertMany(ctx context.Context, notes []models.Note) error
	Clear(ctx context.Context) error
	DeleteByID(ctx context.Context, id int64) error
	PruneExcept(ctx context.Context, ids []int64) (int64, error)

	// Feed cursor operations
	GetCursor(ctx context.Context, feed string) (*models.FeedCursor, error)
	PutCursor(ctx context.Context, feed string, cursor *string) error
	DeleteCursor(ctx context.Context, feed string) error
}

// NoteStore is the durable store shared by the mediator, the pager and the note service.
type NoteStore interface {
	Tx

	// Read operations
	Query(ctx context.Context, opts QueryOptions) ([]models.Note, error)
	GetByID(ctx context.Context, id int64) (*models.Note, error)
	Count(ctx context.Context, enrichedOnly bool) (int, error)

	// RunAtomic commits every write made through tx, or none of them.
	RunAtomic(ctx context.Context, fn func(tx Tx) error) error

	// Subscribe returns a channel signalled after each commit touching any of the tables.
	Subscribe(tables ...string) (<-chan struct{}, func())
}
