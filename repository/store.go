// ABOUTME: SQLite-backed durable store for cached notes and feed cursors
// ABOUTME: Provides all-or-nothing transactions and commit-time change notification to readers

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"note-sync/models"
	"note-sync/repository/migrations"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store persists notes and feed cursors in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	closed bool
	subs   map[*subscription]struct{}
}

type subscription struct {
	tables map[string]struct{}
	ch     chan struct{}
}

// Open opens the SQLite database at path and applies the embedded migrations.
func Open(ctx context.Context, path string, busyTimeout time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := sql.Open("sqlite", buildDSN(path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == MemoryPath {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("Local note store opened", "path", path)

	return &Store{
		db:     db,
		logger: logger,
		now:    time.Now,
		subs:   make(map[*subscription]struct{}),
	}, nil
}

// buildDSN enables WAL and makes every transaction take the write lock at BEGIN,
// which serializes writers against each other.
func buildDSN(path string, busyTimeout time.Duration) string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	params.Add("_pragma", "foreign_keys(1)")
	params.Set("_txlock", "immediate")

	if path == MemoryPath {
		return MemoryPath + "?" + params.Encode()
	}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	return filepath.Clean(path) + "?" + params.Encode()
}

// Close closes the database and every live subscription channel.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for sub := range s.subs {
		close(sub.ch)
	}
	s.subs = nil
	s.mu.Unlock()

	return s.db.Close()
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// RunAtomic runs fn inside one transaction. Any error returned by fn, or a failed
// commit, rolls back every write fn made. Subscribers are notified only after commit.
func (s *Store) RunAtomic(ctx context.Context, fn func(tx Tx) error) error {
	if s.isClosed() {
		return storeErr("begin", ErrStoreClosed)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin", err)
	}
	defer sqlTx.Rollback()

	tx := &storeTx{tx: sqlTx, now: s.now, touched: make(map[string]struct{})}
	if err := fn(tx); err != nil {
		return storeErr("transaction", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return storeErr("commit", err)
	}

	if len(tx.touched) > 0 {
		s.notify(tx.touched)
	}
	return nil
}

// Subscribe returns a channel that receives a signal after every commit touching
// one of tables (all tables when none are given). Signals coalesce: a slow reader
// sees one pending signal, never a backlog. The returned func unsubscribes.
func (s *Store) Subscribe(tables ...string) (<-chan struct{}, func()) {
	sub := &subscription{
		tables: make(map[string]struct{}, len(tables)),
		ch:     make(chan struct{}, 1),
	}
	for _, table := range tables {
		sub.tables[table] = struct{}{}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[sub]; ok {
				delete(s.subs, sub)
				close(sub.ch)
			}
		})
	}
}

func (s *Store) notify(touched map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs {
		if !sub.matches(touched) {
			continue
		}
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}

func (sub *subscription) matches(touched map[string]struct{}) bool {
	if len(sub.tables) == 0 {
		return true
	}
	for table := range touched {
		if _, ok := sub.tables[table]; ok {
			return true
		}
	}
	return false
}

// Query returns a materialized window of notes in created_at desc, id desc order.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]models.Note, error) {
	if s.isClosed() {
		return nil, storeErr("query", ErrStoreClosed)
	}
	notes, err := queryNotes(ctx, s.db, opts)
	return notes, storeErr("query", err)
}

// GetByID returns a single cached note or ErrNoteNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (*models.Note, error) {
	if s.isClosed() {
		return nil, storeErr("get", ErrStoreClosed)
	}
	note, err := getNote(ctx, s.db, id)
	return note, storeErr("get", err)
}

// Count returns the number of cached notes.
func (s *Store) Count(ctx context.Context, enrichedOnly bool) (int, error) {
	if s.isClosed() {
		return 0, storeErr("count", ErrStoreClosed)
	}
	count, err := countNotes(ctx, s.db, enrichedOnly)
	return count, storeErr("count", err)
}

// UpsertMany inserts or replaces notes by id in its own transaction.
func (s *Store) UpsertMany(ctx context.Context, notes []models.Note) error {
	return s.RunAtomic(ctx, func(tx Tx) error { return tx.UpsertMany(ctx, notes) })
}

// Clear removes every cached note.
func (s *Store) Clear(ctx context.Context) error {
	return s.RunAtomic(ctx, func(tx Tx) error { return tx.Clear(ctx) })
}

// DeleteByID removes one note; a missing id is not an error.
func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	return s.RunAtomic(ctx, func(tx Tx) error { return tx.DeleteByID(ctx, id) })
}

// PruneExcept removes every note whose id is not in ids.
func (s *Store) PruneExcept(ctx context.Context, ids []int64) (int64, error) {
	var removed int64
	err := s.RunAtomic(ctx, func(tx Tx) error {
		var err error
		removed, err = tx.PruneExcept(ctx, ids)
		return err
	})
	return removed, err
}

// GetCursor returns the stored cursor for feed or ErrCursorNotFound.
func (s *Store) GetCursor(ctx context.Context, feed string) (*models.FeedCursor, error) {
	if s.isClosed() {
		return nil, storeErr("get cursor", ErrStoreClosed)
	}
	cursor, err := getCursor(ctx, s.db, feed)
	return cursor, storeErr("get cursor", err)
}

// PutCursor stores cursor for feed; nil records end of pagination.
func (s *Store) PutCursor(ctx context.Context, feed string, cursor *string) error {
	return s.RunAtomic(ctx, func(tx Tx) error { return tx.PutCursor(ctx, feed, cursor) })
}

// DeleteCursor forgets the cursor of feed.
func (s *Store) DeleteCursor(ctx context.Context, feed string) error {
	return s.RunAtomic(ctx, func(tx Tx) error { return tx.DeleteCursor(ctx, feed) })
}

// storeTx records which tables it wrote so the commit can notify subscribers.
type storeTx struct {
	tx      *sql.Tx
	now     func() time.Time
	touched map[string]struct{}
}

func (t *storeTx) touch(table string) {
	t.touched[table] = struct{}{}
}

func (t *storeTx) UpsertMany(ctx context.Context, notes []models.Note) error {
	if len(notes) == 0 {
		return nil
	}
	if err := upsertNotes(ctx, t.tx, notes); err != nil {
		return storeErr("upsert", err)
	}
	t.touch(TableNotes)
	return nil
}

func (t *storeTx) Clear(ctx context.Context) error {
	if err := clearNotes(ctx, t.tx); err != nil {
		return storeErr("clear", err)
	}
	t.touch(TableNotes)
	return nil
}

func (t *storeTx) DeleteByID(ctx context.Context, id int64) error {
	deleted, err := deleteNote(ctx, t.tx, id)
	if err != nil {
		return storeErr("delete", err)
	}
	if deleted {
		t.touch(TableNotes)
	}
	return nil
}

func (t *storeTx) PruneExcept(ctx context.Context, ids []int64) (int64, error) {
	removed, err := pruneNotes(ctx, t.tx, ids)
	if err != nil {
		return 0, storeErr("prune", err)
	}
	if removed > 0 {
		t.touch(TableNotes)
	}
	return removed, nil
}

func (t *storeTx) GetCursor(ctx context.Context, feed string) (*models.FeedCursor, error) {
	cursor, err := getCursor(ctx, t.tx, feed)
	return cursor, storeErr("get cursor", err)
}

func (t *storeTx) PutCursor(ctx context.Context, feed string, cursor *string) error {
	if err := putCursor(ctx, t.tx, feed, cursor, t.now()); err != nil {
		return storeErr("put cursor", err)
	}
	t.touch(TableFeedCursors)
	return nil
}

func (t *storeTx) DeleteCursor(ctx context.Context, feed string) error {
	if err := deleteCursor(ctx, t.tx, feed); err != nil {
		return storeErr("delete cursor", err)
	}
	t.touch(TableFeedCursors)
	return nil
}
