// ABOUTME: Backfills the local note store from the paged notes API, one feed at a time
// ABOUTME: Items and the feed cursor are committed together; a NULL cursor ends pagination for good

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"note-sync/config"
	"note-sync/driver"
	"note-sync/models"
	"note-sync/repository"
	"note-sync/utils"
)

// ErrLoadInFlight is reported when a feed already has a load running.
var ErrLoadInFlight = errors.New("a load is already in flight for this feed")

// LoadErrorKind classifies a failed load.
type LoadErrorKind int

const (
	LoadErrorNetwork LoadErrorKind = iota
	LoadErrorAuth
	LoadErrorStorage
)

func (k LoadErrorKind) String() string {
	switch k {
	case LoadErrorNetwork:
		return "network"
	case LoadErrorAuth:
		return "auth"
	case LoadErrorStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// LoadError is the typed failure of one mediator load, scoped to its direction.
type LoadError struct {
	Kind     LoadErrorKind
	LoadType models.LoadType
	Feed     string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s load of feed %q failed (%s): %v", e.LoadType, e.Feed, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ClassifyLoadError maps any error onto exactly one LoadErrorKind.
func ClassifyLoadError(err error) LoadErrorKind {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Kind
	}
	if driver.IsAuthError(err) {
		return LoadErrorAuth
	}
	var storeErr *repository.StoreError
	if errors.As(err, &storeErr) {
		return LoadErrorStorage
	}
	return LoadErrorNetwork
}

// MediatorResult is the outcome of one Load call.
type MediatorResult struct {
	EndOfPaginationReached bool
	// Skipped is set when the load was rejected because another one was in flight.
	Skipped bool
	Err     error
}

// Success reports whether the load completed without error.
func (r MediatorResult) Success() bool {
	return r.Err == nil && !r.Skipped
}

// RemoteMediator orchestrates paged backfill of the note store.
type RemoteMediator struct {
	store  repository.NoteStore
	remote RemoteSource
	order  string
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewRemoteMediator creates a mediator. order is passed through to the list endpoint.
func NewRemoteMediator(store repository.NoteStore, remote RemoteSource, order string, logger *slog.Logger) *RemoteMediator {
	if logger == nil {
		logger = slog.Default()
	}
	if order == "" {
		order = "desc"
	}
	return &RemoteMediator{
		store:    store,
		remote:   remote,
		order:    order,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// Load runs one load of loadType for feed. It never panics on remote or store
// failures; they come back as a *LoadError in the result. The load is detached
// from ctx cancellation so a started fetch always commits.
func (m *RemoteMediator) Load(ctx context.Context, feed string, loadType models.LoadType, pageSize int) MediatorResult {
	if feed == "" {
		feed = models.DefaultFeed
	}
	start := time.Now()

	if loadType == models.LoadPrepend {
		// the feed only grows toward older items
		utils.RecordMediatorLoad(feed, loadType.String(), "end_reached", time.Since(start).Seconds())
		return MediatorResult{EndOfPaginationReached: true}
	}

	if !m.acquire(feed) {
		m.logger.Debug("Rejected load, feed already loading",
			"feed", feed,
			"load_type", loadType.String())
		utils.RecordMediatorLoad(feed, loadType.String(), "skipped", time.Since(start).Seconds())
		return MediatorResult{Skipped: true, Err: ErrLoadInFlight}
	}
	defer m.release(feed)

	result := m.load(context.WithoutCancel(ctx), feed, loadType, pageSize)

	outcome := "success"
	switch {
	case result.Err != nil:
		outcome = "error"
	case result.EndOfPaginationReached:
		outcome = "end_reached"
	}
	utils.RecordMediatorLoad(feed, loadType.String(), outcome, time.Since(start).Seconds())

	return result
}

// InFlight reports whether feed currently has a load running.
func (m *RemoteMediator) InFlight(feed string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inFlight[feed]
	return ok
}

func (m *RemoteMediator) acquire(feed string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inFlight[feed]; busy {
		return false
	}
	m.inFlight[feed] = struct{}{}
	return true
}

func (m *RemoteMediator) release(feed string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, feed)
}

func (m *RemoteMediator) load(ctx context.Context, feed string, loadType models.LoadType, pageSize int) MediatorResult {
	fail := func(err error) MediatorResult {
		loadErr := &LoadError{
			Kind:     ClassifyLoadError(err),
			LoadType: loadType,
			Feed:     feed,
			Err:      err,
		}
		m.logger.Error("Mediator load failed",
			"feed", feed,
			"load_type", loadType.String(),
			"error_kind", loadErr.Kind.String(),
			"error", err)
		return MediatorResult{Err: loadErr}
	}

	var cursor *string
	if loadType == models.LoadAppend {
		stored, err := m.store.GetCursor(ctx, feed)
		switch {
		case errors.Is(err, repository.ErrCursorNotFound):
			// nothing synced yet: start from the first page without clearing
		case err != nil:
			return fail(err)
		case stored.EndOfPagination():
			m.logger.Debug("Feed fully paged, skipping network",
				"feed", feed)
			return MediatorResult{EndOfPaginationReached: true}
		default:
			cursor = stored.NextCursor
		}
	}

	limit := clampPageSize(pageSize)
	page, err := m.remote.ListNotes(ctx, limit, cursor, m.order)
	if err != nil {
		return fail(err)
	}

	notes := models.NotesFromDTOs(page.Items)
	err = m.store.RunAtomic(ctx, func(tx repository.Tx) error {
		if loadType == models.LoadRefresh {
			if err := tx.Clear(ctx); err != nil {
				return err
			}
			if err := tx.DeleteCursor(ctx, feed); err != nil {
				return err
			}
		}
		if err := tx.UpsertMany(ctx, notes); err != nil {
			return err
		}
		return tx.PutCursor(ctx, feed, page.NextCursor)
	})
	if err != nil {
		return fail(err)
	}

	utils.RecordItemsStored(feed, len(notes))
	m.logger.Info("Mediator load committed",
		"feed", feed,
		"load_type", loadType.String(),
		"item_count", len(notes),
		"had_cursor", cursor != nil,
		"has_cursor", page.NextCursor != nil)

	return MediatorResult{EndOfPaginationReached: page.NextCursor == nil}
}

// clampPageSize bounds every list request to [1, config.MaxPageSize].
func clampPageSize(pageSize int) int {
	if pageSize < 1 {
		return 1
	}
	return min(pageSize, config.MaxPageSize)
}
