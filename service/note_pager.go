// ABOUTME: Read-side paged view over the local note store
// ABOUTME: Grows its window from the store first and asks the mediator for more only when the store runs out

package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"note-sync/models"
	"note-sync/repository"
)

// PageLoader runs mediator loads. *RemoteMediator implements it.
type PageLoader interface {
	Load(ctx context.Context, feed string, loadType models.LoadType, pageSize int) MediatorResult
}

// PagerConfig configures a NotePager.
type PagerConfig struct {
	Feed     string
	PageSize int
	// PrefetchDistance is how close to the end of the window a read must be to
	// grow it. Zero means only the last item triggers growth.
	PrefetchDistance int
	// IncludePending also shows notes whose summary or sentiment is not computed yet.
	IncludePending     bool
	SkipInitialRefresh bool
}

// PagerSnapshot is an immutable view of the pager state.
type PagerSnapshot struct {
	Items []models.Note
	// Placeholders counts not-yet-known slots after Items while an append is loading.
	Placeholders           int
	Refresh                models.LoadState
	Append                 models.LoadState
	EndOfPaginationReached bool
}

// Size is the number of addressable slots, placeholders included.
func (s PagerSnapshot) Size() int {
	return len(s.Items) + s.Placeholders
}

// NotePager exposes the store as a stably ordered, lazily growing window.
type NotePager struct {
	store  repository.NoteStore
	loader PageLoader
	cfg    PagerConfig
	logger *slog.Logger

	updates chan PagerSnapshot
	kick    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	queryMu sync.Mutex

	mu             sync.Mutex
	started        bool
	closed         bool
	items          []models.Note
	window         int
	storeExhausted bool
	refreshState   models.LoadState
	appendState    models.LoadState
	endReached     bool
	appendBoundary int
	refreshPending bool
	unsubscribe    func()
}

// NewNotePager creates a pager; call Start to begin observing the store.
func NewNotePager(store repository.NoteStore, loader PageLoader, cfg PagerConfig, logger *slog.Logger) *NotePager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Feed == "" {
		cfg.Feed = models.DefaultFeed
	}
	cfg.PageSize = clampPageSize(cfg.PageSize)
	if cfg.PrefetchDistance < 0 {
		cfg.PrefetchDistance = cfg.PageSize
	}

	return &NotePager{
		store:          store,
		loader:         loader,
		cfg:            cfg,
		logger:         logger,
		updates:        make(chan PagerSnapshot, 1),
		kick:           make(chan struct{}, 1),
		done:           make(chan struct{}),
		window:         initialWindow(cfg.PageSize),
		refreshState:   models.Idle(),
		appendState:    models.Idle(),
		appendBoundary: -1,
	}
}

func initialWindow(pageSize int) int {
	return 3 * pageSize
}

// Start loads the first window, subscribes to store changes and, unless
// SkipInitialRefresh is set, refreshes the feed from the network.
func (p *NotePager) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return errors.New("pager already started")
	}
	p.started = true
	p.mu.Unlock()

	changes, unsubscribe := p.store.Subscribe(repository.TableNotes)
	p.mu.Lock()
	p.unsubscribe = unsubscribe
	p.mu.Unlock()

	if err := p.requery(ctx); err != nil {
		unsubscribe()
		return err
	}

	p.wg.Add(1)
	go p.watch(changes)

	if !p.cfg.SkipInitialRefresh {
		p.Refresh()
	}
	return nil
}

// watch re-materializes the window after every committed store change and every growth request.
func (p *NotePager) watch(changes <-chan struct{}) {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
		case <-p.kick:
		}
		if err := p.requery(context.Background()); err != nil {
			p.logger.Error("Failed to re-query notes window",
				"feed", p.cfg.Feed,
				"error", err)
		}
	}
}

func (p *NotePager) requery(ctx context.Context) error {
	p.queryMu.Lock()
	defer p.queryMu.Unlock()

	p.mu.Lock()
	window := p.window
	p.mu.Unlock()

	notes, err := p.store.Query(ctx, repository.QueryOptions{
		EnrichedOnly: !p.cfg.IncludePending,
		Limit:        window,
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.items = notes
	p.storeExhausted = len(notes) < window
	p.publishLocked()
	return nil
}

// ItemAt returns the note at index i, or false when the slot is not known yet.
// Reading near the end of the window grows it from the store, and once the
// store is exhausted issues one Append per boundary.
func (p *NotePager) ItemAt(i int) (*models.Note, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || p.closed {
		return nil, false
	}

	if i >= len(p.items)-1-p.cfg.PrefetchDistance {
		p.growLocked()
	}

	if i >= len(p.items) {
		return nil, false
	}
	note := p.items[i]
	return &note, true
}

func (p *NotePager) growLocked() {
	if !p.storeExhausted {
		// a growth request is already pending until the window is filled
		if len(p.items) < p.window {
			return
		}
		p.window += p.cfg.PageSize
		select {
		case p.kick <- struct{}{}:
		default:
		}
		return
	}

	if p.endReached || p.appendState.Status != models.LoadIdle || p.refreshState.Status == models.LoadLoading {
		return
	}
	if p.appendBoundary == len(p.items) {
		return
	}
	p.appendBoundary = len(p.items)
	p.startLoadLocked(models.LoadAppend)
}

// Snapshot returns the current state.
func (p *NotePager) Snapshot() PagerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Updates delivers the latest snapshot after every change; intermediate snapshots may be dropped.
func (p *NotePager) Updates() <-chan PagerSnapshot {
	return p.updates
}

// Refresh restarts the feed from the network. It is a no-op while a refresh is
// loading and is deferred until a loading append has finished.
func (p *NotePager) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.refreshState.Status == models.LoadLoading {
		return
	}
	if p.appendState.Status == models.LoadLoading {
		p.refreshPending = true
		p.logger.Info("Refresh deferred until append completes", "feed", p.cfg.Feed)
		return
	}
	p.startLoadLocked(models.LoadRefresh)
}

// Retry reissues every load whose boundary is in the error state.
func (p *NotePager) Retry() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.refreshState.Status == models.LoadFailed {
		p.startLoadLocked(models.LoadRefresh)
	}
	if p.appendState.Status == models.LoadFailed {
		p.startLoadLocked(models.LoadAppend)
	}
}

// Close stops observing the store. Loads already started still commit; only
// their state updates are dropped.
func (p *NotePager) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	unsubscribe := p.unsubscribe
	close(p.done)
	p.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	p.wg.Wait()
}

func (p *NotePager) startLoadLocked(loadType models.LoadType) {
	p.setStateLocked(loadType, models.Loading())
	p.publishLocked()

	go p.runLoad(loadType)
}

func (p *NotePager) runLoad(loadType models.LoadType) {
	result := p.loader.Load(context.Background(), p.cfg.Feed, loadType, p.cfg.PageSize)

	if result.Success() {
		p.mu.Lock()
		if loadType == models.LoadRefresh {
			p.window = initialWindow(p.cfg.PageSize)
			p.appendBoundary = -1
		} else {
			p.window = max(p.window, len(p.items)+p.cfg.PageSize)
		}
		p.mu.Unlock()

		// materialize the committed page before the boundary goes idle so a
		// read at the old boundary cannot trigger another append
		if err := p.requery(context.Background()); err != nil {
			p.logger.Error("Failed to re-query notes after load",
				"feed", p.cfg.Feed,
				"load_type", loadType.String(),
				"error", err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	switch {
	case result.Skipped:
		p.logger.Info("Load skipped, feed busy",
			"feed", p.cfg.Feed,
			"load_type", loadType.String())
		p.setStateLocked(loadType, models.Idle())
		if loadType == models.LoadAppend {
			p.appendBoundary = -1
		}
	case result.Err != nil:
		p.setStateLocked(loadType, models.Failed(result.Err))
	default:
		p.setStateLocked(loadType, models.Idle())
		if loadType == models.LoadRefresh {
			p.endReached = result.EndOfPaginationReached
		} else {
			p.endReached = p.endReached || result.EndOfPaginationReached
			if !result.EndOfPaginationReached {
				// the next read at this boundary may append again
				p.appendBoundary = -1
			}
		}
	}

	if loadType == models.LoadAppend && p.refreshPending && p.refreshState.Status != models.LoadLoading {
		p.refreshPending = false
		p.startLoadLocked(models.LoadRefresh)
		return
	}
	p.publishLocked()
}

func (p *NotePager) setStateLocked(loadType models.LoadType, state models.LoadState) {
	if loadType == models.LoadRefresh {
		p.refreshState = state
		return
	}
	p.appendState = state
}

func (p *NotePager) snapshotLocked() PagerSnapshot {
	items := make([]models.Note, len(p.items))
	copy(items, p.items)

	snapshot := PagerSnapshot{
		Items:                  items,
		Refresh:                p.refreshState,
		Append:                 p.appendState,
		EndOfPaginationReached: p.endReached,
	}
	if p.appendState.Status == models.LoadLoading {
		snapshot.Placeholders = p.cfg.PageSize
	}
	return snapshot
}

// publishLocked replaces any unread snapshot with the current one.
func (p *NotePager) publishLocked() {
	snapshot := p.snapshotLocked()
	select {
	case <-p.updates:
	default:
	}
	select {
	case p.updates <- snapshot:
	default:
	}
}
