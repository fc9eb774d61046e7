package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/spacelproject/admin-spacel-sub001/internal/metrics"
)

// refreshFailedMessage is what consumers see when the last pass failed.
const refreshFailedMessage = "failed to refresh"

// ReadTracker overlays and records per-viewer read state.
type ReadTracker interface {
	Overlay(ctx context.Context, viewerID string, events []domain.ActivityEvent) []domain.FeedItem
	MarkRead(ctx context.Context, viewerID, eventID string) error
	MarkAllRead(ctx context.Context, viewerID string, events []domain.ActivityEvent) error
}

// Settings are the feed's tuning knobs.
type Settings struct {
	InitialWindow   int
	WindowIncrement int
	SourceLimit     int
	LoadMoreDelay   time.Duration
	RefreshDebounce time.Duration
	// PassTimeout bounds a background re-aggregation. Zero means unbounded.
	PassTimeout time.Duration
}

// FeedOptions wires a Feed to its collaborators. Changes may be nil, in
// which case the feed is pull-only.
type FeedOptions struct {
	ViewerID   string
	Connectors []Connector
	Tracker    ReadTracker
	Changes    ChangeFeed
	Settings   Settings
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	// OnUpdate is called with the full list after every successful pass.
	OnUpdate func(viewerID string, events []domain.ActivityEvent)
	// OnFailure is called after every failed pass.
	OnFailure func(viewerID string, err error)
}

// Feed is one viewer's aggregated activity feed.
type Feed struct {
	viewerID   string
	connectors []Connector
	tracker    ReadTracker
	changes    ChangeFeed
	settings   Settings
	logger     *slog.Logger
	metrics    *metrics.Metrics
	onUpdate   func(string, []domain.ActivityEvent)
	onFailure  func(string, error)

	window *Window
	merge  func(lists ...[]domain.ActivityEvent) []domain.ActivityEvent

	// passMu serializes aggregation passes.
	passMu sync.Mutex

	// ready is closed once the first Open has finished its pass.
	ready     chan struct{}
	readyOnce sync.Once
	// background tracks nudged passes of a pull-only feed.
	background sync.WaitGroup

	mu          sync.RWMutex
	lastErr     error
	refreshedAt time.Time
	listener    *Listener
	debouncer   *Debouncer
	closed      bool
}

func NewFeed(opts FeedOptions) *Feed {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := opts.Settings
	if s.SourceLimit < 1 {
		s.SourceLimit = DefaultSourceLimit
	}
	if s.RefreshDebounce <= 0 {
		s.RefreshDebounce = 500 * time.Millisecond
	}
	return &Feed{
		viewerID:   opts.ViewerID,
		connectors: opts.Connectors,
		tracker:    opts.Tracker,
		changes:    opts.Changes,
		settings:   s,
		logger:     logger.With("viewer_id", opts.ViewerID),
		metrics:    opts.Metrics,
		onUpdate:   opts.OnUpdate,
		onFailure:  opts.OnFailure,
		window:     NewWindow(s.InitialWindow, s.WindowIncrement, s.LoadMoreDelay),
		merge:      Merge,
		ready:      make(chan struct{}),
	}
}

// Open resets the window, runs a full pass and starts listening for changes.
// A failed pass or subscription leaves the feed usable: the former is
// reported through Window, the latter makes the feed pull-only.
func (f *Feed) Open(ctx context.Context) {
	f.window.Reset()
	f.mu.Lock()
	f.lastErr = nil
	f.refreshedAt = time.Time{}
	f.mu.Unlock()

	_ = f.Refresh(ctx)
	f.listen()
	f.readyOnce.Do(func() { close(f.ready) })
}

// awaitOpen blocks until the first Open has finished or ctx is done.
func (f *Feed) awaitOpen(ctx context.Context) {
	select {
	case <-f.ready:
	case <-ctx.Done():
	}
}

// Nudge schedules a background pass. A live feed coalesces it with change
// signals; a pull-only feed runs it directly. Close waits for either.
func (f *Feed) Nudge() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if f.debouncer != nil {
		f.debouncer.Trigger()
		return
	}
	f.background.Add(1)
	go func() {
		defer f.background.Done()
		f.refreshInBackground()
	}()
}

func (f *Feed) listen() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.listener != nil || f.changes == nil {
		return
	}
	d := NewDebouncer(f.settings.RefreshDebounce, f.refreshInBackground)
	l, err := Listen(f.changes, WatchedTables(f.connectors), d.Trigger)
	if err != nil {
		f.logger.Warn("activity_feed_pull_only", "error", err)
		return
	}
	f.listener = l
	f.debouncer = d
	f.metrics.SubscriptionStarted()
}

func (f *Feed) refreshInBackground() {
	ctx := context.Background()
	if f.settings.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.settings.PassTimeout)
		defer cancel()
	}
	_ = f.Refresh(ctx)
}

// Refresh runs a full aggregation pass. On failure the previous list stays in
// place and the error is kept for Window to report.
func (f *Feed) Refresh(ctx context.Context) error {
	f.passMu.Lock()
	defer f.passMu.Unlock()

	start := time.Now()
	events, err := f.aggregate(ctx)
	if err != nil {
		f.mu.Lock()
		f.lastErr = err
		f.mu.Unlock()
		f.metrics.PassFailed()
		f.logger.Error("activity_aggregation_failed", "error", err)
		if f.onFailure != nil {
			f.onFailure(f.viewerID, err)
		}
		return err
	}

	f.window.Replace(events)
	f.mu.Lock()
	f.lastErr = nil
	f.refreshedAt = time.Now().UTC()
	f.mu.Unlock()
	f.metrics.PassCompleted(time.Since(start), len(events))

	if f.onUpdate != nil {
		f.onUpdate(f.viewerID, events)
	}
	return nil
}

func (f *Feed) aggregate(ctx context.Context) (events []domain.ActivityEvent, err error) {
	results := Gather(ctx, f.connectors, f.settings.SourceLimit, domain.SourceFilter{ViewerID: f.viewerID})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAggregation, err)
	}
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = fmt.Errorf("%w: %v", domain.ErrAggregation, r)
		}
	}()
	return f.merge(results...), nil
}

// Window returns the visible slice with read state overlaid.
func (f *Feed) Window(ctx context.Context) domain.WindowView {
	snap := f.window.Snapshot()
	view := domain.WindowView{
		Events:       f.tracker.Overlay(ctx, f.viewerID, snap.Visible),
		TotalCount:   snap.TotalCount,
		DisplayCount: snap.DisplayCount,
		HasMore:      snap.HasMore,
		Loading:      snap.Loading,
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	view.Live = f.listener != nil
	if !f.refreshedAt.IsZero() {
		at := f.refreshedAt
		view.RefreshedAt = &at
	}
	if f.lastErr != nil {
		view.Error = refreshFailedMessage
	}
	return view
}

// LoadMore grows the window; see Window.LoadMore.
func (f *Feed) LoadMore(ctx context.Context) bool {
	return f.window.LoadMore(ctx)
}

func (f *Feed) MarkRead(ctx context.Context, eventID string) error {
	return f.tracker.MarkRead(ctx, f.viewerID, eventID)
}

// MarkAllRead marks every event of the current full list, not only the
// visible ones.
func (f *Feed) MarkAllRead(ctx context.Context) error {
	return f.tracker.MarkAllRead(ctx, f.viewerID, f.window.Snapshot().All)
}

// UnreadCount counts unread events across the full list.
func (f *Feed) UnreadCount(ctx context.Context) int {
	n := 0
	for _, item := range f.tracker.Overlay(ctx, f.viewerID, f.window.Snapshot().All) {
		if !item.Read {
			n++
		}
	}
	return n
}

// Live reports whether the feed holds a change subscription.
func (f *Feed) Live() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.listener != nil
}

// Close releases the change subscriptions and waits for running background
// passes, nudged ones included. It is idempotent.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	l, d := f.listener, f.debouncer
	f.listener, f.debouncer = nil, nil
	f.mu.Unlock()

	if l != nil {
		l.Release()
		d.Stop()
		f.metrics.SubscriptionReleased()
	}
	f.background.Wait()
}
