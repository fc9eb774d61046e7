package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/spacelproject/admin-spacel-sub001/internal/metrics"
	"github.com/spacelproject/admin-spacel-sub001/internal/pkg/eventbus"
)

// Update is published after every aggregation pass. Err is set when the pass
// failed; Events is then nil and the feed keeps its previous list.
type Update struct {
	ViewerID string
	Events   []domain.ActivityEvent
	Err      error
}

// Service is the activity feed surface used by the HTTP layer. Methods that
// need a feed open one on first use.
type Service interface {
	Open(ctx context.Context, viewerID string) (domain.WindowView, error)
	Close(viewerID string)
	Window(ctx context.Context, viewerID string) (domain.WindowView, error)
	LoadMore(ctx context.Context, viewerID string) (domain.WindowView, error)
	Refresh(ctx context.Context, viewerID string) (domain.WindowView, error)
	MarkRead(ctx context.Context, viewerID, eventID string) error
	MarkAllRead(ctx context.Context, viewerID string) error
	UnreadCount(ctx context.Context, viewerID string) (int, error)
	// Watch signals whenever the viewer's feed finishes a pass, failed ones
	// included. The returned func stops the signal and must be called.
	Watch(viewerID string) (<-chan struct{}, func())
}

// HubOptions configures the feeds a Hub creates.
type HubOptions struct {
	Connectors []Connector
	Tracker    ReadTracker
	Changes    ChangeFeed
	Settings   Settings
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Bus        *eventbus.Bus[Update]
}

// Hub keeps one Feed per viewer.
type Hub struct {
	opts HubOptions
	bus  *eventbus.Bus[Update]

	mu    sync.Mutex
	feeds map[string]*Feed
}

func NewHub(opts HubOptions) *Hub {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	bus := opts.Bus
	if bus == nil {
		bus = eventbus.New[Update]()
	}
	return &Hub{opts: opts, bus: bus, feeds: make(map[string]*Feed)}
}

// Updates returns the bus every completed pass is published on.
func (h *Hub) Updates() *eventbus.Bus[Update] { return h.bus }

func (h *Hub) newFeed(viewerID string) *Feed {
	return NewFeed(FeedOptions{
		ViewerID:   viewerID,
		Connectors: h.opts.Connectors,
		Tracker:    h.opts.Tracker,
		Changes:    h.opts.Changes,
		Settings:   h.opts.Settings,
		Logger:     h.opts.Logger,
		Metrics:    h.opts.Metrics,
		OnUpdate: func(viewerID string, events []domain.ActivityEvent) {
			h.bus.Publish(Update{ViewerID: viewerID, Events: events})
		},
		OnFailure: func(viewerID string, err error) {
			h.bus.Publish(Update{ViewerID: viewerID, Err: err})
		},
	})
}

// lookup returns the viewer's feed, creating it when none exists.
func (h *Hub) lookup(viewerID string) (*Feed, bool, error) {
	if strings.TrimSpace(viewerID) == "" {
		return nil, false, fmt.Errorf("%w: missing viewer", domain.ErrBadRequest)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if f, ok := h.feeds[viewerID]; ok {
		return f, false, nil
	}
	f := h.newFeed(viewerID)
	h.feeds[viewerID] = f
	h.opts.Metrics.FeedOpened()
	return f, true, nil
}

// feed returns the viewer's feed, opening a new one on first use. Callers
// racing the first open wait for its pass.
func (h *Hub) feed(ctx context.Context, viewerID string) (*Feed, error) {
	f, created, err := h.lookup(viewerID)
	if err != nil {
		return nil, err
	}
	if created {
		f.Open(ctx)
	} else {
		f.awaitOpen(ctx)
	}
	return f, nil
}

// Open resets the viewer's window and runs a fresh pass.
func (h *Hub) Open(ctx context.Context, viewerID string) (domain.WindowView, error) {
	f, _, err := h.lookup(viewerID)
	if err != nil {
		return domain.WindowView{}, err
	}
	f.Open(ctx)
	return f.Window(ctx), nil
}

func (h *Hub) Close(viewerID string) {
	h.mu.Lock()
	f, ok := h.feeds[viewerID]
	delete(h.feeds, viewerID)
	h.mu.Unlock()
	if ok {
		f.Close()
		h.opts.Metrics.FeedClosed()
	}
}

func (h *Hub) Window(ctx context.Context, viewerID string) (domain.WindowView, error) {
	f, err := h.feed(ctx, viewerID)
	if err != nil {
		return domain.WindowView{}, err
	}
	return f.Window(ctx), nil
}

func (h *Hub) LoadMore(ctx context.Context, viewerID string) (domain.WindowView, error) {
	f, err := h.feed(ctx, viewerID)
	if err != nil {
		return domain.WindowView{}, err
	}
	f.LoadMore(ctx)
	return f.Window(ctx), nil
}

// Refresh forces a pass. An aggregation failure is reported in the view, not
// as an error.
func (h *Hub) Refresh(ctx context.Context, viewerID string) (domain.WindowView, error) {
	f, err := h.feed(ctx, viewerID)
	if err != nil {
		return domain.WindowView{}, err
	}
	_ = f.Refresh(ctx)
	return f.Window(ctx), nil
}

func (h *Hub) MarkRead(ctx context.Context, viewerID, eventID string) error {
	if strings.TrimSpace(eventID) == "" {
		return fmt.Errorf("%w: missing event id", domain.ErrBadRequest)
	}
	f, err := h.feed(ctx, viewerID)
	if err != nil {
		return err
	}
	return f.MarkRead(ctx, eventID)
}

func (h *Hub) MarkAllRead(ctx context.Context, viewerID string) error {
	f, err := h.feed(ctx, viewerID)
	if err != nil {
		return err
	}
	return f.MarkAllRead(ctx)
}

func (h *Hub) UnreadCount(ctx context.Context, viewerID string) (int, error) {
	f, err := h.feed(ctx, viewerID)
	if err != nil {
		return 0, err
	}
	return f.UnreadCount(ctx), nil
}

func (h *Hub) Watch(viewerID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	unsubscribe := h.bus.Subscribe(func(u Update) {
		if u.ViewerID != viewerID {
			return
		}
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	return ch, unsubscribe
}

// Nudge schedules a background pass for the viewer's feed, if one is open.
// Writes that no change feed observes, such as stored notifications, use it.
func (h *Hub) Nudge(viewerID string) {
	h.mu.Lock()
	f, ok := h.feeds[viewerID]
	h.mu.Unlock()
	if ok {
		f.Nudge()
	}
}

// Shutdown closes every open feed.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	feeds := h.feeds
	h.feeds = make(map[string]*Feed)
	h.mu.Unlock()
	for _, f := range feeds {
		f.Close()
		h.opts.Metrics.FeedClosed()
	}
}

var _ Service = (*Hub)(nil)
