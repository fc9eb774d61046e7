package activity

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- read tracker fake ---

type memTracker struct {
	mu   sync.Mutex
	read map[string]map[string]bool
}

func newMemTracker() *memTracker {
	return &memTracker{read: map[string]map[string]bool{}}
}

func (m *memTracker) Overlay(_ context.Context, viewerID string, events []domain.ActivityEvent) []domain.FeedItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.FeedItem, len(events))
	for i, e := range events {
		out[i] = domain.FeedItem{ActivityEvent: e, Read: m.read[viewerID][e.ID]}
	}
	return out
}

func (m *memTracker) MarkRead(_ context.Context, viewerID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.read[viewerID] == nil {
		m.read[viewerID] = map[string]bool{}
	}
	m.read[viewerID][eventID] = true
	return nil
}

func (m *memTracker) MarkAllRead(ctx context.Context, viewerID string, events []domain.ActivityEvent) error {
	for _, e := range events {
		_ = m.MarkRead(ctx, viewerID, e.ID)
	}
	return nil
}

func newTestFeed(connectors []Connector, changes ChangeFeed) *Feed {
	return NewFeed(FeedOptions{
		ViewerID:   "admin-1",
		Connectors: connectors,
		Tracker:    newMemTracker(),
		Changes:    changes,
		Settings:   Settings{InitialWindow: 20, WindowIncrement: 20, RefreshDebounce: 10 * time.Millisecond},
		Logger:     discardLogger(),
	})
}

// marketplaceQuerier answers every connector query with one row, except for
// the sources listed in failing.
func marketplaceQuerier(failing ...string) *fakeQuerier {
	fail := map[string]bool{}
	for _, s := range failing {
		fail[s] = true
	}
	var mu sync.Mutex
	step := 0
	at := func() *time.Time {
		mu.Lock()
		defer mu.Unlock()
		step++
		ts := t0.Add(time.Duration(step) * time.Minute)
		return &ts
	}
	return &fakeQuerier{fill: func(q domain.Query, dest any) error {
		if fail[q.Source] {
			return fmt.Errorf("relation %q: %w", q.Source, domain.ErrSourceUnavailable)
		}
		id := uuid.New()
		switch rows := dest.(type) {
		case *[]RegistrationRow:
			*rows = []RegistrationRow{{ID: id, Role: "seeker", CreatedAt: at()}}
		case *[]BookingRow:
			*rows = []BookingRow{{ID: id, Status: "pending", CreatedAt: at()}}
		case *[]ListingRow:
			*rows = []ListingRow{{ID: id, Status: "pending", CreatedAt: at()}}
		case *[]ReviewRow:
			*rows = []ReviewRow{{ID: id, Rating: 4, CreatedAt: at()}}
		case *[]PaymentRow:
			*rows = []PaymentRow{{ID: id, Status: "succeeded", Amount: 1000, CreatedAt: at()}}
		case *[]SupportTicketRow:
			*rows = []SupportTicketRow{{ID: id, Status: "open", CreatedAt: at()}}
		case *[]BookingModificationRow:
			*rows = []BookingModificationRow{{ID: id, Status: "pending", CreatedAt: at()}}
		case *[]ConversationRow:
			*rows = []ConversationRow{{ID: id, CreatedAt: at()}}
		case *[]FavoriteRow:
			*rows = []FavoriteRow{{ID: id, CreatedAt: at()}}
		case *[]AnnouncementRow:
			*rows = []AnnouncementRow{{ID: id, Status: "published", CreatedAt: at()}}
		case *[]ModerationRow:
			*rows = []ModerationRow{{ID: id, Action: "warn", CreatedAt: at()}}
		case *[]UserStatusChangeRow:
			*rows = []UserStatusChangeRow{{ID: id, NewStatus: "active", CreatedAt: at()}}
		case *[]PayoutRequestRow:
			*rows = []PayoutRequestRow{{ID: id, Status: "pending", CreatedAt: at()}}
		case *[]RefundRow:
			*rows = []RefundRow{{ID: id, Status: "pending", CreatedAt: at()}}
		default:
			return fmt.Errorf("unexpected dest %T", dest)
		}
		return nil
	}}
}

func TestFeed_OneFailingSourceKeepsTheRest(t *testing.T) {
	q := marketplaceQuerier("support_tickets")
	f := newTestFeed(Sources(SourceOptions{Querier: &lockedQuerier{q: q}, Logger: discardLogger()}), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.Refresh(ctx))
	}
	view := f.Window(ctx)

	assert.Empty(t, view.Error)
	assert.Equal(t, 13, view.TotalCount)
	categories := map[domain.Category]bool{}
	for i, item := range view.Events {
		categories[item.Category] = true
		if i > 0 {
			assert.False(t, view.Events[i-1].Timestamp.Before(item.Timestamp))
		}
	}
	assert.Len(t, categories, 13)
	assert.False(t, categories[domain.CategorySupportTicket])
}

// lockedQuerier serializes the fake for concurrent connectors.
type lockedQuerier struct {
	mu sync.Mutex
	q  *fakeQuerier
}

func (l *lockedQuerier) Query(ctx context.Context, q domain.Query, dest any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.Query(ctx, q, dest)
}

func TestFeed_AggregationFailureKeepsLastWindow(t *testing.T) {
	src := &fakeConnector{name: "bookings", events: eventsN(5)}
	f := newTestFeed([]Connector{src}, nil)
	ctx := context.Background()
	require.NoError(t, f.Refresh(ctx))

	f.merge = func(...[]domain.ActivityEvent) []domain.ActivityEvent { panic("merge bug") }
	err := f.Refresh(ctx)

	require.ErrorIs(t, err, domain.ErrAggregation)
	view := f.Window(ctx)
	assert.Equal(t, refreshFailedMessage, view.Error)
	assert.Equal(t, 5, view.TotalCount)
	assert.Len(t, view.Events, 5)

	f.merge = Merge
	require.NoError(t, f.Refresh(ctx))
	assert.Empty(t, f.Window(ctx).Error)
}

func TestFeed_CancelledPassKeepsLastWindow(t *testing.T) {
	f := newTestFeed([]Connector{&fakeConnector{name: "bookings", events: eventsN(3)}}, nil)
	require.NoError(t, f.Refresh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, f.Refresh(ctx))
	assert.Equal(t, 3, f.Window(context.Background()).TotalCount)
}

func TestFeed_ReadStateSurvivesRefresh(t *testing.T) {
	events := eventsN(3)
	f := newTestFeed([]Connector{&fakeConnector{name: "bookings", events: events}}, nil)
	ctx := context.Background()
	f.Open(ctx)

	require.NoError(t, f.MarkRead(ctx, events[1].ID))
	require.NoError(t, f.Refresh(ctx))

	view := f.Window(ctx)
	require.Len(t, view.Events, 3)
	assert.False(t, view.Events[0].Read)
	assert.True(t, view.Events[1].Read)
	assert.Equal(t, 2, f.UnreadCount(ctx))

	require.NoError(t, f.MarkAllRead(ctx))
	assert.Zero(t, f.UnreadCount(ctx))
}

func TestFeed_MarkAllReadCoversHiddenEvents(t *testing.T) {
	f := newTestFeed([]Connector{&fakeConnector{name: "bookings", events: eventsN(45)}}, nil)
	ctx := context.Background()
	f.Open(ctx)
	require.Len(t, f.Window(ctx).Events, 20)

	require.NoError(t, f.MarkAllRead(ctx))
	assert.Zero(t, f.UnreadCount(ctx))
}

func TestFeed_LiveChangeTriggersRefresh(t *testing.T) {
	changes := &fakeChangeFeed{}
	src := &fakeConnector{name: "bookings", tables: []string{"bookings"}, events: eventsN(2)}
	f := newTestFeed([]Connector{src}, changes)
	ctx := context.Background()
	f.Open(ctx)
	defer f.Close()

	require.True(t, f.Window(ctx).Live)
	require.Equal(t, int32(1), src.calls.Load())

	for i := 0; i < 5; i++ {
		changes.emit("bookings", domain.ChangeInsert)
	}

	require.Eventually(t, func() bool { return src.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestFeed_SubscriptionFailureIsPullOnly(t *testing.T) {
	changes := &fakeChangeFeed{failOn: "bookings"}
	f := newTestFeed([]Connector{&fakeConnector{name: "bookings", tables: []string{"bookings"}, events: eventsN(2)}}, changes)
	ctx := context.Background()
	f.Open(ctx)

	view := f.Window(ctx)
	assert.False(t, view.Live)
	assert.Empty(t, view.Error)
	assert.Equal(t, 2, view.TotalCount)
}

func TestFeed_CloseReleasesSubscriptions(t *testing.T) {
	changes := &fakeChangeFeed{}
	connectors := []Connector{
		&fakeConnector{name: "bookings", tables: []string{"bookings"}},
		&fakeConnector{name: "listings", tables: []string{"listings"}},
	}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f := newTestFeed(connectors, changes)
		f.Open(ctx)
		assert.Equal(t, 2, changes.active())
		f.Close()
		f.Close()
		assert.Zero(t, changes.active())
	}
}

func TestFeed_OpenResetsWindow(t *testing.T) {
	f := newTestFeed([]Connector{&fakeConnector{name: "bookings", events: eventsN(45)}}, nil)
	ctx := context.Background()
	f.Open(ctx)
	f.LoadMore(ctx)
	require.Equal(t, 40, f.Window(ctx).DisplayCount)

	f.Open(ctx)
	view := f.Window(ctx)
	assert.Equal(t, 20, view.DisplayCount)
	assert.True(t, view.HasMore)
	assert.NotNil(t, view.RefreshedAt)
}
