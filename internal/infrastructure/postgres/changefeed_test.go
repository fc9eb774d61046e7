package postgres

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeListener struct {
	ch        chan *pq.Notification
	listenErr error
	mu        sync.Mutex
	channels  []string
	closed    bool
}

func newFakeListener() *fakeListener {
	return &fakeListener{ch: make(chan *pq.Notification, 8)}
}

func (l *fakeListener) Listen(channel string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channels = append(l.channels, channel)
	return l.listenErr
}
func (l *fakeListener) NotificationChannel() <-chan *pq.Notification { return l.ch }
func (l *fakeListener) Ping() error                                  { return nil }
func (l *fakeListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type recorder struct {
	mu      sync.Mutex
	changes []domain.Change
}

func (r *recorder) add(c domain.Change) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func (r *recorder) get() []domain.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Change(nil), r.changes...)
}

func TestParsePayload(t *testing.T) {
	c, err := parsePayload(`{"table":" bookings ","op":"insert"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.Change{Table: "bookings", Op: domain.ChangeInsert}, c)

	_, err = parsePayload(`{"table":"bookings"}`)
	assert.Error(t, err)
	_, err = parsePayload(`not json`)
	assert.Error(t, err)
}

func TestChangeFeed_RoutesByTableAndPredicate(t *testing.T) {
	l := newFakeListener()
	f, err := newChangeFeed(l, "activity_changes", quiet())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	bookings, payouts := &recorder{}, &recorder{}
	_, err = f.Subscribe("bookings", nil, bookings.add)
	require.NoError(t, err)
	_, err = f.Subscribe("payouts", func(c domain.Change) bool { return c.Op == domain.ChangeUpdate }, payouts.add)
	require.NoError(t, err)

	l.ch <- &pq.Notification{Channel: "activity_changes", Extra: `{"table":"bookings","op":"INSERT"}`}
	l.ch <- &pq.Notification{Channel: "activity_changes", Extra: `{"table":"payouts","op":"DELETE"}`}
	l.ch <- &pq.Notification{Channel: "activity_changes", Extra: `garbage`}
	l.ch <- &pq.Notification{Channel: "activity_changes", Extra: `{"table":"payouts","op":"UPDATE"}`}

	require.Eventually(t, func() bool { return len(payouts.get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []domain.Change{{Table: "bookings", Op: domain.ChangeInsert}}, bookings.get())
	assert.Equal(t, []domain.Change{{Table: "payouts", Op: domain.ChangeUpdate}}, payouts.get())
	assert.Equal(t, []string{"activity_changes"}, l.channels)
}

func TestChangeFeed_ReconnectResyncsEverySubscriber(t *testing.T) {
	l := newFakeListener()
	f, err := newChangeFeed(l, "activity_changes", quiet())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	a, b := &recorder{}, &recorder{}
	_, _ = f.Subscribe("bookings", nil, a.add)
	_, _ = f.Subscribe("reviews", nil, b.add)

	l.ch <- nil

	require.Eventually(t, func() bool { return len(a.get()) == 1 && len(b.get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.Change{Table: "bookings", Op: domain.ChangeResync}, a.get()[0])
	assert.Equal(t, domain.Change{Table: "reviews", Op: domain.ChangeResync}, b.get()[0])
}

func TestChangeFeed_ReleaseStopsDelivery(t *testing.T) {
	l := newFakeListener()
	f, err := newChangeFeed(l, "activity_changes", quiet())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	rec := &recorder{}
	sub, err := f.Subscribe("bookings", nil, rec.add)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Subscribers())

	sub.Release()
	sub.Release()
	assert.Equal(t, 0, f.Subscribers())

	marker := &recorder{}
	_, _ = f.Subscribe("reviews", nil, marker.add)
	l.ch <- &pq.Notification{Extra: `{"table":"bookings","op":"INSERT"}`}
	l.ch <- &pq.Notification{Extra: `{"table":"reviews","op":"INSERT"}`}

	require.Eventually(t, func() bool { return len(marker.get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, rec.get())
}

func TestChangeFeed_SubscriberPanicIsContained(t *testing.T) {
	l := newFakeListener()
	f, err := newChangeFeed(l, "activity_changes", quiet())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	rec := &recorder{}
	_, _ = f.Subscribe("bookings", nil, func(domain.Change) { panic("boom") })
	_, _ = f.Subscribe("bookings", nil, rec.add)

	l.ch <- &pq.Notification{Extra: `{"table":"bookings","op":"UPDATE"}`}

	require.Eventually(t, func() bool { return len(rec.get()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestChangeFeed_ListenFailureClosesListener(t *testing.T) {
	l := newFakeListener()
	l.listenErr = errors.New("permission denied")

	_, err := newChangeFeed(l, "activity_changes", quiet())

	assert.Error(t, err)
	assert.True(t, l.closed)
}

func TestChangeFeed_CloseRejectsNewSubscribers(t *testing.T) {
	l := newFakeListener()
	f, err := newChangeFeed(l, "activity_changes", quiet())
	require.NoError(t, err)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Subscribe("bookings", nil, func(domain.Change) {})
	assert.Error(t, err)
	assert.True(t, l.closed)
}
