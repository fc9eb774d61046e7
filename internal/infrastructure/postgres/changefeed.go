package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
)

const (
	minReconnect = 2 * time.Second
	maxReconnect = time.Minute
	idlePing     = 90 * time.Second
)

// pqListener is the subset of *pq.Listener the feed uses.
type pqListener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

type subscriber struct {
	table     string
	predicate func(domain.Change) bool
	onChange  func(domain.Change)
}

// ChangeFeed fans row change notifications from a single LISTEN channel out
// to per-table subscribers. Triggers publish JSON payloads of the form
// {"table":"bookings","op":"INSERT"}.
type ChangeFeed struct {
	listener pqListener
	logger   *slog.Logger

	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewChangeFeed opens a dedicated listener connection on channel and starts
// dispatching.
func NewChangeFeed(dsn, channel string, logger *slog.Logger) (*ChangeFeed, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := pq.NewListener(dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected:
			logger.Warn("change_feed_disconnected", "error", err)
		case pq.ListenerEventReconnected:
			logger.Info("change_feed_reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			logger.Warn("change_feed_connect_failed", "error", err)
		}
	})
	return newChangeFeed(l, channel, logger)
}

func newChangeFeed(l pqListener, channel string, logger *slog.Logger) (*ChangeFeed, error) {
	if err := l.Listen(channel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("listen %s: %w", channel, err)
	}
	f := &ChangeFeed{
		listener: l,
		logger:   logger,
		subs:     make(map[uint64]*subscriber),
		done:     make(chan struct{}),
	}
	f.wg.Add(1)
	go f.run()
	return f, nil
}

// Subscribe registers onChange for changes on table that satisfy predicate.
// A nil predicate accepts everything.
func (f *ChangeFeed) Subscribe(table string, predicate func(domain.Change) bool, onChange func(domain.Change)) (domain.Subscription, error) {
	if table == "" || onChange == nil {
		return nil, fmt.Errorf("subscribe: %w", domain.ErrBadRequest)
	}
	select {
	case <-f.done:
		return nil, errors.New("change feed closed")
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	key := f.nextID
	f.subs[key] = &subscriber{table: table, predicate: predicate, onChange: onChange}
	return &subscription{release: func() { f.remove(key) }}, nil
}

// Subscribers returns the number of active subscriptions.
func (f *ChangeFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

func (f *ChangeFeed) remove(key uint64) {
	f.mu.Lock()
	delete(f.subs, key)
	f.mu.Unlock()
}

// Close stops dispatching and closes the listener connection.
func (f *ChangeFeed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		err = f.listener.Close()
		f.wg.Wait()
	})
	return err
}

func (f *ChangeFeed) run() {
	defer f.wg.Done()
	ticker := time.NewTicker(idlePing)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case n, ok := <-f.listener.NotificationChannel():
			if !ok {
				return
			}
			f.handle(n)
		case <-ticker.C:
			if err := f.listener.Ping(); err != nil {
				f.logger.Warn("change_feed_ping_failed", "error", err)
			}
		}
	}
}

// handle routes one notification. pq delivers nil after a reconnect, when
// notifications may have been lost, so every subscriber gets a resync.
func (f *ChangeFeed) handle(n *pq.Notification) {
	if n == nil {
		f.dispatch(domain.Change{Op: domain.ChangeResync}, true)
		return
	}
	c, err := parsePayload(n.Extra)
	if err != nil {
		f.logger.Warn("change_feed_bad_payload", "channel", n.Channel, "error", err)
		return
	}
	f.dispatch(c, false)
}

func (f *ChangeFeed) dispatch(c domain.Change, all bool) {
	f.mu.RLock()
	targets := make([]*subscriber, 0, len(f.subs))
	for _, s := range f.subs {
		if !all && s.table != c.Table {
			continue
		}
		targets = append(targets, s)
	}
	f.mu.RUnlock()

	for _, s := range targets {
		change := c
		if all {
			change.Table = s.table
		}
		if s.predicate != nil && !s.predicate(change) {
			continue
		}
		f.deliver(s, change)
	}
}

func (f *ChangeFeed) deliver(s *subscriber, c domain.Change) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("change_feed_subscriber_panic", "table", c.Table, "panic", r)
		}
	}()
	s.onChange(c)
}

func parsePayload(raw string) (domain.Change, error) {
	var c domain.Change
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return domain.Change{}, fmt.Errorf("decode payload: %w", err)
	}
	c.Table = strings.TrimSpace(c.Table)
	c.Op = strings.ToUpper(strings.TrimSpace(c.Op))
	if c.Table == "" || c.Op == "" {
		return domain.Change{}, errors.New("payload missing table or op")
	}
	return c, nil
}

type subscription struct {
	once    sync.Once
	release func()
}

func (s *subscription) Release() { s.once.Do(s.release) }

var _ pqListener = (*pq.Listener)(nil)
