// Package readstate tracks which feed events a viewer has acknowledged.
//
// Two tiers sit behind one Tracker. Stored notification rows (ULID ids)
// carry their own read flag and are marked through the notification
// service. Synthesized activity events have no backing row; their read
// marks live in a per-viewer LocalStore. The id spaces are disjoint, so the
// tier is chosen from the id alone.
package readstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/spacelproject/admin-spacel-sub001/internal/pkg/id"
)

// ServerTier marks stored notification rows as read after an ownership check.
type ServerTier interface {
	MarkAsRead(ctx context.Context, notificationID, userID string) error
}

// LocalStore persists the local-tier marks of one viewer as id -> readAt.
type LocalStore interface {
	Get(ctx context.Context, viewerID string) (map[string]time.Time, error)
	Put(ctx context.Context, viewerID string, marks map[string]time.Time) error
}

// IsServerID reports whether eventID belongs to the server tier.
func IsServerID(eventID string) bool {
	return id.IsValid(eventID)
}

type Tracker struct {
	server ServerTier
	local  LocalStore
	logger *slog.Logger
	now    func() time.Time

	// localMu serializes read-modify-write cycles on the local store.
	localMu sync.Mutex

	ackMu sync.RWMutex
	// acked holds server ids marked through this tracker. The event's row
	// snapshot predates the mark until the next pass re-reads it.
	acked map[string]map[string]struct{}
}

func NewTracker(server ServerTier, local LocalStore, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		server: server,
		local:  local,
		logger: logger,
		now:    time.Now,
		acked:  make(map[string]map[string]struct{}),
	}
}

// IsRead reports the read state of a single event.
func (t *Tracker) IsRead(ctx context.Context, viewerID string, e domain.ActivityEvent) bool {
	items := t.Overlay(ctx, viewerID, []domain.ActivityEvent{e})
	return items[0].Read
}

// Overlay pairs every event with its read state. A local store that cannot
// be read leaves local-tier events unread.
func (t *Tracker) Overlay(ctx context.Context, viewerID string, events []domain.ActivityEvent) []domain.FeedItem {
	var local map[string]time.Time
	localLoaded := false

	out := make([]domain.FeedItem, len(events))
	for i, e := range events {
		item := domain.FeedItem{ActivityEvent: e}
		if IsServerID(e.ID) {
			item.Read = serverFlag(e) || t.isAcked(viewerID, e.ID)
		} else {
			if !localLoaded {
				local = t.loadLocal(ctx, viewerID)
				localLoaded = true
			}
			_, item.Read = local[e.ID]
		}
		out[i] = item
	}
	return out
}

func (t *Tracker) loadLocal(ctx context.Context, viewerID string) map[string]time.Time {
	marks, err := t.local.Get(ctx, viewerID)
	if err != nil {
		t.logger.Warn("read_state_load_failed", "viewer_id", viewerID, "error", err)
		return nil
	}
	return marks
}

func serverFlag(e domain.ActivityEvent) bool {
	switch n := e.SourceRef.(type) {
	case domain.Notification:
		return n.Readed == 1
	case *domain.Notification:
		return n != nil && n.Readed == 1
	}
	return false
}

func (t *Tracker) isAcked(viewerID, eventID string) bool {
	t.ackMu.RLock()
	defer t.ackMu.RUnlock()
	_, ok := t.acked[viewerID][eventID]
	return ok
}

func (t *Tracker) ack(viewerID, eventID string) {
	t.ackMu.Lock()
	defer t.ackMu.Unlock()
	if t.acked[viewerID] == nil {
		t.acked[viewerID] = make(map[string]struct{})
	}
	t.acked[viewerID][eventID] = struct{}{}
}

// MarkRead records that viewerID has seen eventID. It is idempotent.
func (t *Tracker) MarkRead(ctx context.Context, viewerID, eventID string) error {
	if IsServerID(eventID) {
		return t.markServer(ctx, viewerID, eventID)
	}
	return t.markLocal(ctx, viewerID, []string{eventID})
}

// MarkAllRead marks every given event. Local-tier ids are merged into the
// stored set with a single write; server-tier failures are collected and do
// not stop the rest.
func (t *Tracker) MarkAllRead(ctx context.Context, viewerID string, events []domain.ActivityEvent) error {
	var errs []error
	var localIDs []string
	for _, e := range events {
		if !IsServerID(e.ID) {
			localIDs = append(localIDs, e.ID)
			continue
		}
		if serverFlag(e) || t.isAcked(viewerID, e.ID) {
			continue
		}
		if err := t.markServer(ctx, viewerID, e.ID); err != nil {
			errs = append(errs, err)
		}
	}
	if len(localIDs) > 0 {
		if err := t.markLocal(ctx, viewerID, localIDs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Tracker) markServer(ctx context.Context, viewerID, eventID string) error {
	if t.server == nil {
		return fmt.Errorf("notification %s: %w", eventID, domain.ErrNotFound)
	}
	if err := t.server.MarkAsRead(ctx, eventID, viewerID); err != nil {
		return fmt.Errorf("mark notification %s read: %w", eventID, err)
	}
	t.ack(viewerID, eventID)
	return nil
}

func (t *Tracker) markLocal(ctx context.Context, viewerID string, eventIDs []string) error {
	t.localMu.Lock()
	defer t.localMu.Unlock()

	marks, err := t.local.Get(ctx, viewerID)
	if err != nil {
		return fmt.Errorf("load read state: %w", err)
	}
	if marks == nil {
		marks = make(map[string]time.Time, len(eventIDs))
	}
	now := t.now().UTC()
	changed := false
	for _, eid := range eventIDs {
		if _, ok := marks[eid]; ok {
			continue
		}
		marks[eid] = now
		changed = true
	}
	if !changed {
		return nil
	}
	if err := t.local.Put(ctx, viewerID, marks); err != nil {
		return fmt.Errorf("save read state: %w", err)
	}
	return nil
}
