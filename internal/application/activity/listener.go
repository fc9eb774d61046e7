package activity

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
)

// ChangeFeed delivers row change notifications for a table.
type ChangeFeed interface {
	Subscribe(table string, predicate func(domain.Change) bool, onChange func(domain.Change)) (domain.Subscription, error)
}

// Listener holds one subscription per watched table and funnels every
// relevant change into a single callback.
type Listener struct {
	subs []domain.Subscription
	once sync.Once
}

// Listen subscribes to every table. If any subscription fails the ones
// already taken are released and the error is returned.
func Listen(feed ChangeFeed, tables []string, onChange func()) (*Listener, error) {
	l := &Listener{}
	for _, table := range tables {
		sub, err := feed.Subscribe(table, relevantChange, func(domain.Change) { onChange() })
		if err != nil {
			l.Release()
			return nil, fmt.Errorf("subscribe %s: %w", table, err)
		}
		l.subs = append(l.subs, sub)
	}
	return l, nil
}

// Release drops all subscriptions. Safe to call more than once.
func (l *Listener) Release() {
	l.once.Do(func() {
		for _, s := range l.subs {
			s.Release()
		}
		l.subs = nil
	})
}

func relevantChange(c domain.Change) bool {
	switch c.Op {
	case domain.ChangeInsert, domain.ChangeUpdate, domain.ChangeResync:
		return true
	}
	return false
}

// WatchedTables returns the sorted union of the connectors' tables.
func WatchedTables(connectors []Connector) []string {
	set := make(map[string]struct{})
	for _, c := range connectors {
		for _, t := range c.Tables() {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
