package activity

import (
	"context"
	"sort"

	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Gather runs every connector concurrently and waits for all of them. The
// result holds one list per connector in connector order; a failed connector
// contributes an empty list and never cancels the others.
func Gather(ctx context.Context, connectors []Connector, limit int, filter domain.SourceFilter) [][]domain.ActivityEvent {
	results := make([][]domain.ActivityEvent, len(connectors))
	var g errgroup.Group
	for i, c := range connectors {
		g.Go(func() error {
			results[i] = c.Collect(ctx, limit, filter)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Merge concatenates the lists, orders them newest first and keeps the first
// occurrence of every id.
func Merge(lists ...[]domain.ActivityEvent) []domain.ActivityEvent {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	all := make([]domain.ActivityEvent, 0, total)
	for _, l := range lists {
		all = append(all, l...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})

	seen := make(map[string]struct{}, len(all))
	out := all[:0]
	for _, e := range all {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}
