package activity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(id string, at time.Time) domain.ActivityEvent {
	return domain.ActivityEvent{ID: id, Category: domain.CategoryBooking, Title: id, Timestamp: at, Priority: domain.PriorityNormal}
}

// sampleLists builds per-source lists with overlapping ids and distinct
// timestamps.
func sampleLists(r *rand.Rand) [][]domain.ActivityEvent {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lists := make([][]domain.ActivityEvent, 5)
	for i := range lists {
		for j := 0; j < 30; j++ {
			n := r.Intn(80)
			lists[i] = append(lists[i], ev(fmt.Sprintf("e%d", n), base.Add(time.Duration(n)*time.Minute)))
		}
	}
	return lists
}

func ids(events []domain.ActivityEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestMerge_UniqueAndOrdered(t *testing.T) {
	merged := Merge(sampleLists(rand.New(rand.NewSource(1)))...)

	seen := map[string]bool{}
	for i, e := range merged {
		assert.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
		if i > 0 {
			assert.False(t, merged[i-1].Timestamp.Before(e.Timestamp), "out of order at %d", i)
		}
	}
}

func TestMerge_Idempotent(t *testing.T) {
	once := Merge(sampleLists(rand.New(rand.NewSource(2)))...)
	twice := Merge(once)
	assert.Equal(t, once, twice)
}

func TestMerge_SourceOrderCommutes(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	lists := sampleLists(r)
	want := Merge(lists...)

	for i := 0; i < 10; i++ {
		shuffled := make([][]domain.ActivityEvent, len(lists))
		copy(shuffled, lists)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		// Timestamps are distinct per id, so no ties can reorder the result.
		assert.Equal(t, ids(want), ids(Merge(shuffled...)))
	}
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	a := []domain.ActivityEvent{ev("a", t0), ev("b", t1)}
	b := []domain.ActivityEvent{ev("b", t1)}
	Merge(a, b)
	assert.Equal(t, []string{"a", "b"}, ids(a))
}

func TestMerge_Empty(t *testing.T) {
	assert.Empty(t, Merge())
	assert.Empty(t, Merge(nil, []domain.ActivityEvent{}))
}

func TestMerge_SameBookingFromTwoSources(t *testing.T) {
	n := NewNormalizer(nil)
	row := BookingRow{ID: uuid.New(), Status: "pending", CreatedAt: &t0}
	merged := Merge(n.Booking(row), n.Booking(row))

	require.Len(t, merged, 1)
	assert.Equal(t, EventID(domain.CategoryBooking, row.ID.String(), "pending"), merged[0].ID)
}

func TestMerge_ListingLifecycleKeepsBothStates(t *testing.T) {
	n := NewNormalizer(nil)
	listing := ListingRow{ID: uuid.New(), Status: "active", CreatedAt: &t0, UpdatedAt: &t1}
	other := []domain.ActivityEvent{ev("between", t0.Add(time.Hour))}

	merged := Merge(n.Listing(listing), other)

	require.Len(t, merged, 3)
	assert.Equal(t, EventID(domain.CategoryListing, listing.ID.String(), "active"), merged[0].ID)
	assert.Equal(t, "between", merged[1].ID)
	assert.Equal(t, EventID(domain.CategoryListing, listing.ID.String(), "pending"), merged[2].ID)
}

// --- connector fakes ---

type fakeConnector struct {
	name   string
	tables []string
	events []domain.ActivityEvent
	calls  atomic.Int32
}

func (c *fakeConnector) Name() string     { return c.name }
func (c *fakeConnector) Tables() []string { return c.tables }
func (c *fakeConnector) Collect(context.Context, int, domain.SourceFilter) []domain.ActivityEvent {
	c.calls.Add(1)
	return c.events
}

// failingSource builds a real connector whose query always fails.
func failingSource(name string, err error) Connector {
	return &source[BookingRow]{
		name:     name,
		category: domain.CategorySupportTicket,
		tables:   []string{name},
		fetch: func(context.Context, int, domain.SourceFilter) ([]BookingRow, error) {
			return nil, err
		},
		normalize: NewNormalizer(nil).Booking,
		policy:    DefaultPolicy(),
		logger:    discardLogger(),
	}
}

func panickingSource(name string) Connector {
	return &source[BookingRow]{
		name:     name,
		category: domain.CategorySupportTicket,
		fetch: func(context.Context, int, domain.SourceFilter) ([]BookingRow, error) {
			panic("boom")
		},
		normalize: NewNormalizer(nil).Booking,
		policy:    DefaultPolicy(),
		logger:    discardLogger(),
	}
}

func TestGather_FailuresDegradeToEmpty(t *testing.T) {
	ok := &fakeConnector{name: "bookings", events: []domain.ActivityEvent{ev("a", t0)}}
	connectors := []Connector{
		ok,
		failingSource("support_tickets", fmt.Errorf("query: %w", domain.ErrSourceUnavailable)),
		panickingSource("refunds"),
	}

	results := Gather(context.Background(), connectors, 100, domain.SourceFilter{})

	require.Len(t, results, 3)
	assert.Equal(t, ok.events, results[0])
	assert.Empty(t, results[1])
	assert.Empty(t, results[2])
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "unavailable", failureReason(fmt.Errorf("x: %w", domain.ErrSourceUnavailable)))
	assert.Equal(t, "timeout", failureReason(context.DeadlineExceeded))
	assert.Equal(t, "canceled", failureReason(context.Canceled))
	assert.Equal(t, "error", failureReason(errors.New("other")))
}
