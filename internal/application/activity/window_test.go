package activity

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventsN(n int) []domain.ActivityEvent {
	out := make([]domain.ActivityEvent, n)
	for i := range out {
		out[i] = ev(fmt.Sprintf("e%03d", i), t1.Add(-time.Duration(i)*time.Minute))
	}
	return out
}

func TestWindow_LoadMoreSteps(t *testing.T) {
	w := NewWindow(20, 20, 0)
	w.Replace(eventsN(45))
	ctx := context.Background()

	assert.Equal(t, 20, w.Snapshot().DisplayCount)

	assert.True(t, w.LoadMore(ctx))
	assert.Equal(t, 40, w.Snapshot().DisplayCount)

	assert.True(t, w.LoadMore(ctx))
	snap := w.Snapshot()
	assert.Equal(t, 45, snap.DisplayCount)
	assert.False(t, snap.HasMore)

	assert.False(t, w.LoadMore(ctx))
	assert.Equal(t, 45, w.Snapshot().DisplayCount)
}

func TestWindow_Monotonic(t *testing.T) {
	for _, total := range []int{0, 1, 19, 20, 21, 45, 100} {
		w := NewWindow(20, 7, 0)
		w.Replace(eventsN(total))
		prev := w.Snapshot().DisplayCount
		for i := 0; i < 20; i++ {
			w.LoadMore(context.Background())
			snap := w.Snapshot()
			assert.GreaterOrEqual(t, snap.DisplayCount, prev)
			assert.LessOrEqual(t, snap.DisplayCount, snap.TotalCount)
			assert.Len(t, snap.Visible, snap.DisplayCount)
			prev = snap.DisplayCount
		}
		assert.Equal(t, total, prev)
	}
}

func TestWindow_ConcurrentLoadMoreIsIgnored(t *testing.T) {
	w := NewWindow(20, 20, 200*time.Millisecond)
	w.Replace(eventsN(100))

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = w.LoadMore(context.Background())
		}(i)
	}
	wg.Wait()

	advanced := 0
	for _, r := range results {
		if r {
			advanced++
		}
	}
	assert.Equal(t, 1, advanced)
	assert.Equal(t, 40, w.Snapshot().DisplayCount)
}

func TestWindow_LoadMoreCancelled(t *testing.T) {
	w := NewWindow(20, 20, time.Hour)
	w.Replace(eventsN(45))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, w.LoadMore(ctx))
	assert.Equal(t, 20, w.Snapshot().DisplayCount)
	assert.False(t, w.Snapshot().Loading)
}

func TestWindow_ReplaceDuringLoadKeepsSize(t *testing.T) {
	w := NewWindow(20, 20, 200*time.Millisecond)
	w.Replace(eventsN(45))

	done := make(chan bool)
	go func() { done <- w.LoadMore(context.Background()) }()

	require.Eventually(t, func() bool { return w.Snapshot().Loading }, time.Second, time.Millisecond)
	w.Replace(eventsN(60))

	assert.True(t, <-done)
	snap := w.Snapshot()
	assert.Equal(t, 40, snap.DisplayCount)
	assert.Equal(t, 60, snap.TotalCount)
}

func TestWindow_ReplaceKeepsGrownSize(t *testing.T) {
	w := NewWindow(20, 20, 0)
	w.Replace(eventsN(45))
	w.LoadMore(context.Background())

	w.Replace(eventsN(50))
	assert.Equal(t, 40, w.Snapshot().DisplayCount)

	w.Replace(eventsN(30))
	assert.Equal(t, 30, w.Snapshot().DisplayCount)
}

func TestWindow_ResetClearsStaleSlice(t *testing.T) {
	w := NewWindow(20, 20, 0)
	w.Replace(eventsN(45))
	w.LoadMore(context.Background())

	w.Reset()

	snap := w.Snapshot()
	assert.Empty(t, snap.Visible)
	assert.Zero(t, snap.TotalCount)

	w.Replace(eventsN(45))
	assert.Equal(t, 20, w.Snapshot().DisplayCount)
}
