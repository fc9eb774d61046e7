package filestore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*ReadStateStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "read-state")
	s, err := NewReadStateStore(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s, dir
}

func TestReadStateStore_RoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	at := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)

	marks, err := s.Get(ctx, "admin-1")
	require.NoError(t, err)
	assert.Empty(t, marks)

	require.NoError(t, s.Put(ctx, "admin-1", map[string]time.Time{"booking_b1_pending": at}))

	got, err := s.Get(ctx, "admin-1")
	require.NoError(t, err)
	require.Contains(t, got, "booking_b1_pending")
	assert.True(t, at.Equal(got["booking_b1_pending"]))

	other, err := s.Get(ctx, "admin-2")
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = os.Stat(s.path("admin-1") + ".tmp")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadStateStore_SurvivesReopen(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "admin-1", map[string]time.Time{"x": time.Now()}))

	reopened, err := NewReadStateStore(dir, nil)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "admin-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReadStateStore_ViewerIDStaysInsideDir(t *testing.T) {
	s, dir := newStore(t)
	require.NoError(t, s.Put(context.Background(), "../../etc/passwd", map[string]time.Time{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Li4vLi4vZXRjL3Bhc3N3ZA.json", entries[0].Name())
}

func TestReadStateStore_SimilarViewerIDsDoNotShareMarks(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "org/alice", map[string]time.Time{"booking_x_pending": time.Now()}))

	for _, other := range []string{"org_alice", "org.alice", "org-alice"} {
		got, err := s.Get(ctx, other)
		require.NoError(t, err)
		assert.Empty(t, got, other)
	}
	require.NoError(t, s.Put(ctx, "org_alice", map[string]time.Time{"booking_y_pending": time.Now()}))

	alice, err := s.Get(ctx, "org/alice")
	require.NoError(t, err)
	assert.Len(t, alice, 1)
	assert.Contains(t, alice, "booking_x_pending")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReadStateStore_CorruptFileIsEmpty(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, os.WriteFile(s.path("admin-1"), []byte("{not json"), 0o600))

	got, err := s.Get(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
