package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second", "third"} {
		start := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Record(ctx, Entry{
			StartedAt:  start,
			FinishedAt: start.Add(1500 * time.Millisecond),
			Transcript: text,
			Method:     "clipboard",
			Target:     "kitty",
		}))
	}
	require.NoError(t, store.Record(ctx, Entry{
		StartedAt:  base.Add(10 * time.Minute),
		FinishedAt: base.Add(10 * time.Minute),
		Err:        "no text produced",
	}))

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "no text produced", recent[0].Err)
	require.Empty(t, recent[0].Transcript)
	require.Equal(t, "third", recent[1].Transcript)
	require.Equal(t, "kitty", recent[1].Target)
	require.Equal(t, 1500*time.Millisecond, recent[1].Duration())
	require.True(t, recent[1].StartedAt.Equal(base.Add(2*time.Minute)))
}

func TestRecentNonPositiveLimit(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	recent, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, recent)
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, store.Record(context.Background(), Entry{StartedAt: now, FinishedAt: now, Transcript: "kept"}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	recent, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "kept", recent[0].Transcript)
}
