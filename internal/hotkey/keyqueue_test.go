package hotkey

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyQueueKeepsReleasesWhenFull(t *testing.T) {
	q := newKeyQueue(2)

	require.True(t, q.push(KeyEvent{Key: KeyCtrl, Down: true}))
	require.True(t, q.push(KeyEvent{Key: "space", Down: true}))
	require.False(t, q.push(KeyEvent{Key: "a", Down: true}))
	require.True(t, q.push(KeyEvent{Key: "space"}))
	require.False(t, q.push(KeyEvent{Key: "space"}))
	require.True(t, q.push(KeyEvent{Key: KeyCtrl}))

	require.Equal(t, []KeyEvent{
		{Key: KeyCtrl, Down: true},
		{Key: "space", Down: true},
		{Key: "space"},
		{Key: KeyCtrl},
	}, q.drain())
	require.Empty(t, q.drain())
}

func TestKeyQueueForwardsInOrderWhileConsumerIsSlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := newKeyQueue(1)
	out := make(chan KeyEvent)
	go q.forward(ctx, out)

	require.True(t, q.push(KeyEvent{Key: "space", Down: true}))
	require.Equal(t, KeyEvent{Key: "space", Down: true}, <-out)

	require.True(t, q.push(KeyEvent{Key: "f9", Down: true}))
	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.events) == 0
	}, time.Second, 5*time.Millisecond)
	// The forwarder now holds f9 down while nobody reads; the queue itself
	// is empty again.
	require.True(t, q.push(KeyEvent{Key: "space"}))
	require.True(t, q.push(KeyEvent{Key: "f9"}))

	require.Equal(t, KeyEvent{Key: "f9", Down: true}, <-out)
	require.Equal(t, KeyEvent{Key: "space"}, <-out)
	require.Equal(t, KeyEvent{Key: "f9"}, <-out)

	cancel()
	_, ok := <-out
	require.False(t, ok)
}
