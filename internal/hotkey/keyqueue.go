package hotkey

import (
	"context"
	"sync"
)

// keyQueue hands key events from a callback that must never block to a
// consumer that may. Once full it drops presses but keeps releases, so a
// held binding is never left stuck down.
type keyQueue struct {
	mu     sync.Mutex
	events []KeyEvent
	limit  int
	wake   chan struct{}
}

func newKeyQueue(limit int) *keyQueue {
	return &keyQueue{limit: limit, wake: make(chan struct{}, 1)}
}

// push queues ev and reports whether it was kept. A release beyond the
// limit is coalesced with one already queued for the same key.
func (q *keyQueue) push(ev KeyEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) >= q.limit && (ev.Down || q.releaseQueued(ev.Key)) {
		return false
	}
	q.events = append(q.events, ev)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (q *keyQueue) releaseQueued(k Key) bool {
	for i := len(q.events) - 1; i >= 0; i-- {
		if q.events[i].Key == k {
			return !q.events[i].Down
		}
	}
	return false
}

func (q *keyQueue) drain() []KeyEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.events
	q.events = nil
	return events
}

// forward delivers queued events in order until ctx is done, then closes out.
func (q *keyQueue) forward(ctx context.Context, out chan<- KeyEvent) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
		for _, ev := range q.drain() {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
