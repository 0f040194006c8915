package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/logging"
)

// Coordinator composes a RegisteredHotkey with an optional RawKeyWatcher
// into a press/hold/release state machine.
type Coordinator struct {
	reg    RegisteredHotkey
	raw    RawKeyWatcher
	logger *slog.Logger
	now    func() time.Time

	life   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	binding  Binding
	active   Registration
	stopPump chan struct{}
	gen      uint64
	watchSet bool
	watching bool

	queue *eventQueue
	out   chan Event
}

// NewCoordinator builds an idle coordinator. raw may be nil, in which case
// releases come from the registration itself.
func NewCoordinator(reg RegisteredHotkey, raw RawKeyWatcher, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Discard()
	}
	life, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		reg:    reg,
		raw:    raw,
		logger: logger.With("component", "hotkey"),
		now:    time.Now,
		life:   life,
		cancel: cancel,
		queue:  newEventQueue(),
		out:    make(chan Event),
	}
	go c.dispatch()
	return c
}

// Events delivers Pressed/Released in order. The channel closes after Close.
func (c *Coordinator) Events() <-chan Event {
	return c.out
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Binding returns the active binding, if any.
func (c *Coordinator) Binding() (Binding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return Binding{}, false
	}
	return c.binding, true
}

// Activate registers b, replacing any current binding. A hold in progress is
// ended with a synthetic release first. OS denial leaves the coordinator
// Idle and returns ErrUnavailable.
func (c *Coordinator) Activate(ctx context.Context, b Binding) error {
	if b.IsZero() {
		return errEmptyBinding
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.life.Err(); err != nil {
		return fmt.Errorf("hotkey coordinator closed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked()

	registration, err := c.reg.Register(b)
	if err != nil {
		c.state = Idle
		c.binding = Binding{}
		if errors.Is(err, ErrUnavailable) {
			return fmt.Errorf("register %s: %w", b, err)
		}
		return fmt.Errorf("%w: register %s: %v", ErrUnavailable, b, err)
	}

	c.gen++
	c.binding = b
	c.active = registration
	c.state = Registered
	c.stopPump = make(chan struct{})
	go c.pump(c.gen, registration, c.stopPump)

	c.installWatcherLocked()
	c.logger.Info("hotkey registered", "binding", b.String(), "raw_watcher", c.watching)
	return nil
}

// Rebind activates b and, if that fails, re-registers the previous binding.
func (c *Coordinator) Rebind(ctx context.Context, b Binding) error {
	prev, hadPrev := c.Binding()
	if hadPrev && prev.Equal(b) {
		return nil
	}

	err := c.Activate(ctx, b)
	if err == nil || !hadPrev {
		return err
	}

	c.logger.Warn("hotkey rebind failed, restoring previous binding",
		"binding", b.String(),
		"previous", prev.String(),
		"error", err.Error(),
	)
	if rerr := c.Activate(ctx, prev); rerr != nil {
		return errors.Join(err, fmt.Errorf("restore %s: %w", prev, rerr))
	}
	return err
}

// Unregister drops the active binding. It always succeeds; backend errors
// are logged.
func (c *Coordinator) Unregister() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

// Close unregisters and stops event delivery.
func (c *Coordinator) Close() {
	c.Unregister()
	c.cancel()
}

// releaseLocked ends any hold and tears down the active registration.
func (c *Coordinator) releaseLocked() {
	if c.state == ActiveHold {
		c.emitLocked(Released, true)
	}
	if c.active != nil {
		close(c.stopPump)
		if err := c.active.Unregister(); err != nil {
			c.logger.Warn("hotkey unregister failed", "binding", c.binding.String(), "error", err.Error())
		}
	}
	c.gen++
	c.active = nil
	c.stopPump = nil
	c.binding = Binding{}
	c.state = Idle
}

func (c *Coordinator) installWatcherLocked() {
	if c.raw == nil || c.watchSet {
		return
	}
	c.watchSet = true

	events, err := c.raw.Watch(c.life)
	if err != nil {
		c.logger.Warn("raw key watcher unavailable, using registration releases", "error", err.Error())
		return
	}
	c.watching = true
	go c.watch(events)
}

func (c *Coordinator) pump(gen uint64, registration Registration, stop <-chan struct{}) {
	pressed := registration.Pressed()
	released := registration.Released()
	for {
		select {
		case <-stop:
			return
		case <-c.life.Done():
			return
		case _, ok := <-pressed:
			if !ok {
				pressed = nil
				continue
			}
			c.onPressed(gen)
		case _, ok := <-released:
			if !ok {
				released = nil
				continue
			}
			c.onRegistrationReleased(gen)
		}
	}
}

func (c *Coordinator) watch(events <-chan KeyEvent) {
	for {
		select {
		case <-c.life.Done():
			return
		case ev, ok := <-events:
			if !ok {
				c.mu.Lock()
				c.watching = false
				c.mu.Unlock()
				c.logger.Warn("raw key watcher stopped")
				return
			}
			if !ev.Down {
				c.onKeyUp(ev.Key)
			}
		}
	}
}

func (c *Coordinator) onPressed(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if c.state != Registered {
		c.logger.Debug("hotkey press ignored", "state", c.state.String())
		return
	}
	c.state = ActiveHold
	c.emitLocked(Pressed, false)
}

func (c *Coordinator) onRegistrationReleased(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.watching || c.state != ActiveHold {
		return
	}
	c.state = Registered
	c.emitLocked(Released, false)
}

func (c *Coordinator) onKeyUp(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ActiveHold || !c.binding.Involves(k) {
		return
	}
	c.state = Registered
	c.emitLocked(Released, false)
}

func (c *Coordinator) emitLocked(kind EventKind, synthetic bool) {
	c.queue.push(Event{
		Kind:      kind,
		Binding:   c.binding,
		Synthetic: synthetic,
		At:        c.now(),
	})
}

func (c *Coordinator) dispatch() {
	defer close(c.out)
	for {
		for _, ev := range c.queue.drain() {
			select {
			case c.out <- ev:
			case <-c.life.Done():
				return
			}
		}
		select {
		case <-c.queue.notify:
		case <-c.life.Done():
			return
		}
	}
}

// eventQueue is an unbounded FIFO so state transitions never block on a slow
// consumer.
type eventQueue struct {
	mu     sync.Mutex
	items  []Event
	notify chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
