package hotkey

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable reports that the OS (or the input backend) refused the
// binding. It is not fatal to the process.
var ErrUnavailable = errors.New("hotkey unavailable")

// RegisteredHotkey claims one binding system-wide and reports its
// activations.
type RegisteredHotkey interface {
	Register(Binding) (Registration, error)
}

// Registration is one live claim on a binding.
type Registration interface {
	// Pressed fires once per physical activation.
	Pressed() <-chan struct{}
	// Released fires when the binding is let go. It is nil when the
	// platform cannot report releases.
	Released() <-chan struct{}
	Unregister() error
}

// RawKeyWatcher taps key events system-wide regardless of focus.
type RawKeyWatcher interface {
	Watch(ctx context.Context) (<-chan KeyEvent, error)
}

// KeyEvent is one raw key transition.
type KeyEvent struct {
	Key  Key
	Down bool
}

// EventKind distinguishes the coordinator's two signals.
type EventKind int

const (
	Pressed EventKind = iota + 1
	Released
)

func (k EventKind) String() string {
	switch k {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// Event is a coordinator signal. Synthetic releases are raised by the
// coordinator itself on rebind or teardown.
type Event struct {
	Kind      EventKind
	Binding   Binding
	Synthetic bool
	At        time.Time
}

// signal performs a non-blocking send on a one-slot channel.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
