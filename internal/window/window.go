// Package window remembers the window that had focus when dictation began
// and puts focus back on it before insertion.
package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrFocusFailed = errors.New("focus failed")
	ErrTargetGone  = errors.New("target window is gone")
)

// Target is a weak reference to a window. Handle is backend specific: a
// Hyprland address, an X11 window id, or an HWND.
type Target struct {
	Handle  string
	Title   string
	Process string
}

// Valid reports whether the target carries a handle at all.
func (t Target) Valid() bool { return t.Handle != "" }

// Label names the target for user-facing messages.
func (t Target) Label() string {
	switch {
	case t.Title != "":
		return t.Title
	case t.Process != "":
		return t.Process
	case t.Handle != "":
		return t.Handle
	default:
		return "the target window"
	}
}

// Tracker queries and focuses top-level windows.
type Tracker interface {
	Foreground(ctx context.Context) (Target, error)
	Alive(ctx context.Context, t Target) bool
	Focus(ctx context.Context, t Target) error
}

// Backend names accepted by NewTracker.
const (
	BackendHypr   = "hypr"
	BackendX11    = "x11"
	BackendNative = "native"
	BackendNone   = "none"
)

// NewTracker builds the tracker for a configured backend name.
func NewTracker(backend string, logger *slog.Logger) (Tracker, error) {
	switch backend {
	case BackendHypr:
		return HyprTracker{}, nil
	case BackendX11:
		return X11Tracker{}, nil
	case BackendNative:
		return newNativeTracker(logger)
	case BackendNone, "":
		return NoneTracker{}, nil
	default:
		return nil, fmt.Errorf("unknown window backend %q", backend)
	}
}

// NoneTracker never knows a foreground window and treats focus as a no-op.
type NoneTracker struct{}

func (NoneTracker) Foreground(context.Context) (Target, error) { return Target{}, nil }
func (NoneTracker) Alive(context.Context, Target) bool         { return false }
func (NoneTracker) Focus(context.Context, Target) error        { return nil }

// Memory is the single-use slot for the remembered target.
type Memory struct {
	mu     sync.Mutex
	target Target
	set    bool
}

func (m *Memory) Remember(t Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target = t
	m.set = true
}

// Take returns the remembered target and clears the slot.
func (m *Memory) Take() (Target, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.target, m.set
	m.target = Target{}
	m.set = false
	return t, ok
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target = Target{}
	m.set = false
}

// Resolve picks the window to insert into: the remembered target when it is
// still alive, otherwise the current foreground window.
func Resolve(ctx context.Context, tracker Tracker, remembered Target, ok bool) (Target, error) {
	if ok && remembered.Valid() && tracker.Alive(ctx, remembered) {
		return remembered, nil
	}
	current, err := tracker.Foreground(ctx)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrTargetGone, err)
	}
	return current, nil
}

// FocusVerified focuses t and confirms it became the foreground window,
// retrying briefly while the window manager catches up.
func FocusVerified(ctx context.Context, tracker Tracker, t Target, attempts int, delay time.Duration) error {
	if !t.Valid() {
		return nil
	}
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := tracker.Focus(ctx, t); err != nil {
			lastErr = err
		} else {
			current, err := tracker.Foreground(ctx)
			switch {
			case err != nil:
				lastErr = err
			case current.Handle == t.Handle:
				return nil
			default:
				lastErr = fmt.Errorf("foreground is %q", current.Label())
			}
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%w: couldn't focus %s. text not inserted: %v", ErrFocusFailed, t.Label(), lastErr)
}
