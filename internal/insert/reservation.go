package insert

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/clock"
	"github.com/rbright/murmur/internal/logging"
)

var errVerifyFailed = errors.New("clipboard verification failed after write")

// Reservation is the acquired half of a clipboard paste: the prior content
// and the text this paste placed on the clipboard.
type Reservation struct {
	Previous string
	HadText  bool
	// Known is false when the prior content could not be read. Such a
	// reservation never restores.
	Known      bool
	Ready      bool
	Diagnostic string

	inserted  string
	clipboard Clipboard
	logger    *slog.Logger
}

// Reserve snapshots the clipboard, writes text, and verifies it by reading
// back. A non-nil Reservation is returned whenever the clipboard may have
// been modified, so the caller can restore it.
func Reserve(ctx context.Context, cb Clipboard, text string) (*Reservation, error) {
	return reserve(ctx, cb, text, defaultVerifyTries, defaultVerifyDelay, logging.Discard())
}

func reserve(ctx context.Context, cb Clipboard, text string, tries int, delay time.Duration, logger *slog.Logger) (*Reservation, error) {
	r := &Reservation{inserted: text, clipboard: cb, logger: logger}

	prev, ok, err := cb.Read(ctx)
	if err != nil {
		logger.Debug("clipboard snapshot unavailable", "error", err.Error())
	} else {
		r.Previous, r.HadText, r.Known = prev, ok, true
	}

	var lastErr error
	for i := 0; i < tries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				r.Diagnostic = errVerifyFailed.Error()
				return r, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := cb.Write(ctx, text); err != nil {
			lastErr = err
			continue
		}
		got, ok, err := cb.Read(ctx)
		if err == nil && ok && got == text {
			r.Ready = true
			return r, nil
		}
		lastErr = err
	}

	r.Diagnostic = errVerifyFailed.Error()
	if lastErr != nil {
		logger.Debug("clipboard verify failed", "error", lastErr.Error())
	}
	return r, errVerifyFailed
}

// Restore puts the previous content back, but only while the clipboard still
// holds the inserted text. It reports whether anything was written.
func (r *Reservation) Restore(ctx context.Context) (bool, error) {
	current, ok, err := r.clipboard.Read(ctx)
	if err != nil {
		return false, err
	}
	if !r.Known {
		r.logger.Debug("prior clipboard content unknown; not restoring")
		return false, nil
	}
	if !ok || current != r.inserted {
		r.logger.Debug("clipboard changed since paste; not restoring")
		return false, nil
	}
	if r.HadText {
		return true, r.clipboard.Write(ctx, r.Previous)
	}
	return true, r.clipboard.Clear(ctx)
}

// adopt takes over the prior content of an earlier paste whose restore was
// cancelled, as long as the clipboard still held that paste's text.
func (r *Reservation) adopt(earlier *Reservation) {
	if earlier == nil || !r.Known || !r.HadText || r.Previous != earlier.inserted {
		return
	}
	r.Previous, r.HadText, r.Known = earlier.Previous, earlier.HadText, earlier.Known
}

// ScheduleRestore arms a cancellable Restore after delay on clk.
func (r *Reservation) ScheduleRestore(clk clock.Clock, delay time.Duration) *Deferred {
	d := &Deferred{res: r, done: make(chan struct{})}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timer = clk.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		defer cancel()
		restored, err := r.Restore(ctx)
		if err != nil {
			r.logger.Warn("clipboard restore failed", "error", err.Error())
		}
		d.finish(restored)
	})
	return d
}

// Deferred is a scheduled clipboard restore.
type Deferred struct {
	mu       sync.Mutex
	timer    clock.Timer
	res      *Reservation
	done     chan struct{}
	finished bool
	restored bool
}

// Cancel stops the restore if it has not run. It reports whether it did.
func (d *Deferred) Cancel() bool {
	d.mu.Lock()
	timer := d.timer
	d.mu.Unlock()
	if timer == nil || !timer.Stop() {
		return false
	}
	d.finish(false)
	return true
}

// Done closes once the restore ran or was cancelled.
func (d *Deferred) Done() <-chan struct{} { return d.done }

// Restored reports whether the restore wrote the clipboard.
func (d *Deferred) Restored() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.restored
}

func (d *Deferred) finish(restored bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.finished {
		return
	}
	d.finished = true
	d.restored = restored
	close(d.done)
}
