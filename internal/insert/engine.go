// Package insert puts transcript text into the focused application, first
// through an accessibility API and then through a guarded clipboard paste.
package insert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/clock"
	"github.com/rbright/murmur/internal/logging"
)

var (
	ErrInsertionFailed = errors.New("insertion failed")
	// ErrNotApplicable is a structured-insertion miss: no focused element,
	// read-only, non-empty, or no editable capability.
	ErrNotApplicable = errors.New("structured insertion not applicable")
)

const (
	DefaultRestoreDelay = 2 * time.Second
	defaultVerifyTries  = 3
	defaultVerifyDelay  = 50 * time.Millisecond
	restoreTimeout      = 2 * time.Second
)

// Method names the strategy that inserted the text.
type Method string

const (
	MethodNone       Method = "none"
	MethodStructured Method = "structured"
	MethodClipboard  Method = "clipboard"
)

// Result reports how insertion went.
type Result struct {
	Method     Method
	Diagnostic string
}

// Structured sets the focused element's value directly.
type Structured interface {
	TryInsert(ctx context.Context, text string) error
}

// Clipboard is the text clipboard.
type Clipboard interface {
	// Read returns the current text. ok is false when the clipboard holds no
	// text.
	Read(ctx context.Context) (text string, ok bool, err error)
	Write(ctx context.Context, text string) error
	Clear(ctx context.Context) error
}

// Injector synthesizes key events and reports how many the OS accepted.
type Injector interface {
	SendChord(ctx context.Context, chord Chord) (accepted int, err error)
}

// Options tunes the clipboard strategy.
type Options struct {
	RestoreDelay time.Duration
	Clock        clock.Clock
	VerifyTries  int
	VerifyDelay  time.Duration
}

// Engine runs the two insertion strategies in order.
type Engine struct {
	structured Structured
	clipboard  Clipboard
	injector   Injector
	opts       Options
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[*Deferred]struct{}
	latest  *Deferred
}

// New builds an engine. structured may be nil.
func New(structured Structured, clipboard Clipboard, injector Injector, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.RestoreDelay < 0 {
		opts.RestoreDelay = 0
	}
	if opts.VerifyTries <= 0 {
		opts.VerifyTries = defaultVerifyTries
	}
	if opts.VerifyDelay <= 0 {
		opts.VerifyDelay = defaultVerifyDelay
	}
	return &Engine{
		structured: structured,
		clipboard:  clipboard,
		injector:   injector,
		opts:       opts,
		logger:     logger.With("component", "insert"),
		pending:    map[*Deferred]struct{}{},
	}
}

// Insert puts text into the focused element. The caller has already
// focused the target window.
func (e *Engine) Insert(ctx context.Context, text string) (Result, error) {
	if text == "" {
		return Result{Method: MethodNone, Diagnostic: "empty text"}, nil
	}

	if e.structured != nil {
		err := e.structured.TryInsert(ctx, text)
		if err == nil {
			e.logger.Info("inserted via accessibility", "chars", len(text))
			return Result{Method: MethodStructured}, nil
		}
		e.logger.Debug("structured insertion missed", "error", err.Error())
	}

	if e.clipboard == nil || e.injector == nil {
		diag := "structured and clipboard insertion failed"
		return Result{Method: MethodNone, Diagnostic: diag}, fmt.Errorf("%w: %s", ErrInsertionFailed, diag)
	}

	diag, ok := e.pasteViaClipboard(ctx, text)
	if !ok {
		e.logger.Warn("clipboard insertion failed", "diagnostic", diag)
		return Result{Method: MethodNone, Diagnostic: diag}, fmt.Errorf("%w: %s", ErrInsertionFailed, diag)
	}
	e.logger.Info("inserted via clipboard paste", "chars", len(text))
	return Result{Method: MethodClipboard}, nil
}

func (e *Engine) pasteViaClipboard(ctx context.Context, text string) (string, bool) {
	earlier := e.takeLatest()
	r, err := reserve(ctx, e.clipboard, text, e.opts.VerifyTries, e.opts.VerifyDelay, e.logger)
	r.adopt(earlier)
	if err != nil {
		if r != nil {
			e.restoreNow(r)
			return r.Diagnostic, false
		}
		return err.Error(), false
	}

	chord := PasteChord()
	accepted, err := e.injector.SendChord(ctx, chord)
	switch {
	case err != nil:
		e.restoreNow(r)
		return fmt.Sprintf("paste chord injection failed: %v", err), false
	case accepted < len(chord):
		e.restoreNow(r)
		return fmt.Sprintf("paste chord only injected %d of %d events", accepted, len(chord)), false
	}

	d := r.ScheduleRestore(e.opts.Clock, e.opts.RestoreDelay)
	e.track(d)
	return "", true
}

func (e *Engine) restoreNow(r *Reservation) {
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()
	if _, err := r.Restore(ctx); err != nil {
		e.logger.Warn("clipboard restore failed", "error", err.Error())
	}
}

// takeLatest cancels the most recent pending restore and returns its
// reservation. It returns nil when that restore already ran.
func (e *Engine) takeLatest() *Reservation {
	e.mu.Lock()
	d := e.latest
	e.latest = nil
	e.mu.Unlock()
	if d == nil || !d.Cancel() {
		return nil
	}
	return d.res
}

func (e *Engine) track(d *Deferred) {
	e.mu.Lock()
	e.pending[d] = struct{}{}
	e.latest = d
	e.mu.Unlock()
	go func() {
		<-d.Done()
		e.mu.Lock()
		delete(e.pending, d)
		e.mu.Unlock()
	}()
}

// Pending reports restores that have not run yet.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Close cancels pending clipboard restores.
func (e *Engine) Close() {
	e.mu.Lock()
	pending := make([]*Deferred, 0, len(e.pending))
	for d := range e.pending {
		pending = append(pending, d)
	}
	e.mu.Unlock()
	for _, d := range pending {
		d.Cancel()
	}
}
