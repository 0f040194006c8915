// Package session runs one dictation at a time: capture while the hotkey is
// held, transcribe on release, then insert into the window that was focused
// at press time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/fsm"
	"github.com/rbright/murmur/internal/history"
	"github.com/rbright/murmur/internal/hotkey"
	"github.com/rbright/murmur/internal/indicator"
	"github.com/rbright/murmur/internal/insert"
	"github.com/rbright/murmur/internal/ipc"
	"github.com/rbright/murmur/internal/logging"
	"github.com/rbright/murmur/internal/transcribe"
	"github.com/rbright/murmur/internal/window"
)

const (
	focusAttempts   = 3
	focusRetryDelay = 50 * time.Millisecond
	cancelTimeout   = 2 * time.Second
	historyTimeout  = 2 * time.Second
)

var (
	errNothingToCancel = errors.New("no recording in progress")
	errNotIPCBackend   = errors.New("hotkey backend does not accept ipc edges")
	errNoRegistration  = errors.New("no hotkey registered")
	errReloadDisabled  = errors.New("reload is not available")
	errNotRunning      = errors.New("controller is not running")
)

type phase int

const (
	phaseTranscribe phase = iota + 1
	phaseInsert
)

// stepResult is what a worker hands back to the run loop.
type stepResult struct {
	phase   phase
	text    string
	insert  insert.Result
	target  window.Target
	elapsed time.Duration
	err     error
}

// Controller owns the dictation state machine. All state changes happen on
// the goroutine running Run; workers only report back through results.
type Controller struct {
	deps   Deps
	logger *slog.Logger
	memory window.Memory

	mu    sync.RWMutex
	state fsm.State

	langMu   sync.RWMutex
	language string

	running   chan struct{}
	cancels   chan chan error
	results   chan stepResult
	workers   sync.WaitGroup
	discarded <-chan struct{}
	run       *Result
	now       func() time.Time
}

func NewController(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if deps.Windows == nil {
		deps.Windows = window.NoneTracker{}
	}
	if deps.Indicator == nil {
		deps.Indicator = indicator.Nop{}
	}
	switch {
	case deps.FocusSettle == 0:
		deps.FocusSettle = DefaultFocusSettle
	case deps.FocusSettle < 0:
		deps.FocusSettle = 0
	}
	return &Controller{
		deps:     deps,
		logger:   logger.With("component", "session"),
		state:    fsm.StateIdle,
		language: deps.Language,
		running:  make(chan struct{}),
		cancels:  make(chan chan error),
		results:  make(chan stepResult, 1),
		now:      time.Now,
	}
}

// State is safe to call from any goroutine.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SetLanguage changes the language hint used by later runs.
func (c *Controller) SetLanguage(language string) {
	c.langMu.Lock()
	c.language = language
	c.langMu.Unlock()
}

func (c *Controller) currentLanguage() string {
	c.langMu.RLock()
	defer c.langMu.RUnlock()
	return c.language
}

// Run consumes hotkey events until ctx is done. An active recording is
// discarded on exit and in-flight workers are waited for. Run must only be
// called once.
func (c *Controller) Run(ctx context.Context) error {
	if c.deps.Hotkeys == nil || c.deps.Recorder == nil || c.deps.Pipeline == nil || c.deps.Inserter == nil {
		return errors.New("session: hotkeys, recorder, pipeline and inserter are required")
	}
	close(c.running)

	events := c.deps.Hotkeys.Events()
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.onHotkey(ctx, ev)
		case <-c.discarded:
			c.onDiscarded(ctx)
		case res := <-c.results:
			c.onStep(ctx, res)
		case reply := <-c.cancels:
			reply <- c.cancel(ctx)
		}
	}
}

func (c *Controller) shutdown() {
	if c.State() == fsm.StateRecording {
		if err := c.deps.Recorder.Cancel(); err != nil && !errors.Is(err, audio.ErrNotCapturing) {
			c.logger.Warn("discard recording on shutdown failed", "error", err.Error())
		}
	}
	c.workers.Wait()
	c.memory.Clear()
}

func (c *Controller) onHotkey(ctx context.Context, ev hotkey.Event) {
	switch ev.Kind {
	case hotkey.Pressed:
		c.onPressed(ctx)
	case hotkey.Released:
		c.onReleased(ctx, ev.Synthetic)
	}
}

func (c *Controller) onPressed(ctx context.Context) {
	if state := c.State(); state != fsm.StateIdle {
		c.logger.Debug("press ignored during active run", "state", string(state))
		return
	}

	target, err := c.deps.Windows.Foreground(ctx)
	if err != nil {
		c.logger.Debug("foreground window unavailable", "error", err.Error())
		c.memory.Clear()
	} else {
		c.memory.Remember(target)
	}

	path, err := c.deps.Recorder.Start(ctx, c.deps.Selector)
	if errors.Is(err, audio.ErrAlreadyCapturing) {
		c.logger.Warn("capture already running, press ignored")
		return
	}
	if err != nil {
		c.run = &Result{StartedAt: c.now()}
		c.fail(ctx, fmt.Errorf("start capture: %w", err))
		return
	}

	c.run = &Result{StartedAt: c.now(), Target: target.Label()}
	c.transition(fsm.EventStart)
	c.discarded = c.deps.Recorder.Discarded()
	c.deps.Indicator.ShowRecording(ctx)
	c.logger.Info("recording started", "path", path, "target", target.Label())
}

func (c *Controller) onReleased(ctx context.Context, synthetic bool) {
	if c.State() != fsm.StateRecording {
		return
	}
	c.discarded = nil

	rec, err := c.deps.Recorder.Stop()
	if errors.Is(err, audio.ErrCaptureDiscarded) || errors.Is(err, audio.ErrNotCapturing) {
		c.logger.Info("recording discarded", "reason", err.Error())
		c.silentReset(ctx)
		return
	}
	if err != nil {
		c.transition(fsm.EventStop)
		c.fail(ctx, fmt.Errorf("stop capture: %w", err))
		return
	}

	c.run.StoppedAt = c.now()
	c.run.Samples = rec.Samples
	c.run.Recorded = rec.Duration
	c.run.Device = rec.Device.ID

	c.transition(fsm.EventStop)
	c.deps.Indicator.CueStop(ctx)
	c.deps.Indicator.ShowTranscribing(ctx)
	c.logger.Info("recording stopped", "samples", rec.Samples, "duration_ms", rec.Duration.Milliseconds(), "synthetic", synthetic)

	req := transcribe.Request{AudioPath: rec.Path, Language: c.currentLanguage()}
	c.spawn(ctx, func(ctx context.Context) stepResult {
		return c.transcribeStep(ctx, req)
	})
}

func (c *Controller) onDiscarded(ctx context.Context) {
	c.discarded = nil
	if c.State() != fsm.StateRecording {
		return
	}
	// The recorder already tore the stream down; Stop only reports it.
	if _, err := c.deps.Recorder.Stop(); err != nil && !errors.Is(err, audio.ErrCaptureDiscarded) && !errors.Is(err, audio.ErrNotCapturing) {
		c.logger.Warn("stop after device loss failed", "error", err.Error())
	}
	c.logger.Warn("recording discarded after device error")
	c.silentReset(ctx)
}

func (c *Controller) onStep(ctx context.Context, res stepResult) {
	if c.run == nil {
		return
	}
	switch res.phase {
	case phaseTranscribe:
		c.run.Transcribe = res.elapsed
		if res.err != nil {
			c.fail(ctx, res.err)
			return
		}
		c.run.Transcript = res.text
		c.transition(fsm.EventTranscribed)
		text := res.text
		c.spawn(ctx, func(ctx context.Context) stepResult {
			return c.insertStep(ctx, text)
		})
	case phaseInsert:
		c.run.Insert = res.elapsed
		c.run.Method = res.insert.Method
		c.run.Diagnostic = res.insert.Diagnostic
		if res.target.Valid() {
			c.run.Target = res.target.Label()
		}
		if res.err != nil {
			c.fail(ctx, res.err)
			return
		}
		c.transition(fsm.EventInserted)
		c.deps.Indicator.CueComplete(ctx)
		c.deps.Indicator.Hide(ctx)
		c.finish(ctx, nil)
	}
}

func (c *Controller) cancel(ctx context.Context) error {
	if c.State() != fsm.StateRecording {
		return errNothingToCancel
	}
	c.discarded = nil
	if err := c.deps.Recorder.Cancel(); err != nil && !errors.Is(err, audio.ErrNotCapturing) {
		c.logger.Warn("discard recording failed", "error", err.Error())
	}
	c.deps.Indicator.CueCancel(ctx)
	c.run.Cancelled = true
	c.silentReset(ctx)
	c.logger.Info("recording cancelled")
	return nil
}

// spawn runs step on a worker and delivers its result to the run loop.
func (c *Controller) spawn(ctx context.Context, step func(context.Context) stepResult) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		res := step(ctx)
		select {
		case c.results <- res:
		case <-ctx.Done():
		}
	}()
}

func (c *Controller) transcribeStep(ctx context.Context, req transcribe.Request) stepResult {
	started := c.now()
	text, err := c.deps.Pipeline.Transcribe(ctx, req)
	if rerr := os.Remove(req.AudioPath); rerr != nil && !os.IsNotExist(rerr) {
		c.logger.Warn("remove recording failed", "path", req.AudioPath, "error", rerr.Error())
	}
	res := stepResult{phase: phaseTranscribe, elapsed: c.now().Sub(started)}
	switch {
	case err != nil:
		res.err = err
	case text == "":
		res.err = ErrEmptyTranscript
	default:
		res.text = text
	}
	return res
}

func (c *Controller) insertStep(ctx context.Context, text string) (res stepResult) {
	started := c.now()
	res.phase = phaseInsert
	defer func() { res.elapsed = c.now().Sub(started) }()

	remembered, ok := c.memory.Take()
	target, err := window.Resolve(ctx, c.deps.Windows, remembered, ok)
	if err != nil {
		res.err = err
		return res
	}
	res.target = target

	if err := window.FocusVerified(ctx, c.deps.Windows, target, focusAttempts, focusRetryDelay); err != nil {
		res.err = err
		return res
	}
	if target.Valid() && c.deps.FocusSettle > 0 {
		if err := sleepCtx(ctx, c.deps.FocusSettle); err != nil {
			res.err = err
			return res
		}
	}

	out, err := c.deps.Inserter.Insert(ctx, text)
	res.insert = out
	res.err = err
	return res
}

// silentReset returns to idle without reporting an error to the user.
func (c *Controller) silentReset(ctx context.Context) {
	c.memory.Clear()
	if c.State() == fsm.StateRecording {
		c.transition(fsm.EventCancel)
	} else {
		c.transition(fsm.EventFail)
		c.transition(fsm.EventReset)
	}
	c.deps.Indicator.Hide(ctx)
	if c.run != nil {
		c.run.State = c.State()
		c.run.FinishedAt = c.now()
		c.run.log(c.logger)
		c.run = nil
	}
}

func (c *Controller) fail(ctx context.Context, err error) {
	c.memory.Clear()
	c.transition(fsm.EventFail)
	c.deps.Indicator.ShowError(ctx, err.Error())
	c.finish(ctx, err)
	c.transition(fsm.EventReset)
}

func (c *Controller) finish(ctx context.Context, err error) {
	run := c.run
	c.run = nil
	if run == nil {
		return
	}
	run.State = c.State()
	run.FinishedAt = c.now()
	run.Err = err
	run.log(c.logger)
	c.record(ctx, *run)
}

func (c *Controller) record(ctx context.Context, run Result) {
	if c.deps.History == nil {
		return
	}
	entry := history.Entry{
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Transcript: run.Transcript,
		Method:     string(run.Method),
		Target:     run.Target,
		Device:     run.Device,
	}
	if run.Err != nil {
		entry.Err = run.Err.Error()
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if err := c.deps.History.Record(recordCtx, entry); err != nil {
		c.logger.Warn("record history failed", "error", err.Error())
	}
}

func (c *Controller) transition(ev fsm.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := fsm.Transition(c.state, ev)
	if err != nil {
		c.logger.Error("state transition rejected", "error", err.Error())
		return
	}
	c.state = next
}

// Handle answers one IPC request. It is safe to call from the socket server's
// goroutines.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Ok(string(c.State()), "")
	case ipc.CommandPress, ipc.CommandRelease:
		return c.forwardEdge(req.Command)
	case ipc.CommandCancel:
		if err := c.requestCancel(ctx); err != nil {
			return ipc.Fail(string(c.State()), err)
		}
		return ipc.Ok(string(c.State()), "cancelled")
	case ipc.CommandReload:
		if c.deps.Reload == nil {
			return ipc.Fail(string(c.State()), errReloadDisabled)
		}
		if err := c.deps.Reload(ctx); err != nil {
			return ipc.Fail(string(c.State()), err)
		}
		return ipc.Ok(string(c.State()), "reloaded")
	default:
		return ipc.Fail(string(c.State()), fmt.Errorf("unknown command %q", req.Command))
	}
}

func (c *Controller) forwardEdge(command string) ipc.Response {
	if c.deps.IPC == nil {
		return ipc.Fail(string(c.State()), errNotIPCBackend)
	}
	var ok bool
	if command == ipc.CommandPress {
		ok = c.deps.IPC.Press()
	} else {
		ok = c.deps.IPC.Release()
	}
	if !ok {
		return ipc.Fail(string(c.State()), errNoRegistration)
	}
	return ipc.Ok(string(c.State()), command)
}

func (c *Controller) requestCancel(ctx context.Context) error {
	select {
	case <-c.running:
	default:
		return errNotRunning
	}

	ctx, cancel := context.WithTimeout(ctx, cancelTimeout)
	defer cancel()
	reply := make(chan error, 1)
	select {
	case c.cancels <- reply:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
