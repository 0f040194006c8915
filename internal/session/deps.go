package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/history"
	"github.com/rbright/murmur/internal/hotkey"
	"github.com/rbright/murmur/internal/indicator"
	"github.com/rbright/murmur/internal/insert"
	"github.com/rbright/murmur/internal/transcribe"
	"github.com/rbright/murmur/internal/window"
)

// ErrEmptyTranscript means the engine ran but produced no usable text.
var ErrEmptyTranscript = errors.New("no text produced")

// DefaultFocusSettle is the pause between focusing the target and inserting.
const DefaultFocusSettle = 180 * time.Millisecond

// Hotkeys is the coordinator surface the controller consumes.
type Hotkeys interface {
	Events() <-chan hotkey.Event
}

// Recorder is the capture surface the controller drives.
type Recorder interface {
	Start(ctx context.Context, sel audio.Selector) (string, error)
	Stop() (audio.Recording, error)
	Cancel() error
	Discarded() <-chan struct{}
}

// Transcriber turns a recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcribe.Request) (string, error)
}

// Inserter puts text into the focused application.
type Inserter interface {
	Insert(ctx context.Context, text string) (insert.Result, error)
}

// Deps are the collaborators a Controller needs. Windows, Indicator,
// History, IPC and Reload may be nil. A zero FocusSettle means
// DefaultFocusSettle and a negative one disables the pause.
type Deps struct {
	Hotkeys     Hotkeys
	Recorder    Recorder
	Pipeline    Transcriber
	Inserter    Inserter
	Windows     window.Tracker
	Indicator   indicator.Controller
	History     history.Recorder
	Selector    audio.Selector
	Language    string
	FocusSettle time.Duration
	Logger      *slog.Logger

	// IPC is set when hotkey edges arrive over the socket.
	IPC *hotkey.IPCSource
	// Reload re-reads configuration for the reload command.
	Reload func(context.Context) error
}
