package session

import (
	"log/slog"
	"time"

	"github.com/rbright/murmur/internal/fsm"
	"github.com/rbright/murmur/internal/insert"
)

// Result summarizes one dictation run.
type Result struct {
	State      fsm.State
	StartedAt  time.Time
	StoppedAt  time.Time
	FinishedAt time.Time
	Device     string
	Samples    int64
	Recorded   time.Duration
	Transcribe time.Duration
	Insert     time.Duration
	Transcript string
	Method     insert.Method
	Diagnostic string
	Target     string
	Cancelled  bool
	Err        error
}

func (r Result) log(logger *slog.Logger) {
	attrs := []any{
		"state", string(r.State),
		"device", r.Device,
		"samples", r.Samples,
		"recorded_ms", r.Recorded.Milliseconds(),
		"transcribe_ms", r.Transcribe.Milliseconds(),
		"insert_ms", r.Insert.Milliseconds(),
		"total_ms", r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
		"transcript_chars", len(r.Transcript),
		"method", string(r.Method),
		"target", r.Target,
		"cancelled", r.Cancelled,
	}
	if r.Diagnostic != "" {
		attrs = append(attrs, "diagnostic", r.Diagnostic)
	}
	if r.Err != nil {
		logger.Error("dictation run failed", append(attrs, "error", r.Err.Error())...)
		return
	}
	logger.Info("dictation run finished", attrs...)
}
