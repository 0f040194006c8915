package transcribe

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingBinary = errors.New("transcription engine binary not found")
	ErrMissingModel  = errors.New("transcription model not found")
	ErrMissingInput  = errors.New("audio input not found")
	ErrEngineFailed  = errors.New("engine failed")
	ErrNormalize     = errors.New("audio normalization failed")
)

const genericEngineFailure = "transcription process failed without error output"

// EngineError is a non-zero engine exit with its diagnostic stream.
type EngineError struct {
	ExitCode int
	Stderr   string
}

func (e *EngineError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = genericEngineFailure
	}
	return fmt.Sprintf("engine failed: %s", msg)
}

// Is lets errors.Is(err, ErrEngineFailed) match.
func (e *EngineError) Is(target error) bool {
	return target == ErrEngineFailed
}
