// Package transcribe runs an external whisper.cpp style engine on a finished
// capture file and retrieves its transcript.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/logging"
	"github.com/rbright/murmur/internal/transcript"
)

const (
	DefaultSidecarAttempts = 10
	DefaultSidecarInterval = 100 * time.Millisecond
)

// Request is one immutable transcription job.
type Request struct {
	AudioPath string
	Language  string
}

// Options configures the engine invocation.
type Options struct {
	Binary    string
	ModelPath string
	ExtraArgs []string
	// TempDir holds normalized copies. Empty means the OS temp dir.
	TempDir         string
	SidecarAttempts int
	SidecarInterval time.Duration
	// FFmpeg converts non-WAV input. Empty disables that path.
	FFmpeg     string
	Transcript transcript.Options
}

// Pipeline is safe for sequential and concurrent use; it holds no per-run
// state.
type Pipeline struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.SidecarAttempts <= 0 {
		opts.SidecarAttempts = DefaultSidecarAttempts
	}
	if opts.SidecarInterval <= 0 {
		opts.SidecarInterval = DefaultSidecarInterval
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Pipeline{opts: opts, logger: logger.With("component", "transcribe")}
}

// Transcribe normalizes the input, runs the engine, and returns cleaned
// text. Precondition failures are reported before anything is spawned.
func (p *Pipeline) Transcribe(ctx context.Context, req Request) (string, error) {
	binary, err := p.CheckEngine()
	if err != nil {
		return "", err
	}
	if err := requireFile(req.AudioPath); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMissingInput, req.AudioPath, err)
	}

	started := time.Now()
	normalized, err := p.normalize(ctx, req.AudioPath)
	if err != nil {
		return "", err
	}
	if normalized != req.AudioPath {
		defer func() {
			if rerr := os.Remove(normalized); rerr != nil && !os.IsNotExist(rerr) {
				p.logger.Warn("remove normalized audio failed", "path", normalized, "error", rerr.Error())
			}
		}()
	}

	stdout, err := p.runEngine(ctx, binary, p.args(normalized, req.Language))
	if err != nil {
		return "", err
	}

	raw, source, err := p.retrieve(ctx, normalized, req.AudioPath, stdout)
	if err != nil {
		return "", err
	}

	text := transcript.Clean(raw, p.opts.Transcript)
	p.logger.Info("transcription complete",
		"input", req.AudioPath,
		"normalized", normalized != req.AudioPath,
		"source", source,
		"chars", len(text),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	return text, nil
}

// CheckEngine verifies the engine binary and model, returning the resolved
// binary path.
func (p *Pipeline) CheckEngine() (string, error) {
	binary, err := resolveBinary(p.opts.Binary)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(p.opts.ModelPath) == "" {
		return "", fmt.Errorf("%w: no model configured", ErrMissingModel)
	}
	if err := requireFile(p.opts.ModelPath); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMissingModel, p.opts.ModelPath, err)
	}
	return binary, nil
}

func (p *Pipeline) args(input, language string) []string {
	args := []string{"-m", p.opts.ModelPath, "-f", input, "--output-txt", "--no-timestamps"}
	if lang := strings.TrimSpace(language); lang != "" {
		args = append(args, "-l", lang)
	}
	return append(args, p.opts.ExtraArgs...)
}

func resolveBinary(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: no engine configured", ErrMissingBinary)
	}
	if filepath.IsAbs(name) {
		if err := requireFile(name); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrMissingBinary, name, err)
		}
		return name, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMissingBinary, name, err)
	}
	return path, nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
