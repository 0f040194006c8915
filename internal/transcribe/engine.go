package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

// runEngine spawns the engine and drains stdout and stderr while it runs so
// a chatty engine cannot fill a pipe and stall. There is no timeout; long
// audio legitimately takes long.
func (p *Pipeline) runEngine(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("%w: stdout pipe: %v", ErrEngineFailed, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("%w: stderr pipe: %v", ErrEngineFailed, err)
	}

	p.logger.Debug("engine start", "binary", binary, "args", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: start %s: %v", ErrEngineFailed, binary, err)
	}

	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdout, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrPipe)
		return err
	})
	drainErr := g.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("engine interrupted: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return "", &EngineError{ExitCode: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
		}
		return "", fmt.Errorf("%w: %v", ErrEngineFailed, waitErr)
	}
	if drainErr != nil {
		p.logger.Warn("engine output drain incomplete", "error", drainErr.Error())
	}
	return stdout.String(), nil
}
