package insert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"
)

const clipboardCommandTimeout = 2 * time.Second

// CommandClipboard drives the clipboard through external commands such as
// wl-copy and wl-paste.
type CommandClipboard struct {
	SetArgv   []string
	ReadArgv  []string
	ClearArgv []string
}

// Write pipes text into SetArgv.
func (c CommandClipboard) Write(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, clipboardCommandTimeout)
	defer cancel()
	if err := runCommandWithInput(ctx, c.SetArgv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

// Read runs ReadArgv. A non-zero exit means the clipboard holds no text
// (wl-paste exits 1 with "Nothing is copied").
func (c CommandClipboard) Read(ctx context.Context) (string, bool, error) {
	if len(c.ReadArgv) == 0 {
		return "", false, fmt.Errorf("read clipboard: command argv cannot be empty")
	}
	ctx, cancel := context.WithTimeout(ctx, clipboardCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.ReadArgv[0], c.ReadArgv[1:]...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read clipboard: %w", err)
	}
	text := stdout.String()
	return text, text != "", nil
}

// Clear runs ClearArgv, or writes an empty string when no clear command is
// configured.
func (c CommandClipboard) Clear(ctx context.Context) error {
	if len(c.ClearArgv) == 0 {
		return c.Write(ctx, "")
	}
	ctx, cancel := context.WithTimeout(ctx, clipboardCommandTimeout)
	defer cancel()
	if err := runCommandWithInput(ctx, c.ClearArgv, ""); err != nil {
		return fmt.Errorf("clear clipboard: %w", err)
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return fmt.Errorf("wait for %s: %w (%s)", argv[0], err, msg)
		}
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}

// SystemClipboard uses the platform clipboard API (xclip/xsel/wl-clipboard on
// Linux, the Win32 clipboard on Windows).
type SystemClipboard struct{}

// SystemClipboardSupported reports whether a system clipboard backend exists.
func SystemClipboardSupported() bool { return !clipboard.Unsupported }

func (SystemClipboard) Read(context.Context) (string, bool, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", false, fmt.Errorf("read clipboard: %w", err)
	}
	return text, text != "", nil
}

func (SystemClipboard) Write(_ context.Context, text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

func (s SystemClipboard) Clear(ctx context.Context) error {
	return s.Write(ctx, "")
}
