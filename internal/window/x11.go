package window

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// X11Tracker tracks windows through xdotool.
type X11Tracker struct{}

func (X11Tracker) Foreground(ctx context.Context) (Target, error) {
	id, err := xdotool(ctx, "getactivewindow")
	if err != nil {
		return Target{}, err
	}
	if id == "" {
		return Target{}, fmt.Errorf("xdotool getactivewindow returned no window")
	}

	t := Target{Handle: id}
	if title, err := xdotool(ctx, "getwindowname", id); err == nil {
		t.Title = title
	}
	if pid, err := xdotool(ctx, "getwindowpid", id); err == nil && pid != "" {
		if comm, err := os.ReadFile("/proc/" + pid + "/comm"); err == nil {
			t.Process = strings.TrimSpace(string(comm))
		}
	}
	return t, nil
}

func (X11Tracker) Alive(ctx context.Context, t Target) bool {
	if !t.Valid() {
		return false
	}
	_, err := xdotool(ctx, "getwindowname", t.Handle)
	return err == nil
}

func (X11Tracker) Focus(ctx context.Context, t Target) error {
	_, err := xdotool(ctx, "windowactivate", "--sync", t.Handle)
	return err
}

func xdotool(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "xdotool", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return "", fmt.Errorf("xdotool %v failed: %w", args, err)
		}
		return "", fmt.Errorf("xdotool %v failed: %w (%s)", args, err, trimmed)
	}
	return strings.TrimSpace(string(out)), nil
}
