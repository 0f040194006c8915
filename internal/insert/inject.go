package insert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/hypr"
)

// HyprInjector delivers the paste through hyprctl sendshortcut, addressed to
// the active window. Hyprland accepts the whole shortcut or none of it.
type HyprInjector struct {
	Shortcut string
}

func (h HyprInjector) SendChord(ctx context.Context, chord Chord) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 1200*time.Millisecond)
	defer cancel()

	window, err := activeWindowWithRetry(ctx, 5, 10*time.Millisecond)
	if err != nil {
		return 0, err
	}
	payload, err := buildPasteShortcut(h.Shortcut, window.Address)
	if err != nil {
		return 0, err
	}
	if err := hypr.SendShortcut(ctx, payload); err != nil {
		return 0, err
	}
	return len(chord), nil
}

func buildPasteShortcut(shortcut string, windowAddress string) (string, error) {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return "", fmt.Errorf("paste shortcut cannot be empty")
	}

	address := strings.TrimSpace(windowAddress)
	if address == "" {
		return "", fmt.Errorf("active window address is required")
	}

	return fmt.Sprintf("%s,address:%s", shortcut, address), nil
}

func activeWindowWithRetry(ctx context.Context, attempts int, delay time.Duration) (hypr.Window, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		window, err := hypr.QueryActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return hypr.Window{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("active window unavailable")
	}
	return hypr.Window{}, fmt.Errorf("resolve active window: %w", lastErr)
}

// CommandInjector runs a user-supplied paste command.
type CommandInjector struct {
	Argv []string
}

func (c CommandInjector) SendChord(ctx context.Context, chord Chord) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := runCommandWithInput(ctx, c.Argv, ""); err != nil {
		return 0, err
	}
	return len(chord), nil
}
