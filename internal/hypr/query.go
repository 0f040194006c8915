package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Window is the subset of hyprctl's client JSON that murmur uses.
type Window struct {
	Address      string `json:"address"`
	Title        string `json:"title"`
	Class        string `json:"class"`
	InitialClass string `json:"initialClass"`
	PID          int    `json:"pid"`
}

func (w *Window) trim() {
	w.Address = strings.TrimSpace(w.Address)
	w.Title = strings.TrimSpace(w.Title)
	w.Class = strings.TrimSpace(w.Class)
	w.InitialClass = strings.TrimSpace(w.InitialClass)
}

// QueryActiveWindow fetches and validates the active window.
func QueryActiveWindow(ctx context.Context) (Window, error) {
	output, err := runHyprctlJSON(ctx, "activewindow")
	if err != nil {
		return Window{}, err
	}

	var window Window
	if err := json.Unmarshal(output, &window); err != nil {
		return Window{}, fmt.Errorf("decode hyprctl activewindow json: %w", err)
	}
	window.trim()
	if window.Address == "" {
		return Window{}, fmt.Errorf("hyprctl activewindow returned empty address")
	}
	return window, nil
}

// QueryClients lists every mapped client window.
func QueryClients(ctx context.Context) ([]Window, error) {
	output, err := runHyprctlJSON(ctx, "clients")
	if err != nil {
		return nil, err
	}

	var clients []Window
	if err := json.Unmarshal(output, &clients); err != nil {
		return nil, fmt.Errorf("decode hyprctl clients json: %w", err)
	}
	for i := range clients {
		clients[i].trim()
	}
	return clients, nil
}

// FocusWindow focuses a client by address.
func FocusWindow(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("focuswindow requires a window address")
	}
	out, err := runHyprctlOutput(ctx, "dispatch", "focuswindow", "address:"+address)
	if err != nil {
		return err
	}
	return dispatchOK(out)
}

// SendShortcut sends a literal hyprctl sendshortcut payload.
func SendShortcut(ctx context.Context, shortcut string) error {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return fmt.Errorf("sendshortcut requires a non-empty payload")
	}
	return runHyprctl(ctx, "--quiet", "dispatch", "sendshortcut", shortcut)
}

// Notify sends a Hyprland notification payload.
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = "rgb(89b4fa)"
	}
	return runHyprctl(
		ctx,
		"--quiet",
		"dispatch",
		"notify",
		strconv.Itoa(icon),
		strconv.Itoa(timeoutMS),
		color,
		text,
	)
}

// DismissNotify dismisses active Hyprland notifications.
func DismissNotify(ctx context.Context) error {
	return runHyprctl(ctx, "--quiet", "dispatch", "dismissnotify")
}

func runHyprctlJSON(ctx context.Context, target string) ([]byte, error) {
	return runHyprctlOutput(ctx, "-j", target)
}
