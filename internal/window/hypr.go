package window

import (
	"context"

	"github.com/rbright/murmur/internal/hypr"
)

// HyprTracker tracks windows through hyprctl.
type HyprTracker struct{}

func (HyprTracker) Foreground(ctx context.Context) (Target, error) {
	w, err := hypr.QueryActiveWindow(ctx)
	if err != nil {
		return Target{}, err
	}
	process := w.Class
	if process == "" {
		process = w.InitialClass
	}
	return Target{Handle: w.Address, Title: w.Title, Process: process}, nil
}

func (HyprTracker) Alive(ctx context.Context, t Target) bool {
	clients, err := hypr.QueryClients(ctx)
	if err != nil {
		return false
	}
	for _, c := range clients {
		if c.Address == t.Handle {
			return true
		}
	}
	return false
}

func (HyprTracker) Focus(ctx context.Context, t Target) error {
	return hypr.FocusWindow(ctx, t.Handle)
}
