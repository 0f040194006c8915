// Package hypr wraps the hyprctl commands murmur needs: window queries,
// focus, shortcuts, and notifications.
package hypr

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Binary is the hyprctl executable name.
const Binary = "hyprctl"

func runHyprctl(ctx context.Context, args ...string) error {
	_, err := runHyprctlOutput(ctx, args...)
	return err
}

func runHyprctlOutput(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, Binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}

// dispatchOK checks hyprctl's plain-text dispatch reply. hyprctl exits 0 even
// when a dispatcher rejects its argument.
func dispatchOK(out []byte) error {
	reply := strings.TrimSpace(string(out))
	if reply == "" || strings.EqualFold(reply, "ok") {
		return nil
	}
	return fmt.Errorf("hyprctl dispatch: %s", reply)
}
