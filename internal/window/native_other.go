//go:build !windows

package window

import (
	"errors"
	"log/slog"
)

func newNativeTracker(*slog.Logger) (Tracker, error) {
	return nil, errors.New("native window tracking is only available on windows")
}
