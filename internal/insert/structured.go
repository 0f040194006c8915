package insert

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/murmur/internal/logging"
)

// NewStructured returns the platform accessibility inserter for mode "auto",
// or nil for "off". An unavailable backend is logged and yields nil.
func NewStructured(mode string, logger *slog.Logger) (Structured, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "off":
		return nil, nil
	case "", "auto":
		s, err := newPlatformStructured(logger)
		if err != nil {
			logger.Warn("structured insertion unavailable", "error", err.Error())
			return nil, nil
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported structured mode %q", mode)
	}
}
