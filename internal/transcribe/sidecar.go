package transcribe

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// sidecarCandidates lists where the engine may have written its text, in
// lookup order and without duplicates.
func sidecarCandidates(normalized, original string) []string {
	raw := []string{
		changeExt(normalized, ".txt"),
		normalized + ".txt",
		changeExt(original, ".txt"),
		original + ".txt",
	}
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func changeExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// retrieve polls for a sidecar transcript and falls back to stdout. The
// returned source is "sidecar" or "stdout".
func (p *Pipeline) retrieve(ctx context.Context, normalized, original, stdout string) (string, string, error) {
	candidates := sidecarCandidates(normalized, original)

	for attempt := 0; attempt < p.opts.SidecarAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, p.opts.SidecarInterval); err != nil {
				return "", "", err
			}
		}
		for _, path := range candidates {
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				p.logger.Debug("sidecar read failed", "path", path, "error", err.Error())
				continue
			}
			if rerr := os.Remove(path); rerr != nil {
				p.logger.Warn("remove sidecar failed", "path", path, "error", rerr.Error())
			}
			return strings.TrimSpace(string(data)), "sidecar", nil
		}
	}

	p.logger.Debug("no sidecar transcript, using stdout", "attempts", p.opts.SidecarAttempts)
	return strings.TrimSpace(stdout), "stdout", nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
