package indicator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rbright/murmur/internal/config"
	"github.com/stretchr/testify/require"
)

func TestHyprNotifyDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	cfg.Enable = true
	cfg.Backend = "hypr"

	n := New(cfg, nil)
	n.ShowRecording(context.Background())
	n.ShowTranscribing(context.Background())
	n.ShowError(context.Background(), "")
	n.Hide(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "--quiet dispatch notify 1 300000 rgb(89b4fa) Recording…", lines[0])
	require.Equal(t, "--quiet dispatch notify 1 300000 rgb(cba6f7) Transcribing…", lines[1])
	require.Equal(t, "--quiet dispatch notify 3 1600 rgb(f38ba8) Dictation failed", lines[2])
	require.Equal(t, "--quiet dispatch dismissnotify", lines[3])
}

func TestShowErrorUsesProvidedTextAndDefaultTimeout(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.Backend = "hypr"
	cfg.SoundEnable = false
	cfg.ErrorTimeoutMS = 0

	New(cfg, nil).ShowError(context.Background(), "couldn't focus editor. text not inserted")

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, "--quiet dispatch notify 3 1200 rgb(f38ba8) couldn't focus editor. text not inserted\n", string(data))
}

func TestDisabledSkipsDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = false

	n := New(cfg, nil)
	n.ShowRecording(context.Background())
	n.ShowTranscribing(context.Background())
	n.ShowError(context.Background(), "ignored")
	n.Hide(context.Background())

	_, err := os.Stat(argsFile)
	require.True(t, os.IsNotExist(err))
}

type fakeBus struct {
	mu       sync.Mutex
	nextID   uint32
	notified []string
	replaced []uint32
	closed   []uint32
	err      error
}

func (f *fakeBus) Notify(_ context.Context, appName string, replaceID uint32, summary string, _ int) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.notified = append(f.notified, appName+": "+summary)
	f.replaced = append(f.replaced, replaceID)
	if replaceID != 0 {
		return replaceID, nil
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeBus) Close(_ context.Context, id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
	return nil
}

func TestDesktopBackendReplacesAndClosesNotification(t *testing.T) {
	cfg := config.IndicatorConfig{Enable: true, Backend: "desktop", DesktopAppName: "murmur"}
	bus := &fakeBus{nextID: 6}
	n := New(cfg, nil)
	n.bus = bus

	n.ShowRecording(context.Background())
	n.ShowTranscribing(context.Background())
	n.Hide(context.Background())
	n.Hide(context.Background())

	require.Equal(t, []string{"murmur: Recording…", "murmur: Transcribing…"}, bus.notified)
	require.Equal(t, []uint32{0, 7}, bus.replaced)
	require.Equal(t, []uint32{7}, bus.closed)
}

func TestDesktopBackendFailureIsSwallowed(t *testing.T) {
	cfg := config.IndicatorConfig{Enable: true, Backend: "desktop"}
	n := New(cfg, nil)
	n.bus = &fakeBus{err: errors.New("no notification daemon")}

	n.ShowError(context.Background(), "boom")
	n.Hide(context.Background())
}

func TestCuesPlaySequentially(t *testing.T) {
	cfg := config.IndicatorConfig{SoundEnable: true}
	n := New(cfg, nil)

	var mu sync.Mutex
	var played []cueKind
	n.play = func(_ context.Context, kind cueKind, _ config.IndicatorConfig) error {
		mu.Lock()
		defer mu.Unlock()
		played = append(played, kind)
		return nil
	}

	n.ShowRecording(context.Background())
	n.CueStop(context.Background())
	n.CueComplete(context.Background())
	n.CueCancel(context.Background())
	n.Wait()

	require.ElementsMatch(t, []cueKind{cueStart, cueStop, cueComplete, cueCancel}, played)
}

func installHyprctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "hyprctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
