package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/history"
	"github.com/rbright/murmur/internal/hotkey"
	"github.com/rbright/murmur/internal/ipc"
	"github.com/rbright/murmur/internal/logging"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "murmur")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestExecuteInvalidConfigFails(t *testing.T) {
	paths := setupRunnerEnv(t)
	require.NoError(t, os.WriteFile(paths.configPath, []byte(`{"hotkey": {"backend": "carrier-pigeon"}}`), 0o600))

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "hotkey.backend")
}

func TestRunnerStatusWhenDaemonStopped(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "stopped\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRunnerDevicesPrintsTable(t *testing.T) {
	paths := setupRunnerEnv(t)
	prev := listDevices
	t.Cleanup(func() { listDevices = prev })
	listDevices = func(context.Context) ([]audio.Device, error) {
		return []audio.Device{
			{Index: 0, ID: "alsa_input.usb-elgato", Description: "Elgato Wave 3", State: "idle", Available: true, Default: true},
			{Index: 1, ID: "bluez_input.sony", Description: "Sony WH-1000XM6", State: "suspended", Muted: true},
		}, nil
	}

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}
	require.Equal(t, 0, runner.Execute(context.Background(), []string{"--config", paths.configPath, "devices"}))

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "INDEX"))
	require.Regexp(t, `^0\s+alsa_input\.usb-elgato\s+Elgato Wave 3\s+idle\s+default$`, lines[1])
	require.Regexp(t, `^1\s+bluez_input\.sony\s+Sony WH-1000XM6\s+suspended\s+unavailable,muted$`, lines[2])
}

func TestRunnerDevicesFailures(t *testing.T) {
	paths := setupRunnerEnv(t)
	prev := listDevices
	t.Cleanup(func() { listDevices = prev })

	listDevices = func(context.Context) ([]audio.Device, error) { return nil, nil }
	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}
	require.Equal(t, 1, runner.Execute(context.Background(), []string{"--config", paths.configPath, "devices"}))
	require.Contains(t, stdout.String(), "no audio devices found")

	listDevices = func(context.Context) ([]audio.Device, error) { return nil, errors.New("connect pulse server: refused") }
	stderr.Reset()
	require.Equal(t, 1, runner.Execute(context.Background(), []string{"--config", paths.configPath, "devices"}))
	require.Contains(t, stderr.String(), "connect pulse server")
}

func TestRunnerPressWithoutDaemonFails(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "press"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), errDaemonNotRunning.Error())
}

func TestRunnerForwardsCommandsToDaemon(t *testing.T) {
	paths := setupRunnerEnv(t)
	commands := make(chan string, 8)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "murmur.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		commands <- req.Command
		switch req.Command {
		case ipc.CommandStatus:
			return ipc.Ok("recording", "")
		case ipc.CommandPress, ipc.CommandRelease, ipc.CommandCancel, ipc.CommandReload:
			return ipc.Ok("idle", req.Command+" handled")
		default:
			return ipc.Fail("idle", errors.New("unsupported"))
		}
	})
	defer shutdown()

	sent := []string{"status", "press", "release", "cancel", "reload"}
	for _, cmd := range sent {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		runner := Runner{Stdout: stdout, Stderr: stderr}

		exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, cmd})
		require.Equal(t, 0, exitCode, cmd)
		require.Empty(t, stderr.String(), cmd)
		if cmd == "status" {
			require.Equal(t, "recording\n", stdout.String())
		} else {
			require.Equal(t, cmd+" handled\n", stdout.String())
		}
	}

	got := make([]string, 0, len(sent))
	for range sent {
		got = append(got, <-commands)
	}
	require.Equal(t, sent, got)
}

func TestRunnerReportsDaemonErrors(t *testing.T) {
	paths := setupRunnerEnv(t)
	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "murmur.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		return ipc.Fail("idle", errors.New("no recording in progress"))
	})
	defer shutdown()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "cancel"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "no recording in progress")
}

func TestRunnerStatusFallsBackToIdleWhenServerStateEmpty(t *testing.T) {
	paths := setupRunnerEnv(t)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "murmur.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		require.Equal(t, ipc.CommandStatus, req.Command)
		return ipc.Response{OK: true, State: ""}
	})
	defer shutdown()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRunnerServeRefusesWhenDaemonAnswers(t *testing.T) {
	paths := setupRunnerEnv(t)
	socketPath := filepath.Join(paths.runtimeDir, "murmur.sock")
	shutdown := startIPCServerForRunnerTest(t, socketPath, func(context.Context, ipc.Request) ipc.Response {
		return ipc.Ok("idle", "")
	})
	defer shutdown()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "serve"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), ipc.ErrAlreadyRunning.Error())

	// The running daemon keeps its socket.
	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestRunnerServeFailsOnBadBindingAndCleansSocket(t *testing.T) {
	paths := setupRunnerEnv(t)
	require.NoError(t, os.WriteFile(paths.configPath, []byte(`{"hotkey": {"backend": "ipc", "binding": "ctrl+shift+space"}}`), 0o600))

	cfg, err := config.Load(paths.configPath)
	require.NoError(t, err)
	cfg.Config.Hotkey.Binding = "space"

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: logging.Discard()}

	exitCode := runner.commandServe(context.Background(), cfg, logging.Discard())
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "needs at least one modifier")

	_, statErr := os.Stat(filepath.Join(paths.runtimeDir, "murmur.sock"))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunnerTranscribeMissingInput(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "transcribe", filepath.Join(t.TempDir(), "missing.wav")})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "not found")
	require.Empty(t, stdout.String())
}

func TestRunnerHistoryPrintsRecentRuns(t *testing.T) {
	paths := setupRunnerEnv(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	require.NoError(t, os.WriteFile(paths.configPath, []byte(fmt.Sprintf(`{
  // run log
  "history": {"enable": true, "path": %q}
}`, dbPath)), 0o600))

	runner := func(args ...string) (int, string, string) {
		var stdout bytes.Buffer
		var stderr bytes.Buffer
		r := Runner{Stdout: &stdout, Stderr: &stderr}
		code := r.Execute(context.Background(), append([]string{"--config", paths.configPath}, args...))
		return code, stdout.String(), stderr.String()
	}

	code, out, _ := runner("history")
	require.Equal(t, 0, code)
	require.Contains(t, out, "no dictation runs recorded")

	store, err := history.Open(dbPath)
	require.NoError(t, err)
	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.Record(context.Background(), history.Entry{
		StartedAt: started, FinishedAt: started.Add(2 * time.Second),
		Transcript: "ship it ", Method: "clipboard", Target: "notes.txt",
	}))
	require.NoError(t, store.Record(context.Background(), history.Entry{
		StartedAt: started.Add(time.Minute), FinishedAt: started.Add(time.Minute + time.Second),
		Err: "no text produced",
	}))
	require.NoError(t, store.Close())

	code, out, stderr := runner("history", "5")
	require.Equal(t, 0, code, stderr)
	require.Contains(t, out, `"ship it"`)
	require.Contains(t, out, "notes.txt")
	require.Contains(t, out, "error: no text produced")

	code, _, stderr = runner("history", "0")
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "positive integer")
}

func TestFormatEntry(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local)
	line := formatEntry(history.Entry{StartedAt: started, FinishedAt: started.Add(1500 * time.Millisecond), Transcript: "hi "})
	require.Contains(t, line, "2026-03-01 09:30:00")
	require.Contains(t, line, "1.5s")
	require.Contains(t, line, `"hi"`)
	require.Contains(t, line, " - ")
}

func TestTryForwardSuccessAndFailureResponses(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "murmur.sock")
	shutdown := startIPCServerForRunnerTest(t, socketPath, func(_ context.Context, req ipc.Request) ipc.Response {
		switch req.Command {
		case ipc.CommandStatus:
			return ipc.Response{OK: true, State: "recording"}
		default:
			return ipc.Response{OK: false, Error: "unsupported"}
		}
	})
	defer shutdown()

	resp, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus, forwardTimeout)
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "recording", resp.State)

	_, handled, err = tryForward(context.Background(), socketPath, ipc.CommandCancel, forwardTimeout)
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported")
}

func TestTryForwardDoesNotRemoveSocketPathOnForwardFailure(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "murmur.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus, forwardTimeout)
	require.False(t, handled)
	require.NoError(t, err)

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestTryForwardTreatsReadFailuresAsHandledErrors(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "murmur.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus, forwardTimeout)
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), "forward command \"status\":")

	<-done
	require.NoError(t, listener.Close())
}

type fakeRebinder struct {
	calls []hotkey.Binding
	err   error
}

func (f *fakeRebinder) Rebind(_ context.Context, b hotkey.Binding) error {
	f.calls = append(f.calls, b)
	return f.err
}

type fakeLanguage struct{ last string }

func (f *fakeLanguage) SetLanguage(l string) { f.last = l }

func loadedWith(binding, language string) config.Loaded {
	cfg := config.Default()
	cfg.Hotkey.Binding = binding
	cfg.Engine.Language = language
	return config.Loaded{Config: cfg}
}

func TestReloaderAppliesBindingAndLanguage(t *testing.T) {
	hk := &fakeRebinder{}
	lang := &fakeLanguage{}
	rl := &reloader{hotkeys: hk, language: lang, logger: logging.Discard(), binding: hotkey.MustParseBinding("ctrl+shift+space")}

	require.NoError(t, rl.apply(context.Background(), loadedWith("ctrl+shift+space", "fr")))
	require.Empty(t, hk.calls)
	require.Equal(t, "fr", lang.last)

	require.NoError(t, rl.apply(context.Background(), loadedWith("ctrl+alt+f9", "")))
	require.Len(t, hk.calls, 1)
	require.True(t, hk.calls[0].Equal(hotkey.MustParseBinding("ctrl+alt+f9")))
	require.Empty(t, lang.last)

	require.NoError(t, rl.apply(context.Background(), loadedWith("ctrl+alt+f9", "")))
	require.Len(t, hk.calls, 1)
}

func TestReloaderKeepsBindingWhenRebindFails(t *testing.T) {
	hk := &fakeRebinder{err: hotkey.ErrUnavailable}
	original := hotkey.MustParseBinding("ctrl+shift+space")
	rl := &reloader{hotkeys: hk, logger: logging.Discard(), binding: original}

	err := rl.apply(context.Background(), loadedWith("ctrl+alt+f9", ""))
	require.ErrorIs(t, err, hotkey.ErrUnavailable)
	require.True(t, rl.binding.Equal(original))

	err = rl.apply(context.Background(), loadedWith("f9", ""))
	require.Error(t, err)
	require.Len(t, hk.calls, 1)
}

func TestReloaderReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"hotkey": {"binding": "ctrl+alt+f9"}, "engine": {"language": "de"}}`), 0o600))

	hk := &fakeRebinder{}
	lang := &fakeLanguage{}
	rl := &reloader{path: path, hotkeys: hk, language: lang, logger: logging.Discard(), binding: hotkey.MustParseBinding("ctrl+shift+space")}

	require.NoError(t, rl.reload(context.Background()))
	require.Len(t, hk.calls, 1)
	require.Equal(t, "de", lang.last)

	require.NoError(t, os.WriteFile(path, []byte(`{"hotkey": `), 0o600))
	require.Error(t, rl.reload(context.Background()))
}

type runnerPaths struct {
	configPath string
	runtimeDir string
}

func setupRunnerEnv(t *testing.T) runnerPaths {
	t.Helper()

	xdgStateHome := t.TempDir()
	runtimeDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte("{}\n"), 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir}
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(handler))
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

type fakeActivator struct{ err error }

func (f fakeActivator) Activate(context.Context, hotkey.Binding) error { return f.err }

type fakeErrors struct{ shown []string }

func (f *fakeErrors) ShowError(_ context.Context, text string) { f.shown = append(f.shown, text) }

func TestActivateKeepsServingWhenHotkeyUnavailable(t *testing.T) {
	b := hotkey.MustParseBinding("ctrl+shift+space")

	ui := &fakeErrors{}
	bound, err := activate(context.Background(), fakeActivator{}, b, ui, logging.Discard())
	require.NoError(t, err)
	require.True(t, bound.Equal(b))
	require.Empty(t, ui.shown)

	bound, err = activate(context.Background(), fakeActivator{err: fmt.Errorf("%w: grabbed elsewhere", hotkey.ErrUnavailable)}, b, ui, logging.Discard())
	require.NoError(t, err)
	require.True(t, bound.IsZero())
	require.Len(t, ui.shown, 1)
	require.Contains(t, ui.shown[0], "Hotkey unavailable")

	_, err = activate(context.Background(), fakeActivator{err: context.Canceled}, b, ui, logging.Discard())
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, ui.shown, 1)
}

func TestReloaderRetriesBindingAfterFailedActivation(t *testing.T) {
	hk := &fakeRebinder{}
	rl := &reloader{hotkeys: hk, logger: logging.Discard()}

	require.NoError(t, rl.apply(context.Background(), loadedWith("ctrl+shift+space", "")))
	require.Len(t, hk.calls, 1)
	require.True(t, rl.binding.Equal(hotkey.MustParseBinding("ctrl+shift+space")))
}
