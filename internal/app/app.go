package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/cli"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/doctor"
	"github.com/rbright/murmur/internal/history"
	"github.com/rbright/murmur/internal/ipc"
	"github.com/rbright/murmur/internal/logging"
	"github.com/rbright/murmur/internal/transcribe"
	"github.com/rbright/murmur/internal/version"
)

const (
	binaryName     = "murmur"
	forwardTimeout = 220 * time.Millisecond
	// edgeTimeout covers the daemon handing a press/release to the coordinator.
	edgeTimeout = 1500 * time.Millisecond
)

var errDaemonNotRunning = errors.New("murmur daemon is not running")

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded, logger)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandPress:
		return r.forwardOrFail(ctx, ipc.CommandPress, edgeTimeout)
	case cli.CommandRelease:
		return r.forwardOrFail(ctx, ipc.CommandRelease, edgeTimeout)
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.CommandCancel, forwardTimeout)
	case cli.CommandReload:
		return r.forwardOrFail(ctx, ipc.CommandReload, edgeTimeout)
	case cli.CommandTranscribe:
		return r.commandTranscribe(ctx, cfgLoaded.Config, parsed.Args[0], logger)
	case cli.CommandHistory:
		return r.commandHistory(ctx, cfgLoaded.Config, parsed.Args)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// listDevices is swapped in tests.
var listDevices = audio.ListDevices

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := listDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	tw := tabwriter.NewWriter(r.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tID\tDESCRIPTION\tSTATE\tFLAGS")
	for _, d := range devices {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", d.Index, d.ID, d.Description, d.State, deviceFlags(d))
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func deviceFlags(d audio.Device) string {
	var flags []string
	if d.Default {
		flags = append(flags, "default")
	}
	if !d.Available {
		flags = append(flags, "unavailable")
	}
	if d.Muted {
		flags = append(flags, "muted")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func (r Runner) commandTranscribe(ctx context.Context, cfg config.Config, path string, logger *slog.Logger) int {
	pipeline := transcribe.New(engineOptions(cfg), logger)
	text, err := pipeline.Transcribe(ctx, transcribe.Request{AudioPath: path, Language: cfg.Engine.Language})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(r.Stderr, "error: no text produced")
		return 1
	}
	fmt.Fprintln(r.Stdout, strings.TrimSpace(text))
	return 0
}

func (r Runner) commandHistory(ctx context.Context, cfg config.Config, args []string) int {
	limit, err := cli.HistoryLimit(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		fmt.Fprintln(r.Stderr, "error: history.path is empty")
		return 1
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.Stdout, "no dictation runs recorded")
		return 0
	}
	for _, e := range entries {
		fmt.Fprintln(r.Stdout, formatEntry(e))
	}
	return 0
}

func formatEntry(e history.Entry) string {
	outcome := fmt.Sprintf("%q", strings.TrimSpace(e.Transcript))
	if e.Err != "" {
		outcome = "error: " + e.Err
	}
	method := e.Method
	if method == "" {
		method = "-"
	}
	target := e.Target
	if target == "" {
		target = "-"
	}
	return fmt.Sprintf("%s  %6.1fs  %-10s  %-24s  %s",
		e.StartedAt.Local().Format(time.DateTime),
		e.Duration().Seconds(),
		method,
		target,
		outcome,
	)
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "stopped")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus, forwardTimeout)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "stopped")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string, timeout time.Duration) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command, timeout)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: %v\n", errDaemonNotRunning)
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func tryForward(ctx context.Context, socketPath string, command string, timeout time.Duration) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, timeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.Unreachable(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}
