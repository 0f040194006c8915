package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandServe      Command = "serve"
	CommandPress      Command = "press"
	CommandRelease    Command = "release"
	CommandCancel     Command = "cancel"
	CommandStatus     Command = "status"
	CommandReload     Command = "reload"
	CommandTranscribe Command = "transcribe"
	CommandDevices    Command = "devices"
	CommandDoctor     Command = "doctor"
	CommandHistory    Command = "history"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

// DefaultHistoryLimit is how many runs `history` prints without an argument.
const DefaultHistoryLimit = 10

// arity is the minimum and maximum positional arguments per command.
var arity = map[Command][2]int{
	CommandServe:      {0, 0},
	CommandPress:      {0, 0},
	CommandRelease:    {0, 0},
	CommandCancel:     {0, 0},
	CommandStatus:     {0, 0},
	CommandReload:     {0, 0},
	CommandTranscribe: {1, 1},
	CommandDevices:    {0, 0},
	CommandDoctor:     {0, 0},
	CommandHistory:    {0, 1},
	CommandVersion:    {0, 0},
	CommandHelp:       {0, 0},
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	haveCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "-h" || arg == "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case arg == "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
			haveCommand = true
		case arg == "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
			if parsed.ConfigPath == "" {
				return Parsed{}, errors.New("--config requires a path")
			}
		case strings.HasPrefix(arg, "-") && arg != "-":
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		case haveCommand:
			parsed.Args = append(parsed.Args, arg)
		default:
			cmd := Command(arg)
			if _, ok := arity[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			haveCommand = true
		}
	}

	bounds := arity[parsed.Command]
	if n := len(parsed.Args); n < bounds[0] || n > bounds[1] {
		if bounds[0] == bounds[1] && bounds[0] == 0 {
			return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
		return Parsed{}, fmt.Errorf("command %q expects %s", parsed.Command, usageOf(parsed.Command))
	}
	if parsed.Command == CommandHistory && len(parsed.Args) == 1 {
		if _, err := HistoryLimit(parsed.Args); err != nil {
			return Parsed{}, err
		}
	}

	return parsed, nil
}

// HistoryLimit reads the optional N of `history [N]`.
func HistoryLimit(args []string) (int, error) {
	if len(args) == 0 {
		return DefaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("history count must be a positive integer, got %q", args[0])
	}
	return n, nil
}

func usageOf(cmd Command) string {
	switch cmd {
	case CommandTranscribe:
		return "exactly one audio file"
	case CommandHistory:
		return "at most one count"
	default:
		return "no arguments"
	}
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [args]

Commands:
  serve            Run the dictation daemon
  press            Send a hotkey press to the daemon
  release          Send a hotkey release to the daemon
  cancel           Discard the active recording
  status           Print the daemon state
  reload           Ask the daemon to re-read its config
  transcribe FILE  Transcribe an audio file and print the text
  devices          List input devices with their index
  doctor           Run configuration and environment checks
  history [N]      Print the last N dictation runs (default %[2]d)
  version          Print version information
  help             Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/murmur/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName, DefaultHistoryLimit)
}
