package insert

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCommandWithInputWritesStdin(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	outputPath := filepath.Join(t.TempDir(), "stdin.txt")

	err := runCommandWithInput(context.Background(), []string{scriptPath, outputPath}, "hello from murmur")
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "hello from murmur", string(data))
}

func TestRunCommandWithInputRejectsEmptyArgv(t *testing.T) {
	err := runCommandWithInput(context.Background(), nil, "payload")
	require.Error(t, err)
	require.Contains(t, err.Error(), "argv cannot be empty")
}

func TestRunCommandWithInputIncludesStderr(t *testing.T) {
	err := runCommandWithInput(context.Background(), []string{writeFailScript(t, "clipboard failed")}, "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "clipboard failed")
}

func TestCommandClipboardRoundTrip(t *testing.T) {
	store := filepath.Join(t.TempDir(), "clipboard.txt")
	cb := CommandClipboard{
		SetArgv:   []string{writeStdinCaptureScript(t), store},
		ReadArgv:  []string{writeReadScript(t), store},
		ClearArgv: []string{writeClearScript(t), store},
	}
	ctx := context.Background()

	_, ok, err := cb.Read(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cb.Write(ctx, "hello"))
	text, ok, err := cb.Read(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello", text)

	require.NoError(t, cb.Clear(ctx))
	_, ok, err = cb.Read(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommandClipboardWriteFailure(t *testing.T) {
	cb := CommandClipboard{SetArgv: []string{writeFailScript(t, "no display")}}
	err := cb.Write(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "set clipboard")
}

func TestBuildPasteShortcut(t *testing.T) {
	t.Parallel()

	t.Run("builds payload", func(t *testing.T) {
		got, err := buildPasteShortcut("SUPER,V", "0xabc")
		require.NoError(t, err)
		require.Equal(t, "SUPER,V,address:0xabc", got)
	})

	t.Run("rejects empty shortcut", func(t *testing.T) {
		_, err := buildPasteShortcut("", "0xabc")
		require.Error(t, err)
		require.Contains(t, err.Error(), "shortcut")
	})

	t.Run("rejects empty address", func(t *testing.T) {
		_, err := buildPasteShortcut("CTRL,V", "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "address")
	})
}

func TestHyprInjectorDispatchesShortcut(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	t.Setenv("HYPR_ACTIVEWINDOW_JSON", `{"address":"0xabc","class":"ghostty","initialClass":"ghostty"}`)
	installHyprctlPasteStub(t, false)

	accepted, err := HyprInjector{Shortcut: "CTRL,V"}.SendChord(context.Background(), PasteChord())
	require.NoError(t, err)
	require.Equal(t, 4, accepted)

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "--quiet dispatch sendshortcut CTRL,V,address:0xabc")
}

func TestHyprInjectorReportsZeroOnDispatchFailure(t *testing.T) {
	t.Setenv("HYPR_ARGS_FILE", filepath.Join(t.TempDir(), "hypr-args.log"))
	installHyprctlPasteStub(t, true)

	accepted, err := HyprInjector{Shortcut: "CTRL,V"}.SendChord(context.Background(), PasteChord())
	require.Error(t, err)
	require.Zero(t, accepted)
}

func TestHyprInjectorFailsWhenActiveWindowAddressMissing(t *testing.T) {
	t.Setenv("HYPR_ARGS_FILE", filepath.Join(t.TempDir(), "hypr-args.log"))
	t.Setenv("HYPR_ACTIVEWINDOW_JSON", `{"address":"","class":"brave-browser"}`)
	installHyprctlPasteStub(t, false)

	_, err := HyprInjector{Shortcut: "CTRL,V"}.SendChord(context.Background(), PasteChord())
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty address")
}

func TestCommandInjector(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "pasted")
	accepted, err := CommandInjector{Argv: []string{writeStdinCaptureScript(t), marker}}.SendChord(context.Background(), PasteChord())
	require.NoError(t, err)
	require.Equal(t, 4, accepted)
	require.FileExists(t, marker)

	accepted, err = CommandInjector{Argv: []string{writeFailScript(t, "paste failed")}}.SendChord(context.Background(), PasteChord())
	require.Error(t, err)
	require.Zero(t, accepted)
}

func TestCheckEditable(t *testing.T) {
	editable := []uint32{1<<atspiStateEditable | 1<<atspiStateFocused, 0}
	ifaces := []string{"org.a11y.atspi.Accessible", atspiEditableText, "org.a11y.atspi.Text"}

	require.NoError(t, checkEditable(ifaces, editable, 0))
	require.ErrorIs(t, checkEditable([]string{"org.a11y.atspi.Text"}, editable, 0), ErrNotApplicable)
	require.ErrorIs(t, checkEditable(ifaces, []uint32{0, 0}, 0), ErrNotApplicable)
	require.ErrorIs(t, checkEditable(ifaces, []uint32{editable[0], 1 << (atspiStateReadOnly - 32)}, 0), ErrNotApplicable)
	require.ErrorIs(t, checkEditable(ifaces, []uint32{1 << atspiStateEditable, 0}, 0), ErrNotApplicable)
	require.ErrorIs(t, checkEditable(ifaces, editable, 5), ErrNotApplicable)
}

func TestNewStructuredOff(t *testing.T) {
	s, err := NewStructured("off", nil)
	require.NoError(t, err)
	require.Nil(t, s)

	_, err = NewStructured("sometimes", nil)
	require.Error(t, err)
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()
	return writeScript(t, "capture-stdin.sh", `cat > "$1"`)
}

func writeReadScript(t *testing.T) string {
	t.Helper()
	return writeScript(t, "read.sh", `if [[ ! -s "$1" ]]; then
  echo "Nothing is copied" >&2
  exit 1
fi
cat "$1"`)
}

func writeClearScript(t *testing.T) string {
	t.Helper()
	return writeScript(t, "clear.sh", `: > "$1"`)
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()
	return writeScript(t, "fail.sh", `echo "`+message+`" >&2
exit 1`)
}

func writeScript(t *testing.T, name string, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func installHyprctlPasteStub(t *testing.T, failDispatch bool) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "hyprctl")
	script := `#!/usr/bin/env bash
set -euo pipefail
if [[ "${1:-}" == "-j" && "${2:-}" == "activewindow" ]]; then
  if [[ -n "${HYPR_ACTIVEWINDOW_JSON:-}" ]]; then
    echo "${HYPR_ACTIVEWINDOW_JSON}"
  else
    echo '{"address":"0xabc","class":"brave-browser","initialClass":"brave-browser"}'
  fi
  exit 0
fi
if [[ "${HYPR_FAIL_DISPATCH:-}" == "1" ]]; then
  echo "sendshortcut failed" >&2
  exit 1
fi
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`
	if failDispatch {
		t.Setenv("HYPR_FAIL_DISPATCH", "1")
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSpace(script)+"\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
