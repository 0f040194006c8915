//go:build windows

package window

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"unsafe"

	"golang.org/x/sys/windows"
)

const swRestore = 9

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetShellWindow           = user32.NewProc("GetShellWindow")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsIconic                 = user32.NewProc("IsIconic")
	procShowWindow               = user32.NewProc("ShowWindow")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
)

// Win32Tracker tracks top-level windows with user32.
type Win32Tracker struct{}

func newNativeTracker(*slog.Logger) (Tracker, error) {
	return Win32Tracker{}, nil
}

func (Win32Tracker) Foreground(context.Context) (Target, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return Target{}, fmt.Errorf("no foreground window")
	}
	if shell, _, _ := procGetShellWindow.Call(); shell == hwnd {
		return Target{}, fmt.Errorf("foreground is the desktop shell")
	}
	return Target{
		Handle:  formatHWND(hwnd),
		Title:   windowTitle(hwnd),
		Process: processName(hwnd),
	}, nil
}

func (Win32Tracker) Alive(_ context.Context, t Target) bool {
	hwnd, err := parseHWND(t.Handle)
	if err != nil {
		return false
	}
	ok, _, _ := procIsWindow.Call(hwnd)
	return ok != 0
}

func (Win32Tracker) Focus(_ context.Context, t Target) error {
	hwnd, err := parseHWND(t.Handle)
	if err != nil {
		return err
	}
	if iconic, _, _ := procIsIconic.Call(hwnd); iconic != 0 {
		procShowWindow.Call(hwnd, swRestore)
	}
	if ok, _, callErr := procSetForegroundWindow.Call(hwnd); ok == 0 {
		return fmt.Errorf("SetForegroundWindow(%s): %v", t.Handle, callErr)
	}
	return nil
}

func formatHWND(hwnd uintptr) string {
	return "0x" + strconv.FormatUint(uint64(hwnd), 16)
}

func parseHWND(handle string) (uintptr, error) {
	if len(handle) < 3 || handle[:2] != "0x" {
		return 0, fmt.Errorf("invalid window handle %q", handle)
	}
	v, err := strconv.ParseUint(handle[2:], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid window handle %q: %w", handle, err)
	}
	return uintptr(v), nil
}

func windowTitle(hwnd uintptr) string {
	n, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

func processName(hwnd uintptr) string {
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return ""
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	return filepath.Base(windows.UTF16ToString(buf[:size]))
}
