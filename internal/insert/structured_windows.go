//go:build windows

package insert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	gwlStyle         = -16
	esReadOnly       = 0x0800
	wmSetText        = 0x000C
	wmGetTextLength  = 0x000E
	classNameBufSize = 256
)

var (
	procGetGUIThreadInfo  = user32.NewProc("GetGUIThreadInfo")
	procGetClassNameW     = user32.NewProc("GetClassNameW")
	procGetWindowLongPtrW = user32.NewProc("GetWindowLongPtrW")
	procSendMessageW      = user32.NewProc("SendMessageW")
)

type rect struct{ left, top, right, bottom int32 }

type guiThreadInfo struct {
	size        uint32
	flags       uint32
	active      windows.HWND
	focus       windows.HWND
	capture     windows.HWND
	menuOwner   windows.HWND
	moveSize    windows.HWND
	caret       windows.HWND
	caretBounds rect
}

// win32Structured sets the text of an empty, writable Edit control.
type win32Structured struct {
	logger *slog.Logger
}

func newPlatformStructured(logger *slog.Logger) (Structured, error) {
	return &win32Structured{logger: logger}, nil
}

func (w *win32Structured) TryInsert(_ context.Context, text string) error {
	info := guiThreadInfo{}
	info.size = uint32(unsafe.Sizeof(info))
	if ok, _, err := procGetGUIThreadInfo.Call(0, uintptr(unsafe.Pointer(&info))); ok == 0 {
		return fmt.Errorf("%w: GetGUIThreadInfo: %v", ErrNotApplicable, err)
	}
	hwnd := uintptr(info.focus)
	if hwnd == 0 {
		return fmt.Errorf("%w: no focused control", ErrNotApplicable)
	}

	buf := make([]uint16, classNameBufSize)
	n, _, _ := procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	class := windows.UTF16ToString(buf[:n])
	if !strings.EqualFold(class, "Edit") {
		return fmt.Errorf("%w: focused control class %q", ErrNotApplicable, class)
	}

	index := int32(gwlStyle)
	style, _, _ := procGetWindowLongPtrW.Call(hwnd, uintptr(index))
	if style&esReadOnly != 0 {
		return fmt.Errorf("%w: control is read-only", ErrNotApplicable)
	}
	if length, _, _ := procSendMessageW.Call(hwnd, wmGetTextLength, 0, 0); length != 0 {
		return fmt.Errorf("%w: control already has text", ErrNotApplicable)
	}

	ptr, err := windows.UTF16PtrFromString(text)
	if err != nil {
		return err
	}
	if ok, _, _ := procSendMessageW.Call(hwnd, wmSetText, 0, uintptr(unsafe.Pointer(ptr))); ok == 0 {
		return fmt.Errorf("WM_SETTEXT was rejected")
	}
	return nil
}
