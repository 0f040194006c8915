//go:build windows

package hotkey

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	whKeyboardLL = 13
	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
	wmQuit       = 0x0012

	hookQueueLimit = 64
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
)

type kbdllHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type winMsg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

// HookWatcher installs a WH_KEYBOARD_LL hook on a dedicated, locked OS
// thread. The callback only queues the event; releases are never dropped.
type HookWatcher struct{}

func NewHookWatcher() *HookWatcher { return &HookWatcher{} }

func (HookWatcher) Watch(ctx context.Context) (<-chan KeyEvent, error) {
	ctx, cancel := context.WithCancel(ctx)
	queue := newKeyQueue(hookQueueLimit)
	out := make(chan KeyEvent)
	go queue.forward(ctx, out)
	ready := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer cancel()

		callback := windows.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
			if int32(nCode) >= 0 {
				k := (*kbdllHookStruct)(unsafe.Pointer(lParam))
				if key, ok := vkKeys[k.vkCode]; ok {
					switch wParam {
					case wmKeyDown, wmSysKeyDown:
						queue.push(KeyEvent{Key: key, Down: true})
					case wmKeyUp, wmSysKeyUp:
						queue.push(KeyEvent{Key: key})
					}
				}
			}
			ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
			return ret
		})

		hook, _, err := procSetWindowsHookExW.Call(whKeyboardLL, callback, 0, 0)
		if hook == 0 {
			ready <- errors.Join(errors.New("SetWindowsHookExW failed"), err)
			return
		}
		defer procUnhookWindowsHookEx.Call(hook)

		threadID := windows.GetCurrentThreadId()
		ready <- nil

		go func() {
			<-ctx.Done()
			procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
		}()

		var msg winMsg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) <= 0 {
				return
			}
		}
	}()

	if err := <-ready; err != nil {
		cancel()
		return nil, err
	}
	return out, nil
}

var vkKeys = func() map[uint32]Key {
	keys := map[uint32]Key{
		0x11: KeyCtrl, 0xA2: KeyCtrl, 0xA3: KeyCtrl,
		0x10: KeyShift, 0xA0: KeyShift, 0xA1: KeyShift,
		0x12: KeyAlt, 0xA4: KeyAlt, 0xA5: KeyAlt,
		0x5B: KeySuper, 0x5C: KeySuper,
		0x20: "space", 0x0D: "enter", 0x09: "tab", 0x1B: "escape",
		0x2E: "delete", 0x2D: "insert", 0x24: "home", 0x23: "end",
		0x21: "pageup", 0x22: "pagedown",
		0x25: "left", 0x26: "up", 0x27: "right", 0x28: "down",
	}
	for c := 'A'; c <= 'Z'; c++ {
		keys[uint32(c)] = Key(string(c - 'A' + 'a'))
	}
	for c := '0'; c <= '9'; c++ {
		keys[uint32(c)] = Key(string(c))
	}
	for i := 0; i < 12; i++ {
		keys[uint32(0x70+i)] = Key("f" + strconv.Itoa(i+1))
	}
	return keys
}()
