//go:build windows

package insert

import (
	"context"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	inputKeyboard  = 1
	keyeventfKeyUp = 0x0002
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

var sendInputKeys = map[string]uint16{
	"ctrl":   0x11,
	"shift":  0x10,
	"alt":    0x12,
	"insert": 0x2D,
	"v":      0x56,
}

type keybdInput struct {
	vk        uint16
	scan      uint16
	flags     uint32
	time      uint32
	extraInfo uintptr
}

// input mirrors INPUT with the keyboard arm of the union, padded to the
// size of MOUSEINPUT.
type input struct {
	typ uint32
	_   uint32
	ki  keybdInput
	_   [8]byte
}

type sendInputInjector struct{}

// NewNativeInjector returns the SendInput injector.
func NewNativeInjector() Injector { return sendInputInjector{} }

func (sendInputInjector) SendChord(_ context.Context, chord Chord) (int, error) {
	inputs := make([]input, 0, len(chord))
	for _, s := range chord {
		vk, ok := sendInputKeys[s.Key]
		if !ok {
			return 0, fmt.Errorf("sendinput: unsupported key %q", s.Key)
		}
		in := input{typ: inputKeyboard, ki: keybdInput{vk: vk}}
		if !s.Down {
			in.ki.flags = keyeventfKeyUp
		}
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		return 0, nil
	}

	n, _, callErr := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if n == 0 {
		return 0, fmt.Errorf("sendinput: %w", callErr)
	}
	return int(n), nil
}
