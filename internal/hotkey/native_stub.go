//go:build !windows && !(linux && cgo && x11hotkey)

package hotkey

import "fmt"

// NativeSource is unavailable in this build; every Register call fails with
// ErrUnavailable. On Linux the X11 grab is opt-in (-tags x11hotkey) because
// golang.design/x/hotkey panics at init when no X display can be opened.
type NativeSource struct{}

func NewNativeSource() *NativeSource {
	return &NativeSource{}
}

func NativeSupported() bool { return false }

func (NativeSource) Register(b Binding) (Registration, error) {
	return nil, fmt.Errorf("%w: native hotkeys not compiled in, rebuild with -tags x11hotkey (%s)", ErrUnavailable, b)
}
