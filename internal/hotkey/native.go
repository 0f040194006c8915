//go:build windows || (linux && cgo && x11hotkey)

package hotkey

import (
	"fmt"
	"sync"

	xhotkey "golang.design/x/hotkey"
)

// NativeSource registers bindings with the OS through golang.design/x/hotkey
// (RegisterHotKey on Windows, an X11 key grab on Linux).
type NativeSource struct{}

func NewNativeSource() *NativeSource {
	return &NativeSource{}
}

// NativeSupported reports whether this build can register OS hotkeys.
func NativeSupported() bool { return true }

func (NativeSource) Register(b Binding) (Registration, error) {
	mods, key, err := nativeCombo(b)
	if err != nil {
		return nil, err
	}

	hk := xhotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, b, err)
	}

	r := &nativeRegistration{
		hk:       hk,
		pressed:  make(chan struct{}, 1),
		released: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go r.forward()
	return r, nil
}

func nativeCombo(b Binding) ([]xhotkey.Modifier, xhotkey.Key, error) {
	var mods []xhotkey.Modifier
	for _, m := range modifierOrder {
		if !b.Modifiers().Has(m) {
			continue
		}
		nm, ok := nativeModifiers[m]
		if !ok {
			return nil, 0, fmt.Errorf("%w: modifier %s not supported natively", ErrUnavailable, modifierNames[m])
		}
		mods = append(mods, nm)
	}

	key, ok := nativeKeys[b.Key()]
	if !ok {
		key, ok = nativeExtraKeys[b.Key()]
	}
	if !ok {
		return nil, 0, fmt.Errorf("%w: key %s not supported natively", ErrUnavailable, b.Key())
	}
	return mods, key, nil
}

var nativeKeys = map[Key]xhotkey.Key{
	"a": xhotkey.KeyA, "b": xhotkey.KeyB, "c": xhotkey.KeyC, "d": xhotkey.KeyD,
	"e": xhotkey.KeyE, "f": xhotkey.KeyF, "g": xhotkey.KeyG, "h": xhotkey.KeyH,
	"i": xhotkey.KeyI, "j": xhotkey.KeyJ, "k": xhotkey.KeyK, "l": xhotkey.KeyL,
	"m": xhotkey.KeyM, "n": xhotkey.KeyN, "o": xhotkey.KeyO, "p": xhotkey.KeyP,
	"q": xhotkey.KeyQ, "r": xhotkey.KeyR, "s": xhotkey.KeyS, "t": xhotkey.KeyT,
	"u": xhotkey.KeyU, "v": xhotkey.KeyV, "w": xhotkey.KeyW, "x": xhotkey.KeyX,
	"y": xhotkey.KeyY, "z": xhotkey.KeyZ,
	"0": xhotkey.Key0, "1": xhotkey.Key1, "2": xhotkey.Key2, "3": xhotkey.Key3,
	"4": xhotkey.Key4, "5": xhotkey.Key5, "6": xhotkey.Key6, "7": xhotkey.Key7,
	"8": xhotkey.Key8, "9": xhotkey.Key9,
	"f1": xhotkey.KeyF1, "f2": xhotkey.KeyF2, "f3": xhotkey.KeyF3, "f4": xhotkey.KeyF4,
	"f5": xhotkey.KeyF5, "f6": xhotkey.KeyF6, "f7": xhotkey.KeyF7, "f8": xhotkey.KeyF8,
	"f9": xhotkey.KeyF9, "f10": xhotkey.KeyF10, "f11": xhotkey.KeyF11, "f12": xhotkey.KeyF12,
	"space":  xhotkey.KeySpace,
	"enter":  xhotkey.KeyReturn,
	"escape": xhotkey.KeyEscape,
	"delete": xhotkey.KeyDelete,
	"tab":    xhotkey.KeyTab,
	"left":   xhotkey.KeyLeft,
	"right":  xhotkey.KeyRight,
	"up":     xhotkey.KeyUp,
	"down":   xhotkey.KeyDown,
}

type nativeRegistration struct {
	hk       *xhotkey.Hotkey
	pressed  chan struct{}
	released chan struct{}
	done     chan struct{}
	once     sync.Once
}

func (r *nativeRegistration) forward() {
	for {
		select {
		case <-r.done:
			return
		case <-r.hk.Keydown():
			signal(r.pressed)
		case <-r.hk.Keyup():
			signal(r.released)
		}
	}
}

func (r *nativeRegistration) Pressed() <-chan struct{}  { return r.pressed }
func (r *nativeRegistration) Released() <-chan struct{} { return r.released }

func (r *nativeRegistration) Unregister() error {
	var err error
	r.once.Do(func() {
		close(r.done)
		err = r.hk.Unregister()
	})
	return err
}
