//go:build linux

package insert

import (
	"context"
	"fmt"
	"time"

	"github.com/micmonay/keybd_event"
)

// uinputSettle is how long the kernel needs before a fresh uinput device
// delivers events to clients.
const uinputSettle = 2 * time.Second

// UinputInjector types Ctrl+V through a virtual /dev/uinput keyboard.
type UinputInjector struct {
	ready chan struct{}
	kb    keybd_event.KeyBonding
	err   error
}

// NewUinputInjector creates the virtual keyboard in the background. The first
// SendChord waits for it to settle.
func NewUinputInjector() *UinputInjector {
	u := &UinputInjector{ready: make(chan struct{})}
	go func() {
		defer close(u.ready)
		kb, err := keybd_event.NewKeyBonding()
		if err != nil {
			u.err = fmt.Errorf("create uinput keyboard: %w", err)
			return
		}
		time.Sleep(uinputSettle)
		u.kb = kb
	}()
	return u
}

func (u *UinputInjector) SendChord(ctx context.Context, chord Chord) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-u.ready:
	}
	if u.err != nil {
		return 0, u.err
	}

	kb := u.kb
	kb.Clear()
	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_V)

	if err := kb.Press(); err != nil {
		return 0, err
	}
	accepted := len(chord) / 2
	time.Sleep(10 * time.Millisecond)
	if err := kb.Release(); err != nil {
		return accepted, err
	}
	return len(chord), nil
}
