//go:build !linux

package insert

import (
	"context"
	"errors"
)

// UinputInjector is Linux-only.
type UinputInjector struct{}

func NewUinputInjector() *UinputInjector { return &UinputInjector{} }

func (*UinputInjector) SendChord(context.Context, Chord) (int, error) {
	return 0, errors.New("uinput injection is only available on linux")
}
