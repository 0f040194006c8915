//go:build !windows

package insert

import (
	"context"
	"errors"
)

type nativeInjector struct{}

// NewNativeInjector returns an injector that always fails; native injection
// is Windows-only.
func NewNativeInjector() Injector { return nativeInjector{} }

func (nativeInjector) SendChord(context.Context, Chord) (int, error) {
	return 0, errors.New("native key injection is only available on windows")
}
