//go:build windows

package hotkey

func platformRawWatcher() RawKeyWatcher { return NewHookWatcher() }
