// Package audio handles capture device discovery, selection, and recording
// one microphone session to a WAV file.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDeviceUnavailable means no capture device could be resolved.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrAlreadyCapturing guards the single capture slot.
	ErrAlreadyCapturing = errors.New("capture already in progress")
	// ErrNotCapturing is returned by Stop when nothing is recording.
	ErrNotCapturing = errors.New("no capture in progress")
	// ErrCaptureDiscarded is returned once by Stop after a device error
	// ended the session and removed its file.
	ErrCaptureDiscarded = errors.New("capture discarded after device error")
)

// Device describes one capture source.
type Device struct {
	Index       int
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selector expresses the configured device preference. Index >= 0 picks an
// explicit position in the device list and wins over Input.
type Selector struct {
	Index    int
	Input    string
	Fallback string
}

// DefaultSelector picks the OS default source.
func DefaultSelector() Selector {
	return Selector{Index: -1, Input: "default", Fallback: "default"}
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// Backend enumerates and opens capture devices.
type Backend interface {
	Devices(ctx context.Context) ([]Device, error)
	// Open starts streaming mono 16 kHz samples into sink. Sink calls are
	// serialized; a sink error ends the stream.
	Open(ctx context.Context, device Device, sink func([]int16) error) (Stream, error)
}

// Stream is one open capture stream.
type Stream interface {
	Stop() error
	// Err delivers a device failure that was not caused by Stop.
	Err() <-chan error
}

// Resolve applies the selection policy to a device list. Every failure wraps
// ErrDeviceUnavailable.
func Resolve(devices []Device, sel Selector) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, fmt.Errorf("%w: no audio input devices found", ErrDeviceUnavailable)
	}
	if sel.Index >= 0 {
		if sel.Index >= len(devices) {
			return Selection{}, fmt.Errorf("%w: device index %d out of range (%d devices)", ErrDeviceUnavailable, sel.Index, len(devices))
		}
		return Selection{Device: devices[sel.Index]}, nil
	}

	selection, err := choose(devices, sel.Input, sel.Fallback)
	if err != nil {
		return Selection{}, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return selection, nil
}

func (d Device) usable() bool { return d.Available && !d.Muted }

func (d Device) condition() string {
	switch {
	case d.Muted:
		return "muted"
	case !d.Available:
		return "unavailable"
	}
	return "usable"
}

func findDevice(devices []Device, match func(Device) bool) *Device {
	for i := range devices {
		if match(devices[i]) {
			return &devices[i]
		}
	}
	return nil
}

func matching(term string) func(Device) bool {
	return func(d Device) bool { return deviceMatches(d, term) }
}

func isDefaultTerm(term string) bool { return term == "" || term == "default" }

// choose applies the input and fallback preferences to an enumerated device
// list. A muted or unavailable primary falls through to the fallback, which
// is the default source unless one is named.
func choose(devices []Device, input, fallback string) (Selection, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	def := findDevice(devices, func(d Device) bool { return d.Default })

	primary := def
	switch {
	case !isDefaultTerm(input):
		if primary = findDevice(devices, matching(input)); primary == nil {
			return Selection{}, fmt.Errorf("capture.input %q did not match any device", input)
		}
	case def == nil:
		// The default source vanished between enumeration and resolution.
		first := findDevice(devices, Device.usable)
		if first == nil {
			return Selection{}, errors.New("default audio source is unavailable and no other device is usable")
		}
		return Selection{
			Device:   *first,
			Warning:  fmt.Sprintf("default audio source is gone; using %q", first.ID),
			Fallback: true,
		}, nil
	}
	if primary.usable() {
		return Selection{Device: *primary}, nil
	}

	reason := primary.condition()
	backup := def
	if !isDefaultTerm(fallback) {
		if backup = findDevice(devices, matching(fallback)); backup == nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, reason, fallback)
		}
	} else if backup == nil {
		return Selection{}, fmt.Errorf("primary input %q is %s and the default audio source is unavailable", primary.ID, reason)
	}
	if !backup.usable() {
		return Selection{}, fmt.Errorf("audio fallback device %q is %s", backup.ID, backup.condition())
	}
	return Selection{
		Device:   *backup,
		Warning:  fmt.Sprintf("capture.input %q is %s; falling back to %q", primary.ID, reason, backup.ID),
		Fallback: primary.ID != backup.ID,
	}, nil
}

// deviceMatches reports whether term is a substring of the device id or
// description, case-insensitively.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}
