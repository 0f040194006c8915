package hotkey

import (
	"context"
	"encoding/binary"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func rawEvent(typ, code uint16, value int32) []byte {
	buf := make([]byte, evdevEventSize)
	binary.LittleEndian.PutUint16(buf[16:18], typ)
	binary.LittleEndian.PutUint16(buf[18:20], code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(value))
	return buf
}

func TestDecodeEvdev(t *testing.T) {
	code, value, ok := decodeEvdev(rawEvent(evKey, 57, keyDown))
	require.True(t, ok)
	require.Equal(t, uint16(57), code)
	require.Equal(t, int32(keyDown), value)

	_, _, ok = decodeEvdev(rawEvent(0, 0, 0))
	require.False(t, ok, "EV_SYN is not a key event")

	_, _, ok = decodeEvdev(make([]byte, 8))
	require.False(t, ok)
}

func newPipeSource(t *testing.T) (*EvdevSource, *io.PipeWriter) {
	t.Helper()
	pr, pw := io.Pipe()
	src := newEvdevSource(func() ([]io.ReadCloser, error) {
		return []io.ReadCloser{pr}, nil
	}, nil)
	t.Cleanup(func() {
		_ = pw.Close()
		_ = src.Close()
	})
	return src, pw
}

func write(t *testing.T, w io.Writer, code uint16, value int32) {
	t.Helper()
	_, err := w.Write(rawEvent(evKey, code, value))
	require.NoError(t, err)
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal")
	}
}

func TestEvdevRegistrationTracksModifiers(t *testing.T) {
	src, w := newPipeSource(t)
	reg, err := src.Register(MustParseBinding("ctrl+shift+space"))
	require.NoError(t, err)

	// Space without modifiers does nothing.
	write(t, w, 57, keyDown)
	write(t, w, 57, keyUp)

	write(t, w, 29, keyDown) // left ctrl
	write(t, w, 54, keyDown) // right shift
	write(t, w, 57, keyDown) // space
	write(t, w, 57, keyRepeat)
	waitSignal(t, reg.Pressed())

	write(t, w, 54, keyUp)
	waitSignal(t, reg.Released())

	select {
	case <-reg.Pressed():
		t.Fatal("unexpected second press")
	default:
	}
	require.NoError(t, reg.Unregister())
}

func TestEvdevRegistrationRequiresExactModifiers(t *testing.T) {
	src, w := newPipeSource(t)
	reg, err := src.Register(MustParseBinding("ctrl+space"))
	require.NoError(t, err)

	write(t, w, 29, keyDown)
	write(t, w, 56, keyDown) // alt is not part of the binding
	write(t, w, 57, keyDown)
	write(t, w, 57, keyUp)
	write(t, w, 56, keyUp)
	write(t, w, 57, keyDown)
	waitSignal(t, reg.Pressed())
}

func TestEvdevWatchStreamsTransitions(t *testing.T) {
	src, w := newPipeSource(t)
	ctx, cancel := context.WithCancel(context.Background())
	events, err := src.Watch(ctx)
	require.NoError(t, err)

	write(t, w, 30, keyDown)
	write(t, w, 30, keyRepeat)
	write(t, w, 30, keyUp)
	write(t, w, 125, keyUp)

	var got []KeyEvent
	for len(got) < 3 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for key events")
		}
	}
	require.Equal(t, []KeyEvent{
		{Key: "a", Down: true},
		{Key: "a"},
		{Key: KeySuper},
	}, got)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestEvdevRegisterFailsWithoutDevices(t *testing.T) {
	src := newEvdevSource(func() ([]io.ReadCloser, error) { return nil, nil }, nil)
	_, err := src.Register(MustParseBinding("ctrl+space"))
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestEvdevDrivesCoordinator(t *testing.T) {
	src, w := newPipeSource(t)
	c := NewCoordinator(src, src, nil)
	t.Cleanup(c.Close)

	require.NoError(t, c.Activate(context.Background(), MustParseBinding("ctrl+shift+space")))
	write(t, w, 29, keyDown)
	write(t, w, 42, keyDown)
	write(t, w, 57, keyDown)
	require.Equal(t, Pressed, nextEvent(t, c).Kind)

	write(t, w, 57, keyUp)
	require.Equal(t, Released, nextEvent(t, c).Kind)
	write(t, w, 42, keyUp)
	write(t, w, 29, keyUp)
	requireNoEvent(t, c)
}

func TestParseInputDevices(t *testing.T) {
	const proc = `I: Bus=0011 Vendor=0001 Product=0001 Version=ab41
N: Name="AT Translated Set 2 keyboard"
H: Handlers=sysrq kbd leds event3
B: KEY=402000000 3803078f800d001 feffffdfffefffff fffffffffffffffe

I: Bus=0003 Vendor=046d Product=c52b Version=0111
N: Name="Logitech USB Receiver Mouse"
H: Handlers=mouse0 event5
B: KEY=ffff0000 0 0 0 0

I: Bus=0003 Vendor=05ac Product=024f Version=0111
N: Name="Apple Keyboard"
H: Handlers=sysrq kbd event7 leds
`
	devices, err := parseInputDevices(strings.NewReader(proc))
	require.NoError(t, err)
	require.Equal(t, []string{"/dev/input/event3", "/dev/input/event7"}, devices)
}
