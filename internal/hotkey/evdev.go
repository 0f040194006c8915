package hotkey

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/murmur/internal/logging"
)

// input_event on 64-bit Linux: timeval (16 bytes), type, code, value.
const (
	evdevEventSize = 24
	evKey          = 1

	keyUp     = 0
	keyDown   = 1
	keyRepeat = 2
)

var evdevKeys = map[uint16]Key{
	1: "escape", 15: "tab", 28: "enter", 57: "space",
	29: KeyCtrl, 97: KeyCtrl,
	42: KeyShift, 54: KeyShift,
	56: KeyAlt, 100: KeyAlt,
	125: KeySuper, 126: KeySuper,
	2: "1", 3: "2", 4: "3", 5: "4", 6: "5", 7: "6", 8: "7", 9: "8", 10: "9", 11: "0",
	16: "q", 17: "w", 18: "e", 19: "r", 20: "t", 21: "y", 22: "u", 23: "i", 24: "o", 25: "p",
	30: "a", 31: "s", 32: "d", 33: "f", 34: "g", 35: "h", 36: "j", 37: "k", 38: "l",
	44: "z", 45: "x", 46: "c", 47: "v", 48: "b", 49: "n", 50: "m",
	59: "f1", 60: "f2", 61: "f3", 62: "f4", 63: "f5", 64: "f6", 65: "f7", 66: "f8", 67: "f9", 68: "f10",
	87: "f11", 88: "f12",
	102: "home", 103: "up", 104: "pageup", 105: "left", 106: "right",
	107: "end", 108: "down", 109: "pagedown", 110: "insert", 111: "delete",
}

// decodeEvdev extracts a key transition from one raw input_event.
func decodeEvdev(buf []byte) (code uint16, value int32, ok bool) {
	if len(buf) < evdevEventSize {
		return 0, 0, false
	}
	if binary.LittleEndian.Uint16(buf[16:18]) != evKey {
		return 0, 0, false
	}
	code = binary.LittleEndian.Uint16(buf[18:20])
	value = int32(binary.LittleEndian.Uint32(buf[20:24]))
	return code, value, true
}

// EvdevSource reads keyboards under /dev/input. It serves as both a
// RegisteredHotkey (by tracking modifier state) and a RawKeyWatcher. Reading
// requires membership in the input group.
type EvdevSource struct {
	open   func() ([]io.ReadCloser, error)
	logger *slog.Logger

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	readers  []io.ReadCloser
	held     map[uint16]bool
	reg      *evdevRegistration
	watchers map[chan KeyEvent]struct{}
}

func NewEvdevSource(logger *slog.Logger) *EvdevSource {
	return newEvdevSource(openKeyboards, logger)
}

func newEvdevSource(open func() ([]io.ReadCloser, error), logger *slog.Logger) *EvdevSource {
	if logger == nil {
		logger = logging.Discard()
	}
	return &EvdevSource{
		open:     open,
		logger:   logger.With("component", "evdev"),
		held:     map[uint16]bool{},
		watchers: map[chan KeyEvent]struct{}{},
	}
}

func (s *EvdevSource) Register(b Binding) (Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.startLocked(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r := &evdevRegistration{
		owner:    s,
		binding:  b,
		pressed:  make(chan struct{}, 1),
		released: make(chan struct{}, 1),
	}
	s.reg = r
	return r, nil
}

// Watch streams key transitions until ctx is done. Repeats are dropped.
func (s *EvdevSource) Watch(ctx context.Context) (<-chan KeyEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.startLocked(); err != nil {
		return nil, err
	}
	ch := make(chan KeyEvent, 64)
	s.watchers[ch] = struct{}{}
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
	}()
	return ch, nil
}

// Close stops all readers and ends every watch.
func (s *EvdevSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.cancel()
	var errs []error
	for _, r := range s.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for ch := range s.watchers {
		delete(s.watchers, ch)
		close(ch)
	}
	s.readers = nil
	s.started = false
	return errors.Join(errs...)
}

func (s *EvdevSource) startLocked() error {
	if s.started {
		return nil
	}
	readers, err := s.open()
	if err != nil {
		return fmt.Errorf("open keyboards: %w", err)
	}
	if len(readers) == 0 {
		return errors.New("no readable keyboard devices")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.started = true
	s.cancel = cancel
	s.readers = readers
	for _, r := range readers {
		go s.read(ctx, r)
	}
	return nil
}

func (s *EvdevSource) read(ctx context.Context, r io.Reader) {
	buf := make([]byte, evdevEventSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("keyboard device read stopped", "error", err.Error())
			}
			return
		}
		code, value, ok := decodeEvdev(buf)
		if !ok || value == keyRepeat {
			continue
		}
		s.handle(code, value == keyDown)
	}
}

func (s *EvdevSource) handle(code uint16, down bool) {
	key, known := evdevKeys[code]

	s.mu.Lock()
	defer s.mu.Unlock()

	if down {
		s.held[code] = true
	} else {
		delete(s.held, code)
	}
	if !known {
		return
	}

	for ch := range s.watchers {
		select {
		case ch <- KeyEvent{Key: key, Down: down}:
		default:
		}
	}

	r := s.reg
	if r == nil {
		return
	}
	switch {
	case down && key == r.binding.Key() && s.heldModifiersLocked() == r.binding.Modifiers():
		r.holding = true
		signal(r.pressed)
	case !down && r.holding && r.binding.Involves(key):
		r.holding = false
		signal(r.released)
	}
}

func (s *EvdevSource) heldModifiersLocked() Modifier {
	var mods Modifier
	for code := range s.held {
		if m, ok := ModifierOf(evdevKeys[code]); ok {
			mods |= m
		}
	}
	return mods
}

type evdevRegistration struct {
	owner    *EvdevSource
	binding  Binding
	holding  bool
	pressed  chan struct{}
	released chan struct{}
}

func (r *evdevRegistration) Pressed() <-chan struct{}  { return r.pressed }
func (r *evdevRegistration) Released() <-chan struct{} { return r.released }

func (r *evdevRegistration) Unregister() error {
	r.owner.mu.Lock()
	defer r.owner.mu.Unlock()
	if r.owner.reg == r {
		r.owner.reg = nil
	}
	return nil
}

// parseInputDevices reads the /proc/bus/input/devices block format and keeps
// devices with a kbd handler and an event node.
func parseInputDevices(r io.Reader) ([]string, error) {
	var (
		devices  []string
		handler  string
		keyboard bool
	)
	flush := func() {
		if keyboard && handler != "" {
			devices = append(devices, "/dev/input/"+handler)
		}
		handler = ""
		keyboard = false
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		if rest, ok := strings.CutPrefix(line, "H: Handlers="); ok {
			for _, part := range strings.Fields(rest) {
				if part == "kbd" {
					keyboard = true
				}
				if strings.HasPrefix(part, "event") {
					handler = part
				}
			}
		}
	}
	flush()
	return devices, scanner.Err()
}
