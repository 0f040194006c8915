//go:build linux

package insert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/rbright/murmur/internal/logging"
)

const (
	a11yBusName      = "org.a11y.Bus"
	a11yBusPath      = "/org/a11y/bus"
	atspiRegistry    = "org.a11y.atspi.Registry"
	atspiRegistryObj = "/org/a11y/atspi/registry"
	atspiEventObject = "org.a11y.atspi.Event.Object"
	atspiFocusEvent  = "object:state-changed:focused"
)

type accessibleRef struct {
	sender string
	path   dbus.ObjectPath
}

// ATSPI tracks the focused accessible on the accessibility bus and fills
// empty editable text elements directly.
type ATSPI struct {
	conn    *dbus.Conn
	logger  *slog.Logger
	signals chan *dbus.Signal
	done    chan struct{}

	mu      sync.Mutex
	focused accessibleRef
}

// NewATSPI connects to the accessibility bus and starts focus tracking.
func NewATSPI(ctx context.Context, logger *slog.Logger) (*ATSPI, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	addr, err := a11yBusAddress(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := dbus.Connect(addr, dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("connect accessibility bus: %w", err)
	}

	registry := conn.Object(atspiRegistry, atspiRegistryObj)
	call := registry.CallWithContext(ctx, atspiRegistry+".RegisterEvent", 0, atspiFocusEvent)
	if call.Err != nil {
		// at-spi2-core 2.46+ takes properties and an app bus name.
		call = registry.CallWithContext(ctx, atspiRegistry+".RegisterEvent", 0, atspiFocusEvent, []string{}, "")
	}
	if call.Err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("register focus events: %w", call.Err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(atspiEventObject),
		dbus.WithMatchMember("StateChanged"),
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("match focus events: %w", err)
	}

	a := &ATSPI{
		conn:    conn,
		logger:  logger.With("component", "atspi"),
		signals: make(chan *dbus.Signal, 32),
		done:    make(chan struct{}),
	}
	conn.Signal(a.signals)
	go a.track()
	return a, nil
}

func a11yBusAddress(ctx context.Context) (string, error) {
	session, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("connect session bus: %w", err)
	}
	defer session.Close()

	var addr string
	if err := session.Object(a11yBusName, a11yBusPath).
		CallWithContext(ctx, a11yBusName+".GetAddress", 0).
		Store(&addr); err != nil {
		return "", fmt.Errorf("resolve accessibility bus: %w", err)
	}
	if addr == "" {
		return "", errors.New("accessibility bus address is empty")
	}
	return addr, nil
}

func (a *ATSPI) track() {
	defer close(a.done)
	for sig := range a.signals {
		a.observe(sig)
	}
}

// observe follows focus changes. Losing focus clears the tracked element only
// when it is the one that lost it, since the gain of the next element may
// arrive first.
func (a *ATSPI) observe(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	if kind, _ := sig.Body[0].(string); kind != "focused" {
		return
	}
	ref := accessibleRef{sender: sig.Sender, path: sig.Path}
	gained, _ := sig.Body[1].(int32)

	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case gained == 1:
		a.focused = ref
	case a.focused == ref:
		a.focused = accessibleRef{}
	}
}

func (a *ATSPI) current() (accessibleRef, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.focused, a.focused.sender != ""
}

func (a *ATSPI) TryInsert(ctx context.Context, text string) error {
	ref, ok := a.current()
	if !ok {
		return fmt.Errorf("%w: no focused accessible", ErrNotApplicable)
	}
	obj := a.conn.Object(ref.sender, ref.path)

	var interfaces []string
	if err := obj.CallWithContext(ctx, "org.a11y.atspi.Accessible.GetInterfaces", 0).Store(&interfaces); err != nil {
		return fmt.Errorf("%w: get interfaces: %v", ErrNotApplicable, err)
	}
	var states []uint32
	if err := obj.CallWithContext(ctx, "org.a11y.atspi.Accessible.GetState", 0).Store(&states); err != nil {
		return fmt.Errorf("%w: get state: %v", ErrNotApplicable, err)
	}
	count, err := obj.GetProperty("org.a11y.atspi.Text.CharacterCount")
	if err != nil {
		return fmt.Errorf("%w: character count: %v", ErrNotApplicable, err)
	}
	chars, _ := count.Value().(int32)
	if err := checkEditable(interfaces, states, chars); err != nil {
		return err
	}

	var accepted bool
	if err := obj.CallWithContext(ctx, atspiEditableText+".SetTextContents", 0, text).Store(&accepted); err != nil {
		return fmt.Errorf("set text contents: %w", err)
	}
	if !accepted {
		return errors.New("set text contents was rejected")
	}
	a.logger.Debug("set text contents", "path", string(ref.path))
	return nil
}

// Close disconnects from the accessibility bus.
func (a *ATSPI) Close() error {
	a.conn.RemoveSignal(a.signals)
	close(a.signals)
	<-a.done
	return a.conn.Close()
}

func newPlatformStructured(logger *slog.Logger) (Structured, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return NewATSPI(ctx, logger)
}
