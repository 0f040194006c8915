package indicator

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName  = "org.freedesktop.Notifications"
	notificationsPath  = "/org/freedesktop/Notifications"
	notificationsIface = "org.freedesktop.Notifications"
)

// sessionBus talks to the notification daemon over the shared session bus
// connection, connecting on first use.
type sessionBus struct {
	mu   sync.Mutex
	conn *dbus.Conn
}

func (s *sessionBus) object() (dbus.BusObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.conn.Connected() {
		conn, err := dbus.SessionBus()
		if err != nil {
			return nil, fmt.Errorf("connect session bus: %w", err)
		}
		s.conn = conn
	}
	return s.conn.Object(notificationsName, notificationsPath), nil
}

// Notify sends a replaceable notification and returns the server-assigned id.
func (s *sessionBus) Notify(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int) (uint32, error) {
	obj, err := s.object()
	if err != nil {
		return 0, err
	}
	var id uint32
	err = obj.CallWithContext(ctx, notificationsIface+".Notify", 0,
		appName,
		replaceID,
		"",
		summary,
		"",
		[]string{},
		map[string]dbus.Variant{},
		int32(timeoutMS),
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("desktop notify failed: %w", err)
	}
	return id, nil
}

// Close requests explicit close by notification id.
func (s *sessionBus) Close(ctx context.Context, id uint32) error {
	obj, err := s.object()
	if err != nil {
		return err
	}
	if call := obj.CallWithContext(ctx, notificationsIface+".CloseNotification", 0, id); call.Err != nil {
		return fmt.Errorf("desktop dismiss failed: %w", call.Err)
	}
	return nil
}
