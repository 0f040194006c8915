package hotkey

import (
	"sync"
	"time"
)

// ipcDeliverTimeout bounds how long Press/Release wait for the coordinator
// to take an edge.
const ipcDeliverTimeout = time.Second

// IPCSource is a RegisteredHotkey driven from outside the process. A
// compositor bind (Hyprland bind/bindr) runs `murmur press` and
// `murmur release`, and the daemon forwards those to Press and Release.
type IPCSource struct {
	mu      sync.Mutex
	current *ipcRegistration
}

func NewIPCSource() *IPCSource {
	return &IPCSource{}
}

// Register never fails: the compositor owns the actual key grab.
func (s *IPCSource) Register(Binding) (Registration, error) {
	r := &ipcRegistration{
		owner:    s,
		pressed:  make(chan struct{}),
		released: make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.mu.Lock()
	if s.current != nil {
		s.current.closeLocked()
	}
	s.current = r
	s.mu.Unlock()
	return r, nil
}

// Press forwards a key-down edge. Edges are handed over synchronously so a
// quick press/release pair keeps its order. It reports false when nothing is
// registered or the edge was not taken.
func (s *IPCSource) Press() bool {
	return s.deliver(func(r *ipcRegistration) chan struct{} { return r.pressed })
}

// Release forwards a key-up edge.
func (s *IPCSource) Release() bool {
	return s.deliver(func(r *ipcRegistration) chan struct{} { return r.released })
}

func (s *IPCSource) deliver(pick func(*ipcRegistration) chan struct{}) bool {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()
	if r == nil {
		return false
	}

	timer := time.NewTimer(ipcDeliverTimeout)
	defer timer.Stop()
	select {
	case pick(r) <- struct{}{}:
		return true
	case <-r.done:
		return false
	case <-timer.C:
		return false
	}
}

type ipcRegistration struct {
	owner    *IPCSource
	pressed  chan struct{}
	released chan struct{}
	done     chan struct{}
	closed   bool
}

func (r *ipcRegistration) Pressed() <-chan struct{}  { return r.pressed }
func (r *ipcRegistration) Released() <-chan struct{} { return r.released }

func (r *ipcRegistration) Unregister() error {
	r.owner.mu.Lock()
	defer r.owner.mu.Unlock()
	r.closeLocked()
	if r.owner.current == r {
		r.owner.current = nil
	}
	return nil
}

func (r *ipcRegistration) closeLocked() {
	if !r.closed {
		r.closed = true
		close(r.done)
	}
}
