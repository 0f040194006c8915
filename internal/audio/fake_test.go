package audio

import (
	"context"
	"errors"
	"sync"
)

type fakeStream struct {
	errs chan error
	hold chan struct{}

	mu      sync.Mutex
	stopped int
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	s.stopped++
	s.mu.Unlock()
	if s.hold != nil {
		<-s.hold
	}
	return nil
}

func (s *fakeStream) Err() <-chan error { return s.errs }

func (s *fakeStream) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeBackend struct {
	devices []Device
	listErr error
	openErr error
	// holdStop blocks Stop on opened streams until it is closed.
	holdStop chan struct{}

	mu     sync.Mutex
	opened []Device
	sink   func([]int16) error
	stream *fakeStream
}

func (b *fakeBackend) Devices(context.Context) ([]Device, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]Device(nil), b.devices...), nil
}

func (b *fakeBackend) Open(_ context.Context, device Device, sink func([]int16) error) (Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opened = append(b.opened, device)
	b.sink = sink
	b.stream = &fakeStream{errs: make(chan error, 1), hold: b.holdStop}
	return b.stream, nil
}

func (b *fakeBackend) feed(samples []int16) error {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink == nil {
		return errors.New("no open stream")
	}
	return sink(samples)
}

func (b *fakeBackend) current() *fakeStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stream
}
