package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	SampleRate = 16000

	chunkSizeBytes   = 640 // 20ms @ 16kHz mono s16
	streamPollPeriod = 200 * time.Millisecond
)

// PulseBackend captures from PulseAudio (or PipeWire's pulse server).
type PulseBackend struct{}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("murmur"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns Pulse input sources with default/availability metadata.
func ListDevices(ctx context.Context) ([]Device, error) {
	return PulseBackend{}.Devices(ctx)
}

// SelectDevice resolves a selector against live Pulse devices.
func SelectDevice(ctx context.Context, sel Selector) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return Resolve(devices, sel)
}

func (PulseBackend) Devices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source != nil {
			devices = append(devices, deviceFromSource(len(devices), source, defaultID))
		}
	}
	return devices, nil
}

func deviceFromSource(index int, source *pulseproto.GetSourceInfoReply, defaultID string) Device {
	return Device{
		Index:       index,
		ID:          source.SourceName,
		Description: source.Device,
		State:       sourceStateString(source.State),
		Available:   sourceAvailable(source),
		Muted:       source.Mute,
		Default:     source.SourceName == defaultID,
	}
}

// Open creates and starts a 16kHz mono s16 record stream on device.
func (PulseBackend) Open(ctx context.Context, device Device, sink func([]int16) error) (Stream, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	s := &pulseStream{
		client: client,
		sink:   sink,
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}

	writer := pulse.NewWriter(s, pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(chunkSizeBytes),
		pulse.RecordMediaName("murmur dictation"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	s.stream = stream
	stream.Start()
	go s.supervise(ctx)
	return s, nil
}

type pulseStream struct {
	client *pulse.Client
	stream *pulse.RecordStream
	sink   func([]int16) error

	mu      sync.Mutex
	carry   []byte
	stopped atomic.Bool

	errs     chan error
	done     chan struct{}
	stopOnce sync.Once
}

func (s *pulseStream) Err() <-chan error { return s.errs }

// Stop halts the stream. Samples already delivered to the sink stay there.
func (s *pulseStream) Stop() error {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		close(s.done)
		s.stream.Stop()
		s.stream.Close()
		s.client.Close()
	})
	return nil
}

// supervise reports a stream that the server closed underneath us, such as
// an unplugged device.
func (s *pulseStream) supervise(ctx context.Context) {
	ticker := time.NewTicker(streamPollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.fail(ctx.Err())
			return
		case <-ticker.C:
			if s.stream.Closed() && !s.stopped.Load() {
				err := s.stream.Error()
				if err == nil {
					err = errors.New("pulse record stream closed by server")
				}
				s.fail(err)
				return
			}
		}
	}
}

func (s *pulseStream) fail(err error) {
	if s.stopped.Load() {
		return
	}
	select {
	case s.errs <- err:
	default:
	}
}

// Write receives little-endian s16 frames from pulse and hands the decoded
// samples to the sink synchronously. A trailing odd byte is carried into the
// next call.
func (s *pulseStream) Write(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}
	if s.stopped.Load() {
		return 0, io.EOF
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data := buffer
	if len(s.carry) > 0 {
		data = append(s.carry, buffer...)
		s.carry = nil
	}
	samples := decodeS16LE(data)
	if len(data)%2 == 1 {
		s.carry = []byte{data[len(data)-1]}
	}

	if err := s.sink(samples); err != nil {
		s.fail(err)
		return 0, err
	}
	return len(buffer), nil
}

func decodeS16LE(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

var sourceStates = [...]string{"running", "idle", "suspended"}

func sourceStateString(state uint32) string {
	if int(state) < len(sourceStates) {
		return sourceStates[state]
	}
	return fmt.Sprintf("unknown(%d)", state)
}

// Port availability as pulse reports it.
const (
	portAvailableUnknown = 0
	portAvailableYes     = 2
)

// sourceAvailable reports whether the active port of source can record. A
// source without ports is assumed to work.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			return port.Available == portAvailableUnknown || port.Available == portAvailableYes
		}
	}
	return true
}
