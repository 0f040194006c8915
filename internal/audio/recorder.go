package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"github.com/rbright/murmur/internal/logging"
)

const (
	bitDepth      = 16
	channels      = 1
	wavFormatPCM  = 1
	fileTimestamp = "20060102150405.000"
)

var errSessionClosed = errors.New("capture session closed")

// Recording is a finished capture on disk.
type Recording struct {
	Path     string
	Device   Device
	Samples  int64
	Duration time.Duration
}

// Recorder owns the single capture slot.
type Recorder struct {
	backend Backend
	dir     string
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	active *session
	// closing is the session being torn down. The slot stays taken until its
	// stream has stopped and its file is closed.
	closing   *session
	discarded bool
	discardCh chan struct{}
}

// NewRecorder builds a recorder writing into dir (the OS temp dir when
// empty).
func NewRecorder(backend Backend, dir string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.Discard()
	}
	if dir == "" {
		dir = os.TempDir()
	}
	return &Recorder{
		backend:   backend,
		dir:       dir,
		logger:    logger.With("component", "capture"),
		now:       time.Now,
		discardCh: make(chan struct{}),
	}
}

type session struct {
	path    string
	device  Device
	file    *os.File
	encoder *wav.Encoder
	stream  Stream
	done    chan struct{}

	mu      sync.Mutex
	samples int64
	closed  bool
	buf     goaudio.IntBuffer
}

// Start opens the selected device and begins writing samples to a new WAV
// file. It fails fast with ErrAlreadyCapturing when a session is open or
// still closing.
func (r *Recorder) Start(ctx context.Context, sel Selector) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil || r.closing != nil {
		return "", ErrAlreadyCapturing
	}

	devices, err := r.backend.Devices(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	selection, err := Resolve(devices, sel)
	if err != nil {
		return "", err
	}
	if selection.Warning != "" {
		r.logger.Warn("audio device fallback", "warning", selection.Warning)
	}

	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return "", fmt.Errorf("create capture dir: %w", err)
	}
	path := filepath.Join(r.dir, r.fileName())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return "", fmt.Errorf("create capture file: %w", err)
	}

	s := &session{
		path:    path,
		device:  selection.Device,
		file:    f,
		encoder: wav.NewEncoder(f, SampleRate, bitDepth, channels, wavFormatPCM),
		done:    make(chan struct{}),
		buf: goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: SampleRate},
			SourceBitDepth: bitDepth,
		},
	}

	stream, err := r.backend.Open(ctx, selection.Device, s.write)
	if err != nil {
		s.abort()
		return "", fmt.Errorf("%w: open %q: %v", ErrDeviceUnavailable, selection.Device.ID, err)
	}
	s.stream = stream

	r.active = s
	r.discarded = false
	r.discardCh = make(chan struct{})
	go r.supervise(s, r.discardCh)

	r.logger.Info("capture started", "device", selection.Device.ID, "path", path)
	return path, nil
}

// Stop ends the session, flushes the WAV header, and closes the file. After a
// device error it returns ErrCaptureDiscarded exactly once.
func (r *Recorder) Stop() (Recording, error) {
	r.mu.Lock()
	s := r.active
	if s == nil {
		discarded := r.discarded
		r.discarded = false
		r.mu.Unlock()
		if discarded {
			return Recording{}, ErrCaptureDiscarded
		}
		return Recording{}, ErrNotCapturing
	}
	r.active, r.closing = nil, s
	r.mu.Unlock()
	defer r.release(s)

	close(s.done)
	if err := s.stream.Stop(); err != nil {
		r.logger.Warn("capture stream stop failed", "error", err.Error())
	}
	samples, err := s.finish()
	if err != nil {
		_ = os.Remove(s.path)
		return Recording{}, fmt.Errorf("finalize capture: %w", err)
	}

	rec := Recording{
		Path:     s.path,
		Device:   s.device,
		Samples:  samples,
		Duration: time.Duration(samples) * time.Second / SampleRate,
	}
	r.logger.Info("capture stopped", "path", rec.Path, "samples", rec.Samples, "duration_ms", rec.Duration.Milliseconds())
	return rec, nil
}

// Cancel ends the session and deletes its file without producing a Recording.
func (r *Recorder) Cancel() error {
	r.mu.Lock()
	s := r.active
	if s == nil {
		r.mu.Unlock()
		return ErrNotCapturing
	}
	r.active, r.closing = nil, s
	r.mu.Unlock()
	defer r.release(s)

	close(s.done)
	_ = s.stream.Stop()
	s.abort()
	r.logger.Info("capture cancelled", "path", s.path)
	return nil
}

// Active reports whether a session is open.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Discarded closes when the current session is dropped after a device error.
func (r *Recorder) Discarded() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.discardCh
}

func (r *Recorder) supervise(s *session, discardCh chan struct{}) {
	select {
	case <-s.done:
		return
	case err := <-s.stream.Err():
		r.mu.Lock()
		if r.active != s {
			r.mu.Unlock()
			return
		}
		r.active, r.closing = nil, s
		r.discarded = true
		r.mu.Unlock()
		defer r.release(s)

		_ = s.stream.Stop()
		s.abort()
		close(discardCh)
		errText := "unknown"
		if err != nil {
			errText = err.Error()
		}
		r.logger.Warn("capture discarded after device error", "device", s.device.ID, "error", errText)
	}
}

func (r *Recorder) release(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closing == s {
		r.closing = nil
	}
}

func (r *Recorder) fileName() string {
	stamp := r.now().UTC().Format(fileTimestamp)
	stamp = stamp[:14] + stamp[15:]
	return fmt.Sprintf("murmur_%s_%s.wav", stamp, uuid.NewString()[:8])
}

// write appends samples synchronously. It blocks the device callback while
// the disk catches up rather than dropping audio.
func (s *session) write(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}
	if len(samples) == 0 {
		return nil
	}

	data := s.buf.Data[:0]
	for _, v := range samples {
		data = append(data, int(v))
	}
	s.buf.Data = data
	if err := s.encoder.Write(&s.buf); err != nil {
		return fmt.Errorf("write capture samples: %w", err)
	}
	s.samples += int64(len(samples))
	return nil
}

// finish closes the encoder (which patches the RIFF sizes) and the file.
func (s *session) finish() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true

	var errs []error
	if err := s.encoder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close wav encoder: %w", err))
	}
	if err := s.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("sync capture file: %w", err))
	}
	if err := s.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close capture file: %w", err))
	}
	return s.samples, errors.Join(errs...)
}

// abort closes everything and removes the partial file.
func (s *session) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	_ = s.encoder.Close()
	_ = s.file.Close()
	_ = os.Remove(s.path)
}
