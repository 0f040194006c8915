package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/jfreymuth/pulse"

	"github.com/rbright/murmur/internal/config"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueCancel
)

const (
	synthRate   = 16000
	synthVolume = 0.18
	synthGap    = 22 * time.Millisecond
	synthRamp   = 5 * time.Millisecond
)

// clip is mono 16-bit PCM with its own sample rate.
type clip struct {
	pcm  []int16
	rate int
}

type tone struct {
	hz  float64
	dur time.Duration
}

var cueTones = map[cueKind][]tone{
	cueStart:    {{880, 70 * time.Millisecond}, {1175, 70 * time.Millisecond}},
	cueStop:     {{620, 120 * time.Millisecond}},
	cueComplete: {{740, 65 * time.Millisecond}, {988, 90 * time.Millisecond}},
	cueCancel:   {{480, 75 * time.Millisecond}, {360, 90 * time.Millisecond}},
}

var builtinCues = func() map[cueKind]clip {
	out := make(map[cueKind]clip, len(cueTones))
	for kind, tones := range cueTones {
		out[kind] = clip{pcm: synthesize(tones), rate: synthRate}
	}
	return out
}()

// emitCue plays the configured cue file for kind. A missing or undecodable
// file falls back to the built-in tone.
func emitCue(ctx context.Context, kind cueKind, cfg config.IndicatorConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, ok := builtinCues[kind]
	if path := cueFile(kind, cfg); path != "" {
		if loaded, err := loadCue(path); err == nil {
			c, ok = loaded, true
		}
	}
	if !ok || len(c.pcm) == 0 {
		return nil
	}
	return playClip(ctx, c)
}

func cueFile(kind cueKind, cfg config.IndicatorConfig) string {
	switch kind {
	case cueStart:
		return expandHome(cfg.SoundStartFile)
	case cueStop:
		return expandHome(cfg.SoundStopFile)
	case cueComplete:
		return expandHome(cfg.SoundCompleteFile)
	case cueCancel:
		return expandHome(cfg.SoundCancelFile)
	}
	return ""
}

func expandHome(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw[1:], "/"))
}

// loadCue decodes a PCM wav file and folds it down to mono 16-bit.
func loadCue(path string) (clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return clip{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return clip{}, fmt.Errorf("%s: not a wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return clip{}, fmt.Errorf("decode %s: %w", path, err)
	}

	channels := max(int(dec.NumChans), 1)
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	frames := len(buf.Data) / channels
	pcm := make([]int16, frames)
	for i := range pcm {
		sum := 0
		for _, v := range buf.Data[i*channels : (i+1)*channels] {
			sum += v
		}
		pcm[i] = scaleTo16(sum/channels, depth)
	}
	return clip{pcm: pcm, rate: int(dec.SampleRate)}, nil
}

func scaleTo16(v, depth int) int16 {
	switch {
	case depth == 8:
		v = (v - 128) << 8
	case depth > 16:
		v >>= depth - 16
	}
	return int16(max(min(v, math.MaxInt16), math.MinInt16))
}

func playClip(ctx context.Context, c clip) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("murmur"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	rest := c.pcm
	stream, err := client.NewPlayback(
		pulse.Int16Reader(func(buf []int16) (int, error) {
			n := copy(buf, rest)
			rest = rest[n:]
			if len(rest) == 0 {
				return n, pulse.EndOfData
			}
			return n, nil
		}),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(c.rate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("murmur cue"),
	)
	if err != nil {
		return fmt.Errorf("open cue playback: %w", err)
	}
	defer stream.Close()

	stream.Start()
	done := make(chan struct{})
	go func() {
		stream.Drain()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		stream.Stop()
		return ctx.Err()
	}
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue: %w", err)
	}
	return nil
}

// synthesize renders tones back to back with a short silence between them.
func synthesize(tones []tone) []int16 {
	var pcm []int16
	for i, t := range tones {
		if i > 0 {
			pcm = append(pcm, make([]int16, sampleCount(synthGap))...)
		}
		pcm = append(pcm, renderTone(t)...)
	}
	return pcm
}

// renderTone produces a sine burst with a linear fade at both ends so the
// cue does not click.
func renderTone(t tone) []int16 {
	n := sampleCount(t.dur)
	if n <= 0 || t.hz <= 0 {
		return nil
	}
	ramp := float64(min(max(n/10, 1), sampleCount(synthRamp)))
	pcm := make([]int16, n)
	for i := range pcm {
		env := min(1, float64(i)/ramp, float64(n-1-i)/ramp)
		phase := 2 * math.Pi * t.hz * float64(i) / synthRate
		pcm[i] = int16(math.Round(math.Sin(phase) * synthVolume * env * math.MaxInt16))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * synthRate))
}
