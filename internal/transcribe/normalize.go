package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

const (
	targetRate     = 16000
	targetBits     = 16
	wavFormatPCM   = 1
	normalizedTail = "_16k.wav"
)

// wavInfo is the header summary of a WAV file.
type wavInfo struct {
	Format     uint16
	SampleRate uint32
	Channels   uint16
	BitDepth   uint16
}

func (i wavInfo) engineReady() bool {
	return i.Format == wavFormatPCM && i.SampleRate == targetRate && i.Channels == 1 && i.BitDepth == targetBits
}

func readWavInfo(path string) (wavInfo, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return wavInfo{}, false, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return wavInfo{}, false, nil
	}
	return wavInfo{
		Format:     dec.WavAudioFormat,
		SampleRate: dec.SampleRate,
		Channels:   dec.NumChans,
		BitDepth:   dec.BitDepth,
	}, true, nil
}

// normalize returns a path holding 16 kHz mono 16-bit PCM. Compatible input
// is returned unchanged and nothing is written.
func (p *Pipeline) normalize(ctx context.Context, input string) (string, error) {
	isWav := strings.EqualFold(filepath.Ext(input), ".wav")
	if isWav {
		info, ok, err := readWavInfo(input)
		if err != nil {
			return "", fmt.Errorf("%w: inspect %s: %v", ErrNormalize, input, err)
		}
		if ok && info.engineReady() {
			return input, nil
		}
		if ok && info.Format == wavFormatPCM {
			out := p.normalizedPath(input)
			if err := resampleWav(input, out); err != nil {
				_ = os.Remove(out)
				return "", fmt.Errorf("%w: %v", ErrNormalize, err)
			}
			p.logger.Debug("audio resampled", "input", input, "output", out,
				"rate", info.SampleRate, "channels", info.Channels, "bits", info.BitDepth)
			return out, nil
		}
	}

	if strings.TrimSpace(p.opts.FFmpeg) == "" {
		return "", fmt.Errorf("%w: %s is not 16 kHz mono PCM WAV and ffmpeg is disabled", ErrNormalize, input)
	}
	ffmpeg, err := exec.LookPath(p.opts.FFmpeg)
	if err != nil {
		return "", fmt.Errorf("%w: %s needs conversion but ffmpeg is unavailable: %v", ErrNormalize, input, err)
	}

	out := p.normalizedPath(input)
	cmd := exec.CommandContext(ctx, ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-y", "-i", input,
		"-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le",
		out,
	)
	if combined, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(out)
		trimmed := strings.TrimSpace(string(combined))
		if trimmed == "" {
			return "", fmt.Errorf("%w: ffmpeg: %v", ErrNormalize, err)
		}
		return "", fmt.Errorf("%w: ffmpeg: %v (%s)", ErrNormalize, err, trimmed)
	}
	return out, nil
}

func (p *Pipeline) normalizedPath(input string) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(p.opts.TempDir, fmt.Sprintf("%s_%s%s", name, uuid.NewString()[:8], normalizedTail))
}

// resampleWav downmixes to mono, rescales to 16-bit, and linearly resamples
// to 16 kHz.
func resampleWav(input, output string) error {
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	dec := wav.NewDecoder(in)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("decode %s: %w", input, err)
	}

	channels := 1
	rate := targetRate
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			channels = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			rate = buf.Format.SampleRate
		}
	}
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}

	mono := downmix(buf.Data, channels)
	for i, v := range mono {
		mono[i] = toSixteenBit(v, depth)
	}
	resampled := resampleLinear(mono, rate, targetRate)

	out, err := os.OpenFile(output, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(out, targetRate, targetBits, 1, wavFormatPCM)
	werr := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: targetRate},
		Data:           resampled,
		SourceBitDepth: targetBits,
	})
	cerr := enc.Close()
	ferr := out.Close()
	for _, err := range []error{werr, cerr, ferr} {
		if err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
	}
	return nil
}

func downmix(data []int, channels int) []int {
	if channels <= 1 {
		out := make([]int, len(data))
		copy(out, data)
		return out
	}
	frames := len(data) / channels
	out := make([]int, frames)
	for f := 0; f < frames; f++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += data[f*channels+c]
		}
		out[f] = sum / channels
	}
	return out
}

func toSixteenBit(v, depth int) int {
	switch depth {
	case 8:
		// 8-bit WAV is unsigned.
		return (v - 128) << 8
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	default:
		return v
	}
}

func resampleLinear(samples []int, from, to int) []int {
	if from == to || len(samples) == 0 {
		return samples
	}
	n := int(int64(len(samples)) * int64(to) / int64(from))
	if n == 0 {
		return nil
	}
	out := make([]int, n)
	step := float64(from) / float64(to)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int(float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac)
	}
	return out
}
