package indicator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	"github.com/rbright/murmur/internal/config"
)

func writeCue(t *testing.T, rate, depth, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cue.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, rate, depth, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: depth,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestBuiltinCuesPresent(t *testing.T) {
	for _, kind := range []cueKind{cueStart, cueStop, cueComplete, cueCancel} {
		c, ok := builtinCues[kind]
		require.True(t, ok)
		require.NotEmpty(t, c.pcm)
		require.Equal(t, synthRate, c.rate)
	}
	_, ok := builtinCues[cueKind(99)]
	require.False(t, ok)
}

func TestSynthesizeInsertsGapBetweenTones(t *testing.T) {
	pcm := synthesize([]tone{{440, 10 * time.Millisecond}, {660, 10 * time.Millisecond}})
	require.Len(t, pcm, 2*sampleCount(10*time.Millisecond)+sampleCount(synthGap))
}

func TestRenderTone(t *testing.T) {
	pcm := renderTone(tone{440, 100 * time.Millisecond})
	require.Len(t, pcm, sampleCount(100*time.Millisecond))
	require.Zero(t, pcm[0])
	require.Zero(t, pcm[len(pcm)-1])

	require.Empty(t, renderTone(tone{0, 100 * time.Millisecond}))
	require.Empty(t, renderTone(tone{440, 0}))
}

func TestSampleCount(t *testing.T) {
	require.Equal(t, 0, sampleCount(0))
	require.Equal(t, 400, sampleCount(25*time.Millisecond))
}

func TestCueFileExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := config.IndicatorConfig{SoundStopFile: "~/cues/stop.wav", SoundCancelFile: " /tmp/cancel.wav "}
	require.Equal(t, filepath.Join(home, "cues", "stop.wav"), cueFile(cueStop, cfg))
	require.Equal(t, "/tmp/cancel.wav", cueFile(cueCancel, cfg))
	require.Empty(t, cueFile(cueStart, cfg))
	require.Empty(t, cueFile(cueKind(99), cfg))
}

func TestLoadCueDownmixesStereo(t *testing.T) {
	path := writeCue(t, 44100, 16, 2, []int{1000, 3000, -200, -400, 0, 10})

	c, err := loadCue(path)
	require.NoError(t, err)
	require.Equal(t, 44100, c.rate)
	require.Equal(t, []int16{2000, -300, 5}, c.pcm)
}

func TestLoadCueRescalesWideSamples(t *testing.T) {
	path := writeCue(t, 48000, 24, 1, []int{1 << 16, -(1 << 16)})

	c, err := loadCue(path)
	require.NoError(t, err)
	require.Equal(t, []int16{256, -256}, c.pcm)
}

func TestLoadCueRejectsNonWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cue.wav")
	require.NoError(t, os.WriteFile(path, []byte("not audio at all"), 0o600))

	_, err := loadCue(path)
	require.Error(t, err)

	_, err = loadCue(filepath.Join(t.TempDir(), "missing.wav"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestScaleTo16(t *testing.T) {
	require.Equal(t, int16(0), scaleTo16(128, 8))
	require.Equal(t, int16(-32768), scaleTo16(0, 8))
	require.Equal(t, int16(1), scaleTo16(1<<16, 32))
	require.Equal(t, int16(1234), scaleTo16(1234, 16))
}

func TestEmitCueRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := emitCue(ctx, cueStart, config.IndicatorConfig{})
	require.ErrorIs(t, err, context.Canceled)
}
