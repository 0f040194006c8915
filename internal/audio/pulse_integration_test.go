//go:build integration

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListDevicesIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	devices, err := ListDevices(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, devices)
	for i, d := range devices {
		require.Equal(t, i, d.Index)
	}
}

func TestRecorderIntegration(t *testing.T) {
	rec := NewRecorder(PulseBackend{}, t.TempDir(), nil)
	_, err := rec.Start(context.Background(), DefaultSelector())
	require.NoError(t, err)
	time.Sleep(300 * time.Millisecond)

	recording, err := rec.Stop()
	require.NoError(t, err)
	require.FileExists(t, recording.Path)
	require.Positive(t, recording.Samples)
}
