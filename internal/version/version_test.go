package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringIncludesBuildMetadata(t *testing.T) {
	originalVersion := Version
	originalCommit := Commit
	originalDate := Date
	t.Cleanup(func() {
		Version = originalVersion
		Commit = originalCommit
		Date = originalDate
	})

	Version = "0.4.0"
	Commit = "f00dbab"
	Date = "2026-10-01"

	got := String()
	require.Contains(t, got, "murmur 0.4.0")
	require.Contains(t, got, "commit=f00dbab")
	require.Contains(t, got, "date=2026-10-01")
	require.Contains(t, got, "os="+runtime.GOOS)
}
