package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgv(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "   ", want: nil},
		{name: "comment", in: "# disabled", want: nil},
		{name: "simple", in: "wl-copy --trim-newline", want: []string{"wl-copy", "--trim-newline"}},
		{name: "extra whitespace", in: " xdotool\tkey   ctrl+v ", want: []string{"xdotool", "key", "ctrl+v"}},
		{name: "nested quotes", in: `sh -c 'echo "hi there"'`, want: []string{"sh", "-c", `echo "hi there"`}},
		{name: "escaped space", in: `printf a\ b`, want: []string{"printf", "a b"}},
		{name: "single quotes are literal", in: `echo 'a\b'`, want: []string{"echo", `a\b`}},
		{name: "escape inside double quotes", in: `echo "say \"hi\""`, want: []string{"echo", `say "hi"`}},
		{name: "empty argument kept", in: `wl-copy --type ''`, want: []string{"wl-copy", "--type", ""}},
		{name: "adjacent quoting", in: `a"b c"'d'`, want: []string{"ab cd"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgv(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseArgvRejectsUnterminated(t *testing.T) {
	_, err := parseArgv(`echo "open`)
	require.ErrorIs(t, err, errOpenQuote)

	_, err = parseArgv(`echo 'open`)
	require.ErrorIs(t, err, errOpenQuote)

	_, err = parseArgv(`echo trailing\`)
	require.ErrorIs(t, err, errOpenEscape)
}

func TestMustParseArgvPanicsOnError(t *testing.T) {
	require.Equal(t, []string{"wl-paste", "-n"}, mustParseArgv("wl-paste -n"))
	require.Panics(t, func() { mustParseArgv(`"`) })
}
