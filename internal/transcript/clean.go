// Package transcript normalizes raw engine output into insertable text.
package transcript

import (
	"regexp"
	"strings"
)

// Options controls transcript formatting.
type Options struct {
	TrailingSpace bool
}

var (
	// [00:00:00.000 --> 00:00:02.500]
	timestampPattern = regexp.MustCompile(`\[\d{2}:\d{2}(?::\d{2})?[.,]\d{3}\s*-->\s*\d{2}:\d{2}(?::\d{2})?[.,]\d{3}\]`)
	// [BLANK_AUDIO], [MUSIC], (silence), (inaudible), *coughs* ...
	markerPattern = regexp.MustCompile(`(?i)\[\s*(?:blank_audio|music|silence|no speech|inaudible|noise|applause|laughter|sound)[^\]]*\]|\(\s*(?:silence|inaudible|music|no speech|blank_audio|noise)[^)]*\)|\*[^*\n]{1,40}\*`)
)

// Clean strips timestamps and non-speech markers, joins lines, and collapses
// whitespace. An empty result means nothing was said.
func Clean(raw string, opts Options) string {
	text := timestampPattern.ReplaceAllString(raw, " ")
	text = markerPattern.ReplaceAllString(text, " ")

	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return ""
	}
	if opts.TrailingSpace {
		return normalized + " "
	}
	return normalized
}
