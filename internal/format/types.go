// Package format renders a finished transcript.TranscriptSegment slice
// into the output shapes a caller actually wants: plain text for logs,
// Markdown for reading, JSON for the API, SRT/VTT for subtitle players.
// None of these functions reach back into transcript internals — they
// only see the segments spec.md §6 says formatters are allowed to see.
package format

import "time"

// Metadata carries the session-level facts a formatted transcript needs
// beyond its segments: how long the recording ran, who spoke in it, and
// where the audio came from.
type Metadata struct {
	Duration   time.Duration
	Speakers   []string
	SourceFile string
}
