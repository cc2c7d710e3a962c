package format

import (
	"fmt"
	"strings"

	"turnscribe/transcript"
)

// Plain renders segments as one line per segment: a [MM:SS] timestamp,
// the speaker label (or "?" when the segment has no assigned speaker),
// and the segment text.
func Plain(segments []transcript.TranscriptSegment) string {
	if len(segments) == 0 {
		return ""
	}

	var lines []string
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", formatTimestamp(seg.Start), speakerLabel(seg.Speaker), seg.Text))
	}
	return strings.Join(lines, "\n")
}

func speakerLabel(speaker *string) string {
	if speaker == nil {
		return "?"
	}
	return *speaker
}

// formatTimestamp renders a float64 seconds value as MM:SS.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	mins := total / 60
	secs := total % 60
	return fmt.Sprintf("%02d:%02d", mins, secs)
}
