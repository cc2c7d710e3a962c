package format

import (
	"fmt"
	"strings"

	"turnscribe/transcript"
)

// SRT renders segments as numbered SubRip cues, each timed
// "HH:MM:SS,mmm --> HH:MM:SS,mmm". A segment with a speaker gets a
// leading "SPEAKER: " prefix inside the cue text.
func SRT(segments []transcript.TranscriptSegment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(seg.Start), srtTimestamp(seg.End), cueText(seg))
	}
	return strings.TrimRight(b.String(), "\n")
}

// VTT renders segments as WebVTT cues, timed
// "HH:MM:SS.mmm --> HH:MM:SS.mmm", preceded by the WEBVTT header line.
func VTT(segments []transcript.TranscriptSegment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, vttTimestamp(seg.Start), vttTimestamp(seg.End), cueText(seg))
	}
	return strings.TrimRight(b.String(), "\n")
}

func cueText(seg transcript.TranscriptSegment) string {
	if seg.Speaker == nil {
		return seg.Text
	}
	return fmt.Sprintf("%s: %s", *seg.Speaker, seg.Text)
}

func srtTimestamp(seconds float64) string {
	h, m, s, ms := splitSeconds(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func vttTimestamp(seconds float64) string {
	h, m, s, ms := splitSeconds(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func splitSeconds(seconds float64) (h, m, s, ms int) {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int(seconds*1000 + 0.5)
	ms = totalMs % 1000
	totalSec := totalMs / 1000
	s = totalSec % 60
	totalMin := totalSec / 60
	m = totalMin % 60
	h = totalMin / 60
	return
}
