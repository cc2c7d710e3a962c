package format

import (
	"fmt"
	"strings"
	"time"

	"turnscribe/transcript"
)

// Markdown renders segments as one "## Speaker" block per contiguous
// run of same-speaker segments, with each segment's text as a line
// under it. A run with no assigned speaker groups under "Unknown".
func Markdown(meta Metadata, segments []transcript.TranscriptSegment) string {
	var b strings.Builder

	if meta.SourceFile != "" {
		fmt.Fprintf(&b, "# %s\n\n", meta.SourceFile)
	}
	if meta.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %s\n\n", meta.Duration.Round(time.Second))
	}

	for i := 0; i < len(segments); {
		j := i + 1
		for j < len(segments) && sameSpeaker(segments[i].Speaker, segments[j].Speaker) {
			j++
		}

		heading := "Unknown"
		if segments[i].Speaker != nil {
			heading = *segments[i].Speaker
		}
		fmt.Fprintf(&b, "## %s\n\n", heading)
		for _, seg := range segments[i:j] {
			fmt.Fprintf(&b, "[%s] %s\n\n", formatTimestamp(seg.Start), seg.Text)
		}

		i = j
	}

	return strings.TrimRight(b.String(), "\n")
}

func sameSpeaker(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
