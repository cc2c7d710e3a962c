package format

import (
	"encoding/json"

	"turnscribe/transcript"
)

type jsonSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker *string `json:"speaker,omitempty"`
}

type jsonMetadata struct {
	Duration   float64  `json:"durationSeconds"`
	Speakers   []string `json:"speakers,omitempty"`
	SourceFile string   `json:"sourceFile,omitempty"`
}

type jsonTranscript struct {
	Metadata jsonMetadata  `json:"metadata"`
	Segments []jsonSegment `json:"segments"`
}

// JSON renders the metadata and segments as {metadata, segments[...]},
// with speaker omitted from a segment entirely when it has none.
func JSON(meta Metadata, segments []transcript.TranscriptSegment) ([]byte, error) {
	out := jsonTranscript{
		Metadata: jsonMetadata{
			Duration:   meta.Duration.Seconds(),
			Speakers:   meta.Speakers,
			SourceFile: meta.SourceFile,
		},
		Segments: make([]jsonSegment, len(segments)),
	}
	for i, seg := range segments {
		out.Segments[i] = jsonSegment{
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
			Speaker: seg.Speaker,
		}
	}
	return json.Marshal(out)
}
