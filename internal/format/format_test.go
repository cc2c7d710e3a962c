package format

import (
	"strings"
	"testing"
	"time"

	"turnscribe/transcript"
)

func ptr(s string) *string { return &s }

func sampleSegments() []transcript.TranscriptSegment {
	return []transcript.TranscriptSegment{
		{Start: 0, End: 2.5, Text: "hello there", Speaker: ptr("Alice")},
		{Start: 2.5, End: 4.0, Text: "hi", Speaker: ptr("Bob")},
		{Start: 4.0, End: 6.2, Text: "unassigned words", Speaker: nil},
	}
}

func TestPlain(t *testing.T) {
	out := Plain(sampleSegments())
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "[00:00] Alice:") {
		t.Errorf("unexpected first line: %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "[00:04] ?:") {
		t.Errorf("expected nil speaker to render as ?, got: %q", lines[2])
	}
}

func TestPlain_Empty(t *testing.T) {
	if out := Plain(nil); out != "" {
		t.Errorf("expected empty string for no segments, got %q", out)
	}
}

func TestMarkdown_GroupsBySpeakerRun(t *testing.T) {
	segments := []transcript.TranscriptSegment{
		{Start: 0, End: 1, Text: "one", Speaker: ptr("Alice")},
		{Start: 1, End: 2, Text: "two", Speaker: ptr("Alice")},
		{Start: 2, End: 3, Text: "three", Speaker: ptr("Bob")},
		{Start: 3, End: 4, Text: "four", Speaker: nil},
	}

	out := Markdown(Metadata{}, segments)

	if strings.Count(out, "## Alice") != 1 {
		t.Errorf("expected exactly one Alice heading (contiguous run), got:\n%s", out)
	}
	if !strings.Contains(out, "## Bob") {
		t.Errorf("expected a Bob heading, got:\n%s", out)
	}
	if !strings.Contains(out, "## Unknown") {
		t.Errorf("expected nil speaker to group under Unknown, got:\n%s", out)
	}
}

func TestJSON(t *testing.T) {
	meta := Metadata{Duration: 90 * time.Second, Speakers: []string{"Alice", "Bob"}, SourceFile: "call.wav"}
	raw, err := JSON(meta, sampleSegments())
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	s := string(raw)
	if !strings.Contains(s, `"sourceFile":"call.wav"`) {
		t.Errorf("expected sourceFile in output: %s", s)
	}
	if !strings.Contains(s, `"speaker":"Alice"`) {
		t.Errorf("expected speaker field for Alice segment: %s", s)
	}
	if strings.Contains(s, `"speaker":null`) {
		t.Errorf("expected nil speaker to be omitted, not null: %s", s)
	}
}

func TestSRT(t *testing.T) {
	out := SRT(sampleSegments())
	if !strings.HasPrefix(out, "1\n00:00:00,000 --> 00:00:02,500\nAlice: hello there") {
		t.Errorf("unexpected SRT output:\n%s", out)
	}
	if !strings.Contains(out, "unassigned words") {
		t.Errorf("expected unassigned segment text without a speaker prefix, got:\n%s", out)
	}
}

func TestVTT(t *testing.T) {
	out := VTT(sampleSegments())
	if !strings.HasPrefix(out, "WEBVTT\n\n1\n00:00:00.000 --> 00:00:02.500") {
		t.Errorf("unexpected VTT output:\n%s", out)
	}
}
