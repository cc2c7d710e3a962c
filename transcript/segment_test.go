package transcript

import "testing"

func TestGroupWithoutDiarization_PauseSplit(t *testing.T) {
	words := []WordTiming{
		{Word: "hi", Start: 0, End: 0.3},
		{Word: "there", Start: 0.4, End: 0.7},
		{Word: "bye", Start: 3.0, End: 3.3},
	}
	segs := GroupWithoutDiarization(words)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments split by pause, got %d: %+v", len(segs), segs)
	}
	if segs[0].Text != "hi there" || segs[1].Text != "bye" {
		t.Errorf("unexpected text: %+v", segs)
	}
	for _, s := range segs {
		if s.Speaker != nil {
			t.Errorf("degenerate grouping must not assign speakers: %+v", s)
		}
	}
}

func TestGroupWithoutDiarization_Empty(t *testing.T) {
	if got := GroupWithoutDiarization(nil); got != nil {
		t.Errorf("expected nil for empty input, got %+v", got)
	}
}

func TestGroupIntoSegments_Empty(t *testing.T) {
	if got := GroupIntoSegments(nil); got != nil {
		t.Errorf("expected nil for empty input, got %+v", got)
	}
}

func TestEndsSentence(t *testing.T) {
	tests := map[string]bool{
		"hello.": true,
		"what?":  true,
		"wow!":   true,
		"word":   false,
		"":       false,
	}
	for word, want := range tests {
		if got := endsSentence(word); got != want {
			t.Errorf("endsSentence(%q) = %v, want %v", word, got, want)
		}
	}
}
