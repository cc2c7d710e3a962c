package transcript

import "testing"

func TestSnapToPauses_WordCapPreventsFullReattribution(t *testing.T) {
	// A monologue by B with no internal pauses past the cap: the first
	// 4 words after the A/B boundary stay B because the snap window
	// (3 words, 2.0s) runs out before a real pause appears.
	words := []AttributedWord{
		{Word: WordTiming{Word: "a", Start: 0, End: 1}, Speaker: ptr("A")},
		{Word: WordTiming{Word: "b1", Start: 1.05, End: 1.55}, Speaker: ptr("B")},
		{Word: WordTiming{Word: "b2", Start: 1.55, End: 2.05}, Speaker: ptr("B")},
		{Word: WordTiming{Word: "b3", Start: 2.05, End: 2.55}, Speaker: ptr("B")},
		{Word: WordTiming{Word: "b4", Start: 2.55, End: 3.05}, Speaker: ptr("B")},
	}
	SnapToPauses(words)

	for i := 1; i < len(words); i++ {
		if words[i].Speaker == nil || *words[i].Speaker != "B" {
			t.Errorf("word %d: expected to remain B (cap exhausted), got %v", i, words[i].Speaker)
		}
	}
}

func TestSnapToPauses_NoSpeakerChangeIsNoop(t *testing.T) {
	words := []AttributedWord{
		{Word: WordTiming{Word: "a", Start: 0, End: 1}, Speaker: ptr("A")},
		{Word: WordTiming{Word: "b", Start: 1.1, End: 2}, Speaker: ptr("A")},
	}
	before := make([]AttributedWord, len(words))
	copy(before, words)
	SnapToPauses(words)
	for i := range words {
		if words[i].Speaker == nil || before[i].Speaker == nil || *words[i].Speaker != *before[i].Speaker {
			t.Errorf("word %d changed despite no speaker change: %v -> %v", i, before[i].Speaker, words[i].Speaker)
		}
	}
}

func TestSnapToPauses_GapAtBoundaryLeftUntouched(t *testing.T) {
	words := []AttributedWord{
		{Word: WordTiming{Word: "a", Start: 0, End: 1}, Speaker: ptr("A")},
		{Word: WordTiming{Word: "b", Start: 1.5, End: 2}, Speaker: ptr("B")},
	}
	SnapToPauses(words)
	if words[1].Speaker == nil || *words[1].Speaker != "B" {
		t.Errorf("real pause at boundary should leave assignment untouched, got %v", words[1].Speaker)
	}
}
