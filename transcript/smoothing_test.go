package transcript

import "testing"

func TestAbsorbNilSpeakers_TieBreaksBackward(t *testing.T) {
	words := []AttributedWord{
		{Word: WordTiming{Word: "a", Start: 0, End: 1}, Speaker: ptr("A")},
		{Word: WordTiming{Word: "gap", Start: 1.25, End: 1.75}, Speaker: nil},
		{Word: WordTiming{Word: "b", Start: 2, End: 3}, Speaker: ptr("B")},
	}
	// Distance to left neighbor end (1.25-1.0 = 0.25) equals distance to
	// right neighbor start (2.0-1.75 = 0.25): the tie goes to the left neighbor.
	AbsorbNilSpeakers(words)
	if words[1].Speaker == nil || *words[1].Speaker != "A" {
		t.Fatalf("expected nearer/backward neighbor A, got %v", words[1].Speaker)
	}
}

func TestAbsorbNilSpeakers_NoNeighbors(t *testing.T) {
	words := []AttributedWord{
		{Word: WordTiming{Word: "a", Start: 0, End: 1}, Speaker: nil},
	}
	AbsorbNilSpeakers(words)
	if words[0].Speaker != nil {
		t.Fatalf("expected word to remain nil with no neighbors, got %v", *words[0].Speaker)
	}
}

func TestAbsorbNilSpeakers_OnlyRightNeighbor(t *testing.T) {
	words := []AttributedWord{
		{Word: WordTiming{Word: "gap", Start: 0, End: 1}, Speaker: nil},
		{Word: WordTiming{Word: "a", Start: 1, End: 2}, Speaker: ptr("A")},
	}
	AbsorbNilSpeakers(words)
	if words[0].Speaker == nil || *words[0].Speaker != "A" {
		t.Fatalf("expected absorption from right neighbor, got %v", words[0].Speaker)
	}
}

func TestBuildRuns(t *testing.T) {
	words := []AttributedWord{
		{Word: WordTiming{Word: "a1"}, Speaker: ptr("A")},
		{Word: WordTiming{Word: "a2"}, Speaker: ptr("A")},
		{Word: WordTiming{Word: "b1"}, Speaker: ptr("B")},
		{Word: WordTiming{Word: "a3"}, Speaker: ptr("A")},
	}
	runs := buildRuns(words)
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d: %+v", len(runs), runs)
	}
	if runs[0].start != 0 || runs[0].end != 2 {
		t.Errorf("run 0 bounds mismatch: %+v", runs[0])
	}
	if runs[1].start != 2 || runs[1].end != 3 {
		t.Errorf("run 1 bounds mismatch: %+v", runs[1])
	}
	if runs[2].start != 3 || runs[2].end != 4 {
		t.Errorf("run 2 bounds mismatch: %+v", runs[2])
	}
}

func TestSmoothShortRuns_SingleRunNoop(t *testing.T) {
	words := []AttributedWord{
		{Word: WordTiming{Word: "a", Start: 0, End: 0.1}, Speaker: ptr("A")},
	}
	SmoothShortRuns(words)
	if words[0].Speaker == nil || *words[0].Speaker != "A" {
		t.Fatalf("single run must be left alone even if short, got %v", words[0].Speaker)
	}
}
