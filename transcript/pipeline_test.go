package transcript

import (
	"reflect"
	"strings"
	"testing"
)

func ptr(s string) *string { return &s }

func wordsFrom(spec []struct {
	text       string
	start, end float64
	speaker    string
}) []AttributedWord {
	out := make([]AttributedWord, len(spec))
	for i, s := range spec {
		sp := s.speaker
		out[i] = AttributedWord{
			Word:    WordTiming{Word: s.text, Start: s.start, End: s.end},
			Speaker: &sp,
		}
	}
	return out
}

// Scenario A — clean split at sentence + speaker change.
func TestGroupIntoSegments_ScenarioA(t *testing.T) {
	spec := []struct {
		text       string
		start, end float64
		speaker    string
	}{
		{"Hello", 0, 0.3, "A"},
		{"world.", 0.4, 0.7, "A"},
		{"How", 0.9, 1.1, "B"},
		{"are", 1.2, 1.4, "B"},
		{"you?", 1.5, 1.8, "B"},
	}
	segments := GroupIntoSegments(wordsFrom(spec))

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segments), segments)
	}
	if segments[0].Text != "Hello world." || segments[0].Start != 0 || segments[0].End != 0.7 {
		t.Errorf("segment 0 mismatch: %+v", segments[0])
	}
	if segments[1].Text != "How are you?" || segments[1].Start != 0.9 || segments[1].End != 1.8 {
		t.Errorf("segment 1 mismatch: %+v", segments[1])
	}
	if segments[0].Speaker == nil || *segments[0].Speaker != "A" {
		t.Errorf("segment 0 speaker mismatch: %+v", segments[0].Speaker)
	}
	if segments[1].Speaker == nil || *segments[1].Speaker != "B" {
		t.Errorf("segment 1 speaker mismatch: %+v", segments[1].Speaker)
	}
}

// Scenario B — snap repair.
func TestSnapToPauses_ScenarioB(t *testing.T) {
	spec := []struct {
		text       string
		start, end float64
		speaker    string
	}{
		{"у", 10.0, 10.2, "A"},
		{"него", 10.3, 10.6, "A"},
		{"ограниченный", 10.68, 11.7, "B"},
		{"у", 12.1, 12.2, "B"},
		{"меня", 12.3, 12.5, "B"},
	}
	words := wordsFrom(spec)
	SnapToPauses(words)

	want := []string{"A", "A", "A", "B", "B"}
	for i, w := range want {
		if words[i].Speaker == nil || *words[i].Speaker != w {
			t.Errorf("word %d: expected speaker %s, got %v", i, w, words[i].Speaker)
		}
	}
}

// Scenario C — sub-threshold run merged.
func TestSmoothShortRuns_ScenarioC(t *testing.T) {
	words := []AttributedWord{
		{Word: WordTiming{Word: "a1", Start: 0.0, End: 0.5}, Speaker: ptr("A")},
		{Word: WordTiming{Word: "a2", Start: 0.5, End: 0.9}, Speaker: ptr("A")},
		{Word: WordTiming{Word: "b1", Start: 0.9, End: 1.0}, Speaker: ptr("B")},
		{Word: WordTiming{Word: "a3", Start: 1.0, End: 1.4}, Speaker: ptr("A")},
		{Word: WordTiming{Word: "a4", Start: 1.4, End: 1.8}, Speaker: ptr("A")},
	}

	SmoothShortRuns(words)

	for i, w := range words {
		if w.Speaker == nil || *w.Speaker != "A" {
			t.Errorf("word %d: expected A after smoothing, got %v", i, w.Speaker)
		}
	}
}

// Scenario D — continuity bias tips a tie.
func TestAssignSpeakers_ScenarioD(t *testing.T) {
	segments := []SpeakerSegment{
		{SpeakerID: "A", Start: 0, End: 5},
		{SpeakerID: "B", Start: 5, End: 10},
	}
	word := WordTiming{Word: "x", Start: 4.8, End: 5.2}

	prevA := "A"
	got := assignOne(word, segments, &prevA)
	if got == nil || *got != "A" {
		t.Fatalf("expected continuity bias to assign A, got %v", got)
	}

	got2 := assignOne(word, segments, nil)
	if got2 == nil {
		t.Fatalf("expected a stable assignment with nil previous speaker, got nil")
	}
	got3 := assignOne(word, segments, nil)
	if got2 == nil || got3 == nil || *got2 != *got3 {
		t.Errorf("tie-break must be stable across calls: %v vs %v", got2, got3)
	}
}

// Scenario E — lookahead split.
func TestGroupIntoSegments_ScenarioE(t *testing.T) {
	spec := []struct {
		text       string
		start, end float64
		speaker    string
	}{
		{"sounds", 0, 0.4, "A"},
		{"great.", 0.5, 1.0, "A"},
		{"Thank", 1.2, 1.5, "A"},
		{"you", 1.6, 1.8, "B"},
		{"so", 1.9, 2.1, "B"},
		{"much.", 2.2, 2.5, "B"},
	}
	segments := GroupIntoSegments(wordsFrom(spec))

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segments), segments)
	}
	if segments[0].Text != "sounds great." {
		t.Errorf("expected first segment to end at lookahead split, got %q", segments[0].Text)
	}
	if segments[1].Text != "Thank you so much." {
		t.Errorf("expected second segment to be the remainder, got %q", segments[1].Text)
	}
}

// Scenario F — safety cap.
func TestGroupIntoSegments_ScenarioF(t *testing.T) {
	var words []AttributedWord
	speakerA := "A"
	speakerB := "B"

	// 36 words for speaker A across 0-18s, no punctuation.
	for i := 0; i < 36; i++ {
		start := float64(i) * 0.5
		words = append(words, AttributedWord{
			Word:    WordTiming{Word: "wordA", Start: start, End: start + 0.5},
			Speaker: &speakerA,
		})
	}
	// 36 words for speaker B across 18-36s, no punctuation.
	for i := 0; i < 36; i++ {
		start := 18.0 + float64(i)*0.5
		words = append(words, AttributedWord{
			Word:    WordTiming{Word: "wordB", Start: start, End: start + 0.5},
			Speaker: &speakerB,
		})
	}

	segments := GroupIntoSegments(words)
	if len(segments) < 2 {
		t.Fatalf("expected safety cap to force at least 2 segments, got %d", len(segments))
	}

	for _, seg := range segments {
		if seg.End-seg.Start > maxSegmentDuration+1e-9 {
			t.Errorf("segment exceeds safety cap: %+v", seg)
		}
	}
}

// Coverage: concatenated segment text reproduces the word sequence.
func TestMergeResults_Coverage(t *testing.T) {
	asr := ASRResult{
		Duration: 2.0,
		TokenTimings: []TokenTiming{
			{Token: "Hello", Start: 0, End: 0.3, Confidence: 0.9},
			{Token: " world.", Start: 0.4, End: 0.7, Confidence: 0.9},
		},
	}
	segs := MergeResults(asr, nil, false)

	var joined []string
	for _, s := range segs {
		joined = append(joined, s.Text)
	}
	got := strings.Join(joined, " ")
	if got != "Hello world." {
		t.Errorf("coverage broken: got %q", got)
	}
}

// Monotonicity: consecutive segments do not overlap and start<=end.
func TestGroupIntoSegments_Monotonicity(t *testing.T) {
	spec := []struct {
		text       string
		start, end float64
		speaker    string
	}{
		{"one", 0, 0.3, "A"},
		{"two.", 0.4, 0.7, "A"},
		{"three", 2.0, 2.3, "A"},
		{"four.", 2.4, 2.7, "A"},
	}
	segments := GroupIntoSegments(wordsFrom(spec))
	for i := range segments {
		if segments[i].Start > segments[i].End {
			t.Errorf("segment %d has start > end: %+v", i, segments[i])
		}
		if i > 0 && segments[i-1].End > segments[i].Start {
			t.Errorf("segments %d and %d overlap: %+v %+v", i-1, i, segments[i-1], segments[i])
		}
	}
}

// Minimum run length after SmoothShortRuns.
func TestSmoothShortRuns_MinimumDuration(t *testing.T) {
	words := []AttributedWord{
		{Word: WordTiming{Word: "a1", Start: 0.0, End: 1.0}, Speaker: ptr("A")},
		{Word: WordTiming{Word: "b1", Start: 1.0, End: 1.2}, Speaker: ptr("B")},
		{Word: WordTiming{Word: "a2", Start: 1.2, End: 3.0}, Speaker: ptr("A")},
	}
	SmoothShortRuns(words)

	runs := buildRuns(words)
	if len(runs) >= 2 {
		for _, r := range runs {
			if r.duration(words) < shortRunThreshold {
				t.Errorf("run shorter than threshold survived smoothing: %+v", r)
			}
		}
	}
}

// Snap-pass fixed point: running twice == running once.
func TestSnapToPauses_FixedPoint(t *testing.T) {
	spec := []struct {
		text       string
		start, end float64
		speaker    string
	}{
		{"у", 10.0, 10.2, "A"},
		{"него", 10.3, 10.6, "A"},
		{"ограниченный", 10.68, 11.7, "B"},
		{"у", 12.1, 12.2, "B"},
		{"меня", 12.3, 12.5, "B"},
	}
	words := wordsFrom(spec)
	SnapToPauses(words)
	once := make([]AttributedWord, len(words))
	copy(once, words)

	SnapToPauses(words)
	if !reflect.DeepEqual(once, words) {
		t.Errorf("snap pass is not a fixed point: %+v vs %+v", once, words)
	}
}

// Determinism: repeated invocations on the same inputs are byte-identical.
func TestMergeResults_Determinism(t *testing.T) {
	asr := ASRResult{
		Duration: 3.0,
		TokenTimings: []TokenTiming{
			{Token: "Hello", Start: 0, End: 0.3, Confidence: 0.9},
			{Token: " world.", Start: 0.4, End: 0.7, Confidence: 0.9},
			{Token: " How", Start: 0.9, End: 1.1, Confidence: 0.9},
			{Token: " are", Start: 1.2, End: 1.4, Confidence: 0.9},
			{Token: " you?", Start: 1.5, End: 1.8, Confidence: 0.9},
		},
	}
	diar := &DiarizationResult{Segments: []SpeakerSegment{
		{SpeakerID: "A", Start: 0, End: 0.8},
		{SpeakerID: "B", Start: 0.8, End: 2.0},
	}}

	first := MergeResults(asr, diar, false)
	second := MergeResults(asr, diar, false)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("pipeline is not deterministic: %+v vs %+v", first, second)
	}
}

// Filler removal idempotence.
func TestRemoveFillers_Idempotent(t *testing.T) {
	words := []WordTiming{
		{Word: "Um,"},
		{Word: "hello"},
		{Word: "uh"},
		{Word: "world"},
	}
	once := RemoveFillers(words)
	twice := RemoveFillers(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("filler removal not idempotent: %+v vs %+v", once, twice)
	}
}

// Degenerate return: no token timings.
func TestMergeResults_NoTokenTimings(t *testing.T) {
	asr := ASRResult{Text: "  hello world  ", Duration: 5.0}
	segs := MergeResults(asr, nil, false)
	if len(segs) != 1 {
		t.Fatalf("expected 1 trivial segment, got %d", len(segs))
	}
	if segs[0].Start != 0 || segs[0].End != 5.0 || segs[0].Text != "hello world" {
		t.Errorf("trivial segment mismatch: %+v", segs[0])
	}
	if segs[0].Speaker != nil {
		t.Errorf("trivial segment must have nil speaker")
	}
}

// Degenerate return: filler removal empties the word list.
func TestMergeResults_AllFillersRemoved(t *testing.T) {
	asr := ASRResult{
		Duration: 1.0,
		TokenTimings: []TokenTiming{
			{Token: "um", Start: 0, End: 0.2, Confidence: 0.5},
			{Token: " uh", Start: 0.3, End: 0.5, Confidence: 0.5},
		},
	}
	segs := MergeResults(asr, nil, true)
	if len(segs) != 1 || segs[0].Text != "" {
		t.Fatalf("expected single empty segment, got %+v", segs)
	}
	if segs[0].Start != 0 || segs[0].End != 1.0 {
		t.Errorf("expected full-duration empty segment, got %+v", segs[0])
	}
}

// Diarization-free grouping: no speaker, groups by punctuation/pause only.
func TestMergeResults_NoDiarization(t *testing.T) {
	asr := ASRResult{
		Duration: 2.0,
		TokenTimings: []TokenTiming{
			{Token: "Hello", Start: 0, End: 0.3, Confidence: 0.9},
			{Token: " world.", Start: 0.4, End: 0.7, Confidence: 0.9},
			{Token: " Bye.", Start: 2.5, End: 2.9, Confidence: 0.9},
		},
	}
	segs := MergeResults(asr, nil, false)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segs), segs)
	}
	for _, s := range segs {
		if s.Speaker != nil {
			t.Errorf("diarization-free segments must have nil speaker: %+v", s)
		}
	}
}
