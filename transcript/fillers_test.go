package transcript

import "testing"

func TestRemoveFillers(t *testing.T) {
	words := []WordTiming{
		{Word: "Um,"},
		{Word: "so"},
		{Word: "HMM"},
		{Word: "мм"}, // кириллица не должна совпасть ни с одним фильтром
		{Word: "I"},
		{Word: "think"},
		{Word: "uh..."},
	}

	got := RemoveFillers(words)
	want := []string{"so", "мм", "I", "think"}

	if len(got) != len(want) {
		t.Fatalf("got %d words, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Word != w {
			t.Errorf("word %d: got %q, want %q", i, got[i].Word, w)
		}
	}
}

func TestIsFiller(t *testing.T) {
	tests := map[string]bool{
		"um":    true,
		"Uh":    true,
		"Umm.":  true,
		"hmm,":  true,
		"hello": false,
		"ah-":   true,
		"":      false,
	}
	for word, want := range tests {
		if got := isFiller(word); got != want {
			t.Errorf("isFiller(%q) = %v, want %v", word, got, want)
		}
	}
}
