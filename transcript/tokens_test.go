package transcript

import "testing"

func TestMergeTokensToWords(t *testing.T) {
	tests := []struct {
		name   string
		tokens []TokenTiming
		want   []WordTiming
	}{
		{
			name:   "empty",
			tokens: nil,
			want:   nil,
		},
		{
			name: "single word, single token",
			tokens: []TokenTiming{
				{Token: "Hello", Start: 0, End: 0.3, Confidence: 0.8},
			},
			want: []WordTiming{
				{Word: "Hello", Start: 0, End: 0.3, Confidence: 0.8},
			},
		},
		{
			name: "word split across subword tokens",
			tokens: []TokenTiming{
				{Token: " trans", Start: 0, End: 0.1, Confidence: 1.0},
				{Token: "script", Start: 0.1, End: 0.3, Confidence: 0.6},
			},
			want: []WordTiming{
				{Word: "transscript", Start: 0, End: 0.3, Confidence: 0.8},
			},
		},
		{
			name: "stream starting mid-word still yields a word",
			tokens: []TokenTiming{
				{Token: "lo", Start: 0.1, End: 0.2, Confidence: 0.5},
				{Token: " world", Start: 0.3, End: 0.6, Confidence: 0.9},
			},
			want: []WordTiming{
				{Word: "lo", Start: 0.1, End: 0.2, Confidence: 0.5},
				{Word: "world", Start: 0.3, End: 0.6, Confidence: 0.9},
			},
		},
		{
			name: "trailing partial word emitted at end of stream",
			tokens: []TokenTiming{
				{Token: " Hi", Start: 0, End: 0.2, Confidence: 1.0},
				{Token: " Bo", Start: 0.3, End: 0.4, Confidence: 0.7},
				{Token: "b", Start: 0.4, End: 0.5, Confidence: 0.7},
			},
			want: []WordTiming{
				{Word: "Hi", Start: 0, End: 0.2, Confidence: 1.0},
				{Word: "Bob", Start: 0.3, End: 0.5, Confidence: 0.7},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeTokensToWords(tt.tokens)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d words, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i].Word != tt.want[i].Word || got[i].Start != tt.want[i].Start || got[i].End != tt.want[i].End {
					t.Errorf("word %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
