package transcript

import "strings"

// MergeResults — основная точка входа пакета: превращает результат ASR
// и (опционально) результат диаризации в упорядоченный список
// TranscriptSegment. Детерминирована: одинаковый вход даёт побайтово
// одинаковый выход при любом числе параллельных вызовов, пока каждый
// вызов владеет своими входными данными.
func MergeResults(asr ASRResult, diarization *DiarizationResult, removeFillers bool) []TranscriptSegment {
	if len(asr.TokenTimings) == 0 {
		return []TranscriptSegment{trivialSegment(asr)}
	}

	words := MergeTokensToWords(asr.TokenTimings)
	if removeFillers {
		words = RemoveFillers(words)
	}

	if len(words) == 0 {
		return []TranscriptSegment{{Start: 0, End: asr.Duration, Text: ""}}
	}

	if diarization == nil || len(diarization.Segments) == 0 {
		return GroupWithoutDiarization(words)
	}

	attributed := AssignSpeakers(words, diarization.Segments)
	SnapToPauses(attributed)
	AbsorbNilSpeakers(attributed)
	SmoothShortRuns(attributed)

	return GroupIntoSegments(attributed)
}

func trivialSegment(asr ASRResult) TranscriptSegment {
	return TranscriptSegment{
		Start: 0,
		End:   asr.Duration,
		Text:  strings.TrimSpace(asr.Text),
	}
}
