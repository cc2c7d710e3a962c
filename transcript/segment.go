package transcript

import "strings"

// GroupIntoSegments группирует финальную последовательность
// AttributedWord в TranscriptSegment, выровненные по границам
// предложений и сменам спикера. Ожидает слова уже прошедшие стадии
// назначения спикера, snap-репарации и сглаживания.
func GroupIntoSegments(words []AttributedWord) []TranscriptSegment {
	if len(words) == 0 {
		return nil
	}

	var segments []TranscriptSegment
	var acc []AttributedWord
	lastSpeakerChangeIdx := 0

	emit := func() {
		if len(acc) == 0 {
			return
		}
		segments = append(segments, buildSegment(acc))
		acc = nil
		lastSpeakerChangeIdx = 0
	}

	for i, w := range words {
		acc = append(acc, w)
		accIdx := len(acc) - 1

		if accIdx > 0 && !sameSpeaker(acc[accIdx-1].Speaker, acc[accIdx].Speaker) {
			lastSpeakerChangeIdx = accIdx
		}

		hasNext := i+1 < len(words)
		isSentenceEnd := endsSentence(w.Word.Word)
		isPause := hasNext && words[i+1].Word.Start-w.Word.End > sentencePauseGap
		boundary := isSentenceEnd || isPause

		speakerChangeNext := hasNext && !sameSpeaker(w.Speaker, words[i+1].Speaker)

		switch {
		case boundary && speakerChangeNext:
			emit()
			continue
		case boundary && !speakerChangeNext && hasNext:
			gap := words[i+1].Word.Start - w.Word.End
			if gap > lookaheadGap && speakerChangesWithin(words, i, lookaheadWords) {
				emit()
				continue
			}
		}

		duration := acc[accIdx].Word.End - acc[0].Word.Start
		if duration >= maxSegmentDuration && lastSpeakerChangeIdx > 0 {
			prefix := acc[:lastSpeakerChangeIdx]
			segments = append(segments, buildSegment(prefix))
			acc = append([]AttributedWord{}, acc[lastSpeakerChangeIdx:]...)
			lastSpeakerChangeIdx = 0
			for k := 1; k < len(acc); k++ {
				if !sameSpeaker(acc[k-1].Speaker, acc[k].Speaker) {
					lastSpeakerChangeIdx = k
				}
			}
		}
	}

	emit()
	return segments
}

// speakerChangesWithin сообщает, отличается ли спикер слова с индексом
// i от спикера хотя бы одного из следующих до window слов.
func speakerChangesWithin(words []AttributedWord, i, window int) bool {
	base := words[i].Speaker
	for k := i + 1; k < len(words) && k <= i+window; k++ {
		if !sameSpeaker(base, words[k].Speaker) {
			return true
		}
	}
	return false
}

func endsSentence(word string) bool {
	if word == "" {
		return false
	}
	r := []rune(word)
	last := r[len(r)-1]
	return sentenceEnders[last]
}

// buildSegment строит TranscriptSegment из непустого набора слов.
// Спикер сегмента — тот, чья суммарная собственная длительность слов
// (end - start) максимальна; сегмент из полностью безспикерных слов
// получает nil-спикера.
func buildSegment(words []AttributedWord) TranscriptSegment {
	totals := make(map[string]float64)
	order := make([]string, 0, 2)

	for _, w := range words {
		if w.Speaker == nil {
			continue
		}
		if _, seen := totals[*w.Speaker]; !seen {
			order = append(order, *w.Speaker)
		}
		totals[*w.Speaker] += w.Word.End - w.Word.Start
	}

	var speaker *string
	if len(order) > 0 {
		best := order[0]
		for _, id := range order[1:] {
			if totals[id] > totals[best] {
				best = id
			}
		}
		speaker = &best
	}

	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Word.Word
	}

	return TranscriptSegment{
		Start:   words[0].Word.Start,
		End:     words[len(words)-1].Word.End,
		Text:    strings.Join(texts, " "),
		Speaker: speaker,
	}
}

// GroupWithoutDiarization реализует вырожденный случай: без результата
// диаризации группировка идёт только по границам предложений и паузам
// > sentencePauseGap, без учёта смены спикера — у всех сегментов
// Speaker == nil.
func GroupWithoutDiarization(words []WordTiming) []TranscriptSegment {
	if len(words) == 0 {
		return nil
	}

	var segments []TranscriptSegment
	var acc []WordTiming

	emit := func() {
		if len(acc) == 0 {
			return
		}
		texts := make([]string, len(acc))
		for i, w := range acc {
			texts[i] = w.Word
		}
		segments = append(segments, TranscriptSegment{
			Start: acc[0].Start,
			End:   acc[len(acc)-1].End,
			Text:  strings.Join(texts, " "),
		})
		acc = nil
	}

	for i, w := range words {
		acc = append(acc, w)

		hasNext := i+1 < len(words)
		isSentenceEnd := endsSentence(w.Word)
		isPause := hasNext && words[i+1].Start-w.End > sentencePauseGap

		if isSentenceEnd || isPause {
			emit()
		}
	}
	emit()

	return segments
}
