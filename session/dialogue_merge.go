package session

import "sort"

// micSpeakerLabels — метки канала микрофона, используемые разными
// местами пайплайна (UI показывает "Вы", внутренние структуры — "mic").
var micSpeakerLabels = map[string]bool{
	"mic": true,
	"Вы":  true,
}

// hasWordTimings сообщает, содержит ли хотя бы один сегмент пословные
// таймстемпы — признак того, что mergeWordsToDialogue применим.
func hasWordTimings(segments []TranscriptSegment) bool {
	for _, seg := range segments {
		if len(seg.Words) > 0 {
			return true
		}
	}
	return false
}

// isMicSpeaker сообщает, принадлежит ли метка спикера каналу
// микрофона, а не системному звуку. Пустая строка и любая метка
// собеседника (включая нумерованные "Собеседник N" от диаризации)
// считаются не-микрофонными.
func isMicSpeaker(speaker string) bool {
	return micSpeakerLabels[speaker]
}

// collectAllWords собирает слова из обоих каналов в один
// невыровненный по времени список, проставляя каждому слову метку
// спикера его сегмента (если у слова своя метка не задана).
func collectAllWords(micSegments, sysSegments []TranscriptSegment) []TranscriptWord {
	var words []TranscriptWord

	collect := func(segments []TranscriptSegment) {
		for _, seg := range segments {
			for _, w := range seg.Words {
				if w.Speaker == "" {
					w.Speaker = seg.Speaker
				}
				words = append(words, w)
			}
		}
	}

	collect(micSegments)
	collect(sysSegments)

	return words
}

// mergeWordsToDialogue объединяет две независимые пословные
// транскрипции (микрофон и системный звук) в один хронологический
// диалог на уровне слов. В отличие от простого слияния на уровне
// сегментов (mergeSegmentsToDialogue), короткая реплика на одном
// канале, попавшая внутрь более длинной реплики на другом канале, не
// склеивается с ней и не теряется: слова сортируются по времени, а
// затем перегруппировываются в фразы — новая фраза начинается при
// каждой смене метки спикера; после этого postProcessDialogue
// склеивает соседние фразы одного спикера с короткой паузой между ними.
// Границы предложений и пороги длительности пакета transcript здесь
// не применяются.
func mergeWordsToDialogue(micSegments, sysSegments []TranscriptSegment) []TranscriptSegment {
	words := collectAllWords(micSegments, sysSegments)
	if len(words) == 0 {
		return nil
	}

	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Start < words[j].Start
	})

	var phrases []TranscriptSegment
	var acc []TranscriptWord

	flush := func() {
		if len(acc) == 0 {
			return
		}
		phrases = append(phrases, buildPhrase(acc))
		acc = nil
	}

	for i, w := range words {
		if len(acc) > 0 && acc[len(acc)-1].Speaker != w.Speaker {
			flush()
		}
		acc = append(acc, w)
		_ = i
	}
	flush()

	return postProcessDialogue(phrases)
}

func buildPhrase(words []TranscriptWord) TranscriptSegment {
	var text string
	for i, w := range words {
		if i > 0 {
			text += " "
		}
		text += w.Text
	}

	return TranscriptSegment{
		Start:   words[0].Start,
		End:     words[len(words)-1].End,
		Text:    text,
		Speaker: words[0].Speaker,
		Words:   words,
	}
}

// postProcessDialogue объединяет соседние фразы одного спикера,
// разделённые незначительной паузой (< dialoguePauseMergeMs), в одну.
// Это устраняет артефакты перегруппировки по словам, когда короткое
// молчание внутри одной реплики оказалось разбито на две фразы.
const dialoguePauseMergeMs = 500

func postProcessDialogue(phrases []TranscriptSegment) []TranscriptSegment {
	if len(phrases) == 0 {
		return phrases
	}

	merged := []TranscriptSegment{phrases[0]}

	for _, p := range phrases[1:] {
		last := &merged[len(merged)-1]
		if last.Speaker == p.Speaker && p.Start-last.End < dialoguePauseMergeMs {
			last.Text = last.Text + " " + p.Text
			last.End = p.End
			last.Words = append(last.Words, p.Words...)
			continue
		}
		merged = append(merged, p)
	}

	return merged
}
