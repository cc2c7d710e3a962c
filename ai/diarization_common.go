// Package ai предоставляет общий интерфейс диаризации и логику,
// не зависящую от конкретного бэкенда (Sherpa, FluidAudio).
package ai

import (
	"fmt"

	"turnscribe/transcript"
)

// Diarizer — интерфейс диаризатора спикеров. AudioPipeline работает
// через него, не зная, какой бэкенд выполняет диаризацию:
// SherpaDiarizer (sherpa-onnx, кроссплатформенный) или FluidDiarizer
// (FluidAudio/CoreML, только macOS).
type Diarizer interface {
	// Diarize выполняет диаризацию аудио и возвращает сегменты речи с ID спикера
	Diarize(samples []float32) ([]SpeakerSegment, error)

	// DiarizeWithTranscription сопоставляет уже готовые сегменты
	// транскрипции со спикерами по максимальному временному перекрытию
	DiarizeWithTranscription(segments []TranscriptSegment, speakerSegments []SpeakerSegment) []TranscriptSegment

	// ToSpeakerSegments адаптирует сегменты диаризации к
	// transcript.SpeakerSegment для пословного присвоения спикеров
	ToSpeakerSegments(segments []SpeakerSegment) []transcript.SpeakerSegment

	// IsInitialized проверяет готовность диаризатора к работе
	IsInitialized() bool

	// GetProvider возвращает используемый provider инференса (cpu, coreml, cuda)
	GetProvider() string

	// Close освобождает ресурсы диаризатора
	Close()
}

// findSpeakerForTimeRange находит спикера с максимальным перекрытием
// для временного диапазона. Общая логика для всех бэкендов диаризации.
func findSpeakerForTimeRange(start, end float32, speakerSegments []SpeakerSegment) int {
	maxOverlap := float32(0)
	bestSpeaker := 0

	for _, seg := range speakerSegments {
		overlapStart := max(start, seg.Start)
		overlapEnd := min(end, seg.End)
		overlap := overlapEnd - overlapStart

		if overlap > maxOverlap {
			maxOverlap = overlap
			bestSpeaker = seg.Speaker
		}
	}

	return bestSpeaker
}

// diarizeWithTranscription объединяет результаты диаризации с транскрипцией,
// сопоставляя сегменты и отдельные слова с сегментами спикеров по времени
func diarizeWithTranscription(segments []TranscriptSegment, speakerSegments []SpeakerSegment) []TranscriptSegment {
	if len(segments) == 0 || len(speakerSegments) == 0 {
		return segments
	}

	result := make([]TranscriptSegment, len(segments))
	copy(result, segments)

	for i := range result {
		segStart := float32(result[i].Start) / 1000.0 // ms -> sec
		segEnd := float32(result[i].End) / 1000.0

		speaker := findSpeakerForTimeRange(segStart, segEnd, speakerSegments)
		result[i].Speaker = fmt.Sprintf("Speaker %d", speaker)

		for j := range result[i].Words {
			wordStart := float32(result[i].Words[j].Start) / 1000.0
			wordEnd := float32(result[i].Words[j].End) / 1000.0
			wordSpeaker := findSpeakerForTimeRange(wordStart, wordEnd, speakerSegments)
			result[i].Words[j].Speaker = fmt.Sprintf("Speaker %d", wordSpeaker)
		}
	}

	return result
}

// speakerSegmentsToTranscript адаптирует SpeakerSegment (int-идентификатор
// спикера, секунды float32) к transcript.SpeakerSegment (строковый
// SpeakerID, секунды float64) — граница, на которой результат диаризации
// входит в пословное присвоение спикеров пакета transcript.
func speakerSegmentsToTranscript(segments []SpeakerSegment) []transcript.SpeakerSegment {
	out := make([]transcript.SpeakerSegment, len(segments))
	for i, seg := range segments {
		out[i] = transcript.SpeakerSegment{
			SpeakerID: fmt.Sprintf("Speaker %d", seg.Speaker),
			Start:     float64(seg.Start),
			End:       float64(seg.End),
		}
	}
	return out
}

func max(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
