package session

import (
	"math"
)

// DetectSpeechStart определяет момент начала речи в аудио (в миллисекундах)
// Использует простой Voice Activity Detection на основе энергии сигнала
func DetectSpeechStart(samples []float32, sampleRate int) int64 {
	if len(samples) == 0 {
		return 0
	}

	const (
		// Размер окна для анализа (50 мс)
		windowMs = 50
		// Порог энергии для определения речи
		energyThreshold = 0.01
		// Количество последовательных окон с речью для подтверждения
		confirmWindows = 2
	)

	windowSamples := (sampleRate * windowMs) / 1000
	if windowSamples <= 0 {
		windowSamples = 1
	}

	var confirmedCount int
	var speechStartWindow int = -1

	// Анализируем окнами
	for i := 0; i < len(samples); i += windowSamples {
		end := i + windowSamples
		if end > len(samples) {
			end = len(samples)
		}

		// Вычисляем RMS энергию окна
		energy := calculateWindowEnergy(samples[i:end])

		if energy >= energyThreshold {
			if confirmedCount == 0 {
				speechStartWindow = i / windowSamples
			}
			confirmedCount++

			// Если нашли достаточно подтверждений подряд
			if confirmedCount >= confirmWindows {
				// Возвращаем начало первого окна с речью
				startMs := int64(speechStartWindow * windowMs)
				return startMs
			}
		} else {
			// Сбрасываем счетчик если встретили тишину
			confirmedCount = 0
			speechStartWindow = -1
		}
	}

	// Если не нашли речь, возвращаем 0
	return 0
}

// calculateWindowEnergy вычисляет RMS энергию окна
func calculateWindowEnergy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s * s)
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// AlignSegmentTimestamps корректирует таймстемпы сегментов с учётом offset начала речи
func AlignSegmentTimestamps(segments []TranscriptSegment, offsetMs int64) []TranscriptSegment {
	if offsetMs == 0 {
		return segments
	}

	aligned := make([]TranscriptSegment, len(segments))
	for i, seg := range segments {
		aligned[i] = TranscriptSegment{
			Start:   seg.Start + offsetMs,
			End:     seg.End + offsetMs,
			Text:    seg.Text,
			Speaker: seg.Speaker,
		}
	}

	return aligned
}

// ApplyOffsetToSegments возвращает segments без изменений: offsetMs не
// применяется. Сдвиг таймстемпов сегментов выполняет AlignSegmentTimestamps.
func ApplyOffsetToSegments(segments interface{}, offsetMs int64) interface{} {
	return segments
}

// SpeechRegion представляет один участок речи, обнаруженный VAD
type SpeechRegion struct {
	StartMs int64
	EndMs   int64
}

// VADMethod метод определения речи
type VADMethod string

const (
	// VADMethodEnergy - VAD на основе RMS энергии сигнала
	VADMethodEnergy VADMethod = "energy"
	// VADMethodAuto - автовыбор метода (сейчас единственный доступный метод - energy)
	VADMethodAuto VADMethod = "auto"
)

const (
	vadWindowMs         = 30
	vadEnergyThreshold  = 0.01
	vadMergeGapMs       = 300
	vadMinRegionMs      = 200
)

// DetectSpeechRegions находит участки речи в аудио на основе энергии сигнала.
// Соседние участки, разделённые паузой короче vadMergeGapMs, склеиваются;
// участки короче vadMinRegionMs отбрасываются как шум.
func DetectSpeechRegions(samples []float32, sampleRate int) []SpeechRegion {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil
	}

	windowSamples := (sampleRate * vadWindowMs) / 1000
	if windowSamples <= 0 {
		windowSamples = 1
	}

	numWindows := (len(samples) + windowSamples - 1) / windowSamples

	var regions []SpeechRegion
	active := false
	startWindow := 0

	for w := 0; w < numWindows; w++ {
		start := w * windowSamples
		end := start + windowSamples
		if end > len(samples) {
			end = len(samples)
		}

		speech := calculateWindowEnergy(samples[start:end]) >= vadEnergyThreshold

		if speech && !active {
			active = true
			startWindow = w
		} else if !speech && active {
			active = false
			regions = append(regions, SpeechRegion{
				StartMs: int64(startWindow * vadWindowMs),
				EndMs:   int64(w * vadWindowMs),
			})
		}
	}

	if active {
		regions = append(regions, SpeechRegion{
			StartMs: int64(startWindow * vadWindowMs),
			EndMs:   int64(numWindows * vadWindowMs),
		})
	}

	return mergeAndFilterRegions(regions)
}

// DetectSpeechRegionsWithMethod определяет участки речи указанным методом.
// Energy - единственный поддерживаемый метод; Silero был убран вместе с
// нативной зависимостью onnxruntime для VAD, которая не использовалась
// нигде кроме него.
func DetectSpeechRegionsWithMethod(samples []float32, sampleRate int, method VADMethod) []SpeechRegion {
	return DetectSpeechRegions(samples, sampleRate)
}

func mergeAndFilterRegions(regions []SpeechRegion) []SpeechRegion {
	if len(regions) == 0 {
		return nil
	}

	merged := []SpeechRegion{regions[0]}
	for _, r := range regions[1:] {
		last := &merged[len(merged)-1]
		if r.StartMs-last.EndMs <= vadMergeGapMs {
			last.EndMs = r.EndMs
		} else {
			merged = append(merged, r)
		}
	}

	filtered := merged[:0]
	for _, r := range merged {
		if r.EndMs-r.StartMs >= vadMinRegionMs {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// CompressedAudio хранит аудио, склеенное из участков речи (тишина между
// ними вырезана), и исходные регионы, необходимые чтобы отобразить
// таймстемпы транскрипции сжатого аудио обратно на исходное время.
type CompressedAudio struct {
	CompressedSamples []float32
	Regions           []SpeechRegion
}

// CompressSpeechFromRegions вырезает тишину между регионами речи, склеивая
// их последовательно в один буфер.
func CompressSpeechFromRegions(samples []float32, regions []SpeechRegion, sampleRate int) CompressedAudio {
	if len(regions) == 0 {
		return CompressedAudio{CompressedSamples: samples}
	}

	var out []float32
	for _, r := range regions {
		start := int(r.StartMs * int64(sampleRate) / 1000)
		end := int(r.EndMs * int64(sampleRate) / 1000)
		if start < 0 {
			start = 0
		}
		if end > len(samples) {
			end = len(samples)
		}
		if start >= end {
			continue
		}
		out = append(out, samples[start:end]...)
	}

	return CompressedAudio{CompressedSamples: out, Regions: regions}
}

// MapWhisperTimeToRealTime переводит миллисекунды в сжатом (без пауз) аудио
// в миллисекунды в исходном аудио, используя регионы, из которых оно было
// склеено CompressSpeechFromRegions. Имя сохранено из времён, когда
// единственным движком был Whisper; сейчас используется для любого движка.
func MapWhisperTimeToRealTime(compressedMs int64, regions []SpeechRegion) int64 {
	if len(regions) == 0 {
		return compressedMs
	}

	var cursor int64
	for _, r := range regions {
		d := r.EndMs - r.StartMs
		if compressedMs <= cursor+d {
			return r.StartMs + (compressedMs - cursor)
		}
		cursor += d
	}

	last := regions[len(regions)-1]
	return last.EndMs + (compressedMs - cursor)
}

// MapRealTimeToCompressedTime переводит миллисекунды в исходном аудио в
// миллисекунды в сжатом (без пауз) аудио, обратная операция к
// MapWhisperTimeToRealTime.
func MapRealTimeToCompressedTime(realMs int64, regions []SpeechRegion) int64 {
	if len(regions) == 0 {
		return realMs
	}

	var cursor int64
	for _, r := range regions {
		if realMs < r.StartMs {
			return cursor
		}
		if realMs <= r.EndMs {
			return cursor + (realMs - r.StartMs)
		}
		cursor += r.EndMs - r.StartMs
	}

	return cursor
}
