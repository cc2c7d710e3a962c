// Package ai предоставляет AudioPipeline для комплексной обработки аудио
package ai

import (
	"fmt"
	"log"
	"sync"

	"turnscribe/transcript"
)

// TokenTranscriber — необязательный расширенный интерфейс движка
// транскрипции, отдающий сырые субсловные токены вместо готовых
// сегментов. Движки, реализующие его (сейчас — GigaAMRNNTEngine),
// позволяют AudioPipeline прогонять полный конвейер устранения слов-
// заполнителей, назначения спикеров и группировки из пакета transcript
// вместо упрощённого overlap-based сопоставления сегментов.
type TokenTranscriber interface {
	TranscribeTokens(samples []float32) ([]transcript.TokenTiming, float64, error)
}

// PipelineConfig конфигурация аудио пайплайна
type PipelineConfig struct {
	// Диаризация
	EnableDiarization     bool   // Включить диаризацию спикеров
	SegmentationModelPath string // Путь к модели сегментации pyannote
	EmbeddingModelPath    string // Путь к модели speaker embedding

	// Параметры диаризации
	ClusteringThreshold float32 // Порог кластеризации (0.0-1.0)
	MinDurationOn       float32 // Мин. длительность речи (сек)
	MinDurationOff      float32 // Мин. длительность паузы (сек)

	// ONNX
	NumThreads int    // Количество потоков
	Provider   string // ONNX provider: cpu, cuda, coreml

	// DiarizationBackend выбирает реализацию диаризатора: "sherpa"
	// (sherpa-onnx, кроссплатформенный, по умолчанию, требует
	// SegmentationModelPath/EmbeddingModelPath) или "fluid" (FluidAudio/
	// CoreML subprocess, только macOS, не использует ONNX-модели —
	// FluidBinaryPath задаёт путь к CLI-бинарнику)
	DiarizationBackend string

	// FluidBinaryPath — путь к diarization-fluid CLI (только для
	// DiarizationBackend == "fluid"). Пусто — используется автопоиск
	// рядом с исполняемым файлом (см. getFluidBinaryPath)
	FluidBinaryPath string

	// RemoveFillers включает устранение слов-заполнителей ("um", "uh"
	// и т.п.) на этапе слияния транскрипции с диаризацией. Выключено
	// по умолчанию — вызывающая сторона решает, нужна ли эта
	// нормализация для конкретного сценария (например, для субтитров
	// заполнители обычно нежелательны, а для дословной стенограммы —
	// наоборот).
	RemoveFillers bool
}

// DefaultPipelineConfig возвращает конфигурацию по умолчанию
// Provider "auto" означает автоматическое определение лучшего устройства
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		EnableDiarization:   false,
		ClusteringThreshold: 0.5,
		MinDurationOn:       0.3,
		MinDurationOff:      0.5,
		NumThreads:          4,
		Provider:            "auto", // Автоопределение: coreml на Apple Silicon, cpu иначе
	}
}

// PipelineResult результат обработки аудио пайплайном
type PipelineResult struct {
	Segments        []TranscriptSegment // Сегменты с текстом и таймстемпами
	SpeakerSegments []SpeakerSegment    // Сегменты смены спикеров (если диаризация включена)
	NumSpeakers     int                 // Количество обнаруженных спикеров
	FullText        string              // Полный текст транскрипции
}

// AudioPipeline оркестрирует транскрипцию и диаризацию
type AudioPipeline struct {
	transcriber TranscriptionEngine // Движок транскрипции (GigaAM/FluidASR)
	diarizer    Diarizer            // Диаризатор (опционально): SherpaDiarizer или FluidDiarizer
	config      PipelineConfig
	mu          sync.RWMutex
}

// NewAudioPipeline создаёт новый пайплайн обработки аудио
func NewAudioPipeline(transcriber TranscriptionEngine, config PipelineConfig) (*AudioPipeline, error) {
	if transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}

	pipeline := &AudioPipeline{
		transcriber: transcriber,
		config:      config,
	}

	// Инициализируем диаризатор если включен
	if config.EnableDiarization {
		if err := pipeline.initDiarizer(); err != nil {
			log.Printf("Warning: diarization initialization failed: %v", err)
			// Продолжаем без диаризации
		}
	}

	return pipeline, nil
}

// initDiarizer инициализирует диаризатор в соответствии с config.DiarizationBackend
func (p *AudioPipeline) initDiarizer() error {
	backend := p.config.DiarizationBackend
	if backend == "" {
		backend = "sherpa"
	}

	var diarizer Diarizer
	var err error

	switch backend {
	case "fluid":
		diarizer, err = NewFluidDiarizer(FluidDiarizerConfig{
			BinaryPath:          p.config.FluidBinaryPath,
			ClusteringThreshold: float64(p.config.ClusteringThreshold),
			MinSegmentDuration:  float64(p.config.MinDurationOn),
			MinGapDuration:      float64(p.config.MinDurationOff),
		})
	case "sherpa":
		if p.config.SegmentationModelPath == "" || p.config.EmbeddingModelPath == "" {
			return fmt.Errorf("segmentation and embedding model paths are required for sherpa diarization")
		}
		diarizer, err = NewSherpaDiarizer(SherpaDiarizerConfig{
			SegmentationModelPath: p.config.SegmentationModelPath,
			EmbeddingModelPath:    p.config.EmbeddingModelPath,
			NumThreads:            p.config.NumThreads,
			ClusteringThreshold:   p.config.ClusteringThreshold,
			MinDurationOn:         p.config.MinDurationOn,
			MinDurationOff:        p.config.MinDurationOff,
			Provider:              p.config.Provider,
		})
	default:
		return fmt.Errorf("unknown diarization backend: %s", backend)
	}

	if err != nil {
		return err
	}

	p.diarizer = diarizer
	log.Printf("AudioPipeline: diarization enabled (backend=%s)", backend)
	return nil
}

// Process обрабатывает аудио: транскрипция + диаризация (если включена)
// samples - аудио данные в формате float32, 16kHz, mono
func (p *AudioPipeline) Process(samples []float32) (*PipelineResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(samples) == 0 {
		return &PipelineResult{}, nil
	}

	if tt, ok := p.transcriber.(TokenTranscriber); ok {
		return p.processWithAttribution(tt, samples)
	}
	return p.processLegacy(samples, p.transcriber.TranscribeWithSegments)
}

// ProcessHighQuality выполняет высококачественную обработку (для финальной транскрипции)
func (p *AudioPipeline) ProcessHighQuality(samples []float32) (*PipelineResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(samples) == 0 {
		return &PipelineResult{}, nil
	}

	if tt, ok := p.transcriber.(TokenTranscriber); ok {
		// Токеновый путь одинаково "высококачественен" вне зависимости
		// от режима: он не теряет разрешение, в отличие от
		// TranscribeHighQuality на движках без TokenTranscriber.
		return p.processWithAttribution(tt, samples)
	}
	return p.processLegacy(samples, p.transcriber.TranscribeHighQuality)
}

// processWithAttribution прогоняет токены RNNT-движка через полный
// конвейер пакета transcript: устранение слов-заполнителей, назначение
// спикеров с учётом непрерывности реплики, устранение дребезга на
// границах и группировку в предложения. Это путь, который использует
// диаризацию с наибольшей точностью, поскольку решения принимаются на
// уровне слов, а не готовых сегментов транскрипции.
func (p *AudioPipeline) processWithAttribution(tt TokenTranscriber, samples []float32) (*PipelineResult, error) {
	tokens, duration, err := tt.TranscribeTokens(samples)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	asr := transcript.ASRResult{TokenTimings: tokens, Duration: duration}

	result := &PipelineResult{}
	var diarization *transcript.DiarizationResult

	if p.diarizer != nil && p.diarizer.IsInitialized() {
		speakerSegments, err := p.diarizer.Diarize(samples)
		if err != nil {
			log.Printf("Warning: diarization failed: %v", err)
		} else {
			result.SpeakerSegments = speakerSegments
			result.NumSpeakers = p.countUniqueSpeakers(speakerSegments)
			diarization = &transcript.DiarizationResult{Segments: p.diarizer.ToSpeakerSegments(speakerSegments)}
		}
	}

	merged := transcript.MergeResults(asr, diarization, p.config.RemoveFillers)
	result.Segments = make([]TranscriptSegment, len(merged))
	for i, seg := range merged {
		speaker := ""
		if seg.Speaker != nil {
			speaker = *seg.Speaker
		}
		result.Segments[i] = TranscriptSegment{
			Start:   int64(seg.Start * 1000),
			End:     int64(seg.End * 1000),
			Text:    seg.Text,
			Speaker: speaker,
		}
		if result.FullText != "" {
			result.FullText += " "
		}
		result.FullText += seg.Text
	}

	return result, nil
}

// processLegacy — путь для движков без TokenTranscriber (например,
// FluidASREngine): диаризация сопоставляется с уже готовыми
// сегментами транскрипции по максимальному перекрытию, как раньше.
func (p *AudioPipeline) processLegacy(samples []float32, transcribe func([]float32) ([]TranscriptSegment, error)) (*PipelineResult, error) {
	result := &PipelineResult{}

	segments, err := transcribe(samples)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	result.Segments = segments

	for _, seg := range segments {
		if result.FullText != "" {
			result.FullText += " "
		}
		result.FullText += seg.Text
	}

	if p.diarizer != nil && p.diarizer.IsInitialized() {
		speakerSegments, err := p.diarizer.Diarize(samples)
		if err != nil {
			log.Printf("Warning: diarization failed: %v", err)
		} else {
			result.SpeakerSegments = speakerSegments
			result.NumSpeakers = p.countUniqueSpeakers(speakerSegments)
			result.Segments = p.diarizer.DiarizeWithTranscription(segments, speakerSegments)
		}
	}

	return result, nil
}

// EnableDiarization включает диаризацию с указанными моделями
func (p *AudioPipeline) EnableDiarization(segmentationPath, embeddingPath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Закрываем старый диаризатор если есть
	if p.diarizer != nil {
		p.diarizer.Close()
		p.diarizer = nil
	}

	p.config.EnableDiarization = true
	p.config.SegmentationModelPath = segmentationPath
	p.config.EmbeddingModelPath = embeddingPath

	return p.initDiarizer()
}

// DisableDiarization отключает диаризацию
func (p *AudioPipeline) DisableDiarization() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.diarizer != nil {
		p.diarizer.Close()
		p.diarizer = nil
	}
	p.config.EnableDiarization = false
}

// IsDiarizationEnabled возвращает true если диаризация включена и инициализирована
func (p *AudioPipeline) IsDiarizationEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.diarizer != nil && p.diarizer.IsInitialized()
}

// GetDiarizationProvider возвращает текущий provider для диаризации (cpu, coreml, cuda)
// Возвращает пустую строку если диаризация не включена
func (p *AudioPipeline) GetDiarizationProvider() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.diarizer != nil {
		return p.diarizer.GetProvider()
	}
	return ""
}

// SetTranscriber устанавливает новый движок транскрипции
func (p *AudioPipeline) SetTranscriber(transcriber TranscriptionEngine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transcriber = transcriber
}

// GetTranscriber возвращает текущий движок транскрипции
func (p *AudioPipeline) GetTranscriber() TranscriptionEngine {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.transcriber
}

// Close освобождает ресурсы пайплайна
func (p *AudioPipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.diarizer != nil {
		p.diarizer.Close()
		p.diarizer = nil
	}
	// Примечание: transcriber не закрываем, им управляет EngineManager
}

// countUniqueSpeakers подсчитывает уникальных спикеров
func (p *AudioPipeline) countUniqueSpeakers(segments []SpeakerSegment) int {
	speakers := make(map[int]bool)
	for _, seg := range segments {
		speakers[seg.Speaker] = true
	}
	return len(speakers)
}

// MergeSegmentsWithSpeakers объединяет сегменты транскрипции с информацией о спикерах
// Это утилитарная функция для случаев когда диаризация выполняется отдельно
func MergeSegmentsWithSpeakers(
	transcriptSegments []TranscriptSegment,
	speakerSegments []SpeakerSegment,
) []TranscriptSegment {
	if len(transcriptSegments) == 0 || len(speakerSegments) == 0 {
		return transcriptSegments
	}

	result := make([]TranscriptSegment, len(transcriptSegments))
	copy(result, transcriptSegments)

	for i := range result {
		segStart := float32(result[i].Start) / 1000.0
		segEnd := float32(result[i].End) / 1000.0

		speaker := findSpeakerForTimeRange(segStart, segEnd, speakerSegments)
		result[i].Speaker = fmt.Sprintf("Speaker %d", speaker)
	}

	return result
}
