// Package transcript объединяет результаты ASR и диаризации в один
// размеченный по спикерам транскрипт. Пакет не содержит внешних
// зависимостей: входные данные уже посчитаны движком распознавания речи
// и диаризатором, здесь только детерминированная пост-обработка.
package transcript

// TokenTiming — минимальная единица вывода ASR. Token может начинаться
// с пробельного символа (включая табуляцию и перенос строки) — это
// признак начала нового слова в духе SentencePiece.
type TokenTiming struct {
	Token      string
	Start      float64
	End        float64
	Confidence float32
}

// WordTiming — слово, полученное склейкой одного или нескольких токенов.
type WordTiming struct {
	Word       string
	Start      float64
	End        float64
	Confidence float32
}

// SpeakerSegment — сегмент диаризации. SpeakerID непрозрачен и
// стабилен только в пределах одного результата диаризации; сегменты
// могут перекрываться и не обязаны покрывать весь таймлайн.
type SpeakerSegment struct {
	SpeakerID string
	Start     float64
	End       float64
}

// AttributedWord — слово с предварительно назначенным спикером.
// Speaker == nil означает "ни один сегмент диаризации не подошёл".
type AttributedWord struct {
	Word    WordTiming
	Speaker *string
}

// TranscriptSegment — выходная единица: непрерывный по времени блок
// текста одного спикера (или без спикера, если диаризация отсутствует
// или все слова сегмента не были размечены).
type TranscriptSegment struct {
	Start   float64
	End     float64
	Text    string
	Speaker *string
}

// run — максимальная непрерывная подпоследовательность AttributedWord
// с одинаковым значением Speaker (включая совпадающий nil). Строится
// по требованию на шаге сглаживания.
type run struct {
	speaker    *string
	start, end int // индексы в words, end исключительно
}

func (r run) duration(words []AttributedWord) float64 {
	return words[r.end-1].Word.End - words[r.start].Word.Start
}

// ASRResult — вход пайплайна со стороны распознавания речи.
type ASRResult struct {
	Text         string
	Duration     float64
	TokenTimings []TokenTiming
}

// DiarizationResult — вход пайплайна со стороны диаризации.
type DiarizationResult struct {
	Segments []SpeakerSegment
}

// Константы с фиксированным смыслом (не конфигурируются). Значения
// подобраны эмпирически и менять их без повторного прогона
// регрессионных тестов не следует — см. §4.3 и §4.4 спецификации
// пайплайна.
const (
	continuityBonus      = 0.08  // секунды, добавляются прежнему спикеру при near-tie
	fallbackSearchRadius = 2.0   // секунды, порог для ближайшего сегмента при пустой карте overlap
	pauseThreshold       = 0.3   // секунды, порог "реальной" паузы для snap-прохода
	snapWordCap          = 3     // слов, максимум для одного snap-окна
	snapDurationCap      = 2.0   // секунды, максимум накопленной длительности snap-окна
	shortRunThreshold    = 1.5   // секунды, минимальная длительность "устойчивого" run
	sentencePauseGap     = 1.0   // секунды, пауза, которая сама по себе считается границей предложения
	lookaheadWords       = 3     // слов, окно проверки смены спикера вперёд
	lookaheadGap         = 0.15  // секунды, минимальный зазор для срабатывания lookahead-правила
	maxSegmentDuration   = 30.0  // секунды, safety cap
)

// sentenceEnders — символы, завершающие предложение.
var sentenceEnders = map[rune]bool{'.': true, '!': true, '?': true}

// fillerWords — фиксированный список слов-заполнителей. Намеренно
// минимален: только однозначные, односложные формы, чтобы не зацепить
// короткие слова в других языках (см. design notes по локализации).
var fillerWords = map[string]bool{
	"um": true, "uh": true, "umm": true, "uhh": true,
	"hmm": true, "hm": true, "er": true, "ah": true,
	"erm": true, "eh": true, "mm": true,
}
