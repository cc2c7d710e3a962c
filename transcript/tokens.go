package transcript

import "strings"

// MergeTokensToWords склеивает субсловные токены ASR в слова.
//
// Токен, начинающийся с пробельного символа, открывает новое слово;
// последующие токены без ведущего пробела продолжают текущее. Для
// каждого слова Start берётся от первого токена, End — от последнего,
// Confidence — среднее арифметическое по вложенным токенам (0 для
// пустого слова — защитный случай, которого не должно происходить на
// практике). Поток, начинающийся без ведущего пробела, всё равно даёт
// слово с началом в первом токене: обнаружение пробела опортунистично,
// а не обязательно.
func MergeTokensToWords(tokens []TokenTiming) []WordTiming {
	if len(tokens) == 0 {
		return nil
	}

	words := make([]WordTiming, 0, len(tokens))
	var current []TokenTiming

	flush := func() {
		if len(current) == 0 {
			return
		}
		words = append(words, mergeWord(current))
		current = nil
	}

	for _, tok := range tokens {
		if startsNewWord(tok.Token) && len(current) > 0 {
			flush()
		}
		current = append(current, tok)
	}
	flush()

	return words
}

// startsNewWord сообщает, открывает ли токен новое слово: первый
// символ токена — пробел, табуляция или перенос строки.
func startsNewWord(token string) bool {
	if token == "" {
		return false
	}
	switch token[0] {
	case ' ', '\t', '\n':
		return true
	default:
		return false
	}
}

func mergeWord(tokens []TokenTiming) WordTiming {
	var text strings.Builder
	var total float32

	for i, tok := range tokens {
		piece := tok.Token
		if i == 0 {
			piece = strings.TrimLeft(piece, " \t\n")
		}
		text.WriteString(piece)
		total += tok.Confidence
	}

	conf := float32(0)
	if len(tokens) > 0 {
		conf = total / float32(len(tokens))
	}

	return WordTiming{
		Word:       text.String(),
		Start:      tokens[0].Start,
		End:        tokens[len(tokens)-1].End,
		Confidence: conf,
	}
}
