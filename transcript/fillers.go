package transcript

import "strings"

// RemoveFillers убирает слова-заполнители из списка. Нормализация —
// приведение к нижнему регистру и обрезка ведущей/хвостовой пунктуации
// перед сравнением с фиксированным списком fillerWords. Идемпотентна:
// повторный вызов над результатом ничего не меняет, так как список
// заполнителей и нормализация не зависят от позиции слова.
func RemoveFillers(words []WordTiming) []WordTiming {
	if len(words) == 0 {
		return words
	}

	out := make([]WordTiming, 0, len(words))
	for _, w := range words {
		if isFiller(w.Word) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func isFiller(word string) bool {
	normalized := normalizeForFillerCheck(word)
	return fillerWords[normalized]
}

func normalizeForFillerCheck(word string) string {
	trimmed := strings.TrimFunc(word, isPunctOrSymbol)
	return strings.ToLower(trimmed)
}

func isPunctOrSymbol(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return false
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return false
	case r >= 0x0400 && r <= 0x04FF: // кириллица — не трогаем как букву
		return false
	default:
		return true
	}
}
