package transcript

// SnapToPauses переносит границу смены спикера назад, к первой
// реальной паузе в речи новой реплики, если диаризация поставила
// границу раньше, чем ASR слышит паузу. Мутирует Speaker на месте и
// не добавляет/удаляет слов.
//
// Наблюдение: граница смены говорящего почти всегда совпадает с паузой
// > pauseThreshold в таймингах ASR. Если диаризатор переключил спикера,
// а ASR видит непрерывную речь через эту границу (зазор <= pauseThreshold),
// последнее слово (или два) исходящего спикера, скорее всего, было
// поглощено сегментом входящего — нужно отодвинуть границу к первой
// настоящей паузе в реплике нового спикера.
func SnapToPauses(words []AttributedWord) {
	n := len(words)
	i := 1
	for i < n {
		prev := words[i-1].Speaker
		cur := words[i].Speaker
		if prev == nil || cur == nil || *prev == *cur {
			i++
			continue
		}

		gap := words[i].Word.Start - words[i-1].Word.End
		if gap >= pauseThreshold {
			i++
			continue
		}

		snapPoint := findSnapPoint(words, i)
		if snapPoint == -1 {
			i++
			continue
		}

		for k := i; k < snapPoint; k++ {
			words[k].Speaker = prev
		}
		i = snapPoint + 1
	}
}

// findSnapPoint ищет первую реальную паузу в пределах окна, ограниченного
// snapWordCap словами и snapDurationCap секундами накопленной
// длительности (считая от длительности самого words[i]). Возвращает
// индекс снаружи [i, j) либо -1, если пауза не найдена в пределах окна.
func findSnapPoint(words []AttributedWord, i int) int {
	n := len(words)
	curSpeaker := words[i].Speaker
	duration := words[i].Word.End - words[i].Word.Start

	j := i + 1
	for j < n && j-i <= snapWordCap && duration < snapDurationCap {
		if words[j].Speaker == nil || *words[j].Speaker != *curSpeaker {
			break
		}
		gap := words[j].Word.Start - words[j-1].Word.End
		if gap >= pauseThreshold {
			return j
		}
		duration += words[j].Word.End - words[j].Word.Start
		j++
	}

	return -1
}
