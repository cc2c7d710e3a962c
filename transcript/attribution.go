package transcript

// AssignSpeakers назначает каждому слову спикера по перекрытию с
// сегментами диаризации, с небольшим бонусом непрерывности в пользу
// предыдущего спикера на границах. Возвращает AttributedWord в том же
// порядке, что и входные слова.
//
// Алгоритм для каждого слова:
//  1. Для каждого сегмента диаризации считаем overlap = max(0, min(word.End, seg.End) - max(word.Start, seg.Start))
//     и копим в карту speaker -> суммарный overlap.
//  2. Если предыдущий спикер есть среди ключей карты, добавляем ему continuityBonus.
//  3. Если карта непуста, победитель — спикер с максимальной суммой; при равенстве
//     побеждает тот, что встретился раньше (порядок вставки, детерминированно).
//  4. Если карта пуста, ищем сегмент с минимальным расстоянием от середины слова
//     до интервала сегмента; если оно не превышает fallbackSearchRadius — берём его
//     спикера, иначе слово остаётся без спикера.
//  5. "Предыдущий спикер" для следующего слова — назначение текущего слова, если
//     оно есть, иначе он не меняется.
func AssignSpeakers(words []WordTiming, segments []SpeakerSegment) []AttributedWord {
	result := make([]AttributedWord, len(words))
	var prevSpeaker *string

	for i, w := range words {
		speaker := assignOne(w, segments, prevSpeaker)
		result[i] = AttributedWord{Word: w, Speaker: speaker}
		if speaker != nil {
			prevSpeaker = speaker
		}
	}

	return result
}

func assignOne(w WordTiming, segments []SpeakerSegment, prevSpeaker *string) *string {
	totals := make(map[string]float64)
	order := make([]string, 0, len(segments))

	for _, seg := range segments {
		overlap := overlapDuration(w.Start, w.End, seg.Start, seg.End)
		if overlap <= 0 {
			continue
		}
		if _, seen := totals[seg.SpeakerID]; !seen {
			order = append(order, seg.SpeakerID)
		}
		totals[seg.SpeakerID] += overlap
	}

	if prevSpeaker != nil {
		if _, ok := totals[*prevSpeaker]; ok {
			totals[*prevSpeaker] += continuityBonus
		}
	}

	if len(order) > 0 {
		best := order[0]
		for _, id := range order[1:] {
			if totals[id] > totals[best] {
				best = id
			}
		}
		return &best
	}

	return nearestSpeaker(w, segments)
}

// nearestSpeaker используется, когда ни один сегмент не перекрывается
// со словом: находит сегмент, ближайший по расстоянию от середины
// слова до интервала [seg.Start, seg.End], и возвращает его спикера,
// если расстояние не превышает fallbackSearchRadius.
func nearestSpeaker(w WordTiming, segments []SpeakerSegment) *string {
	if len(segments) == 0 {
		return nil
	}

	mid := (w.Start + w.End) / 2
	bestDist := -1.0
	bestIdx := -1

	for i, seg := range segments {
		dist := distanceToInterval(mid, seg.Start, seg.End)
		if bestIdx == -1 || dist < bestDist {
			bestDist = dist
			bestIdx = i
		}
	}

	if bestIdx == -1 || bestDist > fallbackSearchRadius {
		return nil
	}

	speaker := segments[bestIdx].SpeakerID
	return &speaker
}

func overlapDuration(aStart, aEnd, bStart, bEnd float64) float64 {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end < start {
		return 0
	}
	return end - start
}

func distanceToInterval(point, start, end float64) float64 {
	if point < start {
		return start - point
	}
	if point > end {
		return point - end
	}
	return 0
}
