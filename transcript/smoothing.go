package transcript

// AbsorbNilSpeakers заполняет слова без спикера значением ближайшего
// по времени непустого соседа. При равном расстоянии до левого и
// правого соседа побеждает левый (детерминированно). Слово остаётся
// без спикера, если непустых соседей нет ни с одной стороны.
func AbsorbNilSpeakers(words []AttributedWord) {
	n := len(words)
	for i := 0; i < n; i++ {
		if words[i].Speaker != nil {
			continue
		}

		left := -1
		for l := i - 1; l >= 0; l-- {
			if words[l].Speaker != nil {
				left = l
				break
			}
		}
		right := -1
		for r := i + 1; r < n; r++ {
			if words[r].Speaker != nil {
				right = r
				break
			}
		}

		switch {
		case left == -1 && right == -1:
			continue
		case left == -1:
			words[i].Speaker = words[right].Speaker
		case right == -1:
			words[i].Speaker = words[left].Speaker
		default:
			leftDist := words[i].Word.Start - words[left].Word.End
			rightDist := words[right].Word.Start - words[i].Word.End
			if rightDist < leftDist {
				words[i].Speaker = words[right].Speaker
			} else {
				words[i].Speaker = words[left].Speaker
			}
		}
	}
}

// SmoothShortRuns итеративно сливает самые короткие run'ы (по
// wall-clock длительности) с соседними, пока не останется ни одного
// run короче shortRunThreshold — либо пока run один. Каждая итерация
// уменьшает число run'ов минимум на один, поэтому процесс завершается.
func SmoothShortRuns(words []AttributedWord) {
	for {
		runs := buildRuns(words)
		if len(runs) <= 1 {
			return
		}

		shortestIdx := 0
		for i := 1; i < len(runs); i++ {
			if runs[i].duration(words) < runs[shortestIdx].duration(words) {
				shortestIdx = i
			}
		}

		if runs[shortestIdx].duration(words) >= shortRunThreshold {
			return
		}

		mergeInto := pickMergeTarget(runs, shortestIdx, words)
		target := runs[mergeInto].speaker
		r := runs[shortestIdx]
		for k := r.start; k < r.end; k++ {
			words[k].Speaker = target
		}
	}
}

// pickMergeTarget выбирает индекс run'а (в runs), в который слить
// run с индексом shortestIdx: первый run сливается во второй, последний —
// в предпоследний, остальные — в более длительного из двух соседей
// (при равенстве — в предыдущий).
func pickMergeTarget(runs []run, shortestIdx int, words []AttributedWord) int {
	switch {
	case shortestIdx == 0:
		return 1
	case shortestIdx == len(runs)-1:
		return len(runs) - 2
	default:
		prev := runs[shortestIdx-1]
		next := runs[shortestIdx+1]
		if next.duration(words) > prev.duration(words) {
			return shortestIdx + 1
		}
		return shortestIdx - 1
	}
}

func buildRuns(words []AttributedWord) []run {
	if len(words) == 0 {
		return nil
	}

	var runs []run
	start := 0
	cur := words[0].Speaker

	for i := 1; i < len(words); i++ {
		if !sameSpeaker(words[i].Speaker, cur) {
			runs = append(runs, run{speaker: cur, start: start, end: i})
			start = i
			cur = words[i].Speaker
		}
	}
	runs = append(runs, run{speaker: cur, start: start, end: len(words)})

	return runs
}

func sameSpeaker(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
