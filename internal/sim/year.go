package sim

// yearSpans maps stretches of turns to years-per-turn, sweeping fast through
// antiquity and slowing toward the modern age.
var yearSpans = []struct {
	upTo    int // exclusive turn bound
	perTurn int
}{
	{50, 40},
	{100, 20},
	{150, 10},
	{200, 5},
	{300, 2},
}

const startYear = -4000

// YearForTurn maps a turn number to a calendar year.
func YearForTurn(turn int) int {
	year := startYear
	prev := 0
	for _, span := range yearSpans {
		if turn <= prev {
			break
		}
		n := turn - prev
		if span.upTo-prev < n {
			n = span.upTo - prev
		}
		year += n * span.perTurn
		prev = span.upTo
	}
	if turn > prev {
		year += turn - prev
	}
	return year
}
