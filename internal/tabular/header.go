package tabular

import "strings"

// GuessHeader picks the header row from a sample: the earliest row with
// the most non-empty cells. It returns the row's index within the sample
// and its cells; ok is false only for an empty sample.
func GuessHeader(sample [][]string) (offset int, header []string, ok bool) {
	best := -1
	bestFilled := -1
	for i, row := range sample {
		filled := 0
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				filled++
			}
		}
		if filled > bestFilled {
			best, bestFilled = i, filled
		}
	}
	if best < 0 {
		return 0, nil, false
	}
	return best, sample[best], true
}
