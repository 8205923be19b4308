package resolve

import (
	"math"

	"github.com/agext/levenshtein"
)

// partialWeight discounts substring-style matches relative to whole
// string similarity, so "ACMEINC" inside "ACMEINCORPORATED" scores 90
// rather than a perfect 100.
const partialWeight = 0.9

// Score rates the similarity of two normalized names on a 0..100 scale.
// It takes the better of whole-string similarity and a weighted best
// sliding-window similarity, which rewards names embedded in longer
// registry entries.
func Score(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	full := levenshtein.Similarity(a, b, nil)
	partial := partialWeight * bestWindowSimilarity(a, b)

	return int(math.Round(100 * math.Max(full, partial)))
}

// Distance returns the raw edit distance between two names. Used to
// break ties between candidates with equal scores.
func Distance(a, b string) int {
	return levenshtein.Distance(a, b, nil)
}

// bestWindowSimilarity slides a window the length of the shorter name
// across the runes of the longer one and returns the highest
// whole-window similarity found.
func bestWindowSimilarity(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	shortStr := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		sim := levenshtein.Similarity(string(long[i:i+len(short)]), shortStr, nil)
		if sim > best {
			best = sim
			if best == 1 {
				break
			}
		}
	}
	return best
}
