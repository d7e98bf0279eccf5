package id

import "strings"

// Similarity scores two strings with the Sorensen-Dice coefficient over
// character bigrams, in [0, 1]. Comparison is case-insensitive and ignores
// whitespace, so "arbitrum one" and "Arbitrum" score high.
func Similarity(a, b string) float64 {
	a = normalizeForMatch(a)
	b = normalizeForMatch(b)
	if a == b {
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	bigrams := make(map[string]int)
	for i := 0; i+2 <= len(a); i++ {
		bigrams[a[i:i+2]]++
	}
	matches := 0
	for i := 0; i+2 <= len(b); i++ {
		gram := b[i : i+2]
		if bigrams[gram] > 0 {
			bigrams[gram]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(len(a)+len(b)-2)
}

func normalizeForMatch(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
