package search

import (
	"sort"
	"strings"
)

// Weighted-ratio scaling factors. Scores are on a 0..100 scale.
const (
	unbaseScale        = 0.95
	partialScale       = 0.9
	longPartialScale   = 0.6
	tokenLengthRatio   = 1.5
	partialLengthRatio = 8.0
)

// WRatio returns a weighted similarity score in [0,100] between a and b.
// It combines a plain edit ratio with partial (substring) and token-aware
// ratios, weighting each by how different the two lengths are. Comparison is
// case-sensitive; callers normalize case first.
func WRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	shorter, longer := len(ra), len(rb)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	lengthRatio := float64(longer) / float64(shorter)

	best := ratio(ra, rb)
	if lengthRatio < tokenLengthRatio {
		return max(best, tokenRatio(a, b)*unbaseScale)
	}

	scale := partialScale
	if lengthRatio >= partialLengthRatio {
		scale = longPartialScale
	}
	best = max(best, partialRatio(ra, rb)*scale)
	return max(best, partialTokenRatio(a, b)*unbaseScale*scale)
}

// ratio is the normalized insertion/deletion similarity of a and b.
func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(a, b)) / float64(total)
}

// indelDistance is the number of insertions and deletions turning a into b.
func indelDistance(a, b []rune) int {
	return len(a) + len(b) - 2*lcsLength(a, b)
}

// lcsLength returns the length of the longest common subsequence of a and b.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) < len(b) {
		a, b = b, a
	}

	// Two-row dynamic programming over the shorter string
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// partialRatio returns the best ratio between the shorter string and any
// equally long window of the longer one. Windows hanging off either end are
// included, so a short prefix or suffix overlap still scores.
func partialRatio(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	best := bestWindow(a, b)
	if len(a) == len(b) && best < 100 {
		best = max(best, bestWindow(b, a))
	}
	return best
}

func bestWindow(short, long []rune) float64 {
	m, n := len(short), len(long)
	best := 0.0
	for start := 1 - m; start < n; start++ {
		lo := max(start, 0)
		hi := min(start+m, n)
		if score := ratio(short, long[lo:hi]); score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// tokenRatio is the better of the token-sort and token-set ratios.
func tokenRatio(a, b string) float64 {
	return max(tokenSortRatio(a, b), tokenSetRatio(a, b))
}

func tokenSortRatio(a, b string) float64 {
	return ratio([]rune(sortedJoin(strings.Fields(a))), []rune(sortedJoin(strings.Fields(b))))
}

// tokenSetRatio compares the shared tokens of a and b against each side's
// leftovers, which makes extra words on one side cheap.
func tokenSetRatio(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var intersection, diffAB, diffBA []string
	for token := range setA {
		if setB[token] {
			intersection = append(intersection, token)
		} else {
			diffAB = append(diffAB, token)
		}
	}
	for token := range setB {
		if !setA[token] {
			diffBA = append(diffBA, token)
		}
	}

	if len(intersection) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	sect := []rune(sortedJoin(intersection))
	ab := []rune(sortedJoin(diffAB))
	ba := []rune(sortedJoin(diffBA))

	sectLen := len(sect)
	sep := 0
	if sectLen > 0 {
		sep = 1
	}
	sectABLen := sectLen + sep + len(ab)
	sectBALen := sectLen + sep + len(ba)

	result := 100 * (1 - float64(indelDistance(ab, ba))/float64(sectABLen+sectBALen))
	if sectLen == 0 {
		return result
	}

	sectABRatio := 100 * (1 - float64(sep+len(ab))/float64(sectLen+sectABLen))
	sectBARatio := 100 * (1 - float64(sep+len(ba))/float64(sectLen+sectBALen))
	return max(result, sectABRatio, sectBARatio)
}

// partialTokenRatio applies partialRatio to the sorted token strings and to
// the sorted unshared tokens. Any shared token is a perfect match.
func partialTokenRatio(a, b string) float64 {
	tokensA, tokensB := strings.Fields(a), strings.Fields(b)
	setA, setB := tokenSet(a), tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var diffAB, diffBA []string
	for token := range setA {
		if setB[token] {
			return 100
		}
		diffAB = append(diffAB, token)
	}
	for token := range setB {
		diffBA = append(diffBA, token)
	}

	result := partialRatio([]rune(sortedJoin(tokensA)), []rune(sortedJoin(tokensB)))
	if len(tokensA) == len(diffAB) && len(tokensB) == len(diffBA) {
		return result
	}
	return max(result, partialRatio([]rune(sortedJoin(diffAB)), []rune(sortedJoin(diffBA))))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(s) {
		set[token] = true
	}
	return set
}

func sortedJoin(tokens []string) string {
	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}
