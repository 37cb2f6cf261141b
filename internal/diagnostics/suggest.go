package diagnostics

import (
	edlib "github.com/hbollon/go-edlib"
)

// suggestionThreshold is the minimum Jaro-Winkler similarity for a
// candidate to be offered as "did you mean".
const suggestionThreshold = 0.8

// SuggestName returns the candidate most similar to want, or "" when
// nothing is close enough. Used to enrich missing-export diagnostics.
func SuggestName(want string, candidates []string) string {
	best := ""
	bestScore := float32(0)
	for _, candidate := range candidates {
		if candidate == want {
			continue
		}
		score, err := edlib.StringsSimilarity(want, candidate, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	if bestScore < suggestionThreshold {
		return ""
	}
	return best
}
