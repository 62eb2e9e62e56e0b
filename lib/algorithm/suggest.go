// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

// Suggest returns the candidate closest to unknown, or "" when no
// candidate is close enough or several tie for the minimum distance.
// Names shorter than four characters tolerate one edit, longer names
// two.
func Suggest(unknown string, candidates []string) string {
	limit := 2
	if len(unknown) < 4 {
		limit = 1
	}
	return suggestWithin(unknown, candidates, limit)
}

func suggestWithin(unknown string, candidates []string, limit int) string {
	best := ""
	bestDistance := limit + 1
	ties := 0
	seen := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		distance := Distance(unknown, candidate)
		switch {
		case distance < bestDistance:
			best, bestDistance, ties = candidate, distance, 1
		case distance == bestDistance:
			ties++
		}
	}
	if ties != 1 {
		return ""
	}
	return best
}

// Distance is the optimal string alignment distance between a and b:
// insertions, deletions, substitutions and transpositions of adjacent
// characters each cost one edit.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Three rows suffice: transpositions look two rows back.
	previous2 := make([]int, len(rb)+1)
	previous := make([]int, len(rb)+1)
	current := make([]int, len(rb)+1)
	for j := range previous {
		previous[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		current[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			current[j] = min(previous[j]+1, current[j-1]+1, previous[j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				current[j] = min(current[j], previous2[j-2]+1)
			}
		}
		previous2, previous, current = previous, current, previous2
	}
	return previous[len(rb)]
}
