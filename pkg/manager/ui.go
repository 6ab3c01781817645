package manager

import (
	"fmt"
	"sort"
	"strings"
)

// candidate is one fast host prepared for fuzzy searching and display.
type candidate struct {
	Host       string
	Source     string
	Line       int
	SearchText string
	Display    string
}

// buildCandidates flattens marker lines into one candidate per host. A host
// listed on several lines keeps its first occurrence.
func buildCandidates(lines []FastHostLine) []candidate {
	seen := make(map[string]struct{})
	var cands []candidate
	for _, l := range lines {
		for _, h := range l.Hosts {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			cands = append(cands, candidate{
				Host:       h,
				Source:     l.Source,
				Line:       l.Line,
				SearchText: strings.ToLower(h),
				Display:    fmt.Sprintf("%s  (line %d)", h, l.Line),
			})
		}
	}
	return cands
}

// rankMatches filters and sorts candidates by fuzzy score against query.
//
// Query semantics (simple, fzf-like tokenization):
// - Split query on whitespace into tokens.
// - All tokens must match (AND).
// - Score is the sum of token scores (higher is better).
func rankMatches(cands []candidate, query string) []candidate {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		out := make([]candidate, len(cands))
		copy(out, cands)
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Host < out[j].Host
		})
		return out
	}

	type scored struct {
		c candidate
		s int
	}
	scoreds := make([]scored, 0, len(cands))
	for _, c := range cands {
		total := 0
		okAll := true
		for _, t := range tokens {
			s, ok := fuzzyScore(t, c.SearchText)
			if !ok {
				okAll = false
				break
			}
			total += s
		}
		if okAll {
			scoreds = append(scoreds, scored{c: c, s: total})
		}
	}

	// Sort by score (desc), then by name (asc) for stability.
	sort.SliceStable(scoreds, func(i, j int) bool {
		if scoreds[i].s != scoreds[j].s {
			return scoreds[i].s > scoreds[j].s
		}
		return scoreds[i].c.Host < scoreds[j].c.Host
	})

	out := make([]candidate, len(scoreds))
	for i := range scoreds {
		out[i] = scoreds[i].c
	}
	return out
}

// fuzzyScore performs a simple subsequence fuzzy match.
// Returns (score, true) if query is a subsequence of text; otherwise (0, false).
// The score rewards consecutive matches, word boundaries, and early positions.
func fuzzyScore(query, text string) (int, bool) {
	if query == "" {
		return 0, true
	}
	rt := []rune(text)

	ti := 0
	lastPos := -1
	firstPos := -1
	consecutive := 0
	score := 0

	for _, qch := range query {
		found := false
		for i := ti; i < len(rt); i++ {
			if rt[i] != qch {
				continue
			}
			score += 10
			if firstPos == -1 {
				firstPos = i
			}
			if lastPos >= 0 && i == lastPos+1 {
				consecutive++
				score += 5 * consecutive
			} else {
				consecutive = 0
			}
			// Word boundary: start, or after '.', '-' and friends.
			if i == 0 || !isAlphaNum(rt[i-1]) {
				score += 10
			}
			lastPos = i
			ti = i + 1
			found = true
			break
		}
		if !found {
			return 0, false
		}
	}
	if bonus := 20 - firstPos; bonus > 0 {
		score += bonus
	}
	return score, true
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
