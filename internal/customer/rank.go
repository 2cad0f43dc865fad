package customer

import (
	"sort"
	"strings"
)

// Rank orders candidates by how well they match the disambiguation hint:
// an address hit scores 3, a phone hit 2, a notes hit 1, via case-insensitive
// substring containment. The sort is stable, so candidates with equal scores
// keep the backend-provided order. No ranking happens for fewer than two
// candidates or an empty hint.
func Rank(cands []Candidate, hint string) {
	if len(cands) < 2 || strings.TrimSpace(hint) == "" {
		return
	}
	type scored struct {
		cand  Candidate
		score int
	}
	tmp := make([]scored, len(cands))
	for i, c := range cands {
		tmp[i] = scored{cand: c, score: score(c, hint)}
	}
	sort.SliceStable(tmp, func(i, j int) bool {
		return tmp[i].score > tmp[j].score
	})
	for i := range tmp {
		cands[i] = tmp[i].cand
	}
}

func score(c Candidate, hint string) int {
	h := strings.ToLower(hint)
	n := 0
	if strings.Contains(strings.ToLower(c.Address), h) {
		n += 3
	}
	if strings.Contains(strings.ToLower(c.Phone), h) {
		n += 2
	}
	if strings.Contains(strings.ToLower(c.Memo), h) {
		n++
	}
	return n
}

// AutoBind reports whether the search outcome should bind a customer without
// user interaction: exactly one candidate and nothing bound yet.
func AutoBind(cands []Candidate, alreadyBound bool) (Candidate, bool) {
	if alreadyBound || len(cands) != 1 {
		return Candidate{}, false
	}
	return cands[0], true
}
