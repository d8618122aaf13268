package services

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
)

// SearchCandidates filters candidates by a case-insensitive fuzzy match on
// code or name, closest matches first. An empty query returns all of them.
func SearchCandidates(query string, candidates []version.Candidate) []version.Candidate {
	query = strings.TrimSpace(query)
	if query == "" {
		return append([]version.Candidate(nil), candidates...)
	}

	type scored struct {
		idx      int
		distance int
	}
	best := make(map[int]int, len(candidates))
	for _, field := range []func(version.Candidate) string{
		func(c version.Candidate) string { return c.Code },
		func(c version.Candidate) string { return c.Name },
	} {
		targets := make([]string, len(candidates))
		for i, c := range candidates {
			targets[i] = field(c)
		}
		for _, rank := range fuzzy.RankFindFold(query, targets) {
			if d, ok := best[rank.OriginalIndex]; !ok || rank.Distance < d {
				best[rank.OriginalIndex] = rank.Distance
			}
		}
	}

	hits := make([]scored, 0, len(best))
	for idx, d := range best {
		hits = append(hits, scored{idx: idx, distance: d})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].idx < hits[j].idx
	})

	out := make([]version.Candidate, 0, len(hits))
	for _, h := range hits {
		out = append(out, candidates[h.idx])
	}
	return out
}
