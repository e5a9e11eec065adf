package receipt

import "sort"

// bestAmount ranks candidates by score descending, then value descending
// (within a score tier the total tends to be the largest figure on the
// receipt), then source line for full determinism. The result depends only
// on the candidate set, not on insertion order.
func bestAmount(cands []AmountCandidate) (AmountCandidate, bool) {
	if len(cands) == 0 {
		return AmountCandidate{}, false
	}
	ranked := make([]AmountCandidate, len(cands))
	copy(ranked, cands)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if c := ranked[i].Value.Cmp(ranked[j].Value); c != 0 {
			return c > 0
		}
		return ranked[i].SourceLine < ranked[j].SourceLine
	})
	return ranked[0], true
}
