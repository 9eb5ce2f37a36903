package stats

import (
	"sort"

	"github.com/verte-zerg/jyutdrill/internal/model"
)

// SelectWeakGlyphs selects the lowest-accuracy glyphs from aggregates. Glyphs
// that were always answered correctly are never weak.
func SelectWeakGlyphs(aggs []model.GlyphAggregate, top int) map[string]struct{} {
	weakSet := map[string]struct{}{}
	candidates := make([]model.GlyphAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Incorrect > 0 {
			candidates = append(candidates, agg)
		}
	}
	if len(candidates) == 0 {
		return weakSet
	}
	sort.Slice(candidates, func(i, j int) bool {
		ai := accuracy(candidates[i])
		aj := accuracy(candidates[j])
		if ai == aj {
			return candidates[i].Glyph < candidates[j].Glyph
		}
		return ai < aj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for i := 0; i < top; i++ {
		weakSet[candidates[i].Glyph] = struct{}{}
	}
	return weakSet
}

func accuracy(agg model.GlyphAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 1.0
	}
	return float64(agg.Correct) / float64(total)
}
