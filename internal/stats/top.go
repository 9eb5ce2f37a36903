package stats

import (
	"sort"

	"github.com/verte-zerg/jyutdrill/internal/model"
)

// TopGlyphsByFrequency returns the top N glyphs by number of answers.
func TopGlyphsByFrequency(aggs []model.GlyphAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	type item struct {
		glyph string
		total int
	}
	items := make([]item, 0, len(aggs))
	for _, agg := range aggs {
		items = append(items, item{
			glyph: agg.Glyph,
			total: agg.Correct + agg.Incorrect,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].total == items[j].total {
			return items[i].glyph < items[j].glyph
		}
		return items[i].total > items[j].total
	})
	n = min(n, len(items))
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, items[i].glyph)
	}
	return out
}
