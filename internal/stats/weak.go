package stats

import (
	"sort"

	"github.com/verte-zerg/numtrace/internal/model"
)

// Weakness scores a glyph for weak-focus practice. Slow completion, slips
// and abandoned attempts all raise the score.
func Weakness(agg model.GlyphAggregate) float64 {
	if agg.Attempts == 0 {
		return 0
	}
	n := float64(agg.Attempts)
	slips := float64(agg.Regressions+agg.Undos+agg.FloodWarnings) / n
	abandoned := 1 - agg.CompletionRate()
	return agg.AvgSeconds() + 2*slips + 10*abandoned
}

// SelectWeakGlyphs selects the highest-weakness glyphs from aggregates.
func SelectWeakGlyphs(aggs []model.GlyphAggregate, top int) map[string]struct{} {
	weakSet := map[string]struct{}{}
	if len(aggs) == 0 {
		return weakSet
	}
	candidates := make([]model.GlyphAggregate, len(aggs))
	copy(candidates, aggs)
	sort.Slice(candidates, func(i, j int) bool {
		wi := Weakness(candidates[i])
		wj := Weakness(candidates[j])
		if wi == wj {
			return candidates[i].Glyph < candidates[j].Glyph
		}
		return wi > wj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for i := 0; i < top; i++ {
		weakSet[candidates[i].Glyph] = struct{}{}
	}
	return weakSet
}
