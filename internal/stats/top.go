package stats

import (
	"sort"

	"github.com/verte-zerg/numtrace/internal/model"
)

// TopGlyphsByAttempts returns the N most practised glyphs.
func TopGlyphsByAttempts(aggs []model.GlyphAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	items := append([]model.GlyphAggregate(nil), aggs...)
	sort.Slice(items, func(i, j int) bool {
		if items[i].Attempts == items[j].Attempts {
			return items[i].Glyph < items[j].Glyph
		}
		return items[i].Attempts > items[j].Attempts
	})
	if n > len(items) {
		n = len(items)
	}
	out := make([]string, 0, n)
	for _, item := range items[:n] {
		out = append(out, item.Glyph)
	}
	return out
}
