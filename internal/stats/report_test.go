package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/numtrace/internal/model"
	"github.com/verte-zerg/numtrace/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "numtrace.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i, g := range []string{"1", "2", "2"} {
		start := time.Unix(0, 0).UTC().Add(time.Duration(i) * time.Minute)
		end := start.Add(4 * time.Second)
		a := model.AttemptStats{
			StartedAt:   start,
			EndedAt:     end,
			Mode:        model.ModeTrace,
			Glyph:       g,
			GlyphSet:    "builtin",
			Completed:   true,
			DurationMs:  end.Sub(start).Milliseconds(),
			Strokes:     1,
			Regressions: i,
		}
		id, err := st.InsertAttempt(ctx, a, []model.StrokeStats{{Stroke: 0, DurationMs: a.DurationMs}})
		if err != nil {
			t.Fatalf("insert attempt: %v", err)
		}
		ids = append(ids, id)
	}

	cfg := model.StatsConfig{
		Mode:        string(model.ModeTrace),
		Last:        2,
		CurveWindow: 1,
	}
	report, err := BuildReport(ctx, st, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(report.Attempts))
	}
	if report.Attempts[0].AttemptID != ids[1] || report.Attempts[1].AttemptID != ids[2] {
		t.Fatalf("unexpected attempt ids: %+v", report.Attempts)
	}
	if len(report.WindowAttemptIDs) != 1 || report.WindowAttemptIDs[0] != ids[2] {
		t.Fatalf("unexpected window ids: %v", report.WindowAttemptIDs)
	}
	if len(report.GlyphAggsAll) != 1 || report.GlyphAggsAll[0].Attempts != 2 {
		t.Fatalf("expected glyph 2 aggregated twice, got %+v", report.GlyphAggsAll)
	}
	last, ok := report.Last()
	if !ok || last.AttemptID != ids[2] {
		t.Fatalf("unexpected last attempt")
	}

	var buf bytes.Buffer
	if err := RenderSummary(&buf, report.Attempts); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(buf.String(), "Attempts: 2") || !strings.Contains(buf.String(), "Avg time: 4.0s") {
		t.Fatalf("unexpected summary:\n%s", buf.String())
	}
}

func TestSummarizeCountsOnlyCompletedTimes(t *testing.T) {
	sum := Summarize([]model.AttemptAggregate{
		{Mode: model.ModeTrace, Completed: true, DurationMs: 3000, Regressions: 2},
		{Mode: model.ModeDraw, Completed: true, DurationMs: 5000, Coverage: 0.75},
		{Mode: model.ModeDraw, Completed: false, DurationMs: 60000, Coverage: 0.25},
	})
	if sum.Attempts != 3 || sum.Completed != 2 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if sum.AvgSeconds != 4 || sum.BestSeconds != 3 {
		t.Fatalf("unexpected times: %+v", sum)
	}
	if sum.AvgCoverage != 0.5 {
		t.Fatalf("expected coverage 0.5, got %v", sum.AvgCoverage)
	}
}

func TestSelectWeakGlyphs(t *testing.T) {
	aggs := []model.GlyphAggregate{
		{Glyph: "1", Attempts: 2, Completed: 2, DurationSumMs: 4000},
		{Glyph: "8", Attempts: 2, Completed: 1, DurationSumMs: 20000, Regressions: 6},
		{Glyph: "5", Attempts: 2, Completed: 2, DurationSumMs: 10000, Undos: 2},
	}
	weak := SelectWeakGlyphs(aggs, 2)
	if len(weak) != 2 {
		t.Fatalf("expected 2 weak glyphs, got %v", weak)
	}
	for _, g := range []string{"8", "5"} {
		if _, ok := weak[g]; !ok {
			t.Fatalf("expected %s to be weak, got %v", g, weak)
		}
	}
	if len(SelectWeakGlyphs(nil, 3)) != 0 {
		t.Fatalf("no aggregates means no weak glyphs")
	}
}

func TestGlyphRowsWeakestFirst(t *testing.T) {
	rows := GlyphRows([]model.GlyphAggregate{
		{Glyph: "1", Attempts: 1, Completed: 1, DurationSumMs: 1000},
		{Glyph: "2", Attempts: 2, Completed: 1, DurationSumMs: 1000},
	})
	if rows[0].Glyph != "2" || rows[0].Rate != 0.5 {
		t.Fatalf("unexpected order: %+v", rows)
	}
}
