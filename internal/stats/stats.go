// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/numtrace/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary holds the headline numbers of a set of attempts.
type Summary struct {
	Attempts       int
	Completed      int
	AvgSeconds     float64
	BestSeconds    float64
	AvgRegressions float64
	AvgCoverage    float64
}

// CompletionRate returns the share of completed attempts.
func (s Summary) CompletionRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Attempts)
}

// Summarize computes a Summary. Times only count completed attempts;
// coverage only counts draw attempts.
func Summarize(attempts []model.AttemptAggregate) Summary {
	var sum Summary
	sum.Attempts = len(attempts)
	var totalMs int64
	var regressions int
	var coverage float64
	drawn := 0
	for _, a := range attempts {
		regressions += a.Regressions
		if a.Mode == model.ModeDraw {
			coverage += a.Coverage
			drawn++
		}
		if !a.Completed {
			continue
		}
		sum.Completed++
		totalMs += a.DurationMs
		secs := Seconds(a.DurationMs)
		if sum.BestSeconds == 0 || secs < sum.BestSeconds {
			sum.BestSeconds = secs
		}
	}
	if sum.Completed > 0 {
		sum.AvgSeconds = Seconds(totalMs) / float64(sum.Completed)
	}
	if sum.Attempts > 0 {
		sum.AvgRegressions = float64(regressions) / float64(sum.Attempts)
	}
	if drawn > 0 {
		sum.AvgCoverage = coverage / float64(drawn)
	}
	return sum
}

// Seconds converts milliseconds to seconds.
func Seconds(ms int64) float64 {
	return float64(ms) / 1000
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	last := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(last)))
		b.WriteByte(sparkChars[max(0, min(idx, last))])
	}
	return b.String()
}

// DurationSeries returns the duration in seconds of each completed attempt.
func DurationSeries(attempts []model.AttemptAggregate) []float64 {
	out := make([]float64, 0, len(attempts))
	for _, a := range attempts {
		if a.Completed {
			out = append(out, Seconds(a.DurationMs))
		}
	}
	return out
}

// RenderSummary prints a plain-text summary of attempts.
func RenderSummary(w io.Writer, attempts []model.AttemptAggregate) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	sum := Summarize(attempts)
	lines := []string{
		"Summary",
		fmt.Sprintf("Attempts: %d", sum.Attempts),
		fmt.Sprintf("Completed: %d (%.0f%%)", sum.Completed, sum.CompletionRate()*100),
		fmt.Sprintf("Avg time: %.1fs", sum.AvgSeconds),
		fmt.Sprintf("Best time: %.1fs", sum.BestSeconds),
		fmt.Sprintf("Avg slips: %.2f", sum.AvgRegressions),
	}
	if sum.AvgCoverage > 0 {
		lines = append(lines, fmt.Sprintf("Avg coverage: %.0f%%", sum.AvgCoverage*100))
	}
	if trend := Sparkline(DurationSeries(attempts)); trend != "" {
		lines = append(lines, "Time trend: "+trend)
	}
	for _, line := range append(lines, "") {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves prints practice curves for completion time and slips.
func RenderCurves(w io.Writer, attempts []model.AttemptAggregate, window int) error {
	return RenderCurvesWithSize(w, attempts, window, 0, 10, false)
}

// RenderCurvesWithSize prints practice curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, attempts []model.AttemptAggregate, window, totalWidth, height int, useColor bool) error {
	if len(attempts) == 0 {
		return nil
	}
	secs := make([]float64, len(attempts))
	slips := make([]float64, len(attempts))
	for i, a := range attempts {
		secs[i] = Seconds(a.DurationMs)
		slips[i] = float64(a.Regressions)
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Practice Curves", []Series{
		{Name: "Seconds", Values: MovingAverage(secs, window)},
		{Name: "Slips", Values: MovingAverage(slips, window)},
	}, width, height, useColor)
}

// GlyphRow is one formatted line of the per-glyph table.
type GlyphRow struct {
	Glyph       string
	Attempts    int
	Completed   int
	Rate        float64
	AvgSeconds  float64
	Regressions int
	Undos       int
	Floods      int
}

// GlyphRows converts aggregates to rows, weakest first.
func GlyphRows(aggs []model.GlyphAggregate) []GlyphRow {
	rows := make([]GlyphRow, 0, len(aggs))
	for _, agg := range aggs {
		rows = append(rows, GlyphRow{
			Glyph:       agg.Glyph,
			Attempts:    agg.Attempts,
			Completed:   agg.Completed,
			Rate:        agg.CompletionRate(),
			AvgSeconds:  agg.AvgSeconds(),
			Regressions: agg.Regressions,
			Undos:       agg.Undos,
			Floods:      agg.FloodWarnings,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Rate != rows[j].Rate {
			return rows[i].Rate < rows[j].Rate
		}
		if rows[i].AvgSeconds != rows[j].AvgSeconds {
			return rows[i].AvgSeconds > rows[j].AvgSeconds
		}
		return rows[i].Glyph < rows[j].Glyph
	})
	return rows
}

// RenderGlyphTable prints per-glyph aggregates.
func RenderGlyphTable(w io.Writer, aggs []model.GlyphAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No glyph stats found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Per-Glyph (Windowed)"); err != nil {
		return err
	}
	headers := []string{"Glyph", "Attempts", "Done", "Avg Time (s)", "Slips", "Undos", "Floods"}
	tableRows := make([][]string, 0, len(aggs))
	for _, r := range GlyphRows(aggs) {
		tableRows = append(tableRows, []string{
			r.Glyph,
			fmt.Sprintf("%d", r.Attempts),
			fmt.Sprintf("%.0f%%", r.Rate*100),
			fmt.Sprintf("%.1f", r.AvgSeconds),
			fmt.Sprintf("%d", r.Regressions),
			fmt.Sprintf("%d", r.Undos),
			fmt.Sprintf("%d", r.Floods),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true}
	for _, line := range formatTable(headers, tableRows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderGlyphCurvesWithSize prints per-glyph curves of completion time and
// slips across that glyph's attempts.
func RenderGlyphCurvesWithSize(w io.Writer, attempts []model.AttemptAggregate, glyphs []string, window, totalWidth, height int, useColor bool) error {
	if len(glyphs) == 0 || len(attempts) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Per-Glyph Curves"); err != nil {
		return err
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	for _, g := range glyphs {
		var secs, slips []float64
		for _, a := range attempts {
			if a.Glyph != g {
				continue
			}
			secs = append(secs, Seconds(a.DurationMs))
			slips = append(slips, float64(a.Regressions))
		}
		if len(secs) == 0 {
			if _, err := fmt.Fprintf(w, "Glyph %s: no attempts\n\n", g); err != nil {
				return err
			}
			continue
		}
		if err := PlotSeriesWithColor(w, fmt.Sprintf("Glyph %s", g), []Series{
			{Name: "Seconds", Values: MovingAverage(secs, window)},
			{Name: "Slips", Values: MovingAverage(slips, window)},
		}, width, height, useColor); err != nil {
			return err
		}
	}
	return nil
}
