package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
	}, 5, 4)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Test Plot", scaleNote, "B: min=1.00 max=4.00", "Legend:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("buffer output must not be coloured")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expectedMin := 1 + 1 + 2 + 4 + 1
	if len(lines) < expectedMin {
		t.Fatalf("expected at least %d lines of output, got %d", expectedMin, len(lines))
	}
}

func TestPlotSeriesForcedColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer
	if err := PlotSeriesWithColor(&buf, "", []Series{{Name: "A", Values: []float64{1, 2}}}, 10, 2, true); err != nil {
		t.Fatalf("plot: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[38;2;") {
		t.Fatalf("expected true-colour escapes")
	}
}

func TestResampleSeries(t *testing.T) {
	shrunk := resampleSeries([]float64{1, 3, 5, 7}, 2)
	if shrunk[0] != 2 || shrunk[1] != 6 {
		t.Fatalf("unexpected bucket means: %v", shrunk)
	}
	stretched := resampleSeries([]float64{0, 10}, 3)
	if stretched[0] != 0 || stretched[1] != 5 || stretched[2] != 10 {
		t.Fatalf("unexpected interpolation: %v", stretched)
	}
}

func TestBrailleLineReachesEndpoints(t *testing.T) {
	c := newBrailleCanvas(2, 1)
	c.line(0, 0, 3, 3, dashes[0])
	if c.at(0, 0)&brailleDot(0, 0) == 0 {
		t.Fatalf("start dot missing")
	}
	if c.at(1, 0)&brailleDot(1, 3) == 0 {
		t.Fatalf("end dot missing")
	}
}
