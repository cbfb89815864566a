package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Glyph", "Done", "Slips"}
	rows := [][]string{
		{"7", "97%", "12"},
		{"seven", "8%", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Glyph Done Slips" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "7      97%    12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "seven   8%     3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"G", "N"}, [][]string{{"七", "1"}}, nil)
	if lines[0] != "G  N" || lines[1] != "七 1" {
		t.Fatalf("wide runes misaligned: %q", lines)
	}
}
