package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Area", "Courses", "%"}
	rows := [][]string{
		{"Fundamentos", "4", "50%"},
		{"Prácticas", "2", "100%"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Area         Courses     %" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Fundamentos        4   50%" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Prácticas          2  100%" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableEmpty(t *testing.T) {
	if lines := formatTable(nil, nil, nil); lines != nil {
		t.Fatalf("expected nil, got %q", lines)
	}
}

func TestPadCellUsesDisplayWidth(t *testing.T) {
	if got := padCell("ñandú", 7, false); got != "ñandú  " {
		t.Fatalf("unexpected padding: %q", got)
	}
	if got := padCell("100%", 3, true); got != "100%" {
		t.Fatalf("overflowing cell should be returned as is, got %q", got)
	}
}
