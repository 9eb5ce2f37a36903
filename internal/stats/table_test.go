package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Char", "Accuracy", "Correct"}
	rows := [][]string{
		{"人", "97.50%", "12"},
		{"<space>", "8.00%", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Char    Accuracy Correct" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "人        97.50%      12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "<space>    8.00%       3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestTruncateUsesCellWidth(t *testing.T) {
	if got := truncate("人人人人", 5); got != "人人…" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncate("abc", 5); got != "abc" {
		t.Fatalf("short line changed: %q", got)
	}
}
