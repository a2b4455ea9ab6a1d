package stats

import (
	"bytes"
	"testing"
)

func TestTextTableAlignsColumns(t *testing.T) {
	tbl := newTextTable(column{title: "Fact"}, column{title: "Accuracy", right: true}, column{title: "Correct", right: true})
	tbl.addRow("7 × 8", "97.5%", "12")
	tbl.addRow("12 × 12", "8.0%", "3")

	lines := tbl.lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Fact    Accuracy Correct" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "7 × 8      97.5%      12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "12 × 12     8.0%       3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestTextTableShortRow(t *testing.T) {
	tbl := newTextTable(column{title: "A"}, column{title: "B", right: true})
	tbl.addRow("x")

	var buf bytes.Buffer
	if err := tbl.write(&buf, "Title"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "Title\nA B\nx  \n\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}
