package stats

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

type column struct {
	title string
	right bool
}

// textTable lays out cells in columns sized by terminal display width, so
// cells with "×" or "–" line up with plain digits.
type textTable struct {
	cols []column
	rows [][]string
}

func newTextTable(cols ...column) *textTable {
	return &textTable{cols: cols}
}

func (t *textTable) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *textTable) lines() []string {
	if len(t.cols) == 0 {
		return nil
	}
	widths := make([]int, len(t.cols))
	header := make([]string, len(t.cols))
	for i, c := range t.cols {
		header[i] = c.title
		widths[i] = runewidth.StringWidth(c.title)
	}
	for _, row := range t.rows {
		for i := range widths {
			if i < len(row) {
				widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
			}
		}
	}

	out := make([]string, 0, len(t.rows)+1)
	out = append(out, t.render(header, widths))
	for _, row := range t.rows {
		out = append(out, t.render(row, widths))
	}
	return out
}

func (t *textTable) render(row []string, widths []int) string {
	var b strings.Builder
	for i, width := range widths {
		if i > 0 {
			b.WriteByte(' ')
		}
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		pad := strings.Repeat(" ", max(0, width-runewidth.StringWidth(cell)))
		if t.cols[i].right {
			b.WriteString(pad + cell)
		} else {
			b.WriteString(cell + pad)
		}
	}
	return b.String()
}

// write prints title, the table and a trailing blank line.
func (t *textTable) write(w io.Writer, title string) error {
	if _, err := io.WriteString(w, title+"\n"); err != nil {
		return err
	}
	for _, line := range t.lines() {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}
