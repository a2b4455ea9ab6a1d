package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/sprint/internal/model"
)

func sampleSummary() Summary {
	return Build(
		model.Settings{TimeLimitMinutes: 5, MinFactor: 2, MaxFactor: 9, NoDuplicates: true},
		3, 2,
		[]model.Attempt{
			{Problem: model.Problem{A: 2, B: 3}, Input: "6", Correct: true},
			{Problem: model.Problem{A: 4, B: 7}, Input: "27", Correct: false},
			{Problem: model.Problem{A: 9, B: 9}, Input: "81", Correct: true},
		},
	)
}

func TestFormatAccuracy(t *testing.T) {
	assert.Equal(t, "0", FormatAccuracy(0, 0))
	assert.Equal(t, "66.7", FormatAccuracy(2, 3))
	assert.Equal(t, "100.0", FormatAccuracy(4, 4))
	assert.Equal(t, "0.0", FormatAccuracy(0, 5))
	assert.InDelta(t, 33.3, Accuracy(1, 3), 1e-9)
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, sampleSummary()))
	out := buf.String()
	for _, want := range []string{
		"Time Limit: 5 minutes",
		"Factor Range: 2 – 9",
		"No Duplicates: Yes",
		"Total Attempts: 3",
		"Correct Answers: 2",
		"Accuracy: 66.7%",
		"2 × 3 = 6, You: 6 (✔)",
		"4 × 7 = 28, You: 27 (✘)",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Completed:")
}

func TestRenderTextEmptySession(t *testing.T) {
	var buf bytes.Buffer
	sum := Build(model.DefaultSettings(), 0, 0, nil)
	require.NoError(t, RenderText(&buf, sum))
	assert.Contains(t, buf.String(), "Accuracy: 0%")
	assert.False(t, strings.HasSuffix(buf.String(), "\n\n"))
}

func TestLineEmptyInput(t *testing.T) {
	line := Line(model.Attempt{Problem: model.Problem{A: 3, B: 4}})
	assert.Equal(t, "3 × 4 = 12, You: - (✘)", line)
}

func TestRenderHTMLEscapesAndPrints(t *testing.T) {
	sum := sampleSummary()
	sum.History = append(sum.History, model.Attempt{Problem: model.Problem{A: 1, B: 1}, Input: "<b>", Correct: false})
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, sum))
	out := buf.String()
	assert.Contains(t, out, `onload="window.print()"`)
	assert.Contains(t, out, "<p>Accuracy: 66.7%</p>")
	assert.Contains(t, out, "&lt;b&gt;")
	assert.NotContains(t, out, "You: <b>")
	assert.Equal(t, 2, strings.Count(out, `class="wrong"`))
}

func TestWritePrintable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	path, err := WritePrintable(dir, sampleSummary(), now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sprint-20260506-070809.html"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), Title)
}

func TestOpenCommand(t *testing.T) {
	assert.Equal(t, []string{"open", "r.html"}, OpenCommand("darwin", "r.html").Args)
	assert.Equal(t, []string{"xdg-open", "r.html"}, OpenCommand("linux", "r.html").Args)
	assert.Equal(t, "rundll32", OpenCommand("windows", "r.html").Args[0])
}
