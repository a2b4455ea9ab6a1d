// Package report formats the end-of-session summary.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/verte-zerg/sprint/internal/model"
)

// Title heads both the text and the printable report.
const Title = "Multiplication Sprint Report"

// Marks used for correct and incorrect history lines.
const (
	MarkCorrect   = "✔"
	MarkIncorrect = "✘"
)

// Summary is the data rendered by a report.
type Summary struct {
	Settings  model.Settings
	Attempts  int
	Correct   int
	History   []model.Attempt
	EndedAt   time.Time
	SessionID string
}

// Build assembles a Summary.
func Build(s model.Settings, attempts, correct int, history []model.Attempt) Summary {
	h := make([]model.Attempt, len(history))
	copy(h, history)
	return Summary{
		Settings: s,
		Attempts: attempts,
		Correct:  correct,
		History:  h,
	}
}

// FromResult builds a Summary for a recorded session.
func FromResult(res model.SessionResult) Summary {
	sum := Build(res.Settings, res.Attempts, res.Correct, res.History)
	sum.EndedAt = res.EndedAt
	sum.SessionID = res.ID
	return sum
}

// Accuracy returns correct/attempts as a percentage rounded to one decimal.
func Accuracy(correct, attempts int) float64 {
	if attempts <= 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(attempts)*1000) / 10
}

// FormatAccuracy renders Accuracy, or "0" when there were no attempts.
func FormatAccuracy(correct, attempts int) string {
	if attempts <= 0 {
		return "0"
	}
	return strconv.FormatFloat(Accuracy(correct, attempts), 'f', 1, 64)
}

// YesNo renders a flag the way the report shows it.
func YesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// Line renders one history entry.
func Line(a model.Attempt) string {
	mark := MarkIncorrect
	if a.Correct {
		mark = MarkCorrect
	}
	input := a.Input
	if input == "" {
		input = "-"
	}
	return fmt.Sprintf("%d × %d = %d, You: %s (%s)", a.A, a.B, a.Product(), input, mark)
}

// RenderText writes the report as plain text.
func RenderText(w io.Writer, sum Summary) error {
	lines := []string{
		Title,
		"",
		fmt.Sprintf("Time Limit: %d minutes", sum.Settings.TimeLimitMinutes),
		fmt.Sprintf("Factor Range: %d – %d", sum.Settings.MinFactor, sum.Settings.MaxFactor),
		fmt.Sprintf("No Duplicates: %s", YesNo(sum.Settings.NoDuplicates)),
		fmt.Sprintf("Total Attempts: %d", sum.Attempts),
		fmt.Sprintf("Correct Answers: %d", sum.Correct),
		fmt.Sprintf("Accuracy: %s%%", FormatAccuracy(sum.Correct, sum.Attempts)),
	}
	if !sum.EndedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("Completed: %s", sum.EndedAt.Local().Format("2006-01-02 15:04")))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if len(sum.History) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	for _, a := range sum.History {
		if _, err := fmt.Fprintln(w, Line(a)); err != nil {
			return err
		}
	}
	return nil
}
