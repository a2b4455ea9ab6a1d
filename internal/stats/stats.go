// Package stats summarizes recorded drill sessions.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/sprint/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SessionMetrics computes accuracy (0-1) and answers per minute for a session.
func SessionMetrics(s model.SessionAggregate) (accuracy, perMinute float64) {
	if s.Attempts > 0 {
		accuracy = float64(s.Correct) / float64(s.Attempts)
	}
	if s.Settings.TimeLimitMinutes > 0 {
		perMinute = float64(s.Attempts) / float64(s.Settings.TimeLimitMinutes)
	}
	return accuracy, perMinute
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
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints totals across sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var attempts, correct int
	var totalRate, bestAcc float64
	for _, s := range sessions {
		acc, rate := SessionMetrics(s)
		attempts += s.Attempts
		correct += s.Correct
		totalRate += rate
		bestAcc = math.Max(bestAcc, acc)
	}
	overall := 0.0
	if attempts > 0 {
		overall = float64(correct) / float64(attempts)
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(sessions)),
		fmt.Sprintf("Problems answered: %d", attempts),
		fmt.Sprintf("Correct: %d", correct),
		fmt.Sprintf("Overall accuracy: %.1f%%", overall*100),
		fmt.Sprintf("Best accuracy: %.1f%%", bestAcc*100),
		fmt.Sprintf("Avg answers/min: %.1f", totalRate/float64(len(sessions))),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderAccuracyCurve prints a smoothed accuracy sparkline, oldest session first.
func RenderAccuracyCurve(w io.Writer, sessions []model.SessionAggregate, window int) error {
	if len(sessions) < 2 {
		return nil
	}
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		acc, _ := SessionMetrics(s)
		accs[i] = acc * 100
	}
	accs = MovingAverage(accs, window)
	if _, err := fmt.Fprintf(w, "Accuracy trend (window %d)\n", window); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "[%s] %.1f%% → %.1f%%\n\n", Sparkline(accs), accs[0], accs[len(accs)-1]); err != nil {
		return err
	}
	return nil
}

// RenderSessionTable prints one row per session.
func RenderSessionTable(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		return nil
	}
	tbl := newTextTable(
		column{title: "Ended"},
		column{title: "Range"},
		column{title: "Min", right: true},
		column{title: "Attempts", right: true},
		column{title: "Correct", right: true},
		column{title: "Accuracy", right: true},
	)
	for _, s := range sessions {
		acc, _ := SessionMetrics(s)
		tbl.addRow(
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d–%d", s.Settings.MinFactor, s.Settings.MaxFactor),
			fmt.Sprintf("%d", s.Settings.TimeLimitMinutes),
			fmt.Sprintf("%d", s.Attempts),
			fmt.Sprintf("%d", s.Correct),
			fmt.Sprintf("%.1f%%", acc*100),
		)
	}
	return tbl.write(w, "Sessions")
}

// RenderFactTable prints the weakest facts, lowest accuracy first.
func RenderFactTable(w io.Writer, aggs []model.FactAggregate, top int) error {
	weak := WeakestFacts(aggs, top)
	if len(weak) == 0 {
		_, err := fmt.Fprintln(w, "No answered problems found.")
		return err
	}
	tbl := newTextTable(
		column{title: "Fact"},
		column{title: "Accuracy", right: true},
		column{title: "Correct", right: true},
		column{title: "Incorrect", right: true},
	)
	for _, agg := range weak {
		tbl.addRow(
			fmt.Sprintf("%d × %d", agg.A, agg.B),
			fmt.Sprintf("%.1f%%", factAccuracy(agg)*100),
			fmt.Sprintf("%d", agg.Correct),
			fmt.Sprintf("%d", agg.Incorrect),
		)
	}
	return tbl.write(w, "Most-missed facts")
}
