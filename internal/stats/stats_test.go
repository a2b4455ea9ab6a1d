package stats

import (
	"testing"

	"github.com/verte-zerg/sprint/internal/model"
)

func TestSessionMetrics(t *testing.T) {
	acc, rate := SessionMetrics(model.SessionAggregate{
		Settings: model.Settings{TimeLimitMinutes: 2},
		Attempts: 40,
		Correct:  30,
	})
	if acc != 0.75 {
		t.Fatalf("expected accuracy 0.75, got %v", acc)
	}
	if rate != 20 {
		t.Fatalf("expected 20 answers/min, got %v", rate)
	}
	acc, rate = SessionMetrics(model.SessionAggregate{})
	if acc != 0 || rate != 0 {
		t.Fatalf("expected zero metrics, got %v %v", acc, rate)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 50, 100}); got != " +@" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{3, 3}); got != "++" {
		t.Fatalf("flat series should render mid glyph, got %q", got)
	}
	if Sparkline(nil) != "" {
		t.Fatalf("expected empty sparkline")
	}
}

func TestWeakestFacts(t *testing.T) {
	aggs := []model.FactAggregate{
		{A: 7, B: 8, Correct: 1, Incorrect: 3},
		{A: 2, B: 2, Correct: 5, Incorrect: 0},
		{A: 6, B: 9, Correct: 1, Incorrect: 1},
		{A: 9, B: 6, Correct: 0, Incorrect: 2},
	}
	weak := WeakestFacts(aggs, 2)
	if len(weak) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(weak))
	}
	if weak[0].A != 9 || weak[0].B != 6 {
		t.Fatalf("expected 9×6 first, got %+v", weak[0])
	}
	if weak[1].A != 7 || weak[1].B != 8 {
		t.Fatalf("expected 7×8 second, got %+v", weak[1])
	}
	if all := WeakestFacts(aggs, 0); len(all) != 3 {
		t.Fatalf("expected 3 facts with misses, got %d", len(all))
	}
}
