package stats

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/sprint/internal/model"
	"github.com/verte-zerg/sprint/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "sprint.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Hour)
		res := model.SessionResult{
			ID:        fmt.Sprintf("session-%d", i),
			StartedAt: start,
			EndedAt:   start.Add(time.Minute),
			Settings:  model.Settings{TimeLimitMinutes: 1, MinFactor: 1, MaxFactor: 6, NoDuplicates: true},
			Attempts:  2,
			Correct:   1,
			History: []model.Attempt{
				{Problem: model.Problem{A: 6, B: 7}, Input: "48", Correct: false, AnsweredAt: start},
				{Problem: model.Problem{A: 2, B: 2}, Input: "4", Correct: true, AnsweredAt: start},
			},
		}
		if err := st.InsertSession(ctx, res); err != nil {
			t.Fatalf("insert session: %v", err)
		}
	}

	report, err := BuildReport(ctx, st, model.StatsConfig{Last: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SessionID != "session-1" || report.Sessions[1].SessionID != "session-2" {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if len(report.Facts) != 2 {
		t.Fatalf("expected 2 fact aggregates, got %d", len(report.Facts))
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, 5, 3); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sessions: 2", "Overall accuracy: 50.0%", "Most-missed facts", "6 × 7"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "2 × 2") {
		t.Fatalf("facts without misses should not be listed:\n%s", out)
	}
}

func TestRenderEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	if err := (Report{}).Render(&buf, 5, 3); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No sessions found." {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
