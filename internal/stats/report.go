package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/verte-zerg/sprint/internal/model"
)

// Source lists recorded sessions and their per-fact aggregates.
type Source interface {
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error)
	ListFactAggregates(ctx context.Context, sessionIDs []string) ([]model.FactAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions []model.SessionAggregate
	Facts    []model.FactAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src Source, cfg model.StatsConfig) (Report, error) {
	sessions, err := src.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("list sessions: %w", err)
	}
	facts, err := src.ListFactAggregates(ctx, sessionIDs(sessions))
	if err != nil {
		return Report{}, fmt.Errorf("list facts: %w", err)
	}
	return Report{Sessions: sessions, Facts: facts}, nil
}

// Render writes the full stats report.
func (r Report) Render(w io.Writer, window, weakTop int) error {
	if err := RenderSummary(w, r.Sessions); err != nil {
		return err
	}
	if len(r.Sessions) == 0 {
		return nil
	}
	if err := RenderAccuracyCurve(w, r.Sessions, window); err != nil {
		return err
	}
	if err := RenderSessionTable(w, r.Sessions); err != nil {
		return err
	}
	return RenderFactTable(w, r.Facts, weakTop)
}

func sessionIDs(sessions []model.SessionAggregate) []string {
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	return ids
}
